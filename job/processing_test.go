package job

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"wifski/encoder"
	"wifski/failures"
	"wifski/models"
	"wifski/taskqueue"
	"wifski/utils"
)

// scriptedRunner writes the artifact named by the last argument, optionally
// failing a given pass or blocking until cancelled.
type scriptedRunner struct {
	mu       sync.Mutex
	calls    int
	failCall int // 1-based; 0 never fails
	block    chan struct{}
	output   []byte
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args []string) (encoder.Result, error) {
	r.mu.Lock()
	r.calls++
	call := r.calls
	r.mu.Unlock()

	if r.block != nil {
		close(r.block)
		<-ctx.Done()
		return encoder.Result{ExitCode: -1}, ctx.Err()
	}
	if call == r.failCall {
		return encoder.Result{ExitCode: 1, Stderr: "input.mp4: Invalid data found when processing input"}, nil
	}
	data := r.output
	if data == nil {
		data = []byte("GIF89a-test")
	}
	return encoder.Result{}, os.WriteFile(args[len(args)-1], data, 0o644)
}

func newTestProcessor(t *testing.T, runner encoder.Runner) (*Processor, string) {
	t.Helper()
	scratch := filepath.Join(t.TempDir(), "scratch")
	enc := encoder.New(runner, encoder.Options{CleanupPaletteOnFailure: true})
	p, err := NewProcessor(enc, taskqueue.NewPool(2), scratch)
	if err != nil {
		t.Fatalf("Failed to create processor: %v", err)
	}
	return p, scratch
}

func writeInput(t *testing.T, p *Processor, id string) string {
	t.Helper()
	path := p.InputPath(id, "clip.mp4")
	if err := os.WriteFile(path, []byte("not really a video"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func scratchEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestConvertSuccessRemovesArtifacts(t *testing.T) {
	runner := &scriptedRunner{}
	p, scratch := newTestProcessor(t, runner)
	input := writeInput(t, p, "req-ok")

	opts := models.ParseForm(map[string]string{"resize": "50", "fps": "10", "loop": "forever", "quality": "90"})
	res, err := p.Convert(context.Background(), "req-ok", input, opts)
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if res.ContentType != "image/gif" || string(res.Data) != "GIF89a-test" {
		t.Errorf("Unexpected result %+v", res)
	}
	if runner.calls != 2 {
		t.Errorf("Expected 2 passes, got %d", runner.calls)
	}

	os.Remove(input)
	if left := scratchEntries(t, scratch); len(left) != 0 {
		t.Errorf("Expected empty scratch dir, found %v", left)
	}
	if len(ActiveJobs()) != 0 {
		t.Error("Expected no active jobs after completion")
	}
}

func TestConvertInputMissing(t *testing.T) {
	runner := &scriptedRunner{}
	p, _ := newTestProcessor(t, runner)

	for _, input := range []string{"", filepath.Join(t.TempDir(), "absent.mp4")} {
		_, err := p.Convert(context.Background(), "req-missing", input, models.DefaultOptions())
		if !errors.Is(err, models.ErrInputMissing) {
			t.Errorf("Expected ErrInputMissing for %q, got %v", input, err)
		}
	}

	empty := p.InputPath("req-empty", "clip.mp4")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Convert(context.Background(), "req-empty", empty, models.DefaultOptions()); !errors.Is(err, models.ErrInputMissing) {
		t.Errorf("Expected ErrInputMissing for empty upload, got %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("Expected no ffmpeg invocations, got %d", runner.calls)
	}
}

func TestConvertPaletteFailureIsJournaled(t *testing.T) {
	if err := failures.Init(filepath.Join(t.TempDir(), "failures.db")); err != nil {
		t.Fatal(err)
	}
	defer failures.Close()

	runner := &scriptedRunner{failCall: 1}
	p, scratch := newTestProcessor(t, runner)
	input := writeInput(t, p, "req-corrupt")

	_, err := p.Convert(context.Background(), "req-corrupt", input, models.DefaultOptions())
	if !errors.Is(err, models.ErrPaletteGenerationFailed) {
		t.Fatalf("Expected palette failure, got %v", err)
	}
	if runner.calls != 1 {
		t.Errorf("Expected pass 2 to be skipped, got %d calls", runner.calls)
	}
	for _, name := range scratchEntries(t, scratch) {
		if strings.HasSuffix(name, ".gif") {
			t.Errorf("Expected no output artifact, found %s", name)
		}
	}

	record, err := failures.GetFailure("req-corrupt")
	if err != nil || record == nil {
		t.Fatalf("Expected journaled failure, got %v, %v", record, err)
	}
	if record.Kind != "PaletteGenerationFailed" {
		t.Errorf("Expected kind PaletteGenerationFailed, got %s", record.Kind)
	}
	if !strings.Contains(record.Stderr, "Invalid data") {
		t.Errorf("Expected stderr in record, got %q", record.Stderr)
	}
}

func TestConvertEncodeFailureRemovesPalette(t *testing.T) {
	runner := &scriptedRunner{failCall: 2}
	p, scratch := newTestProcessor(t, runner)
	input := writeInput(t, p, "req-encode")

	_, err := p.Convert(context.Background(), "req-encode", input, models.DefaultOptions())
	if !errors.Is(err, models.ErrEncodeFailed) {
		t.Fatalf("Expected encode failure, got %v", err)
	}

	os.Remove(input)
	if left := scratchEntries(t, scratch); len(left) != 0 {
		t.Errorf("Expected palette and output to be removed, found %v", left)
	}
}

func TestConvertEmptyOutputIsReadFailure(t *testing.T) {
	runner := &scriptedRunner{output: []byte{}}
	p, _ := newTestProcessor(t, runner)
	input := writeInput(t, p, "req-empty-out")

	_, err := p.Convert(context.Background(), "req-empty-out", input, models.DefaultOptions())
	if !errors.Is(err, models.ErrArtifactReadFailed) {
		t.Errorf("Expected ArtifactReadFailed, got %v", err)
	}
}

func TestCancelJobKillsRunningConversion(t *testing.T) {
	runner := &scriptedRunner{block: make(chan struct{})}
	p, _ := newTestProcessor(t, runner)
	input := writeInput(t, p, "req-cancel")

	done := make(chan error, 1)
	go func() {
		_, err := p.Convert(context.Background(), "req-cancel", input, models.DefaultOptions())
		done <- err
	}()

	<-runner.block
	jobs := ActiveJobs()
	if len(jobs) != 1 || jobs[0].RequestID != "req-cancel" || jobs[0].State != "running" {
		t.Fatalf("Expected one running job, got %+v", jobs)
	}
	if err := CancelJob("req-cancel"); err != nil {
		t.Fatalf("Failed to cancel: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected cancellation error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Conversion did not stop after cancel")
	}

	if err := CancelJob("req-cancel"); err == nil {
		t.Error("Expected error cancelling a finished job")
	}
}

func TestSweepScratch(t *testing.T) {
	dir := t.TempDir()
	old := time.Now().Add(-2 * time.Hour)

	write := func(name string, mtime time.Time) {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	stale := utils.ArtifactPaths(dir, utils.NewRequestID(), ".mp4")
	write(filepath.Base(stale.Input), old)
	write(filepath.Base(stale.Palette), old)
	write(filepath.Base(stale.Output), old)

	fresh := utils.ArtifactPaths(dir, utils.NewRequestID(), "")
	write(filepath.Base(fresh.Output), time.Now())

	busyID := utils.NewRequestID()
	write(filepath.Base(utils.ArtifactPaths(dir, busyID, "").Palette), old)

	// unrelated files sharing the directory
	write("holiday.gif", old)
	write("notes.txt", old)

	track(busyID, func() {})
	defer untrack(busyID)

	removed, err := SweepScratch(dir, time.Hour)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 3 {
		t.Errorf("Expected 3 files removed, got %d", removed)
	}
	left := scratchEntries(t, dir)
	if len(left) != 4 {
		t.Errorf("Expected fresh, busy and unrelated files to remain, got %v", left)
	}
	for _, name := range []string{"holiday.gif", "notes.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to survive the sweep: %v", name, err)
		}
	}

	if n, err := SweepScratch(filepath.Join(dir, "missing"), time.Hour); err != nil || n != 0 {
		t.Errorf("Expected missing dir to be a no-op, got %d, %v", n, err)
	}
}

// fakeSource copies data to the destination, fails with err, or blocks
// until cancelled when started is set.
type fakeSource struct {
	data    []byte
	err     error
	started chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context, ref, destPath string) error {
	if f.started != nil {
		close(f.started)
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, f.data, 0o644)
}

func TestConvertSourceSuccess(t *testing.T) {
	p, scratch := newTestProcessor(t, &scriptedRunner{})

	res, err := p.ConvertSource(context.Background(), "req-src", &fakeSource{data: []byte("video")}, "s3:clips/cat.mp4", models.DefaultOptions())
	if err != nil {
		t.Fatalf("ConvertSource failed: %v", err)
	}
	if res.ContentType != ContentTypeGIF || len(res.Data) == 0 {
		t.Errorf("Unexpected result %+v", res)
	}
	if left := scratchEntries(t, scratch); len(left) != 0 {
		t.Errorf("Expected downloaded input and artifacts to be removed, found %v", left)
	}
}

func TestConvertSourceFetchFailureIsJournaled(t *testing.T) {
	if err := failures.Init(filepath.Join(t.TempDir(), "failures.db")); err != nil {
		t.Fatal(err)
	}
	defer failures.Close()

	runner := &scriptedRunner{}
	p, _ := newTestProcessor(t, runner)
	src := &fakeSource{err: errors.Join(models.ErrSourceFetchFailed, errors.New("403 Forbidden"))}

	_, err := p.ConvertSource(context.Background(), "req-src-fail", src, "gcs:private.mp4", models.DefaultOptions())
	if !errors.Is(err, models.ErrSourceFetchFailed) {
		t.Fatalf("Expected SourceFetchFailed, got %v", err)
	}
	if runner.calls != 0 {
		t.Errorf("Expected no ffmpeg invocation, got %d", runner.calls)
	}

	record, err := failures.GetFailure("req-src-fail")
	if err != nil || record == nil {
		t.Fatalf("Expected journaled failure, got %v, %v", record, err)
	}
	if record.Kind != "SourceFetchFailed" {
		t.Errorf("Expected kind SourceFetchFailed, got %s", record.Kind)
	}
}

func TestCancelJobStopsSourceFetch(t *testing.T) {
	p, _ := newTestProcessor(t, &scriptedRunner{})
	src := &fakeSource{started: make(chan struct{})}

	done := make(chan error, 1)
	go func() {
		_, err := p.ConvertSource(context.Background(), "req-slow-src", src, "sftp:big.mp4", models.DefaultOptions())
		done <- err
	}()

	<-src.started
	jobs := ActiveJobs()
	if len(jobs) != 1 || jobs[0].RequestID != "req-slow-src" || jobs[0].State != "fetching" {
		t.Fatalf("Expected one fetching job, got %+v", jobs)
	}
	if err := CancelJob("req-slow-src"); err != nil {
		t.Fatalf("Failed to cancel: %v", err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected cancellation error, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Fetch did not stop after cancel")
	}
}
