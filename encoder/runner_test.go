package encoder

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wifski/models"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunner(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name       string
		cmd        string
		args       []string
		wantCode   int
		wantStderr string
		wantErr    bool
	}{
		{"success", "sh", []string{"-c", "exit 0"}, 0, "", false},
		{"non-zero exit is not an error", "sh", []string{"-c", "echo boom >&2; exit 3"}, 3, "boom", false},
		{"missing binary", filepath.Join(t.TempDir(), "no-such-ffmpeg"), nil, -1, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ExecRunner{}.Run(context.Background(), tt.cmd, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if res.ExitCode != tt.wantCode {
				t.Errorf("Expected exit code %d, got %d", tt.wantCode, res.ExitCode)
			}
			if strings.TrimSpace(res.Stderr) != tt.wantStderr {
				t.Errorf("Expected stderr %q, got %q", tt.wantStderr, res.Stderr)
			}
		})
	}
}

func TestExecRunnerDeadlineKillsPass(t *testing.T) {
	requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	// the background sleep keeps stderr open after sh itself is killed
	res, err := ExecRunner{WaitDelay: 200 * time.Millisecond}.Run(ctx, "sh", []string{"-c", "sleep 5 & sleep 5"})
	elapsed := time.Since(start)

	if err == nil || ctx.Err() == nil {
		t.Fatalf("Expected deadline error, got %v", err)
	}
	if res.ExitCode != -1 {
		t.Errorf("Expected exit code -1, got %d", res.ExitCode)
	}
	if elapsed > 2*time.Second {
		t.Errorf("Expected Run to return shortly after the deadline, took %s", elapsed)
	}
}

func TestAvailable(t *testing.T) {
	requireShell(t)
	if err := Available("sh"); err != nil {
		t.Errorf("Expected sh to be available: %v", err)
	}
	if err := Available(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("Expected error for missing command")
	}
}

// TestRunWithFFmpeg drives both passes through a real ffmpeg binary.
func TestRunWithFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not available")
	}
	if testing.Short() {
		t.Skip("skipping ffmpeg run in short mode")
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "sample.mp4")
	gen := exec.Command(ffmpeg, "-hide_banner", "-nostdin", "-f", "lavfi",
		"-i", "testsrc=duration=2:size=160x120:rate=15",
		"-c:v", "mpeg4", "-y", input)
	if out, err := gen.CombinedOutput(); err != nil {
		t.Skipf("could not generate sample video: %v\n%s", err, out)
	}

	tests := []struct {
		name string
		opts models.ConversionOptions
	}{
		{"defaults", models.DefaultOptions()},
		{"bounce trimmed", models.ParseForm(map[string]string{
			"loop": "bounce", "start_time": "0.5", "end_time": "1.5", "quality": "90",
		})},
		{"count small", models.ParseForm(map[string]string{"loop": "2", "resize": "25", "quality": "10"})},
	}

	enc := New(ExecRunner{}, Options{FFmpegPath: ffmpeg, PassTimeout: time.Minute, CleanupPaletteOnFailure: true})
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := "ffmpeg-" + string(rune('a'+i))
			job := NewJob(id, input,
				filepath.Join(dir, id+"-palette.png"),
				filepath.Join(dir, id+".gif"),
				tt.opts)
			if err := enc.Run(context.Background(), job); err != nil {
				t.Fatalf("Run failed: %v\n%s", err, StderrOf(err))
			}
			if job.State() != StateDone {
				t.Errorf("Expected state %s, got %s", StateDone, job.State())
			}
			data, err := os.ReadFile(job.OutputPath)
			if err != nil {
				t.Fatal(err)
			}
			if !bytes.HasPrefix(data, []byte("GIF89a")) {
				t.Errorf("Expected a GIF89a header, got %q", data[:min(len(data), 6)])
			}
		})
	}
}
