// Package job runs one conversion request end to end: it names the scratch
// artifacts, waits for a worker slot, drives both ffmpeg passes, reads the
// GIF back and removes everything it wrote.
package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"wifski/encoder"
	"wifski/failures"
	"wifski/logger"
	"wifski/metrics"
	"wifski/models"
	"wifski/taskqueue"
	"wifski/utils"
)

// ContentTypeGIF is the media type of every successful result.
const ContentTypeGIF = "image/gif"

// Result is a finished conversion. The scratch artifacts are already gone.
type Result struct {
	RequestID   string
	Data        []byte
	ContentType string
}

// Processor is shared by all requests; everything request specific lives on
// the stack of Convert.
type Processor struct {
	encoder    *encoder.Encoder
	pool       *taskqueue.Pool
	scratchDir string
}

// NewProcessor creates the scratch directory if needed.
func NewProcessor(enc *encoder.Encoder, pool *taskqueue.Pool, scratchDir string) (*Processor, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir %s: %w", scratchDir, err)
	}
	return &Processor{encoder: enc, pool: pool, scratchDir: scratchDir}, nil
}

// ScratchDir is where inputs and artifacts are written.
func (p *Processor) ScratchDir() string { return p.scratchDir }

// Pool exposes the worker pool for health reporting.
func (p *Processor) Pool() *taskqueue.Pool { return p.pool }

// InputPath names the scratch file an upload for id should be written to.
func (p *Processor) InputPath(id, filename string) string {
	return utils.ArtifactPaths(p.scratchDir, id, filepath.Ext(filename)).Input
}

// Source downloads the media named by ref to destPath.
type Source interface {
	Fetch(ctx context.Context, ref, destPath string) error
}

// Convert turns the media at inputPath into a GIF. The caller owns
// inputPath; Convert owns the palette and output artifacts and removes them
// on every path. Failures are journaled when the failure store is open.
func (p *Processor) Convert(ctx context.Context, id, inputPath string, opts models.ConversionOptions) (*Result, error) {
	res, err := p.tracked(ctx, id, func(ctx context.Context) (*Result, error) {
		return p.convert(ctx, id, inputPath, opts)
	})
	return p.report(id, opts, res, err)
}

// ConvertSource downloads ref from src into scratch and converts it. The
// download is part of the request: it can be cancelled, and its failures are
// journaled like any other. The downloaded input is always removed.
func (p *Processor) ConvertSource(ctx context.Context, id string, src Source, ref string, opts models.ConversionOptions) (*Result, error) {
	inputPath := p.InputPath(id, ref)
	defer os.Remove(inputPath)

	res, err := p.tracked(ctx, id, func(ctx context.Context) (*Result, error) {
		setState(id, JobStateFetching)
		if err := src.Fetch(ctx, ref, inputPath); err != nil {
			return nil, err
		}
		setState(id, JobStateQueued)
		return p.convert(ctx, id, inputPath, opts)
	})
	return p.report(id, opts, res, err)
}

// tracked registers id as active for the duration of fn so it can be listed
// and cancelled.
func (p *Processor) tracked(ctx context.Context, id string, fn func(context.Context) (*Result, error)) (*Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	track(id, cancel)
	defer untrack(id)
	return fn(ctx)
}

func (p *Processor) report(id string, opts models.ConversionOptions, res *Result, err error) (*Result, error) {
	if err != nil {
		kind := models.KindOf(err)
		metrics.ConversionFailed(kind)
		logger.Errorf("Conversion %s failed (%s): %v", id, kind, err)
		recordFailure(id, err, opts)
		return nil, err
	}
	metrics.ConversionSucceeded(len(res.Data))
	logger.Infof("Conversion %s finished: %d bytes", id, len(res.Data))
	return res, nil
}

func (p *Processor) convert(ctx context.Context, id, inputPath string, opts models.ConversionOptions) (*Result, error) {
	if inputPath == "" {
		return nil, models.ErrInputMissing
	}
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrInputMissing, err)
	}
	if info.IsDir() || info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s is empty", models.ErrInputMissing, inputPath)
	}

	paths := utils.ArtifactPaths(p.scratchDir, id, "")
	j := encoder.NewJob(id, inputPath, paths.Palette, paths.Output, opts)
	logger.Debugf("Conversion %s: loop=%s dither=%s chain=%s", id, opts.Loop, j.Dither, j.Chain)

	wait, err := p.pool.Do(ctx, func(ctx context.Context) error {
		setState(id, JobStateRunning)
		defer metrics.TrackInFlight()()
		return p.encoder.Run(ctx, j)
	})
	metrics.ObserveQueueWait(wait)
	if err != nil {
		return nil, err
	}

	data, readErr := os.ReadFile(j.OutputPath)
	if readErr == nil && len(data) == 0 {
		readErr = errors.New("output is empty")
	}
	cleanupErr := removeArtifacts(j.PalettePath, j.OutputPath)

	if readErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", models.ErrArtifactReadFailed, j.OutputPath, readErr)
	}
	if cleanupErr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrArtifactCleanupFailed, cleanupErr)
	}
	return &Result{RequestID: id, Data: data, ContentType: ContentTypeGIF}, nil
}

// removeArtifacts deletes every path, reporting all failures except files
// that are already gone.
func removeArtifacts(paths ...string) error {
	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func recordFailure(id string, err error, opts models.ConversionOptions) {
	if !failures.Enabled() {
		return
	}
	if storeErr := failures.StoreFailure(failures.NewRecord(id, err, encoder.StderrOf(err), opts)); storeErr != nil {
		logger.Errorf("Failed to record failure for %s: %v", id, storeErr)
	}
}

// SweepScratch removes conversion artifacts in dir older than maxAge that do
// not belong to an in-flight request. Files not named like an artifact are
// left alone. It returns how many were removed.
func SweepScratch(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !utils.IsArtifactName(entry.Name()) || isActiveArtifact(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			logger.Warnf("Failed to remove stale artifact %s: %v", path, err)
			continue
		}
		removed++
	}
	return removed, nil
}
