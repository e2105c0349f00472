// Package encoder drives ffmpeg through the palette and encode passes that
// turn a video into a GIF.
package encoder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"wifski/logger"
	"wifski/metrics"
)

// Options configures an Encoder.
type Options struct {
	FFmpegPath string
	// PassTimeout bounds each invocation separately; zero means no limit.
	PassTimeout time.Duration
	// CleanupPaletteOnFailure removes a partially written palette when pass 1
	// fails. Pass 2 failures always remove the palette.
	CleanupPaletteOnFailure bool
}

// Encoder runs jobs against a Runner. It holds no per-job state and is safe
// for concurrent use.
type Encoder struct {
	runner Runner
	opts   Options
}

// New returns an Encoder. A nil runner selects ExecRunner.
func New(runner Runner, opts Options) *Encoder {
	if runner == nil {
		runner = ExecRunner{}
	}
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	return &Encoder{runner: runner, opts: opts}
}

// Run executes both passes for job. On success the output artifact exists and
// the job is Done; the caller reads it and removes both artifacts. On failure
// the job is Failed and the returned error is a *PassError.
func (e *Encoder) Run(ctx context.Context, job *Job) error {
	if err := job.transition(StatePaletteGenerating); err != nil {
		return err
	}
	if err := e.pass(ctx, job, PassPalette, job.PaletteArgs()); err != nil {
		job.transition(StateFailed)
		if e.opts.CleanupPaletteOnFailure {
			removeQuiet(job.PalettePath)
		}
		return err
	}
	if _, err := os.Stat(job.PalettePath); err != nil {
		job.transition(StateFailed)
		return &PassError{Pass: PassPalette, Err: fmt.Errorf("palette not written: %w", err)}
	}
	job.transition(StatePaletteReady)

	job.transition(StateEncoding)
	if err := e.pass(ctx, job, PassEncode, job.EncodeArgs()); err != nil {
		job.transition(StateFailed)
		if rmErr := os.Remove(job.PalettePath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logger.Warnf("job %s: failed to remove palette %s: %v", job.ID, job.PalettePath, rmErr)
		}
		removeQuiet(job.OutputPath)
		return err
	}
	return job.transition(StateDone)
}

func (e *Encoder) pass(ctx context.Context, job *Job, pass Pass, args []string) error {
	if e.opts.PassTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.PassTimeout)
		defer cancel()
	}

	logger.Debugf("job %s: %s pass: %s %s", job.ID, pass, e.opts.FFmpegPath, strings.Join(args, " "))
	start := time.Now()
	res, err := e.runner.Run(ctx, e.opts.FFmpegPath, args)
	elapsed := time.Since(start)

	ok := err == nil && res.ExitCode == 0
	metrics.ObservePass(string(pass), ok, elapsed)
	if ok {
		logger.Debugf("job %s: %s pass finished in %s", job.ID, pass, elapsed.Round(time.Millisecond))
		return nil
	}

	pe := &PassError{Pass: pass, ExitCode: res.ExitCode, Stderr: res.Stderr, Err: err}
	logger.Errorf("job %s: %v\n%s", job.ID, pe, strings.TrimSpace(res.Stderr))
	return pe
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Debugf("best-effort removal of %s failed: %v", path, err)
	}
}
