package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wifski/config"
	"wifski/encoder"
	"wifski/failures"
	"wifski/job"
	"wifski/logger"
	"wifski/routes"
	"wifski/sources"
	"wifski/taskqueue"
)

const (
	cleanupInterval  = time.Hour
	staleArtifactAge = time.Hour
	shutdownTimeout  = 30 * time.Second
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx.config)
		},
	}
}

func newProcessor(cfg *config.Config) (*job.Processor, error) {
	enc := encoder.New(encoder.ExecRunner{}, encoder.Options{
		FFmpegPath:              cfg.Pipeline.FFmpegPath,
		PassTimeout:             cfg.PassTimeout(),
		CleanupPaletteOnFailure: cfg.Pipeline.CleanupPaletteOnFailure,
	})
	return job.NewProcessor(enc, taskqueue.NewPool(cfg.Pipeline.Workers), cfg.Pipeline.ScratchDir)
}

func runServe(parent context.Context, cfg *config.Config) error {
	logger.Info("Starting wifski server initialization")

	if cfg.Storage.RecordFailures {
		logger.Debug("Initializing failures database")
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return fmt.Errorf("failed to create data dir: %w", err)
		}
		if err := failures.Init(cfg.FailuresDBPath()); err != nil {
			return err
		}
		defer failures.Close()
		logger.Info("Failures database initialized successfully")
	}

	encoder.CheckFFmpeg(cfg.Pipeline.FFmpegPath)

	proc, err := newProcessor(cfg)
	if err != nil {
		return err
	}
	logger.Infof("Encoding with %d workers, scratch dir %s", cfg.Pipeline.Workers, proc.ScratchDir())

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// requests outlive the signal so Shutdown can drain them; this context
	// kills whatever is still encoding once the drain deadline passes
	requestCtx, killRequests := context.WithCancel(context.WithoutCancel(parent))
	defer killRequests()

	go cleanupRoutine(ctx, cfg, proc.ScratchDir())

	server := &routes.Server{
		Processor:      proc,
		Fetcher:        sources.New(cfg.Sources),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		JWTSecret:      []byte(cfg.Server.JWTSecret),
		JWTIssuer:      cfg.Server.JWTIssuer,
		FFmpegPath:     cfg.Pipeline.FFmpegPath,
	}
	if len(server.JWTSecret) == 0 {
		logger.Warn("No jwt_secret configured: /convert accepts unauthenticated requests")
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.NewMux(server),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return requestCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("wifski server listening on %s", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down, waiting for in-flight conversions")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		killRequests()
		httpServer.Close()
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// cleanupRoutine purges expired failure records and stale scratch artifacts,
// once at startup and then every cleanupInterval.
func cleanupRoutine(ctx context.Context, cfg *config.Config, scratchDir string) {
	logger.Infof("Cleanup routine started - will run every %s", cleanupInterval)
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		runCleanup(cfg, scratchDir)
		select {
		case <-ctx.Done():
			logger.Info("Cleanup routine stopped due to context cancellation")
			return
		case <-ticker.C:
		}
	}
}

func runCleanup(cfg *config.Config, scratchDir string) {
	if failures.Enabled() {
		maxAge := cfg.FailureRetention()
		logger.Debugf("Cleaning up failure records older than %v", maxAge)
		if n, err := failures.CleanupOldRecords(maxAge); err != nil {
			logger.Errorf("Failed to cleanup old failure records: %v", err)
		} else if n > 0 {
			logger.Infof("Removed %d expired failure records", n)
		}
	}

	n, err := job.SweepScratch(scratchDir, staleArtifactAge)
	if err != nil {
		logger.Errorf("Failed to sweep scratch dir %s: %v", scratchDir, err)
	} else if n > 0 {
		logger.Infof("Removed %d stale artifacts from %s", n, scratchDir)
	}
}
