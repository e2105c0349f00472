package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// Default values for a configuration with no file and no environment.
const (
	DefaultAddr                 = ":8080"
	DefaultMaxUploadMB          = 512
	DefaultFFmpegPath           = "ffmpeg"
	DefaultFallbackWorkers      = 2
	DefaultDataDir              = "./data"
	DefaultFailureRetentionDays = 30

	// HS256 keys shorter than the hash output are rejected.
	MinJWTSecretBytes = 32
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: Server{
			Addr:        DefaultAddr,
			MaxUploadMB: DefaultMaxUploadMB,
		},
		Pipeline: Pipeline{
			FFmpegPath:              DefaultFFmpegPath,
			ScratchDir:              DefaultScratchDir(),
			CleanupPaletteOnFailure: true,
		},
		Storage: Storage{
			DataDir:              DefaultDataDir,
			RecordFailures:       true,
			FailureRetentionDays: DefaultFailureRetentionDays,
		},
		Logging: Logging{
			Level: "info",
			Color: "auto",
		},
	}
}

// DefaultScratchDir is a dedicated subdirectory of the system temp dir so
// that the stale artifact sweep never touches files it does not own.
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), "wifski")
}

// DefaultWorkers sizes the encode pool from host parallelism.
func DefaultWorkers() int {
	if n := runtime.NumCPU(); n > 0 {
		return n
	}
	return DefaultFallbackWorkers
}
