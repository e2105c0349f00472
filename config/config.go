package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Server contains HTTP listener and request limits.
type Server struct {
	Addr        string `toml:"addr"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
	JWTSecret   string `toml:"jwt_secret"` // empty disables bearer auth on /convert
	JWTIssuer   string `toml:"jwt_issuer"`
}

// Pipeline contains the ffmpeg invocation settings.
type Pipeline struct {
	FFmpegPath         string `toml:"ffmpeg_path"`
	Workers            int    `toml:"workers"` // 0 selects one per CPU
	ScratchDir         string `toml:"scratch_dir"`
	PassTimeoutSeconds int    `toml:"pass_timeout_seconds"` // 0 means no deadline
	// CleanupPaletteOnFailure also removes the palette when pass 1 fails.
	// Disable to keep the historical behaviour of leaving it in scratch.
	CleanupPaletteOnFailure bool `toml:"cleanup_palette_on_failure"`
}

// Storage contains the failure journal settings.
type Storage struct {
	DataDir              string `toml:"data_dir"`
	RecordFailures       bool   `toml:"record_failures"`
	FailureRetentionDays int    `toml:"failure_retention_days"`
}

// Logging contains log output settings.
type Logging struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
	Color string `toml:"color"`
}

// S3Source configures fetching source media from an S3 bucket.
type S3Source struct {
	Bucket       string `toml:"bucket"`
	Region       string `toml:"region"`
	AccessKey    string `toml:"access_key"`
	SecretKey    string `toml:"secret_key"`
	Endpoint     string `toml:"endpoint"` // S3-compatible endpoint override
	UsePathStyle bool   `toml:"use_path_style"`
}

// GCSSource configures fetching source media from a GCS bucket.
type GCSSource struct {
	Bucket          string `toml:"bucket"`
	CredentialsFile string `toml:"credentials_file"` // empty uses application default credentials
}

// SFTPSource configures fetching source media over SFTP.
type SFTPSource struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	User           string `toml:"user"`
	Password       string `toml:"password"`
	PrivateKeyFile string `toml:"private_key_file"`
	KnownHostsFile string `toml:"known_hosts_file"`
	BaseDir        string `toml:"base_dir"`
}

// LibrarySource configures reading source media from a local directory.
type LibrarySource struct {
	Dir string `toml:"dir"`
}

// Sources groups the optional remote media backends. A backend is enabled
// when its bucket, host or directory is set.
type Sources struct {
	S3      S3Source      `toml:"s3"`
	GCS     GCSSource     `toml:"gcs"`
	SFTP    SFTPSource    `toml:"sftp"`
	Library LibrarySource `toml:"library"`
}

// Config encapsulates all configuration values for wifski.
type Config struct {
	Server   Server   `toml:"server"`
	Pipeline Pipeline `toml:"pipeline"`
	Storage  Storage  `toml:"storage"`
	Logging  Logging  `toml:"logging"`
	Sources  Sources  `toml:"sources"`
}

// Load builds the effective configuration: defaults, then the TOML file at
// path (or $WIFSKI_CONFIG) if it exists, then WIFSKI_* environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("WIFSKI_CONFIG")
	}
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// PassTimeout returns the per-pass deadline, zero when none is configured.
func (c *Config) PassTimeout() time.Duration {
	return time.Duration(c.Pipeline.PassTimeoutSeconds) * time.Second
}

// MaxUploadBytes returns the request body limit for /convert.
func (c *Config) MaxUploadBytes() int64 {
	return c.Server.MaxUploadMB << 20
}

// FailureRetention returns how long failure records are kept.
func (c *Config) FailureRetention() time.Duration {
	return time.Duration(c.Storage.FailureRetentionDays) * 24 * time.Hour
}

// FailuresDBPath returns the full path to the failure journal.
// Path: {DataDir}/failures.db
func (c *Config) FailuresDBPath() string {
	return filepath.Join(c.Storage.DataDir, "failures.db")
}
