package config

import (
	"errors"
	"fmt"
	"strings"
)

func (c *Config) normalize() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = DefaultWorkers()
	}
	if c.Pipeline.ScratchDir == "" {
		c.Pipeline.ScratchDir = DefaultScratchDir()
	}
	if c.Pipeline.FFmpegPath == "" {
		c.Pipeline.FFmpegPath = DefaultFFmpegPath
	}
	if c.Sources.SFTP.Port == 0 {
		c.Sources.SFTP.Port = 22
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	c.Logging.Color = strings.ToLower(strings.TrimSpace(c.Logging.Color))
	if c.Logging.Color == "" {
		c.Logging.Color = "auto"
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_mb must be positive, got %d", c.Server.MaxUploadMB))
	}
	if n := len(c.Server.JWTSecret); n > 0 && n < MinJWTSecretBytes {
		errs = append(errs, fmt.Errorf("server.jwt_secret must be at least %d bytes, got %d", MinJWTSecretBytes, n))
	}
	if c.Pipeline.PassTimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.pass_timeout_seconds must not be negative, got %d", c.Pipeline.PassTimeoutSeconds))
	}
	if c.Storage.RecordFailures && c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required when record_failures is enabled"))
	}
	if c.Storage.FailureRetentionDays <= 0 {
		errs = append(errs, fmt.Errorf("storage.failure_retention_days must be positive, got %d", c.Storage.FailureRetentionDays))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level))
	}
	switch c.Logging.Color {
	case "auto", "always", "never":
	default:
		errs = append(errs, fmt.Errorf("logging.color %q is not one of auto, always, never", c.Logging.Color))
	}
	if s3 := c.Sources.S3; s3.Bucket != "" && (s3.Region == "" || s3.AccessKey == "" || s3.SecretKey == "") {
		errs = append(errs, errors.New("sources.s3 requires region, access_key and secret_key when bucket is set"))
	}
	if sftp := c.Sources.SFTP; sftp.Host != "" {
		if sftp.User == "" {
			errs = append(errs, errors.New("sources.sftp.user is required when host is set"))
		}
		if sftp.Password == "" && sftp.PrivateKeyFile == "" {
			errs = append(errs, errors.New("sources.sftp needs password or private_key_file"))
		}
	}
	return errors.Join(errs...)
}
