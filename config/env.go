package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv overlays WIFSKI_* environment variables. Environment values win
// over the config file so containers can be tuned without a mounted file.
func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, "WIFSKI_ADDR")
	setString(&c.Server.JWTSecret, "WIFSKI_JWT_SECRET")
	setString(&c.Server.JWTIssuer, "WIFSKI_JWT_ISSUER")
	setString(&c.Pipeline.FFmpegPath, "WIFSKI_FFMPEG")
	setString(&c.Pipeline.ScratchDir, "WIFSKI_SCRATCH_DIR")
	setString(&c.Storage.DataDir, "WIFSKI_DATA_DIR")
	setString(&c.Logging.Level, "WIFSKI_LOG_LEVEL")
	setString(&c.Logging.File, "WIFSKI_LOG_FILE")
	setString(&c.Logging.Color, "WIFSKI_LOG_COLOR")

	setString(&c.Sources.S3.Bucket, "WIFSKI_S3_BUCKET")
	setString(&c.Sources.S3.Region, "WIFSKI_S3_REGION")
	setString(&c.Sources.S3.AccessKey, "WIFSKI_S3_ACCESS_KEY")
	setString(&c.Sources.S3.SecretKey, "WIFSKI_S3_SECRET_KEY")
	setString(&c.Sources.S3.Endpoint, "WIFSKI_S3_ENDPOINT")
	setString(&c.Sources.GCS.Bucket, "WIFSKI_GCS_BUCKET")
	setString(&c.Sources.GCS.CredentialsFile, "WIFSKI_GCS_CREDENTIALS_FILE")
	setString(&c.Sources.SFTP.Host, "WIFSKI_SFTP_HOST")
	setString(&c.Sources.SFTP.User, "WIFSKI_SFTP_USER")
	setString(&c.Sources.SFTP.Password, "WIFSKI_SFTP_PASSWORD")
	setString(&c.Sources.SFTP.PrivateKeyFile, "WIFSKI_SFTP_PRIVATE_KEY_FILE")
	setString(&c.Sources.SFTP.KnownHostsFile, "WIFSKI_SFTP_KNOWN_HOSTS_FILE")
	setString(&c.Sources.SFTP.BaseDir, "WIFSKI_SFTP_BASE_DIR")
	setString(&c.Sources.Library.Dir, "WIFSKI_LIBRARY_DIR")

	ints := []struct {
		dst *int
		key string
	}{
		{&c.Pipeline.Workers, "WIFSKI_WORKERS"},
		{&c.Pipeline.PassTimeoutSeconds, "WIFSKI_PASS_TIMEOUT"},
		{&c.Storage.FailureRetentionDays, "WIFSKI_FAILURE_RETENTION_DAYS"},
		{&c.Sources.SFTP.Port, "WIFSKI_SFTP_PORT"},
	}
	for _, e := range ints {
		if err := setInt(e.dst, e.key); err != nil {
			return err
		}
	}

	if v := os.Getenv("WIFSKI_MAX_UPLOAD_MB"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("WIFSKI_MAX_UPLOAD_MB: %w", err)
		}
		c.Server.MaxUploadMB = n
	}

	bools := []struct {
		dst *bool
		key string
	}{
		{&c.Pipeline.CleanupPaletteOnFailure, "WIFSKI_CLEANUP_PALETTE_ON_FAILURE"},
		{&c.Storage.RecordFailures, "WIFSKI_RECORD_FAILURES"},
		{&c.Sources.S3.UsePathStyle, "WIFSKI_S3_PATH_STYLE"},
	}
	for _, e := range bools {
		if err := setBool(e.dst, e.key); err != nil {
			return err
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
