package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load with missing file: %v", err)
	}

	if cfg.Server.Addr != DefaultAddr {
		t.Errorf("Expected addr %s, got %s", DefaultAddr, cfg.Server.Addr)
	}
	if cfg.Pipeline.Workers < 1 {
		t.Errorf("Expected at least one worker, got %d", cfg.Pipeline.Workers)
	}
	if !cfg.Pipeline.CleanupPaletteOnFailure {
		t.Error("Expected palette cleanup on failure to default to true")
	}
	if cfg.PassTimeout() != 0 {
		t.Errorf("Expected no pass timeout by default, got %v", cfg.PassTimeout())
	}
	if cfg.MaxUploadBytes() != DefaultMaxUploadMB<<20 {
		t.Errorf("Expected upload limit %d, got %d", DefaultMaxUploadMB<<20, cfg.MaxUploadBytes())
	}
	if cfg.FailureRetention() != 30*24*time.Hour {
		t.Errorf("Expected 30 day retention, got %v", cfg.FailureRetention())
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifski.toml")
	content := `
[server]
addr = "127.0.0.1:9090"

[pipeline]
workers = 3
pass_timeout_seconds = 90
cleanup_palette_on_failure = false

[logging]
level = "DEBUG"

[sources.library]
dir = "/srv/clips"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9090" {
		t.Errorf("Expected addr from file, got %s", cfg.Server.Addr)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.Pipeline.Workers)
	}
	if cfg.PassTimeout() != 90*time.Second {
		t.Errorf("Expected 90s pass timeout, got %v", cfg.PassTimeout())
	}
	if cfg.Pipeline.CleanupPaletteOnFailure {
		t.Error("Expected cleanup_palette_on_failure=false from file")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected normalized level debug, got %s", cfg.Logging.Level)
	}
	if cfg.Sources.Library.Dir != "/srv/clips" {
		t.Errorf("Expected library dir from file, got %s", cfg.Sources.Library.Dir)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifski.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nworkerz = 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Expected error for unknown key")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifski.toml")
	if err := os.WriteFile(path, []byte("[pipeline]\nworkers = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIFSKI_WORKERS", "7")
	t.Setenv("WIFSKI_DATA_DIR", "/tmp/wifski-test-data")
	t.Setenv("WIFSKI_RECORD_FAILURES", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 7 {
		t.Errorf("Expected env workers 7, got %d", cfg.Pipeline.Workers)
	}
	if cfg.Storage.RecordFailures {
		t.Error("Expected WIFSKI_RECORD_FAILURES=false to disable the journal")
	}

	expected := filepath.Join("/tmp/wifski-test-data", "failures.db")
	if cfg.FailuresDBPath() != expected {
		t.Errorf("Expected failures path %s, got %s", expected, cfg.FailuresDBPath())
	}
}

func TestEnvConfigPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "from-env.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":7000\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("WIFSKI_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("Expected addr from WIFSKI_CONFIG file, got %s", cfg.Server.Addr)
	}
}

func TestInvalidEnvValue(t *testing.T) {
	t.Setenv("WIFSKI_WORKERS", "many")
	if _, err := Load(""); err == nil {
		t.Error("Expected error for non-numeric WIFSKI_WORKERS")
	}
}

func TestValidateCollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.MaxUploadMB = 0
	cfg.Pipeline.PassTimeoutSeconds = -1
	cfg.Logging.Level = "chatty"
	cfg.Sources.S3.Bucket = "clips"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation errors")
	}
	for _, want := range []string{"max_upload_mb", "pass_timeout_seconds", "logging.level", "sources.s3"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error mentioning %s, got %v", want, err)
		}
	}
}

func TestWorkersNormalized(t *testing.T) {
	cfg := Default()
	cfg.Pipeline.Workers = -4
	cfg.normalize()
	if cfg.Pipeline.Workers != DefaultWorkers() {
		t.Errorf("Expected %d workers, got %d", DefaultWorkers(), cfg.Pipeline.Workers)
	}
}
