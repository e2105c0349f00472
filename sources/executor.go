// Package sources fetches source media named by a reference such as
// "s3:clips/cat.mp4" into a local scratch file, for requests that do not
// upload the video themselves.
package sources

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"wifski/config"
	"wifski/logger"
	"wifski/metrics"
	"wifski/models"
)

// Backend names accepted as reference prefixes.
const (
	BackendS3      = "s3"
	BackendGCS     = "gcs"
	BackendSFTP    = "sftp"
	BackendLibrary = "library"
)

var (
	ErrInvalidRef      = errors.New("invalid source reference")
	ErrUnknownBackend  = errors.New("unknown source backend")
	ErrBackendDisabled = errors.New("source backend not configured")
)

// Ref is a parsed "<backend>:<path>" reference.
type Ref struct {
	Backend string
	Path    string
}

func (r Ref) String() string { return r.Backend + ":" + r.Path }

// ParseRef splits and validates a reference. Paths must be relative and may
// not climb out of their root with "..".
func ParseRef(raw string) (Ref, error) {
	backend, p, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || backend == "" || p == "" {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, raw)
	}
	backend = strings.ToLower(backend)
	switch backend {
	case BackendS3, BackendGCS, BackendSFTP, BackendLibrary:
	default:
		return Ref{}, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}

	if strings.HasPrefix(p, "/") || strings.Contains(p, "\\") {
		return Ref{}, fmt.Errorf("%w: path %q must be relative", ErrInvalidRef, p)
	}
	clean := path.Clean(p)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return Ref{}, fmt.Errorf("%w: path %q escapes its root", ErrInvalidRef, p)
	}
	return Ref{Backend: backend, Path: clean}, nil
}

// backend downloads one object into dst.
type backend interface {
	fetch(ctx context.Context, p string, dst *os.File) error
}

// Fetcher dispatches references to the configured backends.
type Fetcher struct {
	backends map[string]backend
}

// New enables each backend whose bucket, host or directory is configured.
func New(cfg config.Sources) *Fetcher {
	f := &Fetcher{backends: make(map[string]backend)}
	if cfg.S3.Bucket != "" {
		f.backends[BackendS3] = newS3Backend(cfg.S3)
	}
	if cfg.GCS.Bucket != "" {
		f.backends[BackendGCS] = &gcsBackend{cfg: cfg.GCS}
	}
	if cfg.SFTP.Host != "" {
		f.backends[BackendSFTP] = &sftpBackend{cfg: cfg.SFTP}
	}
	if cfg.Library.Dir != "" {
		f.backends[BackendLibrary] = &libraryBackend{dir: cfg.Library.Dir}
	}
	for name := range f.backends {
		logger.Debugf("source backend [%s] enabled", name)
	}
	return f
}

// Enabled lists the configured backend names.
func (f *Fetcher) Enabled() []string {
	names := make([]string, 0, len(f.backends))
	for _, name := range []string{BackendS3, BackendGCS, BackendSFTP, BackendLibrary} {
		if _, ok := f.backends[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// Fetch resolves raw and writes the media to destPath. Reference errors wrap
// models.ErrInputMissing; download errors wrap models.ErrSourceFetchFailed.
// A partially written destination is removed on failure.
func (f *Fetcher) Fetch(ctx context.Context, raw, destPath string) error {
	ref, err := ParseRef(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrInputMissing, err)
	}
	b, ok := f.backends[ref.Backend]
	if !ok {
		return fmt.Errorf("%w: %w: %s", models.ErrInputMissing, ErrBackendDisabled, ref.Backend)
	}

	dst, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", destPath, err)
	}

	err = b.fetch(ctx, ref.Path, dst)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	metrics.SourceFetched(ref.Backend, err == nil)
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: %s: %w", models.ErrSourceFetchFailed, ref, err)
	}

	logger.Infof("Fetched source '%s' to '%s'", ref, destPath)
	return nil
}
