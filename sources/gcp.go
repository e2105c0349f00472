package sources

import (
	"context"
	"fmt"
	"io"
	"os"

	"wifski/config"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type gcsBackend struct {
	cfg config.GCSSource
}

// fetch opens a client per download; source fetches are rare next to the
// cost of the encode that follows.
func (b *gcsBackend) fetch(ctx context.Context, p string, dst *os.File) error {
	var opts []option.ClientOption
	if b.cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(b.cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return fmt.Errorf("storage.NewClient: %w", err)
	}
	defer client.Close()

	rc, err := client.Bucket(b.cfg.Bucket).Object(p).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("open gs://%s/%s: %w", b.cfg.Bucket, p, err)
	}
	defer rc.Close()

	if _, err := io.Copy(dst, rc); err != nil {
		return fmt.Errorf("io.Copy: %w", err)
	}
	return nil
}
