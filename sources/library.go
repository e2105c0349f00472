package sources

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// libraryBackend reads media from a local directory, such as a mounted
// share of previously uploaded clips.
type libraryBackend struct {
	dir string
}

func (b *libraryBackend) fetch(ctx context.Context, p string, dst *os.File) error {
	rel := filepath.FromSlash(p)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("path %q is not inside the library", p)
	}

	// os.Root refuses symlinks that lead outside the library directory
	root, err := os.OpenRoot(b.dir)
	if err != nil {
		return fmt.Errorf("open library %s: %w", b.dir, err)
	}
	defer root.Close()

	src, err := root.Open(rel)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}

	if _, err := io.Copy(dst, readerWithContext{ctx, src}); err != nil {
		return fmt.Errorf("failed to copy %s: %w", p, err)
	}
	return nil
}

// readerWithContext stops a copy once ctx is done.
type readerWithContext struct {
	ctx context.Context
	r   io.Reader
}

func (r readerWithContext) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
