package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes objects below a directory on disk. The server exposes that
// directory at /uploads, and publicBase points there.
type LocalStore struct {
	dir        string
	publicBase string
}

func NewLocalStore(dir, publicBase string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("blob: creating upload dir %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, publicBase: strings.TrimSuffix(publicBase, "/")}, nil
}

// Dir is the directory served at /uploads.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Upload writes r to a temporary file and renames it into place, so readers
// never observe a partially written object.
func (s *LocalStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == "." || strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("blob: invalid object name %q", name)
	}
	dst := filepath.Join(s.dir, clean)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("blob: creating %s: %w", filepath.Dir(dst), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("blob: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err := io.Copy(tmp, readerWithContext(ctx, r)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("blob: writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("blob: closing %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("blob: storing %s: %w", name, err)
	}

	return s.publicBase + "/" + filepath.ToSlash(clean), nil
}

// readerWithContext stops a copy once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
