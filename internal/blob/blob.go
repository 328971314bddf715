// Package blob persists uploaded images and returns the public URL they are
// served from. Posts and profiles store only that URL.
package blob

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Store uploads one object and returns its public URL.
type Store interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error)
}

// imageExtensions maps the accepted upload content types to file extensions.
var imageExtensions = map[string]string{
	"image/jpeg":    ".jpg",
	"image/png":     ".png",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
}

// IsImage reports whether contentType is one of the accepted image types.
// Parameters such as "; charset=utf-8" are ignored.
func IsImage(contentType string) bool {
	_, ok := imageExtensions[baseType(contentType)]
	return ok
}

// ObjectName builds a collision-free object name under prefix, keeping an
// extension that matches the content type, e.g. "covers/6f1c…e2.png".
func ObjectName(prefix, contentType string) string {
	return path.Join(prefix, uuid.NewString()+imageExtensions[baseType(contentType)])
}

func baseType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}
