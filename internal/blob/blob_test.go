package blob

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsImage(t *testing.T) {
	tests := []struct {
		contentType string
		want        bool
	}{
		{"image/png", true},
		{"image/jpeg", true},
		{"IMAGE/WEBP", true},
		{"image/svg+xml; charset=utf-8", true},
		{"image/tiff", false},
		{"application/pdf", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			assert.Equal(t, tt.want, IsImage(tt.contentType))
		})
	}
}

func TestObjectName(t *testing.T) {
	a := ObjectName("covers", "image/png")
	b := ObjectName("covers", "image/png")

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "covers/"))
	assert.Equal(t, ".png", filepath.Ext(a))
	assert.Equal(t, ".jpg", filepath.Ext(ObjectName("profiles", "image/jpeg")))
}

func TestLocalStore_Upload(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStore(dir, "http://localhost:5000/uploads/")
	require.NoError(t, err)

	url, err := s.Upload(context.Background(), "covers/a.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:5000/uploads/covers/a.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "covers", "a.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	leftovers, err := filepath.Glob(filepath.Join(dir, "covers", ".upload-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestLocalStore_RejectsEscapingNames(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/uploads")
	require.NoError(t, err)

	for _, name := range []string{"../evil.png", "/etc/passwd", "."} {
		_, err := s.Upload(context.Background(), name, "image/png", strings.NewReader("x"))
		assert.Error(t, err, name)
	}
}

func TestLocalStore_CancelledContext(t *testing.T) {
	s, err := NewLocalStore(t.TempDir(), "http://x/uploads")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Upload(ctx, "a.png", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
