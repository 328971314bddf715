package service

import (
	"context"
	"fmt"
	"io"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/blob"
)

// Upload is an image received from a client, not yet persisted.
type Upload struct {
	Reader      io.Reader
	ContentType string
	Size        int64
}

// check validates the content type and size of an upload bound to field.
func (u *Upload) check(field string) *apperror.FieldError {
	if !blob.IsImage(u.ContentType) {
		return &apperror.FieldError{Field: field, Message: "only image files are allowed"}
	}
	if u.Size > MaxUploadBytes {
		return &apperror.FieldError{Field: field, Message: "image must be 10 MB or smaller"}
	}
	return nil
}

// storeUpload persists u under prefix and returns its public URL.
func storeUpload(ctx context.Context, store blob.Store, prefix string, u *Upload) (string, error) {
	if store == nil {
		return "", apperror.Unavailable("image uploads are not configured")
	}
	name := blob.ObjectName(prefix, u.ContentType)
	url, err := store.Upload(ctx, name, u.ContentType, io.LimitReader(u.Reader, MaxUploadBytes+1))
	if err != nil {
		return "", fmt.Errorf("service: uploading %s: %w", name, err)
	}
	return url, nil
}
