package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/sakif/blog-platform/internal/apperror"
	"github.com/sakif/blog-platform/internal/service"
)

const (
	// maxFormBody leaves room for the text fields around one or two images.
	maxFormBody = 2*service.MaxUploadBytes + 1<<20
	// maxFormMemory is kept in memory; larger parts spill to temp files.
	maxFormMemory = 8 << 20
)

// parseForm accepts multipart and urlencoded bodies.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)

	err := r.ParseMultipartForm(maxFormMemory)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperror.ValidationFailed("file", "request body is too large")
		}
		return apperror.ValidationFailed("body", "invalid form data")
	}
	return nil
}

// cleanupForm removes temp files of a parsed multipart form.
func cleanupForm(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

// formValue returns a pointer to the field value when the field was sent.
func formValue(r *http.Request, field string) *string {
	if vals, ok := r.PostForm[field]; ok && len(vals) > 0 {
		v := vals[0]
		return &v
	}
	return nil
}

// formFile returns the uploaded file of field, or nil when none was sent.
// The caller closes the returned file after the service call.
func formFile(r *http.Request, field string) (*service.Upload, io.Closer, error) {
	if r.MultipartForm == nil {
		return nil, nil, nil
	}
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, apperror.ValidationFailed(field, "could not read uploaded file")
	}

	contentType := hdr.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = sniff(f)
	}
	return &service.Upload{Reader: f, ContentType: contentType, Size: hdr.Size}, f, nil
}

// sniff detects the content type from the first 512 bytes and rewinds.
func sniff(f multipart.File) string {
	buf := make([]byte, 512)
	n, _ := io.ReadFull(f, buf)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "application/octet-stream"
	}
	return http.DetectContentType(buf[:n])
}

// closeAll closes every non-nil closer.
func closeAll(closers ...io.Closer) {
	for _, c := range closers {
		if c != nil {
			_ = c.Close()
		}
	}
}
