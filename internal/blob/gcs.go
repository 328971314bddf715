package blob

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStore writes objects to a Google Cloud Storage bucket.
type GCSStore struct {
	client     *storage.Client
	bucket     string
	publicBase string
}

// NewGCSStore creates a client from a service-account key file. An empty
// credentialsFile falls back to Application Default Credentials.
//
// publicBase is the URL prefix objects are served under; empty means
// https://storage.googleapis.com/<bucket>.
func NewGCSStore(ctx context.Context, bucket, credentialsFile, publicBase string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("blob: creating GCS client: %w", err)
	}

	if publicBase == "" {
		publicBase = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}, nil
}

// Upload streams r into the bucket. The object is only committed when the
// writer closes without error.
func (s *GCSStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	open := func(ctx context.Context) io.WriteCloser {
		w := s.client.Bucket(s.bucket).Object(name).NewWriter(ctx)
		w.ContentType = contentType
		w.CacheControl = "public, max-age=31536000, immutable"
		return w
	}
	if err := copyAndCommit(ctx, open, r); err != nil {
		return "", fmt.Errorf("blob: uploading gs://%s/%s: %w", s.bucket, name, err)
	}
	return s.publicBase + "/" + name, nil
}

// copyAndCommit copies r into a writer opened on a cancelable context. A failed
// copy cancels that context before Close, so a partial object is never
// committed.
func copyAndCommit(ctx context.Context, open func(context.Context) io.WriteCloser, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := open(ctx)
	if _, err := io.Copy(w, r); err != nil {
		cancel()
		_ = w.Close()
		return fmt.Errorf("writing: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
