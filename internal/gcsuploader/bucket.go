package gcsuploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
)

// Bucket is the Cloud Storage implementation of ObjectStore.
type Bucket struct {
	client *storage.Client
	handle *storage.BucketHandle
}

var _ ObjectStore = (*Bucket)(nil)

// NewBucket opens a storage client for bucketName.
// It assumes Application Default Credentials are configured (gcloud auth application-default login).
func NewBucket(ctx context.Context, bucketName string) (*Bucket, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &Bucket{client: client, handle: client.Bucket(bucketName)}, nil
}

// Close closes the storage client.
func (b *Bucket) Close() error {
	return b.client.Close()
}

func (b *Bucket) Exists(ctx context.Context, name string) (bool, error) {
	_, err := b.handle.Object(name).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat object %s: %w", name, err)
	}
	return true, nil
}

func (b *Bucket) Put(ctx context.Context, name string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := b.handle.Object(name).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return fmt.Errorf("copy file to GCS writer: %w", err)
	}

	// Close to finalize the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize upload: %w", err)
	}
	return nil
}
