package gcs

import (
	"context"
)

// ObjectStore provides the object storage operations used to keep statement files.
// This interface enables mocking of the bucket in tests.
type ObjectStore interface {
	// Exists reports whether an object is already stored under name.
	Exists(ctx context.Context, name string) (bool, error)

	// Put stores data under name, replacing any previous object.
	Put(ctx context.Context, name string, data []byte) error
}
