package gcsuploader

import (
	"context"

	"github.com/dvloznov/agricole-sync/internal/gcs"
)

// Re-export interface from shared package
type ObjectStore = gcs.ObjectStore

// Downloader fetches a statement file. *portal.Client satisfies it.
type Downloader interface {
	GetBinary(ctx context.Context, rawURL string) ([]byte, error)
}
