// Package gcsuploader saves statement files into a Cloud Storage bucket.
package gcsuploader

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/dvloznov/agricole-sync/internal/documents"
	"github.com/dvloznov/agricole-sync/internal/logger"
	"github.com/hashicorp/go-multierror"
)

// Saver downloads statement files through the portal session and stores them under
// <Prefix>/<SubPath>/<FileName>.
type Saver struct {
	Store    ObjectStore
	Download Downloader
	Prefix   string
	Now      func() time.Time
}

var _ documents.FileSaver = (*Saver)(nil)

func NewSaver(store ObjectStore, download Downloader, prefix string) *Saver {
	return &Saver{Store: store, Download: download, Prefix: prefix, Now: time.Now}
}

// ObjectName returns where an entry is stored.
func (s *Saver) ObjectName(e documents.Entry) string {
	return path.Join(s.Prefix, e.SubPath, e.FileName)
}

// SaveFiles stores the entries that are not in the bucket yet. It stops at deadline and
// returns the per-file failures together.
func (s *Saver) SaveFiles(ctx context.Context, entries []documents.Entry, deadline time.Time) error {
	log := logger.FromContext(ctx)

	var result *multierror.Error
	saved, skipped := 0, 0
	for i, e := range entries {
		if !s.Now().Before(deadline) {
			log.Warn().
				Int("left", len(entries)-i).
				Msg("statement budget exhausted, remaining files are left for the next run")
			break
		}

		name := s.ObjectName(e)
		exists, err := s.Store.Exists(ctx, name)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("SaveFiles: %s: %w", name, err))
			continue
		}
		if exists {
			skipped++
			continue
		}

		data, err := s.Download.GetBinary(ctx, e.FileURL)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("SaveFiles: downloading %s: %w", e.FileName, err))
			continue
		}
		if err := s.Store.Put(ctx, name, data); err != nil {
			result = multierror.Append(result, fmt.Errorf("SaveFiles: %s: %w", name, err))
			continue
		}
		saved++
		log.Debug().Str("object", name).Int("bytes", len(data)).Msg("statement saved")
	}

	log.Info().Int("saved", saved).Int("skipped", skipped).Msg("statements processed")
	return result.ErrorOrNil()
}
