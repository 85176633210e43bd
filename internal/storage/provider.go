// Package storage defines where run artifacts are copied once a run ends.
// Implementations live in the local, memory and gcs subpackages.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"go.uber.org/zap"
)

// BlobStore saves one named object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// ContentType guesses the media type of a run artifact from its extension.
func ContentType(name string) string {
	switch filepath.Ext(name) {
	case ".json":
		return "application/json"
	case ".csv":
		return "text/csv; charset=utf-8"
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".zip":
		return "application/zip"
	case ".txt", ".prom":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// Mirror copies the named files from dir into store under prefix and returns
// their URIs in order. Missing files are skipped.
func Mirror(ctx context.Context, store BlobStore, prefix, dir string, names []string, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	uris := make([]string, 0, len(names))
	for _, name := range names {
		// #nosec G304 -- names are fixed artifact names inside the run directory.
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			logger.Debug("Artifact not present, skipping mirror", zap.String("name", name))
			continue
		}
		if err != nil {
			return uris, fmt.Errorf("read artifact %s: %w", name, err)
		}
		key := path.Join(prefix, name)
		uri, err := store.PutObject(ctx, key, ContentType(name), bytes.NewReader(data))
		if err != nil {
			return uris, fmt.Errorf("mirror %s: %w", name, err)
		}
		logger.Info("Artifact mirrored", zap.String("name", name), zap.String("uri", uri))
		uris = append(uris, uri)
	}
	return uris, nil
}
