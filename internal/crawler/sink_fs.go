package crawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

// JSONArtifact persists accepted records as a JSON array on disk. Every Append
// rewrites the file through a temp file and rename, so a crash leaves either
// the previous or the new array, never a torn one.
type JSONArtifact struct {
	path    string
	records []Record
	logger  *zap.Logger
}

// OpenJSONArtifact loads the artifact at path, or starts an empty one.
func OpenJSONArtifact(path string, logger *zap.Logger) (*JSONArtifact, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create artifact dir for %s: %w", path, err)
	}
	records, err := LoadRecords(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		records = nil
	case err != nil:
		return nil, err
	}
	if len(records) > 0 {
		logger.Info("Resuming from existing artifact",
			zap.String("path", path),
			zap.Int("records", len(records)),
		)
	}
	return &JSONArtifact{path: path, records: records, logger: logger}, nil
}

// Append implements RecordSink.
func (a *JSONArtifact) Append(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	next := append(a.records[:len(a.records):len(a.records)], record)
	if err := writeRecords(a.path, next); err != nil {
		return err
	}
	a.records = next
	a.logger.Debug("Record persisted", zap.String("id", record.ID), zap.String("path", a.path))
	return nil
}

// Records returns a copy of everything in the artifact.
func (a *JSONArtifact) Records() []Record {
	return append([]Record(nil), a.records...)
}

// Path returns the artifact location.
func (a *JSONArtifact) Path() string {
	return a.path
}

// NextID returns the id following the highest numeric id in the artifact.
func (a *JSONArtifact) NextID() int {
	highest := 0
	for _, r := range a.records {
		if n, err := strconv.Atoi(r.ID); err == nil && n > highest {
			highest = n
		}
	}
	return highest + 1
}

// LoadRecords reads a JSON artifact and checks every record's metadata.
// A missing file returns an error satisfying errors.Is(err, os.ErrNotExist).
func LoadRecords(path string) ([]Record, error) {
	// #nosec G304 -- artifact path is derived from the configured output directory.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	if len(data) == 0 {
		return []Record{}, nil
	}
	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	for i, r := range records {
		if err := r.Metadata.Validate(); err != nil {
			return nil, fmt.Errorf("artifact %s record %d (id %q): %w", path, i, r.ID, err)
		}
	}
	return records, nil
}

func writeRecords(path string, records []Record) error {
	payload, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal records: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp artifact for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write artifact %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close artifact %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace artifact %s: %w", path, err)
	}
	return nil
}
