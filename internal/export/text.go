package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"regexp"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/JakeFAU/speech-scraper/internal/crawler"
)

var safeID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ManifestHeader is the first row of the manifest CSV.
var ManifestHeader = []string{"filename", "id", "url", "sha256"}

// Hasher digests a corpus entry for the manifest.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Corpus is the text view of a record list.
type Corpus struct {
	Zip      []byte
	Manifest []byte
}

// TextExporter writes each record body to its own ZIP entry.
type TextExporter struct {
	hasher   Hasher
	modified time.Time
}

// NewTextExporter returns an exporter using hasher for manifest digests.
// Entries carry modified as their timestamp so output is reproducible.
func NewTextExporter(hasher Hasher, modified time.Time) *TextExporter {
	return &TextExporter{hasher: hasher, modified: modified}
}

// EntryName returns the corpus file name for a record id.
func EntryName(id string) string {
	return "speech" + id + ".txt"
}

// Export renders the corpus. Record ids must be filename-safe and unique.
func (e *TextExporter) Export(records []crawler.Record) (Corpus, error) {
	if len(records) == 0 {
		return Corpus{}, ErrEmptyInput
	}
	if e.hasher == nil {
		return Corpus{}, fmt.Errorf("export: hasher is required")
	}

	var (
		zipBuf bytes.Buffer
		manBuf bytes.Buffer
	)
	zw := zip.NewWriter(&zipBuf)
	mw := csv.NewWriter(&manBuf)
	if err := mw.Write(ManifestHeader); err != nil {
		return Corpus{}, fmt.Errorf("write manifest header: %w", err)
	}

	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		if !safeID.MatchString(r.ID) {
			return Corpus{}, fmt.Errorf("export: record id %q is not filename-safe", r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return Corpus{}, fmt.Errorf("export: duplicate record id %q", r.ID)
		}
		seen[r.ID] = struct{}{}

		name := EntryName(r.ID)
		body := []byte(r.Body)
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: e.modified,
		})
		if err != nil {
			return Corpus{}, fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := w.Write(body); err != nil {
			return Corpus{}, fmt.Errorf("write entry %s: %w", name, err)
		}
		digest, err := e.hasher.Hash(body)
		if err != nil {
			return Corpus{}, fmt.Errorf("hash entry %s: %w", name, err)
		}
		if err := mw.Write([]string{name, r.ID, r.SourceURL(), digest}); err != nil {
			return Corpus{}, fmt.Errorf("write manifest row %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return Corpus{}, fmt.Errorf("finalize zip: %w", err)
	}
	mw.Flush()
	if err := mw.Error(); err != nil {
		return Corpus{}, fmt.Errorf("finalize manifest: %w", err)
	}
	return Corpus{Zip: zipBuf.Bytes(), Manifest: manBuf.Bytes()}, nil
}
