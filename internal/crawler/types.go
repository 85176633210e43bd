package crawler

import (
	"net/http"
	"time"
)

// UnknownValue is substituted for any metadata value that is missing or
// cannot be parsed from a record page.
const UnknownValue = "unknown"

// MetadataKey names one recognized metadata field of a Record.
type MetadataKey string

// Recognized metadata keys.
const (
	KeyPerson   MetadataKey = "person"
	KeyDate     MetadataKey = "date"
	KeyState    MetadataKey = "state"
	KeyCity     MetadataKey = "city"
	KeyTitle    MetadataKey = "title"
	KeyCitation MetadataKey = "citation"
	KeyCategory MetadataKey = "category"
	KeyURL      MetadataKey = "url"
)

var metadataKeys = []MetadataKey{
	KeyPerson,
	KeyDate,
	KeyState,
	KeyCity,
	KeyTitle,
	KeyCitation,
	KeyCategory,
	KeyURL,
}

// MetadataKeys returns the recognized key set in tabular column order.
func MetadataKeys() []MetadataKey {
	return append([]MetadataKey(nil), metadataKeys...)
}

// ParseMetadataKey maps a raw string onto a recognized key.
func ParseMetadataKey(raw string) (MetadataKey, bool) {
	for _, k := range metadataKeys {
		if string(k) == raw {
			return k, true
		}
	}
	return "", false
}

// Metadata maps every recognized key to its string value.
type Metadata map[MetadataKey]string

// NewMetadata returns metadata with every recognized key set to UnknownValue.
func NewMetadata() Metadata {
	md := make(Metadata, len(metadataKeys))
	for _, k := range metadataKeys {
		md[k] = UnknownValue
	}
	return md
}

// Get returns the value stored for key, or UnknownValue when absent.
func (m Metadata) Get(key MetadataKey) string {
	if v, ok := m[key]; ok {
		return v
	}
	return UnknownValue
}

// Validate reports whether the metadata holds exactly the recognized key set.
func (m Metadata) Validate() error {
	if len(m) != len(metadataKeys) {
		return &ParseError{Element: "metadata", Reason: "unexpected key count"}
	}
	for _, k := range metadataKeys {
		if _, ok := m[k]; !ok {
			return &ParseError{Element: string(k), Reason: "missing metadata key"}
		}
	}
	return nil
}

// Clone returns an independent copy of the metadata.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is one scraped document. Records are never mutated once created.
type Record struct {
	ID       string   `json:"id"`
	Metadata Metadata `json:"metadata"`
	Body     string   `json:"body"`
}

// SourceURL returns the record page URL.
func (r Record) SourceURL() string {
	return r.Metadata.Get(KeyURL)
}

// RunStats summarizes a single scrape invocation.
type RunStats struct {
	RunID      string    `json:"run_id"`
	StartURL   string    `json:"start_url"`
	Pages      int       `json:"pages"`
	Processed  int       `json:"processed"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	Skipped    int       `json:"skipped"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns the wall time of the run.
func (s RunStats) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Page is the raw result of fetching a URL.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// ContentLength returns the number of body bytes.
func (p Page) ContentLength() int {
	return len(p.Body)
}

// BaseURL returns the URL relative links on the page resolve against.
func (p Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}
