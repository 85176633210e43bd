package crawler

import (
	"context"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata. Implementations
// return a *NetworkError for transport failures and non-success statuses.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// RecordSink receives each accepted record as soon as it is accepted.
type RecordSink interface {
	Append(ctx context.Context, record Record) error
}

// VisitLedger remembers record URLs already fetched into an output directory.
type VisitLedger interface {
	Seen(url string) bool
	Mark(url string) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// MultiSink forwards each record to every sink in order and stops at the
// first failure.
type MultiSink []RecordSink

// Append implements RecordSink.
func (m MultiSink) Append(ctx context.Context, record Record) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Append(ctx, record); err != nil {
			return err
		}
	}
	return nil
}
