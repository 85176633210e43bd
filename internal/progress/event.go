// Package progress defines the events emitted while a scrape run advances.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart       Stage = "RUN_START"
	StagePageStart      Stage = "PAGE_START"
	StageRecordAccepted Stage = "RECORD_ACCEPTED"
	StageRecordRejected Stage = "RECORD_REJECTED"
	StageRecordSkipped  Stage = "RECORD_SKIPPED"
	StageRunDone        Stage = "RUN_DONE"
	StageRunError       Stage = "RUN_ERROR"
)

// Event captures a single step of scrape progress.
type Event struct {
	// RunID identifies the scrape invocation.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// URL is the listing or record page the event refers to.
	URL string
	// Page is the 1-based listing page number.
	Page int
	// Index is the 1-based position of the record link on its listing page.
	Index int
	// Accepted is the running count of accepted records.
	Accepted int
	// Bytes carries the size of the fetched record page.
	Bytes int64
	// Dur captures fetch latency for record events and wall time for run completion.
	Dur time.Duration
	// Note lets emitters attach low-volume context (e.g. error text).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == "" {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StagePageStart:
		if e.Page <= 0 {
			return errors.New("page start requires page number")
		}
	case StageRecordAccepted, StageRecordRejected, StageRecordSkipped:
		if e.URL == "" {
			return errors.New("record events require url")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
