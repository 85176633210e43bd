package crawler

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// pauseController abstracts how the crawler waits between requests.
type pauseController interface {
	Pause(ctx context.Context, delay time.Duration) error
}

type timerPauseController struct{}

func (p *timerPauseController) Pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type memoryLedger struct {
	seen map[string]struct{}
}

// NewMemoryLedger returns a ledger that forgets everything when the process exits.
func NewMemoryLedger() VisitLedger {
	return &memoryLedger{seen: make(map[string]struct{})}
}

func (l *memoryLedger) Seen(url string) bool {
	_, ok := l.seen[url]
	return ok
}

func (l *memoryLedger) Mark(url string) error {
	if url == "" {
		return nil
	}
	l.seen[url] = struct{}{}
	return nil
}

// FileLedger is a VisitLedger persisted as one URL per line. New URLs are
// appended so an interrupted run keeps everything it fetched.
type FileLedger struct {
	path string
	seen map[string]struct{}
}

// OpenFileLedger loads the ledger at path, creating it when missing.
func OpenFileLedger(path string) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create ledger dir for %s: %w", path, err)
	}
	l := &FileLedger{path: path, seen: make(map[string]struct{})}
	// #nosec G304 -- ledger path is derived from the configured output directory.
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			l.seen[line] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}
	return l, nil
}

// Seen implements VisitLedger.
func (l *FileLedger) Seen(url string) bool {
	_, ok := l.seen[url]
	return ok
}

// Mark implements VisitLedger.
func (l *FileLedger) Mark(url string) error {
	if url == "" {
		return nil
	}
	if _, ok := l.seen[url]; ok {
		return nil
	}
	// #nosec G304 -- ledger path is derived from the configured output directory.
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open ledger %s: %w", l.path, err)
	}
	if _, err := fmt.Fprintln(f, url); err != nil {
		_ = f.Close()
		return fmt.Errorf("append ledger %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close ledger %s: %w", l.path, err)
	}
	l.seen[url] = struct{}{}
	return nil
}

// Len returns the number of remembered URLs.
func (l *FileLedger) Len() int {
	return len(l.seen)
}
