package crawler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/speech-scraper/internal/progress"
)

const tracerName = "github.com/JakeFAU/speech-scraper/internal/crawler"

// NoLimit disables the accepted-record cap.
const NoLimit = -1

// Config holds the settings for a scrape run.
type Config struct {
	// Delay is waited before every record fetch and before each further listing page.
	Delay time.Duration
	// FirstID is the id given to the first accepted record.
	FirstID int
	// Tracer receives a span per run and per fetch. Defaults to the global provider.
	Tracer trace.Tracer
}

// Engine runs the sequential listing/record crawl. It is not safe for
// concurrent use; one Engine serves one run at a time.
type Engine struct {
	cfg      Config
	fetcher  Fetcher
	parser   *RecordParser
	filter   *FilterSpec
	sink     RecordSink
	ledger   VisitLedger
	progress progress.Emitter
	clock    Clock
	ids      IDGenerator
	pauser   pauseController
	logger   *zap.Logger
}

// NewEngine wires the crawl dependencies. nil parser, ledger, emitter and
// logger fall back to the default markup parser, an in-memory ledger, no
// progress reporting and a no-op logger.
func NewEngine(
	cfg Config,
	fetcher Fetcher,
	parser *RecordParser,
	filter *FilterSpec,
	sink RecordSink,
	ledger VisitLedger,
	emitter progress.Emitter,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Engine {
	if cfg.FirstID <= 0 {
		cfg.FirstID = 1
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer(tracerName)
	}
	if parser == nil {
		parser = NewRecordParser(nil)
	}
	if ledger == nil {
		ledger = NewMemoryLedger()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if clock == nil {
		clock = utcClock{}
	}
	if ids == nil {
		ids = timeIDs{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:      cfg,
		fetcher:  fetcher,
		parser:   parser,
		filter:   filter,
		sink:     sink,
		ledger:   ledger,
		progress: emitter,
		clock:    clock,
		ids:      ids,
		pauser:   &timerPauseController{},
		logger:   logger,
	}
}

// runState is the mutable bookkeeping of one Scrape call.
type runState struct {
	stats   RunStats
	cursor  string
	nextID  int
	limit   int
	records []Record
}

func (s *runState) limitReached() bool {
	return s.limit >= 0 && s.stats.Accepted >= s.limit
}

// Scrape walks the listing starting at startURL and returns the records
// accepted in this run. limit caps accepted records; NoLimit (or any negative
// value) disables the cap, and 0 stops before the first record fetch.
//
// On failure the records accepted so far and the stats are returned together
// with the error; every one of them has already reached the sink.
func (e *Engine) Scrape(ctx context.Context, startURL string, limit int) ([]Record, RunStats, error) {
	if e.fetcher == nil {
		return nil, RunStats{}, errors.New("crawler: fetcher is required")
	}
	runID, err := e.ids.NewID()
	if err != nil {
		return nil, RunStats{}, fmt.Errorf("generate run id: %w", err)
	}
	if limit < 0 {
		limit = NoLimit
	}
	state := &runState{
		stats: RunStats{
			RunID:     runID,
			StartURL:  startURL,
			StartedAt: e.clock.Now(),
		},
		cursor: startURL,
		nextID: e.cfg.FirstID,
		limit:  limit,
	}
	ctx, span := e.cfg.Tracer.Start(ctx, "crawler.Scrape", trace.WithAttributes(
		attribute.String("scraper.run_id", runID),
		attribute.String("scraper.start_url", startURL),
		attribute.Int("scraper.limit", limit),
	))
	defer span.End()

	logger := e.logger.With(zap.String("run_id", runID))
	logger.Info("Scrape started",
		zap.String("start_url", startURL),
		zap.Int("limit", limit),
		zap.Duration("delay", e.cfg.Delay),
		zap.Bool("filtered", !e.filter.Empty()),
	)
	e.emit(ctx, state, progress.Event{Stage: progress.StageRunStart, URL: startURL})

	err = e.run(ctx, state, logger)
	state.stats.FinishedAt = e.clock.Now()
	span.SetAttributes(
		attribute.Int("scraper.pages", state.stats.Pages),
		attribute.Int("scraper.accepted", state.stats.Accepted),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "scrape aborted")
		e.emit(ctx, state, progress.Event{
			Stage: progress.StageRunError,
			URL:   state.cursor,
			Dur:   state.stats.Duration(),
			Note:  err.Error(),
		})
		logger.Error("Scrape aborted",
			zap.String("url", state.cursor),
			zap.Int("page", state.stats.Pages),
			zap.Int("accepted", state.stats.Accepted),
			zap.Error(err),
		)
		return state.records, state.stats, err
	}

	e.emit(ctx, state, progress.Event{Stage: progress.StageRunDone, Dur: state.stats.Duration()})
	logger.Info("Scrape finished",
		zap.Int("pages", state.stats.Pages),
		zap.Int("processed", state.stats.Processed),
		zap.Int("accepted", state.stats.Accepted),
		zap.Int("rejected", state.stats.Rejected),
		zap.Int("skipped", state.stats.Skipped),
		zap.String("elapsed", formatElapsed(state.stats.Duration())),
	)
	return state.records, state.stats, nil
}

func (e *Engine) run(ctx context.Context, state *runState, logger *zap.Logger) error {
	for state.cursor != "" {
		if err := ctx.Err(); err != nil {
			return err
		}
		state.stats.Pages++
		e.emit(ctx, state, progress.Event{Stage: progress.StagePageStart, URL: state.cursor})
		logger.Info("Loading listing page", zap.Int("page", state.stats.Pages), zap.String("url", state.cursor))

		page, err := e.fetch(ctx, state.cursor)
		if err != nil {
			return err
		}
		listing, err := ParseListing(page)
		if err != nil {
			return err
		}
		if len(listing.RecordLinks) == 0 {
			logger.Warn("Listing page has no record links", zap.String("url", state.cursor))
		}

		for i, link := range listing.RecordLinks {
			if state.limitReached() {
				logger.Info("Record limit reached", zap.Int("limit", state.limit))
				return nil
			}
			if err := e.handleRecord(ctx, state, link, i+1, logger); err != nil {
				return fmt.Errorf("listing page %d record %d: %w", state.stats.Pages, i+1, err)
			}
		}
		if state.limitReached() {
			logger.Info("Record limit reached", zap.Int("limit", state.limit))
			return nil
		}

		state.cursor = listing.Next
		if state.cursor != "" {
			if err := e.pauser.Pause(ctx, e.cfg.Delay); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) handleRecord(ctx context.Context, state *runState, link string, index int, logger *zap.Logger) error {
	if e.ledger.Seen(link) {
		state.stats.Skipped++
		e.emit(ctx, state, progress.Event{Stage: progress.StageRecordSkipped, URL: link, Index: index})
		logger.Debug("Skipping already scraped record", zap.String("url", link))
		return nil
	}
	if err := e.pauser.Pause(ctx, e.cfg.Delay); err != nil {
		return err
	}

	page, err := e.fetch(ctx, link)
	if err != nil {
		return err
	}
	md, body, err := e.parser.Parse(page)
	if err != nil {
		return err
	}
	state.stats.Processed++

	evt := progress.Event{URL: link, Index: index, Bytes: int64(page.ContentLength()), Dur: page.Duration}
	if !e.filter.Accepts(md) {
		if err := e.markVisited(link); err != nil {
			return err
		}
		state.stats.Rejected++
		evt.Stage = progress.StageRecordRejected
		e.emit(ctx, state, evt)
		logger.Debug("Record filtered out", zap.String("url", link), zap.String("title", md.Get(KeyTitle)))
		return nil
	}

	record := Record{
		ID:       strconv.Itoa(state.nextID),
		Metadata: md,
		Body:     body,
	}
	if e.sink != nil {
		if err := e.sink.Append(ctx, record); err != nil {
			return fmt.Errorf("persist record %s: %w", record.ID, err)
		}
	}
	// Marked only once persisted so a failed write is refetched on resume.
	if err := e.markVisited(link); err != nil {
		return err
	}
	state.nextID++
	state.stats.Accepted++
	state.records = append(state.records, record)

	evt.Stage = progress.StageRecordAccepted
	e.emit(ctx, state, evt)
	logger.Debug("Record accepted", zap.String("id", record.ID), zap.String("url", link))
	return nil
}

func (e *Engine) markVisited(link string) error {
	if err := e.ledger.Mark(link); err != nil {
		return fmt.Errorf("record visit of %s: %w", link, err)
	}
	return nil
}

func (e *Engine) fetch(ctx context.Context, url string) (Page, error) {
	ctx, span := e.cfg.Tracer.Start(ctx, "crawler.fetch", trace.WithAttributes(attribute.String("url.full", url)))
	defer span.End()

	page, err := e.fetcher.Fetch(ctx, url)
	if err == nil {
		span.SetAttributes(attribute.Int("http.response.status_code", page.StatusCode))
		return page, nil
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "fetch failed")
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return Page{}, err
	}
	return Page{}, &NetworkError{URL: url, Err: err}
}

func (e *Engine) emit(ctx context.Context, state *runState, evt progress.Event) {
	evt.RunID = state.stats.RunID
	evt.TS = e.clock.Now()
	evt.Page = state.stats.Pages
	evt.Accepted = state.stats.Accepted
	e.progress.Emit(ctx, evt)
}

func formatElapsed(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

type timeIDs struct{}

func (timeIDs) NewID() (string, error) {
	return strconv.FormatInt(time.Now().UnixNano(), 36), nil
}
