// Package app wires configuration into a scrape run: output directory,
// fetcher, record sinks, progress reporting, exporters and artifact mirroring.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/JakeFAU/speech-scraper/internal/clock/system"
	"github.com/JakeFAU/speech-scraper/internal/config"
	"github.com/JakeFAU/speech-scraper/internal/crawler"
	"github.com/JakeFAU/speech-scraper/internal/export"
	collyfetcher "github.com/JakeFAU/speech-scraper/internal/fetcher/colly"
	"github.com/JakeFAU/speech-scraper/internal/hash/sha256"
	"github.com/JakeFAU/speech-scraper/internal/id/uuid"
	"github.com/JakeFAU/speech-scraper/internal/metrics"
	"github.com/JakeFAU/speech-scraper/internal/progress"
	"github.com/JakeFAU/speech-scraper/internal/progress/sinks"
	"github.com/JakeFAU/speech-scraper/internal/storage"
	"github.com/JakeFAU/speech-scraper/internal/storage/gcs"
	"github.com/JakeFAU/speech-scraper/internal/storage/local"
	"github.com/JakeFAU/speech-scraper/internal/storage/postgres"
)

// Artifact names inside a run directory.
const (
	ContentFile  = "content.json"
	VisitedFile  = "visited.txt"
	CSVFile      = "metadata.csv"
	XLSXFile     = "metadata.xlsx"
	CorpusFile   = "corpora.zip"
	ManifestFile = "sources.csv"
)

// Artifacts lists every file a completed run may leave behind, in mirror order.
var Artifacts = []string{
	ContentFile,
	VisitedFile,
	CSVFile,
	XLSXFile,
	CorpusFile,
	ManifestFile,
	metrics.TextfileName,
}

// Clock is the time source for run timing and directory names.
type Clock interface {
	Now() time.Time
	Local() time.Time
}

// App holds the services shared by the CLI commands for one invocation.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	exports  *metrics.Exports
	clock    Clock
	fetcher  crawler.Fetcher
	mirror   storage.BlobStore
	sinks    []crawler.RecordSink
	closers  []func()
}

// Option customizes an App.
type Option func(*App)

// WithFetcher replaces the Colly fetcher.
func WithFetcher(f crawler.Fetcher) Option {
	return func(a *App) { a.fetcher = f }
}

// WithMirror replaces the configured artifact mirror.
func WithMirror(s storage.BlobStore) Option {
	return func(a *App) { a.mirror = s }
}

// WithRecordSink adds a sink that receives every accepted record after the
// JSON artifact.
func WithRecordSink(s crawler.RecordSink) Option {
	return func(a *App) { a.sinks = append(a.sinks, s) }
}

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(a *App) { a.clock = c }
}

// New builds the App. External services named in cfg (GCS, Postgres) are
// connected here so misconfiguration fails before any page is fetched.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := metrics.NewRegistry()
	exports, err := metrics.NewExports(reg)
	if err != nil {
		return nil, err
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		exports:  exports,
		clock:    system.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.fetcher == nil {
		a.fetcher = collyfetcher.New(collyfetcher.Config{
			UserAgent:     cfg.Scraper.UserAgent,
			RespectRobots: cfg.Scraper.RespectRobots,
			Timeout:       cfg.Timeout(),
			Headers:       cfg.RequestHeaders(),
			Logger:        logger,
		})
	}
	if a.mirror == nil && cfg.Storage.GCSBucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		store, err := gcs.New(client, gcs.Config{Bucket: cfg.Storage.GCSBucket, Prefix: cfg.Storage.Prefix})
		if err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("init gcs mirror: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("Error closing GCS client", zap.Error(err))
			}
		})
		logger.Info("Mirroring artifacts to GCS", zap.String("bucket", cfg.Storage.GCSBucket))
		a.mirror = store
	}
	if cfg.DB.DSN != "" {
		store, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{DSN: cfg.DB.DSN, Table: cfg.DB.Table})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		if err := store.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		logger.Info("Mirroring records to Postgres", zap.String("table", cfg.DB.Table))
		a.sinks = append(a.sinks, store)
	}
	return a, nil
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Registry exposes the run's metric registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Close releases external clients and flushes the logger.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
	_ = a.logger.Sync()
}

// CrawlResult describes a finished (or aborted) crawl.
type CrawlResult struct {
	Dir   string
	Stats crawler.RunStats
	// Records is everything in the run directory's artifact, including
	// records carried over from earlier runs into a reused directory.
	Records []crawler.Record
}

// Crawl prepares the output directory and runs the scrape. On error the
// result still describes whatever reached the artifact.
func (a *App) Crawl(ctx context.Context) (CrawlResult, error) {
	dir, err := local.PrepareRunDir(a.cfg.Output.Root, a.cfg.Output.Override, a.clock.Local())
	if err != nil {
		return CrawlResult{}, err
	}
	result := CrawlResult{Dir: dir}
	logger := a.logger.With(zap.String("dir", dir))

	ledger, err := crawler.OpenFileLedger(filepath.Join(dir, VisitedFile))
	if err != nil {
		return result, err
	}
	artifact, err := crawler.OpenJSONArtifact(filepath.Join(dir, ContentFile), logger)
	if err != nil {
		return result, err
	}
	filter, err := a.cfg.FilterSpec()
	if err != nil {
		return result, fmt.Errorf("filters: %w", err)
	}
	promSink, err := sinks.NewPrometheusSink(a.registry)
	if err != nil {
		return result, err
	}
	emitter := progress.NewFanout(logger, sinks.NewLogSink(logger), promSink)

	sink := append(crawler.MultiSink{artifact}, a.sinks...)
	engine := crawler.NewEngine(
		crawler.Config{Delay: a.cfg.Delay(), FirstID: artifact.NextID()},
		a.fetcher,
		nil,
		filter,
		sink,
		ledger,
		emitter,
		a.clock,
		uuid.New(),
		logger,
	)

	_, stats, scrapeErr := engine.Scrape(ctx, a.cfg.Scraper.StartURL, a.cfg.Scraper.Limit)
	result.Stats = stats
	result.Records = artifact.Records()
	if scrapeErr != nil {
		return result, fmt.Errorf("scrape: %w", scrapeErr)
	}
	return result, nil
}

// ExportResult lists the URIs of the exported artifacts.
type ExportResult struct {
	Dir  string
	URIs []string
}

// Export renders records into the dataframe and corpus artifacts in dir.
func (a *App) Export(ctx context.Context, dir string, records []crawler.Record) (ExportResult, error) {
	store, err := local.New(local.Config{BaseDir: dir})
	if err != nil {
		return ExportResult{}, err
	}
	result := ExportResult{Dir: dir}

	df, err := export.ExportDataframe(records)
	a.exports.Observe("dataframe", len(df.CSV)+len(df.XLSX), err)
	if err != nil {
		return result, fmt.Errorf("export dataframe: %w", err)
	}
	corpus, err := export.NewTextExporter(sha256.New(), a.clock.Now()).Export(records)
	a.exports.Observe("text", len(corpus.Zip)+len(corpus.Manifest), err)
	if err != nil {
		return result, fmt.Errorf("export text: %w", err)
	}

	for _, out := range []struct {
		name string
		data []byte
	}{
		{CSVFile, df.CSV},
		{XLSXFile, df.XLSX},
		{CorpusFile, corpus.Zip},
		{ManifestFile, corpus.Manifest},
	} {
		uri, err := store.PutObject(ctx, out.name, storage.ContentType(out.name), bytes.NewReader(out.data))
		if err != nil {
			return result, fmt.Errorf("write %s: %w", out.name, err)
		}
		result.URIs = append(result.URIs, uri)
	}
	a.logger.Info("Export finished",
		zap.String("dir", dir),
		zap.Int("records", len(records)),
		zap.Strings("artifacts", result.URIs),
	)
	return result, nil
}

// ExportDir reloads the JSON artifact in dir and exports it.
func (a *App) ExportDir(ctx context.Context, dir string) (ExportResult, error) {
	records, err := crawler.LoadRecords(filepath.Join(dir, ContentFile))
	if err != nil {
		return ExportResult{Dir: dir}, err
	}
	return a.Export(ctx, dir, records)
}

// Scrape crawls and then exports the run directory. A failed crawl still
// exports whatever was accepted before the failure.
func (a *App) Scrape(ctx context.Context) (CrawlResult, ExportResult, error) {
	crawl, crawlErr := a.Crawl(ctx)
	if crawl.Dir == "" {
		return crawl, ExportResult{}, crawlErr
	}
	if crawlErr != nil && len(crawl.Records) == 0 {
		return crawl, ExportResult{Dir: crawl.Dir}, crawlErr
	}
	exported, exportErr := a.Export(ctx, crawl.Dir, crawl.Records)
	return crawl, exported, errors.Join(crawlErr, exportErr)
}

// Finish writes the metrics textfile into dir when enabled and mirrors the
// run's artifacts.
func (a *App) Finish(ctx context.Context, dir string) error {
	if dir == "" {
		return nil
	}
	var errs []error
	if a.cfg.Output.Metrics {
		if err := metrics.WriteTextfile(filepath.Join(dir, metrics.TextfileName), a.registry); err != nil {
			errs = append(errs, err)
		}
	}
	if a.mirror != nil {
		prefix := path.Base(filepath.ToSlash(dir))
		if _, err := storage.Mirror(ctx, a.mirror, prefix, dir, Artifacts, a.logger); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
