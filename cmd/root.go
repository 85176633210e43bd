package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/speech-scraper/internal/app"
	"github.com/JakeFAU/speech-scraper/internal/config"
	"github.com/JakeFAU/speech-scraper/internal/crawler"
	"github.com/JakeFAU/speech-scraper/internal/logging"
)

// appKeyType is the key for storing the Runner in the context.
type appKeyType string

const appKey appKeyType = "app"

// Runner is the application surface the commands drive. Tests inject a fake
// through newApp.
type Runner interface {
	Crawl(ctx context.Context) (app.CrawlResult, error)
	Scrape(ctx context.Context) (app.CrawlResult, app.ExportResult, error)
	ExportDir(ctx context.Context, dir string) (app.ExportResult, error)
	Finish(ctx context.Context, dir string) error
	Logger() *zap.Logger
	Close()
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger) (Runner, error) {
	return app.New(ctx, cfg, logger)
}

// newLogger is swapped in tests to keep output quiet.
var newLogger = logging.New

type rootOptions struct {
	configFile string
	include    []string
	exclude    []string
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "speechscraper",
		Short: "Scrapes speech transcripts and their metadata from a document archive.",
		Long: `speechscraper walks the paginated search listing of a speech archive,
extracts each record's metadata and body text, filters them, and writes the
accepted records to a run directory as JSON, CSV, XLSX, and a ZIP corpus with
a checksum manifest.`,
		SilenceUsage: true,

		// Builds the application once flags are parsed and stores it in the
		// context for subcommands.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configFile, cmd.Flags())
			if err != nil {
				return err
			}
			if err := cfg.MergeFilters(opts.include, opts.exclude); err != nil {
				return err
			}
			logger, err := newLogger(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				_ = logger.Sync()
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to a YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("start-url", config.DefaultBaseURL+"/advanced-search", "first listing page to crawl")
	flags.Float64("delay", 1, "seconds to wait before each request")
	flags.Int("limit", crawler.NoLimit, "maximum records to accept (-1 for no limit)")
	flags.Bool("override", false, "write into the fixed SpeechScraperResult directory and resume it")
	flags.String("output-root", ".", "directory that holds run directories")
	flags.StringArrayVar(&opts.include, "include", nil, "keep only records matching key=value (repeatable)")
	flags.StringArrayVar(&opts.exclude, "exclude", nil, "drop records matching key=value (repeatable)")

	cmd.AddCommand(newScrapeCmd(), newCrawlCmd(), newExportCmd())
	return cmd
}

func resolveApp(ctx context.Context) (Runner, error) {
	appInstance, ok := ctx.Value(appKey).(Runner)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// withApp runs fn against the Runner built by PersistentPreRunE and closes it
// afterwards. Cobra skips post-run hooks when RunE fails, so closing happens here.
func withApp(cmd *cobra.Command, fn func(Runner) error) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	defer appInstance.Close()
	return fn(appInstance)
}

// Execute runs the CLI until completion or until SIGINT/SIGTERM cancels it.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
