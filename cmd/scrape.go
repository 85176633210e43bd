// Package cmd defines the speechscraper CLI commands.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/speech-scraper/internal/app"
)

func newScrapeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scrape",
		Short: "Crawl the archive and export every artifact",
		Long: `Crawls from the start URL, writes accepted records to content.json, then
exports metadata.csv, metadata.xlsx, corpora.zip and sources.csv into the same
run directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a Runner) error {
				crawl, exported, runErr := a.Scrape(cmd.Context())
				logCrawl(a.Logger(), crawl)
				if len(exported.URIs) > 0 {
					a.Logger().Info("Artifacts exported", zap.Strings("uris", exported.URIs))
				}
				return errors.Join(wrap("scrape", runErr), a.Finish(cmd.Context(), crawl.Dir))
			})
		},
	}
}

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Crawl the archive without exporting",
		Long: `Crawls from the start URL and appends accepted records to content.json.
Run "export" against the run directory afterwards to produce the dataframe and
corpus artifacts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a Runner) error {
				crawl, runErr := a.Crawl(cmd.Context())
				logCrawl(a.Logger(), crawl)
				return errors.Join(wrap("crawl", runErr), a.Finish(cmd.Context(), crawl.Dir))
			})
		},
	}
}

func newExportCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an existing run directory",
		Long:  `Reads content.json from a run directory and rewrites its dataframe and corpus artifacts.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a Runner) error {
				if dir == "" {
					return errors.New(`required flag "dir" not set`)
				}
				exported, runErr := a.ExportDir(cmd.Context(), dir)
				if runErr != nil {
					return wrap("export", runErr)
				}
				a.Logger().Info("Artifacts exported", zap.Strings("uris", exported.URIs))
				return a.Finish(cmd.Context(), dir)
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "run directory containing content.json (required)")
	return cmd
}

func logCrawl(logger *zap.Logger, crawl app.CrawlResult) {
	if crawl.Dir == "" {
		return
	}
	logger.Info("Crawl command finished",
		zap.String("dir", crawl.Dir),
		zap.Int("accepted", crawl.Stats.Accepted),
		zap.Int("rejected", crawl.Stats.Rejected),
		zap.Int("skipped", crawl.Stats.Skipped),
		zap.Int("records_total", len(crawl.Records)),
	)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}
