package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/speech-scraper/internal/progress"
)

// PrometheusSink exports scrape progress via Prometheus collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runRuntime    prometheus.Histogram

	listingPages  prometheus.Counter
	records       *prometheus.CounterVec
	fetchBytes    prometheus.Counter
	fetchDuration prometheus.Histogram
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_runs_started_total",
			Help: "Total scrape runs that have started.",
		}),
		runsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_runs_completed_total",
			Help: "Total scrape runs completed partitioned by result.",
		}, []string{"result"}),
		runRuntime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_run_runtime_seconds",
			Help:    "Wall time per completed scrape run.",
			Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 14400},
		}),
		listingPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_listing_pages_total",
			Help: "Listing pages fetched.",
		}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_records_total",
			Help: "Record links handled partitioned by outcome.",
		}, []string{"outcome"}),
		fetchBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_record_bytes_total",
			Help: "Bytes downloaded for record pages.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scraper_record_fetch_duration_seconds",
			Help:    "Record page fetch latency.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.runsCompleted,
		s.runRuntime,
		s.listingPages,
		s.records,
		s.fetchBytes,
		s.fetchDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors from a single event.
func (s *PrometheusSink) Consume(_ context.Context, evt progress.Event) error {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
	case progress.StageRunDone:
		s.runsCompleted.WithLabelValues("success").Inc()
		s.observeRuntime(evt)
	case progress.StageRunError:
		s.runsCompleted.WithLabelValues("error").Inc()
		s.observeRuntime(evt)
	case progress.StagePageStart:
		s.listingPages.Inc()
	case progress.StageRecordAccepted:
		s.observeRecord(evt, "accepted")
	case progress.StageRecordRejected:
		s.observeRecord(evt, "rejected")
	case progress.StageRecordSkipped:
		s.records.WithLabelValues("skipped").Inc()
	}
	return nil
}

func (s *PrometheusSink) observeRuntime(evt progress.Event) {
	if evt.Dur > 0 {
		s.runRuntime.Observe(evt.Dur.Seconds())
	}
}

func (s *PrometheusSink) observeRecord(evt progress.Event, outcome string) {
	s.records.WithLabelValues(outcome).Inc()
	if evt.Bytes > 0 {
		s.fetchBytes.Add(float64(evt.Bytes))
	}
	if evt.Dur > 0 {
		s.fetchDuration.Observe(evt.Dur.Seconds())
	}
}
