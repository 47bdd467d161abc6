// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// This package adapts the generic metrics.Backend interface to Prometheus by:
//
//   - Using client_golang CounterVec and SummaryVec collectors.
//   - Mapping the common ingest labels (bank, kind, status) onto Prometheus
//     labels.
//   - Pushing collected metrics to a Prometheus Pushgateway instance instead of
//     exposing an HTTP scrape endpoint. Ingest runs are short-lived, so there
//     is no long-running process to scrape.
//
// The package intentionally contains all Prometheus-specific dependencies so
// that the rest of the project remains decoupled from Prometheus and can swap
// to alternative backends (e.g. Datadog, StatsD) without changes to the core
// pipeline.
package prompush

import (
	"fmt"

	"reconingest/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	// File-level metrics
	fileCounter  *prometheus.CounterVec // "ingest_files_total"
	fileDuration *prometheus.SummaryVec // "ingest_file_duration_seconds"

	// Row- and chunk-level metrics
	rowCounter   *prometheus.CounterVec // "ingest_rows_total"
	chunkCounter prometheus.Counter     // "ingest_chunks_total"
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (often the service name).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "reconingest"
	}

	reg := prometheus.NewRegistry()

	fileCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_files_total",
			Help: "Total number of ingested files, partitioned by bank, kind, and status.",
		},
		[]string{"bank", "kind", "status"},
	)
	fileDuration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "ingest_file_duration_seconds",
			Help:       "Per-file ingest duration in seconds, partitioned by bank, kind, and status.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"bank", "kind", "status"},
	)

	// ROW metrics: kind (bookings_loaded, refunds_loaded, ...).
	rowCounter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_rows_total",
			Help: "Row-level counts per bank and kind (bookings_loaded, refunds_loaded, etc.).",
		},
		[]string{"bank", "kind"},
	)

	// CHUNK metrics: simple counter (job is the grouping label via Pushgateway).
	chunkCounter := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_chunks_total",
			Help: "Total number of row chunks processed for this ingest job.",
		},
	)

	if err := reg.Register(fileCounter); err != nil {
		return nil, fmt.Errorf("prompush: register file counter: %w", err)
	}
	if err := reg.Register(fileDuration); err != nil {
		return nil, fmt.Errorf("prompush: register file summary: %w", err)
	}
	if err := reg.Register(rowCounter); err != nil {
		return nil, fmt.Errorf("prompush: register row counter: %w", err)
	}
	if err := reg.Register(chunkCounter); err != nil {
		return nil, fmt.Errorf("prompush: register chunk counter: %w", err)
	}

	return &Backend{
		gatewayURL:   gatewayURL,
		jobName:      jobName,
		reg:          reg,
		fileCounter:  fileCounter,
		fileDuration: fileDuration,
		rowCounter:   rowCounter,
		chunkCounter: chunkCounter,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case "ingest_files_total":
		if b.fileCounter == nil {
			return
		}
		b.fileCounter.WithLabelValues(labels["bank"], labels["kind"], labels["status"]).Add(delta)

	case "ingest_rows_total":
		if b.rowCounter == nil {
			return
		}
		b.rowCounter.WithLabelValues(labels["bank"], labels["kind"]).Add(delta)

	case "ingest_chunks_total":
		if b.chunkCounter == nil {
			return
		}
		b.chunkCounter.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != "ingest_file_duration_seconds" || b.fileDuration == nil {
		return
	}
	b.fileDuration.WithLabelValues(labels["bank"], labels["kind"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
