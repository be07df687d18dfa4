// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// An ingestion invocation is a short-lived batch job, so instead of exposing
// a scrape endpoint the collected series are pushed to a Pushgateway when the
// process flushes metrics at exit. The Pushgateway "job" grouping key is the
// pipeline job name; the ingestion run is a regular label.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"bronze/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	runID      string // optional "instance" grouping key
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec // ingest_step_total
	stepDuration  *prometheus.SummaryVec // ingest_step_duration_seconds
	recordCounter *prometheus.CounterVec // ingest_records_total
	batchCounter  *prometheus.CounterVec // ingest_batches_total
	fileCounter   *prometheus.CounterVec // ingest_files_total
}

// NewBackend constructs a Prometheus Pushgateway backend. jobName is the
// Pushgateway job; an empty name becomes "bronze_ingest".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "bronze_ingest"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Ingestion step executions by run, step and status.",
		}, []string{"run", "step", "status"}),
		stepDuration: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Name:       metrics.StepDurationSeconds,
			Help:       "Duration of ingestion steps in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}, []string{"run", "step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Rows by run and kind (inserted, malformed).",
		}, []string{"run", "kind"}),
		batchCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.BatchesTotal,
			Help: "Batches flushed to the sink by run.",
		}, []string{"run"}),
		fileCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.FilesTotal,
			Help: "Input files by run and outcome (ingested, skipped).",
		}, []string{"run", "outcome"}),
	}

	for name, c := range map[string]prometheus.Collector{
		"step counter":   b.stepCounter,
		"step summary":   b.stepDuration,
		"record counter": b.recordCounter,
		"batch counter":  b.batchCounter,
		"file counter":   b.fileCounter,
	} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", name, err)
		}
	}
	return b, nil
}

// WithRunID groups pushed series under instance=id so concurrent invocations
// of the same job do not overwrite each other.
func (b *Backend) WithRunID(id string) *Backend {
	b.runID = id
	return b
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	var c *prometheus.CounterVec
	var values []string
	switch name {
	case metrics.StepTotal:
		c, values = b.stepCounter, []string{labels["run"], labels["step"], labels["status"]}
	case metrics.RecordsTotal:
		c, values = b.recordCounter, []string{labels["run"], labels["kind"]}
	case metrics.BatchesTotal:
		c, values = b.batchCounter, []string{labels["run"]}
	case metrics.FilesTotal:
		c, values = b.fileCounter, []string{labels["run"], labels["outcome"]}
	default:
		return
	}
	if c == nil {
		return
	}
	c.WithLabelValues(values...).Add(delta)
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["run"], labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	p := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg)
	if b.runID != "" {
		p = p.Grouping("instance", b.runID)
	}
	if err := p.Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
