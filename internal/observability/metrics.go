package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Question outcomes
const (
	StatusAnswered  = "answered"
	StatusExhausted = "exhausted"
	StatusAborted   = "aborted"
)

var (
	synthesisAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_synthesis_attempts_total",
			Help: "Total number of executed candidate queries by outcome.",
		},
		[]string{"outcome"},
	)
	questionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askdb_questions_total",
			Help: "Total number of questions by final status.",
		},
		[]string{"status"},
	)
	completionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_completion_latency_ms",
			Help:    "Completion service round trip latency in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		},
	)
	executionLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "askdb_execution_latency_ms",
			Help:    "Candidate query execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
	)
	indexedDocumentsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_indexed_documents_total",
			Help: "Total number of schema documents written to the store.",
		},
	)
	indexSkipsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "askdb_index_skips_total",
			Help: "Total number of DDL fragments skipped while indexing.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		synthesisAttemptsTotal,
		questionsTotal,
		completionLatencyMs,
		executionLatencyMs,
		indexedDocumentsTotal,
		indexSkipsTotal,
	)
}

func ObserveCompletion(elapsed time.Duration) {
	completionLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func ObserveExecution(succeeded bool, elapsed time.Duration) {
	outcome := "failure"
	if succeeded {
		outcome = "success"
	}
	synthesisAttemptsTotal.WithLabelValues(outcome).Inc()
	executionLatencyMs.Observe(float64(elapsed.Milliseconds()))
}

func IncrementQuestions(status string) {
	questionsTotal.WithLabelValues(status).Inc()
}

func ObserveIndexing(indexed, skipped int) {
	if indexed > 0 {
		indexedDocumentsTotal.Add(float64(indexed))
	}
	if skipped > 0 {
		indexSkipsTotal.Add(float64(skipped))
	}
}
