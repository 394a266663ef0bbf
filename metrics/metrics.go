package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"sync"
)

var (
	BatchesServedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_batches_served_total",
			Help: "Count of batches handed to annotator sessions",
		},
		[]string{"round"},
	)

	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_commits_total",
			Help: "Count of per-sentence commit attempts by outcome",
		},
		[]string{"outcome"},
	)

	CommitDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ranker_commit_duration_seconds",
			Help:    "Duration of a single sentence commit against the sheet",
			Buckets: prometheus.DefBuckets,
		},
	)

	SubmitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_session_submits_total",
			Help: "Count of session submits by status",
		},
		[]string{"status"},
	)

	EventsConsumedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranker_events_consumed_total",
			Help: "Count of commit events consumed from the bus",
		},
		[]string{"round"},
	)
)

const (
	OutcomeSuccess = "success"
	RoundExhausted = "exhausted"
	SubmitDone     = "done"
	SubmitFailed   = "failed"
	SubmitRejected = "rejected"
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(BatchesServedTotal)
		prometheus.MustRegister(CommitsTotal)
		prometheus.MustRegister(CommitDuration)
		prometheus.MustRegister(SubmitsTotal)
		prometheus.MustRegister(EventsConsumedTotal)
	})
}
