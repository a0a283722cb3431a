package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
)

var (
	offensesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_offenses_total",
			Help: "Total number of classified offenses",
		},
		[]string{"type"},
	)

	escalationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_escalations_total",
			Help: "Total number of escalation outcomes applied",
		},
		[]string{"outcome"},
	)

	sweeperPurgedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_sweeper_purged_records_total",
			Help: "Total number of expired warning records purged",
		},
	)

	persistenceFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_ledger_persistence_failures_total",
			Help: "Total number of failed ledger snapshot writes",
		},
	)

	updateProcessingDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_update_processing_duration_seconds",
			Help:    "Time spent processing transport updates",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
)

func Init(addr string) {
	prometheus.MustRegister(
		offensesTotal,
		escalationsTotal,
		sweeperPurgedTotal,
		persistenceFailuresTotal,
		updateProcessingDuration,
	)

	tp := trace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.WithError(err).Error("metrics server failed")
		}
	}()
}

func RecordOffense(offenseType string) {
	offensesTotal.WithLabelValues(offenseType).Inc()
}

func RecordEscalation(outcome string) {
	escalationsTotal.WithLabelValues(outcome).Inc()
}

func RecordPurged(count int) {
	sweeperPurgedTotal.Add(float64(count))
}

func RecordPersistenceFailure() {
	persistenceFailuresTotal.Inc()
}

// StartUpdateProcessing returns a closure that records the elapsed
// processing time under the given status label.
func StartUpdateProcessing() func(status string) {
	timer := prometheus.NewTimer(nil)
	return func(status string) {
		updateProcessingDuration.WithLabelValues(status).Observe(timer.ObserveDuration().Seconds())
	}
}
