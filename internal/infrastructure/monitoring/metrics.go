package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type CirculationMetrics struct {
	OperationsTotal    *prometheus.CounterVec
	FinesAssessedTotal prometheus.Counter
	SweptTotal         *prometheus.CounterVec
}

type MessagingMetrics struct {
	PublishedTotal *prometheus.CounterVec
	ConsumedTotal  *prometheus.CounterVec
}

var (
	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_engine_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Circulation = CirculationMetrics{
		OperationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_engine_circulation_operations_total",
				Help: "Circulation operations by outcome. Rule violations are labelled with their code.",
			},
			[]string{"operation", "outcome"},
		),
		FinesAssessedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_engine_fines_assessed_total",
				Help: "Number of fine records created or increased.",
			},
		),
		SweptTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_engine_sweep_transitions_total",
				Help: "Rows transitioned by the overdue and expiry sweeps.",
			},
			[]string{"sweep"},
		),
	}

	Messaging = MessagingMetrics{
		PublishedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_engine_events_published_total",
				Help: "Domain events published to the broker.",
			},
			[]string{"routing_key", "status"},
		),
		ConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_engine_events_consumed_total",
				Help: "Broker deliveries handled by the notification consumer.",
			},
			[]string{"routing_key", "status"},
		),
	}
)

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordCirculation(operation, outcome string) {
	Circulation.OperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func RecordFineAssessed() {
	Circulation.FinesAssessedTotal.Inc()
}

func RecordSwept(sweep string, n int) {
	if n <= 0 {
		return
	}
	Circulation.SweptTotal.WithLabelValues(sweep).Add(float64(n))
}

func RecordEventPublished(routingKey, status string) {
	Messaging.PublishedTotal.WithLabelValues(routingKey, status).Inc()
}

func RecordEventConsumed(routingKey, status string) {
	Messaging.ConsumedTotal.WithLabelValues(routingKey, status).Inc()
}
