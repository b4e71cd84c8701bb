package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	EventsProcessed     prometheus.Counter
	RidesCreated        prometheus.Counter
	CallbacksHandled    prometheus.Counter
	ClassifierFallbacks prometheus.Counter
	ProcessingTime      prometheus.Histogram
	ErrorsCount         *prometheus.CounterVec
}

// NewMetrics creates new prometheus metrics
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		EventsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_events_processed_total",
			Help:      "The total number of processed inbound chat events",
		}),
		RidesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rides_created_total",
			Help:      "The total number of ride creation attempts",
		}),
		CallbacksHandled: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_callbacks_total",
			Help:      "The total number of dispatch provider callbacks handled",
		}),
		ClassifierFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifier_fallbacks_total",
			Help:      "The total number of times the keyword classifier replaced the remote one",
		}),
		ProcessingTime: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_event_processing_time_seconds",
			Help:      "Time taken to process an inbound chat event",
			Buckets:   prometheus.DefBuckets,
		}),
		ErrorsCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of errors",
		}, []string{"operation"}),
	}
}
