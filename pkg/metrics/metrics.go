package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	MailsReceivedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mailsink_mails_received_total",
			Help: "Total number of mails accepted and stored (count)",
		},
	)

	MailsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_mails_rejected_total",
			Help: "Total number of SMTP transactions rejected (count)",
		},
		[]string{"reason"},
	)

	MailSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mailsink_mail_size_bytes",
			Help:    "Size of accepted raw messages in bytes",
			Buckets: []float64{512, 1024, 4096, 16384, 65536, 262144, 1048576, 10485760},
		},
	)

	IngestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsink_ingest_duration_ms",
			Help:    "Time spent reading and parsing a DATA payload in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		},
		[]string{"status"},
	)

	StoreSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mailsink_store_size",
			Help: "Number of mails currently held by the store (count)",
		},
	)

	StoreMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_store_mutations_total",
			Help: "Total number of store mutations by kind (count)",
		},
		[]string{"kind"},
	)

	NotifierSubscribers = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailsink_notifier_subscribers",
			Help: "Number of connected live-feed subscribers (count)",
		},
		[]string{"transport"},
	)

	NotifierDroppedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_notifier_dropped_total",
			Help: "Total number of subscribers dropped by the notifier (count)",
		},
		[]string{"reason"},
	)

	ForwardedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_forwarded_events_total",
			Help: "Total number of store events forwarded to external sinks (count)",
		},
		[]string{"sink", "status"},
	)

	ForwardDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailsink_forward_duration_ms",
			Help:    "Duration of publishing one event to a sink in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"sink"},
	)

	RetryAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_retry_attempts_total",
			Help: "Total number of retry attempts (count)",
		},
		[]string{"sink"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mailsink_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open) (state code)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker (count)",
		},
		[]string{"name", "state"},
	)

	CircuitBreakerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_circuit_breaker_failures_total",
			Help: "Total number of failures through circuit breaker (count)",
		},
		[]string{"name"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailsink_rate_limit_requests_total",
			Help: "Total number of requests checked against rate limit (count)",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register adds every collector to the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MailsReceivedTotal,
			MailsRejectedTotal,
			MailSizeBytes,
			IngestDuration,
			StoreSize,
			StoreMutationsTotal,
			NotifierSubscribers,
			NotifierDroppedTotal,
			ForwardedEventsTotal,
			ForwardDuration,
			RetryAttemptsTotal,
			CircuitBreakerState,
			CircuitBreakerRequests,
			CircuitBreakerFailures,
			RateLimitRequestsTotal,
		)
	})
}

func IncMailsRejected(reason string) {
	MailsRejectedTotal.WithLabelValues(reason).Inc()
}

func ObserveIngest(duration time.Duration, status string) {
	IngestDuration.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func ObserveMailSize(sizeBytes int) {
	MailSizeBytes.Observe(float64(sizeBytes))
}

func SetStoreSize(size int) {
	StoreSize.Set(float64(size))
}

func IncStoreMutation(kind string) {
	StoreMutationsTotal.WithLabelValues(kind).Inc()
}

func SetSubscribers(transport string, count int) {
	NotifierSubscribers.WithLabelValues(transport).Set(float64(count))
}

func IncSubscriberDropped(reason string) {
	NotifierDroppedTotal.WithLabelValues(reason).Inc()
}

func IncForwarded(sink, status string) {
	ForwardedEventsTotal.WithLabelValues(sink, status).Inc()
}

func ObserveForwardDuration(sink string, duration time.Duration) {
	ForwardDuration.WithLabelValues(sink).Observe(float64(duration.Milliseconds()))
}
