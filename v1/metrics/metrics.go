package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AcquireCounter tracks successful lock acquisitions.
	AcquireCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_acquire_total",
		Help: "Total number of successful lock acquisitions",
	})
	// AcquireFailedCounter tracks acquisitions that failed after all retries.
	AcquireFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_acquire_failed_total",
		Help: "Total number of lock acquisitions that failed",
	})
	// AttemptFailedCounter tracks individual attempts that missed quorum.
	AttemptFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_attempt_failed_total",
		Help: "Total number of acquisition attempts that missed quorum",
	})
	// ReleaseCounter tracks lock releases.
	ReleaseCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_release_total",
		Help: "Total number of lock releases",
	})
	// ExtendCounter tracks successful lock extensions.
	ExtendCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_extend_total",
		Help: "Total number of successful lock extensions",
	})
	// ExtendFailedCounter tracks extensions that missed quorum.
	ExtendFailedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_extend_failed_total",
		Help: "Total number of lock extensions that failed",
	})
	// StoreErrorCounter tracks isolated per-store failures.
	StoreErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "quorlock_store_errors_total",
		Help: "Total number of isolated backing store errors",
	})
)

// NewRegistry creates a new Prometheus registry.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// RegisterCoreMetrics registers quorlock core metrics on the provided registry.
func RegisterCoreMetrics(reg prometheus.Registerer) {
	reg.MustRegister(
		AcquireCounter,
		AcquireFailedCounter,
		AttemptFailedCounter,
		ReleaseCounter,
		ExtendCounter,
		ExtendFailedCounter,
		StoreErrorCounter,
	)
}
