package notify

import (
	"context"

	"github.com/mirkobrombin/go-quorlock/v1/metrics"
)

// Metrics translates lifecycle events into the core Prometheus counters.
// Register the counters with metrics.RegisterCoreMetrics before use.
type Metrics struct{}

// Notify implements Notifier.
func (Metrics) Notify(_ context.Context, ev Event) {
	switch ev.Type {
	case TypeAcquired:
		metrics.AcquireCounter.Inc()
	case TypeAttemptFailed:
		metrics.AttemptFailedCounter.Inc()
	case TypeReleased:
		metrics.ReleaseCounter.Inc()
	case TypeExtended:
		metrics.ExtendCounter.Inc()
	case TypeLockError, TypeUnlockError, TypeExtendError:
		metrics.StoreErrorCounter.Inc()
	case TypeFatalError:
		if ev.Op == "extend" {
			metrics.ExtendFailedCounter.Inc()
		} else {
			metrics.AcquireFailedCounter.Inc()
		}
	}
}
