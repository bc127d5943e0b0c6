package notify

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mirkobrombin/go-quorlock/v1/metrics"
)

func TestMetricsNotifierCounts(t *testing.T) {
	ctx := context.Background()
	n := Metrics{}

	before := testutil.ToFloat64(metrics.AcquireCounter)
	n.Notify(ctx, Event{Type: TypeAcquired})
	if got := testutil.ToFloat64(metrics.AcquireCounter); got != before+1 {
		t.Fatalf("acquire counter %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(metrics.StoreErrorCounter)
	n.Notify(ctx, Event{Type: TypeLockError})
	n.Notify(ctx, Event{Type: TypeUnlockError})
	n.Notify(ctx, Event{Type: TypeExtendError})
	if got := testutil.ToFloat64(metrics.StoreErrorCounter); got != before+3 {
		t.Fatalf("store error counter %v, want %v", got, before+3)
	}
}

func TestMetricsNotifierSplitsFatalByOp(t *testing.T) {
	ctx := context.Background()
	n := Metrics{}

	acquireBefore := testutil.ToFloat64(metrics.AcquireFailedCounter)
	extendBefore := testutil.ToFloat64(metrics.ExtendFailedCounter)

	n.Notify(ctx, Event{Type: TypeFatalError, Op: "acquire"})
	n.Notify(ctx, Event{Type: TypeFatalError, Op: "extend"})

	if got := testutil.ToFloat64(metrics.AcquireFailedCounter); got != acquireBefore+1 {
		t.Fatalf("acquire failed counter %v, want %v", got, acquireBefore+1)
	}
	if got := testutil.ToFloat64(metrics.ExtendFailedCounter); got != extendBefore+1 {
		t.Fatalf("extend failed counter %v, want %v", got, extendBefore+1)
	}
}
