// Package presets provides canned wiring for common quorum lock deployments.
package presets

import (
	"context"
	"errors"
	"fmt"

	redis "github.com/redis/go-redis/v9"

	"github.com/mirkobrombin/go-quorlock/v1/lock"
	"github.com/mirkobrombin/go-quorlock/v1/store"
)

// ErrInsufficientStores is returned when fewer than a quorum of the configured
// Redis addresses respond at construction time.
var ErrInsufficientStores = errors.New("quorlock: insufficient reachable stores for quorum")

// RedisOptions configures the connections to the independent Redis instances.
// Each address must point at a distinct instance; the quorum guarantee is void
// when several addresses resolve to the same node.
type RedisOptions struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// NewRedis creates a Coordinator over one Redis store per address. Every
// address is dialed and pinged; construction fails unless at least a quorum of
// instances is reachable, since a coordinator that starts below quorum can
// never grant a lock. Unreachable instances still join the store set and
// simply produce non-votes until they recover.
func NewRedis(ctx context.Context, opts RedisOptions, lockOpts ...lock.Option) (*lock.Coordinator, error) {
	if len(opts.Addrs) == 0 {
		return nil, lock.ErrNoStores
	}

	stores := make([]store.Store, 0, len(opts.Addrs))
	reachable := 0
	var firstErr error
	for _, addr := range opts.Addrs {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Username: opts.Username,
			Password: opts.Password,
			DB:       opts.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			reachable++
		}
		stores = append(stores, store.NewRedis(client))
	}

	quorum := len(stores)/2 + 1
	if reachable < quorum {
		for _, s := range stores {
			_ = s.Close()
		}
		if firstErr != nil {
			return nil, fmt.Errorf("%w: %d reachable, %d required: %v",
				ErrInsufficientStores, reachable, quorum, firstErr)
		}
		return nil, fmt.Errorf("%w: %d reachable, %d required", ErrInsufficientStores, reachable, quorum)
	}

	return lock.New(stores, lockOpts...)
}

// NewStandalone creates a Coordinator over n in-memory stores. Useful for
// tests and single-process deployments; it provides mutual exclusion between
// goroutines but no fault tolerance beyond the quorum math itself.
func NewStandalone(n int, lockOpts ...lock.Option) (*lock.Coordinator, error) {
	stores := make([]store.Store, 0, n)
	for i := 0; i < n; i++ {
		stores = append(stores, store.NewInMemory(fmt.Sprintf("memory-%d", i)))
	}
	return lock.New(stores, lockOpts...)
}
