package store

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
    return 0
end
`)

// Redis implements Store using a single Redis instance. A quorum deployment
// uses one Redis instance (and one Redis store) per node; pointing several
// Redis stores at the same instance defeats the fault tolerance.
type Redis struct {
	client *redis.Client
	name   string
}

// NewRedis returns a new Redis store using the provided client. The store is
// named after the client's address.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, name: client.Options().Addr}
}

// SetIfAbsent implements Store.SetIfAbsent using SET NX PX.
func (r *Redis) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

// CompareAndDelete implements Store.CompareAndDelete using a Lua script so the
// GET and DEL execute atomically.
func (r *Redis) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	res, err := delScript.Run(ctx, r.client, []string{key}, value).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// CompareAndRenew implements Store.CompareAndRenew using a Lua script so the
// GET and PEXPIRE execute atomically.
func (r *Redis) CompareAndRenew(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	res, err := renewScript.Run(ctx, r.client, []string{key}, value, ttl.Milliseconds()).Int64()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// Name implements Store.Name.
func (r *Redis) Name() string { return r.name }

// Close implements Store.Close. Closing an already closed store is a no-op.
func (r *Redis) Close() error {
	if err := r.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return err
	}
	return nil
}
