package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mirkobrombin/go-quorlock/v1/lock"
	"github.com/mirkobrombin/go-quorlock/v1/presets"
)

var (
	concurrency = flag.Int("c", 50, "Number of concurrent clients")
	duration    = flag.Duration("t", 10*time.Second, "Benchmark duration")
	ttl         = flag.Duration("ttl", time.Second, "Lock TTL")
	stores      = flag.Int("s", 3, "Number of in-memory stores")
	redisAddrs  = flag.String("redis", "", "Comma-separated Redis addresses (overrides -s)")
	resources   = flag.Int("r", 16, "Number of distinct resources to contend on")
)

func main() {
	flag.Parse()
	ctx := context.Background()

	var (
		c   *lock.Coordinator
		err error
	)
	opts := []lock.Option{lock.WithRetries(1)}
	if *redisAddrs != "" {
		addrs := strings.Split(*redisAddrs, ",")
		log.Printf("Benchmarking against %d Redis stores", len(addrs))
		c, err = presets.NewRedis(ctx, presets.RedisOptions{Addrs: addrs}, opts...)
	} else {
		log.Printf("Benchmarking against %d in-memory stores", *stores)
		c, err = presets.NewStandalone(*stores, opts...)
	}
	if err != nil {
		log.Fatalf("Setup failed: %v", err)
	}
	defer c.Close()

	log.Printf("Starting benchmark: %d clients, %d resources, %v", *concurrency, *resources, *duration)

	var acquired, contended, failed int64

	runCtx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	start := time.Now()
	g, gctx := errgroup.WithContext(runCtx)
	for i := 0; i < *concurrency; i++ {
		worker := i
		g.Go(func() error {
			resource := fmt.Sprintf("bench:%d", worker%*resources)
			for gctx.Err() == nil {
				token, err := c.Acquire(gctx, resource, *ttl)
				switch {
				case err == nil:
					atomic.AddInt64(&acquired, 1)
					_ = c.Release(gctx, resource, token)
				case errors.Is(err, lock.ErrTooManyRetries):
					atomic.AddInt64(&contended, 1)
				case gctx.Err() != nil:
					return nil
				default:
					atomic.AddInt64(&failed, 1)
				}
			}
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)

	total := acquired + contended + failed
	log.Printf("Finished in %v", elapsed)
	log.Printf("Attempts:    %d (%.0f/s)", total, float64(total)/elapsed.Seconds())
	log.Printf("Acquired:    %d", acquired)
	log.Printf("Contended:   %d", contended)
	log.Printf("Failed:      %d", failed)
}
