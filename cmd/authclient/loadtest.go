package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/authclient"
	"github.com/MrEthical07/authclient/internal/apitest"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type loadtestOptions struct {
	requests    int
	concurrency int
	redisAddr   string
	prefix      string
}

type loadtestResult struct {
	stats        latencySummary
	refreshCalls int64
	shared       uint64
	coalesced    uint64
	retries      uint64
}

func cmdLoadtest(ctx context.Context, args []string, stdout, stderr io.Writer, logger *slog.Logger) int {
	fs := newFlagSet("loadtest", stderr)
	var opts loadtestOptions
	fs.IntVar(&opts.requests, "requests", 1000, "authenticated requests to send")
	fs.IntVar(&opts.concurrency, "concurrency", 64, "number of concurrent workers")
	fs.StringVar(&opts.redisAddr, "redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	fs.StringVar(&opts.prefix, "prefix", "loadtest", "session key prefix")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if opts.requests <= 0 || opts.concurrency <= 0 {
		fmt.Fprintln(stderr, "requests and concurrency must be > 0")
		return exitUsage
	}
	if opts.redisAddr == "" {
		opts.redisAddr = os.Getenv("REDIS_ADDR")
	}

	res, err := runLoadtest(ctx, opts, stdout, logger)
	if err != nil {
		fmt.Fprintf(stderr, "loadtest failed: %v\n", err)
		return exitError
	}

	fmt.Fprintln(stdout, "---- results ----")
	res.stats.write(stdout)
	fmt.Fprintf(stdout, "refresh: network_calls=%d shared_waits=%d coalesced=%d retries=%d\n",
		res.refreshCalls, res.shared, res.coalesced, res.retries)
	if res.refreshCalls != 1 {
		fmt.Fprintf(stderr, "expected exactly one refresh call, got %d\n", res.refreshCalls)
		return exitError
	}
	return exitOK
}

// runLoadtest logs one user in against an in-process API, expires its access token
// and fires opts.requests concurrent requests that all start with the stale token.
func runLoadtest(ctx context.Context, opts loadtestOptions, stdout io.Writer, logger *slog.Logger) (loadtestResult, error) {
	var (
		cleanup func()
		rdb     redis.UniversalClient
	)
	if opts.redisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return loadtestResult{}, fmt.Errorf("start miniredis: %w", err)
		}
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{mr.Addr()},
		})
		cleanup = func() {
			_ = rdb.Close()
			mr.Close()
		}
		fmt.Fprintf(stdout, "using miniredis at %s\n", mr.Addr())
	} else {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{opts.redisAddr},
		})
		cleanup = func() { _ = rdb.Close() }
		fmt.Fprintf(stdout, "using redis at %s\n", opts.redisAddr)
	}
	defer cleanup()

	api, err := apitest.New(apitest.Options{Seed: true})
	if err != nil {
		return loadtestResult{}, err
	}
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	const (
		email    = "load@example.com"
		password = "loadtest-password"
	)
	if _, err := api.AddUser("load", email, password); err != nil {
		return loadtestResult{}, err
	}

	cfg := authclient.DefaultConfig()
	cfg.API.BaseURL = srv.URL
	cfg.Storage.Backend = authclient.StorageRedis
	cfg.Storage.KeyPrefix = opts.prefix

	client, err := authclient.New().WithConfig(cfg).WithRedis(rdb).WithLogger(logger).Build()
	if err != nil {
		return loadtestResult{}, err
	}
	defer client.Close()

	if err := client.Login(ctx, email, password); err != nil {
		return loadtestResult{}, fmt.Errorf("login: %w", err)
	}
	api.ExpireAccessTokens()

	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, opts.requests)
		mu        sync.Mutex
		gate      = make(chan struct{})
	)

	for w := 0; w < opts.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-gate
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= opts.requests {
					return
				}
				t0 := time.Now()
				_, err := client.Me(ctx)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
					logger.Debug("request failed", "error", err)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}()
	}

	start := time.Now()
	close(gate)
	wg.Wait()
	total := time.Since(start)

	m := client.Metrics()
	return loadtestResult{
		stats:        summarize(total, latencies, failures),
		refreshCalls: api.RefreshCalls(),
		shared:       m.Value(authclient.MetricRefreshShared),
		coalesced:    m.Value(authclient.MetricRefreshCoalesced),
		retries:      m.Value(authclient.MetricRequestRetry),
	}, nil
}
