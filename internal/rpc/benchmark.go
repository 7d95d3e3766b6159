package rpc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/chain"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentPings bounds how many endpoints are probed at once.
const maxConcurrentPings = 8

// Benchmark pings every URL concurrently. A failed ping is recorded on its
// endpoint rather than aborting the rest. Results keep the order of urls.
func Benchmark(ctx context.Context, urls []string, timeout time.Duration) []Endpoint {
	results := make([]Endpoint, len(urls))
	var g errgroup.Group
	g.SetLimit(maxConcurrentPings)

	for i, url := range urls {
		g.Go(func() error {
			latency, block, err := chain.NewClient(url, timeout).Ping(ctx)
			results[i] = Endpoint{URL: url, Latency: latency, BlockNumber: block, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

// Select benchmarks urls and returns a client for the endpoint algo picks.
// The error lists why each endpoint was rejected.
func Select(ctx context.Context, urls []string, algo Algorithm, timeout time.Duration) (*chain.Client, []Endpoint, error) {
	if len(urls) == 0 {
		return nil, nil, ErrNoHealthyRPC
	}
	endpoints := Benchmark(ctx, urls, timeout)
	winner, err := Pick(endpoints, algo)
	if err != nil {
		errs := []error{err}
		for _, e := range endpoints {
			if e.Err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", e.URL, e.Err))
			}
		}
		return nil, endpoints, errors.Join(errs...)
	}
	return chain.NewClient(winner.URL, timeout), endpoints, nil
}
