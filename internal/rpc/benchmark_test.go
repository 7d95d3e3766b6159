package rpc_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// node serves eth_blockNumber with block after delay.
func node(t *testing.T, block uint64, delay time.Duration) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(delay)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":"0x%x"}`, block)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func down(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBenchmarkPreservesOrder(t *testing.T) {
	a, b, c := node(t, 10, 0), down(t), node(t, 12, 0)
	results := rpc.Benchmark(context.Background(), []string{a.URL, b.URL, c.URL}, time.Second)
	require.Len(t, results, 3)

	assert.Equal(t, a.URL, results[0].URL)
	assert.Equal(t, uint64(10), results[0].BlockNumber)
	assert.True(t, results[0].Healthy())
	assert.False(t, results[1].Healthy())
	assert.Equal(t, uint64(12), results[2].BlockNumber)
}

func TestSelect_SkipsDeadEndpoints(t *testing.T) {
	bad, good := down(t), node(t, 100, 0)
	c, endpoints, err := rpc.Select(context.Background(), []string{bad.URL, good.URL}, rpc.AlgorithmFailover, time.Second)
	require.NoError(t, err)
	assert.Equal(t, good.URL, c.URL())
	assert.Len(t, endpoints, 2)
}

func TestSelect_PrefersFreshNode(t *testing.T) {
	lagging, fresh := node(t, 100, 0), node(t, 200, 20*time.Millisecond)
	c, _, err := rpc.Select(context.Background(), []string{lagging.URL, fresh.URL}, rpc.AlgorithmFastest, time.Second)
	require.NoError(t, err)
	assert.Equal(t, fresh.URL, c.URL())
}

func TestSelect_AllDown(t *testing.T) {
	bad := down(t)
	_, _, err := rpc.Select(context.Background(), []string{bad.URL}, rpc.AlgorithmFastest, time.Second)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
	assert.ErrorContains(t, err, bad.URL)

	_, _, err = rpc.Select(context.Background(), nil, rpc.AlgorithmFastest, time.Second)
	assert.ErrorIs(t, err, rpc.ErrNoHealthyRPC)
}
