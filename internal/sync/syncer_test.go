package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

var syncedAt = time.Date(2021, time.November, 3, 12, 0, 0, 0, time.UTC)

func testSyncer(t *testing.T) (*Syncer, *config.Config) {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return New(cfg, clockwork.NewFakeClockAt(syncedAt), nil), cfg
}

func manifestServer(t *testing.T, m Manifest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(m) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv
}

// ---------------------------------------------------------------------------
// fetchManifest
// ---------------------------------------------------------------------------

func TestFetchManifestSuccess(t *testing.T) {
	srv := manifestServer(t, Manifest{Contracts: map[string]map[string]ManifestEntry{
		"h2o": {"moonriver": {Address: "0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F"}},
	}})
	s, _ := testSyncer(t)

	m, err := s.fetchManifest(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F", m.Contracts["h2o"]["moonriver"].Address)
}

func TestFetchManifestErrors(t *testing.T) {
	s, _ := testSyncer(t)

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json")) //nolint:errcheck
	}))
	t.Cleanup(bad.Close)
	_, err := s.fetchManifest(context.Background(), bad.URL)
	assert.ErrorContains(t, err, "parsing manifest")

	missing := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(missing.Close)
	_, err = s.fetchManifest(context.Background(), missing.URL)
	assert.ErrorContains(t, err, "HTTP 404")

	_, err = s.fetchManifest(context.Background(), "http://127.0.0.1:1/none")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunNoSourceConfigured(t *testing.T) {
	s, _ := testSyncer(t)
	_, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestRunMergesDeployments(t *testing.T) {
	srv := manifestServer(t, Manifest{Contracts: map[string]map[string]ManifestEntry{
		"h2o": {
			"moonriver":      {Address: "0xdc151bc48a5f77288cde9ddbff2e32e6bcf4791f"},
			"moonbase-alpha": {Address: "0x93E737101480C503d31cbd1998Aa839AA4f0cB5C"},
		},
		"migrator": {"moonriver": {Address: "not-an-address"}},
	}})
	s, cfg := testSyncer(t)

	// a stale local entry is replaced
	df, err := cfg.LoadDeployments()
	require.NoError(t, err)
	df.Put(config.Deployment{Network: "moonriver", Name: "h2o", Address: "0x01"})
	require.NoError(t, cfg.SaveDeployments(df))

	require.NoError(t, s.SetSource(srv.URL))
	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.Skipped)

	df, err = cfg.LoadDeployments()
	require.NoError(t, err)
	assert.Equal(t, srv.URL, df.Source)
	assert.Equal(t, "2021-11-03T12:00:00Z", df.LastSynced)
	assert.Len(t, df.Deployments, 2)

	d, ok := df.Find("moonriver", "h2o")
	require.True(t, ok)
	want := common.HexToAddress("0xdc151bc48a5f77288cde9ddbff2e32e6bcf4791f").Hex()
	assert.Equal(t, want, d.Address, "addresses are stored checksummed")

	_, ok = df.Find("moonriver", "migrator")
	assert.False(t, ok)
}

func TestRunEmptyManifestStillStamps(t *testing.T) {
	srv := manifestServer(t, Manifest{})
	s, cfg := testSyncer(t)
	require.NoError(t, s.SetSource(srv.URL))

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Updated)

	df, err := cfg.LoadDeployments()
	require.NoError(t, err)
	assert.NotEmpty(t, df.LastSynced)
}
