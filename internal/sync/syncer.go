// Package sync merges a published deployments manifest into the local
// deployments file.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/config"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
)

// ErrNoSource is returned by Run before a manifest URL has been set.
var ErrNoSource = errors.New("no sync source configured")

// Manifest is the published structure: contract name, then network.
type Manifest struct {
	Contracts map[string]map[string]ManifestEntry `json:"contracts"`
}

// ManifestEntry is a single contract deployment entry.
type ManifestEntry struct {
	Address string `json:"address"`
}

// Result counts what one Run did.
type Result struct {
	Updated int
	Skipped int
}

// Syncer fetches the manifest and writes it into deployments.json.
type Syncer struct {
	cfg    *config.Config
	client *http.Client
	clock  clockwork.Clock
	log    *slog.Logger
}

// New creates a new Syncer. A nil clock or logger gets the real clock and a
// discarding logger.
func New(cfg *config.Config, clock clockwork.Clock, log *slog.Logger) *Syncer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Syncer{
		cfg:    cfg,
		client: &http.Client{Timeout: config.RPCTimeout},
		clock:  clock,
		log:    log,
	}
}

// SetSource sets the remote manifest URL.
func (s *Syncer) SetSource(url string) error {
	df, err := s.cfg.LoadDeployments()
	if err != nil {
		return err
	}
	df.Source = url
	return s.cfg.SaveDeployments(df)
}

// Run fetches the manifest from the configured source and records every
// entry with a valid address. Entries for the same network and name are
// replaced.
func (s *Syncer) Run(ctx context.Context) (Result, error) {
	var res Result
	df, err := s.cfg.LoadDeployments()
	if err != nil {
		return res, fmt.Errorf("loading deployments: %w", err)
	}
	if df.Source == "" {
		return res, fmt.Errorf("%w: run h2o config sync <url>", ErrNoSource)
	}

	m, err := s.fetchManifest(ctx, df.Source)
	if err != nil {
		return res, fmt.Errorf("fetching manifest: %w", err)
	}

	names := make([]string, 0, len(m.Contracts))
	for name := range m.Contracts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		networks := m.Contracts[name]
		keys := make([]string, 0, len(networks))
		for n := range networks {
			keys = append(keys, n)
		}
		sort.Strings(keys)
		for _, network := range keys {
			entry := networks[network]
			if !common.IsHexAddress(entry.Address) {
				s.log.Warn("skipping manifest entry", "name", name, "network", network, "address", entry.Address)
				res.Skipped++
				continue
			}
			df.Put(config.Deployment{
				Network: network,
				Name:    name,
				Address: common.HexToAddress(entry.Address).Hex(),
			})
			res.Updated++
		}
	}

	df.LastSynced = s.clock.Now().UTC().Format(time.RFC3339)
	if err := s.cfg.SaveDeployments(df); err != nil {
		return res, fmt.Errorf("saving deployments: %w", err)
	}
	s.log.Info("deployments synced", "source", df.Source, "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

func (s *Syncer) fetchManifest(ctx context.Context, url string) (*Manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
