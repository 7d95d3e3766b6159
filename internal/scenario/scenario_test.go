package scenario_test

import (
	"context"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/airdrop"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScenario(t *testing.T, seed int64, trades int) *scenario.Scenario {
	t.Helper()
	s, err := scenario.New(scenario.Config{Holders: 5, Trades: trades, Seed: seed})
	require.NoError(t, err)
	return s
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

func TestNew_DeploysAndOpensAirdrop(t *testing.T) {
	s := newScenario(t, 1, 0)
	h := s.Hydro()

	assert.Equal(t, airdrop.Started, h.Airdrop.Phase())
	assert.True(t, h.Airdrop.TotalPending().Eq(h.Split.Airdrop))
	assert.Len(t, h.Airdrop.Recipients(), 6, "five holders plus the deployer's remainder")

	onePercent := ledger.Units(10_000_000, 18)
	for _, holder := range s.Holders() {
		e := h.Airdrop.Entry(holder)
		assert.True(t, onePercent.Eq(&e.Allocated))
		assert.True(t, ledger.Units(10, 18).Eq(s.World().WETH().BalanceOf(holder)))
	}
	assert.Equal(t, uint64(0), h.Token.DistributorGas())
	assert.Equal(t, scenario.Multisig, h.Migrator.Owner())
}

func TestNew_RejectsNegativeCounts(t *testing.T) {
	_, err := scenario.New(scenario.Config{Holders: -1})
	assert.Error(t, err)
}

func TestClaimAirdrops(t *testing.T) {
	s := newScenario(t, 1, 0)
	assert.Equal(t, 5, s.ClaimAirdrops())

	h := s.Hydro().Token
	for _, holder := range s.Holders() {
		assert.True(t, ledger.Units(10_000_000, 18).Eq(h.BalanceOf(holder)))
		assert.True(t, h.Distributor().ShareOf(holder).Eq(h.BalanceOf(holder)))
	}
	assert.True(t, ledger.Units(50_000_000, 18).Eq(s.Report().AirdropClaimed))

	// second round finds nothing left to claim
	assert.Equal(t, 0, s.ClaimAirdrops())
}

// ---------------------------------------------------------------------------
// Trading
// ---------------------------------------------------------------------------

func TestTrade_AdvancesClock(t *testing.T) {
	s := newScenario(t, 3, 0)
	start := s.Clock().Now()
	tr := s.Trade()
	assert.Equal(t, scenario.DefaultTradeInterval, s.Clock().Now().Sub(start))
	assert.Equal(t, scenario.Buy, tr.Kind, "holders without a bag can only buy")
	require.NoError(t, tr.Err)
	assert.False(t, tr.Out.IsZero())
}

func TestRun_SameSeedSameTrades(t *testing.T) {
	a := newScenario(t, 42, 40)
	b := newScenario(t, 42, 40)
	ra, err := a.Run(context.Background())
	require.NoError(t, err)
	rb, err := b.Run(context.Background())
	require.NoError(t, err)

	ta, tb := a.Trades(), b.Trades()
	require.Len(t, ta, 40)
	require.Len(t, tb, 40)
	for i := range ta {
		assert.Equal(t, ta[i].Holder, tb[i].Holder)
		assert.Equal(t, ta[i].Kind, tb[i].Kind)
		assert.True(t, ta[i].In.Eq(tb[i].In))
	}
	assert.Equal(t, ra.Buys, rb.Buys)
	assert.Equal(t, 40, ra.Buys+ra.Sells+ra.Reverted)
}

func TestRun_KeepsBooksBalanced(t *testing.T) {
	s := newScenario(t, 7, 120)
	r, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 120, r.Trades)

	h := s.Hydro().Token
	require.NoError(t, h.CheckConservation())
	assert.False(t, r.TotalDistributed.Gt(r.TotalDividends))
	assert.False(t, r.PoolTokens.IsZero())
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newScenario(t, 1, 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r, err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, r.Trades)
}

// ---------------------------------------------------------------------------
// Distribution
// ---------------------------------------------------------------------------

func TestStep_DrainsPendingPayouts(t *testing.T) {
	s := newScenario(t, 9, 150)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	for range 100 {
		if !s.Pending() {
			break
		}
		res, err := s.Step(100_000)
		require.NoError(t, err)
		assert.Positive(t, res.Iterations)
	}
	assert.False(t, s.Pending())

	r := s.Report()
	assert.Equal(t, r.DividendHolders, s.Hydro().Token.Distributor().HolderCount())
}

// ---------------------------------------------------------------------------
// Team allocations and upgrade
// ---------------------------------------------------------------------------

func TestNew_LocksTeamShare(t *testing.T) {
	s := newScenario(t, 1, 0)
	h := s.Hydro()
	onePercent := ledger.Units(10_000_000, 18)

	require.Len(t, h.Vaults, 4)
	for _, v := range h.Vaults {
		assert.Equal(t, scenario.Multisig, v.Beneficiary())
		assert.True(t, onePercent.Eq(v.Balance()))
		assert.True(t, v.ReleaseTime().After(scenario.Genesis))
	}
	assert.True(t, onePercent.Eq(h.Token.BalanceOf(scenario.Partner)))
}

func TestUpgradeToV2(t *testing.T) {
	s := newScenario(t, 5, 0)
	require.Equal(t, 5, s.ClaimAirdrops())

	r, err := s.UpgradeToV2()
	require.NoError(t, err)
	assert.Equal(t, 5, r.Migrated)
	assert.Zero(t, r.Failed)
	assert.True(t, ledger.Units(50_000_000, 18).Eq(r.Swapped))
	assert.Equal(t, 5, r.Sells)
	assert.Zero(t, r.Reverted)

	old, v2 := s.Hydro().Token, s.V2().Token
	for _, holder := range s.Holders() {
		assert.True(t, old.BalanceOf(holder).IsZero())
		assert.True(t, ledger.Units(9_000_000, 18).Eq(v2.BalanceOf(holder)), "a tenth was sold")
	}
	assert.True(t, v2.BalanceOf(v2.Address()).IsZero(), "fees converted")
	assert.False(t, r.TotalDividends.IsZero())
	assert.Positive(t, r.Payouts)
	assert.False(t, r.TotalDistributed.Gt(r.TotalDividends))
	require.NoError(t, v2.CheckConservation())
	require.NoError(t, old.CheckConservation())

	_, err = s.UpgradeToV2()
	assert.Error(t, err)
}
