package token_test

import (
	"testing"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/timelock"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pairAddr = common.HexToAddress("0x9a17000000000000000000000000000000000000")

type stubPlugin struct {
	address common.Address
	token   *token.V2
	tokenAt common.Address
	kind    token.Kind

	swapBacks int
	retired   int
	processed int
	shares    map[common.Address]*uint256.Int
	swapErr   error
}

func newStub(t *token.V2, addr string, kind token.Kind) *stubPlugin {
	return &stubPlugin{
		address: common.HexToAddress(addr),
		token:   t,
		tokenAt: t.Address(),
		kind:    kind,
		shares:  make(map[common.Address]*uint256.Int),
	}
}

func (s *stubPlugin) Address() common.Address { return s.address }
func (s *stubPlugin) Token() common.Address   { return s.tokenAt }
func (s *stubPlugin) Kind() token.Kind        { return s.kind }

func (s *stubPlugin) SwapBack(common.Address) error {
	s.swapBacks++
	return s.swapErr
}

func (s *stubPlugin) Retire(caller common.Address) error {
	s.retired++
	bal := s.token.BalanceOf(s.address)
	if bal.IsZero() {
		return nil
	}
	return s.token.Transfer(s.address, caller, bal)
}

func (s *stubPlugin) SetShare(_, holder common.Address, amount *uint256.Int) error {
	s.shares[holder] = amount.Clone()
	return nil
}

func (s *stubPlugin) Process(common.Address, uint64, bool) (dividend.Result, error) {
	s.processed++
	return dividend.Result{Paid: new(uint256.Int)}, nil
}

type v2Fixture struct {
	clock *clockwork.FakeClock
	v2    *token.V2
	liq   *stubPlugin
	dist  *stubPlugin
}

func newV2Fixture(t *testing.T) *v2Fixture {
	t.Helper()
	clock := clockwork.NewFakeClock()
	v2, err := token.NewV2(token.V2Config{
		Config: token.Config{
			Journal: state.New(),
			Clock:   clock,
			Tokens:  ledger.NewRegistry(),
			Address: tokenAddr,
			Owner:   owner,
		},
		Pair: pairAddr,
	})
	require.NoError(t, err)
	return &v2Fixture{
		clock: clock,
		v2:    v2,
		liq:   newStub(v2, "0x1100", token.KindLiquidity),
		dist:  newStub(v2, "0x2200", token.KindDistributor),
	}
}

func (f *v2Fixture) setup(t *testing.T) {
	t.Helper()
	require.NoError(t, f.v2.SetupPlugin(owner, token.KindLiquidity, f.liq))
	require.NoError(t, f.v2.SetupPlugin(owner, token.KindDistributor, f.dist))
}

// ---------------------------------------------------------------------------
// Plugin slots
// ---------------------------------------------------------------------------

func TestV2_SetupPlugin(t *testing.T) {
	f := newV2Fixture(t)
	assert.Nil(t, f.v2.Plugin(token.KindLiquidity))

	assert.ErrorIs(t, f.v2.SetupPlugin(alice, token.KindLiquidity, f.liq), access.ErrNotOwner)
	assert.ErrorIs(t, f.v2.SetupPlugin(owner, token.KindDistributor, f.liq), token.ErrInvalidPlugin)

	f.setup(t)
	assert.Equal(t, f.liq, f.v2.Plugin(token.KindLiquidity))
	assert.True(t, f.v2.Flags(f.liq.Address()).Has(fees.AllExempt))
	assert.ErrorIs(t, f.v2.SetupPlugin(owner, token.KindLiquidity, f.liq), token.ErrPluginAlreadySetup)
}

func TestV2_ProposePlugin_Invalid(t *testing.T) {
	f := newV2Fixture(t)
	f.setup(t)

	foreign := newStub(f.v2, "0x3300", token.KindLiquidity)
	foreign.tokenAt = bob
	err := f.v2.ProposePlugin(owner, token.KindLiquidity, foreign)
	assert.ErrorIs(t, err, timelock.ErrInvalidCandidate)
	assert.ErrorIs(t, err, token.ErrInvalidPlugin)

	wrongKind := newStub(f.v2, "0x3301", token.KindDistributor)
	assert.ErrorIs(t, f.v2.ProposePlugin(owner, token.KindLiquidity, wrongKind), token.ErrInvalidPlugin)

	_, pending := f.v2.PluginCandidate(token.KindLiquidity)
	assert.False(t, pending)
}

func TestV2_UpgradePlugin(t *testing.T) {
	f := newV2Fixture(t)
	f.setup(t)
	require.NoError(t, f.v2.Transfer(owner, f.liq.Address(), units(1_000)))

	assert.ErrorIs(t, f.v2.UpgradePlugin(owner, token.KindLiquidity), timelock.ErrNoCandidate)

	next := newStub(f.v2, "0x3300", token.KindLiquidity)
	require.NoError(t, f.v2.ProposePlugin(owner, token.KindLiquidity, next))
	assert.ErrorIs(t, f.v2.UpgradePlugin(owner, token.KindLiquidity), timelock.ErrDelayNotElapsed)

	f.clock.Advance(token.DefaultApprovalDelay + time.Second)
	assert.ErrorIs(t, f.v2.UpgradePlugin(alice, token.KindLiquidity), access.ErrNotOwner)
	require.NoError(t, f.v2.UpgradePlugin(owner, token.KindLiquidity))

	assert.Equal(t, next, f.v2.Plugin(token.KindLiquidity))
	assert.Equal(t, 1, f.liq.retired)
	assert.True(t, f.v2.BalanceOf(f.liq.Address()).IsZero())
	assert.True(t, units(1_000).Eq(f.v2.BalanceOf(tokenAddr)), "retired plugin returned its tokens")
	_, pending := f.v2.PluginCandidate(token.KindLiquidity)
	assert.False(t, pending)
	assert.ErrorIs(t, f.v2.UpgradePlugin(owner, token.KindLiquidity), timelock.ErrNoCandidate)
}

func TestV2_ApprovalDelay(t *testing.T) {
	f := newV2Fixture(t)
	assert.Equal(t, token.DefaultApprovalDelay, f.v2.ApprovalDelay())

	assert.ErrorIs(t, f.v2.ProposeApprovalDelay(owner, 10*time.Second), timelock.ErrDelayTooSmall)
	require.NoError(t, f.v2.ProposeApprovalDelay(owner, 5*24*time.Hour))
	assert.Equal(t, 5*24*time.Hour, f.v2.ProposedApprovalDelay())

	assert.ErrorIs(t, f.v2.UpgradeApprovalDelay(owner), timelock.ErrDelayNotElapsed)
	f.clock.Advance(token.DefaultApprovalDelay + time.Second)
	require.NoError(t, f.v2.UpgradeApprovalDelay(owner))
	assert.Equal(t, 5*24*time.Hour, f.v2.ApprovalDelay())
	assert.Zero(t, f.v2.ProposedApprovalDelay())
}

// ---------------------------------------------------------------------------
// Fees and swap-back
// ---------------------------------------------------------------------------

func TestV2_TransfersCollectFees(t *testing.T) {
	f := newV2Fixture(t)
	f.setup(t)
	require.NoError(t, f.v2.Transfer(owner, alice, units(10_000)))
	require.NoError(t, f.v2.Transfer(alice, bob, units(10_000)))

	assert.True(t, units(9_500).Eq(f.v2.BalanceOf(bob)))
	assert.True(t, units(500).Eq(f.v2.BalanceOf(tokenAddr)))
	assert.Zero(t, f.liq.swapBacks, "transfers never swap back")
	assert.True(t, units(9_500).Eq(f.dist.shares[bob]))
	assert.True(t, f.dist.shares[alice].IsZero())

	require.NoError(t, f.v2.Transfer(bob, pairAddr, units(1_000)))
	assert.True(t, units(900).Eq(f.v2.BalanceOf(pairAddr)))
}

func TestV2_SwapBackAll(t *testing.T) {
	f := newV2Fixture(t)
	assert.ErrorIs(t, f.v2.SwapBackAll(owner), token.ErrPluginNotSet)
	f.setup(t)
	require.NoError(t, f.v2.Transfer(owner, tokenAddr, units(1_000)))

	require.NoError(t, f.v2.SwapBackAll(owner))
	assert.True(t, f.v2.BalanceOf(tokenAddr).IsZero())
	assert.True(t, units(200).Eq(f.v2.BalanceOf(f.liq.Address())))
	assert.True(t, units(800).Eq(f.v2.BalanceOf(f.dist.Address())))
	assert.Equal(t, 1, f.liq.swapBacks)
	assert.Equal(t, 1, f.dist.swapBacks)
	require.NoError(t, f.v2.CheckConservation())
}

func TestV2_SwapBackAll_PluginFailureReverts(t *testing.T) {
	f := newV2Fixture(t)
	f.setup(t)
	require.NoError(t, f.v2.Transfer(owner, tokenAddr, units(1_000)))
	f.dist.swapErr = assert.AnError

	assert.ErrorIs(t, f.v2.SwapBackAll(owner), assert.AnError)
	assert.True(t, units(1_000).Eq(f.v2.BalanceOf(tokenAddr)))
	assert.True(t, f.v2.BalanceOf(f.liq.Address()).IsZero())
}

func TestV2_ConfigureDividendHolders(t *testing.T) {
	f := newV2Fixture(t)
	assert.ErrorIs(t, f.v2.ConfigureDividendHolders(owner, []common.Address{alice}, true), token.ErrPluginNotSet)
	f.setup(t)
	require.NoError(t, f.v2.Transfer(owner, alice, units(100)))

	require.NoError(t, f.v2.ConfigureDividendHolders(owner, []common.Address{alice}, false))
	assert.True(t, f.v2.Flags(alice).Has(fees.DividendExempt))
	assert.True(t, f.dist.shares[alice].IsZero())

	require.NoError(t, f.v2.ConfigureDividendHolders(owner, []common.Address{alice}, true))
	assert.True(t, units(100).Eq(f.dist.shares[alice]))
	assert.ErrorIs(t, f.v2.ConfigureDividendHolders(owner, []common.Address{pairAddr}, true), token.ErrCannotExempt)
}

func TestV2_Process_ResetNeedsOwner(t *testing.T) {
	f := newV2Fixture(t)
	_, err := f.v2.Process(alice, 100_000, false)
	assert.ErrorIs(t, err, token.ErrPluginNotSet)
	f.setup(t)

	_, err = f.v2.Process(alice, 100_000, true)
	assert.ErrorIs(t, err, access.ErrNotOwner)
	assert.Zero(t, f.dist.processed)

	_, err = f.v2.Process(alice, 100_000, false)
	require.NoError(t, err, "anyone may continue a pass")
	_, err = f.v2.Process(owner, 100_000, true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.dist.processed)
}
