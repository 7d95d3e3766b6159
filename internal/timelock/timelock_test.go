package timelock_test

import (
	"errors"
	"testing"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

// ---------------------------------------------------------------------------
// Slot
// ---------------------------------------------------------------------------

func TestSlot_ProposeWaitUpgrade(t *testing.T) {
	clk := clockwork.NewFakeClock()
	s := timelock.NewSlot(state.New(), "router-v1", nil)

	require.NoError(t, s.Propose(clk.Now(), "router-v2"))
	c, ok := s.Candidate()
	require.True(t, ok)
	assert.Equal(t, "router-v2", c)

	_, err := s.Upgrade(clk.Now(), 7*day)
	require.ErrorIs(t, err, timelock.ErrDelayNotElapsed)

	clk.Advance(7*day - time.Second)
	_, err = s.Upgrade(clk.Now(), 7*day)
	require.ErrorIs(t, err, timelock.ErrDelayNotElapsed)

	clk.Advance(time.Second + time.Second)
	prev, err := s.Upgrade(clk.Now(), 7*day)
	require.NoError(t, err)
	assert.Equal(t, "router-v1", prev)
	assert.Equal(t, "router-v2", s.Current())

	_, ok = s.Candidate()
	assert.False(t, ok)
	_, err = s.Upgrade(clk.Now(), 7*day)
	assert.ErrorIs(t, err, timelock.ErrNoCandidate)
}

func TestSlot_UpgradeWithoutProposal(t *testing.T) {
	s := timelock.NewSlot(state.New(), 1, nil)
	_, err := s.Upgrade(time.Now(), 0)
	assert.ErrorIs(t, err, timelock.ErrNoCandidate)
}

func TestSlot_InvalidCandidate(t *testing.T) {
	errWrongToken := errors.New("wrong token")
	s := timelock.NewSlot(state.New(), 0, func(c int) error {
		if c < 0 {
			return errWrongToken
		}
		return nil
	})

	err := s.Propose(time.Now(), -1)
	require.ErrorIs(t, err, timelock.ErrInvalidCandidate)
	assert.ErrorIs(t, err, errWrongToken)
	_, ok := s.Candidate()
	assert.False(t, ok)
}

func TestSlot_ReproposeRestartsWait(t *testing.T) {
	clk := clockwork.NewFakeClock()
	s := timelock.NewSlot(state.New(), 0, nil)
	require.NoError(t, s.Propose(clk.Now(), 1))
	clk.Advance(day)
	require.NoError(t, s.Propose(clk.Now(), 2))
	clk.Advance(day / 2)

	_, err := s.Upgrade(clk.Now(), day)
	assert.ErrorIs(t, err, timelock.ErrDelayNotElapsed)
}

func TestSlot_RevertedWithJournal(t *testing.T) {
	j := state.New()
	s := timelock.NewSlot(j, "a", nil)
	err := j.Atomic(func() error {
		require.NoError(t, s.Propose(time.Now(), "b"))
		return errors.New("abort")
	})
	require.Error(t, err)
	_, ok := s.Candidate()
	assert.False(t, ok)
}

// ---------------------------------------------------------------------------
// Delay
// ---------------------------------------------------------------------------

func TestDelay_IncreaseOnly(t *testing.T) {
	d, err := timelock.NewDelay(state.New(), 7*day, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, d.IncreaseTo(6*day), timelock.ErrDelayMustIncrease)
	assert.ErrorIs(t, d.IncreaseTo(7*day), timelock.ErrDelayMustIncrease)
	require.NoError(t, d.IncreaseTo(8*day))
	assert.Equal(t, 8*day, d.Value())
}

func TestDelay_ProposeUpgrade(t *testing.T) {
	clk := clockwork.NewFakeClock()
	d, err := timelock.NewDelay(state.New(), day, time.Hour)
	require.NoError(t, err)

	err = d.Propose(clk.Now(), time.Minute)
	require.ErrorIs(t, err, timelock.ErrDelayTooSmall)

	require.NoError(t, d.Propose(clk.Now(), 2*time.Hour))
	assert.Equal(t, 2*time.Hour, d.Proposed())

	assert.ErrorIs(t, d.Upgrade(clk.Now()), timelock.ErrDelayNotElapsed)
	clk.Advance(day + time.Second)
	require.NoError(t, d.Upgrade(clk.Now()))

	assert.Equal(t, 2*time.Hour, d.Value())
	assert.Zero(t, d.Proposed())
	assert.ErrorIs(t, d.Upgrade(clk.Now()), timelock.ErrNoCandidate)
}

func TestNewDelay_BelowMinimum(t *testing.T) {
	_, err := timelock.NewDelay(state.New(), time.Minute, time.Hour)
	assert.ErrorIs(t, err, timelock.ErrDelayTooSmall)
}

// ---------------------------------------------------------------------------
// Vault
// ---------------------------------------------------------------------------

func TestVault_Release(t *testing.T) {
	var (
		vaultAddr   = common.HexToAddress("0x00000000000000000000000000000000000000f1")
		beneficiary = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	)
	clk := clockwork.NewFakeClock()
	tok := ledger.NewBasic(ledger.New(state.New(), common.HexToAddress("0x7070"), ledger.Meta{Symbol: "H2O", Decimals: 18}))

	v, err := timelock.NewVault(vaultAddr, tok, beneficiary, clk.Now().Add(90*day), clk, nil)
	require.NoError(t, err)
	assert.Equal(t, beneficiary, v.Beneficiary())

	_, err = v.Release()
	require.ErrorIs(t, err, timelock.ErrNotReleasable)

	require.NoError(t, tok.Mint(vaultAddr, uint256.NewInt(5_000)))
	clk.Advance(90*day - time.Second)
	_, err = v.Release()
	require.ErrorIs(t, err, timelock.ErrNotReleasable)
	assert.Equal(t, uint64(5_000), v.Balance().Uint64())

	clk.Advance(time.Second)
	got, err := v.Release()
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000), got.Uint64())
	assert.Equal(t, uint64(5_000), tok.BalanceOf(beneficiary).Uint64())
	assert.True(t, v.Balance().IsZero())

	_, err = v.Release()
	assert.ErrorIs(t, err, timelock.ErrNothingToRelease)
}

func TestNewVault_Validation(t *testing.T) {
	clk := clockwork.NewFakeClock()
	tok := ledger.NewBasic(ledger.New(state.New(), common.HexToAddress("0x7070"), ledger.Meta{Symbol: "H2O"}))

	_, err := timelock.NewVault(common.HexToAddress("0xf1"), tok, common.Address{}, clk.Now().Add(day), clk, nil)
	assert.Error(t, err)
	_, err = timelock.NewVault(common.HexToAddress("0xf1"), tok, common.HexToAddress("0xb0"), clk.Now(), clk, nil)
	assert.Error(t, err)
}
