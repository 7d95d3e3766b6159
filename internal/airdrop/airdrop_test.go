package airdrop_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/airdrop"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const day = 24 * time.Hour

var (
	owner   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice   = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob     = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol   = common.HexToAddress("0x00000000000000000000000000000000000ca201")
	dropAt  = common.HexToAddress("0xa1d0000000000000000000000000000000000000")
	tokenAt = common.HexToAddress("0x4200000000000000000000000000000000000042")
)

type fixture struct {
	clock *clockwork.FakeClock
	tok   *ledger.Basic
	ad    *airdrop.Airdrop
}

// newFixture allocates 1000 to alice and 500 to bob.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	j := state.New()
	tok := ledger.NewBasic(ledger.New(j, tokenAt, ledger.Meta{Symbol: "H2O", Decimals: 18}))
	require.NoError(t, tok.Mint(owner, uint256.NewInt(1_000_000)))
	clock := clockwork.NewFakeClock()
	ad, err := airdrop.New(airdrop.Config{
		Journal:  j,
		Clock:    clock,
		Address:  dropAt,
		Token:    tok,
		Owner:    owner,
		Duration: day,
	})
	require.NoError(t, err)
	require.NoError(t, ad.MassUpdate(owner,
		[]common.Address{alice, bob},
		[]*uint256.Int{uint256.NewInt(1000), uint256.NewInt(500)}))
	return &fixture{clock: clock, tok: tok, ad: ad}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.tok.Transfer(owner, dropAt, f.ad.TotalPending()))
	require.NoError(t, f.ad.Start(owner))
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestNotStarted(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, airdrop.NotStarted, f.ad.Phase())
	_, err := f.ad.ClaimAll(alice)
	assert.ErrorIs(t, err, airdrop.ErrNotStarted)
	_, err = f.ad.Withdraw(owner, bob)
	assert.ErrorIs(t, err, airdrop.ErrNotStarted)
}

func TestOwnerOnly(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ad.Start(bob), access.ErrNotOwner)
	_, err := f.ad.Withdraw(bob, bob)
	assert.ErrorIs(t, err, access.ErrNotOwner)
	assert.ErrorIs(t, f.ad.Update(bob, bob, uint256.NewInt(100)), access.ErrNotOwner)
}

func TestStart_RequiresExactFunding(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.ad.Start(owner), airdrop.ErrIncorrectTokenBalance)

	require.NoError(t, f.tok.Transfer(owner, dropAt, uint256.NewInt(1501)))
	assert.ErrorIs(t, f.ad.Start(owner), airdrop.ErrIncorrectTokenBalance, "over-funded")

	require.NoError(t, f.tok.Transfer(dropAt, owner, uint256.NewInt(1)))
	require.NoError(t, f.ad.Start(owner))
	assert.Equal(t, airdrop.Started, f.ad.Phase())
	assert.ErrorIs(t, f.ad.Start(owner), airdrop.ErrAlreadyStarted)
	assert.Equal(t, f.clock.Now().Add(day), f.ad.EndsAt())
}

// ---------------------------------------------------------------------------
// Claims
// ---------------------------------------------------------------------------

func TestClaimAll(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	got, err := f.ad.ClaimAll(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), got.Uint64())
	assert.Equal(t, uint64(1000), f.tok.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(500), f.ad.TotalPending().Uint64())

	_, err = f.ad.ClaimAll(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), f.tok.BalanceOf(bob).Uint64())
	assert.True(t, f.ad.TotalPending().IsZero())
}

func TestClaim_Errors(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	assert.ErrorIs(t, f.ad.Claim(bob, uint256.NewInt(501)), airdrop.ErrAmountTooLarge)
	assert.ErrorIs(t, f.ad.Claim(carol, uint256.NewInt(1)), airdrop.ErrNoAllocation)
	assert.ErrorIs(t, f.ad.Claim(bob, new(uint256.Int)), airdrop.ErrZeroAmount)

	_, err := f.ad.ClaimAll(bob)
	require.NoError(t, err)
	assert.ErrorIs(t, f.ad.Claim(bob, uint256.NewInt(1)), airdrop.ErrAlreadyClaimed)
}

func TestClaim_Partial(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.ad.Claim(alice, uint256.NewInt(400)))
	require.NoError(t, f.ad.Claim(alice, uint256.NewInt(600)))
	e := f.ad.Entry(alice)
	assert.True(t, e.Allocated.Eq(&e.Claimed))
	assert.True(t, e.Remaining().IsZero())
}

func TestClaim_AfterEnd(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	f.clock.Advance(day)
	assert.Equal(t, airdrop.Ended, f.ad.Phase())
	assert.ErrorIs(t, f.ad.Claim(alice, uint256.NewInt(1)), airdrop.ErrEnded)
}

// ---------------------------------------------------------------------------
// Withdraw
// ---------------------------------------------------------------------------

func TestWithdraw(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	_, err := f.ad.ClaimAll(bob)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.ad.Withdraw(owner, carol)
	assert.ErrorIs(t, err, airdrop.ErrNotEnded)

	f.clock.Advance(day)
	swept, err := f.ad.Withdraw(owner, carol)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), swept.Uint64())
	assert.Equal(t, uint64(1000), f.tok.BalanceOf(carol).Uint64())
	assert.True(t, f.tok.BalanceOf(dropAt).IsZero())
}

// ---------------------------------------------------------------------------
// Update
// ---------------------------------------------------------------------------

func TestUpdate_AfterStartNeedsFunding(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	err := f.ad.Update(owner, carol, uint256.NewInt(100_000_000))
	assert.ErrorIs(t, err, airdrop.ErrIncorrectTokenBalance)
	entry := f.ad.Entry(carol)
	assert.True(t, entry.Allocated.IsZero(), "failed update is rolled back")
	assert.Equal(t, uint64(1500), f.ad.TotalPending().Uint64())
}

func TestUpdate_Decrease(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.ad.Update(owner, bob, uint256.NewInt(1)))
	assert.Equal(t, uint64(1500-499), f.ad.TotalPending().Uint64())
}

func TestUpdate_BelowClaimed(t *testing.T) {
	f := newFixture(t)
	f.start(t)
	require.NoError(t, f.ad.Claim(bob, uint256.NewInt(250)))
	assert.ErrorIs(t, f.ad.Update(owner, bob, uint256.NewInt(1)), airdrop.ErrAmountBelowClaimed)
}

func TestUpdate_AfterPartialClaim(t *testing.T) {
	tests := []struct {
		name    string
		amount  uint64
		fund    uint64
		want    uint64
		wantErr error
	}{
		{name: "increase funded", amount: 501, fund: 1, want: 1500 - 250 + 1},
		{name: "increase unfunded", amount: 501, want: 1500 - 250, wantErr: airdrop.ErrIncorrectTokenBalance},
		{name: "decrease", amount: 499, want: 1500 - 250 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.start(t)
			require.NoError(t, f.ad.Claim(bob, uint256.NewInt(250)))
			if tt.fund > 0 {
				require.NoError(t, f.tok.Transfer(owner, dropAt, uint256.NewInt(tt.fund)))
			}
			err := f.ad.Update(owner, bob, uint256.NewInt(tt.amount))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, f.ad.TotalPending().Uint64())
		})
	}
}

func TestMassUpdate_LengthMismatch(t *testing.T) {
	f := newFixture(t)
	err := f.ad.MassUpdate(owner, []common.Address{carol}, nil)
	assert.ErrorIs(t, err, airdrop.ErrLengthMismatch)
	assert.Equal(t, []common.Address{alice, bob}, f.ad.Recipients())
}

// ---------------------------------------------------------------------------
// Allocation files
// ---------------------------------------------------------------------------

func TestReadAllocation(t *testing.T) {
	in := `{"addresses":["0x00000000000000000000000000000000000a11ce","0x0000000000000000000000000000000000000b0b"],
		"amounts":["1000", 500]}`
	alloc, err := airdrop.ReadAllocation(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, 2, alloc.Len())
	total, err := alloc.Total()
	require.NoError(t, err)
	assert.Equal(t, uint64(1500), total.Uint64())
}

func TestReadAllocation_Rejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{
			name: "duplicate",
			in:   `{"addresses":["0x00000000000000000000000000000000000a11ce","0x00000000000000000000000000000000000A11CE"],"amounts":["1","2"]}`,
			want: airdrop.ErrDuplicateAddress,
		},
		{
			name: "length",
			in:   `{"addresses":["0x00000000000000000000000000000000000a11ce"],"amounts":[]}`,
			want: airdrop.ErrLengthMismatch,
		},
		{
			name: "address",
			in:   `{"addresses":["alice"],"amounts":["1"]}`,
			want: airdrop.ErrInvalidAddress,
		},
		{
			name: "amount",
			in:   `{"addresses":["0x00000000000000000000000000000000000a11ce"],"amounts":["-1"]}`,
			want: airdrop.ErrInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := airdrop.ReadAllocation(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAllocation_UploadInBatches(t *testing.T) {
	alloc := &airdrop.Allocation{}
	for i := 1; i <= 250; i++ {
		alloc.Addresses = append(alloc.Addresses, common.HexToAddress(fmt.Sprintf("0x%040x", 0x1000+i)))
		alloc.Amounts = append(alloc.Amounts, uint256.NewInt(uint64(i)))
	}
	batches := alloc.Batches(0)
	require.Len(t, batches, 3)
	assert.Len(t, batches[2].Addresses, 50)

	f := newFixture(t)
	n, err := alloc.Upload(f.ad, owner, airdrop.DefaultBatchSize)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.ad.Recipients(), 252)
	assert.Equal(t, uint64(1500+250*251/2), f.ad.TotalPending().Uint64())
}
