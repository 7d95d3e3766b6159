// Package ledger is the exact-integer balance store shared by every token in
// the system: the taxed H2O token, LP tokens, and plain ERC-20 collaterals.
package ledger

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrMintSealed            = errors.New("minting is closed")
	ErrSupplyOverflow        = errors.New("total supply overflows uint256")
	ErrConservation          = errors.New("sum of balances does not match total supply")
)

// MaxUint256 is the allowance value that is never decremented.
var MaxUint256 = new(uint256.Int).SetAllOne()

// DeadAddress receives permanently locked tokens.
var DeadAddress = common.HexToAddress("0x000000000000000000000000000000000000dEaD")

type allowanceKey struct {
	owner, spender common.Address
}

// Ledger holds balances, allowances and total supply for one token.
// Every write is recorded in the journal.
type Ledger struct {
	journal  *state.Journal
	address  common.Address
	name     string
	symbol   string
	decimals uint8

	totalSupply uint256.Int
	balances    map[common.Address]uint256.Int
	allowances  map[allowanceKey]uint256.Int
	holders     []common.Address
	known       map[common.Address]bool
	sealed      bool
}

// Meta describes a token.
type Meta struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// New creates an empty ledger for the token at addr.
func New(j *state.Journal, addr common.Address, meta Meta) *Ledger {
	return &Ledger{
		journal:    j,
		address:    addr,
		name:       meta.Name,
		symbol:     meta.Symbol,
		decimals:   meta.Decimals,
		balances:   make(map[common.Address]uint256.Int),
		allowances: make(map[allowanceKey]uint256.Int),
		known:      make(map[common.Address]bool),
	}
}

func (l *Ledger) Address() common.Address { return l.address }
func (l *Ledger) Name() string            { return l.name }
func (l *Ledger) Symbol() string          { return l.symbol }
func (l *Ledger) Decimals() uint8         { return l.decimals }

// BalanceOf returns a copy of the balance of a.
func (l *Ledger) BalanceOf(a common.Address) *uint256.Int {
	b := l.balances[a]
	return b.Clone()
}

// TotalSupply returns a copy of the total supply.
func (l *Ledger) TotalSupply() *uint256.Int {
	return l.totalSupply.Clone()
}

// Seal closes minting for good.
func (l *Ledger) Seal() {
	state.Set(l.journal, &l.sealed, true)
}

// Sealed reports whether Mint is still allowed.
func (l *Ledger) Sealed() bool { return l.sealed }

// Mint creates amount new tokens owned by to.
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) error {
	if l.sealed {
		return ErrMintSealed
	}
	supply, overflow := new(uint256.Int).AddOverflow(&l.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	state.Set(l.journal, &l.totalSupply, *supply)
	l.credit(to, amount)
	return nil
}

// Burn destroys amount tokens held by from.
func (l *Ledger) Burn(from common.Address, amount *uint256.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	supply := new(uint256.Int).Sub(&l.totalSupply, amount)
	state.Set(l.journal, &l.totalSupply, *supply)
	return nil
}

// Move transfers amount from one account to another without any policy.
func (l *Ledger) Move(from, to common.Address, amount *uint256.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// Allowance returns how much spender may still move on behalf of owner.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	a := l.allowances[allowanceKey{owner, spender}]
	return a.Clone()
}

// Approve sets the allowance of spender over owner's tokens.
func (l *Ledger) Approve(owner, spender common.Address, amount *uint256.Int) {
	state.SetKey(l.journal, l.allowances, allowanceKey{owner, spender}, *amount)
}

// SpendAllowance decrements the allowance unless it is the maximum value.
func (l *Ledger) SpendAllowance(owner, spender common.Address, amount *uint256.Int) error {
	key := allowanceKey{owner, spender}
	cur := l.allowances[key]
	if cur.Eq(MaxUint256) {
		return nil
	}
	if cur.Lt(amount) {
		return fmt.Errorf("%w: %s allows %s, need %s", ErrInsufficientAllowance,
			spender.Hex(), cur.ToBig(), amount.ToBig())
	}
	state.SetKey(l.journal, l.allowances, key, *new(uint256.Int).Sub(&cur, amount))
	return nil
}

// Holders returns every account with a non-zero balance in the order the
// ledger first saw it.
func (l *Ledger) Holders() []common.Address {
	out := make([]common.Address, 0, len(l.holders))
	for _, h := range l.holders {
		if b := l.balances[h]; !b.IsZero() {
			out = append(out, h)
		}
	}
	return out
}

// CheckConservation verifies that balances sum to the total supply.
func (l *Ledger) CheckConservation() error {
	var sum uint256.Int
	for _, b := range l.balances {
		sum.Add(&sum, &b)
	}
	if !sum.Eq(&l.totalSupply) {
		return fmt.Errorf("%w: %s: balances %s, supply %s", ErrConservation,
			l.symbol, sum.ToBig(), l.totalSupply.ToBig())
	}
	return nil
}

func (l *Ledger) debit(from common.Address, amount *uint256.Int) error {
	bal := l.balances[from]
	if bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s %s, need %s", ErrInsufficientBalance,
			from.Hex(), bal.ToBig(), l.symbol, amount.ToBig())
	}
	state.SetKey(l.journal, l.balances, from, *new(uint256.Int).Sub(&bal, amount))
	return nil
}

func (l *Ledger) credit(to common.Address, amount *uint256.Int) {
	if !l.known[to] {
		state.SetKey(l.journal, l.known, to, true)
		l.holders = append(l.holders, to)
		n := len(l.holders) - 1
		l.journal.Record(func() { l.holders = l.holders[:n] })
	}
	bal := l.balances[to]
	state.SetKey(l.journal, l.balances, to, *new(uint256.Int).Add(&bal, amount))
}
