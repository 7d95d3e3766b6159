package ledger

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrUnknownToken is returned when a registry lookup misses.
var (
	ErrUnknownToken = errors.New("unknown token")
	ErrBadAmount    = errors.New("invalid token amount")
)

// Token is the ERC-20 surface every collaborator works against.
type Token interface {
	Address() common.Address
	Symbol() string
	Decimals() uint8
	BalanceOf(account common.Address) *uint256.Int
	TotalSupply() *uint256.Int
	Allowance(owner, spender common.Address) *uint256.Int
	Transfer(from, to common.Address, amount *uint256.Int) error
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	Approve(owner, spender common.Address, amount *uint256.Int) error
}

// Basic is an untaxed ERC-20: wrapped native coin, stablecoins, reward
// tokens and LP tokens.
type Basic struct {
	*Ledger
}

// NewBasic wraps a ledger as a plain token.
func NewBasic(l *Ledger) *Basic {
	return &Basic{Ledger: l}
}

func (b *Basic) Transfer(from, to common.Address, amount *uint256.Int) error {
	return b.Move(from, to, amount)
}

func (b *Basic) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	if err := b.SpendAllowance(from, spender, amount); err != nil {
		return err
	}
	return b.Move(from, to, amount)
}

func (b *Basic) Approve(owner, spender common.Address, amount *uint256.Int) error {
	b.Ledger.Approve(owner, spender, amount)
	return nil
}

// Registry resolves token addresses.
type Registry struct {
	tokens map[common.Address]Token
	order  []common.Address
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[common.Address]Token)}
}

// Register adds t, replacing any token already at its address.
func (r *Registry) Register(t Token) {
	if _, ok := r.tokens[t.Address()]; !ok {
		r.order = append(r.order, t.Address())
	}
	r.tokens[t.Address()] = t
}

// Get looks up the token at addr.
func (r *Registry) Get(addr common.Address) (Token, error) {
	t, ok := r.tokens[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr.Hex())
	}
	return t, nil
}

// All returns tokens in registration order.
func (r *Registry) All() []Token {
	out := make([]Token, 0, len(r.order))
	for _, a := range r.order {
		out = append(out, r.tokens[a])
	}
	return out
}

// Units returns n whole tokens expressed in base units.
func Units(n uint64, decimals uint8) *uint256.Int {
	exp := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(decimals)))
	return new(uint256.Int).Mul(uint256.NewInt(n), exp)
}

// FormatUnits renders a base-unit amount as a decimal string with trailing
// zeros trimmed.
func FormatUnits(amount *uint256.Int, decimals uint8) string {
	raw := amount.ToBig()
	if decimals == 0 {
		return raw.String()
	}
	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(raw, divisor, new(big.Int))
	if frac.Sign() == 0 {
		return whole.String()
	}
	fracStr := frac.String()
	fracStr = strings.Repeat("0", int(decimals)-len(fracStr)) + fracStr
	return whole.String() + "." + strings.TrimRight(fracStr, "0")
}

// ParseUnits converts a decimal string such as "1.25" into base units. More
// fractional digits than decimals is an error.
func ParseUnits(s string, decimals uint8) (*uint256.Int, error) {
	whole, frac, _ := strings.Cut(strings.TrimSpace(s), ".")
	if whole == "" && frac == "" || strings.HasPrefix(whole, "-") || strings.HasPrefix(whole, "+") {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	if len(frac) > int(decimals) {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", ErrBadAmount, s, decimals)
	}
	digits := whole + frac + strings.Repeat("0", int(decimals)-len(frac))
	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBadAmount, s)
	}
	out, overflow := uint256.FromBig(n)
	if overflow {
		return nil, fmt.Errorf("%w: %q overflows uint256", ErrBadAmount, s)
	}
	return out, nil
}
