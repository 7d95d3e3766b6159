package fees

import (
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
)

// Flags mark accounts that bypass parts of the tax policy.
type Flags uint8

const (
	FeeExempt Flags = 1 << iota
	DividendExempt
	WalletLimitExempt

	AllExempt = FeeExempt | DividendExempt | WalletLimitExempt
)

// Has reports whether every bit in x is set.
func (f Flags) Has(x Flags) bool { return f&x == x }

// Policy is the address to flag-set lookup table.
type Policy struct {
	journal *state.Journal
	flags   map[common.Address]Flags
}

// NewPolicy returns an empty table.
func NewPolicy(j *state.Journal) *Policy {
	return &Policy{journal: j, flags: make(map[common.Address]Flags)}
}

// Flags returns the flags of addr.
func (p *Policy) Flags(addr common.Address) Flags { return p.flags[addr] }

// Is reports whether addr carries flag.
func (p *Policy) Is(addr common.Address, flag Flags) bool {
	return p.flags[addr].Has(flag)
}

// Set turns flag on or off for addr.
func (p *Policy) Set(addr common.Address, flag Flags, on bool) {
	cur := p.flags[addr]
	next := cur &^ flag
	if on {
		next = cur | flag
	}
	if next == cur {
		return
	}
	if next == 0 {
		state.DeleteKey(p.journal, p.flags, addr)
		return
	}
	state.SetKey(p.journal, p.flags, addr, next)
}

// Exempt returns every address carrying flag.
func (p *Policy) Exempt(flag Flags) []common.Address {
	var out []common.Address
	for a, f := range p.flags {
		if f.Has(flag) {
			out = append(out, a)
		}
	}
	return out
}
