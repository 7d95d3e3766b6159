package amm

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
)

type pairKey struct {
	token0, token1 common.Address
}

// Factory creates and indexes pairs.
type Factory struct {
	journal  *state.Journal
	address  common.Address
	registry *ledger.Registry
	pairs    map[pairKey]*Pair
	all      []*Pair
}

// NewFactory returns a factory at addr resolving tokens through reg.
func NewFactory(j *state.Journal, addr common.Address, reg *ledger.Registry) *Factory {
	return &Factory{
		journal:  j,
		address:  addr,
		registry: reg,
		pairs:    make(map[pairKey]*Pair),
	}
}

func (f *Factory) Address() common.Address { return f.address }

// Pairs returns every pair in creation order.
func (f *Factory) Pairs() []*Pair { return append([]*Pair(nil), f.all...) }

// GetPair returns the a/b pair if it exists.
func (f *Factory) GetPair(a, b common.Address) (*Pair, bool) {
	t0, t1 := SortTokens(a, b)
	p, ok := f.pairs[pairKey{t0, t1}]
	return p, ok
}

// PairAt returns the pair deployed at addr.
func (f *Factory) PairAt(addr common.Address) (*Pair, bool) {
	for _, p := range f.all {
		if p.address == addr {
			return p, true
		}
	}
	return nil, false
}

// CreatePair deploys the a/b pair and registers its LP token.
func (f *Factory) CreatePair(a, b common.Address) (*Pair, error) {
	if a == b {
		return nil, ErrIdenticalTokens
	}
	t0, t1 := SortTokens(a, b)
	key := pairKey{t0, t1}
	if _, ok := f.pairs[key]; ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairExists, t0.Hex(), t1.Hex())
	}
	tok0, err := f.registry.Get(t0)
	if err != nil {
		return nil, err
	}
	tok1, err := f.registry.Get(t1)
	if err != nil {
		return nil, err
	}

	addr := PairAddress(f.address, t0, t1)
	lp := ledger.NewBasic(ledger.New(f.journal, addr, ledger.Meta{
		Name:     tok0.Symbol() + "-" + tok1.Symbol() + " LP",
		Symbol:   "UNI-V2",
		Decimals: 18,
	}))
	p := &Pair{journal: f.journal, address: addr, token0: tok0, token1: tok1, lp: lp}

	state.SetKey(f.journal, f.pairs, key, p)
	f.all = append(f.all, p)
	n := len(f.all) - 1
	f.journal.Record(func() { f.all = f.all[:n] })
	f.registry.Register(lp)
	return p, nil
}
