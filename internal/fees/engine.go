package fees

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Balances is the read side of the ledger the engine taxes.
type Balances interface {
	BalanceOf(common.Address) *uint256.Int
	TotalSupply() *uint256.Int
}

// Quote is the outcome of taxing one transfer.
type Quote struct {
	Direction Direction
	Amount    *uint256.Int
	Net       *uint256.Int
	Fee       *uint256.Int

	Liquidity  *uint256.Int
	Reflection *uint256.Int
	Treasury   *uint256.Int
}

// Engine computes fee splits and enforces the wallet limit.
type Engine struct {
	journal   *state.Journal
	balances  Balances
	cfg       Config
	maxWallet Limit
	policy    *Policy
	pairs     map[common.Address]bool
}

// NewEngine validates cfg and maxWallet and returns an engine reading
// balances from b.
func NewEngine(j *state.Journal, b Balances, cfg Config, maxWallet Limit) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := maxWallet.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		journal:   j,
		balances:  b,
		cfg:       cfg,
		maxWallet: maxWallet,
		policy:    NewPolicy(j),
		pairs:     make(map[common.Address]bool),
	}, nil
}

func (e *Engine) Policy() *Policy  { return e.policy }
func (e *Engine) Config() Config   { return e.cfg }
func (e *Engine) MaxWallet() Limit { return e.maxWallet }

// SetConfig replaces the rate sets.
func (e *Engine) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	state.Set(e.journal, &e.cfg, cfg)
	return nil
}

// SetMaxWallet replaces the wallet limit.
func (e *Engine) SetMaxWallet(l Limit) error {
	if err := l.Validate(); err != nil {
		return err
	}
	state.Set(e.journal, &e.maxWallet, l)
	return nil
}

// SetPair registers or unregisters a liquidity pair.
func (e *Engine) SetPair(pair common.Address, on bool) {
	if on {
		state.SetKey(e.journal, e.pairs, pair, true)
		return
	}
	state.DeleteKey(e.journal, e.pairs, pair)
}

// IsPair reports whether addr is a registered pair.
func (e *Engine) IsPair(addr common.Address) bool { return e.pairs[addr] }

// Direction classifies a transfer. Sells take precedence when both sides are pairs.
func (e *Engine) Direction(from, to common.Address) Direction {
	switch {
	case e.pairs[to]:
		return Sell
	case e.pairs[from]:
		return Buy
	default:
		return Transfer
	}
}

// MaxWalletAmount is the largest balance a limited account may reach.
func (e *Engine) MaxWalletAmount() *uint256.Int {
	supply := e.balances.TotalSupply()
	out := new(uint256.Int).Mul(supply, uint256.NewInt(e.maxWallet.Numerator))
	return out.Div(out, uint256.NewInt(e.maxWallet.Denominator))
}

// Quote taxes amount without checking limits. Fees round down.
func (e *Engine) Quote(from, to common.Address, amount *uint256.Int) Quote {
	dir := e.Direction(from, to)
	q := Quote{
		Direction:  dir,
		Amount:     amount.Clone(),
		Net:        amount.Clone(),
		Fee:        new(uint256.Int),
		Liquidity:  new(uint256.Int),
		Reflection: new(uint256.Int),
		Treasury:   new(uint256.Int),
	}
	if e.policy.Is(from, FeeExempt) || e.policy.Is(to, FeeExempt) {
		return q
	}
	rates := e.cfg.For(dir)
	total := rates.Total()
	if total == 0 {
		return q
	}

	// amount < 2^256 and total <= denominator, so MulDivOverflow never overflows.
	q.Fee, _ = new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(total), uint256.NewInt(e.cfg.Denominator))
	q.Net.Sub(amount, q.Fee)

	tot := uint256.NewInt(total)
	q.Liquidity, _ = new(uint256.Int).MulDivOverflow(q.Fee, uint256.NewInt(rates.Liquidity), tot)
	q.Reflection, _ = new(uint256.Int).MulDivOverflow(q.Fee, uint256.NewInt(rates.Reflection), tot)
	q.Treasury.Sub(q.Fee, q.Liquidity)
	q.Treasury.Sub(q.Treasury, q.Reflection)
	return q
}

// CheckWalletLimit fails when crediting net to to would push it over the limit.
func (e *Engine) CheckWalletLimit(to common.Address, net *uint256.Int) error {
	if e.policy.Is(to, WalletLimitExempt) {
		return nil
	}
	after, overflow := new(uint256.Int).AddOverflow(e.balances.BalanceOf(to), net)
	limit := e.MaxWalletAmount()
	if overflow || after.Gt(limit) {
		return fmt.Errorf("%w: %s would hold %s, max %s", ErrWalletLimitExceeded,
			to.Hex(), after.ToBig(), limit.ToBig())
	}
	return nil
}

// Apply quotes the transfer and enforces the wallet limit on the recipient.
func (e *Engine) Apply(from, to common.Address, amount *uint256.Int) (Quote, error) {
	q := e.Quote(from, to, amount)
	if err := e.CheckWalletLimit(to, q.Net); err != nil {
		return Quote{}, err
	}
	return q, nil
}
