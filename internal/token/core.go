// Package token implements the H2O tax token: a ledger whose transfers are
// taxed, whose collected fees are swapped back into liquidity, dividends and
// treasury, and whose collaborators are replaced through timelocked governance.
package token

import (
	"fmt"
	"log/slog"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

// Buckets are the fee tokens held by the contract, by destination.
type Buckets struct {
	Liquidity  uint256.Int
	Reflection uint256.Int
	Treasury   uint256.Int
}

func (b Buckets) total() *uint256.Int {
	t := new(uint256.Int).Add(&b.Liquidity, &b.Reflection)
	return t.Add(t, &b.Treasury)
}

// hooks are the generation-specific parts of the transfer pipeline.
type hooks interface {
	canSwapBack() bool
	swapBack() error
	setShare(holder common.Address, amount *uint256.Int) error
	afterTransfer()
}

// core is the taxed ledger both generations build on.
type core struct {
	access.Ownable

	journal *state.Journal
	log     *slog.Logger
	clock   clockwork.Clock
	tokens  *ledger.Registry
	ledger  *ledger.Ledger
	fees    *fees.Engine
	hooks   hooks

	swapEnabled   bool
	swapThreshold uint256.Int
	inSwap        bool
	buckets       Buckets

	autoLiquidityReceiver common.Address
	treasury              common.Address
}

func newCore(cfg Config) (*core, error) {
	l := ledger.New(cfg.Journal, cfg.Address, cfg.Meta)
	if err := l.Mint(cfg.Owner, cfg.Supply); err != nil {
		return nil, err
	}
	l.Seal()
	engine, err := fees.NewEngine(cfg.Journal, l, cfg.Fees, cfg.MaxWallet)
	if err != nil {
		return nil, err
	}
	c := &core{
		Ownable:               access.NewOwnable(cfg.Journal, cfg.Owner),
		journal:               cfg.Journal,
		log:                   cfg.Logger.With("component", "token", "symbol", cfg.Meta.Symbol),
		clock:                 cfg.Clock,
		tokens:                cfg.Tokens,
		ledger:                l,
		fees:                  engine,
		swapEnabled:           true,
		swapThreshold:         *cfg.SwapThreshold,
		autoLiquidityReceiver: cfg.Owner,
		treasury:              cfg.Owner,
	}
	p := engine.Policy()
	p.Set(cfg.Owner, fees.FeeExempt|fees.WalletLimitExempt, true)
	p.Set(cfg.Address, fees.AllExempt, true)
	p.Set(ledger.DeadAddress, fees.DividendExempt|fees.WalletLimitExempt, true)
	p.Set(common.Address{}, fees.DividendExempt|fees.WalletLimitExempt, true)
	return c, nil
}

func (c *core) Address() common.Address { return c.ledger.Address() }
func (c *core) Name() string            { return c.ledger.Name() }
func (c *core) Symbol() string          { return c.ledger.Symbol() }
func (c *core) Decimals() uint8         { return c.ledger.Decimals() }

func (c *core) BalanceOf(a common.Address) *uint256.Int { return c.ledger.BalanceOf(a) }
func (c *core) TotalSupply() *uint256.Int               { return c.ledger.TotalSupply() }
func (c *core) Holders() []common.Address               { return c.ledger.Holders() }
func (c *core) CheckConservation() error                { return c.ledger.CheckConservation() }

func (c *core) Allowance(owner, spender common.Address) *uint256.Int {
	return c.ledger.Allowance(owner, spender)
}

// Approve lets spender move amount of owner's tokens.
func (c *core) Approve(owner, spender common.Address, amount *uint256.Int) error {
	c.ledger.Approve(owner, spender, amount)
	return nil
}

// Transfer moves amount from from to to, charging fees unless exempt.
func (c *core) Transfer(from, to common.Address, amount *uint256.Int) error {
	return c.journal.Atomic(func() error {
		return c.transfer(from, to, amount)
	})
}

// TransferFrom spends spender's allowance over from and transfers.
func (c *core) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	return c.journal.Atomic(func() error {
		if err := c.ledger.SpendAllowance(from, spender, amount); err != nil {
			return err
		}
		return c.transfer(from, to, amount)
	})
}

func (c *core) transfer(from, to common.Address, amount *uint256.Int) error {
	if c.inSwap {
		return c.ledger.Move(from, to, amount)
	}
	dir := c.fees.Direction(from, to)
	err := c.taxedTransfer(from, to, amount)
	metrics.TransfersTotal.WithLabelValues(dir.String(), metrics.Status(err)).Inc()
	return err
}

func (c *core) taxedTransfer(from, to common.Address, amount *uint256.Int) error {
	if bal := c.ledger.BalanceOf(from); bal.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, needs %s", ledger.ErrInsufficientBalance,
			from.Hex(), bal.ToBig(), amount.ToBig())
	}
	q, err := c.fees.Apply(from, to, amount)
	if err != nil {
		return err
	}
	if c.shouldSwapBack(from) {
		if err := c.runSwapBack(); err != nil {
			return fmt.Errorf("swap back: %w", err)
		}
	}
	if err := c.ledger.Move(from, to, q.Net); err != nil {
		return err
	}
	if !q.Fee.IsZero() {
		if err := c.ledger.Move(from, c.Address(), q.Fee); err != nil {
			return err
		}
		b := c.buckets
		b.Liquidity.Add(&b.Liquidity, q.Liquidity)
		b.Reflection.Add(&b.Reflection, q.Reflection)
		b.Treasury.Add(&b.Treasury, q.Treasury)
		state.Set(c.journal, &c.buckets, b)
	}

	policy := c.fees.Policy()
	for _, h := range []common.Address{from, to} {
		if policy.Is(h, fees.DividendExempt) {
			continue
		}
		if err := c.journal.Atomic(func() error {
			return c.hooks.setShare(h, c.ledger.BalanceOf(h))
		}); err != nil {
			c.log.Warn("dividend share update failed", "holder", h.Hex(), "error", err)
		}
	}
	c.hooks.afterTransfer()
	return nil
}

func (c *core) shouldSwapBack(from common.Address) bool {
	return !c.fees.IsPair(from) &&
		!c.inSwap &&
		c.swapEnabled &&
		!c.ledger.BalanceOf(c.Address()).Lt(&c.swapThreshold) &&
		c.hooks.canSwapBack()
}

func (c *core) runSwapBack() error {
	c.inSwap = true
	defer func() { c.inSwap = false }()
	err := c.hooks.swapBack()
	metrics.SwapBacksTotal.WithLabelValues(metrics.Status(err)).Inc()
	return err
}

// weights returns the bucket proportions a swap-back routes by. With empty
// buckets, tokens sent straight to the contract are split by the sell rates.
func (c *core) weights() (liq, refl, treas *uint256.Int) {
	b := c.buckets
	if b.total().IsZero() {
		r := c.fees.Config().Sell
		return uint256.NewInt(r.Liquidity), uint256.NewInt(r.Reflection), uint256.NewInt(r.Treasury)
	}
	return b.Liquidity.Clone(), b.Reflection.Clone(), b.Treasury.Clone()
}

// drainBuckets removes amount from the buckets pro rata.
func (c *core) drainBuckets(amount *uint256.Int) {
	b := c.buckets
	total := b.total()
	if !amount.Lt(total) {
		state.Set(c.journal, &c.buckets, Buckets{})
		return
	}
	for _, v := range []*uint256.Int{&b.Liquidity, &b.Reflection, &b.Treasury} {
		cut, _ := new(uint256.Int).MulDivOverflow(v, amount, total)
		v.Sub(v, cut)
	}
	state.Set(c.journal, &c.buckets, b)
}

// CirculatingSupply excludes tokens held by the dead and zero addresses.
func (c *core) CirculatingSupply() *uint256.Int {
	out := c.TotalSupply()
	out.Sub(out, c.BalanceOf(ledger.DeadAddress))
	return out.Sub(out, c.BalanceOf(common.Address{}))
}

func (c *core) Fees() fees.Config                 { return c.fees.Config() }
func (c *core) MaxWallet() fees.Limit             { return c.fees.MaxWallet() }
func (c *core) MaxWalletAmount() *uint256.Int     { return c.fees.MaxWalletAmount() }
func (c *core) Flags(a common.Address) fees.Flags { return c.fees.Policy().Flags(a) }
func (c *core) IsPair(a common.Address) bool      { return c.fees.IsPair(a) }

// Quote previews the tax on a transfer.
func (c *core) Quote(from, to common.Address, amount *uint256.Int) fees.Quote {
	return c.fees.Quote(from, to, amount)
}

func (c *core) Buckets() Buckets { return c.buckets }

// SwapBackSettings returns whether swap-back is enabled and its threshold.
func (c *core) SwapBackSettings() (bool, *uint256.Int) {
	return c.swapEnabled, c.swapThreshold.Clone()
}

func (c *core) AutoLiquidityReceiver() common.Address { return c.autoLiquidityReceiver }
func (c *core) Treasury() common.Address              { return c.treasury }

func (c *core) SetSwapBackSettings(caller common.Address, enabled bool, threshold *uint256.Int) error {
	return c.owned(caller, func() error {
		state.Set(c.journal, &c.swapEnabled, enabled)
		state.Set(c.journal, &c.swapThreshold, *threshold)
		return nil
	})
}

func (c *core) SetFees(caller common.Address, cfg fees.Config) error {
	return c.owned(caller, func() error { return c.fees.SetConfig(cfg) })
}

func (c *core) SetMaxWallet(caller common.Address, numerator, denominator uint64) error {
	return c.owned(caller, func() error {
		return c.fees.SetMaxWallet(fees.Limit{Numerator: numerator, Denominator: denominator})
	})
}

func (c *core) SetFeeReceivers(caller, autoLiquidityReceiver, treasury common.Address) error {
	return c.owned(caller, func() error {
		if autoLiquidityReceiver == (common.Address{}) || treasury == (common.Address{}) {
			return ErrZeroReceiver
		}
		state.Set(c.journal, &c.autoLiquidityReceiver, autoLiquidityReceiver)
		state.Set(c.journal, &c.treasury, treasury)
		return nil
	})
}

func (c *core) SetIsFeeExempt(caller, holder common.Address, exempt bool) error {
	return c.owned(caller, func() error {
		c.fees.Policy().Set(holder, fees.FeeExempt, exempt)
		return nil
	})
}

func (c *core) SetIsWalletLimitExempt(caller, holder common.Address, exempt bool) error {
	return c.owned(caller, func() error {
		c.fees.Policy().Set(holder, fees.WalletLimitExempt, exempt)
		return nil
	})
}

// SetIsDividendExempt toggles holder's dividend eligibility and resets its
// share to zero or to its balance.
func (c *core) SetIsDividendExempt(caller, holder common.Address, exempt bool) error {
	return c.owned(caller, func() error {
		if holder == c.Address() || c.fees.IsPair(holder) {
			return ErrCannotExempt
		}
		return c.setDividendExempt(holder, exempt)
	})
}

func (c *core) setDividendExempt(holder common.Address, exempt bool) error {
	c.fees.Policy().Set(holder, fees.DividendExempt, exempt)
	share := new(uint256.Int)
	if !exempt {
		share = c.BalanceOf(holder)
	}
	return c.hooks.setShare(holder, share)
}

// TransferOwnership hands the token to next.
func (c *core) TransferOwnership(caller, next common.Address) error {
	return c.journal.Atomic(func() error {
		return c.Ownable.TransferOwnership(caller, next)
	})
}

// owned runs fn atomically after checking caller is the owner.
func (c *core) owned(caller common.Address, fn func() error) error {
	return c.journal.Atomic(func() error {
		if err := c.OnlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
}
