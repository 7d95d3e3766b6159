package token

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// V2 is the plugin generation token. It only collects fees; SwapBackAll
// hands them to the liquidity and distributor plugins, which are replaced
// through a timelock.
type V2 struct {
	*core

	pair    common.Address
	delay   *timelock.Delay
	plugins map[Kind]*timelock.Slot[Plugin]
}

// NewV2 mints the supply to the owner and registers the token.
func NewV2(cfg V2Config) (*V2, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := newCore(cfg.Config)
	if err != nil {
		return nil, err
	}
	delay, err := timelock.NewDelay(cfg.Journal, cfg.ApprovalDelay, MinApprovalDelay)
	if err != nil {
		return nil, err
	}
	t := &V2{core: c, delay: delay, plugins: make(map[Kind]*timelock.Slot[Plugin])}
	for _, k := range []Kind{KindLiquidity, KindDistributor} {
		t.plugins[k] = timelock.NewSlot[Plugin](cfg.Journal, nil, t.pluginValidator(k))
	}
	c.hooks = t
	cfg.Tokens.Register(t)
	if cfg.Pair != (common.Address{}) {
		t.registerPair(cfg.Pair)
	}
	return t, nil
}

func (t *V2) pluginValidator(k Kind) timelock.Validator[Plugin] {
	return func(p Plugin) error {
		if p == nil || p.Token() != t.Address() || p.Kind() != k {
			return ErrInvalidPlugin
		}
		return nil
	}
}

func (t *V2) registerPair(pair common.Address) {
	if t.pair != (common.Address{}) {
		t.fees.SetPair(t.pair, false)
	}
	t.fees.SetPair(pair, true)
	t.fees.Policy().Set(pair, fees.DividendExempt|fees.WalletLimitExempt, true)
	state.Set(t.journal, &t.pair, pair)
}

func (t *V2) Pair() common.Address { return t.pair }

// SetPair points fee direction detection at pair.
func (t *V2) SetPair(caller, pair common.Address) error {
	return t.owned(caller, func() error {
		t.registerPair(pair)
		return nil
	})
}

// Plugin returns the active plugin of kind, nil before setup.
func (t *V2) Plugin(k Kind) Plugin {
	s, ok := t.plugins[k]
	if !ok {
		return nil
	}
	return s.Current()
}

// PluginCandidate returns the proposed plugin of kind.
func (t *V2) PluginCandidate(k Kind) (Plugin, bool) {
	s, ok := t.plugins[k]
	if !ok {
		return nil, false
	}
	return s.Candidate()
}

func (t *V2) slot(k Kind) (*timelock.Slot[Plugin], error) {
	s, ok := t.plugins[k]
	if !ok {
		return nil, fmt.Errorf("%w: kind %d", ErrInvalidPlugin, k)
	}
	return s, nil
}

// SetupPlugin installs the first plugin of a kind without a timelock.
func (t *V2) SetupPlugin(caller common.Address, k Kind, p Plugin) error {
	return t.owned(caller, func() error {
		s, err := t.slot(k)
		if err != nil {
			return err
		}
		if s.Current() != nil {
			return ErrPluginAlreadySetup
		}
		if err := t.pluginValidator(k)(p); err != nil {
			return err
		}
		s.Set(p)
		t.fees.Policy().Set(p.Address(), fees.AllExempt, true)
		t.log.Info("plugin setup", "kind", k, "plugin", p.Address().Hex())
		return nil
	})
}

// ProposePlugin queues p to replace the plugin of kind after the approval delay.
func (t *V2) ProposePlugin(caller common.Address, k Kind, p Plugin) error {
	return t.owned(caller, func() error {
		s, err := t.slot(k)
		if err != nil {
			return err
		}
		return s.Propose(t.clock.Now(), p)
	})
}

// UpgradePlugin activates the candidate of kind. The retired plugin returns
// its holdings to the token.
func (t *V2) UpgradePlugin(caller common.Address, k Kind) error {
	err := t.owned(caller, func() error {
		s, err := t.slot(k)
		if err != nil {
			return err
		}
		prev, err := s.Upgrade(t.clock.Now(), t.delay.Value())
		if err != nil {
			return err
		}
		next := s.Current()
		t.fees.Policy().Set(next.Address(), fees.AllExempt, true)
		if prev != nil {
			if err := prev.Retire(t.Address()); err != nil {
				return fmt.Errorf("retiring %s: %w", prev.Address().Hex(), err)
			}
		}
		t.log.Info("plugin upgraded", "kind", k, "plugin", next.Address().Hex())
		return nil
	})
	metrics.GovernanceUpgradesTotal.WithLabelValues("plugin_"+k.String(), metrics.Status(err)).Inc()
	return err
}

func (t *V2) ApprovalDelay() time.Duration         { return t.delay.Value() }
func (t *V2) ProposedApprovalDelay() time.Duration { return t.delay.Proposed() }

func (t *V2) ProposeApprovalDelay(caller common.Address, d time.Duration) error {
	return t.owned(caller, func() error {
		return t.delay.Propose(t.clock.Now(), d)
	})
}

// UpgradeApprovalDelay applies the proposed delay once the current one has elapsed.
func (t *V2) UpgradeApprovalDelay(caller common.Address) error {
	err := t.owned(caller, func() error {
		return t.delay.Upgrade(t.clock.Now())
	})
	metrics.GovernanceUpgradesTotal.WithLabelValues("approval_delay", metrics.Status(err)).Inc()
	return err
}

func (t *V2) dividendPlugin() (DividendPlugin, error) {
	p, ok := t.Plugin(KindDistributor).(DividendPlugin)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPluginNotSet, KindDistributor)
	}
	return p, nil
}

// SwapBackAll splits the token's whole balance by the sell rates: the
// liquidity and reflection parts go to their plugins and are swapped there,
// the treasury part is sent to the treasury.
func (t *V2) SwapBackAll(caller common.Address) error {
	return t.owned(caller, func() error {
		liqPlugin := t.Plugin(KindLiquidity)
		if liqPlugin == nil {
			return fmt.Errorf("%w: %s", ErrPluginNotSet, KindLiquidity)
		}
		distPlugin, err := t.dividendPlugin()
		if err != nil {
			return err
		}
		return t.runSwapBackWith(func() error {
			balance := t.BalanceOf(t.Address())
			if balance.IsZero() {
				return nil
			}
			r := t.fees.Config().Sell
			total := uint256.NewInt(r.Total())
			if total.IsZero() {
				return nil
			}
			liq, _ := new(uint256.Int).MulDivOverflow(balance, uint256.NewInt(r.Liquidity), total)
			treas, _ := new(uint256.Int).MulDivOverflow(balance, uint256.NewInt(r.Treasury), total)
			refl := new(uint256.Int).Sub(balance, liq)
			refl.Sub(refl, treas)

			for _, leg := range []struct {
				to     common.Address
				amount *uint256.Int
			}{
				{liqPlugin.Address(), liq},
				{distPlugin.Address(), refl},
				{t.treasury, treas},
			} {
				if leg.amount.IsZero() {
					continue
				}
				if err := t.ledger.Move(t.Address(), leg.to, leg.amount); err != nil {
					return err
				}
			}
			if err := liqPlugin.SwapBack(t.Address()); err != nil {
				return fmt.Errorf("liquidity plugin: %w", err)
			}
			if err := distPlugin.SwapBack(t.Address()); err != nil {
				return fmt.Errorf("distributor plugin: %w", err)
			}
			state.Set(t.journal, &t.buckets, Buckets{})
			t.log.Info("swap back", "liquidity", liq.ToBig(), "reflection", refl.ToBig(), "treasury", treas.ToBig())
			return nil
		})
	})
}

// runSwapBackWith runs fn with transfers untaxed and records the outcome.
func (t *V2) runSwapBackWith(fn func() error) error {
	t.inSwap = true
	defer func() { t.inSwap = false }()
	err := fn()
	metrics.SwapBacksTotal.WithLabelValues(metrics.Status(err)).Inc()
	return err
}

// ConfigureDividendHolders includes holders in dividends at their balance,
// or excludes them with a zero share.
func (t *V2) ConfigureDividendHolders(caller common.Address, holders []common.Address, include bool) error {
	return t.owned(caller, func() error {
		if _, err := t.dividendPlugin(); err != nil {
			return err
		}
		for _, h := range holders {
			if h == t.Address() || t.fees.IsPair(h) {
				return ErrCannotExempt
			}
			if err := t.setDividendExempt(h, !include); err != nil {
				return err
			}
		}
		return nil
	})
}

// Process runs a distributor plugin pass. Anyone may continue a pass; only
// the owner may restart it from the first holder.
func (t *V2) Process(caller common.Address, gas uint64, resetCursor bool) (dividend.Result, error) {
	var res dividend.Result
	err := t.journal.Atomic(func() error {
		if resetCursor {
			if err := t.OnlyOwner(caller); err != nil {
				return err
			}
		}
		p, err := t.dividendPlugin()
		if err != nil {
			return err
		}
		res, err = p.Process(t.Address(), gas, resetCursor)
		return err
	})
	return res, err
}

func (t *V2) canSwapBack() bool { return false }
func (t *V2) swapBack() error   { return nil }
func (t *V2) afterTransfer()    {}

func (t *V2) setShare(holder common.Address, amount *uint256.Int) error {
	p, ok := t.Plugin(KindDistributor).(DividendPlugin)
	if !ok {
		return nil
	}
	return p.SetShare(t.Address(), holder, amount)
}
