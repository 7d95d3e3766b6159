package token

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RewardConfig selects the dividend token and how to reach it from the base asset.
type RewardConfig struct {
	Token  common.Address
	Router amm.Router
	// BaseToReward routes the base asset into Token on Router.
	BaseToReward []common.Address
	// RewardToBase routes Token back into the base asset on Router.
	RewardToBase []common.Address
}

func (r RewardConfig) validate(base common.Address) error {
	if r.Router == nil {
		return fmt.Errorf("%w: reward router is required", amm.ErrInvalidPath)
	}
	if r.Token == base {
		r.BaseToReward = []common.Address{base}
		r.RewardToBase = []common.Address{base}
	}
	if err := amm.CheckPath(r.BaseToReward, base, r.Token); err != nil {
		return fmt.Errorf("base to reward: %w", err)
	}
	if err := amm.CheckPath(r.RewardToBase, r.Token, base); err != nil {
		return fmt.Errorf("reward to base: %w", err)
	}
	return nil
}

func (r RewardConfig) toReward(base common.Address) []common.Address {
	if r.Token == base {
		return []common.Address{base}
	}
	return r.BaseToReward
}

func (r RewardConfig) toBase(base common.Address) []common.Address {
	if r.Token == base {
		return []common.Address{base}
	}
	return r.RewardToBase
}

// H2O is the first generation token. Fees are swapped back automatically on
// transfers and reflections are paid by a built-in dividend distributor.
type H2O struct {
	*core

	router       amm.Router
	pair         common.Address
	paired       common.Address
	pairedToBase []common.Address

	distributorAddress common.Address
	distributorGas     uint64
	distributor        *dividend.Distributor
	reward             RewardConfig

	target Target
}

// NewH2O mints the supply to the owner, registers the token and creates
// its pool against the paired token.
func NewH2O(cfg H2OConfig) (*H2O, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	c, err := newCore(cfg.Config)
	if err != nil {
		return nil, err
	}
	h := &H2O{
		core:               c,
		router:             cfg.Router,
		paired:             cfg.Paired,
		pairedToBase:       cfg.PairedToBase,
		distributorAddress: cfg.DistributorAddress,
		distributorGas:     cfg.DistributorGas,
		target:             DefaultTarget,
	}
	c.hooks = h
	cfg.Tokens.Register(h)

	pair, ok := cfg.Router.GetPair(h.Address(), cfg.Paired)
	if !ok {
		if pair, err = cfg.Router.CreatePair(h.Address(), cfg.Paired); err != nil {
			return nil, fmt.Errorf("creating pair: %w", err)
		}
	}
	h.pair = pair
	c.fees.SetPair(pair, true)
	p := c.fees.Policy()
	p.Set(pair, fees.DividendExempt|fees.WalletLimitExempt, true)
	p.Set(cfg.Router.Address(), fees.WalletLimitExempt, true)
	p.Set(cfg.DistributorAddress, fees.AllExempt, true)
	c.ledger.Approve(h.Address(), cfg.Router.Address(), ledger.MaxUint256)

	c.log.Info("token deployed", "address", h.Address().Hex(), "pair", pair.Hex(),
		"supply", cfg.Supply.ToBig())
	return h, nil
}

func (h *H2O) Router() amm.Router                 { return h.router }
func (h *H2O) Pair() common.Address               { return h.pair }
func (h *H2O) PairedToken() common.Address        { return h.paired }
func (h *H2O) Distributor() *dividend.Distributor { return h.distributor }
func (h *H2O) Reward() RewardConfig               { return h.reward }
func (h *H2O) DistributorGas() uint64             { return h.distributorGas }
func (h *H2O) TargetLiquidity() Target            { return h.target }
func (h *H2O) PairedToBase() []common.Address     { return append([]common.Address(nil), h.pairedToBase...) }
func (h *H2O) DistributorAddress() common.Address { return h.distributorAddress }

func (h *H2O) base() common.Address { return h.router.WETH() }

// Setup creates the distributor paying reward and gives every current
// non-exempt holder its share.
func (h *H2O) Setup(caller common.Address, reward RewardConfig) error {
	return h.owned(caller, func() error {
		if h.distributor != nil {
			return ErrAlreadySetUp
		}
		if err := reward.validate(h.base()); err != nil {
			return err
		}
		tok, err := h.tokens.Get(reward.Token)
		if err != nil {
			return err
		}
		d, err := h.newDistributor(h.distributorAddress, tok)
		if err != nil {
			return err
		}
		state.Set(h.journal, &h.distributor, d)
		state.Set(h.journal, &h.reward, reward)
		return h.ConfigureDividendHolders(caller, h.Holders())
	})
}

func (h *H2O) newDistributor(addr common.Address, reward ledger.Token) (*dividend.Distributor, error) {
	d, err := dividend.New(dividend.Config{
		Journal:     h.journal,
		Logger:      h.log,
		Clock:       h.clock,
		Address:     addr,
		Controller:  h.Address(),
		RewardToken: reward,
		MinPeriod:   dividend.DefaultMinPeriod,
	})
	if err != nil {
		return nil, fmt.Errorf("creating distributor: %w", err)
	}
	h.fees.Policy().Set(addr, fees.AllExempt, true)
	return d, nil
}

// RedeployDistributor replaces the distributor with a fresh one at addr
// paying the same reward token. Shares start empty; restore them with
// ConfigureDividendHolders.
func (h *H2O) RedeployDistributor(caller, addr common.Address) error {
	return h.owned(caller, func() error {
		if h.distributor == nil {
			return ErrNotSetUp
		}
		d, err := h.newDistributor(addr, h.distributor.RewardToken())
		if err != nil {
			return err
		}
		h.log.Info("distributor redeployed", "old", h.distributorAddress.Hex(), "new", addr.Hex())
		state.Set(h.journal, &h.distributor, d)
		state.Set(h.journal, &h.distributorAddress, addr)
		return nil
	})
}

// ConfigureDividendHolders sets every listed non-exempt holder's share to
// its balance.
func (h *H2O) ConfigureDividendHolders(caller common.Address, holders []common.Address) error {
	return h.owned(caller, func() error {
		if h.distributor == nil {
			return ErrNotSetUp
		}
		for _, holder := range holders {
			if h.fees.Policy().Is(holder, fees.DividendExempt) {
				continue
			}
			if err := h.distributor.SetShare(h.Address(), holder, h.BalanceOf(holder)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (h *H2O) SetTargetLiquidity(caller common.Address, numerator, denominator uint64) error {
	return h.owned(caller, func() error {
		if denominator == 0 {
			return ErrInvalidTarget
		}
		state.Set(h.journal, &h.target, Target{Numerator: numerator, Denominator: denominator})
		return nil
	})
}

func (h *H2O) SetDistributionCriteria(caller common.Address, minPeriod time.Duration, minDistribution *uint256.Int) error {
	return h.owned(caller, func() error {
		if h.distributor == nil {
			return ErrNotSetUp
		}
		return h.distributor.SetDistributionCriteria(h.Address(), minPeriod, minDistribution)
	})
}

func (h *H2O) SetDistributorGas(caller common.Address, gas uint64) error {
	return h.owned(caller, func() error {
		if gas >= MaxDistributorGas {
			return ErrGasTooHigh
		}
		state.Set(h.journal, &h.distributorGas, gas)
		return nil
	})
}

// SetRewardToken switches the dividend token. The distributor's reward
// balance is sold into the base asset on the old reward router and bought
// into the new token on the new one.
func (h *H2O) SetRewardToken(caller common.Address, next RewardConfig) error {
	return h.owned(caller, func() error {
		if h.distributor == nil {
			return ErrNotSetUp
		}
		if err := next.validate(h.base()); err != nil {
			return err
		}
		tok, err := h.tokens.Get(next.Token)
		if err != nil {
			return err
		}
		prev := h.reward
		convert := func(holder common.Address, from, to ledger.Token, amount *uint256.Int) error {
			got, err := amm.Route(prev.Router, h.tokens, holder, amount, prev.toBase(h.base()), holder)
			if err != nil {
				return err
			}
			_, err = amm.Route(next.Router, h.tokens, holder, got, next.toReward(h.base()), holder)
			return err
		}
		if err := h.distributor.SetRewardToken(h.Address(), tok, convert); err != nil {
			return err
		}
		state.Set(h.journal, &h.reward, next)
		return nil
	})
}

// ChangeLiquidityPair points the token at pair on router. Liquidity itself
// is moved by the migrator.
func (h *H2O) ChangeLiquidityPair(caller common.Address, router amm.Router, pair common.Address, pairedToBase []common.Address) error {
	return h.owned(caller, func() error {
		t0, t1, ok := router.PairTokens(pair)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPair, pair.Hex())
		}
		var paired common.Address
		switch h.Address() {
		case t0:
			paired = t1
		case t1:
			paired = t0
		default:
			return fmt.Errorf("%w: %s does not hold %s", ErrUnknownPair, pair.Hex(), h.Symbol())
		}
		if paired == router.WETH() {
			pairedToBase = []common.Address{paired}
		}
		if err := amm.CheckPath(pairedToBase, paired, router.WETH()); err != nil {
			return err
		}

		h.fees.SetPair(h.pair, false)
		h.fees.SetPair(pair, true)
		h.fees.Policy().Set(pair, fees.DividendExempt|fees.WalletLimitExempt, true)
		h.fees.Policy().Set(router.Address(), fees.WalletLimitExempt, true)
		if h.distributor != nil {
			if err := h.distributor.SetShare(h.Address(), pair, new(uint256.Int)); err != nil {
				return err
			}
		}
		h.ledger.Approve(h.Address(), router.Address(), ledger.MaxUint256)

		h.log.Info("liquidity pair changed", "old", h.pair.Hex(), "new", pair.Hex(),
			"router", router.Address().Hex())
		state.Set(h.journal, &h.router, router)
		state.Set(h.journal, &h.pair, pair)
		state.Set(h.journal, &h.paired, paired)
		state.Set(h.journal, &h.pairedToBase, pairedToBase)
		return nil
	})
}

// Process pays holders from the distributor cursor within gas.
func (h *H2O) Process(gas uint64) (dividend.Result, error) {
	if h.distributor == nil {
		return dividend.Result{}, ErrNotSetUp
	}
	var res dividend.Result
	err := h.journal.Atomic(func() error {
		var err error
		res, err = h.distributor.Process(gas)
		return err
	})
	return res, err
}

// Claim pays holder its unpaid dividends.
func (h *H2O) Claim(holder common.Address) (*uint256.Int, error) {
	if h.distributor == nil {
		return nil, ErrNotSetUp
	}
	var paid *uint256.Int
	err := h.journal.Atomic(func() error {
		var err error
		paid, err = h.distributor.Claim(holder)
		return err
	})
	return paid, err
}

// LiquidityBacking is accuracy * 2 * balance(pair) / circulating supply.
func (h *H2O) LiquidityBacking(accuracy uint64) *uint256.Int {
	circ := h.CirculatingSupply()
	if circ.IsZero() {
		return new(uint256.Int)
	}
	n := new(uint256.Int).Mul(uint256.NewInt(accuracy), h.BalanceOf(h.pair))
	n.Mul(n, uint256.NewInt(2))
	return n.Div(n, circ)
}

// IsOverLiquified reports whether the pool backing exceeds the target.
func (h *H2O) IsOverLiquified() bool {
	return h.LiquidityBacking(h.target.Denominator).Gt(uint256.NewInt(h.target.Numerator))
}

func (h *H2O) canSwapBack() bool { return h.distributor != nil }

func (h *H2O) setShare(holder common.Address, amount *uint256.Int) error {
	if h.distributor == nil {
		return nil
	}
	return h.distributor.SetShare(h.Address(), holder, amount)
}

func (h *H2O) afterTransfer() {
	if h.distributor == nil || h.distributorGas == 0 {
		return
	}
	if err := h.journal.Atomic(func() error {
		_, err := h.distributor.Process(h.distributorGas)
		return err
	}); err != nil {
		h.log.Warn("dividend processing failed", "error", err)
	}
}

// swapBack sells swapThreshold tokens and routes the proceeds.
func (h *H2O) swapBack() error {
	amount := h.swapThreshold.Clone()
	liq, refl, treas := h.weights()
	if h.IsOverLiquified() {
		liq.Clear()
	}
	total := new(uint256.Int).Add(liq, refl)
	total.Add(total, treas)
	if total.IsZero() {
		return nil
	}

	toLiquify, _ := new(uint256.Int).MulDivOverflow(amount, liq, total)
	toLiquify.Rsh(toLiquify, 1)
	toSwap := new(uint256.Int).Sub(amount, toLiquify)

	received, err := amm.Route(h.router, h.tokens, h.Address(), toSwap,
		[]common.Address{h.Address(), h.paired}, h.Address())
	if err != nil {
		return fmt.Errorf("selling fees: %w", err)
	}

	// Half of the liquidity share stayed in the token, so the paired proceeds
	// split over total - liq/2.
	pairedTotal := new(uint256.Int).Sub(total, new(uint256.Int).Rsh(liq, 1))
	forLiq, _ := new(uint256.Int).MulDivOverflow(received, liq, pairedTotal)
	forLiq.Rsh(forLiq, 1)
	forRefl, _ := new(uint256.Int).MulDivOverflow(received, refl, pairedTotal)
	forTreas := new(uint256.Int).Sub(received, forLiq)
	forTreas.Sub(forTreas, forRefl)

	if !forRefl.IsZero() {
		if err := h.payReflection(forRefl); err != nil {
			return fmt.Errorf("reflection: %w", err)
		}
	}
	if !forTreas.IsZero() {
		if _, err := amm.Route(h.router, h.tokens, h.Address(), forTreas, h.pairedToBase, h.treasury); err != nil {
			return fmt.Errorf("treasury: %w", err)
		}
	}
	if !toLiquify.IsZero() && !forLiq.IsZero() {
		pairedTok, err := h.tokens.Get(h.paired)
		if err != nil {
			return err
		}
		if err := amm.Allow(pairedTok, h.Address(), h.router.Address(), forLiq); err != nil {
			return err
		}
		added, err := h.router.AddLiquidity(h.Address(), h.Address(), h.paired, toLiquify, forLiq, h.autoLiquidityReceiver)
		if err != nil {
			return fmt.Errorf("adding liquidity: %w", err)
		}
		h.log.Debug("auto liquidity", "token", added.AmountA.ToBig(), "paired", added.AmountB.ToBig(),
			"lp", added.LP.ToBig())
	}

	h.drainBuckets(amount)
	h.log.Debug("swap back", "amount", amount.ToBig(), "received", received.ToBig(),
		"reflection", forRefl.ToBig(), "treasury", forTreas.ToBig())
	return nil
}

// payReflection converts paired tokens into the reward token, hands them to
// the distributor and deposits them. A failed deposit leaves the tokens with
// the distributor.
func (h *H2O) payReflection(amount *uint256.Int) error {
	base, err := amm.Route(h.router, h.tokens, h.Address(), amount, h.pairedToBase, h.Address())
	if err != nil {
		return err
	}
	d := h.distributor
	got, err := amm.Route(h.reward.Router, h.tokens, h.Address(), base, h.reward.toReward(h.base()), d.Address())
	if err != nil {
		return err
	}
	if err := h.journal.Atomic(func() error { return d.Deposit(h.Address(), got) }); err != nil {
		h.log.Warn("dividend deposit failed", "amount", got.ToBig(), "error", err)
	}
	return nil
}
