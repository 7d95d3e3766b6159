// Package scenario drives a full Hydro launch on an in-process chain:
// deployment, airdrop claims, random trading and dividend processing.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"math/rand/v2"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/airdrop"
	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/deploy"
	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/sim"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultHolders       = 50
	DefaultTrades        = 200
	DefaultTradeInterval = 15 * time.Minute
)

var (
	Deployer = common.HexToAddress("0x00000000000000000000000000000000000d3910")
	Multisig = common.HexToAddress("0x000000000000000000000000000000000000a5a5")
	Partner  = common.HexToAddress("0x00000000000000000000000000000000000ba17e")

	// Genesis is the fake clock's starting time.
	Genesis = time.Date(2021, time.October, 1, 0, 0, 0, 0, time.UTC)

	holderBase = big.NewInt(0x10000)
)

type Config struct {
	Logger  *slog.Logger
	Holders int
	Trades  int
	Seed    int64
	// DistributorGas is spent on dividends after every transfer. Zero leaves
	// processing to Step.
	DistributorGas  uint64
	AirdropDuration time.Duration
	LiquidityBase   *uint256.Int
	TradeInterval   time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Holders < 0 || cfg.Trades < 0 {
		return fmt.Errorf("negative holders (%d) or trades (%d)", cfg.Holders, cfg.Trades)
	}
	if cfg.Holders == 0 {
		cfg.Holders = DefaultHolders
	}
	if cfg.LiquidityBase == nil {
		cfg.LiquidityBase = ledger.Units(10, 18)
	}
	if cfg.TradeInterval <= 0 {
		cfg.TradeInterval = DefaultTradeInterval
	}
	return nil
}

// Kind is the side of a trade.
type Kind string

const (
	Buy  Kind = "buy"
	Sell Kind = "sell"
)

// Trade records one swap attempt. Err is set when the swap reverted.
type Trade struct {
	Holder common.Address
	Kind   Kind
	In     *uint256.Int
	Out    *uint256.Int
	Err    error
}

// Report summarises the chain after a run.
type Report struct {
	Trades, Buys, Sells, Reverted int

	AirdropClaimed    *uint256.Int
	DividendHolders   int
	TotalDividends    *uint256.Int
	TotalDistributed  *uint256.Int
	PendingDeposits   *uint256.Int
	TreasuryBase      *uint256.Int
	PoolTokens        *uint256.Int
	LiquidityBacking  *uint256.Int
	CirculatingSupply *uint256.Int
}

// Scenario is a deployed Hydro launch with a set of funded holders.
type Scenario struct {
	cfg     Config
	log     *slog.Logger
	clock   *clockwork.FakeClock
	world   *sim.World
	router  *amm.V2Router
	dai     *ledger.Basic
	hydro   *deploy.Hydro
	v2      *deploy.V2Deployment
	holders []common.Address
	rng     *rand.Rand

	claimed *uint256.Int
	trades  []Trade
}

// New deploys the token, the airdrop and the migrator, seeds a WETH/DAI
// pool, funds every holder with WETH and uploads their airdrop allocations.
func New(cfg Config) (*Scenario, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	clock := clockwork.NewFakeClockAt(Genesis)
	w := sim.New(sim.Config{Logger: cfg.Logger, Clock: clock, Deployer: Deployer})
	s := &Scenario{
		cfg:     cfg,
		log:     cfg.Logger.With("component", "scenario"),
		clock:   clock,
		world:   w,
		router:  w.NewRouter(Deployer),
		rng:     rand.New(rand.NewPCG(uint64(cfg.Seed), uint64(cfg.Seed)^0x9e3779b97f4a7c15)),
		claimed: new(uint256.Int),
	}
	s.dai = w.NewBasic(Deployer, ledger.Meta{Name: "Dai Stablecoin", Symbol: "DAI", Decimals: 18})
	for i := range cfg.Holders {
		s.holders = append(s.holders, common.BigToAddress(new(big.Int).Add(holderBase, big.NewInt(int64(i)))))
	}

	if err := s.seedMarket(); err != nil {
		return nil, fmt.Errorf("seeding market: %w", err)
	}
	weth, dai := w.WETH().Address(), s.dai.Address()
	hydro, err := deploy.DeployHydro(w, deploy.HydroConfig{
		Deployer:        Deployer,
		Multisig:        Multisig,
		Router:          s.router,
		TokenB:          dai,
		TokenBToBase:    []common.Address{dai, weth},
		BaseToTokenB:    []common.Address{weth, dai},
		LiquidityBase:   cfg.LiquidityBase,
		AirdropDuration: cfg.AirdropDuration,
		Partner:         Partner,
		TeamLocks:       deploy.DefaultTeamLocks(Multisig),
	})
	if err != nil {
		return nil, err
	}
	s.hydro = hydro
	if err := s.configure(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Scenario) World() *sim.World           { return s.world }
func (s *Scenario) Hydro() *deploy.Hydro        { return s.hydro }
func (s *Scenario) V2() *deploy.V2Deployment    { return s.v2 }
func (s *Scenario) Holders() []common.Address   { return append([]common.Address(nil), s.holders...) }
func (s *Scenario) Trades() []Trade             { return append([]Trade(nil), s.trades...) }
func (s *Scenario) Clock() *clockwork.FakeClock { return s.clock }

// seedMarket mints the base asset, opens the WETH/DAI pool and gives every
// holder WETH to buy with.
func (s *Scenario) seedMarket() error {
	w := s.world
	return w.Call(func() error {
		if err := w.WETH().Mint(Deployer, ledger.Units(10_000, 18)); err != nil {
			return err
		}
		if err := s.dai.Mint(Deployer, ledger.Units(10_000_000, 18)); err != nil {
			return err
		}
		for _, tok := range []*ledger.Basic{w.WETH(), s.dai} {
			if err := tok.Approve(Deployer, s.router.Address(), ledger.MaxUint256); err != nil {
				return err
			}
		}
		if _, err := s.router.AddLiquidity(Deployer, w.WETH().Address(), s.dai.Address(),
			ledger.Units(1_000, 18), ledger.Units(1_000_000, 18), Deployer); err != nil {
			return err
		}
		for _, h := range s.holders {
			if err := w.WETH().Mint(h, ledger.Units(10, 18)); err != nil {
				return err
			}
			if err := w.WETH().Approve(h, s.router.Address(), ledger.MaxUint256); err != nil {
				return err
			}
		}
		return nil
	})
}

// configure sets the distributor gas, lets holders sell through the router
// and uploads the airdrop. Each holder gets an equal share capped at 1% of
// supply; the rest is allocated to the deployer.
func (s *Scenario) configure() error {
	h, ad := s.hydro.Token, s.hydro.Airdrop
	return s.world.Call(func() error {
		if err := h.SetDistributorGas(Deployer, s.cfg.DistributorGas); err != nil {
			return err
		}
		for _, holder := range s.holders {
			if err := h.Approve(holder, s.router.Address(), ledger.MaxUint256); err != nil {
				return err
			}
		}

		total := s.hydro.Split.Airdrop
		alloc := &airdrop.Allocation{}
		if n := len(s.holders); n > 0 {
			each := new(uint256.Int).Div(total, uint256.NewInt(uint64(n)))
			if limit := new(uint256.Int).Div(h.TotalSupply(), uint256.NewInt(100)); each.Gt(limit) {
				each = limit
			}
			for _, holder := range s.holders {
				alloc.Addresses = append(alloc.Addresses, holder)
				alloc.Amounts = append(alloc.Amounts, each.Clone())
			}
		}
		allocated, err := alloc.Total()
		if err != nil {
			return err
		}
		if rest := new(uint256.Int).Sub(total, allocated); !rest.IsZero() {
			alloc.Addresses = append(alloc.Addresses, Deployer)
			alloc.Amounts = append(alloc.Amounts, rest)
		}
		batches, err := alloc.Upload(ad, Deployer, 0)
		if err != nil {
			return fmt.Errorf("uploading airdrop: %w", err)
		}
		s.log.Info("airdrop uploaded", "recipients", alloc.Len(), "batches", batches)
		return ad.Start(Deployer)
	})
}

// ClaimAirdrops claims every holder's allocation. A failed claim is logged
// and skipped.
func (s *Scenario) ClaimAirdrops() int {
	ok := 0
	for _, holder := range s.holders {
		var got *uint256.Int
		err := s.world.Call(func() error {
			var err error
			got, err = s.hydro.Airdrop.ClaimAll(holder)
			return err
		})
		if err != nil {
			s.log.Warn("airdrop claim failed", "holder", holder.Hex(), "error", err)
			continue
		}
		s.claimed.Add(s.claimed, got)
		ok++
	}
	return ok
}

// Trade makes one random holder buy with WETH or sell part of their H2O,
// then advances the clock by the trade interval.
func (s *Scenario) Trade() Trade {
	defer s.clock.Advance(s.cfg.TradeInterval)

	h := s.hydro.Token
	weth, dai := s.world.WETH().Address(), s.dai.Address()
	t := Trade{Holder: s.holders[s.rng.IntN(len(s.holders))], Kind: Buy}

	bal := h.BalanceOf(t.Holder)
	if !bal.IsZero() && s.rng.IntN(3) == 0 {
		t.Kind = Sell
	}

	var path []common.Address
	switch t.Kind {
	case Buy:
		// 0.001 to 0.1 WETH
		t.In = ledger.Units(uint64(1+s.rng.IntN(100)), 15)
		path = []common.Address{weth, dai, h.Address()}
	case Sell:
		// 1% to 25% of the bag
		pct := uint64(1 + s.rng.IntN(25))
		t.In, _ = new(uint256.Int).MulDivOverflow(bal, uint256.NewInt(pct), uint256.NewInt(100))
		if t.In.IsZero() {
			t.In = bal
		}
		path = []common.Address{h.Address(), dai, weth}
	}

	t.Err = s.world.Call(func() error {
		var err error
		t.Out, err = s.router.SwapExactTokensForTokens(t.Holder, t.In, new(uint256.Int), path, t.Holder)
		return err
	})
	if t.Err != nil {
		s.log.Debug("trade reverted", "holder", t.Holder.Hex(), "kind", t.Kind, "error", t.Err)
	} else {
		s.log.Debug("trade", "holder", t.Holder.Hex(), "kind", t.Kind, "in", t.In.ToBig(), "out", t.Out.ToBig())
	}
	s.trades = append(s.trades, t)
	return t
}

// Run claims the airdrop and makes the configured number of trades.
func (s *Scenario) Run(ctx context.Context) (Report, error) {
	claims := s.ClaimAirdrops()
	s.log.Info("airdrop claimed", "holders", claims, "amount", s.claimed.ToBig())
	for i := range s.cfg.Trades {
		if err := ctx.Err(); err != nil {
			return s.Report(), fmt.Errorf("stopped after %d trades: %w", i, err)
		}
		s.Trade()
	}
	return s.Report(), nil
}

// Step runs one distributor batch with gas.
func (s *Scenario) Step(gas uint64) (dividend.Result, error) {
	var res dividend.Result
	err := s.world.Call(func() error {
		var err error
		res, err = s.hydro.Token.Process(gas)
		return err
	})
	return res, err
}

// Pending reports whether any holder is owed more than the distributor's
// minimum payout.
func (s *Scenario) Pending() bool {
	d := s.hydro.Token.Distributor()
	for _, holder := range d.Holders() {
		if d.ShouldDistribute(holder) {
			return true
		}
	}
	return false
}

// Report summarises the current chain state.
func (s *Scenario) Report() Report {
	h := s.hydro.Token
	d := h.Distributor()
	r := Report{
		AirdropClaimed:    s.claimed.Clone(),
		DividendHolders:   d.HolderCount(),
		TotalDividends:    d.TotalDividends(),
		TotalDistributed:  d.TotalDistributed(),
		PendingDeposits:   d.PendingDeposits(),
		TreasuryBase:      s.world.WETH().BalanceOf(h.Treasury()),
		PoolTokens:        h.BalanceOf(h.Pair()),
		LiquidityBacking:  h.LiquidityBacking(100),
		CirculatingSupply: h.CirculatingSupply(),
	}
	for _, t := range s.trades {
		r.Trades++
		if t.Err != nil {
			r.Reverted++
			continue
		}
		switch t.Kind {
		case Buy:
			r.Buys++
		case Sell:
			r.Sells++
		}
	}
	return r
}

// v2MinDistribution lets the small post-upgrade volume reach holders.
var v2MinDistribution = ledger.Units(1, 12)

// UpgradeReport summarises the move to the plugin generation token.
type UpgradeReport struct {
	Token common.Address
	Swap  common.Address

	Migrated, Failed int
	Swapped          *uint256.Int

	Sells, Reverted  int
	TotalDividends   *uint256.Int
	TotalDistributed *uint256.Int
	Payouts          int
	PoolTokens       *uint256.Int
}

// UpgradeToV2 deploys the plugin generation token, swaps every holder's bag
// one for one, has each holder sell a tenth of it, converts the collected
// fees through the plugins and pays one round of dividends.
func (s *Scenario) UpgradeToV2() (UpgradeReport, error) {
	var r UpgradeReport
	if s.v2 != nil {
		return r, errors.New("already upgraded")
	}
	weth, dai := s.world.WETH().Address(), s.dai.Address()
	v2, err := deploy.DeployV2(s.world, deploy.V2DeployConfig{
		Deployer:      Deployer,
		Multisig:      Multisig,
		Old:           s.hydro.Token,
		Router:        s.router,
		TokenB:        dai,
		TokenBToBase:  []common.Address{dai, weth},
		BaseToTokenB:  []common.Address{weth, dai},
		LiquidityBase: s.cfg.LiquidityBase,
	})
	if err != nil {
		return r, fmt.Errorf("deploying v2: %w", err)
	}
	s.v2 = v2
	r.Token, r.Swap = v2.Token.Address(), v2.Swap.Address()
	old, tok := s.hydro.Token, v2.Token

	for _, holder := range s.holders {
		bal := old.BalanceOf(holder)
		if bal.IsZero() {
			continue
		}
		err := s.world.Call(func() error {
			if err := old.Approve(holder, v2.Swap.Address(), bal); err != nil {
				return err
			}
			if _, err := v2.Swap.Swap(holder, bal); err != nil {
				return err
			}
			return tok.Approve(holder, s.router.Address(), ledger.MaxUint256)
		})
		if err != nil {
			s.log.Warn("token swap failed", "holder", holder.Hex(), "error", err)
			r.Failed++
			continue
		}
		r.Migrated++
	}
	r.Swapped = v2.Swap.Swapped()
	s.log.Info("holders migrated", "holders", r.Migrated, "amount", r.Swapped.ToBig())

	path := []common.Address{tok.Address(), dai, weth}
	for _, holder := range s.holders {
		in := new(uint256.Int).Div(tok.BalanceOf(holder), uint256.NewInt(10))
		if in.IsZero() {
			continue
		}
		err := s.world.Call(func() error {
			_, err := s.router.SwapExactTokensForTokens(holder, in, new(uint256.Int), path, holder)
			return err
		})
		if err != nil {
			s.log.Debug("v2 sell reverted", "holder", holder.Hex(), "error", err)
			r.Reverted++
			continue
		}
		r.Sells++
	}

	err = s.world.Call(func() error {
		if err := tok.SwapBackAll(Deployer); err != nil {
			return err
		}
		return v2.Distributor.SetDistributionCriteria(Deployer, dividend.DefaultMinPeriod, v2MinDistribution)
	})
	if err != nil {
		return r, fmt.Errorf("v2 swap back: %w", err)
	}
	s.clock.Advance(dividend.DefaultMinPeriod)
	var res dividend.Result
	err = s.world.Call(func() error {
		var err error
		res, err = tok.Process(Deployer, dividend.DefaultProcessGas, true)
		return err
	})
	if err != nil {
		return r, fmt.Errorf("v2 dividends: %w", err)
	}

	d := v2.Distributor.Dividends()
	r.Payouts = res.Payouts
	r.TotalDividends = d.TotalDividends()
	r.TotalDistributed = d.TotalDistributed()
	r.PoolTokens = tok.BalanceOf(tok.Pair())
	return r, nil
}
