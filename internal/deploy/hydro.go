// Package deploy sequences contract construction on a simulated chain the
// way the production rollout did it.
package deploy

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/airdrop"
	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/migrator"
	"github.com/Mohsinsiddi/h2o/internal/sim"
	"github.com/Mohsinsiddi/h2o/internal/timelock"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Week is the default airdrop length and migrator approval delay.
const Week = 7 * 24 * time.Hour

// Shares of the deployer's supply, in percent. The team keeps the rest.
const (
	LiquidityPercent = 20
	AirdropPercent   = 75
	// PartnerPercent and TeamLockPercent are carved out of the team share.
	PartnerPercent  = 1
	TeamLockPercent = 1
)

var ErrTeamShareExceeded = errors.New("partner and team locks exceed the team share")

// TeamLock is one vested team allocation of TeamLockPercent.
type TeamLock struct {
	Beneficiary common.Address
	// Release is measured from deployment.
	Release time.Duration
}

// DefaultTeamLocks vests four allocations to beneficiary after three, six,
// nine and twelve months.
func DefaultTeamLocks(beneficiary common.Address) []TeamLock {
	const day = 24 * time.Hour
	return []TeamLock{
		{Beneficiary: beneficiary, Release: 90 * day},
		{Beneficiary: beneficiary, Release: 180 * day},
		{Beneficiary: beneficiary, Release: 270 * day},
		{Beneficiary: beneficiary, Release: 365 * day},
	}
}

var ErrZeroBalance = errors.New("deployer balance is zero")

type HydroConfig struct {
	Deployer common.Address
	// Multisig ends up owning the migrator. Defaults to Deployer.
	Multisig common.Address

	Router amm.Router
	// TokenB is paired against H2O. Defaults to the router's base.
	TokenB       common.Address
	TokenBToBase []common.Address
	BaseToTokenB []common.Address

	// Reward is paid out as dividends. Defaults to the router's base.
	Reward       common.Address
	RewardToBase []common.Address
	BaseToReward []common.Address

	// LiquidityBase is the base asset the deployer spends on the initial pool.
	LiquidityBase   *uint256.Int
	AirdropDuration time.Duration
	MigratorDelay   time.Duration

	// Partner receives PartnerPercent when set.
	Partner   common.Address
	TeamLocks []TeamLock
}

func (cfg *HydroConfig) Validate() error {
	if cfg.Deployer == (common.Address{}) {
		return errors.New("deployer is required")
	}
	if cfg.Router == nil {
		return errors.New("router is required")
	}
	if cfg.LiquidityBase == nil || cfg.LiquidityBase.IsZero() {
		return errors.New("liquidity base amount is required")
	}
	base := cfg.Router.WETH()
	if cfg.Multisig == (common.Address{}) {
		cfg.Multisig = cfg.Deployer
	}
	if cfg.TokenB == (common.Address{}) {
		cfg.TokenB = base
	}
	if cfg.Reward == (common.Address{}) {
		cfg.Reward = base
	}
	if cfg.AirdropDuration == 0 {
		cfg.AirdropDuration = Week
	}
	if cfg.MigratorDelay == 0 {
		cfg.MigratorDelay = Week
	}
	carved := len(cfg.TeamLocks) * TeamLockPercent
	if cfg.Partner != (common.Address{}) {
		carved += PartnerPercent
	}
	if carved > 100-LiquidityPercent-AirdropPercent {
		return fmt.Errorf("%w: %d%%", ErrTeamShareExceeded, carved)
	}
	for i, l := range cfg.TeamLocks {
		if l.Beneficiary == (common.Address{}) || l.Release <= 0 {
			return fmt.Errorf("team lock %d: beneficiary and a positive release are required", i)
		}
	}
	return nil
}

// Split divides a balance between liquidity, airdrop and team.
type Split struct {
	Liquidity *uint256.Int
	Airdrop   *uint256.Int
	Team      *uint256.Int
}

func SplitSupply(balance *uint256.Int) Split {
	s := Split{Liquidity: percent(balance, LiquidityPercent), Airdrop: percent(balance, AirdropPercent)}
	s.Team = new(uint256.Int).Sub(balance, s.Liquidity)
	s.Team.Sub(s.Team, s.Airdrop)
	return s
}

func percent(amount *uint256.Int, p uint64) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(p), uint256.NewInt(100))
	return out
}

// Hydro is a deployed first generation system.
type Hydro struct {
	Token    *token.H2O
	Airdrop  *airdrop.Airdrop
	Migrator *migrator.Migrator
	// Vaults follow the order of HydroConfig.TeamLocks.
	Vaults []*timelock.Vault
	Split  Split
	LP     *uint256.Int
}

// DeployHydro deploys and sets up H2O, funds the airdrop and the migrator,
// seeds the pool and hands the migrator to the multisig. Team locks and the
// partner share are then paid out of the team share. The deployer must
// hold LiquidityBase of the base asset. It runs as one call: any failure
// leaves no state behind.
func DeployHydro(w *sim.World, cfg HydroConfig) (*Hydro, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := w.Logger().With("component", "deploy")
	var out Hydro

	err := w.Call(func() error {
		tokenAddr := w.Deploy(cfg.Deployer, "H2O")
		h, err := token.NewH2O(token.H2OConfig{
			Config: token.Config{
				Journal: w.Journal(),
				Logger:  w.Logger(),
				Clock:   w.Clock(),
				Tokens:  w.Tokens(),
				Address: tokenAddr,
				Owner:   cfg.Deployer,
			},
			Router:             cfg.Router,
			Paired:             cfg.TokenB,
			PairedToBase:       cfg.TokenBToBase,
			DistributorAddress: w.Deploy(tokenAddr, "DividendDistributor"),
		})
		if err != nil {
			return fmt.Errorf("deploying token: %w", err)
		}
		log.Info("token deployed", "address", tokenAddr.Hex(), "pair", h.Pair().Hex())
		if err := h.Setup(cfg.Deployer, token.RewardConfig{
			Token:        cfg.Reward,
			Router:       cfg.Router,
			BaseToReward: cfg.BaseToReward,
			RewardToBase: cfg.RewardToBase,
		}); err != nil {
			return fmt.Errorf("token setup: %w", err)
		}
		out.Token = h

		bal := h.BalanceOf(cfg.Deployer)
		if bal.IsZero() {
			return ErrZeroBalance
		}
		out.Split = SplitSupply(bal)
		log.Info("token amounts", "liquidity", out.Split.Liquidity.ToBig(),
			"airdrop", out.Split.Airdrop.ToBig(), "team", out.Split.Team.ToBig())

		ad, err := airdrop.New(airdrop.Config{
			Journal:  w.Journal(),
			Logger:   w.Logger(),
			Clock:    w.Clock(),
			Address:  w.Deploy(cfg.Deployer, "Airdrop"),
			Token:    h,
			Owner:    cfg.Deployer,
			Duration: cfg.AirdropDuration,
		})
		if err != nil {
			return fmt.Errorf("deploying airdrop: %w", err)
		}
		if err := exempt(h, cfg.Deployer, ad.Address()); err != nil {
			return err
		}
		if err := h.Transfer(cfg.Deployer, ad.Address(), out.Split.Airdrop); err != nil {
			return fmt.Errorf("funding airdrop: %w", err)
		}
		out.Airdrop = ad
		log.Info("airdrop deployed", "address", ad.Address().Hex())

		m, err := migrator.New(migrator.Config{
			Journal:       w.Journal(),
			Logger:        w.Logger(),
			Clock:         w.Clock(),
			Tokens:        w.Tokens(),
			Address:       w.Deploy(cfg.Deployer, "LPMigrator"),
			Token:         tokenAddr,
			Owner:         cfg.Deployer,
			Router:        cfg.Router,
			ApprovalDelay: cfg.MigratorDelay,
		})
		if err != nil {
			return fmt.Errorf("deploying migrator: %w", err)
		}
		if err := exempt(h, cfg.Deployer, m.Address()); err != nil {
			return err
		}
		if err := h.Transfer(cfg.Deployer, m.Address(), out.Split.Liquidity); err != nil {
			return fmt.Errorf("funding migrator: %w", err)
		}
		base, err := w.Tokens().Get(cfg.Router.WETH())
		if err != nil {
			return err
		}
		if err := base.Approve(cfg.Deployer, m.Address(), cfg.LiquidityBase); err != nil {
			return err
		}
		if out.LP, err = m.InitializeLiquidity(cfg.Deployer, cfg.TokenB, cfg.TokenBToBase, cfg.BaseToTokenB, cfg.LiquidityBase); err != nil {
			return fmt.Errorf("initializing liquidity: %w", err)
		}
		if cfg.Multisig != cfg.Deployer {
			if err := m.TransferOwnership(cfg.Deployer, cfg.Multisig); err != nil {
				return err
			}
		}
		out.Migrator = m
		log.Info("migrator deployed", "address", m.Address().Hex(), "owner", cfg.Multisig.Hex())

		share := percent(bal, TeamLockPercent)
		for i, l := range cfg.TeamLocks {
			addr := w.Deploy(cfg.Deployer, fmt.Sprintf("TokenTimelock%d", i+1))
			v, err := timelock.NewVault(addr, h, l.Beneficiary, w.Now().Add(l.Release), w.Clock(), w.Logger())
			if err != nil {
				return fmt.Errorf("deploying team lock %d: %w", i+1, err)
			}
			if err := exempt(h, cfg.Deployer, addr); err != nil {
				return err
			}
			// Vested allocations together exceed the bag size.
			if err := h.SetIsWalletLimitExempt(cfg.Deployer, l.Beneficiary, true); err != nil {
				return err
			}
			if err := h.Transfer(cfg.Deployer, addr, share); err != nil {
				return fmt.Errorf("funding team lock %d: %w", i+1, err)
			}
			out.Vaults = append(out.Vaults, v)
			log.Info("team lock deployed", "address", addr.Hex(), "release", v.ReleaseTime().UTC().Format(time.RFC3339))
		}
		if cfg.Partner != (common.Address{}) {
			if err := h.Transfer(cfg.Deployer, cfg.Partner, percent(bal, PartnerPercent)); err != nil {
				return fmt.Errorf("funding partner: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// exemptible is implemented by both token generations.
type exemptible interface {
	SetIsDividendExempt(caller, holder common.Address, exempt bool) error
	SetIsFeeExempt(caller, holder common.Address, exempt bool) error
	SetIsWalletLimitExempt(caller, holder common.Address, exempt bool) error
}

// exempt frees addr from dividends, fees and the wallet limit.
func exempt(h exemptible, owner, addr common.Address) error {
	setters := []func(caller, holder common.Address, exempt bool) error{
		h.SetIsDividendExempt,
		h.SetIsFeeExempt,
		h.SetIsWalletLimitExempt,
	}
	for _, set := range setters {
		if err := set(owner, addr, true); err != nil {
			return fmt.Errorf("exempting %s: %w", addr.Hex(), err)
		}
	}
	return nil
}
