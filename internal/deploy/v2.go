package deploy

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/migrator"
	"github.com/Mohsinsiddi/h2o/internal/plugin"
	"github.com/Mohsinsiddi/h2o/internal/sim"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapReservePercent of the V2 supply backs the one-for-one exchange; the
// rest seeds the V2 pool.
const SwapReservePercent = 80

type V2DeployConfig struct {
	// Deployer must own Old.
	Deployer common.Address
	// Multisig ends up owning the V2 migrator. Defaults to Deployer.
	Multisig common.Address
	Old      *token.H2O

	Router       amm.Router
	TokenB       common.Address
	TokenBToBase []common.Address
	BaseToTokenB []common.Address

	Reward       common.Address
	RewardToBase []common.Address
	BaseToReward []common.Address

	LiquidityBase *uint256.Int
	MigratorDelay time.Duration
	ApprovalDelay time.Duration
	// Fees are switched on once everything is in place. Default token.V2Fees.
	Fees fees.Config
}

func (cfg *V2DeployConfig) Validate() error {
	if cfg.Old == nil {
		return errors.New("old token is required")
	}
	if cfg.Old.Owner() != cfg.Deployer {
		return fmt.Errorf("deployer %s does not own the old token", cfg.Deployer.Hex())
	}
	if cfg.Fees.Denominator == 0 {
		cfg.Fees = token.V2Fees()
	}
	hc := HydroConfig{
		Deployer:      cfg.Deployer,
		Multisig:      cfg.Multisig,
		Router:        cfg.Router,
		TokenB:        cfg.TokenB,
		Reward:        cfg.Reward,
		LiquidityBase: cfg.LiquidityBase,
		MigratorDelay: cfg.MigratorDelay,
	}
	if err := hc.Validate(); err != nil {
		return err
	}
	cfg.Multisig, cfg.TokenB, cfg.Reward, cfg.MigratorDelay = hc.Multisig, hc.TokenB, hc.Reward, hc.MigratorDelay
	return nil
}

// V2Deployment is a deployed plugin generation system next to the first one.
type V2Deployment struct {
	Token       *token.V2
	Liquidity   *plugin.Liquidity
	Distributor *plugin.Distributor
	Swap        *migrator.TokenSwap
	Migrator    *migrator.Migrator
	LP          *uint256.Int
}

// DeployV2 deploys the plugin generation token with fees off, opens its pool,
// installs both plugins, funds the one-for-one swap from the old token,
// seeds liquidity through a new migrator and finally switches fees on. It
// runs as one call.
func DeployV2(w *sim.World, cfg V2DeployConfig) (*V2Deployment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := w.Logger().With("component", "deploy-v2")
	base := cfg.Router.WETH()
	var out V2Deployment

	err := w.Call(func() error {
		tokenAddr := w.Deploy(cfg.Deployer, "H2Ov2")
		v2, err := token.NewV2(token.V2Config{
			Config: token.Config{
				Journal: w.Journal(),
				Logger:  w.Logger(),
				Clock:   w.Clock(),
				Tokens:  w.Tokens(),
				Address: tokenAddr,
				Owner:   cfg.Deployer,
				Fees:    fees.Config{Denominator: cfg.Fees.Denominator},
			},
			ApprovalDelay: cfg.ApprovalDelay,
		})
		if err != nil {
			return fmt.Errorf("deploying token: %w", err)
		}
		out.Token = v2
		pair, err := cfg.Router.CreatePair(tokenAddr, cfg.TokenB)
		if err != nil {
			return fmt.Errorf("creating pair: %w", err)
		}
		if err := v2.SetPair(cfg.Deployer, pair); err != nil {
			return err
		}
		log.Info("token deployed", "address", tokenAddr.Hex(), "pair", pair.Hex())

		if err := out.setupPlugins(w, cfg, pair); err != nil {
			return err
		}

		supply := v2.BalanceOf(cfg.Deployer)
		reserve := percent(supply, SwapReservePercent)
		swap, err := migrator.NewTokenSwap(migrator.SwapConfig{
			Journal: w.Journal(),
			Logger:  w.Logger(),
			Address: w.Deploy(cfg.Deployer, "V2Migrator"),
			Owner:   cfg.Deployer,
			Old:     cfg.Old,
			New:     v2,
		})
		if err != nil {
			return fmt.Errorf("deploying swap: %w", err)
		}
		if err := exempt(cfg.Old, cfg.Deployer, swap.Address()); err != nil {
			return err
		}
		if err := exempt(v2, cfg.Deployer, swap.Address()); err != nil {
			return err
		}
		if err := v2.Transfer(cfg.Deployer, swap.Address(), reserve); err != nil {
			return fmt.Errorf("funding swap: %w", err)
		}
		out.Swap = swap
		log.Info("swap deployed", "address", swap.Address().Hex(), "reserve", reserve.ToBig())

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
		if err := exempt(v2, cfg.Deployer, m.Address()); err != nil {
			return err
		}
		if err := v2.Transfer(cfg.Deployer, m.Address(), v2.BalanceOf(cfg.Deployer)); err != nil {
			return fmt.Errorf("funding migrator: %w", err)
		}
		baseTok, err := w.Tokens().Get(base)
		if err != nil {
			return err
		}
		if err := baseTok.Approve(cfg.Deployer, m.Address(), cfg.LiquidityBase); err != nil {
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

		if err := v2.SetFees(cfg.Deployer, cfg.Fees); err != nil {
			return fmt.Errorf("turning on fees: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// setupPlugins deploys and installs the liquidity and distributor plugins.
func (out *V2Deployment) setupPlugins(w *sim.World, cfg V2DeployConfig, pair common.Address) error {
	v2 := out.Token
	pcfg := plugin.Config{
		Journal: w.Journal(),
		Logger:  w.Logger(),
		Tokens:  w.Tokens(),
		Address: w.Deploy(cfg.Deployer, "H2OLiquidityPlugin"),
		Token:   v2.Address(),
		Owner:   cfg.Deployer,
	}
	liq, err := plugin.NewLiquidity(pcfg)
	if err != nil {
		return fmt.Errorf("deploying liquidity plugin: %w", err)
	}
	if err := liq.SetupLiquidityPair(cfg.Deployer, cfg.Router, pair); err != nil {
		return err
	}

	pcfg.Address = w.Deploy(cfg.Deployer, "H2ODistributorPlugin")
	dist, err := plugin.NewDistributor(pcfg, w.Clock())
	if err != nil {
		return fmt.Errorf("deploying distributor plugin: %w", err)
	}
	tokenToBase := v2Path(v2.Address(), cfg.TokenB, cfg.TokenBToBase, cfg.Router.WETH())
	baseToToken := append(pathFromBase(cfg.BaseToTokenB, cfg.Router.WETH(), cfg.TokenB), v2.Address())
	if err := dist.SetupBaseRouter(cfg.Deployer, cfg.Router, tokenToBase, baseToToken); err != nil {
		return err
	}
	tokenToReward := tokenToBase
	if cfg.Reward != cfg.Router.WETH() && len(cfg.BaseToReward) > 0 {
		tokenToReward = append(append([]common.Address(nil), tokenToBase...), cfg.BaseToReward[1:]...)
	}
	if err := dist.SetupRewardToken(cfg.Deployer, cfg.Reward, cfg.Router, tokenToReward, cfg.RewardToBase, cfg.BaseToReward); err != nil {
		return err
	}

	if err := v2.SetupPlugin(cfg.Deployer, token.KindLiquidity, liq); err != nil {
		return err
	}
	if err := v2.SetupPlugin(cfg.Deployer, token.KindDistributor, dist); err != nil {
		return err
	}
	out.Liquidity, out.Distributor = liq, dist
	return nil
}

// v2Path prefixes the token to tokenB's route into the base asset.
func v2Path(tok, tokenB common.Address, toBase []common.Address, base common.Address) []common.Address {
	if tokenB == base {
		return []common.Address{tok, base}
	}
	return append([]common.Address{tok}, toBase...)
}

func pathFromBase(fromBase []common.Address, base, tokenB common.Address) []common.Address {
	if tokenB == base {
		return []common.Address{base}
	}
	return append([]common.Address(nil), fromBase...)
}
