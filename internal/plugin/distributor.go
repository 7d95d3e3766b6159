package plugin

import (
	"errors"
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

// DefaultDepositThreshold is the token balance below which SwapBack waits.
var DefaultDepositThreshold = ledger.Units(1, 18)

type reward struct {
	token         common.Address
	router        amm.Router
	tokenToReward []common.Address
	rewardToBase  []common.Address
	baseToReward  []common.Address
}

// Distributor sells its tokens for the reward token and pays them out to
// holders through a dividend distributor it controls.
type Distributor struct {
	base

	clock clockwork.Clock

	baseRouter  amm.Router
	tokenToBase []common.Address
	baseToToken []common.Address

	reward           reward
	dividends        *dividend.Distributor
	depositThreshold uint256.Int
}

// NewDistributor returns a distributor plugin. It pays nothing until
// SetupBaseRouter and SetupRewardToken have run.
func NewDistributor(cfg Config, clock clockwork.Clock) (*Distributor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Distributor{
		base:             newBase(cfg, "distributor-plugin"),
		clock:            clock,
		depositThreshold: *DefaultDepositThreshold,
	}, nil
}

func (d *Distributor) Kind() token.Kind { return token.KindDistributor }

// Dividends exposes the underlying distributor, nil before SetupRewardToken.
func (d *Distributor) Dividends() *dividend.Distributor { return d.dividends }

func (d *Distributor) RewardToken() common.Address    { return d.reward.token }
func (d *Distributor) DepositThreshold() *uint256.Int { return d.depositThreshold.Clone() }

// SetupBaseRouter sets the router and paths between the token and the base asset.
func (d *Distributor) SetupBaseRouter(caller common.Address, router amm.Router, tokenToBase, baseToToken []common.Address) error {
	return d.owned(caller, func() error {
		if err := amm.CheckPath(tokenToBase, d.token, router.WETH()); err != nil {
			return fmt.Errorf("token to base: %w", err)
		}
		if err := amm.CheckPath(baseToToken, router.WETH(), d.token); err != nil {
			return fmt.Errorf("base to token: %w", err)
		}
		state.Set(d.journal, &d.baseRouter, router)
		state.Set(d.journal, &d.tokenToBase, tokenToBase)
		state.Set(d.journal, &d.baseToToken, baseToToken)
		return nil
	})
}

// SetupRewardToken selects the token dividends are paid in. The first call
// creates the dividend distributor; later calls convert its balance into the
// new reward token.
func (d *Distributor) SetupRewardToken(caller, rewardToken common.Address, router amm.Router,
	tokenToReward, rewardToBase, baseToReward []common.Address,
) error {
	return d.owned(caller, func() error {
		if d.baseRouter == nil {
			return fmt.Errorf("%w: base router", ErrNotConfigured)
		}
		baseAsset := d.baseRouter.WETH()
		if rewardToken == baseAsset {
			rewardToBase = []common.Address{baseAsset}
			baseToReward = []common.Address{baseAsset}
		}
		if err := amm.CheckPath(tokenToReward, d.token, rewardToken); err != nil {
			return fmt.Errorf("token to reward: %w", err)
		}
		if err := amm.CheckPath(rewardToBase, rewardToken, baseAsset); err != nil {
			return fmt.Errorf("reward to base: %w", err)
		}
		if err := amm.CheckPath(baseToReward, baseAsset, rewardToken); err != nil {
			return fmt.Errorf("base to reward: %w", err)
		}
		tok, err := d.tokens.Get(rewardToken)
		if err != nil {
			return err
		}
		next := reward{
			token:         rewardToken,
			router:        router,
			tokenToReward: tokenToReward,
			rewardToBase:  rewardToBase,
			baseToReward:  baseToReward,
		}

		if d.dividends == nil {
			dist, err := dividend.New(dividend.Config{
				Journal:     d.journal,
				Logger:      d.log,
				Clock:       d.clock,
				Address:     d.address,
				Controller:  d.address,
				RewardToken: tok,
				MinPeriod:   dividend.DefaultMinPeriod,
			})
			if err != nil {
				return err
			}
			state.Set(d.journal, &d.dividends, dist)
		} else {
			prev := d.reward
			convert := func(holder common.Address, _, _ ledger.Token, amount *uint256.Int) error {
				got, err := amm.Route(prev.router, d.tokens, holder, amount, prev.rewardToBase, holder)
				if err != nil {
					return err
				}
				_, err = amm.Route(next.router, d.tokens, holder, got, next.baseToReward, holder)
				return err
			}
			if err := d.dividends.SetRewardToken(d.address, tok, convert); err != nil {
				return err
			}
		}
		state.Set(d.journal, &d.reward, next)
		return nil
	})
}

func (d *Distributor) SetDistributionCriteria(caller common.Address, minPeriod time.Duration, minDistribution *uint256.Int) error {
	return d.owned(caller, func() error {
		if d.dividends == nil {
			return ErrNotConfigured
		}
		return d.dividends.SetDistributionCriteria(d.address, minPeriod, minDistribution)
	})
}

// SetDepositThreshold sets the token balance SwapBack needs before it sells.
func (d *Distributor) SetDepositThreshold(caller common.Address, amount *uint256.Int) error {
	return d.owned(caller, func() error {
		state.Set(d.journal, &d.depositThreshold, *amount)
		return nil
	})
}

// SetShare records holder's share. Ignored until the reward token is set up.
func (d *Distributor) SetShare(caller, holder common.Address, amount *uint256.Int) error {
	if err := d.onlyToken(caller); err != nil {
		return err
	}
	if d.dividends == nil {
		return nil
	}
	return d.dividends.SetShare(d.address, holder, amount)
}

// Process pays holders within gas. Only the token or the owner may restart
// from the first holder.
func (d *Distributor) Process(caller common.Address, gas uint64, resetCursor bool) (dividend.Result, error) {
	if d.dividends == nil {
		return dividend.Result{}, ErrNotConfigured
	}
	if resetCursor {
		if caller != d.token && !d.IsOwner(caller) {
			return dividend.Result{}, fmt.Errorf("%w: %s", ErrNotToken, caller.Hex())
		}
		d.dividends.ResetCursor()
	}
	return d.dividends.Process(gas)
}

// SwapBack sells the plugin's tokens for the reward token and deposits them.
func (d *Distributor) SwapBack(caller common.Address) error {
	if err := d.onlyToken(caller); err != nil {
		return err
	}
	if d.dividends == nil {
		return ErrNotConfigured
	}
	if d.dividends.TotalShares().IsZero() {
		return ErrNoHolders
	}
	tok, err := d.tokens.Get(d.token)
	if err != nil {
		return err
	}
	bal := tok.BalanceOf(d.address)
	if bal.IsZero() || bal.Lt(&d.depositThreshold) {
		return nil
	}
	got, err := amm.Route(d.reward.router, d.tokens, d.address, bal, d.reward.tokenToReward, d.address)
	if err != nil {
		return fmt.Errorf("buying rewards: %w", err)
	}
	if got.IsZero() {
		return errors.New("swap returned no rewards")
	}
	return d.dividends.Deposit(d.address, got)
}

// Retire sells the undistributed rewards back into the token and returns
// them together with the plugin's token balance.
func (d *Distributor) Retire(caller common.Address) error {
	if err := d.onlyToken(caller); err != nil {
		return err
	}
	if err := d.returnTokens(); err != nil {
		return err
	}
	if d.dividends == nil || d.baseRouter == nil {
		return nil
	}
	tok, err := d.tokens.Get(d.reward.token)
	if err != nil {
		return err
	}
	held := tok.BalanceOf(d.address)
	if held.IsZero() {
		return nil
	}
	baseAmount, err := amm.Route(d.reward.router, d.tokens, d.address, held, d.reward.rewardToBase, d.address)
	if err != nil {
		return fmt.Errorf("selling rewards: %w", err)
	}
	if _, err := amm.Route(d.baseRouter, d.tokens, d.address, baseAmount, d.baseToToken, d.token); err != nil {
		return fmt.Errorf("buying back: %w", err)
	}
	d.log.Info("rewards returned to token", "reward", held.ToBig())
	return nil
}
