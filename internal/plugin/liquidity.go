package plugin

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Liquidity pairs half of its tokens with the other half swapped into the
// paired asset and adds both to the pool.
type Liquidity struct {
	base

	router   amm.Router
	pair     common.Address
	paired   common.Address
	receiver common.Address
}

// NewLiquidity returns an unconfigured liquidity plugin. LP tokens go to the owner.
func NewLiquidity(cfg Config) (*Liquidity, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Liquidity{base: newBase(cfg, "liquidity-plugin"), receiver: cfg.Owner}, nil
}

func (l *Liquidity) Kind() token.Kind         { return token.KindLiquidity }
func (l *Liquidity) Router() amm.Router       { return l.router }
func (l *Liquidity) Pair() common.Address     { return l.pair }
func (l *Liquidity) Receiver() common.Address { return l.receiver }

// SetupLiquidityPair selects the pool liquidity is added to.
func (l *Liquidity) SetupLiquidityPair(caller common.Address, router amm.Router, pair common.Address) error {
	return l.owned(caller, func() error {
		t0, t1, ok := router.PairTokens(pair)
		if !ok {
			return fmt.Errorf("%w: %s", amm.ErrPairNotFound, pair.Hex())
		}
		var paired common.Address
		switch l.token {
		case t0:
			paired = t1
		case t1:
			paired = t0
		default:
			return fmt.Errorf("%w: %s does not hold the token", amm.ErrPairNotFound, pair.Hex())
		}
		state.Set(l.journal, &l.router, router)
		state.Set(l.journal, &l.pair, pair)
		state.Set(l.journal, &l.paired, paired)
		return nil
	})
}

func (l *Liquidity) SetReceiver(caller, to common.Address) error {
	return l.owned(caller, func() error {
		state.Set(l.journal, &l.receiver, to)
		return nil
	})
}

// SwapBack sells half of the plugin's tokens and adds liquidity with the
// rest. Whatever the pool does not take stays in the plugin.
func (l *Liquidity) SwapBack(caller common.Address) error {
	if err := l.onlyToken(caller); err != nil {
		return err
	}
	if l.router == nil {
		return ErrNotConfigured
	}
	tok, err := l.tokens.Get(l.token)
	if err != nil {
		return err
	}
	bal := tok.BalanceOf(l.address)
	half := new(uint256.Int).Rsh(bal, 1)
	rest := new(uint256.Int).Sub(bal, half)
	if half.IsZero() {
		return nil
	}
	got, err := amm.Route(l.router, l.tokens, l.address, half, []common.Address{l.token, l.paired}, l.address)
	if err != nil {
		return fmt.Errorf("selling half: %w", err)
	}
	if got.IsZero() {
		return nil
	}
	pairedTok, err := l.tokens.Get(l.paired)
	if err != nil {
		return err
	}
	if err := amm.Allow(tok, l.address, l.router.Address(), rest); err != nil {
		return err
	}
	if err := amm.Allow(pairedTok, l.address, l.router.Address(), got); err != nil {
		return err
	}
	added, err := l.router.AddLiquidity(l.address, l.token, l.paired, rest, got, l.receiver)
	if err != nil {
		return fmt.Errorf("adding liquidity: %w", err)
	}
	l.log.Debug("liquidity added", "token", added.AmountA.ToBig(), "paired", added.AmountB.ToBig(),
		"lp", added.LP.ToBig())
	return nil
}

// Retire returns the plugin's tokens to the token and paired leftovers to the owner.
func (l *Liquidity) Retire(caller common.Address) error {
	if err := l.onlyToken(caller); err != nil {
		return err
	}
	if err := l.returnTokens(); err != nil {
		return err
	}
	if l.paired == (common.Address{}) {
		return nil
	}
	pairedTok, err := l.tokens.Get(l.paired)
	if err != nil {
		return err
	}
	if left := pairedTok.BalanceOf(l.address); !left.IsZero() {
		return pairedTok.Transfer(l.address, l.Owner(), left)
	}
	return nil
}
