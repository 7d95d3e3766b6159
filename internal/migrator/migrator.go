// Package migrator owns the protocol's liquidity position and moves it to a
// new router behind a timelock.
package migrator

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/Mohsinsiddi/h2o/internal/timelock"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	ErrAlreadyInitialized = errors.New("liquidity already initialized")
	ErrNotInitialized     = errors.New("liquidity not initialized")
	ErrNoLiquidity        = errors.New("router minted no liquidity")
	ErrNoPosition         = errors.New("no liquidity position")
)

// Route is a router together with the token paired against H2O on it and
// the paths between that token and the router's base asset.
type Route struct {
	Router   amm.Router
	TokenB   common.Address
	ToBase   []common.Address
	FromBase []common.Address
}

func (r Route) normalize() (Route, error) {
	if r.Router == nil {
		return r, errors.New("router is required")
	}
	base := r.Router.WETH()
	if r.TokenB == base {
		r.ToBase = []common.Address{base}
		r.FromBase = []common.Address{base}
	}
	if err := amm.CheckPath(r.ToBase, r.TokenB, base); err != nil {
		return r, fmt.Errorf("to base: %w", err)
	}
	if err := amm.CheckPath(r.FromBase, base, r.TokenB); err != nil {
		return r, fmt.Errorf("from base: %w", err)
	}
	return r, nil
}

type Config struct {
	Journal *state.Journal
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Tokens  *ledger.Registry

	Address common.Address
	// Token is the H2O token whose liquidity is managed.
	Token         common.Address
	Owner         common.Address
	Router        amm.Router
	ApprovalDelay time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Tokens == nil || cfg.Router == nil {
		return errors.New("token registry and router are required")
	}
	if cfg.Address == (common.Address{}) || cfg.Token == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return errors.New("migrator, token and owner addresses are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Migration reports what UpgradeRouter did. When Recovered is set the new
// router failed, nothing was deposited, and the withdrawn tokens went back
// to the caller.
type Migration struct {
	From, To     common.Address
	TokenAmount  *uint256.Int
	TokenBAmount *uint256.Int
	LP           *uint256.Int

	Recovered bool
	Reason    error
}

// Migrator holds the LP tokens of the H2O pool.
type Migrator struct {
	access.Ownable

	journal *state.Journal
	log     *slog.Logger
	clock   clockwork.Clock
	tokens  *ledger.Registry
	address common.Address
	token   common.Address

	route       *timelock.Slot[Route]
	delay       *timelock.Delay
	initialized bool
}

func New(cfg Config) (*Migrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	delay, err := timelock.NewDelay(cfg.Journal, cfg.ApprovalDelay, 0)
	if err != nil {
		return nil, err
	}
	m := &Migrator{
		Ownable: access.NewOwnable(cfg.Journal, cfg.Owner),
		journal: cfg.Journal,
		log:     cfg.Logger.With("component", "migrator", "address", cfg.Address.Hex()),
		clock:   cfg.Clock,
		tokens:  cfg.Tokens,
		address: cfg.Address,
		token:   cfg.Token,
		delay:   delay,
	}
	m.route = timelock.NewSlot(cfg.Journal, Route{Router: cfg.Router}, nil)
	return m, nil
}

func (m *Migrator) Address() common.Address      { return m.address }
func (m *Migrator) Initialized() bool            { return m.initialized }
func (m *Migrator) Router() amm.Router           { return m.route.Current().Router }
func (m *Migrator) TokenB() common.Address       { return m.route.Current().TokenB }
func (m *Migrator) ApprovalDelay() time.Duration { return m.delay.Value() }

// RouterCandidate returns the proposed route, if any.
func (m *Migrator) RouterCandidate() (Route, bool) { return m.route.Candidate() }

// Pair is the pool of the active route.
func (m *Migrator) Pair() (common.Address, bool) {
	r := m.route.Current()
	return r.Router.GetPair(m.token, r.TokenB)
}

// LPBalance is the migrator's share of the active pool.
func (m *Migrator) LPBalance() *uint256.Int {
	lp, err := m.lpToken(m.route.Current())
	if err != nil {
		return new(uint256.Int)
	}
	return lp.BalanceOf(m.address)
}

func (m *Migrator) lpToken(r Route) (ledger.Token, error) {
	pair, ok := r.Router.GetPair(m.token, r.TokenB)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, r.Router.Address().Hex())
	}
	return m.tokens.Get(pair)
}

// InitializeLiquidity pulls baseAmount of the base asset from caller, buys
// tokenB with it and pairs that with every H2O the migrator holds.
func (m *Migrator) InitializeLiquidity(caller, tokenB common.Address, toBase, fromBase []common.Address, baseAmount *uint256.Int) (*uint256.Int, error) {
	var lp *uint256.Int
	err := m.owned(caller, func() error {
		if m.initialized {
			return ErrAlreadyInitialized
		}
		r, err := Route{Router: m.Router(), TokenB: tokenB, ToBase: toBase, FromBase: fromBase}.normalize()
		if err != nil {
			return err
		}
		base, err := m.tokens.Get(r.Router.WETH())
		if err != nil {
			return err
		}
		if err := base.TransferFrom(m.address, caller, m.address, baseAmount); err != nil {
			return fmt.Errorf("pulling base: %w", err)
		}
		if lp, err = m.deposit(r, baseAmount); err != nil {
			return err
		}
		m.route.Set(r)
		state.Set(m.journal, &m.initialized, true)
		m.log.Info("liquidity initialized", "tokenB", tokenB.Hex(), "lp", lp.ToBig())
		return nil
	})
	return lp, err
}

// deposit converts baseAmount into r.TokenB and adds it with the whole H2O
// balance to r's pool.
func (m *Migrator) deposit(r Route, baseAmount *uint256.Int) (*uint256.Int, error) {
	amountB, err := amm.Route(r.Router, m.tokens, m.address, baseAmount, r.FromBase, m.address)
	if err != nil {
		return nil, fmt.Errorf("buying %s: %w", r.TokenB.Hex(), err)
	}
	h2o, err := m.tokens.Get(m.token)
	if err != nil {
		return nil, err
	}
	tokB, err := m.tokens.Get(r.TokenB)
	if err != nil {
		return nil, err
	}
	amountH2O := h2o.BalanceOf(m.address)
	if err := amm.Allow(h2o, m.address, r.Router.Address(), amountH2O); err != nil {
		return nil, err
	}
	if err := amm.Allow(tokB, m.address, r.Router.Address(), amountB); err != nil {
		return nil, err
	}
	added, err := r.Router.AddLiquidity(m.address, m.token, r.TokenB, amountH2O, amountB, m.address)
	if err != nil {
		return nil, fmt.Errorf("adding liquidity: %w", err)
	}
	if added.LP == nil || added.LP.IsZero() {
		return nil, ErrNoLiquidity
	}
	return added.LP, nil
}

// ProposeRouter queues a new route. It can be upgraded to after the approval delay.
func (m *Migrator) ProposeRouter(caller common.Address, router amm.Router, tokenB common.Address, toBase, fromBase []common.Address) error {
	return m.owned(caller, func() error {
		r, err := Route{Router: router, TokenB: tokenB, ToBase: toBase, FromBase: fromBase}.normalize()
		if err != nil {
			return fmt.Errorf("%w: %w", timelock.ErrInvalidCandidate, err)
		}
		if err := m.route.Propose(m.clock.Now(), r); err != nil {
			return err
		}
		m.log.Info("router proposed", "router", router.Address().Hex(), "tokenB", tokenB.Hex(),
			"unlocks", m.clock.Now().Add(m.delay.Value()))
		return nil
	})
}

// UpgradeRouter moves the whole position into the candidate route. The
// withdrawal from the old pool always stands; if anything after it fails or
// the new router mints nothing, that part is undone, the withdrawn tokens
// are sent to caller and the migrator must be initialized again.
func (m *Migrator) UpgradeRouter(caller common.Address) (Migration, error) {
	var mig Migration
	err := m.owned(caller, func() error {
		if !m.initialized {
			return ErrNotInitialized
		}
		now := m.clock.Now()
		if err := m.route.Ready(now, m.delay.Value()); err != nil {
			return err
		}
		old := m.route.Current()
		next, _ := m.route.Candidate()
		mig = Migration{From: old.Router.Address(), To: next.Router.Address()}

		amountH2O, amountB, err := m.withdraw(old)
		if err != nil {
			return err
		}
		mig.TokenAmount, mig.TokenBAmount = amountH2O, amountB

		var lp *uint256.Int
		phase2 := m.journal.Atomic(func() error {
			base, err := amm.Route(old.Router, m.tokens, m.address, amountB, old.ToBase, m.address)
			if err != nil {
				return fmt.Errorf("selling %s: %w", old.TokenB.Hex(), err)
			}
			lp, err = m.deposit(next, base)
			return err
		})
		if phase2 != nil {
			mig.Recovered, mig.Reason = true, phase2
			return m.recover(caller, old)
		}
		if _, err := m.route.Upgrade(now, m.delay.Value()); err != nil {
			return err
		}
		mig.LP = lp
		m.log.Info("router upgraded", "from", mig.From.Hex(), "to", mig.To.Hex(), "lp", lp.ToBig())
		return nil
	})
	status := metrics.Status(err)
	if err == nil && mig.Recovered {
		status = metrics.StatusRecovered
	}
	metrics.GovernanceUpgradesTotal.WithLabelValues("router", status).Inc()
	return mig, err
}

// withdraw burns every LP token held in r's pool.
func (m *Migrator) withdraw(r Route) (*uint256.Int, *uint256.Int, error) {
	lp, err := m.lpToken(r)
	if err != nil {
		return nil, nil, err
	}
	liquidity := lp.BalanceOf(m.address)
	if liquidity.IsZero() {
		return nil, nil, ErrNoPosition
	}
	if err := amm.Allow(lp, m.address, r.Router.Address(), liquidity); err != nil {
		return nil, nil, err
	}
	a, b, err := r.Router.RemoveLiquidity(m.address, m.token, r.TokenB, liquidity, m.address)
	if err != nil {
		return nil, nil, fmt.Errorf("removing liquidity: %w", err)
	}
	return a, b, nil
}

// recover hands the withdrawn tokens to caller, drops the candidate and
// marks the migrator uninitialized.
func (m *Migrator) recover(caller common.Address, old Route) error {
	for _, addr := range []common.Address{m.token, old.TokenB} {
		tok, err := m.tokens.Get(addr)
		if err != nil {
			return err
		}
		if bal := tok.BalanceOf(m.address); !bal.IsZero() {
			if err := tok.Transfer(m.address, caller, bal); err != nil {
				return fmt.Errorf("returning %s: %w", tok.Symbol(), err)
			}
		}
	}
	m.route.Cancel()
	state.Set(m.journal, &m.initialized, false)
	m.log.Warn("router upgrade failed, funds returned", "to", caller.Hex())
	return nil
}

// IncreaseApprovalDelayTo lengthens the upgrade delay. It can never shrink.
func (m *Migrator) IncreaseApprovalDelayTo(caller common.Address, d time.Duration) error {
	return m.owned(caller, func() error { return m.delay.IncreaseTo(d) })
}

func (m *Migrator) owned(caller common.Address, fn func() error) error {
	return m.journal.Atomic(func() error {
		if err := m.OnlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
}
