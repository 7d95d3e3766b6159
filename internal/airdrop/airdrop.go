// Package airdrop is a claim registry: the owner allocates token amounts,
// funds the registry, opens a claim window, and sweeps what is left once the
// window closes.
package airdrop

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

var (
	ErrNotStarted            = errors.New("airdrop not started")
	ErrAlreadyStarted        = errors.New("airdrop already started")
	ErrNotEnded              = errors.New("airdrop not ended")
	ErrEnded                 = errors.New("airdrop ended")
	ErrIncorrectTokenBalance = errors.New("incorrect token balance")
	ErrAmountBelowClaimed    = errors.New("new amount cannot be smaller than claimed amount")
	ErrNoAllocation          = errors.New("no airdrop")
	ErrAlreadyClaimed        = errors.New("already claimed")
	ErrAmountTooLarge        = errors.New("too big amount")
	ErrZeroAmount            = errors.New("amount is zero")
	ErrLengthMismatch        = errors.New("addresses and amounts differ in length")
)

// Phase is the claim window state.
type Phase int

const (
	NotStarted Phase = iota
	Started
	Ended
)

func (p Phase) String() string {
	switch p {
	case Started:
		return "started"
	case Ended:
		return "ended"
	default:
		return "not started"
	}
}

// Entry is one recipient's allocation. Claimed never exceeds Allocated.
type Entry struct {
	Allocated uint256.Int
	Claimed   uint256.Int
}

// Remaining is what the recipient can still claim.
func (e Entry) Remaining() *uint256.Int {
	return new(uint256.Int).Sub(&e.Allocated, &e.Claimed)
}

type Config struct {
	Journal  *state.Journal
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Address  common.Address
	Token    ledger.Token
	Owner    common.Address
	Duration time.Duration
}

func (cfg *Config) Validate() error {
	if cfg.Token == nil {
		return errors.New("token is required")
	}
	if cfg.Address == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return errors.New("airdrop and owner addresses are required")
	}
	if cfg.Duration <= 0 {
		return errors.New("duration must be positive")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	return nil
}

// Airdrop holds the allocations and the tokens that back them.
type Airdrop struct {
	access.Ownable

	journal  *state.Journal
	log      *slog.Logger
	clock    clockwork.Clock
	address  common.Address
	token    ledger.Token
	duration time.Duration

	entries      map[common.Address]Entry
	recipients   []common.Address
	totalPending uint256.Int
	startedAt    time.Time
	started      bool
}

func New(cfg Config) (*Airdrop, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Airdrop{
		Ownable:  access.NewOwnable(cfg.Journal, cfg.Owner),
		journal:  cfg.Journal,
		log:      cfg.Logger.With("component", "airdrop", "address", cfg.Address.Hex()),
		clock:    cfg.Clock,
		address:  cfg.Address,
		token:    cfg.Token,
		duration: cfg.Duration,
		entries:  make(map[common.Address]Entry),
	}, nil
}

func (a *Airdrop) Address() common.Address    { return a.address }
func (a *Airdrop) Token() ledger.Token        { return a.token }
func (a *Airdrop) Duration() time.Duration    { return a.duration }
func (a *Airdrop) StartedAt() time.Time       { return a.startedAt }
func (a *Airdrop) TotalPending() *uint256.Int { return a.totalPending.Clone() }

// EndsAt is zero before Start.
func (a *Airdrop) EndsAt() time.Time {
	if !a.started {
		return time.Time{}
	}
	return a.startedAt.Add(a.duration)
}

func (a *Airdrop) Phase() Phase {
	switch {
	case !a.started:
		return NotStarted
	case a.clock.Now().Before(a.EndsAt()):
		return Started
	default:
		return Ended
	}
}

func (a *Airdrop) Entry(recipient common.Address) Entry { return a.entries[recipient] }

// Recipients lists every address ever allocated, in allocation order.
func (a *Airdrop) Recipients() []common.Address {
	return append([]common.Address(nil), a.recipients...)
}

// Update sets recipient's allocation to amount.
func (a *Airdrop) Update(caller, recipient common.Address, amount *uint256.Int) error {
	return a.owned(caller, func() error {
		if err := a.update(recipient, amount); err != nil {
			return err
		}
		return a.checkFunded()
	})
}

// MassUpdate sets many allocations at once.
func (a *Airdrop) MassUpdate(caller common.Address, recipients []common.Address, amounts []*uint256.Int) error {
	return a.owned(caller, func() error {
		if len(recipients) != len(amounts) {
			return fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(recipients), len(amounts))
		}
		for i, r := range recipients {
			if err := a.update(r, amounts[i]); err != nil {
				return fmt.Errorf("entry %d (%s): %w", i, r.Hex(), err)
			}
		}
		return a.checkFunded()
	})
}

func (a *Airdrop) update(recipient common.Address, amount *uint256.Int) error {
	e, known := a.entries[recipient]
	if amount.Lt(&e.Claimed) {
		return fmt.Errorf("%w: %s < %s", ErrAmountBelowClaimed, amount.ToBig(), e.Claimed.ToBig())
	}
	pending := new(uint256.Int).Sub(&a.totalPending, e.Remaining())
	pending.Add(pending, new(uint256.Int).Sub(amount, &e.Claimed))
	state.Set(a.journal, &a.totalPending, *pending)

	e.Allocated = *amount.Clone()
	state.SetKey(a.journal, a.entries, recipient, e)
	if !known {
		state.Set(a.journal, &a.recipients, append(a.recipients, recipient))
	}
	return nil
}

// checkFunded requires a running airdrop to hold enough tokens for every
// pending claim.
func (a *Airdrop) checkFunded() error {
	if !a.started {
		return nil
	}
	if bal := a.token.BalanceOf(a.address); bal.Lt(&a.totalPending) {
		return fmt.Errorf("%w: holds %s, owes %s", ErrIncorrectTokenBalance, bal.ToBig(), a.totalPending.ToBig())
	}
	return nil
}

// Start opens the claim window. The registry must hold exactly the pending total.
func (a *Airdrop) Start(caller common.Address) error {
	return a.owned(caller, func() error {
		if a.started {
			return ErrAlreadyStarted
		}
		if bal := a.token.BalanceOf(a.address); !bal.Eq(&a.totalPending) {
			return fmt.Errorf("%w: holds %s, owes %s", ErrIncorrectTokenBalance, bal.ToBig(), a.totalPending.ToBig())
		}
		state.Set(a.journal, &a.started, true)
		state.Set(a.journal, &a.startedAt, a.clock.Now())
		a.log.Info("airdrop started", "recipients", len(a.recipients), "pending", a.totalPending.ToBig(),
			"ends", a.EndsAt())
		return nil
	})
}

// Claim transfers amount of caller's remaining allocation to caller.
func (a *Airdrop) Claim(caller common.Address, amount *uint256.Int) error {
	err := a.journal.Atomic(func() error { return a.claim(caller, amount) })
	metrics.AirdropClaimsTotal.WithLabelValues(metrics.Status(err)).Inc()
	return err
}

// ClaimAll transfers caller's whole remaining allocation and returns it.
func (a *Airdrop) ClaimAll(caller common.Address) (*uint256.Int, error) {
	amount := a.entries[caller].Remaining()
	err := a.journal.Atomic(func() error { return a.claim(caller, amount) })
	metrics.AirdropClaimsTotal.WithLabelValues(metrics.Status(err)).Inc()
	if err != nil {
		return nil, err
	}
	return amount, nil
}

func (a *Airdrop) claim(caller common.Address, amount *uint256.Int) error {
	switch a.Phase() {
	case NotStarted:
		return ErrNotStarted
	case Ended:
		return ErrEnded
	}
	e, ok := a.entries[caller]
	if !ok || e.Allocated.IsZero() {
		return fmt.Errorf("%w: %s", ErrNoAllocation, caller.Hex())
	}
	remaining := e.Remaining()
	if remaining.IsZero() {
		return ErrAlreadyClaimed
	}
	if amount.Gt(remaining) {
		return fmt.Errorf("%w: %s > %s", ErrAmountTooLarge, amount.ToBig(), remaining.ToBig())
	}
	if amount.IsZero() {
		return ErrZeroAmount
	}

	e.Claimed.Add(&e.Claimed, amount)
	state.SetKey(a.journal, a.entries, caller, e)
	state.Set(a.journal, &a.totalPending, *new(uint256.Int).Sub(&a.totalPending, amount))
	if err := a.token.Transfer(a.address, caller, amount); err != nil {
		return err
	}
	a.log.Debug("claimed", "recipient", caller.Hex(), "amount", amount.ToBig())
	return nil
}

// Withdraw sweeps the registry's whole balance to `to` after the window closes.
func (a *Airdrop) Withdraw(caller, to common.Address) (*uint256.Int, error) {
	var swept *uint256.Int
	err := a.owned(caller, func() error {
		switch a.Phase() {
		case NotStarted:
			return ErrNotStarted
		case Started:
			return fmt.Errorf("%w: ends at %s", ErrNotEnded, a.EndsAt().UTC().Format(time.RFC3339))
		}
		swept = a.token.BalanceOf(a.address)
		if swept.IsZero() {
			return nil
		}
		return a.token.Transfer(a.address, to, swept)
	})
	if err != nil {
		return nil, err
	}
	a.log.Info("airdrop withdrawn", "to", to.Hex(), "amount", swept.ToBig())
	return swept, nil
}

func (a *Airdrop) owned(caller common.Address, fn func() error) error {
	return a.journal.Atomic(func() error {
		if err := a.OnlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
}
