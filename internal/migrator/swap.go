package migrator

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientReserve = errors.New("swap reserve too small")
	ErrZeroAmount          = errors.New("amount is zero")
)

type SwapConfig struct {
	Journal *state.Journal
	Logger  *slog.Logger

	Address common.Address
	Owner   common.Address
	// Old is redeemed one for one against New.
	Old ledger.Token
	New ledger.Token
}

// TokenSwap exchanges first generation tokens for the second generation out
// of a reserve funded by the owner. Redeemed tokens stay in the contract.
type TokenSwap struct {
	access.Ownable

	journal *state.Journal
	log     *slog.Logger
	address common.Address
	v1      ledger.Token
	v2      ledger.Token
	swapped uint256.Int
}

func NewTokenSwap(cfg SwapConfig) (*TokenSwap, error) {
	if cfg.Old == nil || cfg.New == nil {
		return nil, errors.New("old and new tokens are required")
	}
	if cfg.Address == (common.Address{}) || cfg.Owner == (common.Address{}) {
		return nil, errors.New("swap and owner addresses are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return &TokenSwap{
		Ownable: access.NewOwnable(cfg.Journal, cfg.Owner),
		journal: cfg.Journal,
		log:     cfg.Logger.With("component", "token-swap", "address", cfg.Address.Hex()),
		address: cfg.Address,
		v1:      cfg.Old,
		v2:      cfg.New,
	}, nil
}

func (s *TokenSwap) Address() common.Address { return s.address }

// Reserve is the new token still available for swaps.
func (s *TokenSwap) Reserve() *uint256.Int { return s.v2.BalanceOf(s.address) }

// Swapped is the total old token redeemed so far.
func (s *TokenSwap) Swapped() *uint256.Int { return s.swapped.Clone() }

// Swap pulls amount of the old token from holder, which must have approved
// the swap, and pays out the same amount of the new token.
func (s *TokenSwap) Swap(holder common.Address, amount *uint256.Int) (*uint256.Int, error) {
	if amount == nil || amount.IsZero() {
		return nil, ErrZeroAmount
	}
	var received *uint256.Int
	err := s.journal.Atomic(func() error {
		before := s.v1.BalanceOf(s.address)
		if err := s.v1.TransferFrom(s.address, holder, s.address, amount); err != nil {
			return fmt.Errorf("pulling old token: %w", err)
		}
		received = new(uint256.Int).Sub(s.v1.BalanceOf(s.address), before)
		if reserve := s.Reserve(); reserve.Lt(received) {
			return fmt.Errorf("%w: %s < %s", ErrInsufficientReserve, reserve.Dec(), received.Dec())
		}
		if err := s.v2.Transfer(s.address, holder, received); err != nil {
			return fmt.Errorf("paying new token: %w", err)
		}
		state.Set(s.journal, &s.swapped, *new(uint256.Int).Add(&s.swapped, received))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("swapped", "holder", holder.Hex(), "amount", received.ToBig())
	return received, nil
}

// Withdraw sends amount of the unswapped reserve to the owner.
func (s *TokenSwap) Withdraw(caller common.Address, amount *uint256.Int) error {
	return s.journal.Atomic(func() error {
		if err := s.OnlyOwner(caller); err != nil {
			return err
		}
		return s.v2.Transfer(s.address, caller, amount)
	})
}
