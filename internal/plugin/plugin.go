// Package plugin holds the fee converters the V2 token delegates to: one adds
// liquidity, the other pays dividends.
package plugin

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Mohsinsiddi/h2o/internal/access"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
)

var (
	ErrNotToken      = errors.New("caller is not the token")
	ErrNotConfigured = errors.New("plugin not configured")
	ErrNoHolders     = errors.New("need to update holders to swapback")
)

// Config is shared by every plugin.
type Config struct {
	Journal *state.Journal
	Logger  *slog.Logger
	Tokens  *ledger.Registry

	Address common.Address
	// Token is the V2 token the plugin serves.
	Token common.Address
	Owner common.Address
}

func (cfg *Config) Validate() error {
	if cfg.Tokens == nil {
		return errors.New("token registry is required")
	}
	if cfg.Address == (common.Address{}) || cfg.Token == (common.Address{}) {
		return errors.New("plugin and token addresses are required")
	}
	if cfg.Owner == (common.Address{}) {
		return errors.New("owner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	return nil
}

type base struct {
	access.Ownable

	journal *state.Journal
	log     *slog.Logger
	tokens  *ledger.Registry
	address common.Address
	token   common.Address
}

func newBase(cfg Config, component string) base {
	return base{
		Ownable: access.NewOwnable(cfg.Journal, cfg.Owner),
		journal: cfg.Journal,
		log:     cfg.Logger.With("component", component, "address", cfg.Address.Hex()),
		tokens:  cfg.Tokens,
		address: cfg.Address,
		token:   cfg.Token,
	}
}

func (b *base) Address() common.Address { return b.address }
func (b *base) Token() common.Address   { return b.token }

func (b *base) onlyToken(caller common.Address) error {
	if caller != b.token {
		return fmt.Errorf("%w: %s", ErrNotToken, caller.Hex())
	}
	return nil
}

func (b *base) owned(caller common.Address, fn func() error) error {
	return b.journal.Atomic(func() error {
		if err := b.OnlyOwner(caller); err != nil {
			return err
		}
		return fn()
	})
}

// returnTokens sends the plugin's whole token balance back to the token.
func (b *base) returnTokens() error {
	tok, err := b.tokens.Get(b.token)
	if err != nil {
		return err
	}
	bal := tok.BalanceOf(b.address)
	if bal.IsZero() {
		return nil
	}
	return tok.Transfer(b.address, b.token, bal)
}
