package token

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/fees"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

const (
	// MaxDistributorGas bounds the gas a transfer may spend processing dividends.
	MaxDistributorGas uint64 = 750_000

	DefaultDistributorGas uint64 = 500_000

	// MinApprovalDelay bounds V2 approval delay proposals.
	MinApprovalDelay = time.Hour

	DefaultApprovalDelay = 24 * time.Hour
)

var (
	DefaultMeta   = ledger.Meta{Name: "Hydro", Symbol: "H2O", Decimals: 18}
	DefaultSupply = ledger.Units(1_000_000_000, 18)

	// DefaultTarget is the backing above which the liquidity fee is skipped.
	DefaultTarget = Target{Numerator: 25, Denominator: 100}
)

// Target is the liquidity backing ratio, 2*pairBalance/circulating.
type Target struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// Config holds what both token generations share.
type Config struct {
	Journal *state.Journal
	Logger  *slog.Logger
	Clock   clockwork.Clock
	Tokens  *ledger.Registry

	Address common.Address
	Owner   common.Address
	Meta    ledger.Meta
	Supply  *uint256.Int

	Fees      fees.Config
	MaxWallet fees.Limit

	// SwapThreshold defaults to 0.05% of supply.
	SwapThreshold *uint256.Int
}

func (cfg *Config) Validate() error {
	if cfg.Tokens == nil {
		return errors.New("token registry is required")
	}
	if cfg.Address == (common.Address{}) {
		return errors.New("token address is required")
	}
	if cfg.Owner == (common.Address{}) {
		return errors.New("owner is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Meta.Symbol == "" {
		cfg.Meta = DefaultMeta
	}
	if cfg.Supply == nil {
		cfg.Supply = DefaultSupply.Clone()
	}
	if cfg.Fees.Denominator == 0 {
		cfg.Fees = fees.DefaultConfig()
	}
	if cfg.MaxWallet.Denominator == 0 {
		cfg.MaxWallet = fees.DefaultMaxWallet()
	}
	if cfg.SwapThreshold == nil {
		cfg.SwapThreshold = new(uint256.Int).Div(cfg.Supply, uint256.NewInt(2000))
	}
	return nil
}

// H2OConfig configures the first generation token with its built-in distributor.
type H2OConfig struct {
	Config

	Router amm.Router
	// Paired is the token the pool pairs against. Defaults to the router's base.
	Paired common.Address
	// PairedToBase routes Paired into the base asset. Ignored when Paired is the base.
	PairedToBase []common.Address

	// DistributorAddress is where Setup places the distributor.
	DistributorAddress common.Address
	DistributorGas     uint64
}

func (cfg *H2OConfig) Validate() error {
	if err := cfg.Config.Validate(); err != nil {
		return err
	}
	if cfg.Router == nil {
		return errors.New("router is required")
	}
	if cfg.DistributorAddress == (common.Address{}) {
		return errors.New("distributor address is required")
	}
	if cfg.Paired == (common.Address{}) {
		cfg.Paired = cfg.Router.WETH()
	}
	if cfg.Paired == cfg.Router.WETH() {
		cfg.PairedToBase = []common.Address{cfg.Paired}
	}
	if err := amm.CheckPath(cfg.PairedToBase, cfg.Paired, cfg.Router.WETH()); err != nil {
		return err
	}
	if cfg.DistributorGas == 0 {
		cfg.DistributorGas = DefaultDistributorGas
	}
	if cfg.DistributorGas >= MaxDistributorGas {
		return ErrGasTooHigh
	}
	return nil
}

// V2Fees routes everything to liquidity and reflection: 5% on buys and
// transfers, 10% on sells.
func V2Fees() fees.Config {
	return fees.Config{
		Buy:         fees.Rates{Liquidity: 10, Reflection: 40},
		Transfer:    fees.Rates{Liquidity: 10, Reflection: 40},
		Sell:        fees.Rates{Liquidity: 20, Reflection: 80},
		Denominator: 1000,
	}
}

// V2Config configures the plugin generation token.
type V2Config struct {
	Config

	// Pair is the pool fees are charged against. It may be registered later.
	Pair          common.Address
	ApprovalDelay time.Duration
}

func (cfg *V2Config) Validate() error {
	if cfg.Fees.Denominator == 0 {
		cfg.Fees = V2Fees()
	}
	if err := cfg.Config.Validate(); err != nil {
		return err
	}
	if cfg.ApprovalDelay == 0 {
		cfg.ApprovalDelay = DefaultApprovalDelay
	}
	return nil
}
