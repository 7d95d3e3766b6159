package dividend

import (
	"errors"
	"log/slog"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jonboulle/clockwork"
)

// Gas model used to bound Process. The numbers mirror what one holder visit
// and one reward transfer cost on the host chain.
const (
	IterationGas uint64 = 5_000
	PayoutGas    uint64 = 55_000

	DefaultProcessGas uint64 = 500_000
)

var (
	DefaultMinPeriod       = time.Hour
	DefaultMinDistribution = ledger.Units(1, 18)
)

// Config wires a Distributor into the world.
type Config struct {
	Journal     *state.Journal
	Logger      *slog.Logger
	Clock       clockwork.Clock
	Address     common.Address
	Controller  common.Address
	RewardToken ledger.Token

	MinPeriod       time.Duration
	MinDistribution *uint256.Int
}

func (cfg *Config) Validate() error {
	if cfg.Address == (common.Address{}) {
		return errors.New("distributor address is required")
	}
	if cfg.Controller == (common.Address{}) {
		return errors.New("controller address is required")
	}
	if cfg.RewardToken == nil {
		return errors.New("reward token is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.MinDistribution == nil {
		cfg.MinDistribution = DefaultMinDistribution.Clone()
	}
	return nil
}
