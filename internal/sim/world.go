// Package sim hosts an in-process chain: one journal, one clock, a token
// registry and deterministic contract addresses.
package sim

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/amm"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
)

// ErrNotContract is returned for lookups of addresses no deployment created.
var ErrNotContract = errors.New("address is not a contract")

type Config struct {
	Logger *slog.Logger
	Clock  clockwork.Clock
	// Deployer deploys the base asset.
	Deployer common.Address
}

// World serializes every call against the shared state. Calls run one at a
// time and either commit fully or leave no trace.
type World struct {
	mu sync.Mutex

	journal *state.Journal
	log     *slog.Logger
	clock   clockwork.Clock
	tokens  *ledger.Registry

	nonces    map[common.Address]uint64
	contracts map[common.Address]string
	weth      *ledger.Basic
}

func New(cfg Config) *World {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	w := &World{
		journal:   state.New(),
		log:       cfg.Logger,
		clock:     cfg.Clock,
		tokens:    ledger.NewRegistry(),
		nonces:    make(map[common.Address]uint64),
		contracts: make(map[common.Address]string),
	}
	w.weth = w.NewBasic(cfg.Deployer, ledger.Meta{Name: "Wrapped Ether", Symbol: "WETH", Decimals: 18})
	return w
}

func (w *World) Journal() *state.Journal  { return w.journal }
func (w *World) Logger() *slog.Logger     { return w.log }
func (w *World) Clock() clockwork.Clock   { return w.clock }
func (w *World) Tokens() *ledger.Registry { return w.tokens }
func (w *World) WETH() *ledger.Basic      { return w.weth }
func (w *World) Now() time.Time           { return w.clock.Now() }

// Call runs fn as a single transaction.
func (w *World) Call(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.journal.Atomic(fn)
}

// Deploy reserves the next contract address of deployer under name.
// Nonces are consumed even when the surrounding call fails. Deploy is not
// locked; use it inside Call once the world is shared.
func (w *World) Deploy(deployer common.Address, name string) common.Address {
	nonce := w.nonces[deployer]
	w.nonces[deployer] = nonce + 1
	addr := crypto.CreateAddress(deployer, nonce)
	w.contracts[addr] = name
	w.log.Debug("contract deployed", "name", name, "address", addr.Hex(), "deployer", deployer.Hex())
	return addr
}

// ContractName returns what was deployed at addr.
func (w *World) ContractName(addr common.Address) (string, error) {
	name, ok := w.contracts[addr]
	if !ok {
		return "", ErrNotContract
	}
	return name, nil
}

// NewBasic deploys and registers a plain ERC-20.
func (w *World) NewBasic(deployer common.Address, meta ledger.Meta) *ledger.Basic {
	t := ledger.NewBasic(ledger.New(w.journal, w.Deploy(deployer, meta.Symbol), meta))
	w.tokens.Register(t)
	return t
}

// NewRouter deploys a factory and a router trading against WETH.
func (w *World) NewRouter(deployer common.Address) *amm.V2Router {
	factory := amm.NewFactory(w.journal, w.Deploy(deployer, "UniswapV2Factory"), w.tokens)
	return amm.NewV2Router(w.Deploy(deployer, "UniswapV2Router02"), w.weth.Address(), factory, w.tokens)
}

// NewFakeRouter deploys a router that accepts deposits but never mints.
func (w *World) NewFakeRouter(deployer common.Address) *amm.FakeRouter {
	return amm.NewFakeRouter(w.Deploy(deployer, "FakeRouter"), w.weth.Address(), w.tokens)
}
