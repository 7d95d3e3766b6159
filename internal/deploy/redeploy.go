package deploy

import (
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/sim"
	"github.com/Mohsinsiddi/h2o/internal/token"
	"github.com/ethereum/go-ethereum/common"
)

const (
	HolderBatchSize = 20
	MinHolders      = 100
)

var ErrTooFewHolders = errors.New("invalid holders length")

type RedeployConfig struct {
	// Owner currently owns the token and gets it back at the end.
	Owner      common.Address
	Holders    []common.Address
	MinHolders int
	BatchSize  int
}

type RedeployReport struct {
	Redeployer  common.Address
	Distributor common.Address
	Batches     int
	Configured  int
}

// RedeployDistributor replaces the token's distributor and restores holder
// shares in batches. Ownership moves to a temporary redeployer for the
// duration and always returns to Owner, even when a step fails; steps that
// succeeded before the failure stay applied.
func RedeployDistributor(w *sim.World, h *token.H2O, cfg RedeployConfig) (RedeployReport, error) {
	var rep RedeployReport
	if cfg.MinHolders == 0 {
		cfg.MinHolders = MinHolders
	}
	if len(cfg.Holders) < cfg.MinHolders {
		return rep, fmt.Errorf("%w: %d < %d", ErrTooFewHolders, len(cfg.Holders), cfg.MinHolders)
	}
	log := w.Logger().With("component", "redeploy")

	err := w.Call(func() error {
		rep.Redeployer = w.Deploy(cfg.Owner, "DistributorRedeployer")
		return h.TransferOwnership(cfg.Owner, rep.Redeployer)
	})
	if err != nil {
		return rep, fmt.Errorf("transferring ownership: %w", err)
	}

	stepErr := w.Call(func() error {
		rep.Distributor = w.Deploy(rep.Redeployer, "DividendDistributor")
		return h.RedeployDistributor(rep.Redeployer, rep.Distributor)
	})
	if stepErr == nil {
		log.Info("redeployed", "distributor", rep.Distributor.Hex())
		batches := Batches(cfg.Holders, cfg.BatchSize)
		for i, batch := range batches {
			if stepErr = w.Call(func() error { return h.ConfigureDividendHolders(rep.Redeployer, batch) }); stepErr != nil {
				stepErr = fmt.Errorf("batch %d: %w", i, stepErr)
				break
			}
			rep.Batches++
			rep.Configured += len(batch)
			log.Debug("configured dividend holders", "batch", i, "of", len(batches), "size", len(batch))
		}
	}
	if stepErr != nil {
		log.Error("redeploy failed", "err", stepErr)
	}

	if err := w.Call(func() error { return h.TransferOwnership(rep.Redeployer, cfg.Owner) }); err != nil {
		return rep, errors.Join(stepErr, fmt.Errorf("returning ownership: %w", err))
	}
	return rep, stepErr
}
