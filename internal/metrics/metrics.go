package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "h2o_build_info",
			Help: "Build information of the h2o toolkit",
		},
		[]string{"version"},
	)

	TransfersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2o_token_transfers_total",
			Help: "Total number of token transfers by direction and status",
		},
		[]string{"direction", "status"},
	)

	SwapBacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2o_token_swapbacks_total",
			Help: "Total number of swap-backs of collected fees",
		},
		[]string{"status"},
	)

	DividendPayoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "h2o_dividend_payouts_total",
			Help: "Total number of dividend payouts to holders",
		},
	)

	DividendDepositsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2o_dividend_deposits_total",
			Help: "Total number of reward deposits into the distributor",
		},
		[]string{"status"},
	)

	DistributorIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "h2o_dividend_process_iterations",
			Help:    "Holders visited per distributor process call",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
		},
	)

	GovernanceUpgradesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2o_governance_upgrades_total",
			Help: "Total number of timelocked upgrades by target and status",
		},
		[]string{"target", "status"},
	)

	AirdropClaimsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "h2o_airdrop_claims_total",
			Help: "Total number of airdrop claims",
		},
		[]string{"status"},
	)
)

// Status label values.
const (
	StatusOK        = "ok"
	StatusError     = "error"
	StatusSkipped   = "skipped"
	StatusRecovered = "recovered"
)

// Status maps an error to a status label.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}
