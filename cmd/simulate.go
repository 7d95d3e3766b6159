package cmd

import (
	"fmt"
	"time"

	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/scenario"
	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

var (
	simHolders      int
	simTrades       int
	simSeed         int64
	simGas          uint64
	simAirdropHours int
	simLiquidity    string
	simInteractive  bool
	simMetrics      bool
	simTop          int
	simV2           bool
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Launch H2O on an in-process chain and trade it",
	Long: `Deploy H2O with its dividend distributor, airdrop and liquidity migrator
on an in-process chain, claim the airdrop, run seeded random trades and
report fees, dividends and pool state.

Defaults come from the "simulation" section of the config file; flags win.
With --interactive, dividends are not paid during trades. Instead each key
press runs one distributor batch. With --v2, the run ends by deploying the
plugin generation token and swapping every holder over to it.

Examples:
  h2o simulate
  h2o simulate --holders 120 --trades 1000 --seed 7 --metrics
  h2o simulate --interactive --distributor-gas 200000
  h2o simulate --holders 20 --trades 100 --v2`,
	RunE: func(cmd *cobra.Command, args []string) error {
		sc := cfg.Simulation
		flags := cmd.Flags()
		if flags.Changed("holders") {
			sc.Holders = simHolders
		}
		if flags.Changed("trades") {
			sc.Trades = simTrades
		}
		if flags.Changed("seed") {
			sc.Seed = simSeed
		}
		if flags.Changed("distributor-gas") {
			sc.DistributorGas = simGas
		}
		if flags.Changed("airdrop-hours") {
			sc.AirdropHours = simAirdropHours
		}
		if flags.Changed("liquidity") {
			sc.LiquidityBase = simLiquidity
		}

		liq, err := ledger.ParseUnits(sc.LiquidityBase, 18)
		if err != nil {
			return fmt.Errorf("liquidity: %w", err)
		}
		autoGas := sc.DistributorGas
		if simInteractive {
			autoGas = 0
		}

		s, err := scenario.New(scenario.Config{
			Logger:          log,
			Holders:         sc.Holders,
			Trades:          sc.Trades,
			Seed:            sc.Seed,
			DistributorGas:  autoGas,
			AirdropDuration: time.Duration(sc.AirdropHours) * time.Hour,
			LiquidityBase:   liq,
		})
		if err != nil {
			return err
		}
		fmt.Println(deploymentBlock(s))

		report, err := s.Run(cmd.Context())
		if err != nil {
			return err
		}

		if simInteractive {
			if err := stepInteractively(s, sc.DistributorGas); err != nil {
				return err
			}
			report = s.Report()
		}

		fmt.Println(reportBlock(report))
		fmt.Println(holderTable(s, simTop).Render())

		if simV2 {
			up, err := s.UpgradeToV2()
			if err != nil {
				return err
			}
			fmt.Println(upgradeBlock(up))
		}

		if simMetrics {
			out, err := renderMetrics(prometheus.DefaultGatherer, "h2o_")
			if err != nil {
				return err
			}
			fmt.Println(ui.StyleTitle.Render("Metrics"))
			fmt.Println(out)
		}
		return nil
	},
}

func deploymentBlock(s *scenario.Scenario) string {
	h := s.Hydro()
	sym := h.Token.Symbol()
	rows := [][2]string{
		{"Token", h.Token.Address().Hex()},
		{"Pair", h.Token.Pair().Hex()},
		{"Distributor", h.Token.DistributorAddress().Hex()},
		{"Airdrop", h.Airdrop.Address().Hex()},
		{"Migrator", h.Migrator.Address().Hex()},
		{"Migrator owner", h.Migrator.Owner().Hex()},
		{"Liquidity supply", ledger.FormatUnits(h.Split.Liquidity, 18) + " " + sym},
		{"Airdrop supply", ledger.FormatUnits(h.Split.Airdrop, 18) + " " + sym},
		{"Team supply", ledger.FormatUnits(h.Split.Team, 18) + " " + sym},
		{"LP minted", ledger.FormatUnits(h.LP, 18)},
	}
	for i, v := range h.Vaults {
		rows = append(rows, [2]string{
			fmt.Sprintf("Team lock %d", i+1),
			fmt.Sprintf("%s %s until %s", ledger.FormatUnits(v.Balance(), 18), sym, v.ReleaseTime().Format(time.DateOnly)),
		})
	}
	return ui.KeyValueBlock("Deployment", rows)
}

func upgradeBlock(r scenario.UpgradeReport) string {
	return ui.KeyValueBlock("V2 upgrade", [][2]string{
		{"Token", r.Token.Hex()},
		{"Swap", r.Swap.Hex()},
		{"Holders migrated", fmt.Sprintf("%d (%d failed)", r.Migrated, r.Failed)},
		{"Swapped", ledger.FormatUnits(r.Swapped, 18) + " H2O"},
		{"Sells", fmt.Sprintf("%d (%d reverted)", r.Sells, r.Reverted)},
		{"Dividends", ledger.FormatUnits(r.TotalDividends, 18) + " WETH"},
		{"Distributed", fmt.Sprintf("%s WETH in %d payouts", ledger.FormatUnits(r.TotalDistributed, 18), r.Payouts)},
		{"Pool", ledger.FormatUnits(r.PoolTokens, 18) + " H2O"},
	})
}

func reportBlock(r scenario.Report) string {
	return ui.KeyValueBlock("Simulation", [][2]string{
		{"Trades", fmt.Sprintf("%d (%d buys, %d sells, %d reverted)", r.Trades, r.Buys, r.Sells, r.Reverted)},
		{"Airdrop claimed", ledger.FormatUnits(r.AirdropClaimed, 18) + " H2O"},
		{"Dividend holders", fmt.Sprintf("%d", r.DividendHolders)},
		{"Dividends", ledger.FormatUnits(r.TotalDividends, 18) + " WETH"},
		{"Distributed", ledger.FormatUnits(r.TotalDistributed, 18) + " WETH"},
		{"Parked deposits", ledger.FormatUnits(r.PendingDeposits, 18) + " WETH"},
		{"Treasury", ledger.FormatUnits(r.TreasuryBase, 18) + " WETH"},
		{"Pool", ledger.FormatUnits(r.PoolTokens, 18) + " H2O"},
		{"Liquidity backing", r.LiquidityBacking.Dec() + "%"},
		{"Circulating", ledger.FormatUnits(r.CirculatingSupply, 18) + " H2O"},
	})
}

// holderTable lists the first n holders with their bag and dividends.
func holderTable(s *scenario.Scenario, n int) *ui.Table {
	h := s.Hydro().Token
	d := h.Distributor()
	t := ui.NewTable([]ui.Column{
		{Title: "Holder", Width: 13},
		{Title: "H2O", Width: 22, Right: true},
		{Title: "Realised WETH", Width: 22, Right: true},
		{Title: "Unpaid WETH", Width: 22, Right: true},
	})
	for i, holder := range s.Holders() {
		if i >= n {
			break
		}
		t.AddRow(ui.Row{
			ui.TruncateAddr(holder.Hex()),
			ledger.FormatUnits(h.BalanceOf(holder), 18),
			ledger.FormatUnits(d.TotalRealised(holder), 18),
			ledger.FormatUnits(d.GetUnpaidEarnings(holder), 18),
		})
	}
	return t
}

// stepInteractively hands distributor batches to the terminal UI.
func stepInteractively(s *scenario.Scenario, gas uint64) error {
	if gas == 0 {
		gas = dividend.DefaultProcessGas
	}
	holders := s.Hydro().Token.Distributor().HolderCount()
	step := func() (ui.Batch, error) {
		res, err := s.Step(gas)
		if err != nil {
			return ui.Batch{}, err
		}
		return ui.Batch{
			Iterations: res.Iterations,
			Payouts:    res.Payouts,
			Paid:       ledger.FormatUnits(res.Paid, 18),
			Cursor:     res.Cursor,
			Holders:    holders,
			Done:       !s.Pending(),
		}, nil
	}
	title := fmt.Sprintf("Dividend distributor  ·  %d holders  ·  %d gas per batch", holders, gas)
	_, err := ui.NewProcessProgram(title, "WETH", step).Run()
	return err
}

func init() {
	f := simulateCmd.Flags()
	f.IntVar(&simHolders, "holders", 0, "number of trading wallets")
	f.IntVar(&simTrades, "trades", 0, "number of random trades")
	f.Int64Var(&simSeed, "seed", 0, "random seed")
	f.Uint64Var(&simGas, "distributor-gas", 0, "gas spent on dividends per transfer or batch")
	f.IntVar(&simAirdropHours, "airdrop-hours", 0, "airdrop claim window in hours")
	f.StringVar(&simLiquidity, "liquidity", "", "WETH seeded into the pool, in whole tokens")
	f.BoolVarP(&simInteractive, "interactive", "i", false, "step distributor batches by hand")
	f.BoolVar(&simMetrics, "metrics", false, "print collected metrics")
	f.IntVar(&simTop, "top", 10, "holders to list")
	f.BoolVar(&simV2, "v2", false, "upgrade to the plugin generation token after trading")
}
