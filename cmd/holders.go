package cmd

import (
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/deploy"
	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	holdersExclude   []string
	holdersBatchSize int
	holdersMin       int
)

var holdersCmd = &cobra.Command{
	Use:   "holders <export.csv>",
	Short: "Plan a distributor redeploy from a holder export",
	Long: `Read a token holder CSV export (header row, address in the first column)
and show the ConfigureDividendHolders batches a distributor redeploy would
send. Excluded addresses (pair, burn address, exchange wallets) are dropped.

Examples:
  h2o holders export.csv --exclude 0xdead...=burn --exclude 0xabc...=pair`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blacklist, err := parseBlacklist(holdersExclude)
		if err != nil {
			return err
		}
		holders, err := deploy.LoadHolders(args[0], blacklist, log)
		if err != nil {
			return err
		}
		batches := deploy.Batches(holders, holdersBatchSize)

		t := ui.NewTable([]ui.Column{
			{Title: "Batch", Width: 6},
			{Title: "Holders", Width: 8, Right: true},
			{Title: "First", Width: 13},
			{Title: "Last", Width: 13},
		})
		for i, b := range batches {
			t.AddRow(ui.Row{
				fmt.Sprintf("%d", i+1),
				fmt.Sprintf("%d", len(b)),
				ui.TruncateAddr(b[0].Hex()),
				ui.TruncateAddr(b[len(b)-1].Hex()),
			})
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d holders in %d batches, %d excluded", len(holders), len(batches), len(blacklist))))

		if len(holders) < holdersMin {
			return fmt.Errorf("%w: %d holders, need %d", deploy.ErrTooFewHolders, len(holders), holdersMin)
		}
		fmt.Println(ui.Success("holder list is ready for a redeploy"))
		return nil
	},
}

// parseBlacklist reads entries of the form address or address=label.
func parseBlacklist(entries []string) (deploy.Blacklist, error) {
	out := make(deploy.Blacklist, len(entries))
	for _, e := range entries {
		addr, label, _ := strings.Cut(e, "=")
		addr = strings.TrimSpace(addr)
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("%w: %q", deploy.ErrNotAddress, addr)
		}
		if label == "" {
			label = "excluded"
		}
		out[common.HexToAddress(addr)] = label
	}
	return out, nil
}

func init() {
	f := holdersCmd.Flags()
	f.StringArrayVar(&holdersExclude, "exclude", nil, "address or address=label to skip (repeatable)")
	f.IntVar(&holdersBatchSize, "batch-size", deploy.HolderBatchSize, "holders per ConfigureDividendHolders call")
	f.IntVar(&holdersMin, "min", deploy.MinHolders, "fewest holders a redeploy accepts")
}
