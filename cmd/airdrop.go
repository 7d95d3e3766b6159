package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/airdrop"
	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

var (
	airdropDecimals  uint8
	airdropExpected  string
	airdropBatchSize int
)

var airdropCmd = &cobra.Command{
	Use:   "airdrop",
	Short: "Check airdrop allocation files",
	Long: `Check an allocation file before uploading it with MassUpdate.

The file is JSON: {"addresses": ["0x..."], "amounts": ["1000", 25]}. Amounts
are base units as strings or numbers.`,
}

var airdropValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate an allocation file and sum it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alloc, total, err := loadAllocation(args[0])
		if err != nil {
			return err
		}
		fmt.Println(ui.KeyValueBlock("Allocation", [][2]string{
			{"File", args[0]},
			{"Recipients", fmt.Sprintf("%d", alloc.Len())},
			{"Total", ledger.FormatUnits(total, airdropDecimals)},
			{"Total (base units)", total.Dec()},
		}))
		if airdropExpected == "" {
			fmt.Println(ui.Success("allocation is valid"))
			return nil
		}
		want, err := ledger.ParseUnits(airdropExpected, airdropDecimals)
		if err != nil {
			return fmt.Errorf("--expected: %w", err)
		}
		if !want.Eq(total) {
			fmt.Println(ui.Warn(fmt.Sprintf("allocation sums to %s, funding is %s: Start will refuse to open",
				ledger.FormatUnits(total, airdropDecimals), airdropExpected)))
			return airdrop.ErrIncorrectTokenBalance
		}
		fmt.Println(ui.Success("allocation matches the funding"))
		return nil
	},
}

var airdropPlanCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Show the MassUpdate batches for an allocation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		alloc, total, err := loadAllocation(args[0])
		if err != nil {
			return err
		}
		t, err := batchTable(alloc, airdropBatchSize, airdropDecimals)
		if err != nil {
			return err
		}
		fmt.Println(t.Render())
		fmt.Println(ui.Meta(fmt.Sprintf("%d recipients, %s tokens", alloc.Len(), ledger.FormatUnits(total, airdropDecimals))))
		return nil
	},
}

func loadAllocation(path string) (*airdrop.Allocation, *uint256.Int, error) {
	alloc, err := airdrop.LoadAllocationFile(path)
	if err != nil {
		return nil, nil, err
	}
	total, err := alloc.Total()
	if err != nil {
		return nil, nil, err
	}
	return alloc, total, nil
}

// batchTable lists each batch with its address range and sum.
func batchTable(alloc *airdrop.Allocation, size int, decimals uint8) (*ui.Table, error) {
	t := ui.NewTable([]ui.Column{
		{Title: "Batch", Width: 6},
		{Title: "Entries", Width: 8, Right: true},
		{Title: "First", Width: 13},
		{Title: "Last", Width: 13},
		{Title: "Amount", Width: 24, Right: true},
	})
	for i, b := range alloc.Batches(size) {
		sum := &airdrop.Allocation{Addresses: b.Addresses, Amounts: b.Amounts}
		amount, err := sum.Total()
		if err != nil {
			return nil, err
		}
		t.AddRow(ui.Row{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", len(b.Addresses)),
			ui.TruncateAddr(b.Addresses[0].Hex()),
			ui.TruncateAddr(b.Addresses[len(b.Addresses)-1].Hex()),
			ledger.FormatUnits(amount, decimals),
		})
	}
	return t, nil
}

func init() {
	airdropCmd.PersistentFlags().Uint8Var(&airdropDecimals, "decimals", 18, "token decimals for display")
	airdropValidateCmd.Flags().StringVar(&airdropExpected, "expected", "", "tokens the airdrop will be funded with")
	airdropPlanCmd.Flags().IntVar(&airdropBatchSize, "batch-size", airdrop.DefaultBatchSize, "entries per MassUpdate")
	airdropCmd.AddCommand(airdropValidateCmd, airdropPlanCmd)
}
