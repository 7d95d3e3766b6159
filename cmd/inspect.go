package cmd

import (
	"context"
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/chain"
	"github.com/Mohsinsiddi/h2o/internal/config"
	"github.com/Mohsinsiddi/h2o/internal/contract"
	"github.com/Mohsinsiddi/h2o/internal/rpc"
	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var (
	inspectNetwork string
	inspectKind    string
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [address]",
	Short: "Read a deployed contract over JSON-RPC",
	Long: `Read the public state of a deployed H2O contract.

Without an address the contract named by --kind is looked up in your saved
deployments (h2o config set-deployment) and then in the built-in list.

Examples:
  h2o inspect
  h2o inspect --network moonbase-alpha --kind h2o-v2
  h2o inspect 0x36A58BEd6347DAE855D4B5E29d21A93E1dE66450 --kind migrator`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		network := inspectNetwork
		if network == "" {
			network = cfg.DefaultNetwork
		}
		reg := chain.NewRegistry()
		n, err := reg.GetByName(network)
		if err != nil {
			return fmt.Errorf("unknown network %q", network)
		}
		if _, ok := contract.GetBuiltin(inspectKind); !ok {
			return fmt.Errorf("unknown contract kind %q", inspectKind)
		}

		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		df, err := cfg.LoadDeployments()
		if err != nil {
			return err
		}
		addr, source, err := resolveTarget(reg, df, n.Name, inspectKind, arg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.InspectTimeout)
		defer cancel()
		algo, err := rpc.ParseAlgorithm(cfg.RPCAlgorithm)
		if err != nil {
			return err
		}
		client, endpoints, err := rpc.Select(ctx, cfg.RPCs(n.Name, n.RPCs), algo, config.RPCTimeout)
		if err != nil {
			return err
		}
		for _, e := range endpoints {
			log.Debug("rpc benchmark", "url", e.URL, "latency", e.Latency, "block", e.BlockNumber, "error", e.Err)
		}
		log.Debug("connected", "rpc", client.URL(), "network", n.Name, "algorithm", algo)
		if id, err := client.ChainID(ctx); err == nil && id != n.ChainID {
			fmt.Println(ui.Warn(fmt.Sprintf("RPC reports chain %d, %s is %d", id, n.Name, n.ChainID)))
		}

		caller := contract.NewCaller(client, contract.GetBuiltinABI(inspectKind))
		fields := caller.Snapshot(ctx, addr, contract.ProbesForKind(inspectKind))
		pairs := [][2]string{
			{"Network", n.DisplayName},
			{"Address", addr.Hex()},
			{"Source", source},
		}
		for _, f := range fields {
			v := f.Value
			if f.Err != nil {
				v = "error: " + f.Err.Error()
			}
			pairs = append(pairs, [2]string{f.Label, v})
		}
		fmt.Println(ui.KeyValueBlock(inspectKind, pairs))
		if n.Explorer != "" {
			fmt.Println(ui.Meta(n.Explorer + "/address/" + addr.Hex()))
		}
		return nil
	},
}

// resolveTarget picks the address to inspect: the argument, then a saved
// deployment, then a built-in one.
func resolveTarget(reg *chain.Registry, df *config.DeploymentsFile, network, kind, arg string) (common.Address, string, error) {
	if arg != "" {
		if !common.IsHexAddress(arg) {
			return common.Address{}, "", fmt.Errorf("invalid address %q", arg)
		}
		return common.HexToAddress(arg), "argument", nil
	}
	if d, ok := df.Find(network, kind); ok && common.IsHexAddress(d.Address) {
		return common.HexToAddress(d.Address), "saved deployment", nil
	}
	if d, ok := reg.Deployment(network, kind); ok {
		return d.Address, "built-in deployment", nil
	}
	return common.Address{}, "", fmt.Errorf("no %s deployment known on %s; pass an address", kind, network)
}

func init() {
	inspectCmd.Flags().StringVarP(&inspectNetwork, "network", "n", "", "network name (default from config)")
	inspectCmd.Flags().StringVar(&inspectKind, "kind", "h2o", "contract kind: h2o, h2o-v2, airdrop, migrator, erc20")
}
