package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/config"
	depsync "github.com/Mohsinsiddi/h2o/internal/sync"
	"github.com/Mohsinsiddi/h2o/internal/ui"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configShowCmd = &cobra.Command{
	Use:     "show",
	Aliases: []string{"list"},
	Short:   "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("%s\n\n", ui.StyleTitle.Render("Current Configuration"))
		fmt.Println(string(data))
		if cfg.RPCURL != "" {
			fmt.Println(ui.Meta(config.EnvRPCURL + ": " + cfg.RPCURL))
		}
		fmt.Println(ui.Meta("Config directory: " + cfg.Dir()))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long:  "Change one setting. Known keys:\n  " + strings.Join(config.Keys(), "\n  "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s set to %q", args[0], args[1])))
		return nil
	},
}

var configSetRPCCmd = &cobra.Command{
	Use:   "set-rpc <network> <url>",
	Short: "Add an RPC endpoint for a network",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, url := args[0], args[1]
		if err := cfg.AddRPC(network, url); err != nil {
			// Already exists, not fatal.
			fmt.Println(ui.Warn(err.Error()))
		}
		if err := cfg.Save(); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("RPC for %s set to %s", network, url)))
		return nil
	},
}

var configSetDeploymentCmd = &cobra.Command{
	Use:   "set-deployment <network> <name> <address>",
	Short: "Remember a contract address for inspect",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		network, name, addr := args[0], args[1], args[2]
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid address %q", addr)
		}
		df, err := cfg.LoadDeployments()
		if err != nil {
			return err
		}
		df.Put(config.Deployment{Network: network, Name: name, Address: common.HexToAddress(addr).Hex()})
		if err := cfg.SaveDeployments(df); err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%s on %s is %s", name, network, addr)))
		return nil
	},
}

var configSyncCmd = &cobra.Command{
	Use:   "sync [url]",
	Short: "Pull deployment addresses from a published manifest",
	Long: `Fetch a deployments manifest and merge it into deployments.json.
Passing a URL remembers it as the source for later runs.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := depsync.New(cfg, nil, log)
		if len(args) == 1 {
			if err := s.SetSource(args[0]); err != nil {
				return err
			}
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), config.InspectTimeout)
		defer cancel()
		res, err := s.Run(ctx)
		if err != nil {
			return err
		}
		fmt.Println(ui.Success(fmt.Sprintf("%d deployments synced", res.Updated)))
		if res.Skipped > 0 {
			fmt.Println(ui.Warn(fmt.Sprintf("%d entries skipped (invalid address)", res.Skipped)))
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configSetRPCCmd, configSetDeploymentCmd, configSyncCmd)
}
