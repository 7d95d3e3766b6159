package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Mohsinsiddi/h2o/internal/config"
	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/Mohsinsiddi/h2o/internal/metrics"
	"github.com/spf13/cobra"
)

// Version is the current release. Overridable via build ldflags:
//
//	go build -ldflags "-X github.com/Mohsinsiddi/h2o/cmd.Version=1.2.3" .
var Version = "0.1.0"

var (
	cfgDir  string
	cfg     *config.Config
	verbose bool
	log     *slog.Logger = logger.Discard()
)

// rootCmd is the top-level command.
var rootCmd = &cobra.Command{
	Use:   "h2o",
	Short: "Hydro token toolkit",
	Long: `h2o runs the Hydro tax token on an in-process chain and inspects live
deployments over JSON-RPC.

  simulate   deploy H2O with its airdrop and migrator, trade, pay dividends
  airdrop    check an allocation file before uploading it
  holders    plan a dividend distributor redeploy from a holder export
  inspect    read a deployed token through a public RPC

Settings live in ~/.h2o (override with --config or H2O_CONFIG_DIR). A .env
file in that directory may set H2O_NETWORK and H2O_RPC_URL.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.New(verbose)
		if cmd.Name() == "help" || cmd.Name() == "completion" {
			return nil
		}
		var err error
		cfg, err = config.Load(cfgDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		metrics.BuildInfo.WithLabelValues(Version).Set(1)
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// H2O_CONFIG_DIR env var overrides --config flag.
	if envDir := os.Getenv(config.EnvConfigDir); envDir != "" {
		cfgDir = envDir
	}

	rootCmd.PersistentFlags().StringVar(&cfgDir, "config", cfgDir, "config directory (default: ~/.h2o)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		simulateCmd,
		airdropCmd,
		holdersCmd,
		inspectCmd,
		configCmd,
		versionCmd,
	)
}
