package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/rpc"
	"github.com/joho/godotenv"
)

const (
	defaultNetwork        = "moonriver"
	defaultRPCAlgorithm   = "fastest"
	defaultHolders        = 50
	defaultTrades         = 200
	defaultSeed           = 1
	defaultDistributorGas = 500_000
	defaultAirdropHours   = 7 * 24
	defaultLiquidityBase  = "10"

	configFile      = "config.json"
	deploymentsFile = "deployments.json"
	envFile         = ".env"
)

var ErrUnknownKey = errors.New("unknown config key")

// Load reads config from dir (or creates defaults). dir defaults to ~/.h2o.
// A .env file in dir is loaded into the environment first; variables that
// are already set keep their value.
func Load(dir string) (*Config, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine home dir: %w", err)
		}
		dir = filepath.Join(home, ".h2o")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("could not create config dir: %w", err)
	}
	if err := godotenv.Load(filepath.Join(dir, envFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	cfg := defaults(dir)
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.configDir = dir
	if cfg.CustomRPCs == nil {
		cfg.CustomRPCs = make(map[string][]string)
	}
	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.DefaultNetwork = v
	}
	cfg.RPCURL = os.Getenv(EnvRPCURL)
	return cfg, nil
}

// Save writes the config to disk.
func (c *Config) Save() error {
	if err := os.MkdirAll(c.configDir, 0o700); err != nil {
		return err
	}
	return saveJSON(filepath.Join(c.configDir, configFile), c)
}

// Dir returns the config directory.
func (c *Config) Dir() string {
	return c.configDir
}

// AddRPC adds a custom RPC URL for a network.
func (c *Config) AddRPC(network, url string) error {
	if slices.Contains(c.CustomRPCs[network], url) {
		return fmt.Errorf("RPC %s already exists for %s", url, network)
	}
	c.CustomRPCs[network] = append(c.CustomRPCs[network], url)
	return nil
}

// RPCs returns the endpoints to try for network: the H2O_RPC_URL override,
// then custom RPCs, then fallback.
func (c *Config) RPCs(network string, fallback []string) []string {
	var out []string
	if c.RPCURL != "" {
		out = append(out, c.RPCURL)
	}
	out = append(out, c.CustomRPCs[network]...)
	return append(out, fallback...)
}

// Keys lists the settings Set accepts.
func Keys() []string {
	return []string{
		"default_network",
		"rpc_algorithm",
		"simulation.holders",
		"simulation.trades",
		"simulation.seed",
		"simulation.distributor_gas",
		"simulation.airdrop_hours",
		"simulation.liquidity_base",
	}
}

// Set assigns one setting from its string form.
func (c *Config) Set(key, value string) error {
	var err error
	s := &c.Simulation
	switch strings.ToLower(key) {
	case "default_network":
		c.DefaultNetwork = value
	case "rpc_algorithm":
		_, err = rpc.ParseAlgorithm(value)
		if err == nil {
			c.RPCAlgorithm = value
		}
	case "simulation.holders":
		s.Holders, err = positive(value)
	case "simulation.trades":
		s.Trades, err = positive(value)
	case "simulation.seed":
		s.Seed, err = strconv.ParseInt(value, 10, 64)
	case "simulation.distributor_gas":
		s.DistributorGas, err = strconv.ParseUint(value, 10, 64)
	case "simulation.airdrop_hours":
		s.AirdropHours, err = positive(value)
	case "simulation.liquidity_base":
		_, err = strconv.ParseFloat(value, 64)
		if err == nil {
			s.LiquidityBase = value
		}
	default:
		return fmt.Errorf("%w: %s (known: %s)", ErrUnknownKey, key, strings.Join(Keys(), ", "))
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	return nil
}

// LoadDeployments reads deployments.json.
func (c *Config) LoadDeployments() (*DeploymentsFile, error) {
	return loadJSON[DeploymentsFile](filepath.Join(c.configDir, deploymentsFile))
}

// SaveDeployments writes deployments.json.
func (c *Config) SaveDeployments(df *DeploymentsFile) error {
	return saveJSON(filepath.Join(c.configDir, deploymentsFile), df)
}

// Put adds or replaces the deployment with the same network and name.
func (df *DeploymentsFile) Put(d Deployment) {
	i := slices.IndexFunc(df.Deployments, func(e Deployment) bool {
		return e.Network == d.Network && e.Name == d.Name
	})
	if i >= 0 {
		df.Deployments[i] = d
		return
	}
	df.Deployments = append(df.Deployments, d)
}

// Find returns the deployment named name on network.
func (df *DeploymentsFile) Find(network, name string) (Deployment, bool) {
	i := slices.IndexFunc(df.Deployments, func(e Deployment) bool {
		return e.Network == network && e.Name == name
	})
	if i < 0 {
		return Deployment{}, false
	}
	return df.Deployments[i], true
}

// --- helpers ---

func defaults(dir string) *Config {
	return &Config{
		DefaultNetwork: defaultNetwork,
		RPCAlgorithm:   defaultRPCAlgorithm,
		CustomRPCs:     make(map[string][]string),
		Simulation: Simulation{
			Holders:        defaultHolders,
			Trades:         defaultTrades,
			Seed:           defaultSeed,
			DistributorGas: defaultDistributorGas,
			AirdropHours:   defaultAirdropHours,
			LiquidityBase:  defaultLiquidityBase,
		},
		configDir: dir,
	}
}

func positive(v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func loadJSON[T any](path string) (*T, error) {
	var v T
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &v, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func saveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
