package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv keeps .env loading from leaking between tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvNetwork, config.EnvRPCURL} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "moonriver", cfg.DefaultNetwork)
	assert.Equal(t, "fastest", cfg.RPCAlgorithm)
	assert.Equal(t, 50, cfg.Simulation.Holders)
	assert.Equal(t, 200, cfg.Simulation.Trades)
	assert.Equal(t, uint64(500_000), cfg.Simulation.DistributorGas)
	assert.Equal(t, 168, cfg.Simulation.AirdropHours)
	assert.Equal(t, "10", cfg.Simulation.LiquidityBase)
	assert.Empty(t, cfg.RPCURL)
	assert.Equal(t, dir, cfg.Dir())
}

func TestLoadCreatesDir(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "nested", "h2o")
	_, err := config.Load(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveAndReloadConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)

	cfg.DefaultNetwork = "moonbase-alpha"
	cfg.Simulation.Seed = 42
	require.NoError(t, cfg.Save())

	reloaded, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "moonbase-alpha", reloaded.DefaultNetwork)
	assert.Equal(t, int64(42), reloaded.Simulation.Seed)
	assert.Equal(t, 50, reloaded.Simulation.Holders)
}

func TestLoadCorruptConfig(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte("{not json"), 0o600))

	_, err := config.Load(dir)
	assert.ErrorContains(t, err, "parsing config")
}

// ---------------------------------------------------------------------------
// Environment
// ---------------------------------------------------------------------------

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	env := "H2O_NETWORK=hardhat\nH2O_RPC_URL=http://127.0.0.1:8545\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(env), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "hardhat", cfg.DefaultNetwork)
	assert.Equal(t, "http://127.0.0.1:8545", cfg.RPCURL)
}

func TestEnvironmentWinsOverDotEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvNetwork, "moonbase-alpha")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("H2O_NETWORK=hardhat\n"), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "moonbase-alpha", cfg.DefaultNetwork)
}

// ---------------------------------------------------------------------------
// RPCs
// ---------------------------------------------------------------------------

func TestAddCustomRPC(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.AddRPC("moonriver", "https://custom.rpc"))
	assert.ErrorContains(t, cfg.AddRPC("moonriver", "https://custom.rpc"), "already exists")

	rpcs := cfg.RPCs("moonriver", []string{"https://public.rpc"})
	assert.Equal(t, []string{"https://custom.rpc", "https://public.rpc"}, rpcs)
}

func TestRPCOverrideComesFirst(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvRPCURL, "http://localhost:8545")
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	rpcs := cfg.RPCs("moonriver", []string{"https://public.rpc"})
	assert.Equal(t, "http://localhost:8545", rpcs[0])
	assert.Len(t, rpcs, 2)
}

// ---------------------------------------------------------------------------
// Set
// ---------------------------------------------------------------------------

func TestSetKnownKeys(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, cfg.Set("default_network", "hardhat"))
	require.NoError(t, cfg.Set("rpc_algorithm", "failover"))
	require.NoError(t, cfg.Set("simulation.holders", "7"))
	require.NoError(t, cfg.Set("simulation.seed", "-3"))
	require.NoError(t, cfg.Set("Simulation.Distributor_Gas", "250000"))
	require.NoError(t, cfg.Set("simulation.liquidity_base", "2.5"))

	assert.Equal(t, "hardhat", cfg.DefaultNetwork)
	assert.Equal(t, "failover", cfg.RPCAlgorithm)
	assert.Equal(t, 7, cfg.Simulation.Holders)
	assert.Equal(t, int64(-3), cfg.Simulation.Seed)
	assert.Equal(t, uint64(250_000), cfg.Simulation.DistributorGas)
	assert.Equal(t, "2.5", cfg.Simulation.LiquidityBase)
}

func TestSetRejectsBadInput(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Set("wallet", "x"), config.ErrUnknownKey)
	assert.Error(t, cfg.Set("rpc_algorithm", "round-robin"))
	assert.Error(t, cfg.Set("simulation.holders", "0"))
	assert.Error(t, cfg.Set("simulation.trades", "many"))
	assert.Error(t, cfg.Set("simulation.liquidity_base", "ten"))
	assert.Equal(t, "10", cfg.Simulation.LiquidityBase)
	assert.Len(t, config.Keys(), 8)
}

// ---------------------------------------------------------------------------
// Deployments
// ---------------------------------------------------------------------------

func TestDeploymentsRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	df, err := cfg.LoadDeployments()
	require.NoError(t, err)
	assert.Empty(t, df.Deployments)

	df.Put(config.Deployment{Network: "hardhat", Name: "h2o", Address: "0x01"})
	df.Put(config.Deployment{Network: "hardhat", Name: "h2o", Address: "0x02"})
	df.Put(config.Deployment{Network: "hardhat", Name: "migrator", Address: "0x03"})
	require.NoError(t, cfg.SaveDeployments(df))

	again, err := cfg.LoadDeployments()
	require.NoError(t, err)
	require.Len(t, again.Deployments, 2)

	d, ok := again.Find("hardhat", "h2o")
	require.True(t, ok)
	assert.Equal(t, "0x02", d.Address)

	_, ok = again.Find("moonriver", "h2o")
	assert.False(t, ok)
}
