package config

import "time"

// Environment variables read on Load. The config dir's .env file may set them.
const (
	EnvConfigDir = "H2O_CONFIG_DIR"
	EnvNetwork   = "H2O_NETWORK"
	EnvRPCURL    = "H2O_RPC_URL"
)

const (
	RPCTimeout     = 10 * time.Second
	InspectTimeout = 30 * time.Second
)
