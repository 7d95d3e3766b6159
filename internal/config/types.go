package config

// Config holds all h2o configuration.
type Config struct {
	DefaultNetwork string              `json:"default_network"`
	RPCAlgorithm   string              `json:"rpc_algorithm"` // fastest | failover
	CustomRPCs     map[string][]string `json:"custom_rpcs"`
	Simulation     Simulation          `json:"simulation"`

	// RPCURL comes from H2O_RPC_URL and wins over every configured RPC.
	RPCURL string `json:"-"`

	// internal: config dir path used for Save()
	configDir string
}

// Simulation parameterizes `h2o simulate`.
type Simulation struct {
	Holders        int    `json:"holders"`
	Trades         int    `json:"trades"`
	Seed           int64  `json:"seed"`
	DistributorGas uint64 `json:"distributor_gas"`
	AirdropHours   int    `json:"airdrop_hours"`
	// LiquidityBase is the WETH, in whole tokens, seeded into the pool.
	LiquidityBase string `json:"liquidity_base"`
}

// Deployment is a contract address the user registered.
type Deployment struct {
	Network string `json:"network"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

// DeploymentsFile is the structure of deployments.json. Source and
// LastSynced track the remote manifest `h2o config sync` pulls from.
type DeploymentsFile struct {
	Source      string       `json:"source,omitempty"`
	LastSynced  string       `json:"last_synced,omitempty"`
	Deployments []Deployment `json:"deployments"`
}
