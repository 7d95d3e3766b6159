package chain

import (
	"errors"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ErrChainNotFound is returned when a network is not in the registry.
var ErrChainNotFound = errors.New("chain not found")

// Network holds the metadata of one chain the token was deployed to.
type Network struct {
	Name           string   `json:"name"`
	DisplayName    string   `json:"display_name"`
	ChainID        int64    `json:"chain_id"`
	NativeCurrency string   `json:"native_currency"`
	RPCs           []string `json:"rpcs"`
	Explorer       string   `json:"explorer,omitempty"`
	Testnet        bool     `json:"testnet"`
}

// Deployment is a known contract on a network.
type Deployment struct {
	Network string
	Name    string
	Address common.Address
}

// Registry is the network registry.
type Registry struct {
	networks    []Network
	byName      map[string]*Network
	byID        map[int64]*Network
	deployments []Deployment
}

// NewRegistry returns the registry of supported networks.
func NewRegistry() *Registry {
	networks := allNetworks()
	r := &Registry{
		networks:    networks,
		byName:      make(map[string]*Network, len(networks)),
		byID:        make(map[int64]*Network, len(networks)),
		deployments: knownDeployments(),
	}
	for i := range r.networks {
		n := &r.networks[i]
		r.byName[n.Name] = n
		r.byID[n.ChainID] = n
	}
	return r
}

func (r *Registry) All() []Network { return r.networks }

// GetByName finds a network by its slug, e.g. "moonriver".
func (r *Registry) GetByName(name string) (*Network, error) {
	n, ok := r.byName[strings.ToLower(name)]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

func (r *Registry) GetByChainID(id int64) (*Network, error) {
	n, ok := r.byID[id]
	if !ok {
		return nil, ErrChainNotFound
	}
	return n, nil
}

// Deployment returns the named contract on network.
func (r *Registry) Deployment(network, name string) (Deployment, bool) {
	i := slices.IndexFunc(r.deployments, func(d Deployment) bool {
		return d.Network == strings.ToLower(network) && d.Name == name
	})
	if i < 0 {
		return Deployment{}, false
	}
	return r.deployments[i], true
}

// Deployments lists the known contracts on network.
func (r *Registry) Deployments(network string) []Deployment {
	var out []Deployment
	for _, d := range r.deployments {
		if d.Network == strings.ToLower(network) {
			out = append(out, d)
		}
	}
	return out
}

func allNetworks() []Network {
	return []Network{
		{
			Name:           "moonriver",
			DisplayName:    "Moonriver",
			ChainID:        1285,
			NativeCurrency: "MOVR",
			RPCs:           []string{"https://rpc.moonriver.moonbeam.network"},
			Explorer:       "https://moonriver.moonscan.io",
		},
		{
			Name:           "moonbase-alpha",
			DisplayName:    "Moonbase Alpha",
			ChainID:        1287,
			NativeCurrency: "DEV",
			RPCs:           []string{"https://rpc.testnet.moonbeam.network"},
			Explorer:       "https://moonbase.moonscan.io",
			Testnet:        true,
		},
		{
			Name:           "hardhat",
			DisplayName:    "Local Hardhat",
			ChainID:        31337,
			NativeCurrency: "ETH",
			RPCs:           []string{"http://127.0.0.1:8545"},
			Testnet:        true,
		},
	}
}

func knownDeployments() []Deployment {
	return []Deployment{
		{Network: "moonriver", Name: "h2o", Address: common.HexToAddress("0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F")},
		{Network: "moonriver", Name: "router", Address: common.HexToAddress("0x2d4e873f9Ab279da9f1bb2c532d4F06f67755b77")},
		{Network: "moonriver", Name: "migrator", Address: common.HexToAddress("0x36A58BEd6347DAE855D4B5E29d21A93E1dE66450")},
		{Network: "moonriver", Name: "airdrop", Address: common.HexToAddress("0x0D5C0Cd9e1f1C315B1AeDFe4C5DdC677E082F1aA")},
		{Network: "moonbase-alpha", Name: "h2o", Address: common.HexToAddress("0x93E737101480C503d31cbd1998Aa839AA4f0cB5C")},
		{Network: "moonbase-alpha", Name: "h2o-v2", Address: common.HexToAddress("0x6D9CbfaE02fb3c34ac45fc76d5A8c00Eb65Fe102")},
	}
}
