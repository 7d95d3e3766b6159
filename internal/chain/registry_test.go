package chain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	require.NotEmpty(t, r.All())

	n, err := r.GetByName("Moonriver")
	require.NoError(t, err)
	assert.Equal(t, int64(1285), n.ChainID)
	assert.False(t, n.Testnet)

	n, err = r.GetByChainID(1287)
	require.NoError(t, err)
	assert.Equal(t, "moonbase-alpha", n.Name)

	_, err = r.GetByName("solana")
	assert.ErrorIs(t, err, ErrChainNotFound)
	_, err = r.GetByChainID(1)
	assert.ErrorIs(t, err, ErrChainNotFound)
}

func TestRegistry_AllHaveRPCs(t *testing.T) {
	seen := map[int64]bool{}
	for _, n := range NewRegistry().All() {
		assert.NotEmpty(t, n.RPCs, n.Name)
		assert.False(t, seen[n.ChainID], "duplicate chain id %d", n.ChainID)
		seen[n.ChainID] = true
	}
}

func TestRegistry_Deployments(t *testing.T) {
	r := NewRegistry()
	d, ok := r.Deployment("moonriver", "h2o")
	require.True(t, ok)
	assert.Equal(t, common.HexToAddress("0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F"), d.Address)

	_, ok = r.Deployment("moonriver", "h2o-v2")
	assert.False(t, ok)
	assert.Len(t, r.Deployments("moonbase-alpha"), 2)
	assert.Empty(t, r.Deployments("hardhat"))
}
