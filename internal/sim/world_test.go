package sim_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/sim"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deployer = common.HexToAddress("0x0000000000000000000000000000000000000d01")

func TestDeploy_Addresses(t *testing.T) {
	w := sim.New(sim.Config{Deployer: deployer, Clock: clockwork.NewFakeClock()})
	assert.Equal(t, crypto.CreateAddress(deployer, 0), w.WETH().Address())

	addr := w.Deploy(deployer, "Thing")
	assert.Equal(t, crypto.CreateAddress(deployer, 1), addr)

	name, err := w.ContractName(addr)
	require.NoError(t, err)
	assert.Equal(t, "Thing", name)

	_, err = w.ContractName(common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, sim.ErrNotContract)

	r := w.NewRouter(deployer)
	assert.Equal(t, crypto.CreateAddress(deployer, 3), r.Address())
	assert.Equal(t, w.WETH().Address(), r.WETH())
}

func TestCall_RevertsOnError(t *testing.T) {
	w := sim.New(sim.Config{Deployer: deployer})
	weth := w.WETH()
	boom := errors.New("boom")

	err := w.Call(func() error {
		if err := weth.Mint(deployer, ledger.Units(5, 18)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.True(t, weth.BalanceOf(deployer).IsZero())
	assert.True(t, weth.TotalSupply().IsZero())

	require.NoError(t, w.Call(func() error { return weth.Mint(deployer, ledger.Units(5, 18)) }))
	assert.True(t, ledger.Units(5, 18).Eq(weth.BalanceOf(deployer)))
}

func TestCall_Serialized(t *testing.T) {
	w := sim.New(sim.Config{Deployer: deployer})
	weth := w.WETH()
	require.NoError(t, w.Call(func() error { return weth.Mint(deployer, ledger.Units(1_000, 18)) }))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := common.BigToAddress(common.Big1)
			if i%2 == 0 {
				to = common.BigToAddress(common.Big2)
			}
			assert.NoError(t, w.Call(func() error { return weth.Transfer(deployer, to, ledger.Units(1, 18)) }))
		}(i)
	}
	wg.Wait()

	assert.True(t, ledger.Units(950, 18).Eq(weth.BalanceOf(deployer)))
	assert.True(t, ledger.Units(25, 18).Eq(weth.BalanceOf(common.BigToAddress(common.Big1))))
	assert.True(t, ledger.Units(25, 18).Eq(weth.BalanceOf(common.BigToAddress(common.Big2))))
}
