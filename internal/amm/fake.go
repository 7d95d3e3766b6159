package amm

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// FakeRouter accepts tokens and gives nothing back. It stands in for a
// malicious or broken router in migration drills.
type FakeRouter struct {
	address  common.Address
	weth     common.Address
	registry *ledger.Registry
}

// NewFakeRouter returns a router at addr that swallows everything sent to it.
func NewFakeRouter(addr, weth common.Address, reg *ledger.Registry) *FakeRouter {
	return &FakeRouter{address: addr, weth: weth, registry: reg}
}

func (f *FakeRouter) Address() common.Address { return f.address }
func (f *FakeRouter) WETH() common.Address    { return f.weth }

// GetPair reports a pool at the router's own address for any pair of tokens.
func (f *FakeRouter) GetPair(a, b common.Address) (common.Address, bool) {
	return f.address, true
}

func (f *FakeRouter) PairTokens(pair common.Address) (common.Address, common.Address, bool) {
	return common.Address{}, common.Address{}, false
}

func (f *FakeRouter) CreatePair(a, b common.Address) (common.Address, error) {
	return f.address, nil
}

func (f *FakeRouter) AddLiquidity(caller, tokenA, tokenB common.Address, amountA, amountB *uint256.Int, to common.Address) (Liquidity, error) {
	if err := f.pull(caller, tokenA, amountA); err != nil {
		return Liquidity{}, err
	}
	if err := f.pull(caller, tokenB, amountB); err != nil {
		return Liquidity{}, err
	}
	return Liquidity{AmountA: amountA.Clone(), AmountB: amountB.Clone(), LP: new(uint256.Int)}, nil
}

func (f *FakeRouter) RemoveLiquidity(caller, tokenA, tokenB common.Address, liquidity *uint256.Int, to common.Address) (*uint256.Int, *uint256.Int, error) {
	return new(uint256.Int), new(uint256.Int), nil
}

func (f *FakeRouter) SwapExactTokensForTokens(caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address) (*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	if err := f.pull(caller, path[0], amountIn); err != nil {
		return nil, err
	}
	if !amountOutMin.IsZero() {
		return nil, ErrInsufficientOutputAmount
	}
	return new(uint256.Int), nil
}

func (f *FakeRouter) GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(path))
	for i := range out {
		out[i] = new(uint256.Int)
	}
	if len(out) > 0 {
		out[0] = amountIn.Clone()
	}
	return out, nil
}

func (f *FakeRouter) pull(caller, token common.Address, amount *uint256.Int) error {
	t, err := f.registry.Get(token)
	if err != nil {
		return err
	}
	if err := t.TransferFrom(f.address, caller, f.address, amount); err != nil {
		return fmt.Errorf("pulling %s: %w", t.Symbol(), err)
	}
	return nil
}
