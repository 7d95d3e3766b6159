// Package amm is an in-process constant-product exchange: factory, pairs with
// LP tokens, and a router. It is the external collaborator the tax token and
// the LP migrator trade against.
package amm

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/Mohsinsiddi/h2o/internal/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrIdenticalTokens             = errors.New("identical token addresses")
	ErrPairExists                  = errors.New("pair exists")
	ErrPairNotFound                = errors.New("pair not found")
	ErrInsufficientLiquidity       = errors.New("insufficient liquidity")
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	ErrInsufficientInputAmount     = errors.New("insufficient input amount")
	ErrInsufficientOutputAmount    = errors.New("insufficient output amount")
	ErrInvalidPath                 = errors.New("invalid path")
	ErrK                           = errors.New("constant product violated")
)

// MinimumLiquidity is locked forever on the first mint of every pair.
const MinimumLiquidity = 1000

// pairInitCodeHash seeds CREATE2 pair addresses.
var pairInitCodeHash = crypto.Keccak256([]byte("h2o/amm/pair/v2"))

// SortTokens orders two token addresses the way pairs store them.
func SortTokens(a, b common.Address) (common.Address, common.Address) {
	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return a, b
	}
	return b, a
}

// PairAddress derives the address of the a/b pair created by factory.
func PairAddress(factory, a, b common.Address) common.Address {
	t0, t1 := SortTokens(a, b)
	salt := crypto.Keccak256Hash(t0.Bytes(), t1.Bytes())
	return crypto.CreateAddress2(factory, salt, pairInitCodeHash)
}

// Pair holds reserves of two tokens and issues LP tokens at its own address.
type Pair struct {
	journal  *state.Journal
	address  common.Address
	token0   ledger.Token
	token1   ledger.Token
	lp       *ledger.Basic
	reserve0 uint256.Int
	reserve1 uint256.Int
}

func (p *Pair) Address() common.Address { return p.address }
func (p *Pair) Token0() ledger.Token    { return p.token0 }
func (p *Pair) Token1() ledger.Token    { return p.token1 }

// LP is the liquidity token of the pair.
func (p *Pair) LP() *ledger.Basic { return p.lp }

// Reserves returns the last synced reserves in token0, token1 order.
func (p *Pair) Reserves() (*uint256.Int, *uint256.Int) {
	return p.reserve0.Clone(), p.reserve1.Clone()
}

// ReservesFor returns the reserves ordered as (tokenIn, other).
func (p *Pair) ReservesFor(tokenIn common.Address) (*uint256.Int, *uint256.Int) {
	if tokenIn == p.token0.Address() {
		return p.reserve0.Clone(), p.reserve1.Clone()
	}
	return p.reserve1.Clone(), p.reserve0.Clone()
}

// Other returns the counterpart of token in the pair.
func (p *Pair) Other(token common.Address) ledger.Token {
	if token == p.token0.Address() {
		return p.token1
	}
	return p.token0
}

// Has reports whether token is one side of the pair.
func (p *Pair) Has(token common.Address) bool {
	return token == p.token0.Address() || token == p.token1.Address()
}

// Mint issues LP tokens to `to` for whatever was transferred in since the last sync.
func (p *Pair) Mint(to common.Address) (*uint256.Int, error) {
	balance0 := p.token0.BalanceOf(p.address)
	balance1 := p.token1.BalanceOf(p.address)
	if balance0.Lt(&p.reserve0) || balance1.Lt(&p.reserve1) {
		return nil, ErrInsufficientLiquidityMinted
	}
	amount0 := new(uint256.Int).Sub(balance0, &p.reserve0)
	amount1 := new(uint256.Int).Sub(balance1, &p.reserve1)

	supply := p.lp.TotalSupply()
	liquidity := new(uint256.Int)
	if supply.IsZero() {
		root := new(uint256.Int).Sqrt(new(uint256.Int).Mul(amount0, amount1))
		minimum := uint256.NewInt(MinimumLiquidity)
		if !root.Gt(minimum) {
			return nil, ErrInsufficientLiquidityMinted
		}
		liquidity.Sub(root, minimum)
		if err := p.lp.Mint(ledger.DeadAddress, minimum); err != nil {
			return nil, err
		}
	} else {
		l0, _ := new(uint256.Int).MulDivOverflow(amount0, supply, &p.reserve0)
		l1, _ := new(uint256.Int).MulDivOverflow(amount1, supply, &p.reserve1)
		liquidity.Set(l0)
		if l1.Lt(l0) {
			liquidity.Set(l1)
		}
	}
	if liquidity.IsZero() {
		return nil, ErrInsufficientLiquidityMinted
	}
	if err := p.lp.Mint(to, liquidity); err != nil {
		return nil, err
	}
	p.update(balance0, balance1)
	return liquidity, nil
}

// Burn redeems the LP tokens held by the pair itself and pays `to`.
func (p *Pair) Burn(to common.Address) (*uint256.Int, *uint256.Int, error) {
	balance0 := p.token0.BalanceOf(p.address)
	balance1 := p.token1.BalanceOf(p.address)
	liquidity := p.lp.BalanceOf(p.address)
	supply := p.lp.TotalSupply()
	if supply.IsZero() {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	amount0, _ := new(uint256.Int).MulDivOverflow(liquidity, balance0, supply)
	amount1, _ := new(uint256.Int).MulDivOverflow(liquidity, balance1, supply)
	if amount0.IsZero() || amount1.IsZero() {
		return nil, nil, ErrInsufficientLiquidityBurned
	}
	if err := p.lp.Burn(p.address, liquidity); err != nil {
		return nil, nil, err
	}
	if err := p.token0.Transfer(p.address, to, amount0); err != nil {
		return nil, nil, fmt.Errorf("paying %s: %w", p.token0.Symbol(), err)
	}
	if err := p.token1.Transfer(p.address, to, amount1); err != nil {
		return nil, nil, fmt.Errorf("paying %s: %w", p.token1.Symbol(), err)
	}
	p.update(p.token0.BalanceOf(p.address), p.token1.BalanceOf(p.address))
	return amount0, amount1, nil
}

// Swap sends the requested outputs to `to` and checks the fee-adjusted
// constant product against what was transferred in.
func (p *Pair) Swap(amount0Out, amount1Out *uint256.Int, to common.Address) error {
	if amount0Out.IsZero() && amount1Out.IsZero() {
		return ErrInsufficientOutputAmount
	}
	if !amount0Out.Lt(&p.reserve0) || !amount1Out.Lt(&p.reserve1) {
		return ErrInsufficientLiquidity
	}
	if !amount0Out.IsZero() {
		if err := p.token0.Transfer(p.address, to, amount0Out); err != nil {
			return fmt.Errorf("paying %s: %w", p.token0.Symbol(), err)
		}
	}
	if !amount1Out.IsZero() {
		if err := p.token1.Transfer(p.address, to, amount1Out); err != nil {
			return fmt.Errorf("paying %s: %w", p.token1.Symbol(), err)
		}
	}
	balance0 := p.token0.BalanceOf(p.address)
	balance1 := p.token1.BalanceOf(p.address)

	amount0In := amountIn(balance0, &p.reserve0, amount0Out)
	amount1In := amountIn(balance1, &p.reserve1, amount1Out)
	if amount0In.IsZero() && amount1In.IsZero() {
		return ErrInsufficientInputAmount
	}

	thousand := uint256.NewInt(1000)
	three := uint256.NewInt(3)
	adj0 := new(uint256.Int).Sub(new(uint256.Int).Mul(balance0, thousand), new(uint256.Int).Mul(amount0In, three))
	adj1 := new(uint256.Int).Sub(new(uint256.Int).Mul(balance1, thousand), new(uint256.Int).Mul(amount1In, three))
	lhs := new(uint256.Int).Mul(adj0, adj1)
	rhs := new(uint256.Int).Mul(&p.reserve0, &p.reserve1)
	rhs.Mul(rhs, uint256.NewInt(1_000_000))
	if lhs.Lt(rhs) {
		return ErrK
	}
	p.update(balance0, balance1)
	return nil
}

// Sync forces reserves to match balances.
func (p *Pair) Sync() {
	p.update(p.token0.BalanceOf(p.address), p.token1.BalanceOf(p.address))
}

func (p *Pair) update(balance0, balance1 *uint256.Int) {
	state.Set(p.journal, &p.reserve0, *balance0)
	state.Set(p.journal, &p.reserve1, *balance1)
}

// amountIn is balance - (reserve - out), floored at zero.
func amountIn(balance, reserve, out *uint256.Int) *uint256.Int {
	floor := new(uint256.Int).Sub(reserve, out)
	if balance.Gt(floor) {
		return floor.Sub(balance, floor)
	}
	return new(uint256.Int)
}
