package amm

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Router is the surface the tax token and the migrator call.
// Every method that moves tokens pulls them from caller with TransferFrom,
// so caller must have approved the router.
type Router interface {
	Address() common.Address
	WETH() common.Address
	// GetPair returns the address of the a/b pool, if one exists.
	GetPair(a, b common.Address) (common.Address, bool)
	// PairTokens returns the two tokens of the pool at pair.
	PairTokens(pair common.Address) (common.Address, common.Address, bool)
	CreatePair(a, b common.Address) (common.Address, error)
	AddLiquidity(caller, tokenA, tokenB common.Address, amountA, amountB *uint256.Int, to common.Address) (Liquidity, error)
	RemoveLiquidity(caller, tokenA, tokenB common.Address, liquidity *uint256.Int, to common.Address) (*uint256.Int, *uint256.Int, error)
	// SwapExactTokensForTokens supports fee-on-transfer tokens and returns
	// what `to` actually received.
	SwapExactTokensForTokens(caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address) (*uint256.Int, error)
	GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error)
}

// Liquidity is the result of AddLiquidity.
type Liquidity struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
	LP      *uint256.Int
}

// V2Router routes through a single Factory.
type V2Router struct {
	address  common.Address
	weth     common.Address
	factory  *Factory
	registry *ledger.Registry
}

// NewV2Router returns a router at addr.
func NewV2Router(addr, weth common.Address, factory *Factory, reg *ledger.Registry) *V2Router {
	return &V2Router{address: addr, weth: weth, factory: factory, registry: reg}
}

func (r *V2Router) Address() common.Address { return r.address }
func (r *V2Router) WETH() common.Address    { return r.weth }
func (r *V2Router) Factory() *Factory       { return r.factory }

func (r *V2Router) GetPair(a, b common.Address) (common.Address, bool) {
	p, ok := r.factory.GetPair(a, b)
	if !ok {
		return common.Address{}, false
	}
	return p.Address(), true
}

func (r *V2Router) PairTokens(pair common.Address) (common.Address, common.Address, bool) {
	p, ok := r.factory.PairAt(pair)
	if !ok {
		return common.Address{}, common.Address{}, false
	}
	return p.Token0().Address(), p.Token1().Address(), true
}

func (r *V2Router) CreatePair(a, b common.Address) (common.Address, error) {
	p, err := r.factory.CreatePair(a, b)
	if err != nil {
		return common.Address{}, err
	}
	return p.Address(), nil
}

// GetAmountOut applies the 0.3% fee to a constant-product quote.
func GetAmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrInsufficientInputAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	withFee := new(uint256.Int).Mul(amountIn, uint256.NewInt(997))
	num := new(uint256.Int).Mul(withFee, reserveOut)
	den := new(uint256.Int).Mul(reserveIn, uint256.NewInt(1000))
	den.Add(den, withFee)
	return num.Div(num, den), nil
}

// Quote returns the amount of B worth amountA at the current reserves.
func Quote(amountA, reserveA, reserveB *uint256.Int) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(amountA, reserveB, reserveA)
	return out
}

func (r *V2Router) GetAmountsOut(amountIn *uint256.Int, path []common.Address) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	amounts := make([]*uint256.Int, len(path))
	amounts[0] = amountIn.Clone()
	for i := 0; i < len(path)-1; i++ {
		p, ok := r.factory.GetPair(path[i], path[i+1])
		if !ok {
			return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, path[i].Hex(), path[i+1].Hex())
		}
		rIn, rOut := p.ReservesFor(path[i])
		out, err := GetAmountOut(amounts[i], rIn, rOut)
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

func (r *V2Router) SwapExactTokensForTokens(caller common.Address, amountIn, amountOutMin *uint256.Int, path []common.Address, to common.Address) (*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}
	first, ok := r.factory.GetPair(path[0], path[1])
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, path[0].Hex(), path[1].Hex())
	}
	tokenIn, err := r.registry.Get(path[0])
	if err != nil {
		return nil, err
	}
	tokenOut, err := r.registry.Get(path[len(path)-1])
	if err != nil {
		return nil, err
	}

	before := tokenOut.BalanceOf(to)
	if err := tokenIn.TransferFrom(r.address, caller, first.Address(), amountIn); err != nil {
		return nil, fmt.Errorf("pulling %s: %w", tokenIn.Symbol(), err)
	}
	if err := r.swapSupportingFee(path, to); err != nil {
		return nil, err
	}
	received := new(uint256.Int).Sub(tokenOut.BalanceOf(to), before)
	if received.Lt(amountOutMin) {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrInsufficientOutputAmount, received.ToBig(), amountOutMin.ToBig())
	}
	return received, nil
}

// swapSupportingFee measures each hop's input from the pair balance, so
// tokens that tax their own transfers still route correctly.
func (r *V2Router) swapSupportingFee(path []common.Address, to common.Address) error {
	for i := 0; i < len(path)-1; i++ {
		input, output := path[i], path[i+1]
		p, ok := r.factory.GetPair(input, output)
		if !ok {
			return fmt.Errorf("%w: %s/%s", ErrPairNotFound, input.Hex(), output.Hex())
		}
		rIn, rOut := p.ReservesFor(input)
		tokenIn, err := r.registry.Get(input)
		if err != nil {
			return err
		}
		if tokenIn.BalanceOf(p.Address()).Lt(rIn) {
			return ErrInsufficientInputAmount
		}
		in := new(uint256.Int).Sub(tokenIn.BalanceOf(p.Address()), rIn)
		out, err := GetAmountOut(in, rIn, rOut)
		if err != nil {
			return err
		}

		recipient := to
		if i < len(path)-2 {
			next, ok := r.factory.GetPair(output, path[i+2])
			if !ok {
				return fmt.Errorf("%w: %s/%s", ErrPairNotFound, output.Hex(), path[i+2].Hex())
			}
			recipient = next.Address()
		}
		zero := new(uint256.Int)
		if input == p.Token0().Address() {
			err = p.Swap(zero, out, recipient)
		} else {
			err = p.Swap(out, zero, recipient)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *V2Router) AddLiquidity(caller, tokenA, tokenB common.Address, desiredA, desiredB *uint256.Int, to common.Address) (Liquidity, error) {
	p, ok := r.factory.GetPair(tokenA, tokenB)
	if !ok {
		var err error
		if p, err = r.factory.CreatePair(tokenA, tokenB); err != nil {
			return Liquidity{}, err
		}
	}

	amountA, amountB := desiredA.Clone(), desiredB.Clone()
	rA, rB := p.ReservesFor(tokenA)
	if !rA.IsZero() || !rB.IsZero() {
		if optB := Quote(desiredA, rA, rB); !optB.Gt(desiredB) {
			amountB = optB
		} else {
			amountA = Quote(desiredB, rB, rA)
		}
	}

	tokA, err := r.registry.Get(tokenA)
	if err != nil {
		return Liquidity{}, err
	}
	tokB, err := r.registry.Get(tokenB)
	if err != nil {
		return Liquidity{}, err
	}
	if err := tokA.TransferFrom(r.address, caller, p.Address(), amountA); err != nil {
		return Liquidity{}, fmt.Errorf("pulling %s: %w", tokA.Symbol(), err)
	}
	if err := tokB.TransferFrom(r.address, caller, p.Address(), amountB); err != nil {
		return Liquidity{}, fmt.Errorf("pulling %s: %w", tokB.Symbol(), err)
	}
	lp, err := p.Mint(to)
	if err != nil {
		return Liquidity{}, err
	}
	return Liquidity{AmountA: amountA, AmountB: amountB, LP: lp}, nil
}

func (r *V2Router) RemoveLiquidity(caller, tokenA, tokenB common.Address, liquidity *uint256.Int, to common.Address) (*uint256.Int, *uint256.Int, error) {
	p, ok := r.factory.GetPair(tokenA, tokenB)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, tokenA.Hex(), tokenB.Hex())
	}
	if err := p.LP().TransferFrom(r.address, caller, p.Address(), liquidity); err != nil {
		return nil, nil, fmt.Errorf("pulling LP: %w", err)
	}
	amount0, amount1, err := p.Burn(to)
	if err != nil {
		return nil, nil, err
	}
	if tokenA == p.Token0().Address() {
		return amount0, amount1, nil
	}
	return amount1, amount0, nil
}
