package amm

import (
	"fmt"

	"github.com/Mohsinsiddi/h2o/internal/ledger"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// CheckPath verifies that path starts at from and ends at to. A single
// element path is only valid when from and to are the same token.
func CheckPath(path []common.Address, from, to common.Address) error {
	if len(path) == 0 {
		return fmt.Errorf("%w: empty", ErrInvalidPath)
	}
	if path[0] != from || path[len(path)-1] != to {
		return fmt.Errorf("%w: want %s→%s, got %s→%s", ErrInvalidPath,
			from.Hex(), to.Hex(), path[0].Hex(), path[len(path)-1].Hex())
	}
	for i := 1; i < len(path); i++ {
		if path[i] == path[i-1] {
			return fmt.Errorf("%w: repeated hop %s", ErrInvalidPath, path[i].Hex())
		}
	}
	return nil
}

// Route moves amount of path[0] held by holder along path and delivers the
// output to `to`. A one-element path is a plain transfer. It returns what
// `to` received. The holder approves the router for path[0] as needed.
func Route(r Router, tokens *ledger.Registry, holder common.Address, amount *uint256.Int, path []common.Address, to common.Address) (*uint256.Int, error) {
	if len(path) == 0 {
		return nil, ErrInvalidPath
	}
	if amount.IsZero() {
		return new(uint256.Int), nil
	}
	first, err := tokens.Get(path[0])
	if err != nil {
		return nil, err
	}
	if len(path) == 1 {
		if holder == to {
			return amount.Clone(), nil
		}
		before := first.BalanceOf(to)
		if err := first.Transfer(holder, to, amount); err != nil {
			return nil, err
		}
		return new(uint256.Int).Sub(first.BalanceOf(to), before), nil
	}
	if err := Allow(first, holder, r.Address(), amount); err != nil {
		return nil, err
	}
	return r.SwapExactTokensForTokens(holder, amount, new(uint256.Int), path, to)
}

// Allow grants spender an unlimited allowance over holder's tokens unless
// the current one already covers amount.
func Allow(t ledger.Token, holder, spender common.Address, amount *uint256.Int) error {
	if !t.Allowance(holder, spender).Lt(amount) {
		return nil
	}
	return t.Approve(holder, spender, ledger.MaxUint256)
}
