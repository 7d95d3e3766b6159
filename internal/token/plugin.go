package token

import (
	"github.com/Mohsinsiddi/h2o/internal/dividend"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind identifies a plugin slot.
type Kind uint8

const (
	KindLiquidity   Kind = 1
	KindDistributor Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindLiquidity:
		return "liquidity"
	case KindDistributor:
		return "distributor"
	default:
		return "unknown"
	}
}

// Plugin receives a share of the V2 token's fees and converts it.
type Plugin interface {
	Address() common.Address
	// Token is the V2 token the plugin was built for.
	Token() common.Address
	Kind() Kind
	// SwapBack converts the tokens the plugin holds. Only the token calls it.
	SwapBack(caller common.Address) error
	// Retire returns the plugin's holdings to the token after an upgrade.
	Retire(caller common.Address) error
}

// DividendPlugin is a distributor plugin. The token reports share changes to it.
type DividendPlugin interface {
	Plugin
	SetShare(caller, holder common.Address, amount *uint256.Int) error
	Process(caller common.Address, gas uint64, resetCursor bool) (dividend.Result, error)
}
