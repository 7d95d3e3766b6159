// Package fees is the transfer-tax policy: rate sets per direction, the
// address flag table, and the wallet-size limit.
package fees

import (
	"errors"
	"fmt"
	"math/bits"
)

var (
	ErrInvalidFees         = errors.New("invalid fee configuration")
	ErrInvalidLimit        = errors.New("invalid wallet limit")
	ErrWalletLimitExceeded = errors.New("transfer amount exceeds the bag size")
)

// Direction classifies a transfer relative to the registered pairs.
type Direction int

const (
	Transfer Direction = iota
	Buy
	Sell
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "transfer"
	}
}

// Rates are fee numerators over Config.Denominator.
type Rates struct {
	Liquidity  uint64 `json:"liquidity"`
	Reflection uint64 `json:"reflection"`
	Treasury   uint64 `json:"treasury"`
}

// Total is the sum of all components.
func (r Rates) Total() uint64 {
	return r.Liquidity + r.Reflection + r.Treasury
}

// checkedTotal is Total with overflow detection.
func (r Rates) checkedTotal() (uint64, bool) {
	sum, c1 := bits.Add64(r.Liquidity, r.Reflection, 0)
	sum, c2 := bits.Add64(sum, r.Treasury, 0)
	return sum, c1|c2 == 0
}

// Config holds one rate set per direction.
type Config struct {
	Buy         Rates  `json:"buy"`
	Sell        Rates  `json:"sell"`
	Transfer    Rates  `json:"transfer"`
	Denominator uint64 `json:"denominator"`
}

// DefaultConfig is 5% on buys and wallet transfers, 10% on sells.
func DefaultConfig() Config {
	base := Rates{Liquidity: 10, Reflection: 30, Treasury: 10}
	return Config{
		Buy:         base,
		Sell:        Rates{Liquidity: 20, Reflection: 60, Treasury: 20},
		Transfer:    base,
		Denominator: 1000,
	}
}

// Validate rejects a zero denominator and any rate set above 100%.
func (c Config) Validate() error {
	if c.Denominator == 0 {
		return fmt.Errorf("%w: zero denominator", ErrInvalidFees)
	}
	for _, d := range []Direction{Buy, Sell, Transfer} {
		total, ok := c.For(d).checkedTotal()
		if !ok {
			return fmt.Errorf("%w: %s fee overflows", ErrInvalidFees, d)
		}
		if total > c.Denominator {
			return fmt.Errorf("%w: %s fee %d/%d exceeds 100%%", ErrInvalidFees, d, total, c.Denominator)
		}
	}
	return nil
}

// For returns the rate set applied in direction d.
func (c Config) For(d Direction) Rates {
	switch d {
	case Buy:
		return c.Buy
	case Sell:
		return c.Sell
	default:
		return c.Transfer
	}
}

// Limit is a fraction of total supply.
type Limit struct {
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

// DefaultMaxWallet is 2% of supply.
func DefaultMaxWallet() Limit {
	return Limit{Numerator: 20, Denominator: 1000}
}

// Validate requires a non-zero fraction no greater than one.
func (l Limit) Validate() error {
	if l.Denominator == 0 || l.Numerator == 0 || l.Numerator > l.Denominator {
		return fmt.Errorf("%w: %d/%d", ErrInvalidLimit, l.Numerator, l.Denominator)
	}
	return nil
}
