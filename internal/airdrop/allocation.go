package airdrop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// DefaultBatchSize is how many allocations one MassUpdate carries.
const DefaultBatchSize = 100

var (
	ErrDuplicateAddress = errors.New("address already exists")
	ErrInvalidAddress   = errors.New("invalid address")
	ErrInvalidAmount    = errors.New("invalid amount")
)

// Allocation is the bulk-load file: parallel address and amount lists.
type Allocation struct {
	Addresses []common.Address
	Amounts   []*uint256.Int
}

type allocationFile struct {
	Addresses []string          `json:"addresses"`
	Amounts   []json.RawMessage `json:"amounts"`
}

// LoadAllocationFile reads and validates an allocation file.
func LoadAllocationFile(path string) (*Allocation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadAllocation(f)
}

// ReadAllocation decodes an allocation. Amounts may be JSON numbers or
// decimal or 0x-hex strings. Duplicate and malformed addresses are rejected.
func ReadAllocation(r io.Reader) (*Allocation, error) {
	var raw allocationFile
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding allocation: %w", err)
	}
	if len(raw.Addresses) != len(raw.Amounts) {
		return nil, fmt.Errorf("%w: %d addresses, %d amounts", ErrLengthMismatch, len(raw.Addresses), len(raw.Amounts))
	}
	out := &Allocation{
		Addresses: make([]common.Address, 0, len(raw.Addresses)),
		Amounts:   make([]*uint256.Int, 0, len(raw.Amounts)),
	}
	seen := make(map[common.Address]int, len(raw.Addresses))
	for i, s := range raw.Addresses {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%w at %d: %q", ErrInvalidAddress, i, s)
		}
		addr := common.HexToAddress(s)
		if addr == (common.Address{}) {
			return nil, fmt.Errorf("%w at %d: zero address", ErrInvalidAddress, i)
		}
		if first, dup := seen[addr]; dup {
			return nil, fmt.Errorf("%w: %s at %d and %d", ErrDuplicateAddress, addr.Hex(), first, i)
		}
		seen[addr] = i

		amount, err := parseAmount(raw.Amounts[i])
		if err != nil {
			return nil, fmt.Errorf("%w at %d: %w", ErrInvalidAmount, i, err)
		}
		out.Addresses = append(out.Addresses, addr)
		out.Amounts = append(out.Amounts, amount)
	}
	return out, nil
}

func parseAmount(msg json.RawMessage) (*uint256.Int, error) {
	s := string(bytes.TrimSpace(msg))
	if unq, ok := strings.CutPrefix(s, `"`); ok {
		s = strings.TrimSuffix(unq, `"`)
	}
	if strings.HasPrefix(s, "0x") {
		return uint256.FromHex(s)
	}
	return uint256.FromDecimal(s)
}

// Len is the number of allocations.
func (a *Allocation) Len() int { return len(a.Addresses) }

// Total sums every amount.
func (a *Allocation) Total() (*uint256.Int, error) {
	total := new(uint256.Int)
	for i, v := range a.Amounts {
		if _, overflow := total.AddOverflow(total, v); overflow {
			return nil, fmt.Errorf("%w: total overflows at %d", ErrInvalidAmount, i)
		}
	}
	return total, nil
}

// Batch is one MassUpdate payload.
type Batch struct {
	Addresses []common.Address
	Amounts   []*uint256.Int
}

// Batches splits the allocation into chunks of at most size entries.
func (a *Allocation) Batches(size int) []Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}
	var out []Batch
	for start := 0; start < len(a.Addresses); start += size {
		end := min(start+size, len(a.Addresses))
		out = append(out, Batch{Addresses: a.Addresses[start:end], Amounts: a.Amounts[start:end]})
	}
	return out
}

// Upload pushes the allocation into the registry batch by batch and returns
// the number of batches sent. A failed batch stops the upload; earlier
// batches stay applied.
func (a *Allocation) Upload(ad *Airdrop, caller common.Address, size int) (int, error) {
	batches := a.Batches(size)
	for i, b := range batches {
		if err := ad.MassUpdate(caller, b.Addresses, b.Amounts); err != nil {
			return i, fmt.Errorf("batch %d/%d: %w", i+1, len(batches), err)
		}
		ad.log.Debug("allocation batch uploaded", "batch", i+1, "of", len(batches), "entries", len(b.Addresses))
	}
	return len(batches), nil
}
