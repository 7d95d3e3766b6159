package deploy

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/logger"
	"github.com/ethereum/go-ethereum/common"
)

var ErrNotAddress = errors.New("not an address")

// Blacklist maps excluded addresses to a label for logs.
type Blacklist map[common.Address]string

func (b Blacklist) Contains(a common.Address) bool {
	_, ok := b[a]
	return ok
}

// ReadHolders parses a token holder export: a header row, then one holder
// per row with its address in the first column. Blacklisted and repeated
// addresses are skipped.
func ReadHolders(r io.Reader, blacklist Blacklist, log *slog.Logger) ([]common.Address, error) {
	if log == nil {
		log = logger.Discard()
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var holders []common.Address
	seen := make(map[common.Address]bool)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading holders: %w", err)
		}
		if line == 1 || len(rec) == 0 {
			continue
		}
		raw := strings.TrimSpace(strings.Trim(rec[0], `"`))
		if raw == "" {
			continue
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("%w: line %d: %q", ErrNotAddress, line, raw)
		}
		addr := common.HexToAddress(raw)
		if label, ok := blacklist[addr]; ok {
			log.Info("blacklisted", "address", addr.Hex(), "label", label)
			continue
		}
		if seen[addr] {
			continue
		}
		seen[addr] = true
		holders = append(holders, addr)
	}
	return holders, nil
}

// LoadHolders reads a holder export from path.
func LoadHolders(path string, blacklist Blacklist, log *slog.Logger) ([]common.Address, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadHolders(f, blacklist, log)
}

// Batches splits holders into chunks of at most size.
func Batches(holders []common.Address, size int) [][]common.Address {
	if size <= 0 {
		size = HolderBatchSize
	}
	var out [][]common.Address
	for start := 0; start < len(holders); start += size {
		end := min(start+size, len(holders))
		out = append(out, holders[start:end])
	}
	return out
}
