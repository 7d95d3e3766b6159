package contract

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Mohsinsiddi/h2o/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"golang.org/x/crypto/sha3"
)

// twoTo256 shifts a set sign bit into a negative int256.
var twoTo256 = new(big.Int).Lsh(big.NewInt(1), 256)

var (
	ErrFunctionNotFound = errors.New("function not found in ABI")
	ErrNotReadFunction  = errors.New("not a read function")
	ErrInvalidArgument  = errors.New("invalid argument")
)

// Caller calls read-only (view/pure) contract functions.
type Caller struct {
	client *chain.Client
	abi    []ABIEntry
}

func NewCaller(client *chain.Client, abi []ABIEntry) *Caller {
	return &Caller{client: client, abi: abi}
}

// Call calls a read function and returns its outputs as strings.
func (c *Caller) Call(ctx context.Context, addr common.Address, funcName string, args ...string) ([]string, error) {
	fn, ok := c.Function(funcName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrFunctionNotFound, funcName)
	}
	if !fn.IsReadFunction() {
		return nil, fmt.Errorf("%w: %q (stateMutability: %s)", ErrNotReadFunction, funcName, fn.StateMutability)
	}

	calldata, err := EncodeCall(fn, args)
	if err != nil {
		return nil, fmt.Errorf("encoding call: %w", err)
	}
	result, err := c.client.Call(ctx, addr, calldata)
	if err != nil {
		return nil, fmt.Errorf("contract call failed: %w", err)
	}
	return DecodeResult(fn, result), nil
}

// Function finds a function entry by name.
func (c *Caller) Function(name string) (ABIEntry, bool) {
	for _, e := range c.abi {
		if e.Type == "function" && e.Name == name {
			return e, true
		}
	}
	return ABIEntry{}, false
}

// --- ABI encoding (static types only) ---

// Signature is the canonical form, e.g. "transfer(address,uint256)".
func Signature(fn ABIEntry) string {
	types := make([]string, len(fn.Inputs))
	for i, p := range fn.Inputs {
		types[i] = p.Type
	}
	return fn.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the 4-byte function selector.
func Selector(fn ABIEntry) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(Signature(fn)))
	return h.Sum(nil)[:4]
}

// EncodeCall builds calldata: selector followed by one word per argument.
func EncodeCall(fn ABIEntry, args []string) ([]byte, error) {
	if len(args) != len(fn.Inputs) {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", ErrInvalidArgument, fn.Name, len(fn.Inputs), len(args))
	}
	out := Selector(fn)
	for i, p := range fn.Inputs {
		word, err := encodeParam(p.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("param %d (%s): %w", i, p.Type, err)
		}
		out = append(out, word...)
	}
	return out, nil
}

func encodeParam(typ, val string) ([]byte, error) {
	switch {
	case typ == "address":
		if !common.IsHexAddress(val) {
			return nil, fmt.Errorf("%w: address %q", ErrInvalidArgument, val)
		}
		return common.LeftPadBytes(common.HexToAddress(val).Bytes(), 32), nil

	case strings.HasPrefix(typ, "uint") || strings.HasPrefix(typ, "int"):
		n, ok := new(big.Int).SetString(val, 0)
		if !ok || (n.Sign() < 0 && strings.HasPrefix(typ, "uint")) {
			return nil, fmt.Errorf("%w: integer %q", ErrInvalidArgument, val)
		}
		if n.BitLen() > 256 {
			return nil, fmt.Errorf("%w: %q overflows 256 bits", ErrInvalidArgument, val)
		}
		return math.U256Bytes(n), nil

	case typ == "bool":
		word := make([]byte, 32)
		switch val {
		case "true", "1":
			word[31] = 1
		case "false", "0":
		default:
			return nil, fmt.Errorf("%w: bool %q", ErrInvalidArgument, val)
		}
		return word, nil

	case typ == "bytes32":
		b, err := hex.DecodeString(strings.TrimPrefix(val, "0x"))
		if err != nil || len(b) > 32 {
			return nil, fmt.Errorf("%w: bytes32 %q", ErrInvalidArgument, val)
		}
		return common.RightPadBytes(b, 32), nil

	default:
		return nil, fmt.Errorf("%w: unsupported type %s", ErrInvalidArgument, typ)
	}
}

// DecodeResult decodes return data into one string per output. Outputs
// past the end of data decode as "".
func DecodeResult(fn ABIEntry, data []byte) []string {
	results := make([]string, 0, len(fn.Outputs))
	for i, out := range fn.Outputs {
		off := i * 32
		if off+32 > len(data) {
			results = append(results, "")
			continue
		}
		results = append(results, decodeWord(out.Type, data[off:off+32], data))
	}
	return results
}

func decodeWord(typ string, word, full []byte) string {
	switch {
	case typ == "address":
		return common.BytesToAddress(word[12:]).Hex()

	case strings.HasPrefix(typ, "uint"):
		return new(big.Int).SetBytes(word).String()

	case strings.HasPrefix(typ, "int"):
		v := new(big.Int).SetBytes(word)
		if v.Bit(255) == 1 {
			v.Sub(v, twoTo256)
		}
		return v.String()

	case typ == "bool":
		return fmt.Sprint(word[31] == 1)

	case typ == "string":
		size := uint64(len(full))
		off := new(big.Int).SetBytes(word)
		if !off.IsUint64() || off.Uint64() > size || size-off.Uint64() < 32 {
			return ""
		}
		start := off.Uint64() + 32
		length := new(big.Int).SetBytes(full[off.Uint64():start])
		if !length.IsUint64() || length.Uint64() > size-start {
			return ""
		}
		return string(full[start : start+length.Uint64()])

	default:
		return "0x" + hex.EncodeToString(word)
	}
}
