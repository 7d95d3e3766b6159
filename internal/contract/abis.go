package contract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// ABIEntry is one ABI entry (function, event, etc.).
type ABIEntry struct {
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	Inputs          []ABIParam `json:"inputs"`
	Outputs         []ABIParam `json:"outputs"`
	StateMutability string     `json:"stateMutability"`
}

// ABIParam is a parameter in an ABI entry.
type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// IsReadFunction returns true if the function is read-only (view/pure).
func (e ABIEntry) IsReadFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "view" || e.StateMutability == "pure")
}

// IsWriteFunction returns true if the function modifies state.
func (e ABIEntry) IsWriteFunction() bool {
	return e.Type == "function" &&
		(e.StateMutability == "nonpayable" || e.StateMutability == "payable")
}

// ParseABI decodes a JSON ABI array.
func ParseABI(data []byte) ([]ABIEntry, error) {
	var abi []ABIEntry
	if err := json.Unmarshal(data, &abi); err != nil {
		data = bytes.TrimSpace(data)
		if len(data) > 0 && data[0] == '{' {
			return nil, fmt.Errorf("file is a JSON object, not an ABI array; a Hardhat artifact keeps it under \"abi\"")
		}
		return nil, fmt.Errorf("invalid ABI JSON: %w", err)
	}
	return abi, nil
}

// BuiltinKind is a contract type whose ABI ships with the binary. Each
// lives in its own <name>_abi.go and registers itself from init().
type BuiltinKind struct {
	ID          string
	Name        string
	Description string
	ABI         []ABIEntry
}

var builtinRegistry = map[string]BuiltinKind{}

func RegisterBuiltin(b BuiltinKind) {
	builtinRegistry[b.ID] = b
}

// GetBuiltin returns a built-in by ID. ok is false if not found.
func GetBuiltin(id string) (BuiltinKind, bool) {
	b, ok := builtinRegistry[id]
	return b, ok
}

// GetBuiltinABI returns the ABI entries for a built-in ID, or nil if unknown.
func GetBuiltinABI(id string) []ABIEntry {
	return builtinRegistry[id].ABI
}

// AllBuiltins returns all registered built-ins sorted by ID.
func AllBuiltins() []BuiltinKind {
	out := make([]BuiltinKind, 0, len(builtinRegistry))
	for _, b := range builtinRegistry {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ABI construction shorthands for the builtin tables.

func param(typ string) ABIParam { return ABIParam{Type: typ} }

func view(name, out string, in ...string) ABIEntry {
	e := ABIEntry{Name: name, Type: "function", StateMutability: "view", Outputs: []ABIParam{param(out)}}
	for _, t := range in {
		e.Inputs = append(e.Inputs, param(t))
	}
	return e
}

func write(name string, in ...string) ABIEntry {
	e := ABIEntry{Name: name, Type: "function", StateMutability: "nonpayable"}
	for _, t := range in {
		e.Inputs = append(e.Inputs, param(t))
	}
	return e
}

func event(name string, in ...string) ABIEntry {
	e := ABIEntry{Name: name, Type: "event"}
	for _, t := range in {
		e.Inputs = append(e.Inputs, param(t))
	}
	return e
}
