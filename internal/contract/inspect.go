package contract

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Probe names one read to take from a contract.
type Probe struct {
	Label    string
	Function string
	Args     []string
}

// Field is the outcome of a Probe.
type Field struct {
	Label string
	Value string
	Err   error
}

// H2OProbes reads the state an operator checks on a live first generation token.
var H2OProbes = []Probe{
	{Label: "Name", Function: "name"},
	{Label: "Symbol", Function: "symbol"},
	{Label: "Decimals", Function: "decimals"},
	{Label: "Total supply", Function: "totalSupply"},
	{Label: "Circulating", Function: "getCirculatingSupply"},
	{Label: "Owner", Function: "owner"},
	{Label: "Router", Function: "router"},
	{Label: "Pair", Function: "pair"},
	{Label: "Distributor", Function: "distributor"},
	{Label: "Distributor gas", Function: "distributorGas"},
	{Label: "Swap enabled", Function: "swapEnabled"},
	{Label: "Swap threshold", Function: "swapThreshold"},
	{Label: "Liquidity backing", Function: "getLiquidityBacking", Args: []string{"100"}},
}

// V2Probes is H2OProbes for the plugin generation.
var V2Probes = []Probe{
	{Label: "Name", Function: "name"},
	{Label: "Symbol", Function: "symbol"},
	{Label: "Total supply", Function: "totalSupply"},
	{Label: "Owner", Function: "owner"},
	{Label: "Pair", Function: "pair"},
	{Label: "Liquidity plugin", Function: "plugin", Args: []string{"1"}},
	{Label: "Distributor plugin", Function: "plugin", Args: []string{"2"}},
	{Label: "Approval delay", Function: "approvalDelay"},
}

// Snapshot runs every probe against addr. A failing probe is reported in
// its Field and does not stop the others.
func (c *Caller) Snapshot(ctx context.Context, addr common.Address, probes []Probe) []Field {
	fields := make([]Field, 0, len(probes))
	for _, p := range probes {
		out, err := c.Call(ctx, addr, p.Function, p.Args...)
		fields = append(fields, Field{Label: p.Label, Value: strings.Join(out, ", "), Err: err})
	}
	return fields
}

// ProbesFor reads every argument-free view of abi, labelled by function name.
func ProbesFor(abi []ABIEntry) []Probe {
	var out []Probe
	for _, e := range abi {
		if e.IsReadFunction() && len(e.Inputs) == 0 {
			out = append(out, Probe{Label: e.Name, Function: e.Name})
		}
	}
	return out
}

// ProbesForKind picks the curated probes for the token generations and
// falls back to ProbesFor on the builtin ABI.
func ProbesForKind(kind string) []Probe {
	switch kind {
	case "h2o":
		return H2OProbes
	case "h2o-v2":
		return V2Probes
	}
	return ProbesFor(GetBuiltinABI(kind))
}
