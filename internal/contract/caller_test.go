package contract

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Mohsinsiddi/h2o/internal/chain"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector(t *testing.T) {
	tests := []struct {
		fn       ABIEntry
		expected string
	}{
		{view("balanceOf", "uint256", "address"), "70a08231"},
		{write("transfer", "address", "uint256"), "a9059cbb"},
		{view("name", "string"), "06fdde03"},
		{view("totalSupply", "uint256"), "18160ddd"},
		{view("allowance", "uint256", "address", "address"), "dd62ed3e"},
		{write("transferOwnership", "address"), "f2fde38b"},
		{view("owner", "address"), "8da5cb5b"},
	}
	for _, tt := range tests {
		t.Run(Signature(tt.fn), func(t *testing.T) {
			assert.Equal(t, tt.expected, hex.EncodeToString(Selector(tt.fn)))
		})
	}
}

func TestEncodeCall(t *testing.T) {
	fn := write("setSwapBackSettings", "bool", "uint256")
	data, err := EncodeCall(fn, []string{"true", "0x10"})
	require.NoError(t, err)
	require.Len(t, data, 4+64)
	assert.Equal(t, byte(1), data[4+31])
	assert.Equal(t, byte(0x10), data[4+63])

	addr := "0x00000000000000000000000000000000000a11ce"
	data, err = EncodeCall(view("balanceOf", "uint256", "address"), []string{addr})
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(addr), common.BytesToAddress(data[4:]))
}

func TestEncodeCall_Rejects(t *testing.T) {
	tests := []struct {
		name string
		fn   ABIEntry
		args []string
	}{
		{"arity", view("balanceOf", "uint256", "address"), nil},
		{"address", view("balanceOf", "uint256", "address"), []string{"0x1234"}},
		{"negative uint", write("setDistributorSettings", "uint256"), []string{"-1"}},
		{"not a number", write("setDistributorSettings", "uint256"), []string{"lots"}},
		{"bool", write("setIsFeeExempt", "address", "bool"), []string{"0x00000000000000000000000000000000000a11ce", "yes"}},
		{"array", write("massUpdate", "address[]", "uint256[]"), []string{"[]", "[]"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := EncodeCall(tt.fn, tt.args)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestDecodeResult(t *testing.T) {
	word := func(s string) string { return strings.Repeat("0", 64-len(s)) + s }
	raw, err := hex.DecodeString(word("a11ce") + word("1") + word("2a"))
	require.NoError(t, err)

	fn := ABIEntry{Outputs: []ABIParam{param("address"), param("bool"), param("uint256"), param("uint256")}}
	got := DecodeResult(fn, raw)
	assert.Equal(t, []string{common.HexToAddress("0xa11ce").Hex(), "true", "42", ""}, got)

	// string: offset 0x20, length 3, "H2O"
	raw, err = hex.DecodeString(word("20") + word("3") + hex.EncodeToString([]byte("H2O")) + strings.Repeat("0", 58))
	require.NoError(t, err)
	assert.Equal(t, []string{"H2O"}, DecodeResult(view("symbol", "string"), raw))

	neg, err := hex.DecodeString(strings.Repeat("f", 64))
	require.NoError(t, err)
	assert.Equal(t, []string{"-1"}, DecodeResult(view("delta", "int256"), neg))

	minInt, err := hex.DecodeString("8" + strings.Repeat("0", 63))
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"-57896044618658097711785492504343953926634992332820282019728792003956564819968"},
		DecodeResult(view("delta", "int256"), minInt))
	assert.Equal(t, []string{"42"}, DecodeResult(view("delta", "int256"), mustHex(t, word("2a"))))
}

func TestDecodeResult_MalformedString(t *testing.T) {
	word := func(s string) string { return strings.Repeat("0", 64-len(s)) + s }
	fn := view("symbol", "string")

	// length close to 2^64 must not wrap past the bounds check
	huge := mustHex(t, word("20")+word("ffffffffffffffe1"))
	assert.NotPanics(t, func() { assert.Equal(t, []string{""}, DecodeResult(fn, huge)) })

	// offset pointing past the data
	assert.Equal(t, []string{""}, DecodeResult(fn, mustHex(t, word("ffffffffffffffff"))))
	assert.Equal(t, []string{""}, DecodeResult(fn, mustHex(t, word("40")+word("1"))))

	// length longer than the payload
	assert.Equal(t, []string{""}, DecodeResult(fn, mustHex(t, word("20")+word("40")+word("1"))))
}

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// ---------------------------------------------------------------------------
// Caller against a mock node
// ---------------------------------------------------------------------------

// ethCallMock answers eth_call by selector. Unknown selectors revert.
func ethCallMock(t *testing.T, bySelector map[string]string) *chain.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     int               `json:"id"`
			Params []json.RawMessage `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		var msg struct {
			Data string `json:"data"`
		}
		require.NoError(t, json.Unmarshal(req.Params[0], &msg))
		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		if out, ok := bySelector[msg.Data[2:10]]; ok {
			resp["result"] = "0x" + out
		} else {
			resp["error"] = map[string]any{"code": 3, "message": "execution reverted"}
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return chain.NewClient(srv.URL, 0)
}

func TestCaller_Call(t *testing.T) {
	supply := strings.Repeat("0", 40) + "033b2e3c9fd0803ce8000000" // 1e27
	c := NewCaller(ethCallMock(t, map[string]string{"18160ddd": supply}), GetBuiltinABI("h2o"))
	token := common.HexToAddress("0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F")

	out, err := c.Call(context.Background(), token, "totalSupply")
	require.NoError(t, err)
	assert.Equal(t, []string{"1000000000000000000000000000"}, out)

	_, err = c.Call(context.Background(), token, "nope")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
	_, err = c.Call(context.Background(), token, "transfer", "0x01", "1")
	assert.ErrorIs(t, err, ErrNotReadFunction)
}

func TestCaller_Snapshot(t *testing.T) {
	one := strings.Repeat("0", 63) + "1"
	c := NewCaller(ethCallMock(t, map[string]string{"6ddd1713": one}), GetBuiltinABI("h2o"))
	fields := c.Snapshot(context.Background(), common.HexToAddress("0x01"), []Probe{
		{Label: "Swap enabled", Function: "swapEnabled"},
		{Label: "Owner", Function: "owner"},
	})
	require.Len(t, fields, 2)
	assert.Equal(t, "true", fields[0].Value)
	assert.NoError(t, fields[0].Err)
	assert.Error(t, fields[1].Err)
}
