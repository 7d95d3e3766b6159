package chain

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// rpcMock serves a fixed JSON-RPC result per method. Unknown methods return
// an RPC error. Every request is recorded in calls.
func rpcMock(t *testing.T, responses map[string]any) (*httptest.Server, *[]map[string]any) {
	t.Helper()
	var calls []map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		calls = append(calls, req)
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"jsonrpc": "2.0", "id": req["id"]}
		if result, ok := responses[req["method"].(string)]; ok {
			resp["result"] = result
		} else {
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

func TestClient_BlockNumberAndChainID(t *testing.T) {
	srv, _ := rpcMock(t, map[string]any{
		"eth_blockNumber": "0x1b4",
		"eth_chainId":     "0x505",
	})
	c := NewClient(srv.URL, 0)
	ctx := context.Background()

	n, err := c.BlockNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(436), n)

	id, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1285), id)
}

func TestClient_Call(t *testing.T) {
	word := "0x" + "00000000000000000000000000000000000000000000000000000000000003e8"
	srv, calls := rpcMock(t, map[string]any{"eth_call": word})
	c := NewClient(srv.URL, 0)

	to := common.HexToAddress("0xDC151BC48a5F77288cdE9DdbFf2e32e6bcF4791F")
	out, err := c.Call(context.Background(), to, []byte{0x18, 0x16, 0x0d, 0xdd})
	require.NoError(t, err)
	require.Len(t, out, 32)
	assert.Equal(t, byte(0xe8), out[31])

	require.Len(t, *calls, 1)
	params := (*calls)[0]["params"].([]any)
	msg := params[0].(map[string]any)
	assert.Equal(t, to.Hex(), msg["to"])
	assert.Equal(t, "0x18160ddd", msg["data"])
	assert.Equal(t, "latest", params[1])
}

func TestClient_CodeAndBalance(t *testing.T) {
	srv, _ := rpcMock(t, map[string]any{
		"eth_getCode":    "0x6080",
		"eth_getBalance": "0xde0b6b3a7640000",
	})
	c := NewClient(srv.URL, 0)
	addr := common.HexToAddress("0x01")

	code, err := c.Code(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x60, 0x80}, code)

	bal, err := c.Balance(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())
}

func TestClient_RPCError(t *testing.T) {
	srv, _ := rpcMock(t, nil)
	_, err := NewClient(srv.URL, 0).BlockNumber(context.Background())
	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32601, rpcErr.Code)
}

func TestClient_UnexpectedResult(t *testing.T) {
	srv, _ := rpcMock(t, map[string]any{"eth_blockNumber": 12})
	_, err := NewClient(srv.URL, 0).BlockNumber(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResult)

	srv, _ = rpcMock(t, map[string]any{"eth_chainId": "nothex"})
	_, err = NewClient(srv.URL, 0).ChainID(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedResult)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv, _ := rpcMock(t, map[string]any{"eth_blockNumber": "0x1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewClient(srv.URL, 0).Ping(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
