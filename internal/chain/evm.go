package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrUnexpectedResult is returned when a node answers with the wrong shape.
var ErrUnexpectedResult = errors.New("unexpected RPC result")

const defaultTimeout = 15 * time.Second

// RPCError is a JSON-RPC error object returned by the node.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Client is a minimal JSON-RPC client for EVM chains.
type Client struct {
	url    string
	client *http.Client
	nextID atomic.Int64
}

// NewClient creates a client pointed at url. A zero timeout uses 15s.
func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *Client) URL() string { return c.url }

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := c.callBig(ctx, "eth_blockNumber")
	if err != nil {
		return 0, err
	}
	return n.Uint64(), nil
}

// ChainID returns the chain's ID.
func (c *Client) ChainID(ctx context.Context) (int64, error) {
	n, err := c.callBig(ctx, "eth_chainId")
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// Balance returns the native balance of addr in wei.
func (c *Client) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	return c.callBig(ctx, "eth_getBalance", addr.Hex(), "latest")
}

// Code returns the bytecode at addr. It is empty for accounts.
func (c *Client) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	return c.callBytes(ctx, "eth_getCode", addr.Hex(), "latest")
}

// Call runs a read-only call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := map[string]string{"to": to.Hex(), "data": hexutil.Encode(data)}
	return c.callBytes(ctx, "eth_call", msg, "latest")
}

// Ping measures a round trip and returns the latest block.
func (c *Client) Ping(ctx context.Context) (time.Duration, uint64, error) {
	start := time.Now()
	n, err := c.BlockNumber(ctx)
	return time.Since(start), n, err
}

// --- internal JSON-RPC plumbing ---

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int64  `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.nextID.Add(1),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RPC request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, fmt.Errorf("parsing response (HTTP %d): %w", resp.StatusCode, err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}

func (c *Client) callString(ctx context.Context, method string, params ...any) (string, error) {
	raw, err := c.call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %s: %s", ErrUnexpectedResult, method, raw)
	}
	return s, nil
}

func (c *Client) callBig(ctx context.Context, method string, params ...any) (*big.Int, error) {
	s, err := c.callString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	n, err := hexutil.DecodeBig(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedResult, method, err)
	}
	return n, nil
}

func (c *Client) callBytes(ctx context.Context, method string, params ...any) ([]byte, error) {
	s, err := c.callString(ctx, method, params...)
	if err != nil {
		return nil, err
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnexpectedResult, method, err)
	}
	return b, nil
}
