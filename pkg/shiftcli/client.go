// Package shiftcli is the client for the nightshift daemon's control
// socket. It speaks JSON-RPC 2.0 over a unix socket and exposes one typed
// method per daemon operation.
package shiftcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

const dialTimeout = 2 * time.Second

// DefaultSocketPath returns the conventional control socket location.
func DefaultSocketPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "nightshift", "nightshift.sock")
	}
	return filepath.Join(os.TempDir(), "nightshift.sock")
}

// Client talks to a running daemon over its control socket.
type Client struct {
	http       *http.Client
	socketPath string
	nextID     atomic.Int64
}

// NewClient connects to the daemon at socketPath. Empty socketPath uses
// the default location. The connection is verified before returning.
func NewClient(socketPath string) (*Client, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}

	conn, err := net.DialTimeout("unix", socketPath, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("error connecting to daemon: %w", err)
	}
	conn.Close()

	c := &Client{socketPath: socketPath}
	c.http = &http.Client{Transport: &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			var dialer net.Dialer
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}}
	return c, nil
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("daemon error %d: %s", e.Code, e.Message)
}

// call performs one JSON-RPC request and returns the raw result.
func (c *Client) call(method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal(&request{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}

	resp, err := c.http.Post("http://nightshift/rpc", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", method, err)
	}
	defer resp.Body.Close()

	var res response
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", method, err)
	}
	if res.Error != nil {
		return nil, res.Error
	}
	return res.Result, nil
}

func invoke[T any](c *Client, method string, params any) (*T, error) {
	raw, err := c.call(method, params)
	if err != nil {
		return nil, err
	}
	var d T
	return &d, json.Unmarshal(raw, &d)
}
