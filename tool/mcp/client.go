package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// Transport carries JSON-RPC messages for the client.
type Transport interface {
	Send(ctx context.Context, message Message) error
	Receive(ctx context.Context) (Message, error)
	Close(ctx context.Context) error
}

// Client talks to a netprobe server, or any MCP server exposing tools, over
// a Transport. Calls are serialized: each request waits for its own reply
// before the next one is sent.
type Client struct {
	transport Transport
	info      ClientInfo

	callMu sync.Mutex
	nextID int64

	initMu sync.Mutex
	server *InitializeResult
}

// NewClient returns a client identifying itself as info.
func NewClient(transport Transport, info ClientInfo) *Client {
	if info.Name == "" {
		info.Name = "netprobe"
	}
	return &Client{transport: transport, info: info}
}

// Initialize opens the session once and returns the server's answer on
// every call.
func (c *Client) Initialize(ctx context.Context) (InitializeResult, error) {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.server != nil {
		return *c.server, nil
	}

	var result InitializeResult
	params := InitializeParams{ProtocolVersion: DefaultProtocolVersion, ClientInfo: c.info}
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return InitializeResult{}, err
	}
	if err := c.send(ctx, Message{JSONRPC: jsonRPCVersion, Method: "notifications/initialized"}); err != nil {
		return InitializeResult{}, &RequestError{Method: "notifications/initialized", Err: err}
	}
	c.server = &result
	return result, nil
}

// ListTools returns the server's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result ToolsListResult
	if err := c.call(ctx, "tools/list", struct{}{}, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes name and returns the text of its report. A result the
// server flags with isError comes back as a *ToolResultError.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	var result ToolsCallResult
	if err := c.call(ctx, "tools/call", ToolsCallParams{Name: name, Arguments: args}, &result); err != nil {
		return "", err
	}
	if result.IsError {
		return "", &ToolResultError{Tool: name, Text: result.Text()}
	}
	return result.Text(), nil
}

// Ping checks that the server answers.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, "ping", nil, nil)
}

// Close closes the transport.
func (c *Client) Close(ctx context.Context) error {
	if c.transport == nil {
		return nil
	}
	return c.transport.Close(ctx)
}

// ToolResultError is a tools/call result marked isError by the server.
type ToolResultError struct {
	Tool string
	Text string
}

func (e *ToolResultError) Error() string {
	return fmt.Sprintf("mcp: tool %s failed: %s", e.Tool, e.Text)
}

func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	if c.transport == nil {
		return &RequestError{Method: method, Err: errors.New("transport is nil")}
	}
	request := Message{JSONRPC: jsonRPCVersion, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return &RequestError{Method: method, Err: fmt.Errorf("encode params: %w", err)}
		}
		request.Params = raw
	}

	c.callMu.Lock()
	defer c.callMu.Unlock()
	c.nextID++
	request.ID = NumericID(c.nextID)

	if err := c.transport.Send(ctx, request); err != nil {
		return &RequestError{Method: method, Err: err}
	}
	for {
		response, err := c.transport.Receive(ctx)
		if err != nil {
			return &RequestError{Method: method, Err: err}
		}
		if response.JSONRPC != "" && response.JSONRPC != jsonRPCVersion {
			return &RequestError{Method: method, Err: fmt.Errorf("unsupported jsonrpc version %q", response.JSONRPC)}
		}
		// server notifications and stale replies
		if !sameID(response.ID, request.ID) {
			continue
		}
		if response.Error != nil {
			return &RequestError{Method: method, Err: response.Error}
		}
		if out == nil || len(response.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(response.Result, out); err != nil {
			return &RequestError{Method: method, Err: fmt.Errorf("decode result: %w", err)}
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, message Message) error {
	c.callMu.Lock()
	defer c.callMu.Unlock()
	return c.transport.Send(ctx, message)
}
