package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

const maxResponseBytes = 8 << 20

// HTTPTransportConfig configures a JSON-RPC over HTTP transport.
type HTTPTransportConfig struct {
	Endpoint string
	Headers  map[string]string
	Client   *http.Client
}

// HTTPTransport posts each message to an endpoint and queues the reply
// carried in the response body.
type HTTPTransport struct {
	mu     sync.Mutex
	cfg    HTTPTransportConfig
	recvCh chan Message
	closed bool
}

// NewHTTPTransport creates an endpoint-backed MCP transport.
func NewHTTPTransport(cfg HTTPTransportConfig) (*HTTPTransport, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("mcp: http endpoint is required")
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &HTTPTransport{
		cfg:    cfg,
		recvCh: make(chan Message, 64),
	}, nil
}

// Send posts one JSON-RPC message and enqueues any JSON-RPC response body.
func (t *HTTPTransport) Send(ctx context.Context, message Message) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return errors.New("mcp: http transport is closed")
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("mcp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("mcp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range t.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := t.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mcp: send request: %w", err)
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("mcp: read response: %w", err)
	}
	ok := resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices
	if len(bytes.TrimSpace(responseBytes)) == 0 {
		if !ok {
			return fmt.Errorf("mcp: endpoint returned status %d", resp.StatusCode)
		}
		return nil
	}

	var response Message
	if err := json.Unmarshal(responseBytes, &response); err != nil {
		if !ok {
			return fmt.Errorf("mcp: endpoint returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("mcp: decode response: %w", err)
	}
	// Error replies may ride on a non-2xx status.
	if !ok && response.Error == nil {
		return fmt.Errorf("mcp: endpoint returned status %d", resp.StatusCode)
	}
	select {
	case t.recvCh <- response:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive waits for the next queued JSON-RPC response.
func (t *HTTPTransport) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case message := <-t.recvCh:
		return message, nil
	}
}

// Close marks the transport closed.
func (t *HTTPTransport) Close(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	return nil
}
