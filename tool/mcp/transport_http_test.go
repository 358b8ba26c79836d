package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (fn roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return fn(req)
}

func stubClient(status int, body string) *http.Client {
	return &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: status,
				Body:       io.NopCloser(bytes.NewReader([]byte(body))),
				Header:     make(http.Header),
			}, nil
		}),
	}
}

func TestHTTPTransportSendReceive(t *testing.T) {
	var seen Message
	client := &http.Client{
		Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
			if got := req.Header.Get("Content-Type"); got != "application/json" {
				t.Errorf("Content-Type = %q", got)
			}
			if got := req.Header.Get("Authorization"); got != "Bearer token" {
				t.Errorf("Authorization = %q", got)
			}
			if err := json.NewDecoder(req.Body).Decode(&seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
			body := Message{JSONRPC: jsonRPCVersion, ID: seen.ID, Result: mustJSON(t, map[string]any{})}
			data, _ := json.Marshal(body)
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(bytes.NewReader(data)),
				Header:     make(http.Header),
			}, nil
		}),
	}

	transport, err := NewHTTPTransport(HTTPTransportConfig{
		Endpoint: "http://netprobe.local/",
		Headers:  map[string]string{"Authorization": "Bearer token"},
		Client:   client,
	})
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	defer transport.Close(context.Background())

	req := Message{JSONRPC: jsonRPCVersion, ID: NumericID(7), Method: "ping"}
	if err := transport.Send(context.Background(), req); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	resp, err := transport.Receive(context.Background())
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if string(resp.ID) != "7" {
		t.Fatalf("response id = %s, want 7", resp.ID)
	}
	if seen.Method != "ping" {
		t.Fatalf("server saw method %q, want ping", seen.Method)
	}
}

func TestHTTPTransportStatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantQueue bool
	}{
		{"empty accepted", http.StatusAccepted, "", false, false},
		{"rpc error on 500", http.StatusInternalServerError, `{"jsonrpc":"2.0","id":null,"error":{"code":-32603,"message":"bad"}}`, false, true},
		{"plain 502", http.StatusBadGateway, "upstream down", true, false},
		{"garbage 200", http.StatusOK, "<html>", true, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			transport, err := NewHTTPTransport(HTTPTransportConfig{Endpoint: "http://x/", Client: stubClient(tc.status, tc.body)})
			if err != nil {
				t.Fatalf("NewHTTPTransport() error = %v", err)
			}
			err = transport.Send(context.Background(), Message{JSONRPC: jsonRPCVersion, ID: NumericID(1), Method: "ping"})
			if (err != nil) != tc.wantErr {
				t.Fatalf("Send() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got := len(transport.recvCh) > 0; got != tc.wantQueue {
				t.Fatalf("queued = %v, want %v", got, tc.wantQueue)
			}
		})
	}
}

func TestHTTPTransportRejectsAfterClose(t *testing.T) {
	transport, err := NewHTTPTransport(HTTPTransportConfig{Endpoint: "http://x/", Client: stubClient(http.StatusOK, "")})
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	_ = transport.Close(context.Background())
	if err := transport.Send(context.Background(), Message{JSONRPC: jsonRPCVersion, Method: "ping"}); err == nil {
		t.Fatal("Send() after Close error = nil")
	}
}

func TestNewHTTPTransportRequiresEndpoint(t *testing.T) {
	if _, err := NewHTTPTransport(HTTPTransportConfig{Endpoint: "  "}); err == nil {
		t.Fatal("NewHTTPTransport() error = nil, want endpoint required")
	}
}
