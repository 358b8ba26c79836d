package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultStreamConcurrency bounds in-flight requests on one stream.
	DefaultStreamConcurrency = 8

	maxLineBytes = 4 << 20
)

// StreamServer serves newline-delimited JSON-RPC over a reader/writer pair,
// typically stdin and stdout.
type StreamServer struct {
	handler     *Handler
	logger      *slog.Logger
	concurrency int
}

// StreamServerConfig configures a StreamServer.
type StreamServerConfig struct {
	Handler     *Handler
	Logger      *slog.Logger
	Concurrency int
}

// NewStreamServer returns a stream server for cfg.
func NewStreamServer(cfg StreamServerConfig) *StreamServer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultStreamConcurrency
	}
	return &StreamServer{handler: cfg.Handler, logger: logger, concurrency: concurrency}
}

// Serve reads requests from r until EOF or ctx is done and writes replies to
// w, one JSON object per line. Requests run concurrently; writes are
// serialized. Serve waits for in-flight requests before returning.
func (s *StreamServer) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	if s == nil || s.handler == nil {
		return errors.New("mcp: stream server has no handler")
	}

	// The reader watches gctx so a failed write also releases it.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	lines := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		readErr <- readLines(gctx, r, lines)
	}()

	var mu sync.Mutex
	encoder := json.NewEncoder(w)
	write := func(msg *Message) error {
		mu.Lock()
		defer mu.Unlock()
		if err := encoder.Encode(msg); err != nil {
			return fmt.Errorf("mcp: write response: %w", err)
		}
		return nil
	}

	s.logger.Info("stream server started", "concurrency", s.concurrency)
loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			g.Go(func() error {
				reply := s.handler.HandleBytes(gctx, line)
				if reply == nil {
					return nil
				}
				return write(reply)
			})
		}
	}

	err := g.Wait()
	if err == nil {
		select {
		case err = <-readErr:
			if err != nil {
				err = fmt.Errorf("mcp: read request: %w", err)
			}
		default:
		}
	}
	s.logger.Info("stream server stopped")
	if err == nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// readLines sends each non-blank line of r to lines until EOF, a read error,
// or ctx is done.
func readLines(ctx context.Context, r io.Reader, lines chan<- []byte) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		select {
		case lines <- bytes.Clone(line):
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}
