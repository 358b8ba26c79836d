package netdiag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

type fakeResult struct {
	res tool.ProcessResult
	err error
}

// fakeRunner answers commands by binary name; unknown binaries are missing.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []tool.Command
	results map[string]fakeResult
}

func (f *fakeRunner) Run(_ context.Context, cmd tool.Command) (tool.ProcessResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	r, ok := f.results[cmd.Name]
	if !ok {
		return tool.ProcessResult{}, tool.Unavailable(cmd.Name+" command", nil)
	}
	return r.res, r.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func stdout(s string) fakeResult {
	return fakeResult{res: tool.ProcessResult{Stdout: []byte(s)}}
}

// fakeDialer connects to addresses listed in open and times out on those in
// filtered; everything else is refused.
type fakeDialer struct {
	mu       sync.Mutex
	calls    []string
	open     map[string]bool
	filtered map[string]bool
}

func (f *fakeDialer) DialContext(_ context.Context, _, address string) (net.Conn, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.mu.Unlock()

	switch {
	case f.open[address]:
		client, server := net.Pipe()
		_ = server.Close()
		return client, nil
	case f.filtered[address]:
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: os.ErrDeadlineExceeded}
	default:
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	}
}

func (f *fakeDialer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubResolver struct {
	answers []report.DNSAnswer
	err     error
	calls   int
}

func (s *stubResolver) Lookup(_ context.Context, _, _ string) ([]report.DNSAnswer, error) {
	s.calls++
	return s.answers, s.err
}

type stubWhois struct {
	raw string
	err error
}

func (s stubWhois) Whois(string) (string, error) {
	return s.raw, s.err
}

type stubConnections struct {
	conns []report.Connection
	err   error
	kinds []string
}

func (s *stubConnections) Connections(_ context.Context, kind string) ([]report.Connection, error) {
	s.kinds = append(s.kinds, kind)
	return s.conns, s.err
}

type stubHTTP struct {
	requests []*http.Request
	status   int
	header   http.Header
	body     string
	err      error
}

func (s *stubHTTP) Do(req *http.Request) (*http.Response, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     s.header,
		Body:       io.NopCloser(strings.NewReader(s.body)),
		Request:    req,
	}, nil
}

type testEnv struct {
	runner   *fakeRunner
	dialer   *fakeDialer
	resolver *stubResolver
	conns    *stubConnections
	http     *stubHTTP
	deps     Deps
}

func newTestEnv() *testEnv {
	env := &testEnv{
		runner:   &fakeRunner{results: map[string]fakeResult{}},
		dialer:   &fakeDialer{open: map[string]bool{}, filtered: map[string]bool{}},
		resolver: &stubResolver{err: errors.New("resolver offline")},
		conns:    &stubConnections{err: errors.New("not permitted")},
		http:     &stubHTTP{err: errors.New("network unreachable")},
	}
	env.deps = Deps{
		Runner:      env.runner,
		Pool:        tool.NewPool(4),
		Resolver:    env.resolver,
		Whois:       stubWhois{err: errors.New("whois server unreachable")},
		Connections: env.conns,
		Dialer:      env.dialer,
		HTTPClient:  func(bool) HTTPDoer { return env.http },
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		GOOS:        "linux",
		UserAgent:   "netprobe/test",
	}
	return env
}
