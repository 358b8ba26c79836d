// Package netdiag implements the network-diagnostic operations: ping,
// traceroute, whois, DNS lookup, port scan, HTTP probe and connection listing.
//
// Each operation is a tool.Tool that validates its arguments, runs an ordered
// strategy chain over injected collaborators, and renders the winning result
// with the report package. Failures left after the chain is exhausted are
// returned as text, not as errors.
package netdiag

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime"
	"strconv"
	"strings"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
	"github.com/petal-labs/netprobe/validate"
)

// Resolver answers DNS queries for one record type.
type Resolver interface {
	Lookup(ctx context.Context, name, recordType string) ([]report.DNSAnswer, error)
}

// WhoisClient fetches raw registry data. Implementations may block without
// honouring a context; callers offload them to a pool.
type WhoisClient interface {
	Whois(target string) (string, error)
}

// HTTPDoer sends one HTTP request.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ConnectionLister enumerates sockets of a kind: "tcp", "udp" or "inet".
type ConnectionLister interface {
	Connections(ctx context.Context, kind string) ([]report.Connection, error)
}

// Dialer opens network connections.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Deps holds the collaborators shared by every tool. Nil fields are replaced
// with production implementations by NewDispatcher.
type Deps struct {
	Runner      tool.ProcessRunner
	Pool        *tool.Pool
	Resolver    Resolver
	Whois       WhoisClient
	Connections ConnectionLister
	Dialer      Dialer
	// HTTPClient returns the client used by the native HTTP probe for the
	// requested redirect policy.
	HTTPClient func(followRedirects bool) HTTPDoer
	Observer   tool.Observer
	Logger     *slog.Logger
	// GOOS selects platform-specific command lines. Defaults to runtime.GOOS.
	GOOS      string
	UserAgent string
}

// DefaultUserAgent identifies native HTTP probes.
const DefaultUserAgent = "netprobe/dev"

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = tool.NewExecRunner(nil)
	}
	if d.Pool == nil {
		d.Pool = tool.NewPool(0)
	}
	if d.Resolver == nil {
		d.Resolver = NewDNSResolver(nil)
	}
	if d.Whois == nil {
		d.Whois = NewWhoisClient(WhoisTimeout)
	}
	if d.Connections == nil {
		d.Connections = SystemConnections{}
	}
	if d.Dialer == nil {
		d.Dialer = &net.Dialer{}
	}
	if strings.TrimSpace(d.UserAgent) == "" {
		d.UserAgent = DefaultUserAgent
	}
	if d.HTTPClient == nil {
		following, direct := NewHTTPClient(true), NewHTTPClient(false)
		d.HTTPClient = func(follow bool) HTTPDoer {
			if follow {
				return following
			}
			return direct
		}
	}
	if d.Observer == nil {
		d.Observer = tool.NopObserver()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.GOOS == "" {
		d.GOOS = runtime.GOOS
	}
	return d
}

func (d Deps) chain(operation string) tool.Chain {
	return tool.Chain{Operation: operation, Observer: d.Observer, Logger: d.Logger}
}

// gate rejects arguments the validator refuses. It repeats the dispatcher's
// check so tools stay safe when called directly.
func gate(operation string, args tool.Args) error {
	if !validate.Arguments(operation, args) {
		return tool.WithDetails(
			tool.NewError(tool.CodeInvalidArguments, "Invalid arguments for tool: "+operation, tool.ErrInvalidArguments),
			map[string]any{"operation": operation},
		)
	}
	return nil
}

// finish turns a chain failure into the operation's failure report.
func (d Deps) finish(operation, text string, err error) (string, error) {
	if err == nil {
		return text, nil
	}
	d.Logger.Warn("all strategies failed",
		"operation", operation,
		"error_code", tool.ErrorCode(err),
		"error", err,
	)
	return report.Failure(operation, tool.ErrorMessage(err)), nil
}

// runBinary runs cmd and maps a non-zero exit into an upstream failure
// carrying stderr. A "command not found" message from a wrapper shell is
// treated like a missing binary.
func (d Deps) runBinary(ctx context.Context, cmd tool.Command) (tool.ProcessResult, error) {
	res, err := d.Runner.Run(ctx, cmd)
	if err != nil {
		return res, err
	}
	if res.ExitCode == 0 {
		return res, nil
	}
	if tool.CommandNotFound(res.Stderr) {
		return res, tool.Unavailable(cmd.Name+" command", nil)
	}
	return res, exitError(cmd.Name, res)
}

func exitError(name string, res tool.ProcessResult) *tool.ToolError {
	msg := strings.TrimSpace(string(res.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(res.Stdout))
	}
	if msg == "" {
		msg = "exited with status " + strconv.Itoa(res.ExitCode)
	}
	return tool.WithDetails(
		tool.NewError(tool.CodeUpstreamFailure, name+" error: "+report.Truncate(msg, report.MaxBodyChars), nil),
		map[string]any{"exit_code": res.ExitCode},
	)
}
