package netdiag

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// Ping probes reachability with the system ping binary.
type Ping struct {
	deps Deps
}

// NewPing returns the ping tool.
func NewPing(deps Deps) *Ping {
	return &Ping{deps: deps.withDefaults()}
}

func (p *Ping) Spec() tool.Spec {
	return tool.Spec{
		Name:        "ping",
		Description: "Test reachability of a host with ICMP echo requests",
		Params: []tool.Param{
			{Name: "host", Type: tool.TypeString, Description: "Host name or IP address to ping", Required: true},
			tool.Param{Name: "count", Type: tool.TypeInteger, Description: "Number of packets to send", Default: 4}.Between(1, 10),
			tool.Param{Name: "timeout", Type: tool.TypeInteger, Description: "Per-packet timeout in seconds", Default: 5}.Between(1, 30),
		},
	}
}

func (p *Ping) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("ping", args); err != nil {
		return "", err
	}
	host, _ := args.String("host", "")
	count, _ := args.Int("count", 4)
	timeout, _ := args.Int("timeout", 5)

	text, err := p.deps.chain("ping").Run(ctx, tool.Strategy{
		Name: "ping-binary",
		Kind: tool.StrategyExternal,
		Run: func(ctx context.Context) (string, error) {
			return p.run(ctx, host, count, timeout)
		},
	})
	return p.deps.finish("ping", text, err)
}

func (p *Ping) run(ctx context.Context, host string, count, timeout int) (string, error) {
	cmd := PingCommand(p.deps.GOOS, host, count, timeout)
	res, err := p.deps.Runner.Run(ctx, cmd)
	if err != nil {
		return "", err
	}
	// ping exits non-zero on packet loss; only stderr marks a real failure.
	if res.ExitCode != 0 && strings.TrimSpace(string(res.Stderr)) != "" {
		return "", exitError("ping", res)
	}
	return report.FormatPing(report.ParsePing(string(res.Stdout), host)), nil
}

// PingCommand builds the platform's ping invocation, bounded by timeout+10
// seconds of wall-clock time.
func PingCommand(goos, host string, count, timeout int) tool.Command {
	var args []string
	switch goos {
	case "windows":
		args = []string{"-n", strconv.Itoa(count), "-w", strconv.Itoa(timeout * 1000), host}
	case "darwin":
		args = []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(timeout * 1000), host}
	default:
		args = []string{"-c", strconv.Itoa(count), "-W", strconv.Itoa(timeout), host}
	}
	return tool.Command{
		Name:    "ping",
		Args:    args,
		Timeout: time.Duration(timeout+10) * time.Second,
	}
}
