package netdiag

import (
	"context"
	"strings"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// NetstatTimeout bounds both connection enumeration strategies.
const NetstatTimeout = 30 * time.Second

// Netstat lists the host's active network connections.
type Netstat struct {
	deps Deps
}

// NewNetstat returns the connection-list tool.
func NewNetstat(deps Deps) *Netstat {
	return &Netstat{deps: deps.withDefaults()}
}

func (n *Netstat) Spec() tool.Spec {
	return tool.Spec{
		Name:        "netstat",
		Description: "List active network connections on this host",
		Params: []tool.Param{
			{Name: "protocol", Type: tool.TypeString, Description: "Protocol filter", Enum: []string{"tcp", "udp", "all"}, Default: "all"},
			{Name: "state", Type: tool.TypeString, Description: "Connection state filter", Enum: []string{"all", "established", "listening", "time_wait"}, Default: "all"},
		},
	}
}

func (n *Netstat) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("netstat", args); err != nil {
		return "", err
	}
	protocol, _ := args.String("protocol", "all")
	state, _ := args.String("state", "all")
	protocol, state = strings.ToLower(protocol), strings.ToLower(state)

	text, err := n.deps.chain("netstat").Run(ctx,
		tool.Strategy{Name: "connection-api", Kind: tool.StrategyNative, Run: func(ctx context.Context) (string, error) {
			conns, err := tool.Offload(ctx, n.deps.Pool, NetstatTimeout, func() ([]report.Connection, error) {
				return n.deps.Connections.Connections(ctx, connectionKind(protocol))
			})
			if err != nil {
				if _, ok := tool.AsToolError(err); ok {
					return "", err
				}
				return "", tool.NewError(tool.CodeUpstreamFailure, "connection enumeration failed: "+err.Error(), err)
			}
			return report.FormatConnections(report.FilterConnections(conns, protocol, state)), nil
		}},
		tool.Strategy{Name: "netstat-binary", Kind: tool.StrategyExternal, Run: func(ctx context.Context) (string, error) {
			res, err := n.deps.runBinary(ctx, NetstatCommand(protocol))
			if err != nil {
				return "", err
			}
			conns := report.ParseNetstat(string(res.Stdout))
			return report.FormatConnections(report.FilterConnections(conns, protocol, state)), nil
		}},
	)
	return n.deps.finish("netstat", text, err)
}

// NetstatCommand builds the netstat invocation for a protocol filter.
func NetstatCommand(protocol string) tool.Command {
	args := []string{"-n"}
	switch protocol {
	case "tcp":
		args = append(args, "-t")
	case "udp":
		args = append(args, "-u")
	default:
		args = append(args, "-t", "-u")
	}
	return tool.Command{Name: "netstat", Args: args, Timeout: NetstatTimeout}
}

func connectionKind(protocol string) string {
	switch protocol {
	case "tcp", "udp":
		return protocol
	default:
		return "inet"
	}
}
