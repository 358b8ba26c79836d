package netdiag

import (
	"context"
	"strconv"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// Traceroute traces the route to a host with traceroute or tracert.
type Traceroute struct {
	deps Deps
}

// NewTraceroute returns the traceroute tool.
func NewTraceroute(deps Deps) *Traceroute {
	return &Traceroute{deps: deps.withDefaults()}
}

func (t *Traceroute) Spec() tool.Spec {
	return tool.Spec{
		Name:        "traceroute",
		Description: "Trace the network route to a host",
		Params: []tool.Param{
			{Name: "host", Type: tool.TypeString, Description: "Destination host name or IP address", Required: true},
			tool.Param{Name: "max_hops", Type: tool.TypeInteger, Description: "Maximum number of hops", Default: 15}.Between(1, 25),
		},
	}
}

func (t *Traceroute) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("traceroute", args); err != nil {
		return "", err
	}
	host, _ := args.String("host", "")
	hops, _ := args.Int("max_hops", 15)

	text, err := t.deps.chain("traceroute").Run(ctx, tool.Strategy{
		Name: "traceroute-binary",
		Kind: tool.StrategyExternal,
		Run: func(ctx context.Context) (string, error) {
			res, err := t.deps.runBinary(ctx, TracerouteCommand(t.deps.GOOS, host, hops))
			if err != nil {
				return "", err
			}
			return report.FormatTraceroute(report.ParseTraceroute(string(res.Stdout), host)), nil
		},
	})
	return t.deps.finish("traceroute", text, err)
}

// TracerouteCommand builds the platform's route-trace invocation, bounded by
// hops*5+30 seconds.
func TracerouteCommand(goos, host string, hops int) tool.Command {
	cmd := tool.Command{
		Name:    "traceroute",
		Args:    []string{"-m", strconv.Itoa(hops), host},
		Timeout: time.Duration(hops*5+30) * time.Second,
	}
	if goos == "windows" {
		cmd.Name = "tracert"
		cmd.Args = []string{"-h", strconv.Itoa(hops), host}
	}
	return cmd
}
