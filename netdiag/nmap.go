package netdiag

import (
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// Connect-scan limits for the built-in fallback.
const (
	MaxConnectScanPorts = 50
	ConnectTimeout      = 3 * time.Second
)

// Nmap scans TCP ports with nmap, falling back to a sequential connect scan.
type Nmap struct {
	deps Deps
}

// NewNmap returns the port-scan tool.
func NewNmap(deps Deps) *Nmap {
	return &Nmap{deps: deps.withDefaults()}
}

func (n *Nmap) Spec() tool.Spec {
	return tool.Spec{
		Name:        "nmap",
		Description: "Scan TCP ports on a host",
		Params: []tool.Param{
			{Name: "host", Type: tool.TypeString, Description: "Host name or IP address to scan", Required: true},
			{Name: "ports", Type: tool.TypeString, Description: "Ports to scan, e.g. 22,80,8000-8100", Default: DefaultPorts},
			{Name: "scan_type", Type: tool.TypeString, Description: "Scan technique", Enum: []string{"tcp", "syn", "connect"}, Default: "connect"},
		},
	}
}

func (n *Nmap) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("nmap", args); err != nil {
		return "", err
	}
	host, _ := args.String("host", "")
	spec, _ := args.String("ports", DefaultPorts)
	if spec == "" {
		spec = DefaultPorts
	}
	scanType, _ := args.String("scan_type", "connect")

	ports, err := ParsePorts(spec)
	if err != nil {
		return "", tool.NewError(tool.CodeInvalidArguments, err.Error(), tool.ErrInvalidArguments)
	}

	text, err := n.deps.chain("nmap").Run(ctx,
		tool.Strategy{Name: "nmap-binary", Kind: tool.StrategyExternal, Run: func(ctx context.Context) (string, error) {
			return n.nmap(ctx, host, ports, scanType)
		}},
		tool.Strategy{Name: "connect-scan", Kind: tool.StrategyNative, Run: func(ctx context.Context) (string, error) {
			return n.connectScan(ctx, host, ports), nil
		}},
	)
	return n.deps.finish("nmap", text, err)
}

// NmapCommand builds the nmap invocation, bounded by min(ports*2+30, 300)
// seconds.
func NmapCommand(host string, ports []int, scanType string) tool.Command {
	technique := "-sT"
	if scanType == "syn" {
		technique = "-sS"
	}
	return tool.Command{
		Name:    "nmap",
		Args:    []string{"-p", joinPorts(ports), technique, "-T4", "--max-retries", "2", host},
		Timeout: time.Duration(min(len(ports)*2+30, 300)) * time.Second,
	}
}

// nmap failures other than a missing binary or a timeout are reported as
// the tool's result rather than triggering the fallback.
func (n *Nmap) nmap(ctx context.Context, host string, ports []int, scanType string) (string, error) {
	res, err := n.deps.runBinary(ctx, NmapCommand(host, ports, scanType))
	if err != nil {
		if te, ok := tool.AsToolError(err); ok && te.Code == tool.CodeUpstreamFailure {
			return report.Failure("nmap", te.Message), nil
		}
		return "", err
	}
	return report.FormatPortScan(host, report.ParseNmap(string(res.Stdout)), false), nil
}

func (n *Nmap) connectScan(ctx context.Context, host string, ports []int) string {
	if len(ports) > MaxConnectScanPorts {
		ports = ports[:MaxConnectScanPorts]
	}
	results := make([]report.PortResult, 0, len(ports))
	for _, port := range ports {
		if ctx.Err() != nil {
			break
		}
		results = append(results, report.PortResult{
			Port:    port,
			Proto:   "tcp",
			State:   n.probe(ctx, host, port),
			Service: report.ServiceName(port),
		})
	}
	return report.FormatPortScan(host, results, true)
}

func (n *Nmap) probe(ctx context.Context, host string, port int) string {
	dialCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	conn, err := n.deps.Dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		_ = conn.Close()
		return report.PortOpen
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return report.PortFiltered
	}
	return report.PortClosed
}
