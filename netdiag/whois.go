package netdiag

import (
	"context"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// WhoisTimeout bounds both the structured client and the whois binary.
const WhoisTimeout = 30 * time.Second

// Whois looks up registry information for a domain or IP address.
type Whois struct {
	deps Deps
}

// NewWhois returns the whois tool.
func NewWhois(deps Deps) *Whois {
	return &Whois{deps: deps.withDefaults()}
}

func (w *Whois) Spec() tool.Spec {
	return tool.Spec{
		Name:        "whois",
		Description: "Look up registry information for a domain or IP address",
		Params: []tool.Param{
			{Name: "target", Type: tool.TypeString, Description: "Domain name or IP address", Required: true},
		},
	}
}

func (w *Whois) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("whois", args); err != nil {
		return "", err
	}
	target, _ := args.String("target", "")

	text, err := w.deps.chain("whois").Run(ctx,
		tool.Strategy{Name: "whois-client", Kind: tool.StrategyNative, Run: func(ctx context.Context) (string, error) {
			return w.client(ctx, target)
		}},
		tool.Strategy{Name: "whois-binary", Kind: tool.StrategyExternal, Run: func(ctx context.Context) (string, error) {
			res, err := w.deps.runBinary(ctx, tool.Command{Name: "whois", Args: []string{target}, Timeout: WhoisTimeout})
			if err != nil {
				return "", err
			}
			return report.FilterWhois(target, string(res.Stdout)), nil
		}},
	)
	return w.deps.finish("whois", text, err)
}

func (w *Whois) client(ctx context.Context, target string) (string, error) {
	raw, err := tool.Offload(ctx, w.deps.Pool, WhoisTimeout, func() (string, error) {
		return w.deps.Whois.Whois(target)
	})
	if err != nil {
		if _, ok := tool.AsToolError(err); ok {
			return "", err
		}
		return "", tool.NewError(tool.CodeUpstreamFailure, "whois lookup failed: "+err.Error(), err)
	}
	if record, ok := ParseWhoisRecord(raw); ok {
		return report.FormatWhoisRecord(target, record), nil
	}
	return report.FilterWhois(target, raw), nil
}
