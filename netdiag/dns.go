package netdiag

import (
	"context"
	"strings"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
	"github.com/petal-labs/netprobe/validate"
)

// NslookupTimeout bounds the nslookup binary.
const NslookupTimeout = DNSOverallTimeout

// DNS resolves records for a domain. It is registered as nslookup and dig.
type DNS struct {
	deps Deps
}

// NewDNS returns the DNS lookup tool.
func NewDNS(deps Deps) *DNS {
	return &DNS{deps: deps.withDefaults()}
}

func (d *DNS) Spec() tool.Spec {
	return tool.Spec{
		Name:        "nslookup",
		Description: "Resolve DNS records for a domain",
		Params: []tool.Param{
			{Name: "domain", Type: tool.TypeString, Description: "Domain name to resolve", Required: true},
			{Name: "record_type", Type: tool.TypeString, Description: "DNS record type", Enum: validate.RecordTypes, Default: "A"},
		},
	}
}

func (d *DNS) Execute(ctx context.Context, args tool.Args) (string, error) {
	if err := gate("nslookup", args); err != nil {
		return "", err
	}
	domain, _ := args.String("domain", "")
	recordType, _ := args.String("record_type", "A")
	recordType = strings.ToUpper(recordType)

	text, err := d.deps.chain("nslookup").Run(ctx,
		tool.Strategy{Name: "dns-resolver", Kind: tool.StrategyNative, Run: func(ctx context.Context) (string, error) {
			answers, err := tool.Offload(ctx, d.deps.Pool, DNSOverallTimeout, func() ([]report.DNSAnswer, error) {
				return d.deps.Resolver.Lookup(ctx, domain, recordType)
			})
			if err != nil {
				return "", err
			}
			return report.FormatDNS(domain, recordType, answers), nil
		}},
		tool.Strategy{Name: "nslookup-binary", Kind: tool.StrategyExternal, Run: func(ctx context.Context) (string, error) {
			res, err := d.deps.runBinary(ctx, tool.Command{
				Name:    "nslookup",
				Args:    []string{"-type=" + recordType, domain},
				Timeout: NslookupTimeout,
			})
			if err != nil {
				return "", err
			}
			return report.FormatNslookup(domain, recordType, string(res.Stdout)), nil
		}},
	)
	return d.deps.finish("nslookup", text, err)
}
