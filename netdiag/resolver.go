package netdiag

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

// DNS timeouts for the structured resolver.
const (
	DNSQueryTimeout   = 10 * time.Second
	DNSOverallTimeout = 30 * time.Second
)

// DefaultDNSServers are used when no system resolver configuration is found.
var DefaultDNSServers = []string{"1.1.1.1", "8.8.8.8"}

// DNSResolver sends queries straight to recursive servers.
type DNSResolver struct {
	servers []string
	client  *dns.Client
}

// NewDNSResolver returns a resolver for servers ("host" or "host:port").
// With no servers it reads /etc/resolv.conf and falls back to
// DefaultDNSServers.
func NewDNSResolver(servers []string) *DNSResolver {
	if len(servers) == 0 {
		servers = systemDNSServers()
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(s, "53")
		}
		normalized = append(normalized, s)
	}
	return &DNSResolver{
		servers: normalized,
		client:  &dns.Client{Timeout: DNSQueryTimeout},
	}
}

func systemDNSServers() []string {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil || len(conf.Servers) == 0 {
		return DefaultDNSServers
	}
	out := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		out = append(out, net.JoinHostPort(s, conf.Port))
	}
	return out
}

// Lookup queries each server in turn until one answers. PTR lookups accept
// an IP literal and query its reverse name.
func (r *DNSResolver) Lookup(ctx context.Context, name, recordType string) ([]report.DNSAnswer, error) {
	recordType = strings.ToUpper(recordType)
	qtype, ok := dns.StringToType[recordType]
	if !ok {
		return nil, tool.NewError(tool.CodeInvalidArguments, "unsupported record type "+recordType, nil)
	}
	qname := dns.Fqdn(name)
	if qtype == dns.TypePTR {
		if addr, err := netip.ParseAddr(name); err == nil {
			reverse, err := dns.ReverseAddr(addr.String())
			if err != nil {
				return nil, err
			}
			qname = reverse
		}
	}
	if len(r.servers) == 0 {
		return nil, tool.Unavailable("DNS resolver", errors.New("no DNS servers configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, DNSOverallTimeout)
	defer cancel()

	msg := new(dns.Msg)
	msg.SetQuestion(qname, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		in, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		switch in.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, tool.NewError(tool.CodeUpstreamFailure, fmt.Sprintf("domain %s not found", name), nil)
		default:
			lastErr = fmt.Errorf("server %s answered %s", server, dns.RcodeToString[in.Rcode])
			continue
		}

		answers := convertAnswers(in.Answer, qtype)
		if len(answers) == 0 {
			return nil, tool.NewError(tool.CodeUpstreamFailure, fmt.Sprintf("no %s records for %s", recordType, name), nil)
		}
		return answers, nil
	}

	if ctx.Err() != nil {
		return nil, tool.Timeout("DNS resolution of " + name + " timed out")
	}
	return nil, tool.NewError(tool.CodeUpstreamFailure, "DNS error: "+errString(lastErr), lastErr)
}

func convertAnswers(rrs []dns.RR, qtype uint16) []report.DNSAnswer {
	var out []report.DNSAnswer
	for _, rr := range rrs {
		if rr.Header().Rrtype != qtype {
			continue
		}
		a := report.DNSAnswer{Type: dns.TypeToString[qtype]}
		switch v := rr.(type) {
		case *dns.A:
			a.Address = v.A.String()
		case *dns.AAAA:
			a.Address = v.AAAA.String()
		case *dns.MX:
			a.Target, a.Preference = v.Mx, v.Preference
		case *dns.NS:
			a.Target = v.Ns
		case *dns.CNAME:
			a.Target = v.Target
		case *dns.PTR:
			a.Target = v.Ptr
		case *dns.TXT:
			a.Text = strings.Join(v.Txt, " ")
		case *dns.SOA:
			a.SOA = &report.SOA{
				MName:   v.Ns,
				RName:   v.Mbox,
				Serial:  v.Serial,
				Refresh: v.Refresh,
				Retry:   v.Retry,
				Expire:  v.Expire,
				Minimum: v.Minttl,
			}
		default:
			a.Raw = strings.TrimPrefix(rr.String(), rr.Header().String())
		}
		out = append(out, a)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return "no answer"
	}
	return err.Error()
}
