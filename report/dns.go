package report

import (
	"strconv"
	"strings"
)

// SOA holds the fields of a start-of-authority record.
type SOA struct {
	MName   string
	RName   string
	Serial  uint32
	Refresh uint32
	Retry   uint32
	Expire  uint32
	Minimum uint32
}

// DNSAnswer is one resource record in a lookup answer. Which fields are set
// depends on Type.
type DNSAnswer struct {
	Type string
	// Address is set for A and AAAA.
	Address string
	// Target is set for NS, CNAME, PTR and the MX exchange.
	Target     string
	Preference uint16
	// Text is set for TXT, with the character strings joined by spaces.
	Text string
	SOA  *SOA
	// Raw is the presentation form used for any other type.
	Raw string
}

// FormatDNS renders the answers to a lookup of domain for recordType.
func FormatDNS(domain, recordType string, answers []DNSAnswer) string {
	if len(answers) == 0 {
		return "❌ No " + recordType + " records found for " + domain
	}

	out := []string{dnsHeader(domain, recordType)}
	for _, a := range answers {
		switch a.Type {
		case "A":
			out = append(out, "📍 IPv4 address: "+a.Address)
		case "AAAA":
			out = append(out, "📍 IPv6 address: "+a.Address)
		case "MX":
			out = append(out, "📧 Mail server: "+a.Target+" (priority: "+strconv.Itoa(int(a.Preference))+")")
		case "NS":
			out = append(out, "🌐 Name server: "+a.Target)
		case "CNAME":
			out = append(out, "🔗 Alias: "+a.Target)
		case "PTR":
			out = append(out, "🔁 Pointer: "+a.Target)
		case "TXT":
			out = append(out, "📝 Text: "+a.Text)
		case "SOA":
			if a.SOA == nil {
				continue
			}
			s := a.SOA
			out = append(out,
				"⚙️  SOA: "+s.MName+" "+s.RName,
				"   Serial: "+strconv.FormatUint(uint64(s.Serial), 10),
				"   Refresh: "+strconv.FormatUint(uint64(s.Refresh), 10)+"s",
				"   Retry: "+strconv.FormatUint(uint64(s.Retry), 10)+"s",
				"   Expire: "+strconv.FormatUint(uint64(s.Expire), 10)+"s",
				"   Minimum: "+strconv.FormatUint(uint64(s.Minimum), 10)+"s",
			)
		default:
			out = append(out, "📋 "+a.Type+": "+a.Raw)
		}
	}
	return strings.Join(out, "\n")
}

// FormatNslookup extracts the non-authoritative answer section of nslookup
// output and renders it with the same header as FormatDNS.
func FormatNslookup(domain, recordType, raw string) string {
	out := []string{dnsHeader(domain, recordType)}

	inAnswer := false
	for _, line := range lines(raw) {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "Non-authoritative answer:") {
			inAnswer = true
			continue
		}
		if !inAnswer || line == "" || strings.HasPrefix(line, "***") {
			continue
		}
		switch {
		case strings.Contains(line, "Address:") || strings.Contains(line, "AAAA address"):
			idx := strings.LastIndex(line, "ddress")
			ip := strings.TrimSpace(strings.TrimLeft(line[idx+len("ddress"):], ": "))
			out = append(out, "📍 IP address: "+ip)
		case strings.Contains(line, "mail exchanger"):
			out = append(out, "📧 "+line)
		case strings.Contains(line, "nameserver"):
			out = append(out, "🌐 "+line)
		case strings.HasPrefix(line, "Name:"):
		default:
			out = append(out, "📋 "+line)
		}
	}

	if len(out) == 1 {
		out = append(out, "❌ No results found")
	}
	return strings.Join(out, "\n")
}

func dnsHeader(domain, recordType string) string {
	return "🌐 DNS lookup for " + domain + " (type " + recordType + "):"
}
