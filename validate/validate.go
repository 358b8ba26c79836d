// Package validate holds the pre-execution safety checks for every
// diagnostic operation. All functions are pure: they never perform I/O and
// report malformed input by returning false.
package validate

import (
	"encoding/json"
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// MaxHostLength bounds host and domain arguments.
const MaxHostLength = 255

// MaxRangeWidth bounds end-start for one port range.
const MaxRangeWidth = 1000

// RecordTypes lists the DNS record types the lookup operations accept.
var RecordTypes = []string{"A", "AAAA", "MX", "NS", "CNAME", "TXT", "SOA", "PTR"}

var (
	scanTypes   = []string{"tcp", "syn", "connect"}
	httpMethods = []string{"GET", "POST", "HEAD", "OPTIONS"}
	protocols   = []string{"tcp", "udp", "all"}
	states      = []string{"all", "established", "listening", "time_wait"}

	blockedTargets = []string{"localhost", "127.0.0.1", "::1", "0.0.0.0", "255.255.255.255"}

	portSpecPattern     = regexp.MustCompile(`^\d+(-\d+)?(,\d+(-\d+)?)*$`)
	numericLabelPattern = regexp.MustCompile(`^(?i:0x[0-9a-f]*|[0-9]+)$`)
	labelPattern        = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_-]{0,61}[A-Za-z0-9_])?$`)
)

// Arguments reports whether args are acceptable for the named operation.
// Optional arguments that are absent take their defaults and are not checked.
func Arguments(operation string, args map[string]any) bool {
	switch operation {
	case "ping":
		return Host(stringArg(args, "host")) &&
			intArgIn(args, "count", 1, 10) &&
			intArgIn(args, "timeout", 1, 30)
	case "traceroute":
		return Host(stringArg(args, "host")) && intArgIn(args, "max_hops", 1, 25)
	case "whois":
		return Host(stringArg(args, "target"))
	case "nslookup", "dig":
		return Host(stringArg(args, "domain")) && enumArg(args, "record_type", RecordTypes, true)
	case "nmap":
		if !Host(stringArg(args, "host")) || !enumArg(args, "scan_type", scanTypes, true) {
			return false
		}
		if _, present := args["ports"]; !present || args["ports"] == nil {
			return true
		}
		spec, ok := args["ports"].(string)
		if !ok {
			return false
		}
		spec = strings.TrimSpace(spec)
		return spec == "" || PortSpec(spec)
	case "curl":
		return PublicURL(stringArg(args, "url")) &&
			enumArg(args, "method", httpMethods, true) &&
			boolArg(args, "headers") &&
			boolArg(args, "follow_redirects")
	case "netstat":
		return enumArg(args, "protocol", protocols, true) && enumArg(args, "state", states, true)
	default:
		return false
	}
}

// Blocked reports whether value names one of the always-refused targets.
func Blocked(value string) bool {
	value = strings.TrimSpace(value)
	for _, blocked := range blockedTargets {
		if strings.EqualFold(value, blocked) {
			return true
		}
	}
	return false
}

// Host reports whether value is a syntactically valid IP literal or hostname
// that is not in the blocked set. Private ranges are allowed.
func Host(value string) bool {
	if value == "" || len(value) > MaxHostLength || strings.TrimSpace(value) != value {
		return false
	}
	if Blocked(strings.TrimSuffix(value, ".")) {
		return false
	}
	if addr, err := netip.ParseAddr(value); err == nil {
		return !Blocked(addr.Unmap().String())
	}
	return Hostname(value)
}

// Hostname reports whether value is an RFC 1123 hostname. Underscores are
// allowed in labels for service records; a trailing dot is accepted.
func Hostname(value string) bool {
	name := strings.TrimSuffix(value, ".")
	if name == "" || len(name) > MaxHostLength-2 {
		return false
	}
	labels := strings.Split(name, ".")
	for _, label := range labels {
		if !labelPattern.MatchString(label) {
			return false
		}
	}
	// A numeric final label makes the resolver read the name as an IPv4
	// literal in inet_aton form ("2130706433", "0x7f.1", "0").
	return !numericLabelPattern.MatchString(labels[len(labels)-1])
}

// PortSpec reports whether spec matches N(-N)?(,N(-N)?)* with every port in
// [1,65535], start <= end and no range wider than MaxRangeWidth.
func PortSpec(spec string) bool {
	if !portSpecPattern.MatchString(spec) {
		return false
	}
	for part := range strings.SplitSeq(spec, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		start, ok := port(lo)
		if !ok {
			return false
		}
		if !isRange {
			continue
		}
		end, ok := port(hi)
		if !ok || start > end || end-start > MaxRangeWidth {
			return false
		}
	}
	return true
}

func port(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		return 0, false
	}
	return n, true
}

// PublicURL reports whether raw is an absolute http(s) URL whose host is
// publicly routable. Names are not resolved, so a public name that resolves
// to a private address passes.
func PublicURL(raw string) bool {
	if raw == "" || strings.TrimSpace(raw) != raw {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Opaque != "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := u.Hostname()
	if host == "" || len(host) > MaxHostLength {
		return false
	}
	if p := u.Port(); p != "" {
		if _, ok := port(p); !ok {
			return false
		}
	}

	if ip := net.ParseIP(host); ip != nil {
		return publicIP(ip)
	}
	lower := strings.ToLower(strings.TrimSuffix(host, "."))
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") {
		return false
	}
	if !strings.Contains(lower, ".") {
		return false
	}
	return Hostname(host)
}

// reservedPrefixes are special-purpose ranges the net.IP predicates miss.
var reservedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("192.0.0.0/24"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("64:ff9b:1::/48"),
	netip.MustParsePrefix("100::/64"),
	netip.MustParsePrefix("2001::/23"),
	netip.MustParsePrefix("2001:db8::/32"),
}

func publicIP(ip net.IP) bool {
	if addr, ok := netip.AddrFromSlice(ip); ok {
		addr = addr.Unmap()
		for _, prefix := range reservedPrefixes {
			if prefix.Contains(addr) {
				return false
			}
		}
	}
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		ip.Equal(net.IPv4bcast))
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return strings.TrimSpace(s)
}

func intArgIn(args map[string]any, name string, lo, hi int) bool {
	v, present := args[name]
	if !present || v == nil {
		return true
	}
	var n float64
	switch x := v.(type) {
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case float64:
		n = x
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return false
		}
		n = parsed
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return false
		}
		n = float64(parsed)
	default:
		return false
	}
	return n == float64(int(n)) && n >= float64(lo) && n <= float64(hi)
}

func enumArg(args map[string]any, name string, allowed []string, foldCase bool) bool {
	v, present := args[name]
	if !present || v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	s = strings.TrimSpace(s)
	if foldCase {
		return slices.ContainsFunc(allowed, func(a string) bool { return strings.EqualFold(a, s) })
	}
	return slices.Contains(allowed, s)
}

func boolArg(args map[string]any, name string) bool {
	v, present := args[name]
	if !present || v == nil {
		return true
	}
	switch x := v.(type) {
	case bool:
		return true
	case string:
		_, err := strconv.ParseBool(strings.TrimSpace(x))
		return err == nil
	default:
		return false
	}
}
