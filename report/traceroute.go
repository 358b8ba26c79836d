package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Hop is one line of a route trace.
type Hop struct {
	Number   int
	Hostname string
	IP       string
	RTTs     []float64
	// Timeout is set when no probe for this hop was answered.
	Timeout bool
}

// TraceResult is a parsed route trace.
type TraceResult struct {
	Host string
	Hops []Hop
}

var (
	hopNumberPattern  = regexp.MustCompile(`^\s*(\d+)\s`)
	hopNamedPattern   = regexp.MustCompile(`(\S+)\s+\(([^)]+)\)`)
	hopBracketPattern = regexp.MustCompile(`(\S+)\s+\[([^\]]+)\]`)
	hopIPv4Pattern    = regexp.MustCompile(`\b(\d{1,3}(?:\.\d{1,3}){3})\b`)
	hopRTTPattern     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ms`)
)

// ParseTraceroute extracts hops from traceroute or tracert output. Header
// lines are skipped.
func ParseTraceroute(raw, host string) TraceResult {
	result := TraceResult{Host: host}
	for _, line := range lines(raw) {
		m := hopNumberPattern.FindStringSubmatch(line + " ")
		if m == nil {
			continue
		}
		number, _ := strconv.Atoi(m[1])
		hop := Hop{Number: number}
		rest := strings.TrimSpace(line[len(m[0])-1:])

		switch {
		case hopNamedPattern.MatchString(rest):
			sub := hopNamedPattern.FindStringSubmatch(rest)
			hop.Hostname, hop.IP = sub[1], sub[2]
		case hopBracketPattern.MatchString(rest):
			sub := hopBracketPattern.FindStringSubmatch(rest)
			hop.Hostname, hop.IP = sub[1], sub[2]
		case hopIPv4Pattern.MatchString(rest):
			hop.IP = hopIPv4Pattern.FindStringSubmatch(rest)[1]
		}

		for _, rtt := range hopRTTPattern.FindAllStringSubmatch(rest, -1) {
			hop.RTTs = append(hop.RTTs, atof(rtt[1]))
		}
		hop.Timeout = len(hop.RTTs) == 0 && strings.Contains(rest, "*")
		result.Hops = append(result.Hops, hop)
	}
	return result
}

// FormatTraceroute renders a route trace, one hop per line.
func FormatTraceroute(r TraceResult) string {
	if len(r.Hops) == 0 {
		return "❌ Traceroute to " + r.Host + " failed: no hops found"
	}

	out := []string{"🛣️  Traceroute to " + r.Host + ":", ""}
	for _, hop := range r.Hops {
		var b strings.Builder
		fmt.Fprintf(&b, "%2d. ", hop.Number)
		if hop.Timeout {
			b.WriteString("* * * (timeout)")
			out = append(out, b.String())
			continue
		}
		if hop.Hostname != "" && hop.Hostname != hop.IP {
			b.WriteString(hop.Hostname + " ")
		}
		if hop.IP != "" {
			b.WriteString("(" + hop.IP + ") ")
		}
		if len(hop.RTTs) == 0 {
			b.WriteString("* * *")
		} else {
			times := make([]string, len(hop.RTTs))
			for i, rtt := range hop.RTTs {
				times[i] = strconv.FormatFloat(rtt, 'f', 1, 64) + "ms"
			}
			b.WriteString(strings.Join(times, " "))
		}
		out = append(out, b.String())
	}
	return strings.Join(out, "\n")
}
