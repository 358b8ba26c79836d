package report

import (
	"regexp"
	"strconv"
	"strings"
)

// Probe is the outcome of one echo request.
type Probe struct {
	Success bool
	TimeMS  float64
	Error   string
}

// RTT holds round-trip statistics in milliseconds.
type RTT struct {
	Min float64
	Avg float64
	Max float64
}

// PingResult is a parsed ping run.
type PingResult struct {
	Host        string
	Sent        int
	Received    int
	LossPercent float64
	RTT         *RTT
	Probes      []Probe
	Error       string
}

// Success reports whether at least one reply arrived.
func (r PingResult) Success() bool {
	return r.Received > 0
}

var (
	probeTimePattern    = regexp.MustCompile(`(?i)time[=<]\s*(\d+(?:\.\d+)?)\s*ms`)
	probeTimeoutPattern = regexp.MustCompile(`(?i)(timeout|timed out|no answer)`)

	sentPattern     = regexp.MustCompile(`(?i)(\d+) packets (?:transmitted|sent)`)
	receivedPattern = regexp.MustCompile(`(?i)(\d+) (?:packets )?received`)
	lossPattern     = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)% (?:packet )?loss`)
	winCountPattern = regexp.MustCompile(`(?i)Sent = (\d+), Received = (\d+), Lost = \d+ \((\d+)% loss\)`)

	rttPattern    = regexp.MustCompile(`(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)/(\d+(?:\.\d+)?)`)
	winRTTPattern = regexp.MustCompile(`(?i)Minimum = (\d+)ms, Maximum = (\d+)ms, Average = (\d+)ms`)
)

// ParsePing extracts counters, round-trip statistics and per-probe results
// from Linux, macOS or Windows ping output.
func ParsePing(raw, host string) PingResult {
	result := PingResult{Host: host, LossPercent: 100}

	for _, line := range lines(raw) {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "packets transmitted") || strings.Contains(lower, "packets sent"):
			result.Sent = atoi(sentPattern, line, 1)
			result.Received = atoi(receivedPattern, line, 1)
			if m := lossPattern.FindStringSubmatch(line); m != nil {
				result.LossPercent, _ = strconv.ParseFloat(m[1], 64)
			}
		case winCountPattern.MatchString(line):
			m := winCountPattern.FindStringSubmatch(line)
			result.Sent, _ = strconv.Atoi(m[1])
			result.Received, _ = strconv.Atoi(m[2])
			result.LossPercent, _ = strconv.ParseFloat(m[3], 64)
		case strings.Contains(lower, "min/avg/max"):
			if m := rttPattern.FindStringSubmatch(line); m != nil {
				result.RTT = &RTT{Min: atof(m[1]), Avg: atof(m[2]), Max: atof(m[3])}
			}
		case winRTTPattern.MatchString(line):
			m := winRTTPattern.FindStringSubmatch(line)
			result.RTT = &RTT{Min: atof(m[1]), Max: atof(m[2]), Avg: atof(m[3])}
		case probeTimePattern.MatchString(line):
			m := probeTimePattern.FindStringSubmatch(line)
			result.Probes = append(result.Probes, Probe{Success: true, TimeMS: atof(m[1])})
		case probeTimeoutPattern.MatchString(line):
			result.Probes = append(result.Probes, Probe{Error: "timeout"})
		}
	}

	if !result.Success() {
		result.Error = "No response received"
	}
	return result
}

// FormatPing renders a ping result. A run with no replies renders a failure
// line followed by the packet counters.
func FormatPing(r PingResult) string {
	counters := "📊 Packets: " + strconv.Itoa(r.Sent) + " sent, " + strconv.Itoa(r.Received) +
		" received, " + formatFloat(r.LossPercent) + "% loss"

	if !r.Success() {
		msg := r.Error
		if msg == "" {
			msg = "No response received"
		}
		out := []string{"❌ Ping to " + r.Host + " failed: " + msg}
		if r.Sent > 0 {
			out = append(out, counters)
		}
		return strings.Join(out, "\n")
	}

	out := []string{
		"🏓 Ping to " + r.Host + " - results:",
		"✅ Host is reachable",
		counters,
	}
	if r.RTT != nil {
		out = append(out,
			"⏱️  Round-trip times:",
			"   • Minimum: "+formatFloat(r.RTT.Min)+"ms",
			"   • Average: "+formatFloat(r.RTT.Avg)+"ms",
			"   • Maximum: "+formatFloat(r.RTT.Max)+"ms",
		)
	}
	if len(r.Probes) > 0 {
		out = append(out, "📋 Probe details:")
		for i, p := range r.Probes {
			if i == MaxProbeLines {
				break
			}
			if p.Success {
				out = append(out, "   "+strconv.Itoa(i+1)+". ✅ "+formatFloat(p.TimeMS)+"ms")
			} else {
				out = append(out, "   "+strconv.Itoa(i+1)+". ❌ "+p.Error)
			}
		}
	}
	return strings.Join(out, "\n")
}

func atoi(re *regexp.Regexp, s string, group int) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[group])
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
