package report

import (
	"strconv"
	"strings"
)

// Port states reported by scans.
const (
	PortOpen     = "open"
	PortClosed   = "closed"
	PortFiltered = "filtered"
)

// PortResult is the state of one scanned port.
type PortResult struct {
	Port    int
	Proto   string
	State   string
	Service string
}

var wellKnownServices = map[int]string{
	21:   "ftp",
	22:   "ssh",
	23:   "telnet",
	25:   "smtp",
	53:   "dns",
	80:   "http",
	110:  "pop3",
	143:  "imap",
	443:  "https",
	993:  "imaps",
	995:  "pop3s",
	3306: "mysql",
	3389: "rdp",
	5432: "postgresql",
}

// ServiceName returns the well-known service for port, or "unknown".
func ServiceName(port int) string {
	if name, ok := wellKnownServices[port]; ok {
		return name
	}
	return "unknown"
}

// ParseNmap reads the port table of nmap's normal output.
func ParseNmap(raw string) []PortResult {
	var results []PortResult
	inTable := false
	for _, line := range lines(raw) {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "PORT") && strings.Contains(line, "STATE") {
			inTable = true
			continue
		}
		if !inTable || line == "" {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 2 || !strings.Contains(fields[0], "/") {
			continue
		}
		state := fields[1]
		// open|filtered and closed|filtered mean nmap could not tell
		if strings.Contains(state, "|") {
			state = PortFiltered
		}
		if state != PortOpen && state != PortClosed && state != PortFiltered {
			continue
		}

		portStr, proto, _ := strings.Cut(fields[0], "/")
		port, err := strconv.Atoi(portStr)
		if err != nil {
			continue
		}
		service := "unknown"
		if len(fields) > 2 {
			service = fields[2]
		}
		results = append(results, PortResult{Port: port, Proto: proto, State: state, Service: service})
	}
	return results
}

// FormatPortScan renders scan results with open ports listed and the rest
// tallied. basic marks results of the built-in connect scan.
func FormatPortScan(host string, results []PortResult, basic bool) string {
	title := "🔍 Port scan for " + host
	if basic {
		title += " (basic connect scan)"
	}
	out := []string{title + ":"}

	var open []string
	closed, filtered := 0, 0
	for _, r := range results {
		switch r.State {
		case PortOpen:
			proto := r.Proto
			if proto == "" {
				proto = "tcp"
			}
			service := r.Service
			if service == "" {
				service = ServiceName(r.Port)
			}
			open = append(open, "   ✅ "+strconv.Itoa(r.Port)+"/"+proto+" - "+service)
		case PortClosed:
			closed++
		default:
			filtered++
		}
	}

	if len(open) > 0 {
		out = append(out, "📂 Open ports:")
		out = append(out, open...)
	} else {
		out = append(out, "❌ No open ports detected")
	}
	if closed > 0 {
		out = append(out, "🔒 "+strconv.Itoa(closed)+" closed ports")
	}
	if filtered > 0 {
		out = append(out, "🛡️  "+strconv.Itoa(filtered)+" filtered ports")
	}
	return strings.Join(out, "\n")
}
