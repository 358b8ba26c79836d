package report

import (
	"strconv"
	"strings"
)

// Connection is one socket from a connection listing.
type Connection struct {
	// Proto is "TCP" or "UDP".
	Proto  string
	Local  string
	Remote string
	Status string
	PID    int32
}

var statusIcons = map[string]string{
	"ESTABLISHED": "🔗",
	"LISTEN":      "🎧",
	"TIME_WAIT":   "⏳",
	"CLOSE_WAIT":  "⏸️",
	"FIN_WAIT1":   "🔚",
	"FIN_WAIT2":   "🔚",
	"SYN_SENT":    "📤",
	"SYN_RECV":    "📥",
}

var stateFilters = map[string]string{
	"established": "ESTABLISHED",
	"listening":   "LISTEN",
	"time_wait":   "TIME_WAIT",
}

// StatusIcon returns the marker shown next to a connection state.
func StatusIcon(status string) string {
	if icon, ok := statusIcons[status]; ok {
		return icon
	}
	return "📡"
}

// NormalizeProto maps tcp, tcp4, tcp6 and their udp forms to "TCP" or "UDP".
// Anything else maps to "".
func NormalizeProto(proto string) string {
	upper := strings.ToUpper(proto)
	switch {
	case strings.HasPrefix(upper, "TCP"):
		return "TCP"
	case strings.HasPrefix(upper, "UDP"):
		return "UDP"
	default:
		return ""
	}
}

// NormalizeStatus maps platform spellings such as "LISTENING" or "SYN_RECEIVED"
// onto the netstat names used for filtering and icons.
func NormalizeStatus(status string) string {
	s := strings.ToUpper(strings.TrimSpace(status))
	switch s {
	case "LISTENING":
		return "LISTEN"
	case "SYN_RECEIVED":
		return "SYN_RECV"
	case "FIN_WAIT_1":
		return "FIN_WAIT1"
	case "FIN_WAIT_2":
		return "FIN_WAIT2"
	case "", "NONE":
		return "unknown"
	}
	return s
}

// MatchState reports whether a connection status passes the state filter
// (all, established, listening or time_wait).
func MatchState(filter, status string) bool {
	want, ok := stateFilters[strings.ToLower(filter)]
	if !ok {
		return true
	}
	return status == want
}

// MatchProto reports whether a normalized protocol passes the protocol
// filter (tcp, udp or all).
func MatchProto(filter, proto string) bool {
	switch strings.ToLower(filter) {
	case "tcp":
		return proto == "TCP"
	case "udp":
		return proto == "UDP"
	default:
		return proto == "TCP" || proto == "UDP"
	}
}

// ParseNetstat reads the fixed-column output of netstat -n. Both the unix
// layout (Proto Recv-Q Send-Q Local Foreign State) and the Windows layout
// (Proto Local Foreign State) are understood.
func ParseNetstat(raw string) []Connection {
	var conns []Connection
	for _, line := range lines(raw) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "Active") || strings.HasPrefix(line, "Proto") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		proto := NormalizeProto(fields[0])
		if proto == "" {
			continue
		}

		cols := fields[1:]
		if _, err := strconv.Atoi(fields[1]); err == nil {
			if len(fields) < 4 {
				continue
			}
			cols = fields[3:]
		}
		c := Connection{Proto: proto, Local: cols[0], Remote: "*:*", Status: "unknown"}
		if len(cols) > 1 {
			c.Remote = cols[1]
		}
		if len(cols) > 2 {
			c.Status = NormalizeStatus(cols[2])
		}
		conns = append(conns, c)
	}
	return conns
}

// FilterConnections keeps connections that pass both filters.
func FilterConnections(conns []Connection, protocol, state string) []Connection {
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		if MatchProto(protocol, c.Proto) && MatchState(state, c.Status) {
			out = append(out, c)
		}
	}
	return out
}

// FormatConnections renders already filtered connections as TCP and UDP
// sections followed by a summary.
func FormatConnections(conns []Connection) string {
	var tcp, udp []Connection
	listening, established := 0, 0
	for _, c := range conns {
		switch c.Status {
		case "LISTEN":
			listening++
		case "ESTABLISHED":
			established++
		}
		if c.Proto == "TCP" {
			tcp = append(tcp, c)
		} else {
			udp = append(udp, c)
		}
	}

	out := []string{"🌐 Active network connections:"}
	if len(tcp) > 0 {
		out = append(out, "📡 TCP connections ("+strconv.Itoa(len(tcp))+"):")
		for i, c := range tcp {
			if i == MaxConnections {
				break
			}
			out = append(out, "   "+StatusIcon(c.Status)+" "+c.Local+" -> "+c.Remote+" ["+c.Status+"]"+pidSuffix(c.PID))
		}
	}
	if len(udp) > 0 {
		out = append(out, "📻 UDP connections ("+strconv.Itoa(len(udp))+"):")
		for i, c := range udp {
			if i == MaxConnections {
				break
			}
			out = append(out, "   📡 "+c.Local+" -> "+c.Remote+pidSuffix(c.PID))
		}
	}
	if len(tcp) == 0 && len(udp) == 0 {
		out = append(out, "❌ No matching connections")
	}
	out = append(out,
		"📊 Summary:",
		"   🎧 Listening: "+strconv.Itoa(listening),
		"   🔗 Established: "+strconv.Itoa(established),
		"   📈 Total: "+strconv.Itoa(len(conns)),
	)
	return strings.Join(out, "\n")
}

func pidSuffix(pid int32) string {
	if pid <= 0 {
		return ""
	}
	return " (PID: " + strconv.Itoa(int(pid)) + ")"
}
