package netdiag

import (
	"context"
	"net"
	"strconv"
	"syscall"

	gnet "github.com/shirou/gopsutil/v4/net"

	"github.com/petal-labs/netprobe/report"
)

// SystemConnections enumerates sockets through the operating system.
type SystemConnections struct{}

// Connections returns the sockets of kind with PIDs where the OS reports
// them.
func (SystemConnections) Connections(ctx context.Context, kind string) ([]report.Connection, error) {
	stats, err := gnet.ConnectionsWithContext(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]report.Connection, 0, len(stats))
	for _, s := range stats {
		out = append(out, convertConnection(s))
	}
	return out, nil
}

func convertConnection(s gnet.ConnectionStat) report.Connection {
	proto := "TCP"
	if s.Type == syscall.SOCK_DGRAM {
		proto = "UDP"
	}
	c := report.Connection{
		Proto:  proto,
		Local:  "unknown",
		Remote: "*:*",
		Status: report.NormalizeStatus(s.Status),
		PID:    s.Pid,
	}
	if s.Laddr.IP != "" {
		c.Local = net.JoinHostPort(s.Laddr.IP, strconv.FormatUint(uint64(s.Laddr.Port), 10))
	}
	if s.Raddr.IP != "" {
		c.Remote = net.JoinHostPort(s.Raddr.IP, strconv.FormatUint(uint64(s.Raddr.Port), 10))
	}
	return c
}
