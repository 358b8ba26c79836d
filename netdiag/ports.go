package netdiag

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/petal-labs/netprobe/validate"
)

// DefaultPorts is scanned when no port list is given.
const DefaultPorts = "80,443,22,21,25,53,110,143,993,995"

// MaxScanPorts caps the number of ports in one scan.
const MaxScanPorts = 100

// ParsePorts expands a port list such as "22,80-90" into a sorted,
// deduplicated list of at most MaxScanPorts ports. Any malformed element,
// out-of-range port, reversed or over-wide range is an error.
func ParsePorts(spec string) ([]int, error) {
	spec = strings.TrimSpace(spec)
	if !validate.PortSpec(spec) {
		return nil, fmt.Errorf("invalid port list %q", spec)
	}

	seen := make(map[int]struct{})
	for part := range strings.SplitSeq(spec, ",") {
		lo, hi, isRange := strings.Cut(part, "-")
		start, _ := strconv.Atoi(lo)
		end := start
		if isRange {
			end, _ = strconv.Atoi(hi)
		}
		for p := start; p <= end; p++ {
			seen[p] = struct{}{}
		}
	}

	ports := make([]int, 0, len(seen))
	for p := range seen {
		ports = append(ports, p)
	}
	slices.Sort(ports)
	if len(ports) > MaxScanPorts {
		ports = ports[:MaxScanPorts]
	}
	if len(ports) == 0 {
		return nil, fmt.Errorf("invalid port list %q", spec)
	}
	return ports, nil
}

func joinPorts(ports []int) string {
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}
