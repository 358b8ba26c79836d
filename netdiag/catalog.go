package netdiag

import (
	"github.com/petal-labs/netprobe/tool"
	"github.com/petal-labs/netprobe/validate"
)

// NewDispatcher builds the fixed operation catalog in listing order. The dns
// tool is registered twice, as nslookup and as dig.
func NewDispatcher(deps Deps) *tool.Dispatcher {
	deps = deps.withDefaults()
	d := tool.NewDispatcher(tool.DispatcherConfig{
		Validator: validate.Arguments,
		Observer:  deps.Observer,
		Logger:    deps.Logger,
	})

	dnsTool := NewDNS(deps)
	d.MustRegister("ping", NewPing(deps))
	d.MustRegister("traceroute", NewTraceroute(deps))
	d.MustRegister("whois", NewWhois(deps))
	d.MustRegister("nslookup", dnsTool)
	d.MustRegister("dig", dnsTool)
	d.MustRegister("nmap", NewNmap(deps))
	d.MustRegister("curl", NewCurl(deps))
	d.MustRegister("netstat", NewNetstat(deps))
	return d
}
