package netdiag

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

func TestCatalogOrder(t *testing.T) {
	d := NewDispatcher(newTestEnv().deps)

	want := []string{"ping", "traceroute", "whois", "nslookup", "dig", "nmap", "curl", "netstat"}
	specs := d.List()
	if len(specs) != len(want) {
		t.Fatalf("List() len = %d, want %d", len(specs), len(want))
	}
	for i, name := range want {
		if specs[i].Name != name {
			t.Fatalf("List()[%d] = %q, want %q", i, specs[i].Name, name)
		}
	}

	ping, _ := d.Lookup("ping")
	count, ok := ping.Param("count")
	if !ok || *count.Min != 1 || *count.Max != 10 || count.Default != 4 {
		t.Fatalf("ping count param = %+v", count)
	}
	nmap, _ := d.Lookup("nmap")
	if ports, _ := nmap.Param("ports"); ports.Default != DefaultPorts {
		t.Fatalf("nmap ports default = %v", ports.Default)
	}
}

func TestDispatchUnknownAndInvalid(t *testing.T) {
	env := newTestEnv()
	d := NewDispatcher(env.deps)

	if _, err := d.Invoke(context.Background(), "nope", map[string]any{}); !errors.Is(err, tool.ErrUnknownOperation) {
		t.Fatalf("Invoke(nope) error = %v", err)
	}
	if _, err := d.Invoke(context.Background(), "ping", map[string]any{}); !errors.Is(err, tool.ErrInvalidArguments) {
		t.Fatalf("Invoke(ping, {}) error = %v", err)
	}
	if env.runner.callCount() != 0 {
		t.Fatalf("runner calls = %d, want 0", env.runner.callCount())
	}
}

func TestDispatchDNSWithStubResolver(t *testing.T) {
	for _, name := range []string{"nslookup", "dig"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv()
			env.resolver.err = nil
			env.resolver.answers = []report.DNSAnswer{{Type: "A", Address: "93.184.216.34"}}

			got, err := NewDispatcher(env.deps).Invoke(context.Background(), name, map[string]any{
				"domain":      "example.com",
				"record_type": "A",
			})
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if !strings.Contains(got, "93.184.216.34") {
				t.Fatalf("Invoke() = %q, want address", got)
			}
			if env.runner.callCount() != 0 {
				t.Fatalf("runner calls = %d, want 0", env.runner.callCount())
			}
		})
	}
}

func TestDispatchNmapRejectsBadPortsBeforeAnyNetworkAccess(t *testing.T) {
	env := newTestEnv()
	_, err := NewDispatcher(env.deps).Invoke(context.Background(), "nmap", map[string]any{
		"host":  "example.com",
		"ports": "99999",
	})
	if !errors.Is(err, tool.ErrInvalidArguments) {
		t.Fatalf("Invoke() error = %v, want ErrInvalidArguments", err)
	}
	if env.runner.callCount() != 0 || env.dialer.callCount() != 0 {
		t.Fatalf("runner calls = %d, dialer calls = %d; want 0, 0", env.runner.callCount(), env.dialer.callCount())
	}
}

func TestDispatchRejectsNamesThatResolveToBlockedTargets(t *testing.T) {
	for _, host := range []string{"localhost.", "2130706433", "0", "0x7f000001", "127.0.0.1."} {
		t.Run(host, func(t *testing.T) {
			env := newTestEnv()
			_, err := NewDispatcher(env.deps).Invoke(context.Background(), "ping", map[string]any{"host": host})
			if !errors.Is(err, tool.ErrInvalidArguments) {
				t.Fatalf("Invoke(ping, %q) error = %v, want ErrInvalidArguments", host, err)
			}
			if env.runner.callCount() != 0 {
				t.Fatalf("runner calls = %d, want 0", env.runner.callCount())
			}
		})
	}
}

func TestToolsRejectInvalidArgumentsWhenCalledDirectly(t *testing.T) {
	env := newTestEnv()
	tools := []tool.Tool{
		NewPing(env.deps), NewTraceroute(env.deps), NewWhois(env.deps), NewDNS(env.deps),
		NewNmap(env.deps), NewCurl(env.deps),
	}
	for _, tl := range tools {
		_, err := tl.Execute(context.Background(), tool.Args{"host": "localhost", "target": "localhost", "domain": "localhost", "url": "http://localhost"})
		if tool.ErrorCode(err) != tool.CodeInvalidArguments {
			t.Fatalf("%s Execute() code = %q, want %q", tl.Spec().Name, tool.ErrorCode(err), tool.CodeInvalidArguments)
		}
	}
	if env.runner.callCount() != 0 {
		t.Fatalf("runner calls = %d, want 0", env.runner.callCount())
	}
}

func TestSchemasRenderAsObjects(t *testing.T) {
	for _, spec := range NewDispatcher(newTestEnv().deps).List() {
		schema := spec.InputSchema()
		if schema["type"] != "object" {
			t.Fatalf("%s schema type = %v", spec.Name, schema["type"])
		}
		if spec.Description == "" {
			t.Fatalf("%s has no description", spec.Name)
		}
	}
}
