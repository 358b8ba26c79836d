package netdiag

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/petal-labs/netprobe/report"
	"github.com/petal-labs/netprobe/tool"
)

const pingOutput = `PING 8.8.8.8 (8.8.8.8) 56(84) bytes of data.
64 bytes from 8.8.8.8: icmp_seq=1 ttl=117 time=10.0 ms
64 bytes from 8.8.8.8: icmp_seq=2 ttl=117 time=12.0 ms

--- 8.8.8.8 ping statistics ---
2 packets transmitted, 2 received, 0% packet loss, time 1001ms
rtt min/avg/max/mdev = 10.0/11.0/12.0/1.0 ms
`

func TestPingCommand(t *testing.T) {
	tests := []struct {
		goos string
		want []string
	}{
		{"linux", []string{"-c", "3", "-W", "2", "example.com"}},
		{"darwin", []string{"-c", "3", "-W", "2000", "example.com"}},
		{"windows", []string{"-n", "3", "-w", "2000", "example.com"}},
	}
	for _, tc := range tests {
		cmd := PingCommand(tc.goos, "example.com", 3, 2)
		if cmd.Name != "ping" || !slices.Equal(cmd.Args, tc.want) {
			t.Fatalf("PingCommand(%s) = %v %v, want %v", tc.goos, cmd.Name, cmd.Args, tc.want)
		}
		if cmd.Timeout != 12*time.Second {
			t.Fatalf("PingCommand(%s) timeout = %v, want 12s", tc.goos, cmd.Timeout)
		}
	}
}

func TestPingExecute(t *testing.T) {
	env := newTestEnv()
	env.runner.results["ping"] = stdout(pingOutput)

	got, err := NewPing(env.deps).Execute(context.Background(), tool.Args{"host": "8.8.8.8", "count": float64(2)})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "2 sent, 2 received, 0% loss") || !strings.Contains(got, "Average: 11ms") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if args := env.runner.calls[0].Args; args[1] != "2" || args[3] != "5" {
		t.Fatalf("ping args = %v, want count 2 and default timeout 5", args)
	}
}

func TestPingFailuresBecomeText(t *testing.T) {
	tests := []struct {
		name   string
		result *fakeResult
		want   string
	}{
		{"missing binary", nil, "ping command is not available"},
		{"stderr", &fakeResult{res: tool.ProcessResult{ExitCode: 2, Stderr: []byte("ping: unknown host nowhere.example")}}, "unknown host"},
		{"timeout", &fakeResult{err: tool.Timeout("ping timed out after 15s")}, "timed out"},
		{"total loss", &fakeResult{res: tool.ProcessResult{ExitCode: 1, Stdout: []byte("4 packets transmitted, 0 received, 100% packet loss")}}, "0 received"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv()
			if tc.result != nil {
				env.runner.results["ping"] = *tc.result
			}
			got, err := NewPing(env.deps).Execute(context.Background(), tool.Args{"host": "example.com"})
			if err != nil {
				t.Fatalf("Execute() error = %v, want nil", err)
			}
			if !strings.HasPrefix(got, "❌") || !strings.Contains(got, tc.want) {
				t.Fatalf("Execute() = %q, want failure containing %q", got, tc.want)
			}
		})
	}
}

func TestTracerouteCommandAndExecute(t *testing.T) {
	cmd := TracerouteCommand("windows", "example.com", 10)
	if cmd.Name != "tracert" || !slices.Equal(cmd.Args, []string{"-h", "10", "example.com"}) || cmd.Timeout != 80*time.Second {
		t.Fatalf("TracerouteCommand(windows) = %+v", cmd)
	}

	env := newTestEnv()
	env.runner.results["traceroute"] = stdout(" 1  gw (192.168.1.1)  1.0 ms  1.1 ms  1.2 ms\n 2  * * *\n")
	got, err := NewTraceroute(env.deps).Execute(context.Background(), tool.Args{"host": "example.com"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, " 1. gw (192.168.1.1)") || !strings.Contains(got, " 2. * * * (timeout)") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if env.runner.calls[0].Timeout != 105*time.Second {
		t.Fatalf("timeout = %v, want 105s for 15 hops", env.runner.calls[0].Timeout)
	}
}

func TestWhoisFallsBackToBinary(t *testing.T) {
	env := newTestEnv()
	env.runner.results["whois"] = stdout("Domain Name: EXAMPLE.COM\nRegistrar: Example Registrar\n% note\n")

	got, err := NewWhois(env.deps).Execute(context.Background(), tool.Args{"target": "example.com"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "Registrar: Example Registrar") || strings.Contains(got, "% note") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if len(env.runner.calls) != 1 || env.runner.calls[0].Args[0] != "example.com" {
		t.Fatalf("runner calls = %+v", env.runner.calls)
	}
}

func TestWhoisClientUsesRawWhenUnparseable(t *testing.T) {
	env := newTestEnv()
	env.deps.Whois = stubWhois{raw: "NetRange: 1.1.1.0 - 1.1.1.255\nOrgName: APNIC and Cloudflare DNS Resolver project\n"}

	got, err := NewWhois(env.deps).Execute(context.Background(), tool.Args{"target": "1.1.1.1"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "NetRange: 1.1.1.0 - 1.1.1.255") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if env.runner.callCount() != 0 {
		t.Fatalf("runner calls = %d, want 0", env.runner.callCount())
	}
}

func TestDNSFallsBackToNslookup(t *testing.T) {
	env := newTestEnv()
	env.runner.results["nslookup"] = stdout("Server:\t\t1.1.1.1\nAddress:\t1.1.1.1#53\n\nNon-authoritative answer:\nName:\texample.com\nAddress: 93.184.216.34\n")

	got, err := NewDNS(env.deps).Execute(context.Background(), tool.Args{"domain": "example.com", "record_type": "a"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "93.184.216.34") || strings.Contains(got, "1.1.1.1#53") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if args := env.runner.calls[0].Args; args[0] != "-type=A" {
		t.Fatalf("nslookup args = %v", args)
	}
	if env.resolver.calls != 1 {
		t.Fatalf("resolver calls = %d, want 1", env.resolver.calls)
	}
}

func TestNmapCommand(t *testing.T) {
	cmd := NmapCommand("example.com", []int{22, 80}, "syn")
	want := []string{"-p", "22,80", "-sS", "-T4", "--max-retries", "2", "example.com"}
	if !slices.Equal(cmd.Args, want) {
		t.Fatalf("NmapCommand() args = %v, want %v", cmd.Args, want)
	}
	if cmd.Timeout != 34*time.Second {
		t.Fatalf("timeout = %v, want 34s", cmd.Timeout)
	}
	if NmapCommand("h", []int{1}, "tcp").Args[2] != "-sT" {
		t.Fatal("tcp scan type should map to -sT")
	}
	many := make([]int, 200)
	if NmapCommand("h", many, "connect").Timeout != 300*time.Second {
		t.Fatal("timeout not capped at 300s")
	}
}

func TestNmapUsesBinaryOutput(t *testing.T) {
	env := newTestEnv()
	env.runner.results["nmap"] = stdout("PORT   STATE SERVICE\n22/tcp open  ssh\n80/tcp closed http\n")

	got, err := NewNmap(env.deps).Execute(context.Background(), tool.Args{"host": "example.com", "ports": "22,80"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "✅ 22/tcp - ssh") || !strings.Contains(got, "1 closed ports") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if env.dialer.callCount() != 0 {
		t.Fatalf("dialer calls = %d, want 0", env.dialer.callCount())
	}
}

func TestNmapErrorExitIsReportedWithoutFallback(t *testing.T) {
	env := newTestEnv()
	env.runner.results["nmap"] = fakeResult{res: tool.ProcessResult{ExitCode: 1, Stderr: []byte("You requested a scan type which requires root privileges.")}}

	got, _ := NewNmap(env.deps).Execute(context.Background(), tool.Args{"host": "example.com", "scan_type": "syn"})
	if !strings.Contains(got, "requires root privileges") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if env.dialer.callCount() != 0 {
		t.Fatalf("dialer calls = %d, want 0", env.dialer.callCount())
	}
}

func TestNmapFallsBackToConnectScan(t *testing.T) {
	env := newTestEnv()
	env.dialer.open["example.com:80"] = true
	env.dialer.filtered["example.com:22"] = true

	got, err := NewNmap(env.deps).Execute(context.Background(), tool.Args{"host": "example.com", "ports": "22,80,443"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"basic connect scan", "✅ 80/tcp - http", "1 closed ports", "1 filtered ports"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Execute() missing %q:\n%s", want, got)
		}
	}
	if want := []string{"example.com:22", "example.com:80", "example.com:443"}; !slices.Equal(env.dialer.calls, want) {
		t.Fatalf("dial order = %v, want %v", env.dialer.calls, want)
	}
}

func TestConnectScanCapsAttempts(t *testing.T) {
	env := newTestEnv()
	if _, err := NewNmap(env.deps).Execute(context.Background(), tool.Args{"host": "10.0.0.1", "ports": "1-100"}); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if env.dialer.callCount() != MaxConnectScanPorts {
		t.Fatalf("dialer calls = %d, want %d", env.dialer.callCount(), MaxConnectScanPorts)
	}
}

func TestCurlCommand(t *testing.T) {
	tests := []struct {
		name            string
		method          string
		includeHeaders  bool
		followRedirects bool
		want            []string
		absent          []string
	}{
		{"get with headers", "GET", true, false, []string{"-i", "-X", "GET"}, []string{"-I", "-L"}},
		{"post following redirects", "POST", false, true, []string{"-L", "-X", "POST"}, []string{"-i", "-I"}},
		{"head uses head flag", "HEAD", true, false, []string{"-I"}, []string{"-X", "HEAD", "-i"}},
		{"head without headers", "HEAD", false, true, []string{"-I", "-L"}, []string{"-X", "HEAD"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cmd := CurlCommand("https://example.com", tc.method, tc.includeHeaders, tc.followRedirects)
			for _, arg := range tc.want {
				if !slices.Contains(cmd.Args, arg) {
					t.Fatalf("CurlCommand() args = %v, missing %q", cmd.Args, arg)
				}
			}
			for _, arg := range tc.absent {
				if slices.Contains(cmd.Args, arg) {
					t.Fatalf("CurlCommand() args = %v, unexpected %q", cmd.Args, arg)
				}
			}
			if cmd.Args[len(cmd.Args)-2] != "--" || cmd.Args[len(cmd.Args)-1] != "https://example.com" {
				t.Fatalf("url must follow --: %v", cmd.Args)
			}
			if cmd.Timeout != CurlTimeout {
				t.Fatalf("timeout = %v, want %v", cmd.Timeout, CurlTimeout)
			}
		})
	}
}

func TestCurlUsesBinaryOutput(t *testing.T) {
	env := newTestEnv()
	env.runner.results["curl"] = stdout("HTTP/2 200\r\ncontent-type: text/plain\r\n\r\nhello" + report.CurlStatsMarker + "HTTP Code: 200")

	got, err := NewCurl(env.deps).Execute(context.Background(), tool.Args{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"GET request to https://example.com", "HTTP/2 200", "hello", "HTTP Code: 200"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Execute() missing %q:\n%s", want, got)
		}
	}
	if len(env.http.requests) != 0 {
		t.Fatal("native client used although curl succeeded")
	}
}

func TestCurlFallsBackToNativeClient(t *testing.T) {
	env := newTestEnv()
	env.runner.results["curl"] = fakeResult{res: tool.ProcessResult{ExitCode: 6, Stderr: []byte("curl: (6) Could not resolve host")}}
	env.http.err = nil
	env.http.status = http.StatusOK
	env.http.header = http.Header{"Server": {"ECS"}, "Content-Type": {"text/html"}}
	env.http.body = "<html>ok</html>"

	var follows []bool
	env.deps.HTTPClient = func(follow bool) HTTPDoer {
		follows = append(follows, follow)
		return env.http
	}

	got, err := NewCurl(env.deps).Execute(context.Background(), tool.Args{
		"url":              "https://example.com",
		"method":           "head",
		"follow_redirects": false,
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	for _, want := range []string{"HEAD request to https://example.com", "Status: 200 OK", "Content-Type: text/html", "<html>ok</html>", "Size: 15 bytes"} {
		if !strings.Contains(got, want) {
			t.Fatalf("Execute() missing %q:\n%s", want, got)
		}
	}
	req := env.http.requests[0]
	if req.Method != http.MethodHead || req.Header.Get("User-Agent") != "netprobe/test" {
		t.Fatalf("request = %s %v", req.Method, req.Header)
	}
	if len(follows) != 1 || follows[0] {
		t.Fatalf("redirect policy = %v, want [false]", follows)
	}
}

func TestCurlAllStrategiesFail(t *testing.T) {
	env := newTestEnv()
	got, err := NewCurl(env.deps).Execute(context.Background(), tool.Args{"url": "https://example.com"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(got, "❌ curl failed:") || !strings.Contains(got, "network unreachable") {
		t.Fatalf("Execute() = %q", got)
	}
}

func TestNetstatUsesConnectionAPI(t *testing.T) {
	env := newTestEnv()
	env.conns.err = nil
	env.conns.conns = []report.Connection{
		{Proto: "TCP", Local: "0.0.0.0:22", Remote: "*:*", Status: "LISTEN", PID: 1},
		{Proto: "TCP", Local: "10.0.0.2:22", Remote: "10.0.0.9:5000", Status: "ESTABLISHED"},
		{Proto: "UDP", Local: "0.0.0.0:68", Remote: "*:*", Status: "unknown"},
	}

	got, err := NewNetstat(env.deps).Execute(context.Background(), tool.Args{"protocol": "tcp", "state": "listening"})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "0.0.0.0:22 -> *:* [LISTEN] (PID: 1)") || strings.Contains(got, "10.0.0.9") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if !strings.Contains(got, "Total: 1") {
		t.Fatalf("summary total wrong:\n%s", got)
	}
	if len(env.conns.kinds) != 1 || env.conns.kinds[0] != "tcp" {
		t.Fatalf("kinds = %v, want [tcp]", env.conns.kinds)
	}
}

func TestNetstatFallsBackToBinary(t *testing.T) {
	env := newTestEnv()
	env.runner.results["netstat"] = stdout("Proto Recv-Q Send-Q Local Address Foreign Address State\n" +
		"tcp 0 0 192.168.1.5:22 10.0.0.7:51234 ESTABLISHED\n" +
		"udp 0 0 0.0.0.0:68 0.0.0.0:*\n")

	got, err := NewNetstat(env.deps).Execute(context.Background(), tool.Args{})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.Contains(got, "TCP connections (1)") || !strings.Contains(got, "UDP connections (1)") {
		t.Fatalf("Execute() =\n%s", got)
	}
	if args := env.runner.calls[0].Args; !slices.Equal(args, []string{"-n", "-t", "-u"}) {
		t.Fatalf("netstat args = %v", args)
	}
}
