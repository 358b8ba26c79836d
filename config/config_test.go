package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestDiscoverFrom_FirstMatchWins(t *testing.T) {
	cwd := t.TempDir()
	home := t.TempDir()

	projectConfig := filepath.Join(cwd, "netprobe.yaml")
	writeFile(t, projectConfig, "server: {}")
	writeFile(t, filepath.Join(home, ".netprobe", "config.yaml"), "server: {}")

	got, found, err := DiscoverFrom("", cwd, home)
	if err != nil {
		t.Fatalf("DiscoverFrom() error = %v", err)
	}
	if !found || got != projectConfig {
		t.Fatalf("DiscoverFrom() = %q, %v; want %q, true", got, found, projectConfig)
	}
}

func TestDiscoverFrom_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	homeConfig := filepath.Join(home, ".netprobe", "config.yaml")
	writeFile(t, homeConfig, "server: {}")

	got, found, err := DiscoverFrom("", t.TempDir(), home)
	if err != nil {
		t.Fatalf("DiscoverFrom() error = %v", err)
	}
	if !found || got != homeConfig {
		t.Fatalf("DiscoverFrom() = %q, %v; want %q, true", got, found, homeConfig)
	}
}

func TestDiscoverFrom_NothingFound(t *testing.T) {
	_, found, err := DiscoverFrom("", t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("DiscoverFrom() error = %v", err)
	}
	if found {
		t.Fatal("found = true, want false")
	}
}

func TestDiscoverFrom_ExplicitNotFound(t *testing.T) {
	_, found, err := DiscoverFrom(filepath.Join(t.TempDir(), "missing.yaml"), t.TempDir(), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
	if found {
		t.Fatal("found = true, want false")
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Transport != TransportStdio || cfg.Server.Port != 8000 {
		t.Fatalf("server defaults = %+v", cfg.Server)
	}
	if cfg.Tools.Workers != 16 {
		t.Fatalf("tools.workers = %d, want 16", cfg.Tools.Workers)
	}
}

func TestLoadOverlaysFileOnDefaults(t *testing.T) {
	t.Setenv("NETPROBE_TEST_NMAP", "/opt/nmap/bin/nmap")
	path := filepath.Join(t.TempDir(), "netprobe.yaml")
	writeFile(t, path, `
server:
  transport: http
  port: 9090
http:
  rate_limit: 5
  rate_burst: 10
  shutdown_timeout: 3s
tools:
  workers: 4
  binaries:
    nmap: ${NETPROBE_TEST_NMAP}
  dns_servers: ["9.9.9.9:53"]
telemetry:
  metrics: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Transport != TransportHTTP || cfg.Server.Port != 9090 {
		t.Fatalf("server = %+v", cfg.Server)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("server.host = %q, want default kept", cfg.Server.Host)
	}
	if cfg.Server.Addr() != "0.0.0.0:9090" {
		t.Fatalf("Addr() = %q", cfg.Server.Addr())
	}
	if cfg.HTTP.RateLimit != 5 || cfg.HTTP.RateBurst != 10 {
		t.Fatalf("rate = %v/%d", cfg.HTTP.RateLimit, cfg.HTTP.RateBurst)
	}
	if cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown_timeout = %v, want 3s", cfg.HTTP.ShutdownTimeout)
	}
	if cfg.HTTP.MaxBodyBytes != 1<<20 {
		t.Fatalf("max_body_bytes = %d, want default", cfg.HTTP.MaxBodyBytes)
	}
	if cfg.Tools.Binaries["nmap"] != "/opt/nmap/bin/nmap" {
		t.Fatalf("binaries.nmap = %q, want expanded env", cfg.Tools.Binaries["nmap"])
	}
	if len(cfg.Tools.DNSServers) != 1 || cfg.Tools.DNSServers[0] != "9.9.9.9:53" {
		t.Fatalf("dns_servers = %v", cfg.Tools.DNSServers)
	}
	if !cfg.Telemetry.Metrics {
		t.Fatal("telemetry.metrics = false, want true")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"transport", "server:\n  transport: grpc\n", "server.transport"},
		{"port", "server:\n  port: 70000\n", "server.port"},
		{"workers", "tools:\n  workers: -1\n", "tools.workers"},
		{"log format", "log:\n  format: xml\n", "log.format"},
		{"syntax", "server: [\n", "parsing config"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "netprobe.yaml")
			writeFile(t, path, tc.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("Load() error = %v, want mention of %q", err, tc.want)
			}
		})
	}
}
