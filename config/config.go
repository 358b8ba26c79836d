// Package config loads netprobe.yaml: server transport, HTTP adapter limits,
// tool collaborators, logging, and telemetry settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	projectConfigName = "netprobe.yaml"
	homeConfigName    = "config.yaml"
	homeConfigDir     = ".netprobe"
)

// Transport names accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// File is the netprobe.yaml shape.
type File struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Tools     ToolsConfig     `yaml:"tools"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig selects the protocol adapter.
type ServerConfig struct {
	Name              string `yaml:"name"`
	Transport         string `yaml:"transport"`
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	StreamConcurrency int    `yaml:"stream_concurrency"`
}

// Addr returns host:port for the HTTP adapter.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HTTPConfig bounds the HTTP adapter.
type HTTPConfig struct {
	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RateLimit       float64       `yaml:"rate_limit"`
	RateBurst       int           `yaml:"rate_burst"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ToolsConfig configures collaborators shared by the tools.
type ToolsConfig struct {
	Workers    int               `yaml:"workers"`
	Binaries   map[string]string `yaml:"binaries"`
	UserAgent  string            `yaml:"user_agent"`
	DNSServers []string          `yaml:"dns_servers"`
}

// LogConfig configures the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig configures OpenTelemetry providers.
type TelemetryConfig struct {
	Metrics      bool   `yaml:"metrics"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	OTLPInsecure bool   `yaml:"otlp_insecure"`
}

// Default returns the configuration used when no file is found.
func Default() File {
	return File{
		Server: ServerConfig{
			Name:              "netprobe",
			Transport:         TransportStdio,
			Host:              "0.0.0.0",
			Port:              8000,
			StreamConcurrency: 8,
		},
		HTTP: HTTPConfig{
			CORSOrigins:     []string{"*"},
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    10 * time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Tools: ToolsConfig{
			Workers: 16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Discover resolves the config location with first-match semantics.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverFrom(explicitPath, cwd, homeDir)
}

// DiscoverFrom is a testable variant of Discover.
func DiscoverFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	candidates := make([]string, 0, 2)
	if clean := strings.TrimSpace(explicitPath); clean != "" {
		candidates = append(candidates, filepath.Clean(clean))
	} else {
		candidates = append(candidates, filepath.Join(cwd, projectConfigName))
		if homeDir != "" {
			candidates = append(candidates, filepath.Join(homeDir, homeConfigDir, homeConfigName))
		}
	}

	for i, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, true, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			if i == 0 && strings.TrimSpace(explicitPath) != "" {
				return "", false, fmt.Errorf("config file %q not found", candidate)
			}
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads path over the defaults. Environment references ($VAR, ${VAR})
// are expanded before parsing. An empty path returns the defaults.
func Load(path string) (File, error) {
	cfg := Default()
	clean := strings.TrimSpace(path)
	if clean == "" {
		return cfg, nil
	}

	// #nosec G304 -- path resolved from explicit local config discovery.
	data, err := os.ReadFile(clean)
	if err != nil {
		return File{}, fmt.Errorf("reading config %q: %w", clean, err)
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return File{}, fmt.Errorf("parsing config %q: %w", clean, err)
	}
	if err := cfg.Validate(); err != nil {
		return File{}, fmt.Errorf("config %q: %w", clean, err)
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise fail late.
func (f File) Validate() error {
	var errs []error
	switch f.Server.Transport {
	case TransportStdio, TransportHTTP:
	default:
		errs = append(errs, fmt.Errorf("server.transport %q must be %s or %s", f.Server.Transport, TransportStdio, TransportHTTP))
	}
	if f.Server.Port < 0 || f.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", f.Server.Port))
	}
	if f.Server.StreamConcurrency < 0 {
		errs = append(errs, errors.New("server.stream_concurrency must not be negative"))
	}
	if f.HTTP.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("http.max_body_bytes must not be negative"))
	}
	if f.HTTP.RateLimit < 0 || f.HTTP.RateBurst < 0 {
		errs = append(errs, errors.New("http.rate_limit and http.rate_burst must not be negative"))
	}
	if f.Tools.Workers < 0 {
		errs = append(errs, errors.New("tools.workers must not be negative"))
	}
	switch strings.ToLower(f.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be text or json", f.Log.Format))
	}
	return errors.Join(errs...)
}
