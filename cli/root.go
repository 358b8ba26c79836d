// Package cli implements the netprobe command tree: serve (stdio or HTTP)
// and tools (list, call locally or against a remote endpoint).
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the netprobe root command with every subcommand wired.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:   "netprobe",
		Short: "Network diagnostics over MCP",
		Long:  "netprobe exposes ping, traceroute, whois, DNS lookup, port scanning, HTTP probing and connection listing as MCP tools over stdio or HTTP.",
		// SilenceUsage prevents printing usage on every error
		SilenceUsage: true,
		Version:      version,
	}
	root.SetVersionTemplate(fmt.Sprintf("netprobe version %s\n", version))

	root.PersistentFlags().String("config", "", "Path to netprobe.yaml (default: ./netprobe.yaml, then ~/.netprobe/config.yaml)")
	root.PersistentFlags().Bool("verbose", false, "Enable verbose/debug logging")
	root.PersistentFlags().Bool("quiet", false, "Suppress all log output except errors")
	root.PersistentFlags().String("log-level", "", "Log level: debug | info | warn | error")
	root.PersistentFlags().String("log-format", "", "Log format: text | json")

	root.AddCommand(NewServeCmd())
	root.AddCommand(NewToolsCmd())
	return root
}
