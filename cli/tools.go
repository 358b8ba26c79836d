package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/netprobe/config"
	"github.com/petal-labs/netprobe/tool"
	"github.com/petal-labs/netprobe/tool/mcp"
)

// NewToolsCmd creates the "tools" command group.
func NewToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List and invoke diagnostic tools",
	}
	cmd.PersistentFlags().String("endpoint", "", "Remote netprobe JSON-RPC endpoint (default: run tools in-process)")
	cmd.PersistentFlags().Duration("timeout", 10*time.Minute, "Overall call timeout")

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsCallCmd())
	return cmd
}

func newToolsListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List available tools",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
	cmd.Flags().Bool("json", false, "Print the MCP tools/list result as JSON")
	return cmd
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	session, err := openToolSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	tools, err := session.list(cmd.Context())
	if err != nil {
		return exitError(exitRuntime, "listing tools: %v", err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSONOut(cmd.OutOrStdout(), mcp.ToolsListResult{Tools: tools})
	}

	writer := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 2, 2, ' ', 0)
	fmt.Fprintln(writer, "NAME\tPARAMS\tDESCRIPTION")
	for _, t := range tools {
		fmt.Fprintf(writer, "%s\t%s\t%s\n", t.Name, paramSummary(t.InputSchema), t.Description)
	}
	return writer.Flush()
}

func newToolsCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <name>",
		Short: "Invoke a tool and print its report",
		Args:  cobra.ExactArgs(1),
		RunE:  runToolsCall,
	}
	cmd.Flags().StringArray("arg", nil, "Argument KEY=VALUE pair (repeatable)")
	cmd.Flags().String("input", "", "Arguments object as JSON")
	cmd.Flags().Bool("json", false, "Print {success, tool, result} as JSON")
	return cmd
}

func runToolsCall(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	session, err := openToolSession(cmd)
	if err != nil {
		return err
	}
	defer session.Close()

	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	tools, err := session.list(ctx)
	if err != nil {
		return exitError(exitRuntime, "listing tools: %v", err)
	}
	inputs, err := parseToolInputs(cmd, paramTypes(tools, name))
	if err != nil {
		return exitError(exitInputParse, "parsing arguments: %v", err)
	}

	text, err := session.call(ctx, name, inputs)
	if err != nil {
		if isRejection(err) {
			return exitError(exitValidation, "%s", rejectionMessage(err))
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return exitError(exitRuntime, "call timed out after %s", timeout)
		}
		return exitError(exitRuntime, "calling %s: %v", name, err)
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return writeJSONOut(cmd.OutOrStdout(), map[string]any{
			"success": true,
			"tool":    name,
			"result":  text,
		})
	}
	fmt.Fprintln(cmd.OutOrStdout(), text)
	return nil
}

// toolSession lists and invokes tools either in-process or through an MCP
// client bound to a remote endpoint.
type toolSession struct {
	local  *appRuntime
	remote *mcp.Client
}

func openToolSession(cmd *cobra.Command) (*toolSession, error) {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	endpoint, _ := cmd.Flags().GetString("endpoint")
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		transport, err := mcp.NewHTTPTransport(mcp.HTTPTransportConfig{Endpoint: endpoint})
		if err != nil {
			return nil, exitError(exitValidation, "%v", err)
		}
		client := mcp.NewClient(transport, mcp.ClientInfo{Name: "netprobe-cli", Version: cmd.Root().Version})
		if _, err := client.Initialize(cmd.Context()); err != nil {
			return nil, exitError(exitRuntime, "connecting to %s: %v", endpoint, err)
		}
		return &toolSession{remote: client}, nil
	}

	// Tool reports go to stdout; only warnings and above reach stderr.
	verbose, _ := cmd.Flags().GetBool("verbose")
	if !verbose && !cmd.Flags().Changed("log-level") && parseLevel(cfg.Log.Level) < slog.LevelWarn {
		logger = newLogger(config.LogConfig{Level: "warn", Format: cfg.Log.Format}, cmd.ErrOrStderr())
	}
	rt, err := buildRuntime(cmd.Context(), cfg, cmd.Root().Version, logger)
	if err != nil {
		return nil, exitError(exitRuntime, "%v", err)
	}
	return &toolSession{local: rt}, nil
}

func (s *toolSession) list(ctx context.Context) ([]mcp.Tool, error) {
	if s.remote != nil {
		return s.remote.ListTools(ctx)
	}
	specs := s.local.dispatcher.List()
	tools := make([]mcp.Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, mcp.Tool{Name: spec.Name, Description: spec.Description, InputSchema: spec.InputSchema()})
	}
	return tools, nil
}

func (s *toolSession) call(ctx context.Context, name string, args map[string]any) (string, error) {
	if s.remote != nil {
		return s.remote.CallTool(ctx, name, args)
	}
	return s.local.dispatcher.Invoke(ctx, name, args)
}

func (s *toolSession) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if s.remote != nil {
		_ = s.remote.Close(ctx)
	}
	if s.local != nil {
		_ = s.local.Close(ctx)
	}
}

// isRejection reports whether err is an unknown-tool or invalid-arguments
// rejection, local or remote.
func isRejection(err error) bool {
	if errors.Is(err, tool.ErrUnknownOperation) || errors.Is(err, tool.ErrInvalidArguments) {
		return true
	}
	var rpcErr *mcp.RPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == mcp.CodeInvalidParams
}

func rejectionMessage(err error) string {
	var rpcErr *mcp.RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Message
	}
	return tool.ErrorMessage(err)
}

// paramTypes maps the named tool's parameters to their JSON Schema types.
func paramTypes(tools []mcp.Tool, name string) map[string]string {
	types := map[string]string{}
	for _, t := range tools {
		if t.Name != name {
			continue
		}
		props, _ := t.InputSchema["properties"].(map[string]any)
		for key, raw := range props {
			prop, _ := raw.(map[string]any)
			if typ, ok := prop["type"].(string); ok {
				types[key] = typ
			}
		}
	}
	return types
}

func paramSummary(schema map[string]any) string {
	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return "-"
	}
	required := map[string]bool{}
	switch req := schema["required"].(type) {
	case []string:
		for _, r := range req {
			required[r] = true
		}
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				required[s] = true
			}
		}
	}
	names := make([]string, 0, len(props))
	for key := range props {
		if required[key] {
			key += "*"
		}
		names = append(names, key)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

func parseKeyValue(value string, requireValue bool) (string, string, error) {
	parts := strings.SplitN(value, "=", 2)
	key := strings.TrimSpace(parts[0])
	if key == "" {
		return "", "", errors.New("key is required")
	}
	if len(parts) == 1 {
		if requireValue {
			return "", "", fmt.Errorf("value is required for %q", key)
		}
		return key, "", nil
	}
	return key, parts[1], nil
}

// parseToolInputs merges --arg pairs and the --input object. --arg values
// are coerced using the parameter's schema type when it is known.
func parseToolInputs(cmd *cobra.Command, types map[string]string) (map[string]any, error) {
	inputs := map[string]any{}

	inputJSON, _ := cmd.Flags().GetString("input")
	if strings.TrimSpace(inputJSON) != "" {
		var obj map[string]any
		if err := json.Unmarshal([]byte(inputJSON), &obj); err != nil {
			return nil, err
		}
		for key, value := range obj {
			inputs[key] = value
		}
	}

	rawPairs, _ := cmd.Flags().GetStringArray("arg")
	for _, pair := range rawPairs {
		key, value, err := parseKeyValue(pair, true)
		if err != nil {
			return nil, err
		}
		inputs[key] = coerceValue(types[key], value)
	}
	return inputs, nil
}

func coerceValue(schemaType, value string) any {
	switch schemaType {
	case tool.TypeString:
		return value
	case tool.TypeInteger:
		if i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return i
		}
		return value
	case tool.TypeBoolean:
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
		return value
	}
	return parsePrimitiveValue(value)
}

func parsePrimitiveValue(value string) any {
	if value == "true" {
		return true
	}
	if value == "false" {
		return false
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	return value
}

func writeJSONOut(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return exitError(exitRuntime, "encoding output: %v", err)
	}
	_, _ = w.Write(append(data, '\n'))
	return nil
}
