package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/petal-labs/netprobe/tool"
)

// Dispatcher is the subset of tool.Dispatcher the handler needs.
type Dispatcher interface {
	List() []tool.Spec
	Invoke(ctx context.Context, name string, args map[string]any) (string, error)
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Dispatcher Dispatcher
	ServerInfo ServerInfo
	Logger     *slog.Logger
}

// Handler answers MCP JSON-RPC requests against a tool dispatcher. It is
// shared by the stream and HTTP adapters.
type Handler struct {
	dispatcher Dispatcher
	info       ServerInfo
	logger     *slog.Logger
}

// NewHandler returns a handler for cfg.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	info := cfg.ServerInfo
	if info.Name == "" {
		info.Name = "netprobe"
	}
	return &Handler{dispatcher: cfg.Dispatcher, info: info, logger: logger}
}

// ServerInfo returns the identity announced on initialize.
func (h *Handler) ServerInfo() ServerInfo {
	return h.info
}

// HandleBytes decodes one raw JSON-RPC message and handles it. A nil return
// means no reply is due.
func (h *Handler) HandleBytes(ctx context.Context, raw []byte) *Message {
	var req Message
	if err := json.Unmarshal(raw, &req); err != nil {
		h.logger.Warn("malformed request", "error", err)
		return errorResponse(json.RawMessage("null"), CodeInternalError, err.Error())
	}
	return h.Handle(ctx, req)
}

// Handle answers one decoded request. Notifications return nil.
func (h *Handler) Handle(ctx context.Context, req Message) *Message {
	if req.Method == "" {
		if len(req.ID) == 0 || req.Result != nil || req.Error != nil {
			// Stray responses have nothing to answer.
			return nil
		}
		return errorResponse(req.ID, CodeInternalError, "missing method")
	}

	result, rpcErr := h.dispatch(ctx, req)
	if req.IsNotification() {
		if rpcErr != nil {
			h.logger.Debug("notification failed", "method", req.Method, "error", rpcErr.Message)
		}
		return nil
	}
	if rpcErr != nil {
		return &Message{JSONRPC: jsonRPCVersion, ID: req.ID, Error: rpcErr}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return errorResponse(req.ID, CodeInternalError, err.Error())
	}
	return &Message{JSONRPC: jsonRPCVersion, ID: req.ID, Result: payload}
}

func (h *Handler) dispatch(ctx context.Context, req Message) (any, *RPCError) {
	switch req.Method {
	case "initialize":
		return h.initialize(req.Params), nil
	case "notifications/initialized":
		return struct{}{}, nil
	case "ping":
		return struct{}{}, nil
	case "tools/list":
		return h.ListTools(), nil
	case "tools/call":
		var params ToolsCallParams
		if len(req.Params) > 0 {
			if err := json.Unmarshal(req.Params, &params); err != nil {
				return nil, &RPCError{Code: CodeInvalidParams, Message: "Invalid params: " + err.Error()}
			}
		}
		return h.callTool(ctx, params)
	default:
		return nil, &RPCError{Code: CodeMethodNotFound, Message: "Method not found: " + req.Method}
	}
}

func (h *Handler) initialize(raw json.RawMessage) InitializeResult {
	version := DefaultProtocolVersion
	if len(raw) > 0 {
		var params InitializeParams
		if err := json.Unmarshal(raw, &params); err == nil && strings.TrimSpace(params.ProtocolVersion) != "" {
			version = params.ProtocolVersion
		}
	}
	return InitializeResult{
		ProtocolVersion: version,
		Capabilities: map[string]any{
			"tools": map[string]any{"listChanged": false},
		},
		ServerInfo: h.info,
	}
}

// ListTools renders the catalog in MCP tools/list shape.
func (h *Handler) ListTools() ToolsListResult {
	specs := h.dispatcher.List()
	tools := make([]Tool, 0, len(specs))
	for _, spec := range specs {
		tools = append(tools, Tool{
			Name:        spec.Name,
			Description: spec.Description,
			InputSchema: spec.InputSchema(),
		})
	}
	return ToolsListResult{Tools: tools}
}

func (h *Handler) callTool(ctx context.Context, params ToolsCallParams) (any, *RPCError) {
	text, err := h.dispatcher.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		return nil, rpcErrorFor(err)
	}
	return ToolsCallResult{Content: []ContentBlock{{Type: "text", Text: text}}}, nil
}

func rpcErrorFor(err error) *RPCError {
	message := tool.ErrorMessage(err)
	switch {
	case errors.Is(err, tool.ErrUnknownOperation), errors.Is(err, tool.ErrInvalidArguments):
		return &RPCError{Code: CodeInvalidParams, Message: message}
	default:
		return &RPCError{Code: CodeInternalError, Message: fmt.Sprintf("Internal error: %s", message)}
	}
}

func errorResponse(id json.RawMessage, code int, message string) *Message {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return &Message{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message},
	}
}
