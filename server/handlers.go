package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/petal-labs/netprobe/tool"
	"github.com/petal-labs/netprobe/tool/mcp"
)

// handleRoot returns server metadata and the endpoint listing.
func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	specs := s.dispatcher.List()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}
	endpoints := map[string]string{
		"jsonrpc": "POST /",
		"tools":   "GET /tools",
		"call":    "POST /tools/{name}",
		"health":  "GET /health",
	}
	if s.metrics != nil {
		endpoints["metrics"] = "GET /metrics"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":      s.info.Name,
		"version":   s.info.Version,
		"protocol":  "MCP",
		"transport": "http",
		"tools":     names,
		"endpoints": endpoints,
	})
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"server":  s.info.Name,
		"version": s.info.Version,
	})
}

// handleRPC answers one JSON-RPC message. Notifications get 202 with no body;
// malformed bodies get 500 with a -32603 error.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeDetail(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeDetail(w, http.StatusBadRequest, err.Error())
		return
	}

	var req mcp.Message
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn("malformed rpc request", "error", err)
		writeJSON(w, http.StatusInternalServerError, mcp.Message{
			JSONRPC: "2.0",
			ID:      json.RawMessage("null"),
			Error:   &mcp.RPCError{Code: mcp.CodeInternalError, Message: err.Error()},
		})
		return
	}

	reply := s.rpc.Handle(r.Context(), req)
	if reply == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type toolSchema struct {
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

// handleListTools returns every tool's description and input schema.
func (s *Server) handleListTools(w http.ResponseWriter, _ *http.Request) {
	specs := s.dispatcher.List()
	tools := make(map[string]toolSchema, len(specs))
	for _, spec := range specs {
		tools[spec.Name] = toolSchema{Description: spec.Description, Schema: spec.InputSchema()}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tools":   tools,
	})
}

// handleCallTool invokes one tool with the request body as its arguments.
func (s *Server) handleCallTool(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	args, err := decodeArguments(r.Body)
	if err != nil {
		if isMaxBytesError(err) {
			writeDetail(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}

	text, err := s.dispatcher.Invoke(r.Context(), name, args)
	if err != nil {
		switch {
		case errors.Is(err, tool.ErrUnknownOperation):
			writeDetail(w, http.StatusNotFound, tool.ErrorMessage(err))
		case errors.Is(err, tool.ErrInvalidArguments):
			writeDetail(w, http.StatusBadRequest, tool.ErrorMessage(err))
		default:
			writeDetail(w, http.StatusInternalServerError, tool.ErrorMessage(err))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tool":    name,
		"result":  text,
	})
}

// decodeArguments reads a JSON object of tool arguments. An empty body means
// no arguments; a body of the form {"arguments":{...}} is unwrapped.
func decodeArguments(body io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var args map[string]any
	if err := decoder.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid JSON body: %w", err)
	}
	if args == nil {
		return map[string]any{}, nil
	}
	if len(args) == 1 {
		if inner, ok := args["arguments"].(map[string]any); ok {
			return inner, nil
		}
	}
	return args, nil
}

// isMaxBytesError checks if the error is from http.MaxBytesReader.
func isMaxBytesError(err error) bool {
	var maxBytesErr *http.MaxBytesError
	return errors.As(err, &maxBytesErr)
}
