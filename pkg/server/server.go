// Package server is the MCP server: it reads JSON-RPC requests from a transport,
// dispatches them to the built in methods or a registered tool, and writes replies.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/richard-senior/footy/internal/logger"
	"github.com/richard-senior/footy/pkg/protocol"
	"github.com/richard-senior/footy/pkg/tools"
	"github.com/richard-senior/footy/pkg/transport"
)

// Name and Version are reported in the initialize response
const (
	Name    = "footy"
	Version = "1.0.0"
)

// ToolPrefix is accepted in front of tool names for clients that namespace them
const ToolPrefix = "mcp___"

// methodFunc handles one of the built in JSON-RPC methods
type methodFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Server represents an MCP server
type Server struct {
	transport transport.Transport
	methods   map[string]methodFunc

	mu       sync.Mutex
	tools    []protocol.Tool
	handlers map[string]tools.HandlerFunc
	shutdown bool
}

// New creates a server on a transport with the built in methods registered
func New(t transport.Transport) *Server {
	s := &Server{
		transport: t,
		handlers:  make(map[string]tools.HandlerFunc),
	}
	s.methods = map[string]methodFunc{
		string(protocol.MethodInitialize):  s.handleInitialize,
		string(protocol.MethodInitialized): s.handleInitialized,
		string(protocol.MethodToolsList):   s.handleToolsList,
		string(protocol.MethodToolsCall):   s.handleToolsCall,
		string(protocol.MethodPing):        s.handlePing,
		string(protocol.MethodShutdown):    s.handleShutdown,
	}
	return s
}

// RegisterTool registers a tool with the server
func (s *Server) RegisterTool(tool protocol.Tool, handler tools.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, tool)
	s.handlers[tool.Name] = handler
	logger.Info("Registered tool:", tool.Name)
}

// RegisterPredictionTools registers predict_match, list_leagues and clear_cache
func (s *Server) RegisterPredictionTools(t *tools.Tools) {
	s.RegisterTool(tools.PredictMatchTool(), t.HandlePredictMatch)
	s.RegisterTool(tools.ListLeaguesTool(), t.HandleListLeagues)
	s.RegisterTool(tools.ClearCacheTool(), t.HandleClearCache)
}

// GetTools returns the list of registered tools
func (s *Server) GetTools() []protocol.Tool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Tool, len(s.tools))
	copy(out, s.tools)
	return out
}

// Serve processes requests until the client disconnects, a shutdown request is
// answered, or ctx is cancelled. A clean disconnect returns nil.
func (s *Server) Serve(ctx context.Context) error {
	logger.Info("Starting MCP server")

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.processRequests(ctx)
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("MCP server stopping:", ctx.Err())
		return nil
	}
}

func (s *Server) processRequests(ctx context.Context) error {
	for {
		req, err := s.transport.ReadRequest()
		if err != nil {
			// a well formed message that is not a valid request gets an error reply
			var rpcErr *protocol.JsonRpcError
			if errors.As(err, &rpcErr) {
				if werr := s.transport.WriteResponse(protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, nil)); werr != nil {
					return werr
				}
				continue
			}
			return err
		}

		resp := s.handleRequest(ctx, req)
		if resp != nil {
			if err := s.transport.WriteResponse(resp); err != nil {
				return err
			}
		}
		if s.stopping() {
			logger.Info("Shutdown requested")
			return nil
		}
	}
}

func (s *Server) stopping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

// handleRequest processes a request and returns a response, or nil for notifications
func (s *Server) handleRequest(ctx context.Context, req *protocol.JsonRpcRequest) *protocol.JsonRpcResponse {
	logger.Info(">> ", req.Method)
	logger.Debug("Request params:", string(req.Params))

	if strings.HasPrefix(req.Method, "notifications/") {
		logger.Info("Received notification:", req.Method)
		return nil
	}

	method, ok := s.methods[req.Method]
	if !ok {
		if req.IsNotification() {
			return nil
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrMethodNotFound, fmt.Sprintf("Method not found: %s", req.Method), nil, req.ID)
	}

	result, err := method(ctx, req.Params)
	if req.IsNotification() {
		return nil
	}
	if err != nil {
		var rpcErr *protocol.JsonRpcError
		if errors.As(err, &rpcErr) {
			return protocol.NewJsonRpcErrorResponse(rpcErr.Code, rpcErr.Message, nil, req.ID)
		}
		return protocol.NewJsonRpcErrorResponse(protocol.ErrToolExecutionFailed, err.Error(), nil, req.ID)
	}

	resp, err := protocol.NewJsonRpcResponse(result, req.ID)
	if err != nil {
		return protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "Failed to marshal result: "+err.Error(), nil, req.ID)
	}
	logger.Debug("Response:", string(resp.Result))
	return resp
}

/////////////////////////////////////////////////////////////////////////
////// Built in methods
/////////////////////////////////////////////////////////////////////////

type initializeResponse struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ServerInfo      serverInfo     `json:"serverInfo"`
}

type serverInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// handleInitialize echoes the client's protocol version and advertises tools
func (s *Server) handleInitialize(ctx context.Context, params json.RawMessage) (any, error) {
	version := protocol.DefaultProtocolVersion
	var p struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(params) > 0 && json.Unmarshal(params, &p) == nil && p.ProtocolVersion != "" {
		version = p.ProtocolVersion
	}
	logger.Info("Initializing with protocol version", version, "and", len(s.GetTools()), "tools")

	capabilities := map[string]any{}
	if len(s.GetTools()) > 0 {
		capabilities["tools"] = map[string]any{"listChanged": false}
	}
	return initializeResponse{
		ProtocolVersion: version,
		Capabilities:    capabilities,
		ServerInfo:      serverInfo{Name: Name, Version: Version},
	}, nil
}

// 'initialized' does not require a response
func (s *Server) handleInitialized(ctx context.Context, params json.RawMessage) (any, error) {
	return nil, nil
}

func (s *Server) handleToolsList(ctx context.Context, params json.RawMessage) (any, error) {
	return struct {
		Tools []protocol.Tool `json:"tools"`
	}{Tools: s.GetTools()}, nil
}

func (s *Server) handlePing(ctx context.Context, params json.RawMessage) (any, error) {
	return struct{}{}, nil
}

func (s *Server) handleShutdown(ctx context.Context, params json.RawMessage) (any, error) {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	return struct{}{}, nil
}

func (s *Server) handleToolsCall(ctx context.Context, params json.RawMessage) (any, error) {
	var call struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &call); err != nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrInvalidParams, Message: "invalid tools/call parameters: " + err.Error()}
	}
	logger.Info("Tool call requested for:", call.Name)

	s.mu.Lock()
	handler := s.handlers[call.Name]
	if handler == nil {
		handler = s.handlers[strings.TrimPrefix(call.Name, ToolPrefix)]
	}
	s.mu.Unlock()
	if handler == nil {
		return nil, &protocol.JsonRpcError{Code: protocol.ErrMethodNotFound, Message: "tool not found: " + call.Name}
	}

	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	result, err := handler(ctx, call.Arguments)
	if err != nil {
		return nil, fmt.Errorf("tool execution failed: %v", err)
	}
	return result, nil
}
