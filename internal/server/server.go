// Package server implements the MCP (Model Context Protocol) server for
// the sequential-thinking guidance engine.
//
// This package exposes one primary tool, think, plus read-only
// introspection tools (get_tree, get_guidance, get_health). All
// responses are JSON formatted for consumption by an MCP client over
// stdio transport.
package server

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	guidanceerrors "unified-thinking/internal/guidance/errors"
	"unified-thinking/internal/health"
	"unified-thinking/internal/processor"
	"unified-thinking/internal/types"
)

// Server wires the processor facade to the MCP tool surface.
type Server struct {
	processor *processor.Processor
}

// New creates a Server around an already-wired Processor.
func New(p *processor.Processor) *Server {
	return &Server{processor: p}
}

// RegisterTools registers the guidance engine's tools on mcpServer.
func (s *Server) RegisterTools(mcpServer *mcp.Server) {
	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "think",
		Description: "Submit one sequential-thinking step and receive the engine's next-step guidance",
		InputSchema: mustSchema[types.ThoughtInput](),
	}, s.handleThink)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "get_tree",
		Description: "Read the current thought tree for a session",
		InputSchema: mustSchema[GetTreeRequest](),
	}, s.handleGetTree)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "get_guidance",
		Description: "Recompute the guidance engine's recommendation for a session's current cursor without adding a thought",
		InputSchema: mustSchema[GetGuidanceRequest](),
	}, s.handleGetGuidance)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "get_health",
		Description: "Report the engine's aggregate health and request/thought metrics",
		InputSchema: mustSchema[EmptyRequest](),
	}, s.handleGetHealth)
}

// mustSchema generates a JSON Schema for T at registration time, the
// way the go-sdk's mcp.Tool.InputSchema expects. Registration happens
// once at startup, so a schema-generation failure is a programming
// error worth failing fast on rather than silently serving an
// unconstrained tool.
func mustSchema[T any]() *jsonschema.Schema {
	schema, err := jsonschema.For[T](nil)
	if err != nil {
		panic("server: generate input schema: " + err.Error())
	}
	return schema
}

// EmptyRequest is the request shape for tools that take no parameters.
type EmptyRequest struct{}

// GetTreeRequest is the request shape for get_tree.
type GetTreeRequest struct {
	SessionID string `json:"session_id"`
}

// GetGuidanceRequest is the request shape for get_guidance.
type GetGuidanceRequest struct {
	SessionID string             `json:"session_id"`
	Mode      types.ThinkingMode `json:"mode,omitempty"`
}

// GetHealthResponse wraps the health rollup for JSON serialisation.
type GetHealthResponse struct {
	Status string         `json:"status"`
	Probes []health.Probe `json:"probes"`
}

func (s *Server) handleThink(ctx context.Context, req *mcp.CallToolRequest, input types.ThoughtInput) (*mcp.CallToolResult, *types.Response, error) {
	resp, err := s.processor.ProcessThought(ctx, &input)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (s *Server) handleGetTree(ctx context.Context, req *mcp.CallToolRequest, input GetTreeRequest) (*mcp.CallToolResult, *processor.TreeSnapshot, error) {
	snapshot := s.processor.Tree(input.SessionID)
	if snapshot == nil {
		err := guidanceerrors.Validation("unknown session_id").WithDetails("session_id")
		return errorResult(err), nil, nil
	}
	return &mcp.CallToolResult{Content: toJSONContent(snapshot)}, snapshot, nil
}

func (s *Server) handleGetGuidance(ctx context.Context, req *mcp.CallToolRequest, input GetGuidanceRequest) (*mcp.CallToolResult, *types.Response, error) {
	resp, err := s.processor.Guidance(input.SessionID, input.Mode)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

func (s *Server) handleGetHealth(ctx context.Context, req *mcp.CallToolRequest, input EmptyRequest) (*mcp.CallToolResult, *GetHealthResponse, error) {
	report := s.processor.Health()
	resp := &GetHealthResponse{Status: string(report.Status), Probes: report.Probes}
	return &mcp.CallToolResult{Content: toJSONContent(resp)}, resp, nil
}

// errorResult renders err into the uniform is_error tool-result shape
// (§4.8) rather than surfacing it as an MCP protocol-level error, so
// callers always receive a structured, status-coded body.
func errorResult(err error) *mcp.CallToolResult {
	dispatched := guidanceerrors.Dispatch(err)
	content := make([]mcp.Content, len(dispatched.Content))
	for i, c := range dispatched.Content {
		content[i] = &mcp.TextContent{Text: c.Text}
	}
	return &mcp.CallToolResult{Content: content, IsError: true}
}

// toJSONContent serialises data as a single MCP TextContent block.
func toJSONContent(data any) []mcp.Content {
	jsonData, err := json.Marshal(data)
	if err != nil {
		errData := map[string]string{"error": err.Error()}
		jsonData, _ = json.Marshal(errData)
	}
	return []mcp.Content{&mcp.TextContent{Text: string(jsonData)}}
}
