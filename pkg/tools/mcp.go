package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/openquant/quorum/pkg/errors"
)

// MCPCaller abstracts the subset of an MCP client the provider needs.
type MCPCaller interface {
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// MCPProvider exposes the tools of a connected MCP server.
type MCPProvider struct {
	caller MCPCaller
	tools  map[string]Tool
	names  []string
}

// NewMCPProvider discovers the server's tools and wraps each one.
func NewMCPProvider(ctx context.Context, caller MCPCaller) (*MCPProvider, error) {
	listed, err := caller.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool discovery failed", err)
	}
	p := &MCPProvider{
		caller: caller,
		tools:  make(map[string]Tool, len(listed.Tools)),
	}
	for _, t := range listed.Tools {
		p.tools[t.Name] = &mcpTool{def: t, caller: caller}
		p.names = append(p.names, t.Name)
	}
	return p, nil
}

// Get returns the named tool.
func (p *MCPProvider) Get(name string) (Tool, bool) {
	t, ok := p.tools[name]
	return t, ok
}

// Names returns the discovered tool names.
func (p *MCPProvider) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// mcpTool adapts one MCP tool definition to the Tool interface.
type mcpTool struct {
	def    mcp.Tool
	caller MCPCaller
}

func (t *mcpTool) Name() string        { return t.def.Name }
func (t *mcpTool) Description() string { return t.def.Description }

func (t *mcpTool) Call(ctx context.Context, args map[string]any) (any, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = t.def.Name
	req.Params.Arguments = args

	result, err := t.caller.CallTool(ctx, req)
	if err != nil {
		return nil, errors.New(errors.CodeToolFailure, "mcp tool call failed", err).
			WithAttribute("tool", t.def.Name)
	}
	return mcpResultToOutput(t.def.Name, result)
}

func mcpResultToOutput(toolName string, result *mcp.CallToolResult) (any, error) {
	if result == nil {
		return nil, errors.Newf(errors.CodeToolFailure, "mcp tool %s returned no result", toolName)
	}
	if result.IsError {
		return nil, errors.Newf(errors.CodeToolFailure, "mcp tool %s returned error: %s", toolName, textContent(result.Content)).
			WithAttribute("tool", toolName)
	}
	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}
	if text := textContent(result.Content); text != "" {
		return text, nil
	}
	return result, nil
}

func textContent(items []mcp.Content) string {
	var parts []string
	for _, item := range items {
		switch content := item.(type) {
		case mcp.TextContent:
			parts = append(parts, content.Text)
		case *mcp.TextContent:
			parts = append(parts, content.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// ConnectStdio starts an MCP server subprocess and returns a provider over
// its tools.
func ConnectStdio(ctx context.Context, command string, args []string) (*MCPProvider, func() error, error) {
	stdioClient, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("start mcp subprocess: %w", err)
	}
	provider, err := initMCP(ctx, stdioClient)
	if err != nil {
		_ = stdioClient.Close()
		return nil, nil, err
	}
	return provider, stdioClient.Close, nil
}

func initMCP(ctx context.Context, c *client.Client) (*MCPProvider, error) {
	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "quorum-client",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(initCtx, initRequest); err != nil {
		return nil, fmt.Errorf("initialize mcp connection: %w", err)
	}
	return NewMCPProvider(ctx, c)
}
