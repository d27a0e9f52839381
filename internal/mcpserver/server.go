// Package mcpserver exposes the to-do tools over the Model Context Protocol so
// other agents can manage the same list. It does not run the chat model.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/petasbytes/todo-agent/internal/telemetry"
	"github.com/petasbytes/todo-agent/tools"
)

const Name = "todo-agent"

// New returns an MCP server offering every definition in defs.
func New(defs []tools.ToolDefinition, version string, logger *log.Logger) (*server.MCPServer, error) {
	st, err := ServerTools(defs, logger)
	if err != nil {
		return nil, err
	}
	s := server.NewMCPServer(
		Name,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)
	s.AddTools(st...)
	return s, nil
}

// ServeStdio blocks serving s on stdin/stdout.
func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

// ServerTools adapts tool definitions to MCP tools. Input is validated against
// the same schema the chat model sees.
func ServerTools(defs []tools.ToolDefinition, logger *log.Logger) ([]server.ServerTool, error) {
	if logger == nil {
		logger = log.Default()
	}
	v, err := tools.NewValidator(defs)
	if err != nil {
		return nil, err
	}
	out := make([]server.ServerTool, 0, len(defs))
	for _, d := range defs {
		schema, err := json.Marshal(d.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: encode schema: %w", d.Name, err)
		}
		out = append(out, server.ServerTool{
			Tool:    mcp.NewToolWithRawSchema(d.Name, d.Description, schema),
			Handler: handler(d, v, logger),
		})
	}
	return out, nil
}

func handler(d tools.ToolDefinition, v *tools.Validator, logger *log.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		input, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode arguments: %v", err)), nil
		}
		if err := v.Validate(d.Name, input); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		ctx, _ = telemetry.EnsureTurnID(ctx)
		out, err := d.Function(ctx, input)
		if err != nil {
			logger.Warn("mcp tool failed", "tool", d.Name, "err", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(out), nil
	}
}

const instructions = `This server manages a single user's to-do list stored on disk.
Use add_todo, list_todos, remove_todo and count_todos for exact operations.
Use smart_remove_todo when you only have a loose description of the task to remove.`
