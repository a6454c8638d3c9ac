// Package toolserver manages connections to MCP tool-server processes:
// spawning, handshake, tool discovery, invocation, and teardown.
//
// The wire protocol is entirely the SDK's business
// (github.com/modelcontextprotocol/go-sdk); this package owns process and
// session lifetime.
package toolserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nautiluschat/nautilus/internal/schema"
)

// Connection owns exactly one spawned tool-server process and its MCP
// session, from successful connect until Close. The discovered tool list is
// fixed at connect time; there is no re-discovery mid-session.
type Connection struct {
	name    string
	session *mcp.ClientSession
	tools   []schema.ToolDescriptor
}

// Connect validates spec, spawns the server process, performs the protocol
// handshake, and discovers its tools. On any failure nothing is left running
// and nothing should be registered.
func Connect(ctx context.Context, name string, spec LaunchSpec) (*Connection, error) {
	env, err := spec.validate(name)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(spec.Command, spec.Args...)
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	return ConnectTransport(ctx, name, &mcp.CommandTransport{Command: cmd})
}

// ConnectTransport performs the handshake and tool discovery over an
// already-constructed transport. Used directly by tests and for servers
// reachable without a subprocess.
func ConnectTransport(ctx context.Context, name string, transport mcp.Transport) (*Connection, error) {
	client := mcp.NewClient(
		&mcp.Implementation{Name: "nautilus", Version: "0.1.0"},
		nil,
	)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, &ConnectionError{Server: name, Err: err}
	}

	var tools []schema.ToolDescriptor
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			session.Close()
			return nil, &ConnectionError{Server: name, Err: fmt.Errorf("list tools: %w", err)}
		}
		desc := schema.ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
		}
		if m, ok := tool.InputSchema.(map[string]any); ok {
			desc.InputSchema = m
		}
		tools = append(tools, desc)
	}

	slog.Info("tool server connected", "server", name, "tools", len(tools))
	return &Connection{name: name, session: session, tools: tools}, nil
}

// Name returns the connection's registry name.
func (c *Connection) Name() string { return c.name }

// Tools returns the tool list discovered at connect time.
func (c *Connection) Tools() []schema.ToolDescriptor { return c.tools }

// HasTool reports whether the server exposes a tool with the given name.
func (c *Connection) HasTool(name string) bool {
	for _, t := range c.tools {
		if t.Name == name {
			return true
		}
	}
	return false
}

// CallTool invokes a tool on this server with the given arguments and
// returns the result flattened to text. A result the server marks as an
// error, or any transport failure, is returned as an error; callers decide
// whether the query survives.
func (c *Connection) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	if !c.HasTool(name) {
		return "", fmt.Errorf("tool %q not found on server %q", name, c.name)
	}

	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("call tool %s on %s: %w", name, c.name, err)
	}

	text := flattenContent(result)
	if result.IsError {
		return "", fmt.Errorf("tool %s on %s failed: %s", name, c.name, text)
	}
	return text, nil
}

// Close ends the session and with it the server subprocess.
func (c *Connection) Close() error {
	if c.session == nil {
		return nil
	}
	slog.Info("closing tool server", "server", c.name)
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close tool server %s: %w", c.name, err)
	}
	c.session = nil
	return nil
}

// flattenContent joins a tool result's content blocks into one text blob.
// Non-text blocks are rendered as JSON so nothing is silently dropped.
func flattenContent(result *mcp.CallToolResult) string {
	var parts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
			continue
		}
		if b, err := json.Marshal(item); err == nil {
			parts = append(parts, string(b))
		}
	}
	if len(parts) == 0 && result.StructuredContent != nil {
		if b, err := json.Marshal(result.StructuredContent); err == nil {
			parts = append(parts, string(b))
		}
	}
	return strings.Join(parts, "\n")
}
