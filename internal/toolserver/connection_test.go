package toolserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type echoArgs struct {
	Message string `json:"message"`
}

// startEchoServer runs an in-memory MCP server with a single echo tool and
// returns the client-side transport.
func startEchoServer(t *testing.T) mcp.Transport {
	t.Helper()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	server := mcp.NewServer(
		&mcp.Implementation{Name: "echo-server", Version: "1.0.0"},
		nil,
	)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "echo",
		Description: "Echoes the input message",
	}, func(ctx context.Context, req *mcp.CallToolRequest, args echoArgs) (*mcp.CallToolResult, any, error) {
		if args.Message == "fail" {
			return &mcp.CallToolResult{
				IsError: true,
				Content: []mcp.Content{&mcp.TextContent{Text: "echo refused"}},
			}, nil, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: "echo: " + args.Message}},
		}, nil, nil
	})

	go func() {
		_, _ = server.Connect(context.Background(), serverTransport, nil)
	}()

	return clientTransport
}

func TestConnectTransport_DiscoversTools(t *testing.T) {
	ctx := context.Background()
	conn, err := ConnectTransport(ctx, "echo", startEchoServer(t))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	if conn.Name() != "echo" {
		t.Errorf("unexpected name: %q", conn.Name())
	}
	tools := conn.Tools()
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("unexpected tools: %+v", tools)
	}
	if tools[0].Description == "" {
		t.Error("expected tool description to be discovered")
	}
	if !conn.HasTool("echo") || conn.HasTool("other") {
		t.Error("HasTool misreports the discovered set")
	}
}

func TestConnection_CallTool(t *testing.T) {
	ctx := context.Background()
	conn, err := ConnectTransport(ctx, "echo", startEchoServer(t))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	out, err := conn.CallTool(ctx, "echo", map[string]any{"message": "hello"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if out != "echo: hello" {
		t.Errorf("unexpected result: %q", out)
	}
}

func TestConnection_CallToolError(t *testing.T) {
	ctx := context.Background()
	conn, err := ConnectTransport(ctx, "echo", startEchoServer(t))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer conn.Close()

	if _, err := conn.CallTool(ctx, "echo", map[string]any{"message": "fail"}); err == nil {
		t.Fatal("expected error for IsError result")
	} else if !strings.Contains(err.Error(), "echo refused") {
		t.Errorf("error should carry the server's message: %v", err)
	}

	if _, err := conn.CallTool(ctx, "missing", nil); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestConnect_MissingEnvFailsBeforeSpawn(t *testing.T) {
	t.Setenv("NAUTILUS_TEST_TOKEN", "")

	// The command is deliberately bogus: if validation ran after spawn this
	// would surface as a ConnectionError instead.
	_, err := Connect(context.Background(), "secured", LaunchSpec{
		Command:     "/nonexistent/tool-server",
		RequiredEnv: []string{"NAUTILUS_TEST_TOKEN"},
	})
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
	if !strings.Contains(cfgErr.Reason, "NAUTILUS_TEST_TOKEN") {
		t.Errorf("expected missing variable named in error, got %q", cfgErr.Reason)
	}
}

func TestConnect_InvalidDirFailsBeforeSpawn(t *testing.T) {
	spec := FilesystemSpec("/nonexistent/dir/for/test")
	_, err := Connect(context.Background(), spec.Name, spec.Spec)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T: %v", err, err)
	}
}

func TestConnect_LaunchFailure(t *testing.T) {
	_, err := Connect(context.Background(), "broken", LaunchSpec{
		Command: "/nonexistent/tool-server",
	})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected ConnectionError, got %T: %v", err, err)
	}
	if connErr.Server != "broken" {
		t.Errorf("unexpected server in error: %q", connErr.Server)
	}
}
