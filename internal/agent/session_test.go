package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nautiluschat/nautilus/internal/schema"
	"github.com/nautiluschat/nautilus/internal/toolserver"
)

func inMemoryConnection(t *testing.T, name string) *toolserver.Connection {
	t.Helper()

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	server := mcp.NewServer(&mcp.Implementation{Name: name, Version: "1.0.0"}, nil)
	go func() {
		_, _ = server.Connect(context.Background(), serverTransport, nil)
	}()

	conn, err := toolserver.ConnectTransport(context.Background(), name, clientTransport)
	if err != nil {
		t.Fatalf("connect %s: %v", name, err)
	}
	return conn
}

func TestConnectAll_FailureLeavesOthersUsable(t *testing.T) {
	fp := &scriptedProvider{t: t}
	engine := NewEngine(fp, fixedSelector{}, Options{Model: "m", MaxTokens: 1000})
	session := NewSession(engine)
	session.connect = func(ctx context.Context, name string, spec toolserver.LaunchSpec) (*toolserver.Connection, error) {
		if name == "slack" {
			return nil, &toolserver.ConfigError{Server: name, Reason: "SLACK_BOT_TOKEN is not set"}
		}
		return inMemoryConnection(t, name), nil
	}

	session.ConnectAll(context.Background(), []toolserver.NamedSpec{
		toolserver.SlackSpec(),
		toolserver.FilesystemSpec(t.TempDir()),
	})
	defer session.Close()

	reg := session.Registry()
	if reg.Len() != 1 {
		t.Fatalf("expected 1 registered server, got %d", reg.Len())
	}
	if reg.Get("filesystem") == nil {
		t.Error("filesystem should survive the slack failure")
	}
	if reg.Get("slack") != nil {
		t.Error("slack must not be registered after a failed connect")
	}
}

func TestConnectAll_AllFailuresDegrade(t *testing.T) {
	fp := &scriptedProvider{t: t}
	engine := NewEngine(fp, fixedSelector{}, Options{Model: "m", MaxTokens: 1000})
	session := NewSession(engine)
	session.connect = func(ctx context.Context, name string, spec toolserver.LaunchSpec) (*toolserver.Connection, error) {
		return nil, errors.New("spawn failed")
	}

	session.ConnectAll(context.Background(), toolserver.DefaultSpecs())
	defer session.Close()

	if session.Registry().Len() != 0 {
		t.Fatalf("expected empty registry, got %d", session.Registry().Len())
	}

	// Plain chat still works with nothing connected.
	fp.responses = append(fp.responses, text("still here"))
	answer, err := session.Ask(context.Background(), "hello")
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if answer != "still here" {
		t.Errorf("unexpected answer: %q", answer)
	}
}

// blockingProvider parks its first Chat call until release is closed.
type blockingProvider struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProvider) Chat(context.Context, schema.Messages, []map[string]any, schema.ChatOptions) (schema.LLMResponse, error) {
	close(p.started)
	<-p.release
	return text("done"), nil
}

func (p *blockingProvider) DefaultModel() string { return "blocking" }

func TestClose_WaitsForInFlightQuery(t *testing.T) {
	fp := &blockingProvider{started: make(chan struct{}), release: make(chan struct{})}
	engine := NewEngine(fp, fixedSelector{}, Options{Model: "m", MaxTokens: 1000})
	session := NewSession(engine)

	askDone := make(chan struct{})
	go func() {
		_, _ = session.Ask(context.Background(), "hello")
		close(askDone)
	}()
	<-fp.started

	closeDone := make(chan struct{})
	go func() {
		_ = session.Close()
		close(closeDone)
	}()

	select {
	case <-closeDone:
		t.Fatal("Close returned while a query was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(fp.release)
	<-askDone
	<-closeDone
}

func TestSession_CloseIdempotent(t *testing.T) {
	fp := &scriptedProvider{t: t}
	engine := NewEngine(fp, fixedSelector{}, Options{Model: "m", MaxTokens: 1000})
	session := NewSession(engine)
	session.connect = func(ctx context.Context, name string, spec toolserver.LaunchSpec) (*toolserver.Connection, error) {
		return inMemoryConnection(t, name), nil
	}

	session.ConnectAll(context.Background(), []toolserver.NamedSpec{
		toolserver.FilesystemSpec(t.TempDir()),
	})

	if err := session.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := session.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if session.Registry().Len() != 0 {
		t.Errorf("registry should be empty after close, got %d", session.Registry().Len())
	}
}
