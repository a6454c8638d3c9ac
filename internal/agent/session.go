package agent

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nautiluschat/nautilus/internal/toolserver"
)

// Session owns the tool-server connections for one chat run: it connects
// them at startup, routes queries through the engine, and guarantees every
// transport is released exactly once no matter how the run ends.
type Session struct {
	engine   *Engine
	registry *toolserver.Registry

	// connect is swapped for a double in tests.
	connect func(ctx context.Context, name string, spec toolserver.LaunchSpec) (*toolserver.Connection, error)

	// askMu serialises Ask and Close: an interrupt handler closing the
	// session must wait for the in-flight query to return before the
	// registry is torn down.
	askMu     sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewSession returns a Session with an empty registry.
func NewSession(engine *Engine) *Session {
	return &Session{
		engine:   engine,
		registry: toolserver.NewRegistry(),
		connect:  toolserver.Connect,
	}
}

// Registry exposes the connection registry (read-only after ConnectAll).
func (s *Session) Registry() *toolserver.Registry { return s.registry }

// ConnectAll attempts every launch spec. Attempts run concurrently and are
// independent: a failure is logged and skipped, never fatal to the session.
// Registration happens sequentially after all attempts finish, so the
// registry is never written concurrently. With zero servers connected the
// session still works, answering every query without tools.
func (s *Session) ConnectAll(ctx context.Context, specs []toolserver.NamedSpec) {
	conns := make([]*toolserver.Connection, len(specs))

	var g errgroup.Group
	for i, ns := range specs {
		g.Go(func() error {
			conn, err := s.connect(ctx, ns.Name, ns.Spec)
			if err != nil {
				slog.Warn("skipping tool server", "server", ns.Name, "err", err)
				return nil
			}
			conns[i] = conn
			return nil
		})
	}
	_ = g.Wait()

	for _, conn := range conns {
		if conn != nil {
			s.registry.Register(conn)
		}
	}

	if s.registry.Len() == 0 {
		slog.Warn("no tool servers connected; queries will be answered without tools")
	}
}

// Ask resolves one query. Errors are returned for the caller to report;
// they never terminate the session.
func (s *Session) Ask(ctx context.Context, query string) (string, error) {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	return s.engine.Run(ctx, query, s.registry)
}

// Close releases every tool-server transport. Safe to call from any exit
// path, including a signal handler while a query is in flight: it waits for
// that query to return first. Only the first call does the work. Callers
// wanting a prompt shutdown cancel the query's context before closing.
func (s *Session) Close() error {
	s.askMu.Lock()
	defer s.askMu.Unlock()
	s.closeOnce.Do(func() {
		s.closeErr = s.registry.CloseAll()
	})
	return s.closeErr
}
