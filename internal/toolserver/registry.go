package toolserver

import "errors"

// Registry maps server names to live connections. It is populated during the
// session's startup phase and read-only afterwards, so no locking is needed:
// the chat driver processes queries strictly one at a time.
type Registry struct {
	conns map[string]*Connection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register stores conn under its name, overwriting any prior entry
// (last connect wins).
func (r *Registry) Register(conn *Connection) {
	r.conns[conn.Name()] = conn
}

// Get returns the connection registered under name, or nil.
func (r *Registry) Get(name string) *Connection {
	return r.conns[name]
}

// Names returns the registered server names. Order is unspecified.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}
	return names
}

// Len returns the number of registered connections.
func (r *Registry) Len() int { return len(r.conns) }

// CloseAll closes every registered connection, continuing past failures,
// and returns the combined error.
func (r *Registry) CloseAll() error {
	var errs []error
	for _, conn := range r.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.conns = make(map[string]*Connection)
	return errors.Join(errs...)
}
