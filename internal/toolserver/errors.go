package toolserver

import "fmt"

// ConfigError indicates a misconfiguration (missing credential, invalid
// path) detected before any process is spawned. Never retried.
type ConfigError struct {
	Server string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tool server %s: %s", e.Server, e.Reason)
}

// ConnectionError indicates a process launch or protocol handshake failure.
// A failed connect registers nothing.
type ConnectionError struct {
	Server string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect tool server %s: %v", e.Server, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }
