package toolserver

import (
	"fmt"
	"os"
)

// LaunchSpec describes how to start one tool-server process.
type LaunchSpec struct {
	Command     string
	Args        []string
	Env         map[string]string // extra environment for the child process
	RequiredEnv []string          // parent env vars forwarded; a missing one aborts before spawn
	Dir         string            // when set, must exist as a directory (filesystem preset)
}

// NamedSpec pairs a registry name with its launch spec.
type NamedSpec struct {
	Name string
	Spec LaunchSpec
}

// SlackSpec returns the launch spec for the Slack tool server.
// Requires SLACK_BOT_TOKEN and SLACK_TEAM_ID in the environment.
func SlackSpec() NamedSpec {
	return NamedSpec{
		Name: "slack",
		Spec: LaunchSpec{
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-slack"},
			RequiredEnv: []string{"SLACK_BOT_TOKEN", "SLACK_TEAM_ID"},
		},
	}
}

// FilesystemSpec returns the launch spec for the filesystem tool server
// rooted at dir. The directory is validated before launch.
func FilesystemSpec(dir string) NamedSpec {
	return NamedSpec{
		Name: "filesystem",
		Spec: LaunchSpec{
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-filesystem", dir},
			Dir:     dir,
		},
	}
}

// BraveSearchSpec returns the launch spec for the Brave web-search tool server.
// Requires BRAVE_API_KEY in the environment.
func BraveSearchSpec() NamedSpec {
	return NamedSpec{
		Name: "brave-search",
		Spec: LaunchSpec{
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-brave-search"},
			RequiredEnv: []string{"BRAVE_API_KEY"},
		},
	}
}

// DefaultSpecs returns the launch specs attempted when no explicit target is
// given on the command line. Each connect attempt is independent; one server
// failing (usually for lack of credentials) never blocks the others.
func DefaultSpecs() []NamedSpec {
	return []NamedSpec{SlackSpec(), BraveSearchSpec()}
}

// validate checks the spec's preconditions: required environment variables
// and, for filesystem-like servers, the target directory. It returns the
// resolved extra environment. Runs entirely before any process is spawned so
// a configuration problem is never conflated with a transport one.
func (s LaunchSpec) validate(server string) (map[string]string, error) {
	env := make(map[string]string, len(s.Env)+len(s.RequiredEnv))
	for k, v := range s.Env {
		env[k] = v
	}
	for _, key := range s.RequiredEnv {
		val := os.Getenv(key)
		if val == "" {
			return nil, &ConfigError{Server: server, Reason: fmt.Sprintf("missing required environment variable %s", key)}
		}
		env[key] = val
	}

	if s.Dir != "" {
		info, err := os.Stat(s.Dir)
		if err != nil || !info.IsDir() {
			return nil, &ConfigError{Server: server, Reason: fmt.Sprintf("directory does not exist: %s", s.Dir)}
		}
	}

	return env, nil
}
