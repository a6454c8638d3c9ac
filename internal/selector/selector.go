// Package selector decides which connected tool server, if any, is relevant
// to a user query, using a single constrained classification call to the
// completion model.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/nautiluschat/nautilus/internal/schema"
	"github.com/nautiluschat/nautilus/internal/shared/llmutils"
	"github.com/nautiluschat/nautilus/internal/toolserver"
)

// builtinDescriptions is the fixed capability-summary set for the well-known
// servers. A server connected under any other name is only offered to the
// classifier if the user's catalog supplies a description for it.
var builtinDescriptions = map[string]string{
	"filesystem":   "Read, write, and list files and directories on the local machine",
	"slack":        "Send messages and read conversations in Slack workspaces",
	"brave-search": "Search the web for current information",
}

// Selector issues classification calls against an LLMProvider.
type Selector struct {
	provider  schema.LLMProvider
	model     string
	maxTokens int
	extra     map[string]string // catalog-provided descriptions; win over builtins
}

// New returns a Selector. extra maps server names to operator-provided
// capability descriptions and may be nil.
func New(provider schema.LLMProvider, model string, maxTokens int, extra map[string]string) *Selector {
	if maxTokens <= 0 {
		maxTokens = 100
	}
	return &Selector{
		provider:  provider,
		model:     model,
		maxTokens: maxTokens,
		extra:     extra,
	}
}

// Describe returns the capability summary for a server name, or "".
func (s *Selector) Describe(name string) string {
	if d, ok := s.extra[name]; ok && d != "" {
		return d
	}
	return builtinDescriptions[name]
}

// Select returns the name of the server that should handle query, or
// ok=false when no tool server applies.
//
// With zero or one registered server the answer is forced and no model call
// is made; the same holds when no registered server has a capability
// description, since the classifier would have nothing to choose from.
// Otherwise one classification call is issued; a malformed or unknown answer
// degrades to "no server" with a logged warning, since a formatting slip in
// the classifier must never fail the user's query.
func (s *Selector) Select(ctx context.Context, query string, reg *toolserver.Registry) (string, bool) {
	names := reg.Names()
	switch len(names) {
	case 0:
		return "", false
	case 1:
		return names[0], true
	}

	described := make([]string, 0, len(names))
	for _, name := range names {
		if s.Describe(name) != "" {
			described = append(described, name)
		}
	}
	if len(described) == 0 {
		slog.Warn("no registered server has a capability description; answering without tools")
		return "", false
	}

	msgs := schema.NewMessages()
	msgs.AddSystem(s.systemPrompt(described))
	msgs.AddUser(query)

	resp, err := s.provider.Chat(ctx, msgs, nil, schema.NewChatOptions(s.model, s.maxTokens, 0))
	if err != nil {
		slog.Warn("server selection call failed", "err", err)
		return "", false
	}

	content := ""
	if resp.Content != nil {
		content = *resp.Content
	}

	name, err := parseDecision(content)
	if err != nil {
		slog.Warn("malformed server selection", "raw", llmutils.Truncate(content, 120), "err", err)
		return "", false
	}
	if name == "none" {
		return "", false
	}
	if reg.Get(name) == nil {
		slog.Warn("selector chose an unregistered server", "server", name)
		return "", false
	}
	return name, true
}

// systemPrompt lists each described server with its capability summary.
// Servers without a description are omitted; sorted for a stable prompt.
func (s *Selector) systemPrompt(names []string) string {
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("You route user queries to tool servers. Available servers:\n")
	for _, name := range names {
		desc := s.Describe(name)
		if desc == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, desc)
	}
	b.WriteString(`
Reply with exactly one JSON object and nothing else: {"server": "<name>"} choosing the single most relevant server for the user's query, or {"server": "none"} if no server's tools help with it.`)
	return b.String()
}

// parseDecision tolerantly decodes the classifier's answer: an optional
// Markdown code fence around a JSON object {"server": <name>}. Anything
// else is an error; no alternate formats are guessed.
func parseDecision(content string) (string, error) {
	content = llmutils.StripFence(content)

	var decision struct {
		Server string `json:"server"`
	}
	if err := json.Unmarshal([]byte(content), &decision); err != nil {
		return "", fmt.Errorf("decode selection: %w", err)
	}
	if decision.Server == "" {
		return "", fmt.Errorf("selection missing server field")
	}
	return decision.Server, nil
}
