// Package agent drives user queries through the completion model: server
// selection, the tool-call relay loop, and the chat session lifecycle.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/nautiluschat/nautilus/internal/schema"
	"github.com/nautiluschat/nautilus/internal/shared/llmutils"
	"github.com/nautiluschat/nautilus/internal/toolserver"
)

// Options configures the engine's completion-model calls.
type Options struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// ServerSelector decides which connected tool server should handle a query.
type ServerSelector interface {
	Select(ctx context.Context, query string, reg *toolserver.Registry) (string, bool)
}

// Engine resolves one user query at a time. The transcript it builds is
// local to each Run call; nothing carries over to the next query.
type Engine struct {
	provider schema.LLMProvider
	selector ServerSelector
	opts     Options
}

// NewEngine returns an Engine using provider for all completion calls.
func NewEngine(provider schema.LLMProvider, selector ServerSelector, opts Options) *Engine {
	return &Engine{provider: provider, selector: selector, opts: opts}
}

// Run resolves query to a final answer. A tool invocation failure is the
// query's failure: tool side effects may not be idempotent, so nothing here
// retries. The caller reports the error and keeps its loop running.
func (e *Engine) Run(ctx context.Context, query string, reg *toolserver.Registry) (string, error) {
	log := slog.With("query_id", uuid.NewString()[:8])

	server, ok := e.selector.Select(ctx, query, reg)
	if !ok {
		log.Info("answering without tools")
		return e.runPlain(ctx, query)
	}

	conn := reg.Get(server)
	if conn == nil {
		// The selector validates against the registry; this is a
		// programming error, not a user-visible one.
		return "", fmt.Errorf("selected server %q not registered", server)
	}
	log.Info("tool server selected", "server", server)

	return e.runToolTurn(ctx, log, query, conn)
}

// runPlain issues a single completion call with no tool definitions; its
// text is the final answer.
func (e *Engine) runPlain(ctx context.Context, query string) (string, error) {
	transcript := schema.NewMessages(schema.NewUserMessage(query))

	resp, err := e.chat(ctx, transcript, nil)
	if err != nil {
		return "", err
	}
	return responseText(resp), nil
}

// runToolTurn sends the query with the server's tool definitions attached,
// relays every tool invocation the model requests, then issues one follow-up
// call over the updated transcript. The answer concatenates, in emission
// order: the model's accompanying text, one indicator line per tool call,
// and the follow-up text.
func (e *Engine) runToolTurn(ctx context.Context, log *slog.Logger, query string, conn *toolserver.Connection) (string, error) {
	transcript := schema.NewMessages(schema.NewUserMessage(query))

	resp, err := e.chat(ctx, transcript, schema.Definitions(conn.Tools()))
	if err != nil {
		return "", err
	}
	if !resp.HasToolCalls() {
		return responseText(resp), nil
	}
	log.Info("tool calls requested", "hint", llmutils.ToolHint(resp.ToolCalls))

	var fragments []string
	if text := responseText(resp); text != "" {
		fragments = append(fragments, text)
	}

	toolCalls := make([]schema.ToolCall, 0, len(resp.ToolCalls))
	for _, tc := range resp.ToolCalls {
		toolCalls = append(toolCalls, schema.ToolCall{ID: tc.ID, Name: tc.Name, Arguments: tc.Arguments})
	}
	transcript.AddAssistant(resp.Content, toolCalls)

	for _, tc := range resp.ToolCalls {
		argsJSON, _ := json.Marshal(tc.Arguments)
		log.Info("tool call", "server", conn.Name(), "tool", tc.Name, "args", llmutils.Truncate(string(argsJSON), 200))
		fragments = append(fragments, fmt.Sprintf("[Calling tool %s with args %s]", tc.Name, argsJSON))

		result, err := conn.CallTool(ctx, tc.Name, tc.Arguments)
		if err != nil {
			return "", err
		}
		transcript.AddToolResult(tc.ID, tc.Name, result)
	}

	followUp, err := e.chat(ctx, transcript, nil)
	if err != nil {
		return "", err
	}
	if text := responseText(followUp); text != "" {
		fragments = append(fragments, text)
	}

	return strings.Join(fragments, "\n"), nil
}

func (e *Engine) chat(ctx context.Context, transcript schema.Messages, tools []map[string]any) (schema.LLMResponse, error) {
	resp, err := e.provider.Chat(ctx, transcript, tools,
		schema.NewChatOptions(e.opts.Model, e.opts.MaxTokens, e.opts.Temperature))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("completion call: %w", err)
	}
	return resp, nil
}

func responseText(resp schema.LLMResponse) string {
	if resp.Content == nil {
		return ""
	}
	return strings.TrimSpace(llmutils.StripThink(*resp.Content))
}
