package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nautiluschat/nautilus/internal/schema"
)

func TestChatOpenAI_PlainText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", auth)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": "Hello there"}, "finish_reason": "stop"},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-test", ts.URL, "gpt-4o", "openai", nil)

	msgs := schema.NewMessages(schema.NewUserMessage("hi"))
	resp, err := p.Chat(context.Background(), msgs, nil, schema.NewChatOptions("gpt-4o", 100, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content == nil || *resp.Content != "Hello there" {
		t.Errorf("unexpected content: %v", resp.Content)
	}
	if resp.HasToolCalls() {
		t.Error("expected no tool calls")
	}
	if resp.Usage["prompt_tokens"] != 10 {
		t.Errorf("unexpected usage: %v", resp.Usage)
	}
}

func TestChatOpenAI_ToolCalls(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if _, ok := req["tools"]; !ok {
			t.Error("expected tools in request body")
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": nil,
						"tool_calls": []map[string]any{
							{
								"id": "call_1",
								"function": map[string]any{
									"name":      "list_directory",
									"arguments": `{"path": "/tmp"}`,
								},
							},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-test", ts.URL, "gpt-4o", "openai", nil)

	msgs := schema.NewMessages(schema.NewUserMessage("list /tmp"))
	tools := schema.Definitions([]schema.ToolDescriptor{{Name: "list_directory"}})
	resp, err := p.Chat(context.Background(), msgs, tools, schema.NewChatOptions("gpt-4o", 100, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
	}
	tc := resp.ToolCalls[0]
	if tc.ID != "call_1" || tc.Name != "list_directory" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
	if tc.Arguments["path"] != "/tmp" {
		t.Errorf("unexpected arguments: %v", tc.Arguments)
	}
}

func TestChatAnthropic_ToolUse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "sk-ant" {
			t.Errorf("unexpected api key header: %s", key)
		}
		var req map[string]any
		json.NewDecoder(r.Body).Decode(&req)
		if tools, ok := req["tools"].([]any); ok {
			first := tools[0].(map[string]any)
			if _, ok := first["input_schema"]; !ok {
				t.Error("expected input_schema on anthropic tool definition")
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "Let me check."},
				{"type": "tool_use", "id": "toolu_1", "name": "read_file", "input": map[string]any{"path": "a.txt"}},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 20, "output_tokens": 8},
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-ant", ts.URL, "claude-3-5-sonnet-20241022", "anthropic", nil)

	msgs := schema.NewMessages(schema.NewUserMessage("read a.txt"))
	tools := schema.Definitions([]schema.ToolDescriptor{{Name: "read_file"}})
	resp, err := p.Chat(context.Background(), msgs, tools, schema.NewChatOptions("claude-3-5-sonnet-20241022", 1000, 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content == nil || *resp.Content != "Let me check." {
		t.Errorf("unexpected content: %v", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "read_file" {
		t.Fatalf("unexpected tool calls: %+v", resp.ToolCalls)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("expected finish_reason tool_calls, got %q", resp.FinishReason)
	}
}

func TestChatAnthropic_ToolResultRoundTrip(t *testing.T) {
	var gotBody map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "done"}},
			"stop_reason": "end_turn",
		})
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-ant", ts.URL, "claude-3-5-sonnet-20241022", "anthropic", nil)

	text := "Checking now."
	msgs := schema.NewMessages(schema.NewUserMessage("list files"))
	msgs.AddAssistant(&text, []schema.ToolCall{{ID: "toolu_1", Name: "list_directory", Arguments: map[string]any{"path": "/tmp"}}})
	msgs.AddToolResult("toolu_1", "list_directory", "a.txt\nb.txt")

	if _, err := p.Chat(context.Background(), msgs, nil, schema.NewChatOptions("", 100, 0)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wire, _ := gotBody["messages"].([]any)
	if len(wire) != 3 {
		t.Fatalf("expected 3 wire messages, got %d", len(wire))
	}
	last := wire[2].(map[string]any)
	if last["role"] != "user" {
		t.Errorf("tool result should be carried in a user message, got role %v", last["role"])
	}
	blocks := last["content"].([]any)
	block := blocks[0].(map[string]any)
	if block["type"] != "tool_result" || block["tool_use_id"] != "toolu_1" {
		t.Errorf("unexpected tool_result block: %v", block)
	}
}

func TestChat_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	p := NewOpenAIProvider("sk-test", ts.URL, "gpt-4o", "openai", nil)
	msgs := schema.NewMessages(schema.NewUserMessage("hi"))
	if _, err := p.Chat(context.Background(), msgs, nil, schema.NewChatOptions("", 100, 0)); err == nil {
		t.Fatal("expected error on HTTP 429")
	}
}

func TestResolveModel(t *testing.T) {
	p := NewOpenAIProvider("k", "https://example.com", "anthropic/claude-3-5-sonnet-20241022", "anthropic", nil)
	if got := p.resolveModel("anthropic/claude-3-5-sonnet-20241022"); got != "claude-3-5-sonnet-20241022" {
		t.Errorf("expected prefix stripped, got %q", got)
	}

	gw := NewOpenAIProvider("k", "", "anthropic/claude-3-5-sonnet-20241022", "openrouter", nil)
	if got := gw.resolveModel("anthropic/claude-3-5-sonnet-20241022"); got != "anthropic/claude-3-5-sonnet-20241022" {
		t.Errorf("gateway should keep full model name, got %q", got)
	}
}

func TestRepairJSON(t *testing.T) {
	args, err := repairJSON(`{"path": "/tmp"}`)
	if err != nil || args["path"] != "/tmp" {
		t.Errorf("valid JSON should parse: %v %v", args, err)
	}

	if args, _ := repairJSON(""); len(args) != 0 {
		t.Errorf("empty string should yield empty map, got %v", args)
	}
}
