// Package schema contains the core contracts shared across nautilus packages.
// Concrete implementations live in their respective packages; this package is the
// single canonical source of truth for every shared type definition.
package schema

// ToolDescriptor describes one callable tool discovered from a tool server.
// Immutable once discovered: a server's tool list is fixed at connect time
// and is never re-fetched mid-session.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Definitions converts a discovered tool list to the OpenAI function-calling
// wire format accepted by LLMProvider.Chat.
func Definitions(tools []ToolDescriptor) []map[string]any {
	list := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		params := t.InputSchema
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		list = append(list, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  params,
			},
		})
	}
	return list
}
