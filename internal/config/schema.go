// Package config defines the nautilus configuration schema.
//
// The main config is JSON at ~/.nautilus/config.json; the optional tool-server
// catalog is YAML at ~/.nautilus/servers.yaml (see catalog.go).
package config

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey       string            `json:"apiKey"`
	APIBase      string            `json:"apiBase,omitempty"`
	ExtraHeaders map[string]string `json:"extraHeaders,omitempty"`
}

// ProvidersConfig holds credentials for all supported LLM providers.
type ProvidersConfig struct {
	Custom     ProviderConfig `json:"custom"`
	Anthropic  ProviderConfig `json:"anthropic"`
	OpenAI     ProviderConfig `json:"openai"`
	OpenRouter ProviderConfig `json:"openrouter"`
	DeepSeek   ProviderConfig `json:"deepseek"`
	Groq       ProviderConfig `json:"groq"`
}

// ChatConfig holds the per-query completion-model defaults.
type ChatConfig struct {
	Model             string  `json:"model"`
	MaxTokens         int     `json:"maxTokens"`
	Temperature       float64 `json:"temperature"`
	SelectorMaxTokens int     `json:"selectorMaxTokens"`
}

func defaultChatConfig() ChatConfig {
	return ChatConfig{
		Model:             "anthropic/claude-3-5-sonnet-20241022",
		MaxTokens:         1000,
		Temperature:       0.7,
		SelectorMaxTokens: 100,
	}
}

// Config is the root configuration object.
type Config struct {
	Providers ProvidersConfig `json:"providers"`
	Chat      ChatConfig      `json:"chat"`
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		Chat: defaultChatConfig(),
	}
}

// ProviderByName returns the ProviderConfig for a registry name, or nil.
func (c *Config) ProviderByName(name string) *ProviderConfig {
	switch name {
	case "custom":
		return &c.Providers.Custom
	case "anthropic":
		return &c.Providers.Anthropic
	case "openai":
		return &c.Providers.OpenAI
	case "openrouter":
		return &c.Providers.OpenRouter
	case "deepseek":
		return &c.Providers.DeepSeek
	case "groq":
		return &c.Providers.Groq
	}
	return nil
}
