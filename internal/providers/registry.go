package providers

import "strings"

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	Name           string   // config field name, e.g. "deepseek"
	Keywords       []string // model-name keywords for matching (lowercase)
	DisplayName    string   // shown in diagnostics
	DefaultAPIBase string   // fallback base URL when none is configured
	IsGateway      bool     // routes any model (OpenRouter), keeps "provider/model" names
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// PROVIDERS is the registry. Order = match priority.
var PROVIDERS = []ProviderSpec{
	{
		Name:        "custom",
		DisplayName: "Custom",
	},
	{
		Name:           "openrouter",
		Keywords:       []string{"openrouter"},
		DisplayName:    "OpenRouter",
		DefaultAPIBase: "https://openrouter.ai/api/v1",
		IsGateway:      true,
	},
	{
		Name:           "anthropic",
		Keywords:       []string{"anthropic", "claude"},
		DisplayName:    "Anthropic",
		DefaultAPIBase: "https://api.anthropic.com/v1",
	},
	{
		Name:           "deepseek",
		Keywords:       []string{"deepseek"},
		DisplayName:    "DeepSeek",
		DefaultAPIBase: "https://api.deepseek.com/v1",
	},
	{
		Name:           "groq",
		Keywords:       []string{"groq", "llama"},
		DisplayName:    "Groq",
		DefaultAPIBase: "https://api.groq.com/openai/v1",
	},
	{
		Name:           "openai",
		Keywords:       []string{"openai", "gpt", "o1", "o3"},
		DisplayName:    "OpenAI",
		DefaultAPIBase: "https://api.openai.com/v1",
	},
}

// FindByName returns the spec with the given registry name, or nil.
func FindByName(name string) *ProviderSpec {
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}

// FindByModel returns the first spec whose keywords match the model name, or nil.
func FindByModel(model string) *ProviderSpec {
	modelLower := strings.ToLower(model)
	for i := range PROVIDERS {
		for _, kw := range PROVIDERS[i].Keywords {
			if strings.Contains(modelLower, strings.ToLower(kw)) {
				return &PROVIDERS[i]
			}
		}
	}
	return nil
}
