// Package dependency wires core nautilus services using go.uber.org/dig.
package dependency

import (
	"fmt"

	"go.uber.org/dig"

	"github.com/nautiluschat/nautilus/internal/agent"
	"github.com/nautiluschat/nautilus/internal/config"
	"github.com/nautiluschat/nautilus/internal/providers"
	"github.com/nautiluschat/nautilus/internal/schema"
	"github.com/nautiluschat/nautilus/internal/selector"
	"github.com/nautiluschat/nautilus/internal/shared/llmutils"
)

// Container holds the resolved core service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	provider schema.LLMProvider
	session  *agent.Session
}

func (c *Container) Provider() schema.LLMProvider { return c.provider }
func (c *Container) Session() *agent.Session      { return c.session }

// LLMModel is a named string type so dig can distinguish it from plain
// strings when injecting the effective model name into services that need it.
type LLMModel string

// New builds and wires all core services from cfg and the server catalog.
func New(cfg *config.Config, catalog *config.Catalog) (*Container, error) {
	d := dig.New()

	if err := d.Provide(func() *config.Config { return cfg }); err != nil {
		return nil, err
	}
	if err := d.Provide(func() *config.Catalog { return catalog }); err != nil {
		return nil, err
	}
	if err := d.Provide(newProvider); err != nil {
		return nil, err
	}
	if err := d.Provide(resolveLLMModel); err != nil {
		return nil, err
	}
	if err := d.Provide(newSelector); err != nil {
		return nil, err
	}
	if err := d.Provide(newEngine); err != nil {
		return nil, err
	}
	if err := d.Provide(newSession); err != nil {
		return nil, err
	}

	var result *Container
	err := d.Invoke(func(provider schema.LLMProvider, session *agent.Session) {
		result = &Container{
			provider: provider,
			session:  session,
		}
	})
	return result, err
}

func newProvider(cfg *config.Config) (schema.LLMProvider, error) {
	model := cfg.Chat.Model
	result := cfg.MatchProvider(model)

	if result.Provider == nil {
		return nil, fmt.Errorf("no API key configured for model %q, edit %s", model, config.ConfigPath())
	}

	apiBase := result.Provider.APIBase
	if apiBase == "" {
		apiBase = cfg.GetAPIBase(model)
	}
	return providers.New(providers.Params{
		APIKey:       result.Provider.APIKey,
		APIBase:      apiBase,
		ExtraHeaders: result.Provider.ExtraHeaders,
		DefaultModel: model,
		ProviderName: result.Name,
	}), nil
}

func resolveLLMModel(cfg *config.Config, p schema.LLMProvider) LLMModel {
	return LLMModel(llmutils.StringOrDefault(cfg.Chat.Model, p.DefaultModel()))
}

func newSelector(cfg *config.Config, catalog *config.Catalog, p schema.LLMProvider, m LLMModel) *selector.Selector {
	extra := make(map[string]string)
	for name, entry := range catalog.Servers {
		if entry.Description != "" {
			extra[name] = entry.Description
		}
	}
	return selector.New(p, string(m), cfg.Chat.SelectorMaxTokens, extra)
}

func newEngine(cfg *config.Config, p schema.LLMProvider, sel *selector.Selector, m LLMModel) *agent.Engine {
	return agent.NewEngine(p, sel, agent.Options{
		Model:       string(m),
		MaxTokens:   cfg.Chat.MaxTokens,
		Temperature: cfg.Chat.Temperature,
	})
}

func newSession(engine *agent.Engine) *agent.Session {
	return agent.NewSession(engine)
}
