package ai

import (
	"errors"
	"fmt"
	"strings"
)

type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGroq   Provider = "groq"
	ProviderGemini Provider = "gemini"
)

var ErrUnknownProvider = errors.New("unknown llm provider")

type providerEntry struct {
	baseURL      string
	defaultModel string
}

// Every supported provider exposes an OpenAI-compatible chat endpoint.
var providers = map[Provider]providerEntry{
	ProviderOpenAI: {baseURL: "https://api.openai.com/v1", defaultModel: "gpt-4o-mini"},
	ProviderGroq:   {baseURL: "https://api.groq.com/openai/v1", defaultModel: "llama-3.1-8b-instant"},
	ProviderGemini: {baseURL: "https://generativelanguage.googleapis.com/v1beta/openai", defaultModel: "gemini-1.5-flash"},
}

func ParseProvider(raw string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := providers[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
	}
	return p, nil
}

// Binding selects the provider and model used for answer generation.
type Binding struct {
	Provider Provider `json:"provider"`
	Model    string   `json:"model"`
}

// NewBinding validates provider and fills in its default model when model is blank.
func NewBinding(provider, model string) (Binding, error) {
	p, err := ParseProvider(provider)
	if err != nil {
		return Binding{}, err
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = providers[p].defaultModel
	}
	return Binding{Provider: p, Model: model}, nil
}

func (b Binding) ChatConfig(apiKey string) (ChatConfig, error) {
	entry, ok := providers[b.Provider]
	if !ok {
		return ChatConfig{}, fmt.Errorf("%w: %q", ErrUnknownProvider, b.Provider)
	}
	return ChatConfig{BaseURL: entry.baseURL, APIKey: apiKey, Model: b.Model}, nil
}
