package ai

import (
	"context"
	"strings"
)

const answerSystemPrompt = "You are a helpful assistant. Answer the user's question based only on the following context. " +
	"If the context does not contain enough information, say so. Do not make up facts."

// Generator answers a question from retrieved context with one chat completion.
type Generator struct {
	client  *OpenAICompatibleClient
	binding Binding
	cfg     ChatConfig
}

func NewGenerator(client *OpenAICompatibleClient, binding Binding, apiKey string) (*Generator, error) {
	cfg, err := binding.ChatConfig(apiKey)
	if err != nil {
		return nil, err
	}
	return &Generator{client: client, binding: binding, cfg: cfg}, nil
}

// NewGeneratorWithBaseURL points the generator at a custom endpoint, e.g. a local gateway.
func NewGeneratorWithBaseURL(client *OpenAICompatibleClient, binding Binding, apiKey, baseURL string) *Generator {
	return &Generator{
		client:  client,
		binding: binding,
		cfg:     ChatConfig{BaseURL: baseURL, APIKey: apiKey, Model: binding.Model},
	}
}

func (g *Generator) Generate(ctx context.Context, contextText, question string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: "Context:\n" + contextText + "\n\nQuestion: " + question + "\n\nAnswer:"},
	}
	answer, err := g.client.Complete(ctx, g.cfg, messages)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

func (g *Generator) Provider() string {
	return string(g.binding.Provider) + ":" + g.binding.Model
}

func (g *Generator) Binding() Binding {
	return g.binding
}
