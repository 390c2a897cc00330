// Package providers constructs the chat and embedding models docent talks
// to. Configuration is passed in explicitly; this package never reads the
// environment itself.
package providers

import (
	"context"
	"fmt"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"docent/config"
)

// NewChatModel creates the chat completion model named by cfg. The "openai"
// provider covers any OpenAI-compatible endpoint via BaseURL; "gemini" uses
// the Google genai client.
func NewChatModel(ctx context.Context, cfg config.ChatConfig) (model.ToolCallingChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("chat model: %w", config.ErrMissingAPIKey)
	}

	switch cfg.Provider {
	case "", "openai":
		return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
		})
	case "gemini":
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey: cfg.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create genai client: %w", err)
		}
		return geminiModel.NewChatModel(ctx, &geminiModel.Config{
			Client: client,
			Model:  cfg.Model,
		})
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model.
func NewEmbeddingModel(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding model: %w", config.ErrMissingAPIKey)
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
}
