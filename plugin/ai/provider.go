// Package ai provides the embedding and generative model capabilities
// behind narrow interfaces so the pipeline can substitute fakes in tests.
package ai

import (
	"context"
	"math"
	"time"

	"log/slog"

	"github.com/sashabaranov/go-openai"

	pipeerr "github.com/deskpilot/deskpilot/internal/errors"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Helper constructors for prompt assembly.
func SystemPrompt(content string) Message     { return Message{Role: "system", Content: content} }
func UserMessage(content string) Message      { return Message{Role: "user", Content: content} }
func AssistantMessage(content string) Message { return Message{Role: "assistant", Content: content} }

// Embedder maps text to a fixed-length vector.
// Implementations must be deterministic for identical input within a session.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator produces text from a prompt.
type Generator interface {
	Chat(ctx context.Context, messages []Message, maxTokens int) (string, error)
}

// Config holds the AI provider configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	EmbeddingModel string
	ChatModel      string
	MaxRetries     int
	Timeout        time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:        "https://api.openai.com/v1",
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		MaxRetries:     3,
		Timeout:        30 * time.Second,
	}
}

// Provider implements Embedder and Generator over an OpenAI-compatible API.
type Provider struct {
	client *openai.Client
	config *Config
}

// NewProvider creates a new AI provider.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = "gpt-4o-mini"
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Embed generates an embedding vector for the given text.
// Failure surfaces as ErrEmbeddingUnavailable after retries are exhausted.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	var result []float32
	err := p.doWithRetry(ctx, func(ctx context.Context) error {
		resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(p.config.EmbeddingModel),
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 {
			return pipeerr.InvalidArgument("empty embedding response")
		}
		result = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, pipeerr.EmbeddingUnavailable(err)
	}
	return result, nil
}

// Chat performs a chat completion.
// Failure surfaces as ErrGenerationUnavailable after retries are exhausted.
func (p *Provider) Chat(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func(ctx context.Context) error {
		llmMessages := make([]openai.ChatCompletionMessage, len(messages))
		for i, msg := range messages {
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    msg.Role,
				Content: msg.Content,
			}
		}

		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     p.config.ChatModel,
			Messages:  llmMessages,
			MaxTokens: maxTokens,
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return pipeerr.InvalidArgument("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", pipeerr.GenerationUnavailable(err)
	}
	return result, nil
}

// Validate checks connectivity by issuing a small embedding request.
func (p *Provider) Validate(ctx context.Context) error {
	if p.config.APIKey == "" {
		return pipeerr.InvalidArgument("AI API key is required, set DESKPILOT_AI_API_KEY")
	}
	if _, err := p.Embed(ctx, "test"); err != nil {
		return err
	}
	slog.Info("AI provider validated",
		"embedding_model", p.config.EmbeddingModel,
		"chat_model", p.config.ChatModel)
	return nil
}

// doWithRetry executes a function with a per-attempt timeout and
// exponential backoff between attempts.
func (p *Provider) doWithRetry(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Debug("AI request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", err)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

var (
	_ Embedder  = (*Provider)(nil)
	_ Generator = (*Provider)(nil)
)
