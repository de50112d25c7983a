package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"graphmind/backend/pkg/config"
	"graphmind/backend/pkg/logger"
)

// Message is one turn of a completion conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Usage reports token accounting from the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is the provider response consumed by the recognizer.
type Completion struct {
	Content string `json:"content"`
	Usage   Usage  `json:"usage"`
	Model   string `json:"model"`
}

// CompletionClient sends completion requests to the configured provider.
// All providers speak the OpenAI chat API; the provider enum only picks
// the base URL and credentials.
type CompletionClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewCompletionClient builds a client for the provider selected in config.
func NewCompletionClient(cfg *config.Config) *CompletionClient {
	apiKey := cfg.LLMAPIKey
	if apiKey == "" {
		// Local gateways ignore the key but the SDK requires one
		apiKey = "dummy-key"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	switch cfg.LLMProvider {
	case config.ProviderOpenRouter:
		clientConfig.BaseURL = "https://openrouter.ai/api/v1"
	case config.ProviderLocal:
		if cfg.LLMBaseURL != "" {
			clientConfig.BaseURL = cfg.LLMBaseURL + "/v1"
		}
	case config.ProviderOpenAI:
		if cfg.LLMBaseURL != "" {
			clientConfig.BaseURL = cfg.LLMBaseURL
		}
	}

	return &CompletionClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.LLMModel,
		timeout: cfg.LLMTimeout,
		logger:  logger.Named("adapter"),
	}
}

// Model returns the configured model id.
func (c *CompletionClient) Model() string {
	return c.model
}

// Complete sends one completion request with a bounded deadline.
// The deadline keeps a slow provider from stalling the pipeline; the
// caller converts any error into an empty extraction.
func (c *CompletionClient) Complete(ctx context.Context, messages []Message, temperature float64, maxTokens int, systemPrompt string) (*Completion, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if systemPrompt != "" {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	for _, m := range messages {
		chatMessages = append(chatMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    chatMessages,
		Temperature: float32(temperature),
		MaxTokens:   maxTokens,
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Warn("completion request failed",
			zap.Error(err),
			zap.String("model", c.model),
			zap.Duration("elapsed", time.Since(start)),
		)
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	c.logger.Debug("completion generated",
		zap.String("model", resp.Model),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return &Completion{
		Content: resp.Choices[0].Message.Content,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Model: resp.Model,
	}, nil
}
