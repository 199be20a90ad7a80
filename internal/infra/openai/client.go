package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"tg-ext-bot/internal/infra/metrics"
)

// ErrEmptyAnswer возвращается, если модель не вернула ни одного варианта.
var ErrEmptyAnswer = errors.New("openai: no response choices")

// Client выполняет Chat Completions запросы.
type Client struct {
	client  *goopenai.Client
	model   string
	timeout time.Duration
}

// NewClient создаёт клиента OpenAI. baseURL позволяет ходить в совместимые API.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if model == "" {
		model = goopenai.GPT4oMini
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{client: goopenai.NewClientWithConfig(cfg), model: model, timeout: timeout}
}

// Model возвращает имя модели.
func (c *Client) Model() string {
	return c.model
}

// Chat отправляет системную инструкцию и сообщение пользователя, возвращает ответ модели.
func (c *Client) Chat(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if systemPrompt != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: systemPrompt})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: userMessage})

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   800,
	})
	metrics.ObserveNetworkRequest("openai", "chat_completions", c.model, start, err)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	metrics.ObserveLLMGeneration(c.model, time.Since(start), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	if len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
