package openai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// summaryFallbackLen bounds the description used when no API key is set.
const summaryFallbackLen = 80

// Client wraps the OpenAI SDK for the assistant's short texts.
type Client struct {
	client *openai.Client
	model  openai.ChatModel
}

// New returns a client. Without apiKey the client answers with local fallbacks.
func New(apiKey string) *Client {
	if apiKey == "" {
		return &Client{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Client{
		client: &client,
		model:  openai.ChatModelGPT4oMini,
	}
}

// Configured reports whether an API key was provided.
func (c *Client) Configured() bool {
	return c != nil && c.client != nil
}

// SummarizeReminder writes a one-sentence description of a reminder message.
func (c *Client) SummarizeReminder(ctx context.Context, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("content cannot be empty")
	}
	if c.client == nil {
		return truncate(content, summaryFallbackLen), nil
	}

	return c.complete(ctx, summarySystemPrompt, "Describe this reminder in one sentence: "+content, 60)
}

// truncate cuts s to at most n runes, marking the cut with "...".
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

const summarySystemPrompt = "You are Claudia, a WhatsApp assistant. Describe reminder messages in one short sentence, in the language of the message."

// complete runs a single system+user chat turn and returns the trimmed answer.
func (c *Client) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Temperature:         openai.Float(0.3),
		MaxCompletionTokens: openai.Int(maxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
