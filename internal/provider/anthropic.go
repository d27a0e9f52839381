package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// NewAnthropicClient returns a client; the API key is read from ANTHROPIC_API_KEY unless opts override it.
func NewAnthropicClient(opts ...option.RequestOption) *anthropic.Client {
	c := anthropic.NewClient(opts...)
	return &c
}

const DefaultModel = anthropic.ModelClaude3_7SonnetLatest

// resolverMaxTokens bounds the answer to a single list entry.
const resolverMaxTokens = 256

// AnthropicCompleter answers single prompts through the Messages API.
type AnthropicCompleter struct {
	Client *anthropic.Client
	Model  anthropic.Model
}

// NewAnthropicCompleter returns a completer using model, or DefaultModel when empty.
func NewAnthropicCompleter(client *anthropic.Client, model string) *AnthropicCompleter {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultModel
	}
	return &AnthropicCompleter{Client: client, Model: m}
}

// Complete sends prompt as one user message at temperature 0 and joins the text blocks of the reply.
func (c *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := c.Client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.Model,
		MaxTokens:   resolverMaxTokens,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}
	var parts []string
	for _, b := range msg.Content {
		if tb, ok := b.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	if len(parts) == 0 {
		return "", errors.New("anthropic completion: no text in response")
	}
	return strings.Join(parts, ""), nil
}
