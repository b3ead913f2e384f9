package generate

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"ticketrag/internal/apperr"
)

// AnthropicGenerator implements Generator over the Messages API. It is the
// selectable alternate backend to OpenAIGenerator (§11 domain stack).
type AnthropicGenerator struct {
	client anthropic.Client
}

// NewAnthropic constructs an AnthropicGenerator.
func NewAnthropic(apiKey string) *AnthropicGenerator {
	return &AnthropicGenerator{client: anthropic.NewClient(option.WithAPIKey(apiKey))}
}

func (g *AnthropicGenerator) Generate(ctx context.Context, messages []Message, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	var system string
	var userTurns []anthropic.MessageParam
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		userTurns = append(userTurns, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	maxTokens := int64(1024)
	resp, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(params.Model),
		MaxTokens:   maxTokens,
		System:      []anthropic.TextBlockParam{{Text: system}},
		Messages:    userTurns,
		Temperature: anthropic.Float(params.Temperature),
		TopP:        anthropic.Float(params.TopP),
		TopK:        anthropic.Int(int64(params.TopK)),
	})
	if err != nil {
		kind := apperr.KindUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = apperr.KindUpstreamTimeout
		}
		return "", apperr.Wrap(kind, "anthropic generate", err)
	}
	if len(resp.Content) == 0 {
		return "", apperr.New(apperr.KindUpstreamUnavailable, "anthropic generate: empty response")
	}
	return resp.Content[0].Text, nil
}
