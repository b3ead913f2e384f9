package generate

import (
	"context"
	"errors"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"ticketrag/internal/apperr"
)

// OpenAIGenerator implements Generator over the Chat Completions API.
type OpenAIGenerator struct {
	client openai.Client
}

// NewOpenAI constructs an OpenAIGenerator, optionally against a custom
// (self-hosted / proxy) endpoint.
func NewOpenAI(apiKey, baseURL string) *OpenAIGenerator {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &OpenAIGenerator{client: openai.NewClient(opts...)}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message, params Params) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(m.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(m.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       params.Model,
		Messages:    chatMessages,
		Temperature: openai.Float(params.Temperature),
		TopP:        openai.Float(params.TopP),
	})
	if err != nil {
		kind := apperr.KindUpstreamUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = apperr.KindUpstreamTimeout
		}
		return "", apperr.Wrap(kind, "openai generate", err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindUpstreamUnavailable, "openai generate: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
