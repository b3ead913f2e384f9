package generate

import (
	"context"
	"time"
)

// Params carries the fixed-but-configurable generation parameters (§4.11).
type Params struct {
	Temperature float64
	TopP        float64
	TopK        int
	Timeout     time.Duration
	Model       string
}

// DefaultParams returns the spec's generation defaults.
func DefaultParams(model string) Params {
	return Params{Temperature: 0.7, TopP: 0.9, TopK: 40, Timeout: 30 * time.Second, Model: model}
}

// Generator is the common interface over the OpenAI and Anthropic backends;
// streaming is never used (§4.11).
type Generator interface {
	Generate(ctx context.Context, messages []Message, params Params) (string, error)
}
