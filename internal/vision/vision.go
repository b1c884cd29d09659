// Package vision adapts vision-language models into the dimension validator
// the capture loop calls.
//
// A validator looks at one capture-box crop and reports what dimension it
// sees, whether that agrees with the tabulated value and how sure it is.
// Gemini is reached through google/generative-ai-go; OpenAI and Azure
// OpenAI deployments through langchaingo.
package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

// ErrNotConfigured is returned by New when no provider is selected.
var ErrNotConfigured = errors.New("vision validator not configured")

// Request is one crop sent for validation.
type Request struct {
	// Number is the balloon number printed in the bubble.
	Number int
	// Expected is the tabulated dimension. Empty for discovery.
	Expected string
	// Image is the PNG-encoded capture-box crop.
	Image []byte
	// Size is the capture step that produced Image.
	Size config.Size
}

// Usage counts model tokens for one call.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add accumulates u into the receiver.
func (u *Usage) Add(o Usage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// Reading is what a validator reports for one crop.
type Reading struct {
	Observed   string  `json:"observedDimension"`
	Matches    bool    `json:"matches"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes,omitempty"`
	Usage      Usage   `json:"-"`
}

// Validator compares capture-box crops against expected dimensions.
type Validator interface {
	// Validate reports whether the crop shows req.Expected.
	Validate(ctx context.Context, req Request) (*Reading, error)
	// Discover reads whatever dimension the crop shows when no table value
	// is known.
	Discover(ctx context.Context, req Request) (*Reading, error)
}

// New returns the validator selected by cfg.Provider.
func New(ctx context.Context, cfg config.Vision) (Validator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "":
		return nil, ErrNotConfigured
	case "gemini":
		return NewGemini(ctx, cfg)
	case "openai", "azure":
		return NewOpenAI(cfg)
	default:
		return nil, fmt.Errorf("unknown vision provider %q", cfg.Provider)
	}
}
