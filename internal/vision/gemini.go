package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

const defaultGeminiModel = "gemini-1.5-flash"

// Gemini validates crops with a Google Gemini model.
type Gemini struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGemini connects to the Gemini API with cfg.APIKey.
func NewGemini(ctx context.Context, cfg config.Vision) (*Gemini, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("gemini: API key is empty")
	}
	cl, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: cl, model: model, timeout: cfg.Timeout}, nil
}

// Close releases the client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}

func (g *Gemini) Validate(ctx context.Context, req Request) (*Reading, error) {
	return g.generate(ctx, validateSystem, validatePrompt(req), req.Image)
}

func (g *Gemini) Discover(ctx context.Context, req Request) (*Reading, error) {
	return g.generate(ctx, discoverSystem, discoverPrompt(req), req.Image)
}

func (g *Gemini) generate(ctx context.Context, system, user string, image []byte) (*Reading, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	m := g.client.GenerativeModel(g.model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		ResponseMIMEType: "application/json",
	}
	m.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}

	parts := []genai.Part{
		genai.Text(user),
		&genai.Blob{MIMEType: "image/png", Data: image},
	}

	// Retry transient failures.
	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := m.GenerateContent(ctx, parts...)
		if err != nil {
			lastErr = err
			if attempt == 3 || backoff(ctx, time.Duration(attempt)*300*time.Millisecond) != nil {
				break
			}
			continue
		}
		r, err := ParseReading(firstText(resp))
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		r.Usage = geminiUsage(resp)
		return r, nil
	}
	return nil, fmt.Errorf("gemini: %w", lastErr)
}

// backoff waits d, returning early with the context's error when ctx is done.
func backoff(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				return string(t)
			}
		}
	}
	return ""
}

func geminiUsage(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	u := resp.UsageMetadata
	return Usage{
		InputTokens:  int(u.PromptTokenCount),
		OutputTokens: int(u.CandidatesTokenCount),
		TotalTokens:  int(u.TotalTokenCount),
	}
}

func ptrFloat32(v float32) *float32 { return &v }
