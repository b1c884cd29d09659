package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

const (
	defaultOpenAIModel = "gpt-4o"
	defaultAzureAPI    = "2024-12-01-preview"
)

// OpenAI validates crops with an OpenAI-compatible chat model. It also
// serves Azure OpenAI deployments, where the model is the deployment name.
type OpenAI struct {
	llm     llms.Model
	timeout time.Duration
}

// NewOpenAI builds a langchaingo client from cfg.
func NewOpenAI(cfg config.Vision) (*OpenAI, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("openai: API key is empty")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(key),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, openai.WithBaseURL(cfg.Endpoint))
	}
	if strings.EqualFold(cfg.Provider, "azure") {
		if cfg.Endpoint == "" {
			return nil, errors.New("azure: endpoint is required")
		}
		version := cfg.APIVersion
		if version == "" {
			version = defaultAzureAPI
		}
		opts = append(opts, openai.WithAPIType(openai.APITypeAzure), openai.WithAPIVersion(version))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	return NewOpenAIWithModel(llm, cfg.Timeout), nil
}

// NewOpenAIWithModel wraps an existing langchaingo model.
func NewOpenAIWithModel(llm llms.Model, timeout time.Duration) *OpenAI {
	return &OpenAI{llm: llm, timeout: timeout}
}

func (o *OpenAI) Validate(ctx context.Context, req Request) (*Reading, error) {
	return o.generate(ctx, validateSystem, validatePrompt(req), req.Image)
}

func (o *OpenAI) Discover(ctx context.Context, req Request) (*Reading, error) {
	return o.generate(ctx, discoverSystem, discoverPrompt(req), req.Image)
}

func (o *OpenAI) generate(ctx context.Context, system, user string, image []byte) (*Reading, error) {
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	completion, err := o.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(system)},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.BinaryPart("image/png", image),
				llms.TextPart(user),
			},
		},
	}, llms.WithTemperature(0), llms.WithJSONMode())
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(completion.Choices) == 0 {
		return nil, errors.New("openai: no choices in response")
	}

	choice := completion.Choices[0]
	r, err := ParseReading(choice.Content)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	r.Usage = Usage{
		InputTokens:  intInfo(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: intInfo(choice.GenerationInfo, "CompletionTokens"),
		TotalTokens:  intInfo(choice.GenerationInfo, "TotalTokens"),
	}
	return r, nil
}

func intInfo(info map[string]any, key string) int {
	if v, ok := info[key].(int); ok {
		return v
	}
	return 0
}
