package vision

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/tmc/langchaingo/llms"

	"github.com/ironsheep/bubble-tracer/internal/config"
)

func TestParseReading(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		observed string
		matches  bool
		conf     float64
		wantErr  bool
	}{
		{
			name:     "plain",
			reply:    `{"observedDimension":"R0.06","matches":true,"confidence":0.92,"notes":"clear"}`,
			observed: "R0.06", matches: true, conf: 0.92,
		},
		{
			name:     "fenced",
			reply:    "```json\n{\"observedDimension\":\" Ø.500 \",\"matches\":false,\"confidence\":0.4}\n```",
			observed: "Ø.500", conf: 0.4,
		},
		{
			name:     "confidence clamped high",
			reply:    `{"observedDimension":"18°","matches":true,"confidence":7}`,
			observed: "18°", matches: true, conf: 1,
		},
		{
			name:  "confidence clamped low",
			reply: `{"observedDimension":"","matches":false,"confidence":-0.5}`,
			conf:  0,
		},
		{name: "empty", reply: "  ", wantErr: true},
		{name: "not json", reply: "I see R0.06", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReading(tt.reply)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", r)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if r.Observed != tt.observed || r.Matches != tt.matches || r.Confidence != tt.conf {
				t.Errorf("got %+v, want observed %q matches %v confidence %v", r, tt.observed, tt.matches, tt.conf)
			}
		})
	}
}

func TestStripCodeFences(t *testing.T) {
	tests := map[string]string{
		"```json\n{}\n```": "{}",
		"```\n{}```":        "{}",
		"  {}  ":            "{}",
		"":                  "",
	}
	for in, want := range tests {
		if got := StripCodeFences(in); got != want {
			t.Errorf("StripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNew_Providers(t *testing.T) {
	ctx := context.Background()

	if _, err := New(ctx, config.Vision{}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("no provider: got %v, want ErrNotConfigured", err)
	}
	if _, err := New(ctx, config.Vision{Provider: "claude-vision"}); err == nil || !strings.Contains(err.Error(), "unknown") {
		t.Errorf("unknown provider: got %v", err)
	}
	if _, err := New(ctx, config.Vision{Provider: "Gemini"}); err == nil {
		t.Error("gemini without a key should fail")
	}
	if _, err := New(ctx, config.Vision{Provider: "azure", APIKey: "k"}); err == nil {
		t.Error("azure without an endpoint should fail")
	}

	v, err := New(ctx, config.Vision{Provider: "openai", APIKey: "test-key", Model: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("openai: %v", err)
	}
	if _, ok := v.(*OpenAI); !ok {
		t.Errorf("openai provider returned %T", v)
	}
}

func TestPrompts(t *testing.T) {
	req := Request{Number: 7, Expected: "R0.06", Size: config.Size{Width: 256, Height: 128}}
	if p := validatePrompt(req); !strings.Contains(p, "Balloon 7") || !strings.Contains(p, `"R0.06"`) || !strings.Contains(p, "256x128") {
		t.Errorf("validate prompt missing fields: %s", p)
	}
	if p := discoverPrompt(req); strings.Contains(p, "R0.06") {
		t.Errorf("discover prompt leaks the table value: %s", p)
	}
}

func TestGeminiResponseHelpers(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: nil},
			{Content: &genai.Content{Parts: []genai.Part{
				&genai.Blob{MIMEType: "image/png"},
				genai.Text(`{"observedDimension":"M6X1.0"}`),
			}}},
		},
		UsageMetadata: &genai.UsageMetadata{PromptTokenCount: 300, CandidatesTokenCount: 20, TotalTokenCount: 320},
	}
	if got := firstText(resp); got != `{"observedDimension":"M6X1.0"}` {
		t.Errorf("firstText = %q", got)
	}
	if got := geminiUsage(resp); got != (Usage{300, 20, 320}) {
		t.Errorf("geminiUsage = %+v", got)
	}
	if firstText(nil) != "" || geminiUsage(nil) != (Usage{}) {
		t.Error("nil response should give zero values")
	}
}

// fakeLLM is a langchaingo model that returns a canned reply.
type fakeLLM struct {
	reply    string
	info     map[string]any
	err      error
	messages []llms.MessageContent
}

func (f *fakeLLM) GenerateContent(_ context.Context, msgs []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = msgs
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply, GenerationInfo: f.info}}}, nil
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, opts ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, opts...)
}

func TestBackoff(t *testing.T) {
	if err := backoff(context.Background(), time.Millisecond); err != nil {
		t.Errorf("uncanceled wait: got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	start := time.Now()
	if err := backoff(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled wait: got %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("canceled wait took %v", elapsed)
	}
}

func TestOpenAI_Validate(t *testing.T) {
	llm := &fakeLLM{
		reply: `{"observedDimension":"R.06","matches":true,"confidence":0.88}`,
		info:  map[string]any{"PromptTokens": 410, "CompletionTokens": 25, "TotalTokens": 435},
	}
	o := NewOpenAIWithModel(llm, 0)

	r, err := o.Validate(context.Background(), Request{Number: 3, Expected: "R0.06", Image: []byte{0x89, 'P', 'N', 'G'}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !r.Matches || r.Observed != "R.06" || r.Confidence != 0.88 {
		t.Errorf("reading: %+v", r)
	}
	if r.Usage != (Usage{410, 25, 435}) {
		t.Errorf("usage: %+v", r.Usage)
	}

	if len(llm.messages) != 2 {
		t.Fatalf("messages: got %d, want system and human", len(llm.messages))
	}
	if llm.messages[0].Role != llms.ChatMessageTypeSystem || llm.messages[1].Role != llms.ChatMessageTypeHuman {
		t.Errorf("roles: %v, %v", llm.messages[0].Role, llm.messages[1].Role)
	}
	bin, ok := llm.messages[1].Parts[0].(llms.BinaryContent)
	if !ok || bin.MIMEType != "image/png" {
		t.Errorf("first human part should be the PNG crop, got %T", llm.messages[1].Parts[0])
	}
}

func TestOpenAI_Errors(t *testing.T) {
	o := NewOpenAIWithModel(&fakeLLM{err: errors.New("rate limited")}, 0)
	if _, err := o.Discover(context.Background(), Request{Number: 1}); err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("transport error not surfaced: %v", err)
	}

	o = NewOpenAIWithModel(&fakeLLM{reply: "no idea"}, 0)
	if _, err := o.Discover(context.Background(), Request{Number: 1}); err == nil {
		t.Error("unparseable reply should fail")
	}
}

func TestUsageAdd(t *testing.T) {
	var total Usage
	total.Add(Usage{100, 10, 110})
	total.Add(Usage{50, 5, 55})
	if total != (Usage{150, 15, 165}) {
		t.Errorf("total = %+v", total)
	}
}
