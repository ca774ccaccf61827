package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/txview"
)

// DefaultModelName is the Gemini model used when none is configured.
const DefaultModelName = "gemini-2.5-flash"

// Assistant answers questions about a transactions view.
type Assistant interface {
	Answer(ctx context.Context, question string, view txview.View) (string, error)
}

// Generator produces text for a prompt. It is the seam between prompt
// building and the model client.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// PromptAssistant builds a prompt from the view and hands it to a Generator.
type PromptAssistant struct {
	gen Generator
	now func() time.Time
}

// New creates an assistant backed by gen.
func New(gen Generator) *PromptAssistant {
	return &PromptAssistant{gen: gen, now: time.Now}
}

// Answer implements Assistant.
func (a *PromptAssistant) Answer(ctx context.Context, question string, view txview.View) (string, error) {
	prompt, err := BuildPrompt(question, view, a.now())
	if err != nil {
		return "", err
	}

	answer, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("Answer: %w", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", fmt.Errorf("Answer: empty response from model")
	}
	return answer, nil
}

// GeminiGenerator generates text with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator creates a Gemini client. With a project configured it
// targets Vertex AI in that project; otherwise the client reads its
// settings from the GOOGLE_* environment.
func NewGeminiGenerator(ctx context.Context, cfg config.GeminiConfig) (*GeminiGenerator, error) {
	cc := &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	}
	if cfg.Project != "" {
		cc.Backend = genai.BackendVertexAI
		cc.Project = cfg.Project
		cc.Location = cfg.Location
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("NewGeminiGenerator: create genai client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModelName
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// Generate implements Generator.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("Generate: generate content: %w", err)
	}
	return resp.Text(), nil
}

var (
	_ Assistant = (*PromptAssistant)(nil)
	_ Generator = (*GeminiGenerator)(nil)
)
