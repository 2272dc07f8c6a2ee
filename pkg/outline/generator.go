// Package outline drafts course descriptions with the Gemini API.
package outline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// ErrEmptyOutline is returned when the model answers without text.
var ErrEmptyOutline = errors.New("model returned no outline")

// Generator asks a Gemini model for a short course outline.
type Generator struct {
	models  *genai.Models
	model   string
	timeout time.Duration
}

// NewGenerator builds a Generator against the Gemini Developer API.
func NewGenerator(ctx context.Context, apiKey, model string, timeout time.Duration) (*Generator, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("outline: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("outline: create client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Generator{models: client.Models, model: model, timeout: timeout}, nil
}

// CourseOutline returns a one-paragraph description and three suggested modules for topic.
func (g *Generator) CourseOutline(ctx context.Context, topic string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(Prompt(topic)), nil)
	if err != nil {
		return "", fmt.Errorf("outline: generate: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyOutline
	}
	return text, nil
}

// Prompt is the instruction sent for topic.
func Prompt(topic string) string {
	return fmt.Sprintf(`Crie um esboço curto e atraente para um curso sobre "%s".
O público alvo são afiliados vendendo receitas.
Retorne APENAS um texto com:
1. Uma descrição chamativa de 1 parágrafo.
2. Uma lista de 3 módulos sugeridos com nomes criativos.
Use um tom profissional, inspirador e rico, focado em vendas e gastronomia.`, strings.TrimSpace(topic))
}
