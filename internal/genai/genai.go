// Package genai wraps the OpenAI chat completions API for phrasing
// diagnostic answers in natural language.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vet-eye/serviceflow/internal/models"
)

// ErrNoChoicesReturned indicates the API responded without any completion
// choices.
var ErrNoChoicesReturned = errors.New("no choices returned from completion")

const defaultModel = openai.ChatModelGPT4oMini

// chatService captures the completion call used by Client so tests can swap
// in a mock.
type chatService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Opts holds configurable client settings.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option configures the client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key explicitly.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the completion model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// Client talks to the chat completions endpoint.
type Client struct {
	chat  chatService
	model openai.ChatModel
}

// NewClient creates a client from options, falling back to the
// OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	slog.Debug("GenAI NewClient invoked", "APIKey_set", cfg.APIKey != "", "model", cfg.Model)
	if cfg.APIKey == "" {
		slog.Error("GenAI NewClient missing API key")
		return nil, fmt.Errorf("OpenAI API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}

	api := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: &api.Chat.Completions, model: cfg.Model}, nil
}

// Phrase runs a single system+user completion and returns the assistant text.
func (c *Client) Phrase(ctx context.Context, system, user string, temperature float64, maxTokens int64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:               c.model,
		Temperature:         openai.Float(temperature),
		MaxCompletionTokens: openai.Int(maxTokens),
	}
	resp, err := c.chat.New(ctx, params)
	if err != nil {
		slog.Error("GenAI Phrase completion failed", "error", err)
		return "", fmt.Errorf("completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("GenAI Phrase empty response")
		return "", ErrNoChoicesReturned
	}
	out := resp.Choices[0].Message.Content
	slog.Debug("GenAI Phrase succeeded", "length", len(out))
	return out, nil
}

const analysisSystemPrompt = "Jesteś ekspertem technicznym wsparcia urządzeń ultrasonograficznych Vet-Eye. " +
	"Odpowiadasz po polsku, rzeczowo i uprzejmie. Na podstawie opisu problemu i dopasowanych " +
	"rozwiązań z bazy wiedzy przygotuj dla klienta konkretną propozycję rozwiązania."

// AnalyzeIssue asks the model to turn ranked knowledge-base candidates into a
// customer-facing solution proposal.
func (c *Client) AnalyzeIssue(ctx context.Context, deviceModel, issue string, candidates []models.SolutionCandidate) (string, error) {
	prompt := fmt.Sprintf("Model urządzenia: %s\nOpis problemu: %s\n\nDopasowane rozwiązania:\n%s\n\n"+
		"Przedstaw klientowi najtrafniejsze rozwiązanie krok po kroku.",
		deviceModel, issue, formatSolutions(candidates))

	return c.Phrase(ctx, analysisSystemPrompt, prompt, 0.3, 1000)
}

func formatSolutions(candidates []models.SolutionCandidate) string {
	if len(candidates) == 0 {
		return "Brak dopasowań w bazie wiedzy."
	}
	var b strings.Builder
	for i, cand := range candidates {
		fmt.Fprintf(&b, "Rozwiązanie %d (Trafność: %.0f%%, Typ: %s)\n%s\n\n",
			i+1, cand.Relevance*100, cand.Kind, cand.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}
