// Package ai is the reasoning engine client. It drives the interactive
// triage session for each finding, the PoC repair endpoint, and the
// execution judge, with every API call routed through the call governor.
package ai

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"massaudit/internal/contextres"
	"massaudit/internal/governor"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Engine talks to the reasoning endpoint.
type Engine struct {
	client           *anthropic.Client
	gov              *governor.Governor
	resolver         *contextres.Resolver
	model            string
	maxContextRounds int
}

// Config holds engine construction parameters.
type Config struct {
	APIKey           string // if empty, read from ANTHROPIC_API_KEY
	Model            string
	Governor         *governor.Governor
	Resolver         *contextres.Resolver
	MaxContextRounds int // context-negotiation rounds per finding (default: 3)
}

// New creates an engine. The governor is mandatory: no path to the
// endpoint may bypass it.
func New(cfg *Config) (*Engine, error) {
	if cfg.Governor == nil {
		return nil, fmt.Errorf("governor is required")
	}
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("context resolver is required")
	}

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
		}
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	rounds := cfg.MaxContextRounds
	if rounds <= 0 {
		rounds = 3
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Engine{
		client:           &client,
		gov:              cfg.Governor,
		resolver:         cfg.Resolver,
		model:            model,
		maxContextRounds: rounds,
	}, nil
}

// callModel sends the accumulated conversation through the governor and
// returns the concatenated text blocks of the reply.
func (e *Engine) callModel(ctx context.Context, project, operation string, messages []anthropic.MessageParam, maxTokens int64) (string, error) {
	start := time.Now()

	var response *anthropic.Message
	err := e.gov.Do(ctx, project, operation, func(attemptCtx context.Context) error {
		resp, apiErr := e.client.Messages.New(attemptCtx, anthropic.MessageNewParams{
			Model:     anthropic.Model(e.model),
			MaxTokens: maxTokens,
			Messages:  messages,
		})
		if apiErr != nil {
			return apiErr
		}
		response = resp
		return nil
	})
	if err != nil {
		return "", err
	}

	var text string
	for _, block := range response.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	fmt.Printf("AI %s call: input=%d tokens, output=%d tokens, duration=%v\n",
		operation, response.Usage.InputTokens, response.Usage.OutputTokens, time.Since(start))

	return text, nil
}

// truncateString shortens s for log lines and prompts.
func truncateString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "... (truncated)"
}
