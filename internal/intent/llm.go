package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// RefinerConfig holds the OpenRouter settings for LLM-assisted parsing.
type RefinerConfig struct {
	OpenRouterAPIKey string
	// Model name as understood by OpenRouter, e.g. "openai/gpt-4.1-mini".
	Model string

	Logger *logrus.Logger
}

// Refiner turns free-form swap requests into structured intents using an LLM.
// It is the fallback for commands the regex parser cannot handle.
type Refiner struct {
	llm    llms.Model
	logger *logrus.Logger
}

// NewRefiner initialises an LLM backed by OpenRouter (OpenAI-compatible API).
func NewRefiner(cfg RefinerConfig) (*Refiner, error) {
	if cfg.OpenRouterAPIKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY is required")
	}
	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4.1-mini"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	llm, err := openai.New(
		openai.WithToken(cfg.OpenRouterAPIKey),
		openai.WithBaseURL("https://openrouter.ai/api/v1"),
		openai.WithModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenRouter LLM: %w", err)
	}

	return &Refiner{llm: llm, logger: cfg.Logger}, nil
}

// Refine asks the LLM to express the command as a structured intent. The
// returned intent is validated before being handed back.
func (r *Refiner) Refine(ctx context.Context, command string) (*Intent, error) {
	prompt := fmt.Sprintf(`
You are a parser for token swap requests.

Convert the user's request into a single JSON object with these fields:
  - direction: "exact_input" (user fixes the amount sold) or "exact_output" (user fixes the amount bought)
  - token_in: symbol of the token the user sells
  - token_out: symbol of the token the user buys
  - amount_in: integer string, only for exact_input
  - min_amount_out: integer string, optional, only for exact_input
  - amount_out: integer string, only for exact_output
  - amount_in_maximum: integer string, only for exact_output

Rules:
- Output ONLY the JSON object, no explanation and no code fences.
- Token symbols in upper case.
- Amounts are plain integers with no separators.
- If the request is not a swap, output {"error": "<short reason>"}.

User request:
%s
`, command)

	resp, err := llms.GenerateFromSinglePrompt(ctx, r.llm, prompt, llms.WithMaxTokens(256))
	if err != nil {
		return nil, fmt.Errorf("LLM intent parsing failed: %w", err)
	}

	raw := stripCodeFence(resp)
	r.logger.WithField("response", raw).Debug("LLM intent response")

	var payload struct {
		Intent
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("LLM returned invalid JSON: %w", err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("not a swap request: %s", payload.Error)
	}

	intent := payload.Intent
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("LLM produced invalid intent: %w", err)
	}
	return &intent, nil
}

// stripCodeFence removes ``` blocks some models wrap JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSpace(s)
		if strings.HasPrefix(strings.ToLower(s), "json") {
			s = s[4:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
