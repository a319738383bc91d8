// Package persona defines the assistant identity used when replying to
// customers: a system prompt plus model knobs the responder feeds to the
// LLM on every turn.
package persona

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"waleads/internal/fsstore"
)

const defaultSystemPrompt = `You are a helpful customer service representative for a business serving customers in Saudi Arabia.
You communicate in Arabic and English. Be professional, friendly, and helpful.
Always respond in the language the customer writes in, and keep responses concise.
When a customer confirms an order or asks to be contacted, begin your reply with a line of the form [LEAD_CONFIRMED: <product or request>].`

// Persona is the voice the responder speaks in.
type Persona struct {
	Name         string  `yaml:"name"`
	SystemPrompt string  `yaml:"system_prompt"`
	Model        string  `yaml:"model"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
}

// Default returns the built-in bilingual customer-service persona.
func Default() Persona {
	return Persona{
		Name:         "assistant",
		SystemPrompt: defaultSystemPrompt,
		Model:        "gpt-4o-mini",
		MaxTokens:    200,
		Temperature:  0.7,
	}
}

// Load reads a persona from a YAML file. Fields left empty in the file
// fall back to the defaults, so a file can override just the prompt.
func Load(path string) (Persona, error) {
	contents, found, err := fsstore.ReadText(path)
	if err != nil {
		return Persona{}, fmt.Errorf("read persona: %w", err)
	}
	if !found {
		return Persona{}, fmt.Errorf("persona file not found: %s", path)
	}

	p := Default()
	if err := yaml.Unmarshal([]byte(contents), &p); err != nil {
		return Persona{}, fmt.Errorf("parse persona: %w", err)
	}
	if strings.TrimSpace(p.SystemPrompt) == "" {
		p.SystemPrompt = defaultSystemPrompt
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = 200
	}
	return p, nil
}
