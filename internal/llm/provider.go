// Package llm asks a language model to label gap words with lexicon
// categories. Labels are advisory: they are reported next to an analysis
// and never feed back into coverage or signals.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ppiankov/dhatu/internal/model"
)

// ErrDisallowedLabel is returned when the model answers with a category
// outside the allowlist it was given
var ErrDisallowedLabel = errors.New("label outside the allowed categories")

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Label assigns each requested token one of the allowed categories
	Label(ctx context.Context, req LabelRequest) (*LabelResponse, error)
}

// LabelRequest contains the input for gap labelling
type LabelRequest struct {
	// Tokens are the gap words to label, in report order
	Tokens []string

	// Categories is the STRICT allowlist of labels. UNKNOWN is always allowed.
	Categories []string

	// Model overrides the provider's configured model
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// Label is one token and the category the model assigned it
type Label struct {
	Token    string `json:"token" yaml:"token"`
	Category string `json:"category" yaml:"category"` // An allowed category, or UNKNOWN
}

// LabelResponse contains the model's labels
type LabelResponse struct {
	Labels     []Label `json:"labels" yaml:"labels"`
	Model      string  `json:"model" yaml:"model"`
	TokensUsed int     `json:"tokens_used" yaml:"tokens_used"`
}

// Config holds LLM provider configuration
type Config struct {
	Provider  string // "openai", "ollama", or "" for disabled
	Model     string
	APIKey    string
	BaseURL   string // Custom endpoint (OpenAI-compatible)
	Timeout   time.Duration
	MaxTokens int
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(c model.LLMConfig) Config {
	return Config{
		Provider:  c.Provider,
		Model:     c.Model,
		APIKey:    c.APIKey,
		BaseURL:   c.BaseURL,
		Timeout:   c.Timeout,
		MaxTokens: c.MaxTokens,
	}
}

// BuildPrompt constructs the labelling prompt with the category allowlist
func BuildPrompt(req LabelRequest) string {
	var b strings.Builder

	b.WriteString(`You are helping extend a lexicon of semantic primitives. Each word below was
not matched by any category pattern. For each word, choose the ONE category
it most plausibly expresses.

RULES:
1. You MUST ONLY answer with a category from this list:
`)
	for _, c := range req.Categories {
		fmt.Fprintf(&b, "   - %s\n", c)
	}
	fmt.Fprintf(&b, "   - %s (when no category fits)\n", model.UnknownConcept)
	b.WriteString(`2. Answer with one line per word, exactly "word: CATEGORY".
3. Do not add explanations, numbering or extra words.

Words:
`)
	for _, t := range req.Tokens {
		fmt.Fprintf(&b, "%s\n", t)
	}

	return b.String()
}

// ParseLabels reads "word: CATEGORY" lines from a model answer.
// Words that were not requested are ignored; requested words the model
// skipped are labelled UNKNOWN. Any category outside the allowlist fails
// the whole answer with ErrDisallowedLabel.
func ParseLabels(content string, req LabelRequest) ([]Label, error) {
	allowed := map[string]string{strings.ToUpper(model.UnknownConcept): model.UnknownConcept}
	for _, c := range req.Categories {
		allowed[strings.ToUpper(c)] = c
	}

	requested := make(map[string]bool, len(req.Tokens))
	for _, t := range req.Tokens {
		requested[strings.ToLower(t)] = true
	}

	answers := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
		idx := strings.LastIndex(line, ":")
		if idx <= 0 {
			continue
		}
		token := strings.ToLower(strings.Trim(strings.TrimSpace(line[:idx]), "`\"'"))
		if !requested[token] {
			continue
		}
		label := strings.Trim(strings.TrimSpace(line[idx+1:]), "`\"'.")

		category, ok := allowed[strings.ToUpper(label)]
		if !ok {
			return nil, fmt.Errorf("%w: %q for %q", ErrDisallowedLabel, label, token)
		}
		if _, seen := answers[token]; !seen {
			answers[token] = category
		}
	}

	labels := make([]Label, 0, len(req.Tokens))
	for _, t := range req.Tokens {
		category, ok := answers[strings.ToLower(t)]
		if !ok {
			category = model.UnknownConcept
		}
		labels = append(labels, Label{Token: t, Category: category})
	}
	return labels, nil
}
