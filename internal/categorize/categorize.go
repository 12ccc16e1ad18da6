// Package categorize assigns topical category names to memory text.
package categorize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Categorizer returns lowercase category names for a memory.
type Categorizer interface {
	Categorize(ctx context.Context, text string) ([]string, error)
}

// Noop never assigns categories. Used when no LLM provider is configured.
type Noop struct{}

func (Noop) Categorize(context.Context, string) ([]string, error) { return nil, nil }

const systemPrompt = `You label personal memories with short topical categories.
Reply with a single JSON object of the form {"categories": ["..."]} and nothing else.
Use one to three lowercase categories such as personal, work, health, travel, food,
preferences, relationships, finance, education, entertainment, technology, shopping,
goals, or a new concise label when none of these fit.`

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// Anthropic categorizes with a Claude model. API failures are retried with
// exponential backoff; malformed replies are not.
type Anthropic struct {
	messages    messageCreator
	model       string
	maxAttempts uint64
	baseBackoff time.Duration
	log         zerolog.Logger
}

func NewAnthropic(apiKey, model string, log zerolog.Logger) *Anthropic {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &Anthropic{
		messages:    &client.Messages,
		model:       model,
		maxAttempts: 3,
		baseBackoff: 2 * time.Second,
		log:         log.With().Str("component", "categorizer").Logger(),
	}
}

func (a *Anthropic) Categorize(ctx context.Context, text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: 256,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(text))},
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = a.baseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = 15 * time.Second
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, a.maxAttempts-1), ctx)

	var categories []string
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		resp, err := a.messages.New(ctx, params)
		if err != nil {
			a.log.Warn().Err(err).Int("attempt", attempt).Msg("categorization request failed")
			return err
		}
		categories, err = parseCategories(replyText(resp))
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, policy)
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func replyText(m *anthropic.Message) string {
	if m == nil {
		return ""
	}
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// parseCategories extracts {"categories": [...]} from a model reply, tolerating
// surrounding prose or code fences. Names are trimmed, lowercased and deduplicated.
func parseCategories(reply string) ([]string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end < start {
		return nil, errors.New("categorize: no JSON object in reply")
	}
	var body struct {
		Categories []string `json:"categories"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &body); err != nil {
		return nil, fmt.Errorf("categorize: decode reply: %w", err)
	}
	return Normalize(body.Categories), nil
}

// Normalize trims and lowercases names, dropping empties and duplicates.
func Normalize(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
