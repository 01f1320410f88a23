// Package classify decides whether a page's text likely describes a
// calendar event. Two interchangeable implementations exist: a
// regex-based heuristic and a model-backed yes/no classification.
package classify

import (
	"context"
	"strings"

	"infracal/internal/ollama"
	"infracal/internal/textscan"

	appLog "infracal/internal/log"
)

// DefaultTruncateLen bounds how much page text the model classifier sends.
const DefaultTruncateLen = 6000

// Classifier reports whether text plausibly contains a calendar event.
// Implementations never return an error: any failure in the model path
// is treated as "not an event".
type Classifier interface {
	IsCalendar(ctx context.Context, text string) bool
}

// Heuristic is the pattern-matching classifier. It is intentionally
// permissive (low precision, high recall) since it pre-filters pages
// before the more expensive extraction step.
type Heuristic struct{}

func (Heuristic) IsCalendar(_ context.Context, text string) bool {
	return textscan.HasEventCue(text)
}

// ChatClient is the model-gateway capability the model classifier needs.
// *ollama.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, system, user string, opts ollama.Options) (string, error)
}

// Model delegates classification to a chat model constrained to answer
// exactly "true" or "false".
type Model struct {
	chat        ChatClient
	truncateLen int
}

// NewModel constructs a model-backed classifier. truncateLen <= 0 means
// DefaultTruncateLen.
func NewModel(chat ChatClient, truncateLen int) *Model {
	if truncateLen <= 0 {
		truncateLen = DefaultTruncateLen
	}
	return &Model{chat: chat, truncateLen: truncateLen}
}

const classifySystemPrompt = "You are a strict classifier. " +
	"Decide whether the following text describes a calendar event " +
	"(something with a date, time, or schedule a person could attend). " +
	"Answer true only if you could quote a substring of the text that mentions " +
	"a concrete date, time, or event. " +
	"Respond with exactly one word: true or false. No punctuation, no explanation."

// IsCalendar sends the first truncateLen characters of text to the model
// and accepts only a literal "true" reply (after trimming and
// lowercasing). Transport errors and any other reply yield false.
func (m *Model) IsCalendar(ctx context.Context, text string) bool {
	if text == "" {
		return false
	}
	text = textscan.Truncate(text, m.truncateLen)

	resp, err := m.chat.Chat(ctx, classifySystemPrompt, text, ollama.Options{NumPredict: 10})
	if err != nil {
		appLog.Error("model classify failed", err)
		return false
	}
	return strings.ToLower(strings.TrimSpace(resp)) == "true"
}
