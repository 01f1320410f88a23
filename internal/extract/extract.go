// Package extract turns raw page text into structured event candidates.
// Two interchangeable strategies implement Extractor: a model-backed
// engine that prompts a chat model for fixed JSON keys, and a heuristic
// engine that works from embedded calendar blocks or date-anchored lines
// when no model is available.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"infracal/internal/model"
	"infracal/internal/normalize"
	"infracal/internal/ollama"
	"infracal/internal/textscan"

	appLog "infracal/internal/log"
)

// DefaultTruncateLen bounds how much page text is sent per extraction
// prompt; it keeps prompt cost and latency predictable.
const DefaultTruncateLen = 4000

// Extractor produces zero or one event candidate from a page. A nil
// candidate with a nil error means "no event found"; transport and
// malformed-output failures are recovered internally so a batch caller
// can always continue with the next page.
type Extractor interface {
	Extract(ctx context.Context, page model.Page) (*model.Event, error)
}

// MultiExtractor is implemented by strategies that can yield several
// candidates per page (one per matched date line).
type MultiExtractor interface {
	ExtractAll(ctx context.Context, page model.Page) ([]*model.Event, error)
}

// ChatClient is the model-gateway capability the model extractor needs.
// *ollama.Client satisfies it.
type ChatClient interface {
	Chat(ctx context.Context, system, user string, opts ollama.Options) (string, error)
}

// Model is the model-backed extraction strategy.
type Model struct {
	chat        ChatClient
	truncateLen int
}

// NewModel constructs a model-backed extractor. truncateLen <= 0 means
// DefaultTruncateLen.
func NewModel(chat ChatClient, truncateLen int) *Model {
	if truncateLen <= 0 {
		truncateLen = DefaultTruncateLen
	}
	return &Model{chat: chat, truncateLen: truncateLen}
}

// extractSystemPrompt constrains the model to a fixed nine-key JSON
// object and anchors relative years to the current year or the next.
func extractSystemPrompt(currentYear int) string {
	return "You are a strict information extraction engine. " +
		"Return ONLY valid JSON. " +
		"Keys must be exactly: summary, description, dtstart, dtend, " +
		"duration, location, url, categories, rrule. " +
		"If a field is not explicitly present in the text, use null. " +
		"Do not infer missing dates or times. " +
		fmt.Sprintf("IMPORTANT: The current year is %d. ", currentYear) +
		fmt.Sprintf("If a date doesn't specify a year, assume it's %d or %d (whichever makes sense for an upcoming event). ", currentYear, currentYear+1) +
		"For dtstart and dtend, include the TIME if mentioned in the text (e.g., '2:00 PM', '14:00'). " +
		"Format date-times as 'YYYY-MM-DD HH:MM' or natural language with time like 'Saturday, February 14, 2026 at 2:00 PM'. " +
		"IMPORTANT: Only include rrule if the text explicitly mentions recurring/repeating events. " +
		"Do NOT add rrule for single one-time events."
}

// Extract prompts the model with the page text and parses the reply into
// a candidate. Any transport error, non-JSON response, or empty object
// yields (nil, nil); the failure is logged, never propagated, so callers
// keep processing remaining pages.
func (m *Model) Extract(ctx context.Context, page model.Page) (*model.Event, error) {
	text := page.PlainText
	if text == "" {
		return nil, nil
	}
	text = textscan.Truncate(text, m.truncateLen)

	user := "Extract event data from the following text.\n\n" + text
	resp, err := m.chat.Chat(ctx, extractSystemPrompt(time.Now().Year()), user,
		ollama.Options{NumPredict: 350, TopP: 0.1})
	if err != nil {
		appLog.Error("model extract failed", err, "page_url", page.URL)
		return nil, nil
	}

	span, ok := jsonSpan(resp)
	if !ok {
		appLog.Debug("model extract: no JSON object in response", "page_url", page.URL)
		return nil, nil
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(span), &data); err != nil {
		appLog.Debug("model extract: malformed JSON", "page_url", page.URL, "err", err.Error())
		return nil, nil
	}

	return candidateFromRaw(data, span, page), nil
}

// jsonSpan locates the first '{' and the last '}' in the reply,
// tolerating commentary the model wraps around the object.
func jsonSpan(s string) (string, bool) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// candidateFromRaw projects the schema-less model output into the fixed
// candidate shape, running every date-shaped field through the
// normalizer. The url field always comes from the page itself: the model
// is not a reliable source of identity.
func candidateFromRaw(data map[string]any, raw string, page model.Page) *model.Event {
	summary := rawString(data["summary"])
	dtstart := rawString(normalize.Date(data["dtstart"]))

	rr := rawString(normalize.RRule(data["rrule"]))
	if rr != "" && !normalize.ValidRRule(rr) {
		appLog.Debug("model extract: dropping unparseable rrule", "rrule", rr, "page_url", page.URL)
		rr = ""
	}

	ev := &model.Event{
		Summary:     summary,
		Description: rawString(data["description"]),
		DTStart:     dtstart,
		DTEnd:       rawString(normalize.Date(data["dtend"])),
		Duration:    normalize.Duration(data["duration"]),
		Location:    rawString(normalize.Location(data["location"])),
		URL:         page.URL,
		Categories:  normalize.Categories(data["categories"]),
		RRule:       rr,
		Raw:         raw,
		Title:       summary,
		Start:       dtstart,
	}
	return ev
}

// rawString renders a loosely-typed extraction value as a trimmed
// string; nil maps to absence.
func rawString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
