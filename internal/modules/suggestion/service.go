// README: Suggestion service asks the model for grounded activity ideas for one day of a trip.
package suggestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

const op = "suggest_activities"

const temperature = 1.0

// Service produces activity suggestions.
type Service struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	log     logger.Logger
}

func NewService(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{creds: creds, factory: factory, log: log}
}

// SuggestActivities returns Count validated suggestions for req.
// Malformed output is reported as ai.MalformedResponseError, never coerced.
func (s *Service) SuggestActivities(ctx context.Context, req Request) (out []ActivitySuggestion, err error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.ObserveAI(op, start, err) }()

	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		return nil, err
	}

	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model:       ai.ModelText,
		Prompt:      BuildPrompt(req),
		Tools:       []ai.Tool{ai.ToolGoogleSearch},
		Temperature: ai.Float32(temperature),
	})
	if err != nil {
		return nil, &ai.ProviderError{Op: op, Err: err}
	}
	if strings.TrimSpace(resp.Text) == "" {
		s.log.Warn("empty suggestion response", map[string]interface{}{"destination": req.Destination, "day": req.DayNumber})
		return []ActivitySuggestion{}, nil
	}

	out, err = ai.DecodeJSON[[]ActivitySuggestion](op, resp.Text, ResponseSchema)
	if err != nil {
		s.log.Warn("suggestion response rejected", map[string]interface{}{"destination": req.Destination, "error": err.Error()})
		return nil, err
	}
	return out, nil
}

// ExclusionClause lists titles the model must not repeat. It is empty when
// there is nothing to exclude.
func ExclusionClause(titles []string) string {
	if len(titles) == 0 {
		return ""
	}
	return "IMPORTANT: Do NOT suggest the following activities as they are already on the itinerary: " +
		strings.Join(titles, ", ") + "."
}

// BuildPrompt renders the grounded suggestion instruction for req.
func BuildPrompt(req Request) string {
	prefs := strings.TrimSpace(req.Preferences)
	if prefs == "" {
		prefs = DefaultPreference
	}

	var b strings.Builder
	b.WriteString("You are an expert local travel guide planning a trip for a family.\n")
	fmt.Fprintf(&b, "Destination: %s\n", req.Destination)
	fmt.Fprintf(&b, "Date: %s (Day %d of the trip)\n", req.Date, req.DayNumber)
	fmt.Fprintf(&b, "User Preferences: %s\n", prefs)
	if clause := ExclusionClause(req.ExcludedTitles); clause != "" {
		b.WriteString(clause + "\n")
	}
	fmt.Fprintf(&b, `
Suggest %d distinct, high-quality activities for this specific day.

Requirements:
1. REAL PLACES ONLY: use Google Search to confirm each venue exists and is open.
2. Specific names: say "Café de Flore", not "a local café".
3. Logical flow: order the activities so the day makes geographic sense.
4. Family friendly: every activity must suit children.

Return ONLY a JSON array. Each element has these fields:
  "title": string
  "category": one of %s
  "time": 24h "HH:MM"
  "cost": estimated cost per person in USD, a number >= 0
  "location": neighbourhood or address
  "notes": one short sentence on why it fits
Do not wrap the JSON in markdown.`, Count, strings.Join(categoryList(), ", "))
	return b.String()
}

func categoryList() []string {
	names := ResponseSchema.Items.Properties["category"].Enum
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = `"` + n + `"`
	}
	return out
}
