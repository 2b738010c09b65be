// README: Itinerary service generates a schema-constrained multi-day plan under a hard deadline.
package itinerary

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
)

const op = "generate_itinerary"

// DefaultTimeout bounds one itinerary generation call.
const DefaultTimeout = 60 * time.Second

type Service struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	log     logger.Logger
	timeout time.Duration
}

func NewService(creds ai.CredentialProvider, factory ai.ClientFactory, log logger.Logger, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{creds: creds, factory: factory, log: log, timeout: timeout}
}

func (s *Service) Timeout() time.Duration { return s.timeout }

// BuildPrompt renders the planning instruction.
func BuildPrompt(destination string, dayCount int, preferences string) string {
	prefs := strings.TrimSpace(preferences)
	if prefs == "" {
		prefs = DefaultPreference
	}
	return fmt.Sprintf(
		"Plan a trip to %s for %d days. Preferences: %s. "+
			"Return a list of activities for each day. "+
			"The response must be a strict JSON object. Do not include markdown code blocks.",
		destination, dayCount, prefs)
}

type result struct {
	resp *ai.GenerateResponse
	err  error
}

// GenerateItinerary asks for a dayCount-day plan. The call races the service
// timeout; the loser's context is cancelled. Failures are ai.TimeoutError,
// ai.MalformedResponseError or ai.ProviderError.
func (s *Service) GenerateItinerary(ctx context.Context, destination string, dayCount int, preferences string) (plan *Plan, err error) {
	if strings.TrimSpace(destination) == "" || dayCount < 1 {
		return nil, ErrBadRequest
	}
	start := time.Now()
	defer func() { metrics.ObserveAI(op, start, err) }()

	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		return nil, err
	}

	req := &ai.GenerateRequest{
		Model:            ai.ModelText,
		Prompt:           BuildPrompt(destination, dayCount, preferences),
		ResponseMIMEType: ai.MIMEJSON,
		Schema:           Schema(),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan result, 1)
	go func() {
		resp, err := client.Generate(callCtx, req)
		done <- result{resp: resp, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-callCtx.Done():
		if ctx.Err() != nil {
			return nil, &ai.ProviderError{Op: op, Err: ctx.Err()}
		}
		s.log.Warn("itinerary generation timed out", map[string]interface{}{"destination": destination, "after": s.timeout.String()})
		return nil, &ai.TimeoutError{Op: op, After: s.timeout}
	}

	if r.err != nil {
		if ctx.Err() == nil && callCtx.Err() != nil {
			return nil, &ai.TimeoutError{Op: op, After: s.timeout}
		}
		return nil, &ai.ProviderError{Op: op, Err: r.err}
	}

	parsed, err := ai.DecodeJSON[Plan](op, r.resp.Text, Schema())
	if err != nil {
		s.log.Warn("itinerary response rejected", map[string]interface{}{"destination": destination, "error": err.Error()})
		return nil, err
	}
	s.log.Info("itinerary generated", map[string]interface{}{"destination": destination, "days": len(parsed.Days), "requested": dayCount})
	return &parsed, nil
}
