// README: Details service looks up grounded facts about an activity and short destination tips.
package details

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/maps"
	"nest/internal/metrics"
)

const (
	Unavailable = "Details unavailable."

	TipNotConfigured = "Have a great trip!"
	TipEmpty         = "Explore the local culture!"
	TipFailed        = "Enjoy your adventure!"
)

type ActivityDetail struct {
	Description  string  `json:"description"`
	Rating       float64 `json:"rating,omitempty"`
	OpeningHours string  `json:"openingHours,omitempty"`
	Website      string  `json:"website,omitempty"`
	PhoneNumber  string  `json:"phoneNumber,omitempty"`
	Address      string  `json:"address,omitempty"`
	BestTime     string  `json:"bestTime,omitempty"`
}

// PlaceLookup resolves a venue to Places data. It may return nil, nil.
type PlaceLookup interface {
	LookupPlace(ctx context.Context, name, location string) (*maps.Place, error)
}

type Service struct {
	creds   ai.CredentialProvider
	factory ai.ClientFactory
	cache   *Cache
	places  PlaceLookup
	log     logger.Logger
}

// NewService wires the details service. cache and places may be nil.
func NewService(creds ai.CredentialProvider, factory ai.ClientFactory, cache *Cache, places PlaceLookup, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{creds: creds, factory: factory, cache: cache, places: places, log: log}
}

func detailsPrompt(title, location string) string {
	return fmt.Sprintf(`Find specific details for the place "%s" in "%s".
Use Google Search to verify the information is current.
Return ONLY a JSON object with these fields:
  "description": two friendly sentences for a family audience
  "rating": average visitor rating out of 5, a number
  "openingHours": typical opening hours
  "website": official website URL
  "phoneNumber": contact phone number
  "address": street address
  "bestTime": best time of day to visit
Leave a field as an empty string when unknown. Do not wrap the JSON in markdown.`, title, location)
}

// ActivityDetails returns grounded facts about an activity. Only a missing
// credential is an error; any other failure yields the Unavailable placeholder.
func (s *Service) ActivityDetails(ctx context.Context, title, location string) (*ActivityDetail, error) {
	const op = "activity_details"
	log := s.log.WithFields(map[string]interface{}{"title": title, "location": location})

	if cached, ok, err := s.cache.Detail(ctx, title, location); err != nil {
		log.Warn("details cache read failed", map[string]interface{}{"error": err.Error()})
	} else if ok {
		return cached, nil
	}

	start := time.Now()
	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		metrics.ObserveAI(op, start, err)
		return nil, err
	}

	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model:       ai.ModelText,
		Prompt:      detailsPrompt(title, location),
		Tools:       []ai.Tool{ai.ToolGoogleSearch},
		Temperature: ai.Float32(0.7),
	})
	if err != nil {
		err = &ai.ProviderError{Op: op, Err: err}
	}
	var detail ActivityDetail
	if err == nil {
		detail, err = ai.DecodeJSON[ActivityDetail](op, resp.Text, nil)
	}
	metrics.ObserveAI(op, start, err)
	if err != nil {
		log.Warn("activity details unavailable", map[string]interface{}{"error": err.Error()})
		metrics.Fallback(op)
		return &ActivityDetail{Description: Unavailable}, nil
	}

	s.enrich(ctx, log, title, location, &detail)
	if err := s.cache.StoreDetail(ctx, title, location, &detail); err != nil {
		log.Warn("details cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return &detail, nil
}

// enrich fills fields the model left empty from Places.
func (s *Service) enrich(ctx context.Context, log logger.Logger, title, location string, d *ActivityDetail) {
	if s.places == nil {
		return
	}
	p, err := s.places.LookupPlace(ctx, title, location)
	if err != nil {
		log.Warn("places lookup failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if p == nil {
		return
	}
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&d.Address, p.Address)
	fill(&d.PhoneNumber, p.Phone)
	fill(&d.Website, p.Website)
	fill(&d.OpeningHours, p.OpeningHours)
	if d.Rating == 0 {
		d.Rating = float64(p.Rating)
	}
}

// QuickTip returns one short family travel tip for destination. It never fails.
func (s *Service) QuickTip(ctx context.Context, destination string) string {
	const op = "quick_tip"

	if tip, ok, err := s.cache.Tip(ctx, destination); err == nil && ok {
		return tip
	}

	start := time.Now()
	client, _, err := ai.Connect(ctx, s.creds, s.factory, op)
	if err != nil {
		metrics.ObserveAI(op, start, err)
		metrics.Fallback(op)
		return TipNotConfigured
	}
	resp, err := client.Generate(ctx, &ai.GenerateRequest{
		Model: ai.ModelLite,
		Prompt: fmt.Sprintf("Give me one single, fascinating, short travel tip or fun fact about %s for a family traveler. Under 30 words.",
			destination),
	})
	if err != nil {
		err = &ai.ProviderError{Op: op, Err: err}
	}
	metrics.ObserveAI(op, start, err)
	if err != nil {
		s.log.Warn("quick tip failed", map[string]interface{}{"destination": destination, "error": err.Error()})
		metrics.Fallback(op)
		return TipFailed
	}

	tip := strings.TrimSpace(resp.Text)
	if tip == "" {
		metrics.Fallback(op)
		return TipEmpty
	}
	if err := s.cache.StoreTip(ctx, destination, tip); err != nil {
		s.log.Warn("tip cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return tip
}
