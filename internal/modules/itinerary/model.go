// README: Itinerary plan shapes, day-span arithmetic and the schema the model must answer in.
package itinerary

import (
	"errors"
	"math"
	"time"

	"nest/internal/ai"
	"nest/internal/types"
)

var ErrBadRequest = errors.New("bad itinerary request")

// DefaultPreference replaces an empty preference string in the prompt.
const DefaultPreference = "General sightseeing"

type Activity struct {
	Title    string         `json:"title"`
	Time     string         `json:"time"`
	Category types.Category `json:"category"`
	Cost     float64        `json:"cost"`
	Location string         `json:"location,omitempty"`
	Notes    string         `json:"notes,omitempty"`
}

type Day struct {
	DayNumber  int        `json:"day_number"`
	ThemeNote  string     `json:"theme_or_note,omitempty"`
	Activities []Activity `json:"activities"`
}

// Plan is the parsed model answer. Day numbers are not guaranteed to be
// contiguous, unique or in range.
type Plan struct {
	Days []Day `json:"days"`
}

// DayFor returns the first day numbered n, or nil.
func (p *Plan) DayFor(n int) *Day {
	if p == nil {
		return nil
	}
	for i := range p.Days {
		if p.Days[i].DayNumber == n {
			return &p.Days[i]
		}
	}
	return nil
}

// DayCount is the inclusive number of calendar days between start and end, at least 1.
func DayCount(start, end time.Time) int {
	span := end.Sub(start)
	if span < 0 {
		span = -span
	}
	n := int(math.Ceil(span.Hours()/24)) + 1
	if n < 1 {
		return 1
	}
	return n
}

// Schema describes the plan object the model is constrained to.
func Schema() *ai.Schema {
	zero := 0.0
	return &ai.Schema{
		Type:     ai.TypeObject,
		Required: []string{"days"},
		Properties: map[string]*ai.Schema{
			"days": {
				Type: ai.TypeArray,
				Items: &ai.Schema{
					Type:     ai.TypeObject,
					Required: []string{"day_number", "activities"},
					Properties: map[string]*ai.Schema{
						// unbounded: callers skip days outside the trip
						"day_number":    {Type: ai.TypeInteger},
						"theme_or_note": {Type: ai.TypeString},
						"activities": {
							Type: ai.TypeArray,
							Items: &ai.Schema{
								Type:     ai.TypeObject,
								Required: []string{"title", "time", "category"},
								Properties: map[string]*ai.Schema{
									"title":    {Type: ai.TypeString},
									"time":     {Type: ai.TypeString, Description: "24h format HH:MM"},
									"category": {Type: ai.TypeString, Enum: types.CategoryNames()},
									"cost":     {Type: ai.TypeNumber, Minimum: &zero},
									"location": {Type: ai.TypeString},
									"notes":    {Type: ai.TypeString},
								},
							},
						},
					},
				},
			},
		},
	}
}
