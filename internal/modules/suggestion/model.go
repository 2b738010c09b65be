// README: Suggestion request/response shapes and the response schema.
package suggestion

import (
	"errors"
	"strings"

	"nest/internal/ai"
	"nest/internal/types"
)

// DefaultPreference is used when the traveller gave no preference text.
const DefaultPreference = "A balanced mix of famous landmarks, local food spots, and relaxing breaks."

// Count is how many activities one call asks for.
const Count = 3

var ErrBadRequest = errors.New("bad suggestion request")

type Request struct {
	Destination    string   `json:"destination"`
	Date           string   `json:"date"`
	DayNumber      int      `json:"day_number"`
	Preferences    string   `json:"preferences,omitempty"`
	ExcludedTitles []string `json:"excluded_titles,omitempty"`
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Destination) == "" || strings.TrimSpace(r.Date) == "" {
		return errors.Join(ErrBadRequest, errors.New("destination and date are required"))
	}
	if r.DayNumber < 1 {
		return errors.Join(ErrBadRequest, errors.New("day_number must be positive"))
	}
	return nil
}

type ActivitySuggestion struct {
	Title    string         `json:"title"`
	Category types.Category `json:"category"`
	Time     string         `json:"time"`
	Cost     float64        `json:"cost"`
	Location string         `json:"location,omitempty"`
	Notes    string         `json:"notes"`
}

var zero = 0.0

// ResponseSchema is what a parsed suggestion payload must satisfy.
var ResponseSchema = &ai.Schema{
	Type: ai.TypeArray,
	Items: &ai.Schema{
		Type:     ai.TypeObject,
		Required: []string{"title", "category", "time", "cost"},
		Properties: map[string]*ai.Schema{
			"title":    {Type: ai.TypeString, Pattern: `\S`},
			"category": {Type: ai.TypeString, Enum: types.CategoryNames()},
			"time":     {Type: ai.TypeString, Pattern: types.ClockPattern},
			"cost":     {Type: ai.TypeNumber, Minimum: &zero},
			"location": {Type: ai.TypeString},
			"notes":    {Type: ai.TypeString},
		},
	},
}

// DemoSuggestions is the canned answer served to the demo account.
func DemoSuggestions() []ActivitySuggestion {
	return []ActivitySuggestion{
		{Title: "Local Café Breakfast", Category: types.CategoryFood, Time: "09:00", Cost: 25, Notes: "Start the day with famous pastries.", Location: "Old Town"},
		{Title: "City Museum Tour", Category: types.CategorySightseeing, Time: "11:00", Cost: 15, Notes: "Family friendly history exhibits.", Location: "Museum District"},
		{Title: "River Boat Cruise", Category: types.CategoryAdventure, Time: "15:00", Cost: 40, Notes: "See the city from the water.", Location: "Pier 4"},
	}
}
