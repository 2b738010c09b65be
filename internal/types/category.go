// README: Activity category and clock-time value objects shared by suggestion, itinerary and trip modules.
package types

import "regexp"

type Category string

const (
	CategoryFood        Category = "Food"
	CategoryAdventure   Category = "Adventure"
	CategorySightseeing Category = "Sightseeing"
	CategoryRelax       Category = "Relax"
	CategoryTravel      Category = "Travel"
	CategoryOther       Category = "Other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryAdventure,
	CategorySightseeing,
	CategoryRelax,
	CategoryTravel,
	CategoryOther,
}

// CategoryNames is Categories as plain strings, for schema enums.
func CategoryNames() []string {
	out := make([]string, len(Categories))
	for i, c := range Categories {
		out[i] = string(c)
	}
	return out
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// OrOther returns c when valid, otherwise CategoryOther.
func (c Category) OrOther() Category {
	if c.Valid() {
		return c
	}
	return CategoryOther
}

// ClockPattern matches a 24-hour HH:MM time.
const ClockPattern = `^([01][0-9]|2[0-3]):[0-5][0-9]$`

var clockRe = regexp.MustCompile(ClockPattern)

func ValidClock(s string) bool {
	return clockRe.MatchString(s)
}
