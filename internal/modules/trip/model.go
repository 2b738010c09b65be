// README: Trip, day and activity records and the repository contract.
package trip

import (
	"context"
	"errors"
	"sort"
	"time"

	"nest/internal/types"
)

var (
	ErrNotFound   = errors.New("trip not found")
	ErrBadRequest = errors.New("bad request")
)

type Status string

const (
	StatusPlanning  Status = "planning"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPlanning, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

// DateLayout is how trip and day dates travel over the API.
const DateLayout = "2006-01-02"

type Trip struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Destination string    `json:"destination"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	CoverImage  string    `json:"cover_image"`
	VideoURL    string    `json:"video_url,omitempty"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Day struct {
	ID         string     `json:"id"`
	TripID     string     `json:"trip_id"`
	Date       time.Time  `json:"date"`
	DayNumber  int        `json:"day_number"`
	Notes      string     `json:"notes,omitempty"`
	Activities []Activity `json:"activities"`
}

type Activity struct {
	ID        string         `json:"id"`
	DayID     string         `json:"day_id"`
	TripID    string         `json:"trip_id"`
	Title     string         `json:"title"`
	Time      string         `json:"time,omitempty"`
	Location  string         `json:"location,omitempty"`
	Cost      float64        `json:"cost"`
	Category  types.Category `json:"category"`
	Notes     string         `json:"notes,omitempty"`
	IsBooked  bool           `json:"is_booked"`
	CreatedAt time.Time      `json:"created_at"`
}

// TripDetail is a trip with its days, ordered by date, and each day's
// activities, ordered by time.
type TripDetail struct {
	Trip
	Days []Day `json:"days"`
}

// ActivityInput is a new activity before it is given ids.
type ActivityInput struct {
	Title    string         `json:"title"`
	Time     string         `json:"time"`
	Location string         `json:"location"`
	Cost     float64        `json:"cost"`
	Category types.Category `json:"category"`
	Notes    string         `json:"notes"`
	IsBooked bool           `json:"is_booked"`
}

// Normalize validates the input and applies the category and cost defaults.
func (in ActivityInput) Normalize() (ActivityInput, error) {
	if in.Title == "" {
		return in, errors.Join(ErrBadRequest, errors.New("activity title is required"))
	}
	if in.Time != "" && !types.ValidClock(in.Time) {
		return in, errors.Join(ErrBadRequest, errors.New("activity time must be HH:MM"))
	}
	in.Category = in.Category.OrOther()
	if in.Cost < 0 {
		in.Cost = 0
	}
	return in, nil
}

// DayDraft is the content of one day before persistence.
type DayDraft struct {
	Notes      string
	Activities []ActivityInput
}

// Repository persists trips. Implementations scope nothing by user; the
// service checks ownership.
type Repository interface {
	// CreateTrip stores the trip, its days and their activities atomically.
	CreateTrip(ctx context.Context, d *TripDetail) error
	GetTrip(ctx context.Context, id string) (*Trip, error)
	ListTrips(ctx context.Context, userID string) ([]Trip, error)
	// ListDays returns the trip's days with activities, sorted.
	ListDays(ctx context.Context, tripID string) ([]Day, error)
	CreateActivity(ctx context.Context, a *Activity) error
	GetActivity(ctx context.Context, id string) (*Activity, error)
	DeleteActivity(ctx context.Context, id string) error
	SetBooked(ctx context.Context, id string, booked bool) error
	UpdateCover(ctx context.Context, tripID, cover string) error
	UpdateStatus(ctx context.Context, tripID string, status Status) error
}

// sortDays orders days by date and activities by time; untimed activities
// go last in insertion order.
func sortDays(days []Day) {
	sort.SliceStable(days, func(i, j int) bool {
		if !days[i].Date.Equal(days[j].Date) {
			return days[i].Date.Before(days[j].Date)
		}
		return days[i].DayNumber < days[j].DayNumber
	})
	for i := range days {
		acts := days[i].Activities
		sort.SliceStable(acts, func(a, b int) bool {
			ta, tb := acts[a].Time, acts[b].Time
			if ta == "" || tb == "" {
				return ta != "" && tb == ""
			}
			return ta < tb
		})
	}
}
