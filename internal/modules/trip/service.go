// README: Trip service owns trip CRUD, ownership checks and the day route summary.
package trip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"nest/internal/logger"
	"nest/internal/maps"
)

var ErrRoutesUnavailable = errors.New("route estimates are not configured")

// RoutePlanner estimates driving between stops.
type RoutePlanner interface {
	EstimateRoute(ctx context.Context, stops []string) (*maps.RouteSummary, error)
}

type Service struct {
	repo   Repository
	routes RoutePlanner
	log    logger.Logger
	now    func() time.Time
}

// NewService wires the trip service. routes may be nil.
func NewService(repo Repository, routes RoutePlanner, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Service{repo: repo, routes: routes, log: log, now: time.Now}
}

// NewTrip is a trip about to be created.
type NewTrip struct {
	UserID      string
	Title       string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	CoverImage  string
	VideoURL    string
}

// Create stores t with one day per draft; day i is dated StartDate+i.
func (s *Service) Create(ctx context.Context, t NewTrip, days []DayDraft) (*TripDetail, error) {
	if t.UserID == "" || strings.TrimSpace(t.Destination) == "" || t.Title == "" {
		return nil, ErrBadRequest
	}
	if t.EndDate.Before(t.StartDate) {
		return nil, errors.Join(ErrBadRequest, errors.New("end date before start date"))
	}

	now := s.now().UTC()
	detail := &TripDetail{Trip: Trip{
		ID:          uuid.NewString(),
		UserID:      t.UserID,
		Title:       t.Title,
		Destination: t.Destination,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		CoverImage:  t.CoverImage,
		VideoURL:    t.VideoURL,
		Status:      StatusPlanning,
		CreatedAt:   now,
	}}

	for i, draft := range days {
		day := Day{
			ID:         uuid.NewString(),
			TripID:     detail.ID,
			Date:       t.StartDate.AddDate(0, 0, i),
			DayNumber:  i + 1,
			Notes:      draft.Notes,
			Activities: []Activity{},
		}
		for _, in := range draft.Activities {
			in, err := in.Normalize()
			if err != nil {
				s.log.Warn("skipping invalid activity", map[string]interface{}{"title": in.Title, "error": err.Error()})
				continue
			}
			day.Activities = append(day.Activities, newActivity(detail.ID, day.ID, in, now))
		}
		detail.Days = append(detail.Days, day)
	}

	if err := s.repo.CreateTrip(ctx, detail); err != nil {
		return nil, fmt.Errorf("create trip: %w", err)
	}
	sortDays(detail.Days)
	return detail, nil
}

func newActivity(tripID, dayID string, in ActivityInput, now time.Time) Activity {
	return Activity{
		ID:        uuid.NewString(),
		DayID:     dayID,
		TripID:    tripID,
		Title:     in.Title,
		Time:      in.Time,
		Location:  in.Location,
		Cost:      in.Cost,
		Category:  in.Category,
		Notes:     in.Notes,
		IsBooked:  in.IsBooked,
		CreatedAt: now,
	}
}

// owned loads a trip and hides trips that belong to someone else.
func (s *Service) owned(ctx context.Context, uid, tripID string) (*Trip, error) {
	t, err := s.repo.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.UserID != uid {
		return nil, ErrNotFound
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, uid, tripID string) (*TripDetail, error) {
	t, err := s.owned(ctx, uid, tripID)
	if err != nil {
		return nil, err
	}
	days, err := s.repo.ListDays(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if days == nil {
		days = []Day{}
	}
	return &TripDetail{Trip: *t, Days: days}, nil
}

func (s *Service) List(ctx context.Context, uid string) ([]Trip, error) {
	return s.repo.ListTrips(ctx, uid)
}

func (s *Service) day(ctx context.Context, uid, tripID string, n int) (*Trip, *Day, error) {
	t, err := s.owned(ctx, uid, tripID)
	if err != nil {
		return nil, nil, err
	}
	days, err := s.repo.ListDays(ctx, tripID)
	if err != nil {
		return nil, nil, err
	}
	for i := range days {
		if days[i].DayNumber == n {
			return t, &days[i], nil
		}
	}
	return nil, nil, ErrNotFound
}

// Day returns day n of the trip with its activities.
func (s *Service) Day(ctx context.Context, uid, tripID string, n int) (*Day, error) {
	_, d, err := s.day(ctx, uid, tripID, n)
	return d, err
}

// AddActivity appends an activity to day n of the trip.
func (s *Service) AddActivity(ctx context.Context, uid, tripID string, n int, in ActivityInput) (*Activity, error) {
	in, err := in.Normalize()
	if err != nil {
		return nil, err
	}
	_, d, err := s.day(ctx, uid, tripID, n)
	if err != nil {
		return nil, err
	}
	a := newActivity(tripID, d.ID, in, s.now().UTC())
	if err := s.repo.CreateActivity(ctx, &a); err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &a, nil
}

func (s *Service) ownedActivity(ctx context.Context, uid, id string) (*Activity, error) {
	a, err := s.repo.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, uid, a.TripID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteActivity(ctx context.Context, uid, id string) error {
	if _, err := s.ownedActivity(ctx, uid, id); err != nil {
		return err
	}
	return s.repo.DeleteActivity(ctx, id)
}

// ToggleBooked flips the booking flag and returns the new value.
func (s *Service) ToggleBooked(ctx context.Context, uid, id string) (bool, error) {
	a, err := s.ownedActivity(ctx, uid, id)
	if err != nil {
		return false, err
	}
	if err := s.repo.SetBooked(ctx, id, !a.IsBooked); err != nil {
		return false, err
	}
	return !a.IsBooked, nil
}

func (s *Service) SetCover(ctx context.Context, uid, tripID, cover string) error {
	if _, err := s.owned(ctx, uid, tripID); err != nil {
		return err
	}
	return s.repo.UpdateCover(ctx, tripID, cover)
}

// Cover returns the trip's cover and destination.
func (s *Service) Cover(ctx context.Context, uid, tripID string) (cover, destination string, err error) {
	t, err := s.owned(ctx, uid, tripID)
	if err != nil {
		return "", "", err
	}
	return t.CoverImage, t.Destination, nil
}

func (s *Service) UpdateStatus(ctx context.Context, uid, tripID string, status Status) error {
	if !status.Valid() {
		return errors.Join(ErrBadRequest, fmt.Errorf("unknown status %q", status))
	}
	if _, err := s.owned(ctx, uid, tripID); err != nil {
		return err
	}
	return s.repo.UpdateStatus(ctx, tripID, status)
}

// Destination returns the destination of a trip the caller owns.
func (s *Service) Destination(ctx context.Context, uid, tripID string) (string, error) {
	t, err := s.owned(ctx, uid, tripID)
	if err != nil {
		return "", err
	}
	return t.Destination, nil
}

// DayRoute estimates driving between the located activities of day n, in
// time order. Locations are qualified with the trip destination.
func (s *Service) DayRoute(ctx context.Context, uid, tripID string, n int) (*maps.RouteSummary, error) {
	if s.routes == nil {
		return nil, ErrRoutesUnavailable
	}
	t, d, err := s.day(ctx, uid, tripID, n)
	if err != nil {
		return nil, err
	}
	var stops []string
	for _, a := range d.Activities {
		loc := strings.TrimSpace(a.Location)
		if loc == "" {
			continue
		}
		if !strings.Contains(strings.ToLower(loc), strings.ToLower(t.Destination)) {
			loc = loc + ", " + t.Destination
		}
		stops = append(stops, loc)
	}
	return s.routes.EstimateRoute(ctx, stops)
}
