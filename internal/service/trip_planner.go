package service

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/metrics"
	"nest/internal/modules/itinerary"
	"nest/internal/modules/trip"
)

// PlaceholderCovers are used when no cover is generated.
var PlaceholderCovers = []string{
	"https://picsum.photos/800/600?random=1",
	"https://picsum.photos/800/600?random=2",
	"https://picsum.photos/800/600?random=3",
	"https://picsum.photos/800/600?random=4",
	"https://picsum.photos/800/600?random=5",
}

// DefaultTeaserDeadline caps a teaser started from a request. It covers the
// worst-case poll budget with some slack.
const DefaultTeaserDeadline = 12 * time.Minute

// persistTimeout bounds the save of a generated trip once it is detached from
// the request.
const persistTimeout = 30 * time.Second

type ItineraryGenerator interface {
	GenerateItinerary(ctx context.Context, destination string, dayCount int, preferences string) (*itinerary.Plan, error)
}

type MediaGenerator interface {
	GenerateCoverImage(ctx context.Context, destination string) ai.MediaAsset
	GenerateVideoTeaser(ctx context.Context, destination, vibe string) (*ai.MediaAsset, error)
}

type TripCreator interface {
	Create(ctx context.Context, t trip.NewTrip, days []trip.DayDraft) (*trip.TripDetail, error)
}

// CreateTripInput is what a user submits from the new-trip form.
type CreateTripInput struct {
	Title       string
	Destination string
	StartDate   time.Time
	EndDate     time.Time
	Preferences string
	UseAI       bool
}

func (in CreateTripInput) validate() error {
	if strings.TrimSpace(in.Destination) == "" || in.StartDate.IsZero() || in.EndDate.IsZero() {
		return errors.Join(trip.ErrBadRequest, errors.New("destination and dates are required"))
	}
	if in.StartDate.After(in.EndDate) {
		return errors.Join(trip.ErrBadRequest, errors.New("end date must be after start date"))
	}
	if !in.UseAI && strings.TrimSpace(in.Title) == "" {
		return errors.Join(trip.ErrBadRequest, errors.New("trip name is required"))
	}
	return nil
}

type PlannerOptions struct {
	// DemoUID marks the demo account; its first day gets an "Arrival" note.
	DemoUID        string
	TeaserDeadline time.Duration
}

// TripPlanner sequences itinerary, cover and teaser generation ahead of
// persisting a new trip. Every AI stage may fail without blocking creation.
type TripPlanner struct {
	itineraries ItineraryGenerator
	media       MediaGenerator
	trips       TripCreator
	log         logger.Logger
	opts        PlannerOptions
	pick        func(n int) int
}

func NewTripPlanner(itineraries ItineraryGenerator, media MediaGenerator, trips TripCreator, log logger.Logger, opts PlannerOptions) *TripPlanner {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	if opts.TeaserDeadline <= 0 {
		opts.TeaserDeadline = DefaultTeaserDeadline
	}
	return &TripPlanner{
		itineraries: itineraries,
		media:       media,
		trips:       trips,
		log:         log,
		opts:        opts,
		pick:        rand.IntN,
	}
}

// CreateTrip validates in, runs the AI stages when requested and stores the
// trip with one day per calendar day. It fails only on invalid input or a
// persistence error.
func (p *TripPlanner) CreateTrip(ctx context.Context, uid string, in CreateTripInput) (*trip.TripDetail, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	log := p.log.WithFields(map[string]interface{}{"uid": uid, "destination": in.Destination})

	title := strings.TrimSpace(in.Title)
	cover := PlaceholderCovers[p.pick(len(PlaceholderCovers))]
	var video string
	var plan *itinerary.Plan
	dayCount := itinerary.DayCount(in.StartDate, in.EndDate)

	if in.UseAI {
		if title == "" {
			title = "Trip to " + in.Destination
		}
		plan = p.planStages(ctx, log, in, dayCount, &cover, &video)
	}

	days := make([]trip.DayDraft, dayCount)
	for i := range days {
		n := i + 1
		if d := plan.DayFor(n); d != nil {
			days[i].Notes = d.ThemeNote
			for _, a := range d.Activities {
				days[i].Activities = append(days[i].Activities, trip.ActivityInput{
					Title:    a.Title,
					Time:     a.Time,
					Location: a.Location,
					Cost:     a.Cost,
					Category: a.Category,
					Notes:    a.Notes,
				})
			}
		}
		if n == 1 && days[i].Notes == "" && uid != "" && uid == p.opts.DemoUID {
			days[i].Notes = "Arrival"
		}
	}
	if plan != nil {
		for _, d := range plan.Days {
			if d.DayNumber < 1 || d.DayNumber > dayCount {
				log.Warn("ignoring out-of-range itinerary day", map[string]interface{}{"day_number": d.DayNumber, "day_count": dayCount})
			}
		}
	}

	// Generated content is kept even if the caller went away during the teaser.
	storeCtx := ctx
	if in.UseAI {
		var cancel context.CancelFunc
		storeCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
	}
	detail, err := p.trips.Create(storeCtx, trip.NewTrip{
		UserID:      uid,
		Title:       title,
		Destination: in.Destination,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CoverImage:  cover,
		VideoURL:    video,
	}, days)
	if err != nil {
		return nil, err
	}
	log.Info("trip created", map[string]interface{}{"trip_id": detail.ID, "days": dayCount, "ai": in.UseAI})
	return detail, nil
}

// planStages runs itinerary, cover and teaser in that order. A failed
// itinerary skips the media stages.
func (p *TripPlanner) planStages(ctx context.Context, log logger.Logger, in CreateTripInput, dayCount int, cover, video *string) *itinerary.Plan {
	plan, err := p.itineraries.GenerateItinerary(ctx, in.Destination, dayCount, in.Preferences)
	if err != nil {
		metrics.Fallback("trip_itinerary")
		log.WithError(err).Warn("itinerary generation failed, creating a basic trip", map[string]interface{}{
			"outcome": ai.Classify(err).String(),
		})
		return nil
	}

	if asset := p.media.GenerateCoverImage(ctx, in.Destination); asset.URL != "" || asset.Inline != nil {
		*cover = asset.String()
	}

	// The teaser outlives the caller's request but not the deadline.
	tctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.opts.TeaserDeadline)
	defer cancel()
	teaser, err := p.media.GenerateVideoTeaser(tctx, in.Destination, in.Preferences)
	switch {
	case err != nil:
		log.WithError(err).Warn("video teaser abandoned", nil)
	case teaser != nil:
		*video = teaser.String()
	}
	return plan
}
