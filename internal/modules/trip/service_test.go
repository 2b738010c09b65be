package trip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nest/internal/logger"
	"nest/internal/maps"
	"nest/internal/types"
)

type stubRoutes struct {
	stops []string
}

func (s *stubRoutes) EstimateRoute(_ context.Context, stops []string) (*maps.RouteSummary, error) {
	s.stops = stops
	return &maps.RouteSummary{Legs: []maps.Leg{}, TotalDuration: 30 * time.Minute}, nil
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(DateLayout, s)
	require.NoError(t, err)
	return d
}

func seedTrip(t *testing.T, svc *Service) *TripDetail {
	t.Helper()
	detail, err := svc.Create(context.Background(), NewTrip{
		UserID: "u1", Title: "Lisbon with the kids", Destination: "Lisbon",
		StartDate: date(t, "2025-07-01"), EndDate: date(t, "2025-07-02"),
	}, []DayDraft{
		{Notes: "Arrival", Activities: []ActivityInput{
			{Title: "Pastéis de Belém", Time: "16:00", Location: "Belém", Category: types.CategoryFood, Cost: 8},
			{Title: "Oceanário", Time: "10:00", Location: "Parque das Nações", Category: "Aquarium", Cost: -3},
			{Title: "Bad time", Time: "25:00"},
		}},
		{},
	})
	require.NoError(t, err)
	return detail
}

func TestCreateAndGet(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, logger.NewTestLogger(t))
	created := seedTrip(t, svc)

	assert.Equal(t, StatusPlanning, created.Status)
	require.Len(t, created.Days, 2)
	assert.Equal(t, date(t, "2025-07-02"), created.Days[1].Date)

	got, err := svc.Get(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	require.Len(t, got.Days, 2)
	day1 := got.Days[0]
	assert.Equal(t, "Arrival", day1.Notes)
	require.Len(t, day1.Activities, 2, "invalid activity skipped")
	assert.Equal(t, "Oceanário", day1.Activities[0].Title, "ordered by time")
	assert.Equal(t, types.CategoryOther, day1.Activities[0].Category)
	assert.Zero(t, day1.Activities[0].Cost)
	assert.Empty(t, got.Days[1].Activities)

	_, err = svc.Get(context.Background(), "intruder", created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	_, err := svc.Create(context.Background(), NewTrip{UserID: "u1", Title: "x", Destination: "Rome",
		StartDate: date(t, "2025-07-02"), EndDate: date(t, "2025-07-01")}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = svc.Create(context.Background(), NewTrip{UserID: "u1", Title: "x"}, nil)
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestActivityLifecycle(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	created := seedTrip(t, svc)
	ctx := context.Background()

	a, err := svc.AddActivity(ctx, "u1", created.ID, 2, ActivityInput{Title: "Tram 28", Time: "09:30", Category: types.CategoryAdventure, Cost: 3})
	require.NoError(t, err)

	_, err = svc.AddActivity(ctx, "u1", created.ID, 9, ActivityInput{Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.AddActivity(ctx, "u1", created.ID, 2, ActivityInput{Time: "09:30"})
	assert.ErrorIs(t, err, ErrBadRequest)

	booked, err := svc.ToggleBooked(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.True(t, booked)
	booked, err = svc.ToggleBooked(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.False(t, booked)

	_, err = svc.ToggleBooked(ctx, "u2", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.DeleteActivity(ctx, "u2", a.ID), ErrNotFound)
	require.NoError(t, svc.DeleteActivity(ctx, "u1", a.ID))
	assert.ErrorIs(t, svc.DeleteActivity(ctx, "u1", a.ID), ErrNotFound)
}

func TestCoverStatusAndList(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, nil)
	created := seedTrip(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.SetCover(ctx, "u1", created.ID, "data:image/png;base64,AQID"))
	cover, dest, err := svc.Cover(ctx, "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", cover)
	assert.Equal(t, "Lisbon", dest)

	require.NoError(t, svc.UpdateStatus(ctx, "u1", created.ID, StatusConfirmed))
	assert.ErrorIs(t, svc.UpdateStatus(ctx, "u1", created.ID, "archived"), ErrBadRequest)

	_, err = svc.Create(ctx, NewTrip{UserID: "u1", Title: "Earlier", Destination: "Porto",
		StartDate: date(t, "2025-03-01"), EndDate: date(t, "2025-03-01")}, []DayDraft{{}})
	require.NoError(t, err)
	trips, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, trips, 2)
	assert.Equal(t, "Earlier", trips[0].Title)
	assert.Equal(t, StatusConfirmed, trips[1].Status)
}

func TestDayRoute(t *testing.T) {
	ctx := context.Background()
	_, err := NewService(NewMemoryStore(), nil, nil).DayRoute(ctx, "u1", "x", 1)
	assert.ErrorIs(t, err, ErrRoutesUnavailable)

	routes := &stubRoutes{}
	svc := NewService(NewMemoryStore(), routes, nil)
	created := seedTrip(t, svc)

	sum, err := svc.DayRoute(ctx, "u1", created.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, sum.TotalDuration)
	assert.Equal(t, []string{"Parque das Nações, Lisbon", "Belém, Lisbon"}, routes.stops)
}
