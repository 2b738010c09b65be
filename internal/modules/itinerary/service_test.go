package itinerary

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nest/internal/ai"
	"nest/internal/ai/aitest"
	"nest/internal/logger"
	"nest/internal/types"
)

const kyotoPlan = "```json\n" + `{"days":[
	{"day_number":1,"theme_or_note":"Arrival and Gion","activities":[
		{"title":"Yasaka Shrine","time":"15:00","category":"Sightseeing","cost":0,"location":"Gion","notes":"Lanterns at dusk."}]},
	{"day_number":2,"theme_or_note":"Arashiyama","activities":[
		{"title":"Bamboo Grove","time":"08:30","category":"Adventure","cost":0,"location":"Arashiyama"},
		{"title":"Tofu lunch","time":"12:00","category":"Food","cost":25}]},
	{"day_number":3,"activities":[]}
]}` + "\n```"

func TestDayCount(t *testing.T) {
	d := func(s string) time.Time {
		tm, err := time.Parse("2006-01-02", s)
		require.NoError(t, err)
		return tm
	}
	assert.Equal(t, 1, DayCount(d("2025-04-01"), d("2025-04-01")))
	assert.Equal(t, 3, DayCount(d("2025-04-01"), d("2025-04-03")))
	assert.Equal(t, 3, DayCount(d("2025-04-03"), d("2025-04-01")))
	// partial days round up
	assert.Equal(t, 3, DayCount(d("2025-04-01"), d("2025-04-02").Add(time.Hour)))
}

func TestGenerateItineraryKyoto(t *testing.T) {
	var deadline time.Time
	client := &aitest.Client{GenerateFunc: func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		deadline, _ = ctx.Deadline()
		return aitest.Text(kyotoPlan), nil
	}}
	svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, logger.NewTestLogger(t), 0)
	assert.Equal(t, 60*time.Second, svc.Timeout())

	before := time.Now()
	plan, err := svc.GenerateItinerary(context.Background(), "Kyoto, Japan", 3, "")
	require.NoError(t, err)

	require.Len(t, client.Requests(), 1)
	req := client.Requests()[0]
	assert.Equal(t, ai.MIMEJSON, req.ResponseMIMEType)
	assert.NotNil(t, req.Schema)
	assert.Contains(t, req.Prompt, "Kyoto, Japan for 3 days")
	assert.Contains(t, req.Prompt, DefaultPreference)
	assert.WithinDuration(t, before.Add(60*time.Second), deadline, 5*time.Second)

	require.Len(t, plan.Days, 3)
	for i, day := range plan.Days {
		assert.Equal(t, i+1, day.DayNumber)
	}
	assert.Equal(t, types.CategoryAdventure, plan.Days[1].Activities[0].Category)
	assert.Equal(t, "Arashiyama", plan.DayFor(2).ThemeNote)
	assert.Nil(t, plan.DayFor(4))
}

func TestGenerateItineraryKeepsPlanWithStrayDayNumbers(t *testing.T) {
	client := &aitest.Client{GenerateFunc: func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		return aitest.Text(`{"days":[
			{"day_number":0,"activities":[{"title":"Check-in","time":"14:00","category":"Other"}]},
			{"day_number":1,"theme_or_note":"Old town","activities":[{"title":"Castle","time":"10:00","category":"Sightseeing"}]},
			{"day_number":2,"activities":[{"title":"Market","time":"09:00","category":"Food","cost":12}]}
		]}`), nil
	}}
	svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, logger.NewTestLogger(t), time.Second)

	plan, err := svc.GenerateItinerary(context.Background(), "Prague", 2, "")
	require.NoError(t, err)
	require.Len(t, plan.Days, 3)
	assert.Equal(t, "Old town", plan.DayFor(1).ThemeNote)
	assert.Equal(t, "Market", plan.DayFor(2).Activities[0].Title)
}

func TestGenerateItineraryTimeout(t *testing.T) {
	cancelled := make(chan struct{})
	client := &aitest.Client{GenerateFunc: func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}}
	svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, logger.NewTestLogger(t), 20*time.Millisecond)

	_, err := svc.GenerateItinerary(context.Background(), "Kyoto, Japan", 3, "")
	var timeout *ai.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 20*time.Millisecond, timeout.After)
	assert.Equal(t, ai.OutcomeTimeout, ai.Classify(err))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("provider call was not cancelled")
	}
}

func TestGenerateItineraryDistinguishesFailures(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		client := &aitest.Client{GenerateFunc: func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) {
			return aitest.Text(`{"days":[{"day_number":1,"activities":[{"title":"x","time":"10:00","category":"Shopping"}]}]}`), nil
		}}
		svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, nil, time.Second)
		_, err := svc.GenerateItinerary(context.Background(), "Oslo", 1, "museums")
		assert.Equal(t, ai.OutcomeMalformed, ai.Classify(err))
	})
	t.Run("provider", func(t *testing.T) {
		client := &aitest.Client{GenerateFunc: func(context.Context, *ai.GenerateRequest) (*ai.GenerateResponse, error) {
			return nil, errors.New("500 internal")
		}}
		svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, nil, time.Second)
		_, err := svc.GenerateItinerary(context.Background(), "Oslo", 1, "")
		assert.Equal(t, ai.OutcomeProvider, ai.Classify(err))
	})
	t.Run("not configured", func(t *testing.T) {
		svc := NewService(aitest.Creds(""), &aitest.Factory{}, nil, time.Second)
		_, err := svc.GenerateItinerary(context.Background(), "Oslo", 1, "")
		assert.ErrorIs(t, err, ai.ErrNotConfigured)
	})
	t.Run("caller cancelled", func(t *testing.T) {
		client := &aitest.Client{GenerateFunc: func(ctx context.Context, req *ai.GenerateRequest) (*ai.GenerateResponse, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}}
		svc := NewService(aitest.Creds("key"), &aitest.Factory{Client: client}, nil, time.Minute)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := svc.GenerateItinerary(ctx, "Oslo", 1, "")
		assert.Equal(t, ai.OutcomeCanceled, ai.Classify(err))
	})
	t.Run("bad request", func(t *testing.T) {
		svc := NewService(aitest.Creds("key"), &aitest.Factory{}, nil, time.Second)
		_, err := svc.GenerateItinerary(context.Background(), " ", 2, "")
		assert.ErrorIs(t, err, ErrBadRequest)
	})
}
