package maps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func fakeMapsAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "textsearch"):
			_, _ = w.Write([]byte(`{"status":"OK","results":[
				{"name":"Nishiki Market","formatted_address":"Nakagyo Ward, Kyoto","rating":4.4,"place_id":"p1"}]}`))
		case strings.Contains(r.URL.Path, "details"):
			_, _ = w.Write([]byte(`{"status":"OK","result":{"place_id":"p1","name":"Nishiki Market",
				"formatted_phone_number":"075-211-3882","website":"https://www.kyoto-nishiki.or.jp/",
				"url":"https://maps.google.com/?cid=1",
				"opening_hours":{"weekday_text":["Monday: 9:00 AM – 6:00 PM","Tuesday: 9:00 AM – 6:00 PM"]}}}`))
		case strings.Contains(r.URL.Path, "directions"):
			_, _ = w.Write([]byte(`{"status":"OK","routes":[{"summary":"","legs":[
				{"duration":{"value":600,"text":"10 mins"},"distance":{"value":4000,"text":"4.0 km"}},
				{"duration":{"value":900,"text":"15 mins"},"distance":{"value":6500,"text":"6.5 km"}}]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestLookupPlace(t *testing.T) {
	srv := fakeMapsAPI(t)
	svc, err := NewPlacesService("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	place, err := svc.LookupPlace(context.Background(), "Nishiki Market", "Kyoto")
	require.NoError(t, err)
	require.NotNil(t, place)
	assert.Equal(t, "Nakagyo Ward, Kyoto", place.Address)
	assert.Equal(t, "075-211-3882", place.Phone)
	assert.Equal(t, "https://www.kyoto-nishiki.or.jp/", place.Website)
	assert.Contains(t, place.OpeningHours, "Monday: 9:00 AM")
	assert.InDelta(t, 4.4, place.Rating, 0.001)
}

func TestEstimateRoute(t *testing.T) {
	srv := fakeMapsAPI(t)
	svc, err := NewRouteService("test-key", maps.WithBaseURL(srv.URL))
	require.NoError(t, err)

	sum, err := svc.EstimateRoute(context.Background(), []string{"Kyoto Station", "Fushimi Inari", "Gion"})
	require.NoError(t, err)
	require.Len(t, sum.Legs, 2)
	assert.Equal(t, "Fushimi Inari", sum.Legs[1].From)
	assert.Equal(t, "Gion", sum.Legs[1].To)
	assert.Equal(t, 25*time.Minute, sum.TotalDuration)
	assert.Equal(t, 10500, sum.TotalMeters)

	empty, err := svc.EstimateRoute(context.Background(), []string{"Gion"})
	require.NoError(t, err)
	assert.Empty(t, empty.Legs)
}
