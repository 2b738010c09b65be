// README: Router tests covering auth, quota, error mapping and every handler through gin.
package http_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nest/internal/ai"
	"nest/internal/ai/aitest"
	nesthttp "nest/internal/http"
	"nest/internal/http/handlers"
	"nest/internal/infra"
	"nest/internal/logger"
	"nest/internal/maps"
	"nest/internal/modules/aiusage"
	"nest/internal/modules/assistant"
	"nest/internal/modules/details"
	"nest/internal/modules/grounding"
	"nest/internal/modules/itinerary"
	"nest/internal/modules/suggestion"
	"nest/internal/modules/trip"
	"nest/internal/service"
	"nest/internal/types"
)

// tokenVerifier treats the bearer token as the uid.
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	if raw == "bad" {
		return nil, errors.New("expired")
	}
	return &infra.FirebaseToken{UID: raw}, nil
}

type fakeSuggester struct {
	out []suggestion.ActivitySuggestion
	err error
}

func (f *fakeSuggester) SuggestActivities(context.Context, suggestion.Request) ([]suggestion.ActivitySuggestion, error) {
	return f.out, f.err
}

type fakeItineraries struct {
	plan *itinerary.Plan
	err  error
}

func (f *fakeItineraries) GenerateItinerary(context.Context, string, int, string) (*itinerary.Plan, error) {
	return f.plan, f.err
}

type fakeMedia struct {
	cover     ai.MediaAsset
	teaser    *ai.MediaAsset
	teaserErr error
	edited    *ai.MediaAsset
	editErr   error
	editedIn  ai.MediaAsset
}

func (f *fakeMedia) GenerateCoverImage(context.Context, string) ai.MediaAsset { return f.cover }

func (f *fakeMedia) GenerateVideoTeaser(context.Context, string, string) (*ai.MediaAsset, error) {
	return f.teaser, f.teaserErr
}

func (f *fakeMedia) EditImage(_ context.Context, a ai.MediaAsset, _ string) (*ai.MediaAsset, error) {
	f.editedIn = a
	return f.edited, f.editErr
}

type fakeGrounding struct{ query string }

func (f *fakeGrounding) AnswerGrounded(_ context.Context, q string) (*grounding.Answer, error) {
	f.query = q
	return &grounding.Answer{Text: "Try the night market.", WebSources: []grounding.Source{}, MapSources: []grounding.Source{}}, nil
}

type fakeDetails struct{}

func (fakeDetails) ActivityDetails(_ context.Context, title, _ string) (*details.ActivityDetail, error) {
	if title == "Nowhere" {
		return nil, &ai.ConfigurationError{Op: "activity_details"}
	}
	return &details.ActivityDetail{Description: "A fine place.", Rating: 4.5}, nil
}

func (fakeDetails) QuickTip(context.Context, string) string { return "Pack snacks." }

type fakeRoutes struct{}

func (fakeRoutes) EstimateRoute(_ context.Context, stops []string) (*maps.RouteSummary, error) {
	if len(stops) < 2 {
		return &maps.RouteSummary{Legs: []maps.Leg{}}, nil
	}
	return &maps.RouteSummary{
		Legs:          []maps.Leg{{From: stops[0], To: stops[1], Duration: 14 * time.Minute, Meters: 5200}},
		TotalDuration: 14 * time.Minute,
		TotalMeters:   5200,
	}, nil
}

type countingSpender struct {
	mu    sync.Mutex
	limit int
	used  map[string]int
}

func (s *countingSpender) UseToken(_ context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used == nil {
		s.used = map[string]int{}
	}
	if s.used[uid] >= s.limit {
		return aiusage.ErrInsufficientTokens
	}
	s.used[uid]++
	return nil
}

type fixture struct {
	router    *gin.Engine
	trips     *trip.Service
	suggester *fakeSuggester
	itins     *fakeItineraries
	media     *fakeMedia
	ground    *fakeGrounding
	client    *aitest.Client
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewTestLogger(t)

	f := &fixture{
		suggester: &fakeSuggester{},
		itins:     &fakeItineraries{plan: &itinerary.Plan{}},
		media:     &fakeMedia{cover: ai.AssetFromURL("https://img.example/cover.png")},
		ground:    &fakeGrounding{},
		client:    &aitest.Client{},
	}
	f.trips = trip.NewService(trip.NewMemoryStore(), fakeRoutes{}, log)
	planner := service.NewTripPlanner(f.itins, f.media, f.trips, log, service.PlannerOptions{DemoUID: "demo"})
	creds := aitest.Creds("key")
	factory := &aitest.Factory{Client: f.client}

	f.router = nesthttp.NewRouter(nesthttp.Deps{
		Verifier: tokenVerifier{},
		Quota:    &countingSpender{limit: 50},
		Planner:  planner,
		Trips:    f.trips,
		AI: handlers.AIDeps{
			Suggestions:    f.suggester,
			Itineraries:    f.itins,
			Media:          f.media,
			Grounding:      f.ground,
			Details:        fakeDetails{},
			Destinations:   f.trips,
			DemoUID:        "demo",
			TeaserDeadline: time.Minute,
		},
		Chats:          assistant.NewChats(creds, factory, log),
		Creds:          creds,
		Factory:        factory,
		VoiceQueueSize: 8,
		Log:            log,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, uid string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		req.Header.Set("Authorization", "Bearer "+uid)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/health", "", nil).Code)

	f.do(t, http.MethodGet, "/health", "", nil)
	w := f.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nest_http_requests_total")
}

func TestAPIRequiresAuth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/trips", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/api/trips", "bad", nil).Code)
}

func TestTripLifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"title": "Spring in Kyoto", "destination": "Kyoto", "start_date": "2025-04-01", "end_date": "2025-04-02",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[trip.TripDetail](t, w)
	assert.Len(t, created.Days, 2)
	assert.Contains(t, service.PlaceholderCovers, created.CoverImage)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/trips/"+created.ID, "u2", nil).Code)

	w = f.do(t, http.MethodPost, "/api/trips/"+created.ID+"/days/1/activities", "u1", map[string]any{
		"title": "Fushimi Inari", "time": "08:00", "location": "Fushimi", "category": "Sightseeing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	act := decode[trip.Activity](t, w)
	f.do(t, http.MethodPost, "/api/trips/"+created.ID+"/days/1/activities", "u1", map[string]any{
		"title": "Nishiki Market", "time": "12:00", "location": "Nishiki", "category": "Food",
	})
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/trips/"+created.ID+"/days/0/activities", "u1", map[string]any{"title": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/trips/"+created.ID+"/days/1/activities", "u1", map[string]any{"title": "x", "time": "8am"}).Code)

	w = f.do(t, http.MethodPost, "/api/activities/"+act.ID+"/booking", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, w)["is_booked"])

	w = f.do(t, http.MethodGet, "/api/trips/"+created.ID+"/days/1/route", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	route := decode[map[string]any](t, w)
	assert.EqualValues(t, 14, route["total_minutes"])
	assert.InDelta(t, 5.2, route["total_kilometers"], 0.001)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPatch, "/api/trips/"+created.ID+"/status", "u1", map[string]any{"status": "archived"}).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodPatch, "/api/trips/"+created.ID+"/status", "u1", map[string]any{"status": "confirmed"}).Code)

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/activities/"+act.ID, "u1", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodDelete, "/api/activities/"+act.ID, "u1", nil).Code)

	w = f.do(t, http.MethodGet, "/api/trips", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[map[string][]trip.Trip](t, w)
	require.Len(t, list["trips"], 1)
	assert.Equal(t, trip.StatusConfirmed, list["trips"][0].Status)
}

func TestCreateTripWithAIAndValidation(t *testing.T) {
	f := newFixture(t)
	f.itins.plan = &itinerary.Plan{Days: []itinerary.Day{{DayNumber: 1, ThemeNote: "Old town", Activities: []itinerary.Activity{
		{Title: "Castle walk", Time: "10:00", Category: types.CategorySightseeing},
	}}}}
	teaser := ai.AssetFromURL("https://video.example/t.mp4")
	f.media.teaser = &teaser

	w := f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"destination": "Prague", "start_date": "2025-09-10", "end_date": "2025-09-10", "use_ai": true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[trip.TripDetail](t, w)
	assert.Equal(t, "Trip to Prague", created.Title)
	assert.Equal(t, "https://img.example/cover.png", created.CoverImage)
	assert.Equal(t, "https://video.example/t.mp4", created.VideoURL)
	require.Len(t, created.Days, 1)
	assert.Equal(t, "Old town", created.Days[0].Notes)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"destination": "Prague", "start_date": "10/09/2025", "end_date": "2025-09-10",
	}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"destination": "Prague", "start_date": "2025-09-10", "end_date": "2025-09-10",
	}).Code, "manual trips need a name")
}

func TestEditCover(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"title": "Beach", "destination": "Nice", "start_date": "2025-07-01", "end_date": "2025-07-01",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[trip.TripDetail](t, w)
	path := "/api/trips/" + created.ID + "/cover/edit"

	w = f.do(t, http.MethodPost, path, "u1", map[string]any{"instruction": "add a retro filter"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, w)["edited"])
	assert.Equal(t, created.CoverImage, f.media.editedIn.URL)

	out := ai.AssetFromBlob(ai.Blob{MIMEType: "image/png", Data: []byte{1, 2, 3}})
	f.media.edited = &out
	w = f.do(t, http.MethodPost, path, "u1", map[string]any{"instruction": "add a retro filter"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "data:image/png;base64,AQID", decode[map[string]any](t, w)["cover_image"])

	got, err := f.trips.Get(context.Background(), "u1", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AQID", got.CoverImage)

	f.media.editErr = &ai.ProviderError{Op: "edit_image", Err: errors.New("quota")}
	assert.Equal(t, http.StatusBadGateway, f.do(t, http.MethodPost, path, "u1", map[string]any{"instruction": "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, path, "u1", map[string]any{}).Code)
}

func TestSuggestionsErrorMapping(t *testing.T) {
	body := map[string]any{"destination": "Paris", "date": "2025-06-01", "day_number": 1, "excluded_titles": []string{"Eiffel Tower"}}
	cases := []struct {
		name string
		err  error
		want int
		kind string
	}{
		{"not configured", &ai.ConfigurationError{Op: "suggest_activities"}, http.StatusServiceUnavailable, "not_configured"},
		{"malformed", &ai.MalformedResponseError{Op: "suggest_activities", Raw: "nope", Err: errors.New("json")}, http.StatusBadGateway, "malformed"},
		{"provider", &ai.ProviderError{Op: "suggest_activities", Err: errors.New("503")}, http.StatusBadGateway, "provider"},
		{"timeout", &ai.TimeoutError{Op: "suggest_activities", After: time.Second}, http.StatusGatewayTimeout, "timeout"},
		{"bad request", suggestion.ErrBadRequest, http.StatusBadRequest, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.suggester.err = tc.err
			w := f.do(t, http.MethodPost, "/api/ai/suggestions", "u1", body)
			assert.Equal(t, tc.want, w.Code)
			resp := decode[struct {
				Error string `json:"error"`
				Kind  string `json:"kind"`
			}](t, w)
			assert.Equal(t, tc.kind, resp.Kind)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestSuggestions(t *testing.T) {
	f := newFixture(t)
	f.suggester.out = []suggestion.ActivitySuggestion{{Title: "Louvre", Category: types.CategorySightseeing, Time: "10:00"}}
	body := map[string]any{"destination": "Paris", "date": "2025-06-01", "day_number": 1}

	w := f.do(t, http.MethodPost, "/api/ai/suggestions", "u1", body)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[map[string][]suggestion.ActivitySuggestion](t, w)
	assert.Equal(t, "Louvre", got["suggestions"][0].Title)

	w = f.do(t, http.MethodPost, "/api/ai/suggestions", "demo", body)
	require.Equal(t, http.StatusOK, w.Code)
	got = decode[map[string][]suggestion.ActivitySuggestion](t, w)
	assert.Len(t, got["suggestions"], suggestion.Count)
}

func TestQuotaExhaustion(t *testing.T) {
	f := newFixture(t)
	f.suggester.out = []suggestion.ActivitySuggestion{}
	body := map[string]any{"destination": "Paris", "date": "2025-06-01", "day_number": 1}
	for i := 0; i < 50; i++ {
		require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/api/ai/suggestions", "u1", body).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(t, http.MethodPost, "/api/ai/suggestions", "u1", body).Code)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/api/trips", "u1", nil).Code, "CRUD is not metered")
}

func TestItineraryCoverTeaserEdit(t *testing.T) {
	f := newFixture(t)
	f.itins.plan = &itinerary.Plan{Days: []itinerary.Day{{DayNumber: 1}, {DayNumber: 2}}}

	w := f.do(t, http.MethodPost, "/api/ai/itinerary", "u1", map[string]any{"destination": "Kyoto", "start_date": "2025-04-01", "end_date": "2025-04-02"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 2, decode[map[string]any](t, w)["day_count"])
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/ai/itinerary", "u1", map[string]any{"destination": "Kyoto"}).Code)

	f.itins.err = &ai.TimeoutError{Op: "generate_itinerary", After: time.Minute}
	assert.Equal(t, http.StatusGatewayTimeout, f.do(t, http.MethodPost, "/api/ai/itinerary", "u1", map[string]any{"destination": "Kyoto", "start_date": "2025-04-01", "end_date": "2025-04-02"}).Code)

	w = f.do(t, http.MethodPost, "/api/ai/cover", "u1", map[string]any{"destination": "Kyoto"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://img.example/cover.png", decode[map[string]any](t, w)["cover_image"])

	w = f.do(t, http.MethodPost, "/api/ai/teaser", "u1", map[string]any{"destination": "Kyoto", "vibe": "calm"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["video_url"])
	f.media.teaserErr = context.DeadlineExceeded
	assert.Equal(t, http.StatusGatewayTimeout, f.do(t, http.MethodPost, "/api/ai/teaser", "u1", map[string]any{"destination": "Kyoto"}).Code)

	w = f.do(t, http.MethodPost, "/api/ai/edit", "u1", map[string]any{"image": "data:image/png;base64,AQID", "instruction": "brighter"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]any](t, w)["image"])
	assert.Equal(t, []byte{1, 2, 3}, f.media.editedIn.Inline.Data)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/ai/edit", "u1", map[string]any{"image": "data:image/png,raw", "instruction": "x"}).Code)

	f.media.editErr = errors.Join(errors.New("load image to edit"), ai.ErrDisallowedHost)
	w = f.do(t, http.MethodPost, "/api/ai/edit", "u1", map[string]any{"image": "http://169.254.169.254/latest", "instruction": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
}

func TestAskDetailsTip(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/api/trips", "u1", map[string]any{
		"title": "Food tour", "destination": "Taipei", "start_date": "2025-11-01", "end_date": "2025-11-01",
	})
	created := decode[trip.TripDetail](t, w)

	w = f.do(t, http.MethodPost, "/api/ai/ask", "u1", map[string]any{"query": "best dumplings", "trip_id": created.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "best dumplings in Taipei", f.ground.query)
	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodPost, "/api/ai/ask", "u2", map[string]any{"query": "q", "trip_id": created.ID}).Code)

	w = f.do(t, http.MethodPost, "/api/ai/details", "u1", map[string]any{"title": "Din Tai Fung", "location": "Xinyi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "A fine place.", decode[details.ActivityDetail](t, w).Description)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodPost, "/api/ai/details", "u1", map[string]any{"title": "Nowhere"}).Code)

	w = f.do(t, http.MethodGet, "/api/ai/tip?destination=Taipei", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pack snacks.", decode[map[string]any](t, w)["tip"])
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/ai/tip", "u1", nil).Code)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	var history []string
	f.client.StartChatFunc = func(context.Context, ai.ChatConfig) (ai.ChatSession, error) {
		return aitest.ChatFunc(func(_ context.Context, msg string) (string, error) {
			history = append(history, msg)
			return "reply " + msg, nil
		}), nil
	}

	w := f.do(t, http.MethodPost, "/api/ai/chat", "u1", map[string]any{"message": "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "reply hello", decode[map[string]any](t, w)["reply"])
	f.do(t, http.MethodPost, "/api/ai/chat", "u1", map[string]any{"message": "again"})
	assert.Equal(t, []string{"hello", "again"}, history)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/ai/chat", "u1", map[string]any{"message": "  "}).Code)
	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodDelete, "/api/ai/chat", "u1", nil).Code)
}

func float32LE(samples []float32) []byte {
	out := make([]byte, 4*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

type envelope struct {
	Type       string `json:"type"`
	State      string `json:"state"`
	DurationMS int64  `json:"duration"`
	SampleRate int    `json:"sample_rate"`
}

// readEnvelope skips state events until one of type want arrives.
func readEnvelope(t *testing.T, conn *websocket.Conn, want string) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		kind, data, err := conn.ReadMessage()
		require.NoError(t, err)
		if kind != websocket.TextMessage {
			continue
		}
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == want {
			return env
		}
	}
}

func TestVoiceBridge(t *testing.T) {
	f := newFixture(t)
	live := aitest.NewLive()
	f.client.ConnectLiveFunc = func(context.Context, ai.LiveConfig) (ai.LiveSession, error) { return live, nil }

	srv := httptest.NewServer(f.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ai/voice"
	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Authorization": {"Bearer u1"}})
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)

	readEnvelope(t, conn, "state")

	// one full microphone frame reaches the provider as 16 kHz PCM
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, float32LE(make([]float32, assistant.FrameSamples))))
	select {
	case chunk := <-live.Sent:
		assert.Equal(t, assistant.InputMIME, chunk.MIMEType)
		assert.Len(t, chunk.Data, 2*assistant.FrameSamples)
	case <-time.After(5 * time.Second):
		t.Fatal("no audio sent upstream")
	}

	// 2400 samples at 24 kHz is 100ms of speech
	live.Events <- &ai.LiveEvent{Audio: []ai.Blob{{MIMEType: "audio/pcm;rate=24000", Data: assistant.EncodePCM16(make([]float32, 2400))}}}
	env := readEnvelope(t, conn, "schedule")
	assert.EqualValues(t, 100, env.DurationMS)
	assert.Equal(t, 24000, env.SampleRate)
	kind, pcm, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.BinaryMessage, kind)
	assert.Len(t, pcm, 4800)

	live.Events <- &ai.LiveEvent{Interrupted: true}
	readEnvelope(t, conn, "interrupted")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{ "type": "stop" }`)))
	assert.Eventually(t, live.Closed, 5*time.Second, 10*time.Millisecond)
}

func TestVoiceNotConfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := nesthttp.NewRouter(nesthttp.Deps{
		Verifier:       tokenVerifier{},
		Trips:          trip.NewService(trip.NewMemoryStore(), nil, nil),
		Chats:          assistant.NewChats(aitest.Creds(""), &aitest.Factory{}, nil),
		Creds:          aitest.Creds(""),
		Factory:        &aitest.Factory{},
		VoiceQueueSize: 8,
		AI:             handlers.AIDeps{Media: &fakeMedia{}},
	})
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ai/voice?access_token=u1"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env struct{ Type, Text string }
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == "error" {
			assert.Equal(t, "not_configured", env.Text)
			return
		}
	}
}
