// README: AI handlers for suggestions, itineraries, media, grounded answers, activity details and tips.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nest/internal/ai"
	"nest/internal/http/middleware"
	"nest/internal/logger"
	"nest/internal/modules/details"
	"nest/internal/modules/grounding"
	"nest/internal/modules/itinerary"
	"nest/internal/modules/suggestion"
)

type Suggester interface {
	SuggestActivities(ctx context.Context, req suggestion.Request) ([]suggestion.ActivitySuggestion, error)
}

type ItineraryGenerator interface {
	GenerateItinerary(ctx context.Context, destination string, dayCount int, preferences string) (*itinerary.Plan, error)
}

type MediaGenerator interface {
	ImageEditor
	GenerateCoverImage(ctx context.Context, destination string) ai.MediaAsset
	GenerateVideoTeaser(ctx context.Context, destination, vibe string) (*ai.MediaAsset, error)
}

type GroundedAnswerer interface {
	AnswerGrounded(ctx context.Context, query string) (*grounding.Answer, error)
}

type DetailFinder interface {
	ActivityDetails(ctx context.Context, title, location string) (*details.ActivityDetail, error)
	QuickTip(ctx context.Context, destination string) string
}

// TripDestinations resolves the destination of a caller's trip.
type TripDestinations interface {
	Destination(ctx context.Context, uid, tripID string) (string, error)
}

type AIDeps struct {
	Suggestions  Suggester
	Itineraries  ItineraryGenerator
	Media        MediaGenerator
	Grounding    GroundedAnswerer
	Details      DetailFinder
	Destinations TripDestinations
	Log          logger.Logger

	// DemoUID receives canned suggestions without a provider call.
	DemoUID        string
	TeaserDeadline time.Duration
}

type AIHandler struct {
	deps AIDeps
}

func NewAIHandler(deps AIDeps) *AIHandler {
	if deps.Log == nil {
		deps.Log = logger.NewNoOpLogger()
	}
	if deps.TeaserDeadline <= 0 {
		deps.TeaserDeadline = 12 * time.Minute
	}
	return &AIHandler{deps: deps}
}

// Suggestions handles POST /api/ai/suggestions.
func (h *AIHandler) Suggestions(c *gin.Context) {
	var req suggestion.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if uid := middleware.CallerUID(c); uid != "" && uid == h.deps.DemoUID {
		if err := req.Validate(); err != nil {
			writeServiceError(c, h.deps.Log, err)
			return
		}
		writeJSON(c, http.StatusOK, gin.H{"suggestions": suggestion.DemoSuggestions()})
		return
	}
	out, err := h.deps.Suggestions.SuggestActivities(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"suggestions": out})
}

type itineraryReq struct {
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Preferences string `json:"preferences"`
}

// Itinerary handles POST /api/ai/itinerary.
func (h *AIHandler) Itinerary(c *gin.Context) {
	var req itineraryReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	start, ok1 := parseDate(req.StartDate)
	end, ok2 := parseDate(req.EndDate)
	if !ok1 || !ok2 || start.IsZero() || end.IsZero() {
		writeError(c, http.StatusBadRequest, "start_date and end_date must be YYYY-MM-DD")
		return
	}
	dayCount := itinerary.DayCount(start, end)
	plan, err := h.deps.Itineraries.GenerateItinerary(c.Request.Context(), req.Destination, dayCount, req.Preferences)
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"day_count": dayCount, "plan": plan})
}

// Cover handles POST /api/ai/cover. It always answers with an image.
func (h *AIHandler) Cover(c *gin.Context) {
	var req struct {
		Destination string `json:"destination"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Destination) == "" {
		writeError(c, http.StatusBadRequest, "missing destination")
		return
	}
	asset := h.deps.Media.GenerateCoverImage(c.Request.Context(), req.Destination)
	writeJSON(c, http.StatusOK, gin.H{"cover_image": asset.String()})
}

// Teaser handles POST /api/ai/teaser. Generation is detached from the
// request so a dropped connection does not abandon a paid job.
func (h *AIHandler) Teaser(c *gin.Context) {
	var req struct {
		Destination string `json:"destination"`
		Vibe        string `json:"vibe"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Destination) == "" {
		writeError(c, http.StatusBadRequest, "missing destination")
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), h.deps.TeaserDeadline)
	defer cancel()

	teaser, err := h.deps.Media.GenerateVideoTeaser(ctx, req.Destination, req.Vibe)
	if errors.Is(err, context.DeadlineExceeded) {
		err = &ai.TimeoutError{Op: "video_teaser", After: h.deps.TeaserDeadline}
	}
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	if teaser == nil {
		writeJSON(c, http.StatusOK, gin.H{"video_url": nil})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"video_url": teaser.String()})
}

// Edit handles POST /api/ai/edit. "image" may be a URL or a data URI.
func (h *AIHandler) Edit(c *gin.Context) {
	var req struct {
		Image       string `json:"image"`
		Instruction string `json:"instruction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Image == "" || strings.TrimSpace(req.Instruction) == "" {
		writeError(c, http.StatusBadRequest, "missing image or instruction")
		return
	}
	asset, err := ai.ParseAsset(req.Image)
	if err != nil {
		writeError(c, http.StatusBadRequest, err.Error())
		return
	}
	out, err := h.deps.Media.EditImage(c.Request.Context(), asset, req.Instruction)
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	if out == nil {
		writeJSON(c, http.StatusOK, gin.H{"image": nil})
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"image": out.String()})
}

// Ask handles POST /api/ai/ask. With a trip id the query is scoped to the
// trip's destination.
func (h *AIHandler) Ask(c *gin.Context) {
	var req struct {
		Query  string `json:"query"`
		TripID string `json:"trip_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(c, http.StatusBadRequest, "missing query")
		return
	}
	query := req.Query
	if req.TripID != "" && h.deps.Destinations != nil {
		dest, err := h.deps.Destinations.Destination(c.Request.Context(), middleware.CallerUID(c), req.TripID)
		if err != nil {
			writeServiceError(c, h.deps.Log, err)
			return
		}
		query = grounding.InDestination(query, dest)
	}
	ans, err := h.deps.Grounding.AnswerGrounded(c.Request.Context(), query)
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	writeJSON(c, http.StatusOK, ans)
}

// Details handles POST /api/ai/details.
func (h *AIHandler) Details(c *gin.Context) {
	var req struct {
		Title    string `json:"title"`
		Location string `json:"location"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		writeError(c, http.StatusBadRequest, "missing title")
		return
	}
	d, err := h.deps.Details.ActivityDetails(c.Request.Context(), req.Title, req.Location)
	if err != nil {
		writeServiceError(c, h.deps.Log, err)
		return
	}
	writeJSON(c, http.StatusOK, d)
}

// Tip handles GET /api/ai/tip?destination=.
func (h *AIHandler) Tip(c *gin.Context) {
	dest := strings.TrimSpace(c.Query("destination"))
	if dest == "" {
		writeError(c, http.StatusBadRequest, "missing destination")
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"tip": h.deps.Details.QuickTip(c.Request.Context(), dest)})
}
