// README: Trip handlers: orchestrated create, reads, activities, booking, cover edit and day routes.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"nest/internal/ai"
	"nest/internal/http/middleware"
	"nest/internal/logger"
	"nest/internal/modules/trip"
	"nest/internal/service"
)

type TripCreator interface {
	CreateTrip(ctx context.Context, uid string, in service.CreateTripInput) (*trip.TripDetail, error)
}

type ImageEditor interface {
	EditImage(ctx context.Context, asset ai.MediaAsset, instruction string) (*ai.MediaAsset, error)
}

type TripHandler struct {
	planner TripCreator
	trips   *trip.Service
	editor  ImageEditor
	log     logger.Logger
}

func NewTripHandler(planner TripCreator, trips *trip.Service, editor ImageEditor, log logger.Logger) *TripHandler {
	return &TripHandler{planner: planner, trips: trips, editor: editor, log: log}
}

type createTripReq struct {
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Preferences string `json:"preferences"`
	UseAI       bool   `json:"use_ai"`
}

func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(trip.DateLayout, s)
	return t, err == nil
}

// Create handles POST /api/trips.
func (h *TripHandler) Create(c *gin.Context) {
	var req createTripReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	start, ok1 := parseDate(req.StartDate)
	end, ok2 := parseDate(req.EndDate)
	if !ok1 || !ok2 {
		writeError(c, http.StatusBadRequest, "dates must be YYYY-MM-DD")
		return
	}

	detail, err := h.planner.CreateTrip(c.Request.Context(), middleware.CallerUID(c), service.CreateTripInput{
		Title:       req.Title,
		Destination: strings.TrimSpace(req.Destination),
		StartDate:   start,
		EndDate:     end,
		Preferences: req.Preferences,
		UseAI:       req.UseAI,
	})
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, detail)
}

// List handles GET /api/trips.
func (h *TripHandler) List(c *gin.Context) {
	trips, err := h.trips.List(c.Request.Context(), middleware.CallerUID(c))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"trips": trips})
}

// Get handles GET /api/trips/:id.
func (h *TripHandler) Get(c *gin.Context) {
	detail, err := h.trips.Get(c.Request.Context(), middleware.CallerUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, detail)
}

// UpdateStatus handles PATCH /api/trips/:id/status.
func (h *TripHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status trip.Status `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.trips.UpdateStatus(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), req.Status); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"status": req.Status})
}

// EditCover handles POST /api/trips/:id/cover/edit. The new cover is stored
// only when the edit produced an image.
func (h *TripHandler) EditCover(c *gin.Context) {
	var req struct {
		Instruction string `json:"instruction"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Instruction) == "" {
		writeError(c, http.StatusBadRequest, "missing instruction")
		return
	}
	ctx := c.Request.Context()
	uid, tripID := middleware.CallerUID(c), c.Param("id")

	cover, _, err := h.trips.Cover(ctx, uid, tripID)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	asset, err := ai.ParseAsset(cover)
	if err != nil || cover == "" {
		writeError(c, http.StatusUnprocessableEntity, "trip has no editable cover")
		return
	}
	edited, err := h.editor.EditImage(ctx, asset, req.Instruction)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	if edited == nil {
		writeJSON(c, http.StatusOK, gin.H{"edited": false, "cover_image": cover})
		return
	}
	next := edited.String()
	if err := h.trips.SetCover(ctx, uid, tripID, next); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"edited": true, "cover_image": next})
}

func dayParam(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("n"))
	if err != nil || n < 1 {
		writeError(c, http.StatusBadRequest, "day must be a positive number")
		return 0, false
	}
	return n, true
}

// AddActivity handles POST /api/trips/:id/days/:n/activities.
func (h *TripHandler) AddActivity(c *gin.Context) {
	n, ok := dayParam(c)
	if !ok {
		return
	}
	var in trip.ActivityInput
	if err := c.ShouldBindJSON(&in); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	a, err := h.trips.AddActivity(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), n, in)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusCreated, a)
}

// DeleteActivity handles DELETE /api/activities/:id.
func (h *TripHandler) DeleteActivity(c *gin.Context) {
	if err := h.trips.DeleteActivity(c.Request.Context(), middleware.CallerUID(c), c.Param("id")); err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ToggleBooking handles POST /api/activities/:id/booking.
func (h *TripHandler) ToggleBooking(c *gin.Context) {
	booked, err := h.trips.ToggleBooked(c.Request.Context(), middleware.CallerUID(c), c.Param("id"))
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{"is_booked": booked})
}

// DayRoute handles GET /api/trips/:id/days/:n/route.
func (h *TripHandler) DayRoute(c *gin.Context) {
	n, ok := dayParam(c)
	if !ok {
		return
	}
	sum, err := h.trips.DayRoute(c.Request.Context(), middleware.CallerUID(c), c.Param("id"), n)
	if err != nil {
		writeServiceError(c, h.log, err)
		return
	}
	writeJSON(c, http.StatusOK, gin.H{
		"legs":             sum.Legs,
		"total_minutes":    int(sum.TotalDuration.Round(time.Minute).Minutes()),
		"total_kilometers": float64(sum.TotalMeters) / 1000,
	})
}
