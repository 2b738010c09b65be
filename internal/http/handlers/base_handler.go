// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"nest/internal/ai"
	"nest/internal/logger"
	"nest/internal/maps"
	"nest/internal/modules/aiusage"
	"nest/internal/modules/itinerary"
	"nest/internal/modules/suggestion"
	"nest/internal/modules/trip"
)

type errorResponse struct {
	Error string `json:"error"`
	// Kind is the AI outcome for generative failures.
	Kind string `json:"kind,omitempty"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func badRequest(err error) bool {
	return errors.Is(err, trip.ErrBadRequest) ||
		errors.Is(err, suggestion.ErrBadRequest) ||
		errors.Is(err, itinerary.ErrBadRequest) ||
		errors.Is(err, ai.ErrDisallowedHost) ||
		errors.Is(err, ai.ErrUnsupportedURL) ||
		errors.Is(err, ai.ErrMediaTooLarge)
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case badRequest(err):
		return http.StatusBadRequest
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, maps.ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, aiusage.ErrInsufficientTokens):
		return http.StatusTooManyRequests
	case errors.Is(err, trip.ErrRoutesUnavailable):
		return http.StatusServiceUnavailable
	}
	switch ai.Classify(err) {
	case ai.OutcomeNotConfigured:
		return http.StatusServiceUnavailable
	case ai.OutcomeTimeout:
		return http.StatusGatewayTimeout
	case ai.OutcomeMalformed, ai.OutcomeProvider:
		return http.StatusBadGateway
	case ai.OutcomeCanceled:
		// client went away; nobody reads this
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs unexpected failures and hides their text.
func writeServiceError(c *gin.Context, log logger.Logger, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	if outcome := ai.Classify(err); outcome != ai.OutcomeOther {
		resp.Kind = outcome.String()
	}
	if status == http.StatusInternalServerError {
		log.Error("request failed", map[string]interface{}{"path": c.FullPath(), "error": err.Error()})
		resp.Error = "internal error"
	}
	writeJSON(c, status, resp)
}
