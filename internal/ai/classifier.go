package ai

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorClassifier recognises provider-specific failure signatures.
type ErrorClassifier interface {
	// ModelAccessDenied reports whether err means the current key cannot use
	// the requested model, so rotating the key may help.
	ModelAccessDenied(err error) bool
}

// StatusCoder is implemented by provider errors that carry an HTTP status.
type StatusCoder interface {
	StatusCode() int
}

// GeminiClassifier matches Gemini's 404 / "Requested entity was not found".
type GeminiClassifier struct{}

func (GeminiClassifier) ModelAccessDenied(err error) bool {
	if err == nil {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) && sc.StatusCode() == http.StatusNotFound {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Requested entity was not found") || strings.Contains(msg, "404")
}
