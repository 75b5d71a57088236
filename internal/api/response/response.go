// Package response writes JSON bodies and RFC 7807 problems with the
// request ID echoed in X-Request-Id.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/chargeroute/chargeroute/internal/api/middleware"
	"github.com/chargeroute/chargeroute/internal/api/models"
)

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if id := middleware.GetRequestID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
}

// JSON writes data with the given status. A nil data writes headers only.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with a Location header when location is set.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

// Status writes the standard problem for status.
func Status(w http.ResponseWriter, r *http.Request, status int, detail string) {
	Error(w, r, models.ProblemForStatus(status, middleware.GetRequestID(r.Context()), detail))
}

// BadRequest writes a 400 with optional field errors.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(middleware.GetRequestID(r.Context()), detail, errors))
}

func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusUnauthorized, detail)
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusNotFound, detail)
}

func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusConflict, detail)
}

func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusInternalServerError, detail)
}

// BadGateway reports an upstream provider failure.
func BadGateway(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusBadGateway, detail)
}

func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Status(w, r, http.StatusServiceUnavailable, detail)
}

// RateLimitInfo carries the X-RateLimit-* values for a 429.
type RateLimitInfo struct {
	Limit     int
	Remaining int
	// ResetAt is a Unix timestamp.
	ResetAt int64
	// RetryAfter is in seconds; zero omits the header.
	RetryAfter int
}

// TooManyRequests writes a 429 without rate limit headers.
func TooManyRequests(w http.ResponseWriter, r *http.Request, detail string) {
	TooManyRequestsWithInfo(w, r, detail, nil)
}

// TooManyRequestsWithInfo writes a 429 with rate limit headers when info is set.
func TooManyRequestsWithInfo(w http.ResponseWriter, r *http.Request, detail string, info *RateLimitInfo) {
	if info != nil {
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetAt, 10))
		if info.RetryAfter > 0 {
			h.Set("Retry-After", strconv.Itoa(info.RetryAfter))
		}
	}
	Status(w, r, http.StatusTooManyRequests, detail)
}
