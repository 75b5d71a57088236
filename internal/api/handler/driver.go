package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/chargeroute/chargeroute/internal/api/middleware"
	"github.com/chargeroute/chargeroute/internal/api/models"
	"github.com/chargeroute/chargeroute/internal/api/response"
	"github.com/chargeroute/chargeroute/internal/driver"
)

// DriverService is the subset of driver.Service used by the handlers.
type DriverService interface {
	Register(ctx context.Context, in driver.RegisterInput) (*driver.Session, error)
	Login(ctx context.Context, email, password string) (*driver.Session, error)
	Get(ctx context.Context, id string) (*driver.Driver, error)
	UpdateLocation(ctx context.Context, id string, in driver.LocationInput) (*driver.Driver, error)
}

// DriverHandler handles driver authentication and profile endpoints.
type DriverHandler struct {
	service      DriverService
	cookieSecure bool
}

// NewDriverHandler creates a new DriverHandler. cookieSecure marks the
// token cookie Secure and should be set behind TLS.
func NewDriverHandler(service DriverService, cookieSecure bool) *DriverHandler {
	return &DriverHandler{service: service, cookieSecure: cookieSecure}
}

// Register handles POST /v1/auth/register.
func (h *DriverHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	session, err := h.service.Register(r.Context(), driver.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		Vehicle:  fromVehicleModel(req.VehicleInfo),
	})
	if err != nil {
		writeDriverError(w, r, err)
		return
	}

	h.setTokenCookie(w, session.Token, session.ExpiresAt)
	response.Created(w, r, "/v1/drivers/me", toAuthResponse(session))
}

// Login handles POST /v1/auth/login.
func (h *DriverHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	session, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDriverError(w, r, err)
		return
	}

	h.setTokenCookie(w, session.Token, session.ExpiresAt)
	response.JSON(w, r, http.StatusOK, toAuthResponse(session))
}

// Logout handles POST /v1/auth/logout. Tokens are stateless, so this only
// clears the cookie.
func (h *DriverHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
	response.NoContent(w, r)
}

// GetMe handles GET /v1/drivers/me.
func (h *DriverHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	d, err := h.service.Get(r.Context(), GetDriverID(r.Context()))
	if err != nil {
		writeDriverError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toDriverModel(d))
}

// UpdateLocation handles PUT /v1/drivers/me/location.
func (h *DriverHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req models.LocationUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	point, err := pointFromCoordinates(req.Coordinates)
	if err != nil {
		response.BadRequest(w, r, "validation error", []models.FieldError{
			{Field: "coordinates", Message: err.Error()},
		})
		return
	}

	d, err := h.service.UpdateLocation(r.Context(), GetDriverID(r.Context()), driver.LocationInput{
		Point:   point,
		Address: req.Address,
	})
	if err != nil {
		writeDriverError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, toDriverModel(d))
}

func (h *DriverHandler) setTokenCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func toAuthResponse(s *driver.Session) models.AuthResponse {
	return models.AuthResponse{
		Driver:    toDriverModel(s.Driver),
		Token:     s.Token,
		ExpiresAt: models.Timestamp(s.ExpiresAt),
	}
}

func writeDriverError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *driver.ValidationError
	switch {
	case errors.As(err, &verr):
		response.BadRequest(w, r, "validation error", verr.Errors)
	case errors.Is(err, driver.ErrDriverExists):
		response.Conflict(w, r, "driver already exists")
	case errors.Is(err, driver.ErrInvalidCredentials):
		response.Unauthorized(w, r, "invalid email or password")
	case errors.Is(err, driver.ErrDriverNotFound):
		response.NotFound(w, r, "driver not found")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("driver request failed")
		response.InternalError(w, r, "failed to process driver request")
	}
}
