package driver

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/chargeroute/chargeroute/internal/api/models"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// ServiceConfig holds configuration for the driver service.
type ServiceConfig struct {
	Repository Repository
	Tokens     *TokenManager
	Logger     zerolog.Logger

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int

	Now func() time.Time
}

// Service handles driver registration, login and profile updates.
type Service struct {
	repo       Repository
	tokens     *TokenManager
	logger     zerolog.Logger
	bcryptCost int
	now        func() time.Time
}

// Session is the result of a successful register or login.
type Session struct {
	Driver    *Driver
	Token     string
	ExpiresAt time.Time
}

// NewService creates a driver service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		repo:       cfg.Repository,
		tokens:     cfg.Tokens,
		logger:     cfg.Logger,
		bcryptCost: cfg.BcryptCost,
		now:        cfg.Now,
	}
}

// Register creates a driver account and issues a token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	var errs []models.FieldError
	if in.Name == "" {
		errs = append(errs, models.FieldError{Field: "name", Message: "name is required"})
	}
	if !validEmail(in.Email) {
		errs = append(errs, models.FieldError{Field: "email", Message: "Enter Valid email"})
	}
	if len(in.Password) < MinPasswordLength {
		errs = append(errs, models.FieldError{Field: "password", Message: "password minimum 8 characters"})
	}
	if in.Vehicle != nil && (in.Vehicle.BatteryCapacityKWh < 0 || in.Vehicle.MaxRangeKm < 0) {
		errs = append(errs, models.FieldError{Field: "vehicleInfo", Message: "battery capacity and range must not be negative"})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now().UTC()
	d := &Driver{
		ID:           "drv_" + uuid.New().String()[:22],
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		PasswordHash: string(hash),
		Vehicle:      in.Vehicle,
		Preferences: Preferences{
			MaxDistanceKm: DefaultMaxDistanceKm,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.Vehicle != nil {
		d.Preferences.PreferredConnector = in.Vehicle.ConnectorType
	}

	if err := s.repo.Create(ctx, d); err != nil {
		if errors.Is(err, ErrDriverExists) {
			return nil, err
		}
		return nil, fmt.Errorf("creating driver: %w", err)
	}

	s.logger.Info().Str("driver_id", d.ID).Msg("driver registered")
	return s.issue(d)
}

// Login checks credentials and issues a token. Unknown emails and wrong
// passwords both return ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	d, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrDriverNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("finding driver: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(d.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(d)
}

// Get returns a driver by ID.
func (s *Service) Get(ctx context.Context, id string) (*Driver, error) {
	return s.repo.Get(ctx, id)
}

// UpdateLocation records the driver's current position.
func (s *Service) UpdateLocation(ctx context.Context, id string, in LocationInput) (*Driver, error) {
	if err := in.Point.Validate(); err != nil {
		return nil, &ValidationError{Errors: []models.FieldError{{
			Field:   "coordinates",
			Message: "coordinates must be [longitude, latitude] within range",
		}}}
	}
	return s.repo.UpdateLocation(ctx, id, CurrentLocation{
		Point:     in.Point,
		Address:   strings.TrimSpace(in.Address),
		UpdatedAt: s.now().UTC(),
	})
}

// ValidateToken returns the driver ID carried by a token.
func (s *Service) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// TokenTTL returns the lifetime of issued tokens.
func (s *Service) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *Service) issue(d *Driver) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(d.ID)
	if err != nil {
		return nil, err
	}
	return &Session{Driver: d, Token: token, ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}
