package driver_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/chargeroute/chargeroute/internal/driver"
	"github.com/chargeroute/chargeroute/internal/geo"
)

var registeredAt = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) *driver.Service {
	t.Helper()
	now := func() time.Time { return registeredAt }
	return driver.NewService(driver.ServiceConfig{
		Repository: driver.NewInMemoryRepository(),
		Tokens:     driver.NewTokenManager(driver.TokenConfig{Secret: "test-secret", Now: now}),
		Logger:     zerolog.Nop(),
		BcryptCost: bcrypt.MinCost,
		Now:        now,
	})
}

func validInput() driver.RegisterInput {
	return driver.RegisterInput{
		Name:     "Asha Rao",
		Email:    "Asha@Example.com ",
		Phone:    "+91 98450 00000",
		Password: "correct-horse",
		Vehicle: &driver.VehicleInfo{
			Make:               "Tata",
			Model:              "Nexon EV",
			BatteryCapacityKWh: 40.5,
			MaxRangeKm:         465,
			ConnectorType:      "CCS2",
		},
	}
}

func TestService_Register(t *testing.T) {
	svc := newService(t)

	session, err := svc.Register(context.Background(), validInput())
	require.NoError(t, err)

	d := session.Driver
	assert.Regexp(t, `^drv_`, d.ID)
	assert.Equal(t, "asha@example.com", d.Email)
	assert.NotEqual(t, "correct-horse", d.PasswordHash)
	assert.Equal(t, "CCS2", d.Preferences.PreferredConnector)
	assert.Equal(t, float64(driver.DefaultMaxDistanceKm), d.Preferences.MaxDistanceKm)
	assert.Equal(t, registeredAt, d.CreatedAt)
	assert.Equal(t, registeredAt.Add(driver.DefaultTokenTTL), session.ExpiresAt)

	id, err := svc.ValidateToken(session.Token)
	require.NoError(t, err)
	assert.Equal(t, d.ID, id)
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	_, err = svc.Register(ctx, validInput())
	assert.ErrorIs(t, err, driver.ErrDriverExists)

	samePhone := validInput()
	samePhone.Email = "other@example.com"
	_, err = svc.Register(ctx, samePhone)
	assert.ErrorIs(t, err, driver.ErrDriverExists)
}

func TestService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*driver.RegisterInput)
		field  string
	}{
		{"missing name", func(in *driver.RegisterInput) { in.Name = "  " }, "name"},
		{"bad email", func(in *driver.RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"email without domain dot", func(in *driver.RegisterInput) { in.Email = "a@localhost" }, "email"},
		{"short password", func(in *driver.RegisterInput) { in.Password = "1234567" }, "password"},
		{"negative range", func(in *driver.RegisterInput) { in.Vehicle.MaxRangeKm = -1 }, "vehicleInfo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(t)
			in := validInput()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			var verr *driver.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			require.Len(t, verr.Errors, 1)
			assert.Equal(t, tt.field, verr.Errors[0].Field)
		})
	}
}

func TestService_Login(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	session, err := svc.Login(ctx, "ASHA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.Driver.ID, session.Driver.ID)
	assert.NotEmpty(t, session.Token)

	_, err = svc.Login(ctx, "asha@example.com", "wrong-password")
	assert.ErrorIs(t, err, driver.ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, driver.ErrInvalidCredentials)
}

func TestService_UpdateLocation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	session, err := svc.Register(ctx, validInput())
	require.NoError(t, err)

	d, err := svc.UpdateLocation(ctx, session.Driver.ID, driver.LocationInput{
		Point:   geo.Point{Lon: 77.5946, Lat: 12.9716},
		Address: " MG Road ",
	})
	require.NoError(t, err)
	require.NotNil(t, d.CurrentLocation)
	assert.Equal(t, "MG Road", d.CurrentLocation.Address)
	assert.Equal(t, registeredAt, d.CurrentLocation.UpdatedAt)

	got, err := svc.Get(ctx, session.Driver.ID)
	require.NoError(t, err)
	assert.Equal(t, 12.9716, got.CurrentLocation.Point.Lat)

	_, err = svc.UpdateLocation(ctx, session.Driver.ID, driver.LocationInput{Point: geo.Point{Lon: 200, Lat: 0}})
	var verr *driver.ValidationError
	assert.True(t, errors.As(err, &verr))

	_, err = svc.UpdateLocation(ctx, "drv_missing", driver.LocationInput{Point: geo.Point{Lon: 1, Lat: 1}})
	assert.ErrorIs(t, err, driver.ErrDriverNotFound)
}
