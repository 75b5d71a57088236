package driver_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargeroute/chargeroute/internal/driver"
)

func TestTokenManager_IssueAndValidate(t *testing.T) {
	m := driver.NewTokenManager(driver.TokenConfig{Secret: "test-secret"})

	token, expiresAt, err := m.Issue("drv_123")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), expiresAt, time.Minute)

	id, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "drv_123", id)
}

func TestTokenManager_Expired(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := issued
	m := driver.NewTokenManager(driver.TokenConfig{
		Secret: "test-secret",
		TTL:    time.Hour,
		Now:    func() time.Time { return now },
	})

	token, _, err := m.Issue("drv_123")
	require.NoError(t, err)

	now = issued.Add(2 * time.Hour)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, driver.ErrTokenExpired)
}

func TestTokenManager_Invalid(t *testing.T) {
	m := driver.NewTokenManager(driver.TokenConfig{Secret: "test-secret"})
	other := driver.NewTokenManager(driver.TokenConfig{Secret: "other-secret"})
	foreignIssuer := driver.NewTokenManager(driver.TokenConfig{Secret: "test-secret", Issuer: "someone-else"})

	wrongKey, _, err := other.Issue("drv_123")
	require.NoError(t, err)
	wrongIssuer, _, err := foreignIssuer.Issue("drv_123")
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Issuer:    driver.DefaultIssuer,
		Subject:   "drv_123",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"malformed", "not.a.jwt"},
		{"wrong key", wrongKey},
		{"wrong issuer", wrongIssuer},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Validate(tt.token)
			assert.ErrorIs(t, err, driver.ErrInvalidToken)
		})
	}
}
