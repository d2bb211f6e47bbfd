package server

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/placement-prep/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-jwt-signing-minimum-32-bytes"

func newTestTokenService(expirationHours int) *TokenService {
	return NewTokenService(&config.JWTConfig{Secret: testSecret, ExpirationHours: expirationHours})
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := newTestTokenService(24)
	id := uuid.New()

	token, err := svc.GenerateToken(id)
	require.NoError(t, err)
	assert.Len(t, strings.Split(token, "."), 3)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.SessionID)
	assert.Equal(t, id, claims.GetSessionID())
	assert.Equal(t, id.String(), claims.Subject)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func TestTokenService_Rejects(t *testing.T) {
	svc := newTestTokenService(24)
	id := uuid.New()

	otherKey := NewTokenService(&config.JWTConfig{Secret: "another-secret-key-entirely-different", ExpirationHours: 24})
	foreign, err := otherKey.GenerateToken(id)
	require.NoError(t, err)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		SessionID: id,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	})
	expiredStr, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongIssuer := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		SessionID:        id,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	})
	wrongIssuerStr, err := wrongIssuer.SignedString([]byte(testSecret))
	require.NoError(t, err)

	noSession := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		RegisteredClaims: jwt.RegisteredClaims{Issuer: tokenIssuer},
	})
	noSessionStr, err := noSession.SignedString([]byte(testSecret))
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{SessionID: id})
	noneStr, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr string
	}{
		{"empty", "", "empty"},
		{"garbage", "not.a.jwt", "malformed"},
		{"foreign signature", foreign, "signature"},
		{"expired", expiredStr, "expired"},
		{"wrong issuer", wrongIssuerStr, "failed to parse"},
		{"no session", noSessionStr, "not valid"},
		{"alg none", noneStr, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := svc.ValidateToken(tt.token)
			require.Error(t, err)
			assert.Nil(t, claims)
			if tt.wantErr != "" {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
