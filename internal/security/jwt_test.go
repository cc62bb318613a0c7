package security

import (
	"community-platform/config"
	"community-platform/internal/model"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-length-123"

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	s, err := NewJWTService(&config.JWTConfig{
		SecretKey:       testSecret,
		Issuer:          "community-platform",
		AccessTokenTTL:  "15m",
		RefreshTokenTTL: "720h",
	})
	require.NoError(t, err)
	return s
}

func TestNewJWTService_InvalidTTL(t *testing.T) {
	_, err := NewJWTService(&config.JWTConfig{SecretKey: testSecret, AccessTokenTTL: "soon", RefreshTokenTTL: "720h"})
	assert.Error(t, err)
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	s := newTestJWTService(t)

	token, expiresAt, err := s.IssueAccessToken(42)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := s.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "42", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestVerifyAccessToken_Expired(t *testing.T) {
	s := newTestJWTService(t)
	issuedAt := time.Now().Add(-time.Hour)
	s.now = func() time.Time { return issuedAt }

	token, _, err := s.IssueAccessToken(1)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.VerifyAccessToken(token)
	assert.ErrorIs(t, err, model.ErrInvalidToken)
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	s := newTestJWTService(t)
	valid, _, err := s.IssueAccessToken(1)
	require.NoError(t, err)

	other := newTestJWTService(t)
	other.secretKey = []byte("another-secret-key-with-enough-length")
	foreign, _, err := other.IssueAccessToken(1)
	require.NoError(t, err)

	hs256, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:    1,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "community-platform",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongType, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:    1,
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "community-platform",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID:           1,
		TokenType:        accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "community-platform"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := map[string]string{
		"garbage":         "not.a.jwt",
		"empty":           "",
		"tampered":        valid[:len(valid)-2] + "xx",
		"foreign secret":  foreign,
		"wrong algorithm": hs256,
		"wrong type":      wrongType,
		"no expiry":       noExpiry,
		"refresh token":   strings.Repeat("A", 43),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, err := s.VerifyAccessToken(token)
				assert.ErrorIs(t, err, model.ErrInvalidToken)
			})
		})
	}
}

func TestIssueTokenPair(t *testing.T) {
	s := newTestJWTService(t)

	pair, refreshExpiresAt, err := s.IssueTokenPair(7)
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.Len(t, pair.RefreshToken, 43)
	assert.WithinDuration(t, time.Now().Add(720*time.Hour), refreshExpiresAt, 5*time.Second)
	assert.NoError(t, DecodeRefreshToken(pair.RefreshToken))

	second, _, err := s.IssueTokenPair(7)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, second.RefreshToken)
}

func TestDecodeRefreshToken(t *testing.T) {
	token, err := GenerateRefreshToken()
	require.NoError(t, err)
	assert.NoError(t, DecodeRefreshToken(token))

	assert.ErrorIs(t, DecodeRefreshToken(""), model.ErrInvalidToken)
	assert.ErrorIs(t, DecodeRefreshToken("not a token"), model.ErrInvalidToken)
	assert.ErrorIs(t, DecodeRefreshToken(token[:20]), model.ErrInvalidToken)
}

func TestHashRefreshToken(t *testing.T) {
	hash := HashRefreshToken("token")
	assert.Len(t, hash, 64)
	assert.Equal(t, hash, HashRefreshToken("token"))
	assert.NotEqual(t, hash, HashRefreshToken("token2"))
}
