package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alumunity/messaging-api/internal/config"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func TestHMACValidator(t *testing.T) {
	ctx := context.Background()
	v, err := NewHMACValidator("s3cret", "", "", time.Second)
	require.NoError(t, err)

	exp := time.Now().Add(time.Hour).Unix()

	t.Run("legacy user_id claim", func(t *testing.T) {
		raw := signHS256(t, "s3cret", jwt.MapClaims{"user_id": "u-1", "email": "a@alumni.edu", "role": "student", "exp": exp})
		claims, err := v.Validate(ctx, raw)
		require.NoError(t, err)
		assert.Equal(t, "u-1", claims.Subject)
		assert.Equal(t, "student", claims.Role)
		assert.Equal(t, time.Unix(exp, 0).UTC(), claims.ExpiresAt)
	})

	t.Run("wrong secret", func(t *testing.T) {
		raw := signHS256(t, "other", jwt.MapClaims{"sub": "u-1", "exp": exp})
		_, err := v.Validate(ctx, raw)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		raw := signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-1", "exp": time.Now().Add(-time.Hour).Unix()})
		_, err := v.Validate(ctx, raw)
		assert.Error(t, err)
	})

	t.Run("missing exp", func(t *testing.T) {
		raw := signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-1"})
		_, err := v.Validate(ctx, raw)
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		raw := signHS256(t, "s3cret", jwt.MapClaims{"email": "a@alumni.edu", "exp": exp})
		_, err := v.Validate(ctx, raw)
		assert.ErrorContains(t, err, "sub claim missing")
	})
}

func TestHMACValidatorChecksIssuerAndAudience(t *testing.T) {
	v, err := NewHMACValidator("s3cret", "alumunity", "messaging", time.Second)
	require.NoError(t, err)
	exp := time.Now().Add(time.Hour).Unix()

	ok := signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-1", "iss": "alumunity", "aud": "messaging", "exp": exp})
	claims, err := v.Validate(context.Background(), ok)
	require.NoError(t, err)
	assert.Equal(t, []string{"messaging"}, claims.Audience)

	bad := signHS256(t, "s3cret", jwt.MapClaims{"sub": "u-1", "iss": "elsewhere", "aud": "messaging", "exp": exp})
	_, err = v.Validate(context.Background(), bad)
	assert.Error(t, err)
}

func TestNewHMACValidatorRequiresSecret(t *testing.T) {
	_, err := NewHMACValidator("  ", "", "", 0)
	assert.Error(t, err)
}

func TestJWKSValidator(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"kid": "test-key",
				"alg": "RS256",
				"use": "sig",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	t.Cleanup(jwksServer.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	v, err := NewJWKSValidator(ctx, jwksServer.URL, "https://auth.alumunity.dev/realms/alumni", "", time.Second, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, v.Ready())

	sign := func(claims jwt.MapClaims) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		tok.Header["kid"] = "test-key"
		raw, err := tok.SignedString(key)
		require.NoError(t, err)
		return raw
	}

	claims, err := v.Validate(ctx, sign(jwt.MapClaims{
		"sub":  "kc-user",
		"iss":  "https://auth.alumunity.dev/realms/alumni",
		"name": "Ada",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}))
	require.NoError(t, err)
	assert.Equal(t, "kc-user", claims.Subject)
	assert.Equal(t, "Ada", claims.Name)

	_, err = v.Validate(ctx, sign(jwt.MapClaims{
		"sub": "kc-user",
		"iss": "https://someone-else",
		"exp": time.Now().Add(time.Hour).Unix(),
	}))
	assert.Error(t, err)
}

func TestNewValidator(t *testing.T) {
	v, err := NewValidator(context.Background(), &config.Config{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = NewValidator(context.Background(), &config.Config{AuthEnabled: true, JWTSecret: "s3cret"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &HMACValidator{}, v)
}
