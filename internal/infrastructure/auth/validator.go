package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// PrincipalClaims represent the subset of JWT claims we care about.
type PrincipalClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	Email     string
	Name      string
	Role      string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Validator verifies a raw bearer token.
type Validator interface {
	Validate(ctx context.Context, rawToken string) (*PrincipalClaims, error)
}

// HMACValidator validates HS256 tokens signed with a shared secret.
type HMACValidator struct {
	secret    []byte
	issuer    string
	audience  string
	clockSkew time.Duration
}

// NewHMACValidator returns a validator for tokens signed with secret. issuer and audience are
// checked only when set.
func NewHMACValidator(secret, issuer, audience string, clockSkew time.Duration) (*HMACValidator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	return &HMACValidator{
		secret:    []byte(secret),
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
	}, nil
}

func (v *HMACValidator) Validate(_ context.Context, rawToken string) (*PrincipalClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(rawToken, jwt.MapClaims{}, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return principalFromClaims(mapClaims)
}

// principalFromClaims reads identity claims. Tokens minted by the legacy backend carry the user id
// in both sub and user_id.
func principalFromClaims(mapClaims jwt.MapClaims) (*PrincipalClaims, error) {
	sub := firstNonEmpty(claimString(mapClaims["sub"]), claimString(mapClaims["user_id"]))
	if sub == "" {
		return nil, errors.New("sub claim missing")
	}

	var audiences []string
	switch val := mapClaims["aud"].(type) {
	case string:
		audiences = append(audiences, val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				audiences = append(audiences, s)
			}
		}
	}

	return &PrincipalClaims{
		Subject:   sub,
		Issuer:    claimString(mapClaims["iss"]),
		Audience:  audiences,
		Email:     claimString(mapClaims["email"]),
		Name:      claimString(mapClaims["name"]),
		Role:      claimString(mapClaims["role"]),
		ExpiresAt: jwtNumericTime(mapClaims["exp"]),
		IssuedAt:  jwtNumericTime(mapClaims["iat"]),
	}, nil
}

func jwtNumericTime(value any) time.Time {
	switch timeValue := value.(type) {
	case float64:
		return time.Unix(int64(timeValue), 0).UTC()
	case int64:
		return time.Unix(timeValue, 0).UTC()
	case json.Number:
		if unixTime, err := timeValue.Int64(); err == nil {
			return time.Unix(unixTime, 0).UTC()
		}
	}
	return time.Time{}
}

func claimString(value any) string {
	if str, ok := value.(string); ok {
		return str
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
