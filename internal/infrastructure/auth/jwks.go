package auth

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

const (
	jwksInitialRetryInterval   = time.Second
	jwksInitialRetryMaxBackoff = 10 * time.Second
	jwksInitialRetryTimeout    = 2 * time.Minute
	jwksRefreshInterval        = 5 * time.Minute
)

// JWKSValidator validates RS256 tokens against a remote key set, such as a Keycloak realm.
type JWKSValidator struct {
	issuer    string
	audience  string
	jwksURL   string
	clockSkew time.Duration
	log       zerolog.Logger
	jwks      atomic.Pointer[keyfunc.JWKS]
	refresh   atomic.Pointer[error]
}

// NewJWKSValidator fetches the key set, retrying with backoff until ctx ends or the retry window
// closes.
func NewJWKSValidator(ctx context.Context, jwksURL, issuer, audience string, clockSkew time.Duration, log zerolog.Logger) (*JWKSValidator, error) {
	if jwksURL == "" {
		return nil, errors.New("jwks url is required")
	}
	v := &JWKSValidator{
		issuer:    issuer,
		audience:  audience,
		jwksURL:   jwksURL,
		clockSkew: clockSkew,
		log:       log.With().Str("component", "jwks-validator").Logger(),
	}
	if err := v.initJWKS(ctx); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *JWKSValidator) initJWKS(ctx context.Context) error {
	options := keyfunc.Options{
		Ctx: ctx,
		RefreshErrorHandler: func(err error) {
			v.refresh.Store(&err)
			v.log.Error().Err(err).Msg("jwks refresh failed")
		},
		RefreshInterval:   jwksRefreshInterval,
		RefreshUnknownKID: true,
	}

	backoff := jwksInitialRetryInterval
	deadline := time.Now().Add(jwksInitialRetryTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	for attempt := 1; ; attempt++ {
		jwks, err := keyfunc.Get(v.jwksURL, options)
		if err == nil {
			v.refresh.Store(nil)
			v.jwks.Store(jwks)
			return nil
		}

		v.log.Warn().
			Err(err).
			Str("jwks_url", v.jwksURL).
			Int("attempt", attempt).
			Msg("initial jwks fetch failed, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch jwks: %w", ctx.Err())
		case <-time.After(backoff):
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("fetch jwks: %w", err)
		}
		backoff = min(backoff*2, jwksInitialRetryMaxBackoff)
	}
}

func (v *JWKSValidator) Validate(_ context.Context, rawToken string) (*PrincipalClaims, error) {
	jwks := v.jwks.Load()
	if jwks == nil {
		return nil, errors.New("jwks not initialised")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithLeeway(v.clockSkew),
		jwt.WithIssuer(v.issuer),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.NewParser(opts...).ParseWithClaims(rawToken, jwt.MapClaims{}, jwks.Keyfunc)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return principalFromClaims(mapClaims)
}

// Ready reports whether the key set loaded and the last refresh succeeded.
func (v *JWKSValidator) Ready() bool {
	return v.jwks.Load() != nil && v.refresh.Load() == nil
}
