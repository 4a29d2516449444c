package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/config"
)

const defaultClockSkew = 30 * time.Second

// NewValidator picks the token validator for cfg. It returns nil when auth is disabled.
func NewValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (Validator, error) {
	if !cfg.AuthEnabled {
		return nil, nil
	}
	if strings.TrimSpace(cfg.AuthJWKSURL) != "" {
		v, err := NewJWKSValidator(ctx, cfg.AuthJWKSURL, cfg.AuthIssuer, cfg.AuthAudience, defaultClockSkew, log)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
	v, err := NewHMACValidator(cfg.JWTSecret, cfg.AuthIssuer, cfg.AuthAudience, defaultClockSkew)
	if err != nil {
		return nil, err
	}
	return v, nil
}
