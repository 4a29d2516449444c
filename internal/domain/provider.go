package domain

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/utils/redact"
)

// ProvideMessagingService provides the messaging service.
func ProvideMessagingService(
	store messaging.Store,
	publisher event.Publisher,
	redactor *redact.Redactor,
	log zerolog.Logger,
) messaging.Service {
	return messaging.NewService(store, publisher, redactor, log)
}

// ProvidePresenceService provides the presence service.
func ProvidePresenceService(
	store presence.Store,
	messagingService messaging.Service,
	publisher event.Publisher,
	cfg *config.Config,
	log zerolog.Logger,
) presence.Service {
	return presence.NewService(store, messagingService, publisher, presence.Settings{
		TypingTTL:  cfg.TypingIndicatorTTL,
		StaleAfter: cfg.PresenceStaleAfter,
	}, log)
}

// ProvideRedactor provides the log redactor.
func ProvideRedactor(cfg *config.Config) *redact.Redactor {
	return redact.New(cfg.LogPIILevel, cfg.ServiceName)
}

// ServiceProvider provides all domain services.
var ServiceProvider = wire.NewSet(
	ProvideRedactor,
	ProvideMessagingService,
	ProvidePresenceService,
)
