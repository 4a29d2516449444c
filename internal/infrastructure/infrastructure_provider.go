package infrastructure

import (
	"context"
	"fmt"

	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain/event"
	"github.com/alumunity/messaging-api/internal/domain/messaging"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure/auth"
	"github.com/alumunity/messaging-api/internal/infrastructure/crontab"
	"github.com/alumunity/messaging-api/internal/infrastructure/database"
	"github.com/alumunity/messaging-api/internal/infrastructure/database/transaction"
	"github.com/alumunity/messaging-api/internal/infrastructure/metrics"
	"github.com/alumunity/messaging-api/internal/infrastructure/realtime"
	"github.com/alumunity/messaging-api/internal/infrastructure/redis"
	"github.com/alumunity/messaging-api/internal/infrastructure/repository/fixturerepo"
	"github.com/alumunity/messaging-api/internal/infrastructure/repository/messagerepo"
	"github.com/alumunity/messaging-api/internal/infrastructure/repository/presencerepo"
)

// Stores bundles the persistence of both domains. In mock mode both point at the
// same fixture store.
type Stores struct {
	Messaging messaging.Store
	Presence  presence.Store
	MockMode  bool

	close func() error
}

// Close releases the database pool, if any.
func (s *Stores) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// ProvideStores connects the relational store. When the database is unreachable and
// MOCK_FALLBACK_ON_DB_ERROR is set, the fixture store takes over instead.
func ProvideStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	if cfg.UseMockDB {
		log.Warn().Msg("USE_MOCK_DB is set, serving from fixture store")
		return provideFixtureStores(ctx, cfg, log)
	}

	stores, err := provideDatabaseStores(cfg, log)
	if err == nil {
		metrics.SetMockMode(false)
		return stores, nil
	}
	if !cfg.MockFallbackOnDBError {
		return nil, err
	}

	log.Warn().Err(err).Msg("database unavailable, falling back to fixture store")
	return provideFixtureStores(ctx, cfg, log)
}

func provideDatabaseStores(cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	dbCfg := database.ConfigFrom(cfg)
	db, err := database.Connect(dbCfg, log)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql handle: %w", err)
	}

	if cfg.DBAutoMigrate {
		log.Info().Msg("running database migrations")
		if err := database.Migrate(db, dbCfg, log); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info().Msg("database migrations completed")
	}

	tx := transaction.NewDatabase(db)
	return &Stores{
		Messaging: messagerepo.NewRepository(tx),
		Presence:  presencerepo.NewRepository(tx),
		close:     sqlDB.Close,
	}, nil
}

func provideFixtureStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Stores, error) {
	store, err := fixturerepo.NewSeeded(ctx, cfg.MockFixturesPath, log)
	if err != nil {
		return nil, fmt.Errorf("seed fixture store: %w", err)
	}
	metrics.SetMockMode(true)
	return &Stores{Messaging: store, Presence: store, MockMode: true}, nil
}

// ProvideMessagingStore exposes the messaging store of stores.
func ProvideMessagingStore(stores *Stores) messaging.Store {
	return stores.Messaging
}

// ProvidePresenceStore exposes the presence store of stores.
func ProvidePresenceStore(stores *Stores) presence.Store {
	return stores.Presence
}

// ProvideRedis connects to REDIS_URL. It returns nil when redis is not configured.
func ProvideRedis(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		log.Info().Msg("REDIS_URL not set, realtime fan-out stays local")
		return nil, nil
	}
	return redis.NewClient(ctx, cfg.RedisURL, log)
}

// ProvideHub builds the realtime hub, sharing events through redis when available.
func ProvideHub(cfg *config.Config, client *redis.Client, log zerolog.Logger) *realtime.Hub {
	if client == nil {
		return realtime.NewHub(nil, cfg.CORSOrigins, log)
	}
	return realtime.NewHub(realtime.NewRedisBroker(client), cfg.CORSOrigins, log)
}

// ProvidePublisher counts domain events and pushes them to connected clients.
func ProvidePublisher(hub *realtime.Hub) event.Publisher {
	return metrics.NewEventRecorder(hub)
}

// ProvideLocker serializes the presence sweep through redis when available.
func ProvideLocker(client *redis.Client) crontab.Locker {
	if client == nil {
		return nil
	}
	return client
}

// ProvideCrontab schedules the presence sweep.
func ProvideCrontab(presenceService presence.Service, locker crontab.Locker, cfg *config.Config, log zerolog.Logger) *crontab.Crontab {
	return crontab.NewCrontab(presenceService, locker, cfg.PresenceSweepCron, log)
}

// ProvideAuthValidator returns nil when AUTH_ENABLED is false.
func ProvideAuthValidator(ctx context.Context, cfg *config.Config, log zerolog.Logger) (auth.Validator, error) {
	return auth.NewValidator(ctx, cfg, log)
}

// InfrastructureProvider provides all infrastructure dependencies.
var InfrastructureProvider = wire.NewSet(
	ProvideStores,
	ProvideMessagingStore,
	ProvidePresenceStore,
	ProvideRedis,
	ProvideHub,
	ProvidePublisher,
	ProvideLocker,
	ProvideCrontab,
	ProvideAuthValidator,
)
