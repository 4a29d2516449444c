// @title           AlumUnity Messaging API
// @version         1.0
// @description     Direct messaging between alumni: conversations, read receipts, search,
// @description     typing indicators, presence and a realtime websocket channel.

// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/alumunity/messaging-api/internal/config"
	"github.com/alumunity/messaging-api/internal/domain"
	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/infrastructure"
	"github.com/alumunity/messaging-api/internal/infrastructure/crontab"
	"github.com/alumunity/messaging-api/internal/infrastructure/logger"
	"github.com/alumunity/messaging-api/internal/infrastructure/observability"
	"github.com/alumunity/messaging-api/internal/infrastructure/realtime"
	"github.com/alumunity/messaging-api/internal/infrastructure/redis"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/messaginghandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/presencehandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/routes"
	messagingroute "github.com/alumunity/messaging-api/internal/interfaces/httpserver/routes/messaging"
)

const presenceHookTimeout = 5 * time.Second

// Application holds the long running components.
type Application struct {
	httpServer *httpserver.HTTPServer
	hub        *realtime.Hub
	crontab    *crontab.Crontab
	presence   presence.Service
	stores     *infrastructure.Stores
	redis      *redis.Client
	log        zerolog.Logger
}

// NewApplication creates a new application instance.
func NewApplication(
	httpServer *httpserver.HTTPServer,
	hub *realtime.Hub,
	cron *crontab.Crontab,
	presenceService presence.Service,
	stores *infrastructure.Stores,
	redisClient *redis.Client,
	log zerolog.Logger,
) *Application {
	return &Application{
		httpServer: httpServer,
		hub:        hub,
		crontab:    cron,
		presence:   presenceService,
		stores:     stores,
		redis:      redisClient,
		log:        log,
	}
}

// Start runs the hub, the presence sweep and the HTTP server until ctx ends.
func (a *Application) Start(ctx context.Context) error {
	a.hub.SetHooks(realtime.ConnectionHooks{
		OnConnect:    a.presenceHook(presence.StatusOnline),
		OnDisconnect: a.presenceHook(presence.StatusOffline),
	})
	a.hub.SetInboundHandler(realtime.NewInboundHandler(a.presence, a.log))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		a.hub.Run(egCtx)
		return nil
	})
	eg.Go(func() error {
		return a.crontab.Run(egCtx)
	})
	eg.Go(func() error {
		return a.httpServer.Run(egCtx)
	})

	err := eg.Wait()
	a.close()
	return err
}

// presenceHook records the status of a user whose first socket opened or last socket closed.
func (a *Application) presenceHook(status presence.Status) func(ctx context.Context, userID string) {
	return func(ctx context.Context, userID string) {
		hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), presenceHookTimeout)
		defer cancel()
		if _, err := a.presence.UpdatePresence(hookCtx, userID, status, nil); err != nil {
			a.log.Warn().Err(err).Str("status", string(status)).Msg("failed to record socket presence")
		}
	}
}

func (a *Application) close() {
	if err := a.stores.Close(); err != nil {
		a.log.Error().Err(err).Msg("failed to close database")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error().Err(err).Msg("failed to close redis")
		}
	}
}

func main() {
	loadEnvFiles()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log := logger.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := observability.Setup(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize observability")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	app, err := buildApplication(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build application")
	}

	log.Info().
		Str("service", cfg.ServiceName).
		Int("port", cfg.HTTPPort).
		Str("environment", cfg.Environment).
		Bool("mock_mode", app.stores.MockMode).
		Msg("starting application")

	if err := app.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("application stopped with error")
	}

	log.Info().Msg("application exited cleanly")
}

// buildApplication wires the dependency graph declared in wire.go.
func buildApplication(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Application, error) {
	stores, err := infrastructure.ProvideStores(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	redisClient, err := infrastructure.ProvideRedis(ctx, cfg, log)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}
	validator, err := infrastructure.ProvideAuthValidator(ctx, cfg, log)
	if err != nil {
		_ = stores.Close()
		return nil, err
	}

	hub := infrastructure.ProvideHub(cfg, redisClient, log)
	publisher := infrastructure.ProvidePublisher(hub)
	redactor := domain.ProvideRedactor(cfg)

	messagingService := domain.ProvideMessagingService(infrastructure.ProvideMessagingStore(stores), publisher, redactor, log)
	presenceService := domain.ProvidePresenceService(infrastructure.ProvidePresenceStore(stores), messagingService, publisher, cfg, log)

	route := messagingroute.NewMessagingRoute(
		messaginghandler.NewMessagingHandler(messagingService),
		presencehandler.NewPresenceHandler(presenceService),
		hub,
		routes.ProvideResponseWriter(stores, log),
	)
	httpServer := httpserver.New(cfg, log, route, validator, stores.Messaging, redactor)

	cron := infrastructure.ProvideCrontab(presenceService, infrastructure.ProvideLocker(redisClient), cfg, log)

	return NewApplication(httpServer, hub, cron, presenceService, stores, redisClient, log), nil
}

func loadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
