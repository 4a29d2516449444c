package routes

import (
	"github.com/google/wire"
	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/infrastructure"
	"github.com/alumunity/messaging-api/internal/infrastructure/realtime"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/responses"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/routes/messaging"
)

// ProvideResponseWriter decorates envelopes while the fixture store is active.
func ProvideResponseWriter(stores *infrastructure.Stores, log zerolog.Logger) *responses.Writer {
	return responses.NewWriter(stores.MockMode, log)
}

var RouteProvider = wire.NewSet(
	ProvideResponseWriter,
	wire.Bind(new(messaging.SocketServer), new(*realtime.Hub)),
	messaging.NewMessagingRoute,
)
