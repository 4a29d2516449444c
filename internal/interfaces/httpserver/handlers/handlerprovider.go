package handlers

import (
	"github.com/google/wire"

	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/messaginghandler"
	"github.com/alumunity/messaging-api/internal/interfaces/httpserver/handlers/presencehandler"
)

var HandlerProvider = wire.NewSet(
	messaginghandler.NewMessagingHandler,
	presencehandler.NewPresenceHandler,
)
