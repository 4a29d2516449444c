package realtime

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/alumunity/messaging-api/internal/domain/presence"
	"github.com/alumunity/messaging-api/internal/utils/platformerrors"
)

// Frame is a client to server message on the socket.
type Frame struct {
	Type   string          `json:"type"`
	UserID string          `json:"user_id,omitempty"`
	Typing bool            `json:"typing,omitempty"`
	Status presence.Status `json:"status,omitempty"`
}

// Reply answers a frame.
type Reply struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// NewInboundHandler handles ping, typing and presence frames with the presence service.
func NewInboundHandler(svc presence.Service, log zerolog.Logger) InboundHandler {
	return func(ctx context.Context, userID string, raw []byte) any {
		var frame Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			return Reply{Type: "error", Error: "invalid_json"}
		}

		switch frame.Type {
		case "ping":
			return Reply{Type: "pong"}
		case "typing":
			if _, err := svc.SetTyping(ctx, userID, frame.UserID, frame.Typing); err != nil {
				return errorReply(err)
			}
			return nil
		case "presence":
			if _, err := svc.UpdatePresence(ctx, userID, frame.Status, nil); err != nil {
				return errorReply(err)
			}
			return nil
		default:
			log.Debug().Str("type", frame.Type).Msg("unsupported frame")
			return Reply{Type: "error", Error: "unsupported_type"}
		}
	}
}

func errorReply(err error) Reply {
	reply := Reply{Type: "error", Error: "request_failed"}
	if pe := platformerrors.GetPlatformError(err); pe != nil {
		reply.Error = platformerrors.ErrorTypeToString(pe.Type)
		reply.Code = pe.UUID
	}
	return reply
}
