package events

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// Socket message type tags. The enumeration is open: engines may send tags
// this SDK has never heard of, and those are logged and skipped, never
// treated as errors.
const (
	TypeAgentStarted = "AGENT_STARTED"
	TypeContentDelta = "CONTENT_DELTA"
	TypeFinalResult  = "FINAL_RESULT"
	TypeError        = "ERROR"
	TypeKeepalive    = "KEEPALIVE"
)

// Handler dispatches socket messages by type tag.
type Handler interface {
	HandleAgentStarted(ctx context.Context, msg api.SocketMessage) error
	HandleContentDelta(ctx context.Context, msg api.SocketMessage) error
	HandleFinalResult(ctx context.Context, msg api.SocketMessage) error
	HandleError(ctx context.Context, msg api.SocketMessage) error
}

// Dispatch routes a message to the handler method matching its first
// recognized type tag. Keepalives are dropped, unknown tags logged.
func Dispatch(ctx context.Context, handler Handler, msg api.SocketMessage) error {
	for _, t := range msg.Types {
		switch t {
		case TypeAgentStarted:
			return handler.HandleAgentStarted(ctx, msg)
		case TypeContentDelta:
			return handler.HandleContentDelta(ctx, msg)
		case TypeFinalResult:
			return handler.HandleFinalResult(ctx, msg)
		case TypeError:
			return handler.HandleError(ctx, msg)
		case TypeKeepalive:
			return nil
		}
	}

	log.Debug().Strs("types", msg.Types).Msg("unhandled socket message types")
	return nil
}
