package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/helpers"
	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// Router fans socket messages out over an in-process pub/sub, for callers
// who would rather consume the push channel as a message bus than wire raw
// callbacks. Messages are published per-session: the topic is the session id.
type Router struct {
	logger     watermill.LoggerAdapter
	Publisher  message.Publisher
	Subscriber message.Subscriber
	router     *message.Router
}

type RouterOption func(*Router)

func WithLogger(logger watermill.LoggerAdapter) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

func WithVerbose(verbose bool) RouterOption {
	return func(r *Router) {
		if verbose {
			r.logger = helpers.NewWatermill(log.Logger)
		}
	}
}

func NewRouter(options ...RouterOption) (*Router, error) {
	ret := &Router{
		logger: watermill.NopLogger{},
	}

	for _, o := range options {
		o(ret)
	}

	goPubSub := gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)
	ret.Publisher = goPubSub
	ret.Subscriber = goPubSub

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, err
	}

	ret.router = router

	return ret, nil
}

// PublishSocketMessage publishes one socket message on its session's topic.
// It is shaped to plug directly into sse.Handlers.OnMessage.
func (r *Router) PublishSocketMessage(msg api.SocketMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal socket message")
		return
	}

	wmMsg := message.NewMessage(watermill.NewUUID(), payload)
	if err := r.Publisher.Publish(msg.SessionID, wmMsg); err != nil {
		log.Warn().Err(err).Str("session_id", msg.SessionID).Msg("failed to publish socket message")
	}
}

// AddHandler registers a no-publish handler on a session topic.
func (r *Router) AddHandler(name string, sessionID string, f func(msg *message.Message) error) {
	r.router.AddNoPublisherHandler(name, sessionID, r.Subscriber, f)
}

// AddDispatchHandler registers a handler that decodes socket messages and
// dispatches them by type tag. One malformed payload is logged, not fatal to
// the handler.
func (r *Router) AddDispatchHandler(name string, sessionID string, handler Handler) {
	r.AddHandler(name, sessionID, func(msg *message.Message) error {
		var socketMsg api.SocketMessage
		if err := json.Unmarshal(msg.Payload, &socketMsg); err != nil {
			log.Warn().Err(err).Str("message_id", msg.UUID).Msg("failed to parse socket message payload")
			return nil
		}
		return Dispatch(msg.Context(), handler, socketMsg)
	})
}

func (r *Router) Run(ctx context.Context) error {
	return r.router.Run(ctx)
}

func (r *Router) Running() chan struct{} {
	return r.router.Running()
}

func (r *Router) Close() error {
	log.Debug().Msg("closing socket message router")
	if err := r.Publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close pubsub")
	}
	return r.router.Close()
}
