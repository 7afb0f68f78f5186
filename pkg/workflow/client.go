package workflow

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/sse"
	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// DefaultVersion is the workflow version token used when none is configured.
const DefaultVersion = "0"

// CacheTarget configures one upload-cache workflow. APIKey and Version are
// optional and fall back to the client's primary key and general version.
type CacheTarget struct {
	WorkflowID string
	APIKey     string
	Version    string
}

// Client talks to one workflow of the engine. All operations return
// *api.Error on failure so callers can check a single error shape.
type Client struct {
	httpClient *http.Client

	baseURL    string
	socketURL  string
	apiKey     string
	workflowID string
	version    string

	fileCache  CacheTarget
	textCache  CacheTarget
	tableCache CacheTarget

	pollPolicy PollPolicy

	reconnectMaxAttempts int
	reconnectDelay       int
	autoReconnect        bool

	subscriberOnce sync.Once
	subscriber     *sse.Subscriber
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

func WithSocketURL(socketURL string) ClientOption {
	return func(c *Client) {
		c.socketURL = socketURL
	}
}

func WithAPIKey(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func WithWorkflowID(workflowID string) ClientOption {
	return func(c *Client) {
		c.workflowID = workflowID
	}
}

func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

func WithFileCache(target CacheTarget) ClientOption {
	return func(c *Client) {
		c.fileCache = target
	}
}

func WithTextCache(target CacheTarget) ClientOption {
	return func(c *Client) {
		c.textCache = target
	}
}

func WithTableCache(target CacheTarget) ClientOption {
	return func(c *Client) {
		c.tableCache = target
	}
}

func WithPollPolicy(policy PollPolicy) ClientOption {
	return func(c *Client) {
		c.pollPolicy = policy
	}
}

// WithReconnectPolicy bounds the event subscriber's reconnection behavior.
// delayMs is the fixed wait between attempts.
func WithReconnectPolicy(maxAttempts int, delayMs int, auto bool) ClientOption {
	return func(c *Client) {
		c.reconnectMaxAttempts = maxAttempts
		c.reconnectDelay = delayMs
		c.autoReconnect = auto
	}
}

// NewClient creates a workflow client. The zero configuration is usable for
// tests; real callers set at least the base URL, workflow id and api key.
func NewClient(options ...ClientOption) *Client {
	ret := &Client{
		httpClient:           &http.Client{},
		version:              DefaultVersion,
		pollPolicy:           DefaultPollPolicy,
		reconnectMaxAttempts: 10,
		reconnectDelay:       3000,
		autoReconnect:        true,
	}

	for _, o := range options {
		o(ret)
	}

	return ret
}

// Converse submits a single turn and resolves its completion, polling the
// background execution when the engine answers RUNNING with a correlation id.
func (c *Client) Converse(ctx context.Context, turn api.Turn) (*api.ChatResponse, error) {
	if err := validateTurn(turn); err != nil {
		return nil, err
	}
	return c.converse(ctx, []api.Turn{turn})
}

// ConverseContext submits a multi-turn conversation context. The turns are
// sent in array order inside a single request body.
func (c *Client) ConverseContext(ctx context.Context, turns []api.Turn) (*api.ChatResponse, error) {
	if _, err := validateContext(turns); err != nil {
		return nil, err
	}
	return c.converse(ctx, turns)
}

func (c *Client) converse(ctx context.Context, turns []api.Turn) (*api.ChatResponse, error) {
	sessionID := turns[0].SessionID
	log.Debug().Str("session_id", sessionID).Int("num_turns", len(turns)).Msg("submitting conversation turns")

	envelope, status, err := c.doInvoke(ctx, c.workflowID, newConverseBody(turns))
	if err != nil {
		return nil, err
	}

	classification := envelope.Classify()
	log.Debug().
		Str("session_id", sessionID).
		Str("state", string(classification.State)).
		Str("correlation_id", classification.CorrelationID).
		Msg("classified converse response")

	switch {
	case classification.State == api.StateError:
		return nil, api.NewProtocolError(status, classification.ErrorText)
	case classification.State == api.StateRunning && classification.CorrelationID != "":
		return c.pollUntilDone(ctx, sessionID, classification.CorrelationID)
	default:
		return envelope.ChatResponse(), nil
	}
}

// Subscribe opens the push-event channel for a session using the client's
// socket configuration. One subscriber is shared across calls so reconnect
// tracking per session id survives independent subscriptions.
func (c *Client) Subscribe(ctx context.Context, sessionID string, handlers sse.Handlers) *sse.Subscription {
	c.subscriberOnce.Do(func() {
		c.subscriber = sse.NewSubscriber(sse.Config{
			HTTPClient:           c.httpClient,
			SocketURL:            c.socketURL,
			WorkflowID:           c.workflowID,
			APIKey:               c.apiKey,
			MaxReconnectAttempts: c.reconnectMaxAttempts,
			ReconnectDelay:       time.Duration(c.reconnectDelay) * time.Millisecond,
			AutoReconnect:        c.autoReconnect,
		})
	})
	return c.subscriber.Subscribe(ctx, sessionID, handlers)
}
