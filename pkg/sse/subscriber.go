package sse

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// connectedEvent is the handshake frame the engine sends once the channel is
// established. It fires the open callback and is never delivered as a
// message.
const connectedEvent = "connected"

// Handlers receive the lifecycle and message callbacks of one subscription.
// Any handler may be nil.
type Handlers struct {
	OnOpen      func()
	OnMessage   func(msg api.SocketMessage)
	OnError     func(err error)
	OnReconnect func(attempt int)
	OnClose     func()
}

// Config describes where and how a Subscriber connects.
type Config struct {
	HTTPClient *http.Client
	SocketURL  string
	WorkflowID string
	APIKey     string

	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
	AutoReconnect        bool
}

// DefaultConfig returns the standard reconnection bounds: 10 attempts at a
// fixed 3 second delay.
func DefaultConfig() Config {
	return Config{
		HTTPClient:           &http.Client{},
		MaxReconnectAttempts: 10,
		ReconnectDelay:       3000 * time.Millisecond,
		AutoReconnect:        true,
	}
}

// sessionState tracks reconnection for one session id. Attempts persist
// across reconnect cycles until a successful open resets them.
type sessionState struct {
	attempts  int
	scheduled bool
}

// Subscriber maintains push-event channels, one per session id. Reconnect
// tracking is owned here, keyed by session, and cleared on close or on a
// successful open.
type Subscriber struct {
	config Config

	mu       sync.Mutex
	sessions map[string]*sessionState
}

func NewSubscriber(config Config) *Subscriber {
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &Subscriber{
		config:   config,
		sessions: make(map[string]*sessionState),
	}
}

// Subscription is the caller's handle on one live subscription.
type Subscription struct {
	sessionID string
	cancel    context.CancelFunc

	mu     sync.Mutex
	closed bool

	done chan struct{}
}

// Close aborts the in-flight connection, cancels any pending reconnect and
// stops all further callbacks except a final OnClose.
func (s *Subscription) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()
}

func (s *Subscription) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Done is closed once the subscription's read loop has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Subscribe opens the push-event channel for a session and starts delivering
// parsed messages to the handlers. Connection failures are reported through
// OnError and resolved by the reconnection policy, not returned here.
func (s *Subscriber) Subscribe(ctx context.Context, sessionID string, handlers Handlers) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		sessionID: sessionID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	go s.run(ctx, sessionID, handlers, sub)

	return sub
}

// run is the subscription's state machine: connect, read until the stream
// ends, then apply the reconnection policy. Reconnection re-enters the same
// connect routine in a loop rather than recursing.
func (s *Subscriber) run(ctx context.Context, sessionID string, handlers Handlers, sub *Subscription) {
	defer close(sub.done)

	for {
		err := s.connect(ctx, sessionID, handlers)

		if sub.isClosed() || ctx.Err() != nil {
			s.clearSession(sessionID)
			if handlers.OnClose != nil {
				handlers.OnClose()
			}
			return
		}

		if err != nil && handlers.OnError != nil {
			handlers.OnError(err)
		}

		if !s.config.AutoReconnect {
			s.clearSession(sessionID)
			return
		}

		attempt, ok := s.scheduleReconnect(sessionID)
		if !ok {
			// already scheduled elsewhere, or budget exhausted
			return
		}

		if handlers.OnReconnect != nil {
			handlers.OnReconnect(attempt)
		}

		select {
		case <-ctx.Done():
			s.clearSession(sessionID)
			if handlers.OnClose != nil {
				handlers.OnClose()
			}
			return
		case <-time.After(s.config.ReconnectDelay):
		}

		s.reconnectDone(sessionID)
	}
}

// connect performs one streaming request and reads frames until the stream
// ends. A nil return means the stream ended (normally or by abort); the
// reconnection policy decides what happens next.
func (s *Subscriber) connect(ctx context.Context, sessionID string, handlers Handlers) error {
	url := strings.TrimRight(s.config.SocketURL, "/") + "/workflow-chat/" + s.config.WorkflowID + "/" + sessionID

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return api.NewTransportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if s.config.APIKey != "" {
		req.Header.Set("api-key", s.config.APIKey)
	}

	resp, err := s.config.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// self-inflicted abort, not an error
			return nil
		}
		return api.NewTransportError(err)
	}
	defer func(Body io.ReadCloser) {
		_ = Body.Close()
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return api.NewProtocolError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	// the connection is structurally live from here on
	s.resetSession(sessionID)
	log.Debug().Str("session_id", sessionID).Msg("event stream connected")

	decoder := NewDecoder(resp.Body)
	for {
		frame, err := decoder.Next()
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return api.NewTransportError(err)
		}
		s.dispatch(frame, handlers)
	}
}

// dispatch routes one frame: handshake frames fire OnOpen, everything else
// with data is parsed as a SocketMessage. Malformed JSON is logged and
// swallowed so a bad event never kills the stream.
func (s *Subscriber) dispatch(frame Frame, handlers Handlers) {
	if frame.Event == connectedEvent {
		if handlers.OnOpen != nil {
			handlers.OnOpen()
		}
		return
	}
	if frame.Data == "" {
		return
	}
	if strings.HasPrefix(frame.Data, connectedEvent) {
		// duplicate handshake sent as data
		return
	}

	var msg api.SocketMessage
	if err := json.Unmarshal([]byte(frame.Data), &msg); err != nil {
		log.Warn().Err(err).Str("data", frame.Data).Msg("failed to parse socket message")
		return
	}

	if handlers.OnMessage != nil {
		handlers.OnMessage(msg)
	}
}

func (s *Subscriber) session(sessionID string) *sessionState {
	state, ok := s.sessions[sessionID]
	if !ok {
		state = &sessionState{}
		s.sessions[sessionID] = state
	}
	return state
}

// scheduleReconnect bumps the 1-based attempt counter for a session. It
// returns false when a reconnect is already scheduled (second trigger is a
// no-op) or when the attempt budget is exhausted, which clears the tracking
// silently.
func (s *Subscriber) scheduleReconnect(sessionID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.session(sessionID)
	if state.scheduled {
		return 0, false
	}
	if state.attempts >= s.config.MaxReconnectAttempts {
		log.Debug().
			Str("session_id", sessionID).
			Int("max_attempts", s.config.MaxReconnectAttempts).
			Msg("reconnect attempt budget exhausted")
		delete(s.sessions, sessionID)
		return 0, false
	}

	state.scheduled = true
	state.attempts++
	return state.attempts, true
}

func (s *Subscriber) reconnectDone(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session(sessionID).scheduled = false
}

// resetSession clears reconnect tracking after a successful open.
func (s *Subscriber) resetSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.session(sessionID)
	state.attempts = 0
	state.scheduled = false
}

func (s *Subscriber) clearSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}
