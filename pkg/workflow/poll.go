package workflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// PollPolicy bounds a polling loop by attempt count and fixed interval.
type PollPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// DefaultPollPolicy is the conservative preset: 30 attempts, one per second.
var DefaultPollPolicy = PollPolicy{MaxAttempts: 30, Interval: 1000 * time.Millisecond}

// SlowPollPolicy trades latency for a longer budget: 100 attempts every five
// seconds, for workflows known to run long.
var SlowPollPolicy = PollPolicy{MaxAttempts: 100, Interval: 5000 * time.Millisecond}

// Poll drives the poll loop for a background execution until a terminal
// state, a transport failure or the attempt budget is exhausted. It is the
// explicit entry point for callers who kept a correlation id around; Converse
// calls it automatically on a RUNNING response.
func (c *Client) Poll(ctx context.Context, sessionID string, correlationID string) (*api.ChatResponse, error) {
	if sessionID == "" {
		return nil, api.NewValidationError("sessionId is required")
	}
	if correlationID == "" {
		return nil, api.NewValidationError("correlation id is required")
	}
	return c.pollUntilDone(ctx, sessionID, correlationID)
}

// pollUntilDone waits exactly one interval before every attempt, including
// the first. Attempts are strictly sequential; a transport failure ends the
// whole operation.
func (c *Client) pollUntilDone(ctx context.Context, sessionID string, correlationID string) (*api.ChatResponse, error) {
	policy := c.pollPolicy
	log.Debug().
		Str("session_id", sessionID).
		Str("correlation_id", correlationID).
		Int("max_attempts", policy.MaxAttempts).
		Dur("interval", policy.Interval).
		Msg("entering poll loop")

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, api.NewTransportError(ctx.Err())
		case <-time.After(policy.Interval):
		}

		envelope, status, err := c.doInvoke(ctx, c.workflowID, newPollBody(sessionID, correlationID))
		if err != nil {
			log.Debug().Err(err).Int("attempt", attempt).Msg("poll attempt failed at transport level")
			return nil, err
		}

		classification := envelope.Classify()
		if classification.Continue() {
			log.Debug().
				Int("attempt", attempt).
				Str("state", string(classification.State)).
				Msg("execution still running")
			continue
		}

		switch classification.State {
		case api.StateOK, api.StatePartialOK:
			log.Debug().Int("attempt", attempt).Str("state", string(classification.State)).Msg("poll loop finished")
			return envelope.PollChatResponse(), nil
		case api.StateError:
			return nil, api.NewProtocolError(status, envelope.PollErrorText())
		}
	}

	return nil, api.NewProtocolError(
		http.StatusRequestTimeout,
		fmt.Sprintf("Polling timed out after %d attempts", policy.MaxAttempts),
	)
}
