package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

type countingHandler struct {
	started, deltas, finals, errors int
}

func (h *countingHandler) HandleAgentStarted(ctx context.Context, msg api.SocketMessage) error {
	h.started++
	return nil
}

func (h *countingHandler) HandleContentDelta(ctx context.Context, msg api.SocketMessage) error {
	h.deltas++
	return nil
}

func (h *countingHandler) HandleFinalResult(ctx context.Context, msg api.SocketMessage) error {
	h.finals++
	return nil
}

func (h *countingHandler) HandleError(ctx context.Context, msg api.SocketMessage) error {
	h.errors++
	return nil
}

func TestDispatchRoutesByTypeTag(t *testing.T) {
	h := &countingHandler{}
	ctx := context.Background()

	assert.NoError(t, Dispatch(ctx, h, api.SocketMessage{Types: []string{TypeAgentStarted}}))
	assert.NoError(t, Dispatch(ctx, h, api.SocketMessage{Types: []string{TypeContentDelta}}))
	assert.NoError(t, Dispatch(ctx, h, api.SocketMessage{Types: []string{TypeFinalResult}}))
	assert.NoError(t, Dispatch(ctx, h, api.SocketMessage{Types: []string{TypeError}}))

	assert.Equal(t, 1, h.started)
	assert.Equal(t, 1, h.deltas)
	assert.Equal(t, 1, h.finals)
	assert.Equal(t, 1, h.errors)
}

func TestDispatchFirstRecognizedTagWins(t *testing.T) {
	h := &countingHandler{}

	err := Dispatch(context.Background(), h, api.SocketMessage{
		Types: []string{"SOMETHING_NEW", TypeContentDelta, TypeFinalResult},
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, h.deltas)
	assert.Equal(t, 0, h.finals)
}

func TestDispatchDropsKeepalive(t *testing.T) {
	h := &countingHandler{}
	err := Dispatch(context.Background(), h, api.SocketMessage{Types: []string{TypeKeepalive}})
	assert.NoError(t, err)
	assert.Equal(t, &countingHandler{}, h)
}

func TestDispatchIgnoresUnknownTags(t *testing.T) {
	h := &countingHandler{}
	err := Dispatch(context.Background(), h, api.SocketMessage{Types: []string{"SOMETHING_NEW"}})
	assert.NoError(t, err)
	assert.Equal(t, &countingHandler{}, h)
}
