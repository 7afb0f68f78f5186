package sse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// recorder collects handler callbacks for assertions.
type recorder struct {
	mu         sync.Mutex
	opens      int
	messages   []api.SocketMessage
	errors     []error
	reconnects []int
	closes     int
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnOpen: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.opens++
		},
		OnMessage: func(msg api.SocketMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, msg)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errors = append(r.errors, err)
		},
		OnReconnect: func(attempt int) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.reconnects = append(r.reconnects, attempt)
		},
		OnClose: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closes++
		},
	}
}

func (r *recorder) snapshot() (int, []api.SocketMessage, []error, []int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opens,
		append([]api.SocketMessage{}, r.messages...),
		append([]error{}, r.errors...),
		append([]int{}, r.reconnects...),
		r.closes
}

func testConfig(serverURL string) Config {
	cfg := DefaultConfig()
	cfg.SocketURL = serverURL
	cfg.WorkflowID = "wf-1"
	cfg.APIKey = "test-key"
	cfg.ReconnectDelay = 5 * time.Millisecond
	return cfg
}

func waitDone(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case <-sub.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("subscription did not stop in time")
	}
}

func sseHandler(t *testing.T, frames ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		assert.Equal(t, "test-key", r.Header.Get("api-key"))

		flusher, ok := w.(http.Flusher)
		require.True(t, ok)
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		for _, frame := range frames {
			_, _ = fmt.Fprint(w, frame)
			flusher.Flush()
		}
	}
}

func TestSubscribeDeliversMessages(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		"event: connected\n\n",
		"data: {\"workflowId\":\"wf-1\",\"sessionId\":\"s1\",\"message\":\"working\",\"types\":[\"AGENT_STARTED\"]}\n\n",
	))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AutoReconnect = false
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	opens, messages, errs, _, _ := rec.snapshot()
	assert.Equal(t, 1, opens, "handshake frame fires the open callback once")
	require.Len(t, messages, 1)
	assert.Equal(t, "working", messages[0].Message)
	assert.True(t, messages[0].HasType("AGENT_STARTED"))
	assert.Empty(t, errs, "normal stream end is not an error")
}

func TestSubscribeTargetsSessionPath(t *testing.T) {
	var mu sync.Mutex
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotPath = r.URL.Path
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AutoReconnect = false

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", Handlers{})
	waitDone(t, sub)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/workflow-chat/wf-1/s1", gotPath)
}

func TestSubscribeSuppressesDuplicateHandshakeData(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		"event: connected\n\n",
		"data: connected to session s1\n\n",
		"data: {\"sessionId\":\"s1\",\"message\":\"real\",\"types\":[\"FINAL_RESULT\"]}\n\n",
	))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AutoReconnect = false
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	_, messages, _, _, _ := rec.snapshot()
	require.Len(t, messages, 1)
	assert.Equal(t, "real", messages[0].Message)
}

func TestSubscribeSwallowsMalformedJSON(t *testing.T) {
	server := httptest.NewServer(sseHandler(t,
		"event: connected\n\n",
		"data: {not json at all\n\n",
		"data: {\"sessionId\":\"s1\",\"message\":\"ok\",\"types\":[\"FINAL_RESULT\"]}\n\n",
	))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AutoReconnect = false
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	_, messages, errs, _, _ := rec.snapshot()
	require.Len(t, messages, 1, "malformed frame is skipped, stream continues")
	assert.Equal(t, "ok", messages[0].Message)
	assert.Empty(t, errs)
}

func TestReconnectNumberingAndBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxReconnectAttempts = 3
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	_, _, errs, reconnects, _ := rec.snapshot()
	assert.Equal(t, []int{1, 2, 3}, reconnects, "attempt numbering is 1-based and monotonic")
	require.NotEmpty(t, errs)
	apiErr := api.AsError(errs[0])
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
}

func TestReconnectCounterResetsOnSuccessfulOpen(t *testing.T) {
	var mu sync.Mutex
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requestCount++
		n := requestCount
		mu.Unlock()

		if n == 2 {
			// one successful open in the middle resets the counter
			flusher := w.(http.Flusher)
			w.WriteHeader(http.StatusOK)
			_, _ = fmt.Fprint(w, "event: connected\n\n")
			flusher.Flush()
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.MaxReconnectAttempts = 2
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	_, _, _, reconnects, _ := rec.snapshot()
	assert.Equal(t, []int{1, 1, 2}, reconnects)
}

func TestCloseStopsReconnection(t *testing.T) {
	streaming := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprint(w, "event: connected\n\n")
		flusher.Flush()
		close(streaming)
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())

	select {
	case <-streaming:
	case <-time.After(5 * time.Second):
		t.Fatal("stream never opened")
	}
	sub.Close()
	waitDone(t, sub)

	_, _, errs, reconnects, closes := rec.snapshot()
	assert.Empty(t, errs, "client-initiated abort is not reported as an error")
	assert.Empty(t, reconnects, "no reconnection after explicit close")
	assert.Equal(t, 1, closes)
}

func TestAutoReconnectDisabledStopsSilently(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.AutoReconnect = false
	rec := &recorder{}

	sub := NewSubscriber(cfg).Subscribe(context.Background(), "s1", rec.handlers())
	waitDone(t, sub)

	_, _, errs, reconnects, _ := rec.snapshot()
	require.Len(t, errs, 1, "the failure itself is still reported once")
	assert.Empty(t, reconnects)
}
