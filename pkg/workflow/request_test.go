package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

func TestInvokeURLShape(t *testing.T) {
	client := NewClient(WithBaseURL("https://engine.example.com/api/"), WithWorkflowID("wf-1"))

	assert.Equal(t, "https://engine.example.com/api/wf-1/0/invoke", client.invokeURL("wf-1", ""))
	assert.Equal(t, "https://engine.example.com/api/wf-1/0/invoke/status", client.invokeURL("wf-1", "status"))
}

func TestInvokeURLUsesGeneralVersion(t *testing.T) {
	client := NewClient(WithBaseURL("https://engine.example.com"), WithVersion("3"))
	assert.Equal(t, "https://engine.example.com/wf-1/3/invoke", client.invokeURL("wf-1", ""))
}

func TestVersionForCacheResource(t *testing.T) {
	client := NewClient(
		WithVersion("2"),
		WithFileCache(CacheTarget{WorkflowID: "cache-file", Version: "7"}),
		WithTextCache(CacheTarget{WorkflowID: "cache-text"}),
	)

	// cache with its own version
	assert.Equal(t, "7", client.versionFor("cache-file"))
	// cache without a version falls back to the general version
	assert.Equal(t, "2", client.versionFor("cache-text"))
	// non-cache resources use the general version
	assert.Equal(t, "2", client.versionFor("wf-1"))
}

func TestVersionForFallsBackToZero(t *testing.T) {
	client := NewClient(WithTextCache(CacheTarget{WorkflowID: "cache-text"}))
	client.version = ""
	assert.Equal(t, "0", client.versionFor("cache-text"))
}

func TestKeyForCacheResource(t *testing.T) {
	client := NewClient(
		WithAPIKey("primary"),
		WithFileCache(CacheTarget{WorkflowID: "cache-file", APIKey: "file-key"}),
		WithTextCache(CacheTarget{WorkflowID: "cache-text"}),
	)

	assert.Equal(t, "file-key", client.keyFor("cache-file"))
	assert.Equal(t, "primary", client.keyFor("cache-text"))
	assert.Equal(t, "primary", client.keyFor("wf-1"))
}

func TestConverseBodyWireShape(t *testing.T) {
	body := newConverseBody([]api.Turn{
		{SessionID: "s1", Message: "hello", Mode: api.ModeChatRequest},
	})

	payload, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"data":{"default":[{"sessionId":"s1","message":"hello","mode":"CHAT_REQUEST"}]}}`,
		string(payload))
}

func TestPollBodyWireShape(t *testing.T) {
	payload, err := json.Marshal(newPollBody("s1", "exec-1"))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"data":{"default":[{"sessionId":"s1","id":"exec-1","mode":"POLL_REQUEST"}]}}`,
		string(payload))
}

func TestContextTurnsSentInOrder(t *testing.T) {
	rs := newRecordingServer(t, okResponse)
	client := newTestClient(rs)

	_, err := client.ConverseContext(context.Background(), []api.Turn{
		{SessionID: "s1", Message: "first", Mode: api.ModeChatRequest},
		{SessionID: "s1", Message: "second", Mode: api.ModeChatResponse},
		{SessionID: "s1", Message: "third", Mode: api.ModeChatRequest},
	})
	require.NoError(t, err)

	turns := rs.Requests()[0].Body["data"].(map[string]interface{})["default"].([]interface{})
	require.Len(t, turns, 3)
	assert.Equal(t, "first", turns[0].(map[string]interface{})["message"])
	assert.Equal(t, "second", turns[1].(map[string]interface{})["message"])
	assert.Equal(t, "third", turns[2].(map[string]interface{})["message"])
}
