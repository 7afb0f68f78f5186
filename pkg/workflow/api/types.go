package api

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// Mode tags a conversation turn or a server reply with its direction.
type Mode string

const (
	ModeChatRequest    Mode = "CHAT_REQUEST"
	ModeChatResponse   Mode = "CHAT_RESPONSE"
	ModeScreenResponse Mode = "SCREEN_RESPONSE"
	ModePollRequest    Mode = "POLL_REQUEST"
	ModePollResponse   Mode = "POLL_RESPONSE"
)

// State is the execution state reported inside a response payload.
type State string

const (
	StateOK        State = "OK"
	StateRunning   State = "RUNNING"
	StateError     State = "ERROR"
	StatePartialOK State = "PARTIAL_OK"
)

// Terminal reports whether a state ends a polling loop. Unrecognized states
// are not terminal so that newer engine versions don't break older clients.
func (s State) Terminal() bool {
	switch s {
	case StateOK, StateError, StatePartialOK:
		return true
	}
	return false
}

// Turn is one message exchanged within a session. The nodeId/field/assetId
// triple is set only when answering a screen request, and always together.
type Turn struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
	Mode      Mode   `json:"mode"`
	NodeID    string `json:"nodeId,omitempty"`
	Field     string `json:"field,omitempty"`
	AssetID   string `json:"assetId,omitempty"`
}

func (t Turn) MarshalZerologObject(e *zerolog.Event) {
	e.Str("session_id", t.SessionID)
	e.Str("mode", string(t.Mode))
	if t.NodeID != "" {
		e.Str("node_id", t.NodeID)
	}
	if t.AssetID != "" {
		e.Str("asset_id", t.AssetID)
	}
}

var _ zerolog.LogObjectMarshaler = Turn{}

// PollTurn addresses a background execution by its correlation id.
type PollTurn struct {
	SessionID string `json:"sessionId"`
	ID        string `json:"id"`
	Mode      Mode   `json:"mode"`
}

// ScreenAssetType describes how a screen expects its asset to be provided.
type ScreenAssetType string

const (
	ScreenAssetFileUpload     ScreenAssetType = "FILE_UPLOAD"
	ScreenAssetFilePointerURL ScreenAssetType = "FILE_POINTER_URL"
)

// ScreenAsset describes the asset a screen is asking for.
type ScreenAsset struct {
	Type    ScreenAssetType `json:"type"`
	Message string          `json:"message"`
}

// Screen is a server-declared requirement for an additional asset. The caller
// uploads the asset and resubmits a turn carrying NodeID, Field and the new
// asset id.
type Screen struct {
	NodeID string      `json:"nodeId"`
	Field  string      `json:"field"`
	Asset  ScreenAsset `json:"asset"`
}

// ExecutionOutput is the output portion of a per-execution poll result.
type ExecutionOutput struct {
	Response string          `json:"response,omitempty"`
	Type     string          `json:"type,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// Execution is one agent execution result. Converse responses carry the flat
// shape (Response/Type/Data); poll responses carry the richer shape with
// StartTime, State and a nested Output that gets projected back into the flat
// shape when the poll result is normalized.
type Execution struct {
	Response string          `json:"response,omitempty"`
	Type     string          `json:"type,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`

	StartTime string           `json:"startTime,omitempty"`
	State     State            `json:"state,omitempty"`
	Output    *ExecutionOutput `json:"output,omitempty"`
}

// Flatten projects a poll-shape execution into the flat converse shape,
// dropping the execution-level state and start time.
func (e Execution) Flatten() Execution {
	if e.Output == nil {
		return Execution{Response: e.Response, Type: e.Type, Data: e.Data}
	}
	return Execution{
		Response: e.Output.Response,
		Type:     e.Output.Type,
		Data:     e.Output.Data,
	}
}

// SocketMessage is one event delivered over the push channel. Types is an
// open enumeration; unknown tags must be tolerated.
type SocketMessage struct {
	WorkflowID string   `json:"workflowId"`
	SessionID  string   `json:"sessionId"`
	Message    string   `json:"message"`
	Types      []string `json:"types"`
}

func (m SocketMessage) MarshalZerologObject(e *zerolog.Event) {
	e.Str("workflow_id", m.WorkflowID)
	e.Str("session_id", m.SessionID)
	e.Strs("types", m.Types)
}

var _ zerolog.LogObjectMarshaler = SocketMessage{}

// HasType reports whether the message carries the given type tag.
func (m SocketMessage) HasType(t string) bool {
	for _, v := range m.Types {
		if v == t {
			return true
		}
	}
	return false
}

// UploadResult is the outcome of an asset upload.
type UploadResult struct {
	AssetID     string `json:"assetId"`
	ExecutionID string `json:"workflowExecutionId,omitempty"`
}

// ChatResponse is the normalized conversational response returned to callers
// for both immediate and polled completions.
type ChatResponse struct {
	ExecutionID   string      `json:"workflowExecutionId,omitempty"`
	Message       string      `json:"message"`
	State         State       `json:"state"`
	Mode          Mode        `json:"mode"`
	CorrelationID string      `json:"id,omitempty"`
	Executions    []Execution `json:"executions,omitempty"`
	Screens       []Screen    `json:"screens,omitempty"`
}

func (r ChatResponse) MarshalZerologObject(e *zerolog.Event) {
	e.Str("state", string(r.State))
	e.Str("mode", string(r.Mode))
	if r.CorrelationID != "" {
		e.Str("correlation_id", r.CorrelationID)
	}
	if len(r.Screens) > 0 {
		e.Int("num_screens", len(r.Screens))
	}
}

var _ zerolog.LogObjectMarshaler = ChatResponse{}
