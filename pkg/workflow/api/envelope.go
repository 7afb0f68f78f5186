package api

import (
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultChannel is the single logical channel used by the engine's keyed
// payload maps.
const DefaultChannel = "default"

// Payload is the inner reply carried under json.default. The engine emits two
// physical shapes for the same logical payload: a direct shape with the
// fields at the top level, and an array shape where the first element of Data
// carries them. Normalize resolves the ambiguity once, at the boundary.
type Payload struct {
	Message    string      `json:"message,omitempty"`
	State      State       `json:"state,omitempty"`
	Mode       Mode        `json:"mode,omitempty"`
	ID         string      `json:"id,omitempty"`
	Logs       []string    `json:"logs,omitempty"`
	Executions []Execution `json:"executions,omitempty"`
	Screens    []Screen    `json:"screens,omitempty"`

	Data []Payload `json:"data,omitempty"`
}

// Normalize returns the canonical payload, preferring the array shape when
// its first element is present.
func (p Payload) Normalize() Payload {
	if len(p.Data) > 0 {
		inner := p.Data[0]
		inner.Data = nil
		return inner
	}
	p.Data = nil
	return p
}

// Envelope is the top-level reply of the workflow engine for converse, poll
// and upload operations. Most keyed maps are reserved and empty except for
// the one field an operation actually uses.
type Envelope struct {
	WorkflowExecutionID    string             `json:"workflowExecutionId,omitempty"`
	ErrorMessages          *string            `json:"errorMessages,omitempty"`
	Data                   map[string]any     `json:"data,omitempty"`
	Strings                map[string]string  `json:"strings,omitempty"`
	Base64Files            map[string]string  `json:"base64Files,omitempty"`
	VectorDatabaseIndexIDs map[string]string  `json:"vectorDatabaseIndexIds,omitempty"`
	Metadata               map[string]any     `json:"metadata,omitempty"`
	JSON                   map[string]Payload `json:"json,omitempty"`
}

// Payload returns the normalized default-channel payload.
func (e *Envelope) Payload() Payload {
	return e.JSON[DefaultChannel].Normalize()
}

// AssetID returns the uploaded asset id carried in strings.default, if any.
func (e *Envelope) AssetID() (string, bool) {
	id, ok := e.Strings[DefaultChannel]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Classification is the (state, correlation id, error text) triple extracted
// from an envelope. Classifying the same envelope twice yields the same
// triple regardless of which physical shape it used.
type Classification struct {
	State         State
	CorrelationID string
	ErrorText     string
}

// Continue reports whether polling should keep going. Unknown states are
// treated as continue so that a newer engine state value never fails a
// running poll loop.
func (c Classification) Continue() bool {
	if c.State == StateRunning {
		return true
	}
	if !c.State.Terminal() {
		log.Warn().Str("state", string(c.State)).Msg("unexpected state in response, continuing to poll")
		return true
	}
	return false
}

// Classify extracts the classification triple from an envelope. A top-level
// errorMessages field takes precedence over the payload message as error
// text.
func (e *Envelope) Classify() Classification {
	p := e.Payload()

	errorText := p.Message
	if e.ErrorMessages != nil && *e.ErrorMessages != "" {
		errorText = *e.ErrorMessages
	}

	return Classification{
		State:         p.State,
		CorrelationID: p.ID,
		ErrorText:     errorText,
	}
}

// ChatResponse normalizes a converse payload into the shape returned to the
// caller.
func (e *Envelope) ChatResponse() *ChatResponse {
	p := e.Payload()
	return &ChatResponse{
		ExecutionID:   e.WorkflowExecutionID,
		Message:       p.Message,
		State:         p.State,
		Mode:          p.Mode,
		CorrelationID: p.ID,
		Executions:    p.Executions,
		Screens:       p.Screens,
	}
}

// PollChatResponse translates a terminal poll payload into the conversational
// response shape: joined logs become the message and per-execution outputs
// are flattened.
func (e *Envelope) PollChatResponse() *ChatResponse {
	p := e.Payload()

	executions := make([]Execution, 0, len(p.Executions))
	for _, ex := range p.Executions {
		executions = append(executions, ex.Flatten())
	}

	return &ChatResponse{
		ExecutionID: e.WorkflowExecutionID,
		Message:     strings.Join(p.Logs, "\n"),
		State:       p.State,
		Mode:        ModeChatResponse,
		Executions:  executions,
	}
}

// PollErrorText picks the best available error text for a failed poll:
// joined logs first, then the top-level error field, then a generic fallback.
func (e *Envelope) PollErrorText() string {
	p := e.Payload()
	if len(p.Logs) > 0 {
		return strings.Join(p.Logs, "\n")
	}
	if e.ErrorMessages != nil && *e.ErrorMessages != "" {
		return *e.ErrorMessages
	}
	return "Request failed"
}
