package workflow

import (
	"github.com/go-go-golems/grillo/pkg/workflow/api"
)

// validateScreenFields enforces the all-or-nothing rule on the screen
// satisfaction triple: a turn either carries none of nodeId/field/assetId or
// all three.
func validateScreenFields(t api.Turn) *api.Error {
	set := 0
	if t.NodeID != "" {
		set++
	}
	if t.Field != "" {
		set++
	}
	if t.AssetID != "" {
		set++
	}
	if set != 0 && set != 3 {
		return api.NewValidationError("nodeId, field and assetId are required together")
	}
	return nil
}

// validateTurn checks a single submitted turn. SCREEN_RESPONSE is legal here
// but not inside a context array.
func validateTurn(t api.Turn) *api.Error {
	if t.SessionID == "" {
		return api.NewValidationError("sessionId is required")
	}
	if t.Message == "" {
		return api.NewValidationError("message is required")
	}
	switch t.Mode {
	case api.ModeChatRequest, api.ModeChatResponse, api.ModeScreenResponse:
	default:
		return api.NewValidationError("mode must be one of CHAT_REQUEST, CHAT_RESPONSE, SCREEN_RESPONSE, got %q", t.Mode)
	}
	return validateScreenFields(t)
}

// validateContext checks a multi-turn conversation context and returns the
// shared session id. Rules are applied in order; the first failure wins.
func validateContext(turns []api.Turn) (string, *api.Error) {
	if len(turns) == 0 {
		return "", api.NewValidationError("conversation context must not be empty")
	}

	sessionID := turns[0].SessionID
	for _, t := range turns {
		if t.SessionID == "" {
			return "", api.NewValidationError("sessionId is required on every turn")
		}
		if t.SessionID != sessionID {
			return "", api.NewValidationError("all turns must share the same sessionId")
		}
	}

	for _, t := range turns {
		if t.Message == "" {
			return "", api.NewValidationError("message is required on every turn")
		}
	}

	for i, t := range turns {
		switch t.Mode {
		case api.ModeChatRequest, api.ModeChatResponse:
		default:
			return "", api.NewValidationError("mode must be CHAT_REQUEST or CHAT_RESPONSE inside a conversation context, got %q", t.Mode)
		}
		if i > 0 && turns[i-1].Mode == t.Mode {
			return "", api.NewValidationError("consecutive turns must alternate between CHAT_REQUEST and CHAT_RESPONSE")
		}
	}

	for _, t := range turns {
		if err := validateScreenFields(t); err != nil {
			return "", err
		}
	}

	return sessionID, nil
}
