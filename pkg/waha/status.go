package waha

import (
	"context"
	"net/http"
	"strings"
)

type UIState string

const (
	StateConnected    UIState = "connected"
	StateConnecting   UIState = "connecting"
	StateDisconnected UIState = "disconnected"
	StateError        UIState = "error"
)

// SessionStatus is derived fresh from every status poll.
type SessionStatus struct {
	RawState string      `json:"raw_state"`
	UIState  UIState     `json:"status"`
	Message  string      `json:"message"`
	Details  interface{} `json:"details"`
}

// MapRawState maps a WAHA session state to the UI state and its message.
func MapRawState(raw string) (UIState, string) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "working", "authenticated", "ready":
		return StateConnected, "Connected and ready"
	case "starting", "initializing":
		return StateConnecting, "Starting..."
	case "stopped", "failed":
		return StateDisconnected, "Disconnected"
	case "scan_qr_code":
		return StateDisconnected, "Waiting for QR scan"
	}
	return StateDisconnected, "Disconnected"
}

// NormalizeStatus turns the result of a status call into a SessionStatus.
// It is total: every Result maps to exactly one UI state.
func NormalizeStatus(res *Result) SessionStatus {
	if res == nil {
		return SessionStatus{UIState: StateError, Message: "no response"}
	}

	if !res.Success {
		if res.StatusCode == http.StatusNotFound {
			return SessionStatus{
				UIState: StateDisconnected,
				Message: "Session not found, needs start",
				Details: map[string]interface{}{
					"error":      "Session not found",
					"statusCode": http.StatusNotFound,
				},
			}
		}
		return SessionStatus{
			UIState: StateError,
			Message: res.ErrorMessage,
			Details: res.DebugInfo,
		}
	}

	raw := rawState(res.Object())
	state, message := MapRawState(raw)
	return SessionStatus{
		RawState: raw,
		UIState:  state,
		Message:  message,
		Details:  res.Data,
	}
}

func rawState(body map[string]interface{}) string {
	for _, key := range []string{"status", "state"} {
		if v, ok := body[key].(string); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// CheckStatus fetches and normalizes the session status.
func (c *Client) CheckStatus(ctx context.Context) (SessionStatus, *Result) {
	res := c.Call(ctx, OpStatus, nil, nil)
	if res.StatusCode == http.StatusNotFound {
		res.Err = &Error{Kind: KindDomain, Op: OpStatus, StatusCode: http.StatusNotFound, Err: ErrSessionAbsent}
	}
	return NormalizeStatus(res), res
}
