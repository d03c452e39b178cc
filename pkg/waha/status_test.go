package waha

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNormalizeStatus_RawStates(t *testing.T) {
	tests := []struct {
		raw  string
		want UIState
	}{
		{"WORKING", StateConnected},
		{"authenticated", StateConnected},
		{"Ready", StateConnected},
		{"STARTING", StateConnecting},
		{"initializing", StateConnecting},
		{"STOPPED", StateDisconnected},
		{"FAILED", StateDisconnected},
		{"SCAN_QR_CODE", StateDisconnected},
		{"something-new", StateDisconnected},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			status := NormalizeStatus(&Result{Success: true, Data: map[string]interface{}{"status": tt.raw}})
			assert.Equal(t, tt.want, status.UIState)
			assert.Equal(t, tt.raw, status.RawState)
		})
	}
}

func TestNormalizeStatus_Shapes(t *testing.T) {
	status := NormalizeStatus(&Result{Success: true, Data: map[string]interface{}{"state": "WORKING"}})
	assert.Equal(t, StateConnected, status.UIState)

	status = NormalizeStatus(&Result{Success: true, Data: map[string]interface{}{"status": "STOPPED", "state": "WORKING"}})
	assert.Equal(t, StateDisconnected, status.UIState)

	status = NormalizeStatus(&Result{Success: true, Data: map[string]interface{}{"engine": "WEBJS"}})
	assert.Equal(t, StateDisconnected, status.UIState)

	status = NormalizeStatus(&Result{Success: true, Data: nil})
	assert.Equal(t, StateDisconnected, status.UIState)

	status = NormalizeStatus(&Result{Success: true, Data: map[string]interface{}{"status": "SCAN_QR_CODE"}})
	assert.Equal(t, "Waiting for QR scan", status.Message)
}

func TestNormalizeStatus_Failures(t *testing.T) {
	status := NormalizeStatus(&Result{Success: false, StatusCode: http.StatusNotFound, ErrorMessage: "API returned error code: 404"})
	assert.Equal(t, StateDisconnected, status.UIState)
	assert.Equal(t, map[string]interface{}{"error": "Session not found", "statusCode": http.StatusNotFound}, status.Details)

	status = NormalizeStatus(&Result{Success: false, StatusCode: http.StatusBadGateway, ErrorMessage: "API returned error code: 502"})
	assert.Equal(t, StateError, status.UIState)
	assert.Equal(t, "API returned error code: 502", status.Message)

	status = NormalizeStatus(&Result{Success: false, Err: &Error{Kind: KindTransport, Err: errors.New("dial tcp: refused")}, ErrorMessage: "request failed: dial tcp: refused"})
	assert.Equal(t, StateError, status.UIState)

	assert.Equal(t, StateError, NormalizeStatus(nil).UIState)
}

func TestNormalizeStatus_IsTotal(t *testing.T) {
	valid := map[UIState]bool{StateConnected: true, StateConnecting: true, StateDisconnected: true, StateError: true}

	rapid.Check(t, func(t *rapid.T) {
		res := &Result{
			Success:    rapid.Bool().Draw(t, "success"),
			StatusCode: rapid.IntRange(0, 599).Draw(t, "code"),
		}
		if res.Success {
			key := rapid.SampledFrom([]string{"status", "state", "other"}).Draw(t, "key")
			res.Data = map[string]interface{}{key: rapid.String().Draw(t, "raw")}
		}

		status := NormalizeStatus(res)
		if !valid[status.UIState] {
			t.Fatalf("unexpected ui state %q", status.UIState)
		}
		if !res.Success && res.StatusCode != http.StatusNotFound && status.UIState != StateError {
			t.Fatalf("failed call mapped to %q", status.UIState)
		}
	})
}

func TestCheckStatus_SessionNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/default/status", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Session not found"}`))
	})

	status, res := client.CheckStatus(context.Background())
	assert.Equal(t, StateDisconnected, status.UIState)
	require.False(t, res.Success)
	assert.Equal(t, KindDomain, KindOf(res.Err))
	assert.ErrorIs(t, res.Err, ErrSessionAbsent)
}
