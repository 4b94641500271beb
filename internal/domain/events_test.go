package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeDecodeNumericID(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"order_status","order_id":41,"backend_status":"READY_FOR_PICKUP"}`), &env))
	assert.Equal(t, EventTypeOrderStatus, env.Type)
	assert.Equal(t, "41", env.OrderID.String())
}

func TestEnvelopeDecodeStringID(t *testing.T) {
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(`{"type":"order_created","order_id":"ord-7a"}`), &env))
	assert.Equal(t, "ord-7a", env.OrderID.String())
}

func TestResolveStatusPrefersConsoleField(t *testing.T) {
	env := Envelope{Type: EventTypeOrderStatus, Status: "ready", BackendStatus: "COMPLETED"}
	got, ok := env.ResolveStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusReady, got)
}

func TestResolveStatusFallsBackToBackendCode(t *testing.T) {
	env := Envelope{Type: EventTypeOrderStatus, BackendStatus: "READY_FOR_PICKUP"}
	got, ok := env.ResolveStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusReady, got)

	// Garbage in the console field does not shadow a usable code.
	env = Envelope{Type: EventTypeOrderStatus, Status: "shrug", BackendStatus: "COOKING"}
	got, ok = env.ResolveStatus()
	assert.True(t, ok)
	assert.Equal(t, StatusPreparing, got)
}

func TestResolveStatusEmpty(t *testing.T) {
	_, ok := Envelope{Type: EventTypeOrderStatus}.ResolveStatus()
	assert.False(t, ok)
}
