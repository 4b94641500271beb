package domain

import "encoding/json"

// Realtime envelope types. The wire format is a flat JSON object with a
// "type" discriminator; unknown types must be ignored for forward
// compatibility.
const (
	EventTypePing         = "ping"
	EventTypeOrderStatus  = "order_status"
	EventTypeOrderCreated = "order_created"
)

// Envelope is the raw realtime message. Order ids arrive as either a
// JSON string or number depending on the publisher; json.Number covers
// both.
type Envelope struct {
	Type          string      `json:"type"`
	OrderID       json.Number `json:"order_id,omitempty"`
	Status        string      `json:"status,omitempty"`
	BackendStatus string      `json:"backend_status,omitempty"`
}

// ResolveStatus picks the status an order_status envelope reports. A
// console-level status field wins over the backend code when both are
// present; an envelope carrying neither (or only garbage in the status
// field and no code) reports false.
func (e Envelope) ResolveStatus() (Status, bool) {
	if s := Status(e.Status); s.IsValid() {
		return s, true
	}
	if e.BackendStatus != "" {
		return MapBackendStatus(e.BackendStatus), true
	}
	return "", false
}
