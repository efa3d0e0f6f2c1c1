package homeassistant

import (
	"encoding/json"
	"time"
)

// WebSocket API message types.
const (
	msgAuthRequired = "auth_required"
	msgAuth         = "auth"
	msgAuthOK       = "auth_ok"
	msgAuthInvalid  = "auth_invalid"
	msgResult       = "result"
	msgEvent        = "event"
	msgPing         = "ping"
	msgPong         = "pong"

	cmdSubscribeEvents = "subscribe_events"
	cmdGetStates       = "get_states"

	eventStateChanged = "state_changed"
)

// incoming is the union of every server message the client reads.
type incoming struct {
	ID        int             `json:"id,omitempty"`
	Type      string          `json:"type"`
	Success   bool            `json:"success,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *commandError   `json:"error,omitempty"`
	Event     json.RawMessage `json:"event,omitempty"`
	HAVersion string          `json:"ha_version,omitempty"`
	Message   string          `json:"message,omitempty"`
}

type commandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type authMessage struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

type command struct {
	ID        int    `json:"id"`
	Type      string `json:"type"`
	EventType string `json:"event_type,omitempty"`
}

// stateObject is an entity state as Home Assistant serialises it.
type stateObject struct {
	EntityID    string         `json:"entity_id"`
	State       string         `json:"state"`
	Attributes  map[string]any `json:"attributes"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

func (o stateObject) snapshot() Snapshot {
	return Snapshot{
		EntityID:    o.EntityID,
		State:       o.State,
		Attributes:  o.Attributes,
		LastChanged: o.LastChanged,
		LastUpdated: o.LastUpdated,
	}
}

type eventMessage struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

type stateChangedData struct {
	EntityID string       `json:"entity_id"`
	OldState *stateObject `json:"old_state"`
	NewState *stateObject `json:"new_state"`
}
