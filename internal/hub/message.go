package hub

import (
	"time"

	"github.com/soar/padcursor/internal/gamepad"
)

// WSMessage represents a WebSocket message sent from server to client.
type WSMessage struct {
	Type         string                `json:"type"`                   // "full", "delta", "event", "controller_selected", "error"
	Seq          int64                 `json:"seq"`                    // Sequence number for ordering
	Timestamp    int64                 `json:"timestamp"`              // Unix timestamp in milliseconds
	Event        string                `json:"event,omitempty"`        // Event name for type "event"
	Data         *gamepad.Snapshot     `json:"data,omitempty"`         // Controller state for type "full" or "event"
	Changes      *gamepad.DeltaChanges `json:"changes,omitempty"`      // Changed fields for type "delta"
	ControllerID int                   `json:"controllerId,omitempty"` // Selection for type "controller_selected"
	Error        string                `json:"error,omitempty"`
}

// NewFullMessage creates a "full" type message containing complete controller state.
func NewFullMessage(seq int64, state *gamepad.Snapshot) *WSMessage {
	return &WSMessage{
		Type:      "full",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Data:      state,
	}
}

// NewDeltaMessage creates a "delta" type message containing only changed fields.
func NewDeltaMessage(seq int64, changes *gamepad.DeltaChanges) *WSMessage {
	return &WSMessage{
		Type:      "delta",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Changes:   changes,
	}
}

// NewEventMessage creates an "event" type message for attach and detach.
func NewEventMessage(seq int64, event string, state *gamepad.Snapshot) *WSMessage {
	return &WSMessage{
		Type:      "event",
		Seq:       seq,
		Timestamp: time.Now().UnixMilli(),
		Event:     event,
		Data:      state,
	}
}

// NewControllerSelectedMessage confirms a select_controller command.
func NewControllerSelectedMessage(id int) *WSMessage {
	return &WSMessage{
		Type:         "controller_selected",
		Timestamp:    time.Now().UnixMilli(),
		ControllerID: id,
	}
}

func NewErrorMessage(reason string) *WSMessage {
	return &WSMessage{
		Type:      "error",
		Timestamp: time.Now().UnixMilli(),
		Error:     reason,
	}
}

// ClientMessage represents a message sent from the client to the server.
type ClientMessage struct {
	Type    string `json:"type"`
	ID      int    `json:"id"`
	Enabled *bool  `json:"enabled,omitempty"`
}
