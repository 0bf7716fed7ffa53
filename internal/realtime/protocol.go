// Package realtime carries the push channel: the client reconciler that keeps
// the view in step with kpi:update events, its websocket transport and the
// server-side hub of the development backend.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
)

// Event names on the wire.
const (
	EventConnected   = "connected"
	EventKPIUpdate   = "kpi:update"
	EventSubscribe   = "subscribe:sector"
	EventUnsubscribe = "unsubscribe:sector"
)

// Message is one JSON frame: {"event": ..., "data": ...}.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewMessage(event string, data any) (Message, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Data: b}, nil
}

// Conn is one established push connection. Send may be called concurrently
// with Receive; Close unblocks a pending Receive.
type Conn interface {
	Send(m Message) error
	Receive() (Message, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

var errNoSector = errors.New("missing sector")

// sectorOf accepts "marketing" as well as {"sector": "marketing"}.
func sectorOf(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s, nil
	}
	var obj struct {
		Sector string `json:"sector"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Sector != "" {
		return obj.Sector, nil
	}
	return "", errNoSector
}
