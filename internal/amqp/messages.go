package amqp

import (
	"encoding/json"
	"time"

	"timebill/internal/core"
)

// EntryEventMessage is the wire form of a core.EntryEvent
type EntryEventMessage struct {
	Type        string    `json:"type"`
	EntryID     string    `json:"entry_id"`
	Index       int       `json:"index"`
	Date        string    `json:"date"`
	Hours       float64   `json:"hours"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewEntryEventMessage builds a message from an event, stamping it now when
// the event carries no time.
func NewEntryEventMessage(ev core.EntryEvent) *EntryEventMessage {
	ts := ev.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &EntryEventMessage{
		Type:        string(ev.Type),
		EntryID:     ev.Entry.ID,
		Index:       ev.Index,
		Date:        ev.Entry.Date.String(),
		Hours:       ev.Entry.Hours,
		Description: ev.Entry.Description,
		Timestamp:   ts,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToEvent converts the message back to a domain event. A date that fails
// to parse is left zero.
func (m *EntryEventMessage) ToEvent() core.EntryEvent {
	d, _ := core.ParseDate(m.Date)
	return core.EntryEvent{
		Type:  core.EventType(m.Type),
		Index: m.Index,
		Entry: core.Entry{
			ID:          m.EntryID,
			Date:        d,
			Hours:       m.Hours,
			Description: m.Description,
		},
		At: m.Timestamp,
	}
}

// EntryEventMessageFromJSON creates a message from JSON bytes
func EntryEventMessageFromJSON(data []byte) (*EntryEventMessage, error) {
	var msg EntryEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
