// Package onebot defines the unified OneBot12-style data contract emitted by
// platform adapters: events, message segments, and API call results.
package onebot

import "encoding/json"

// EventType is the normalized event category.
type EventType string

// Normalized event categories.
const (
	EventMessage EventType = "message"
	EventNotice  EventType = "notice"
	EventRequest EventType = "request"
	EventUnknown EventType = "unknown"
)

// Self identifies the bot account an event belongs to. UserID may be empty:
// the Telegram update stream does not carry the bot's own identity, so it is
// filled in by the layer that owns the authenticated client.
type Self struct {
	Platform string `json:"platform"`
	UserID   string `json:"user_id"`
}

// Event is a normalized, platform-agnostic event record. Standard OneBot12
// fields are typed; platform-specific extension fields live in Extra and are
// flattened into the top-level JSON object on marshal, so the wire shape is
// the flat map downstream consumers expect.
type Event struct {
	ID         string    `json:"id"`
	Time       int64     `json:"time"`
	Type       EventType `json:"type"`
	DetailType string    `json:"detail_type,omitempty"`
	Platform   string    `json:"platform"`
	Self       Self      `json:"self"`

	MessageID    string    `json:"message_id,omitempty"`
	Message      []Segment `json:"message,omitempty"`
	AltMessage   string    `json:"alt_message,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	UserNickname string    `json:"user_nickname,omitempty"`
	GroupID      string    `json:"group_id,omitempty"`
	ChannelID    string    `json:"channel_id,omitempty"`
	Comment      string    `json:"comment,omitempty"`

	// Warning is set on unknown events to describe the unrecognized shape.
	Warning string `json:"warning,omitempty"`

	// Extra holds platform-prefixed extension fields (e.g. telegram_raw).
	// Keys that collide with standard fields are ignored on marshal.
	Extra map[string]any `json:"-"`
}

// SetExtra records a platform extension field, allocating the map if needed.
func (e *Event) SetExtra(key string, value any) {
	if e.Extra == nil {
		e.Extra = make(map[string]any)
	}
	e.Extra[key] = value
}

// MarshalJSON implements json.Marshaler. Extension fields are merged into
// the top-level object; standard fields always win on key collision.
func (e Event) MarshalJSON() ([]byte, error) {
	type alias Event
	base, err := json.Marshal(alias(e))
	if err != nil {
		return nil, err
	}
	if len(e.Extra) == 0 {
		return base, nil
	}

	var obj map[string]any
	if err := json.Unmarshal(base, &obj); err != nil {
		return nil, err
	}
	for k, v := range e.Extra {
		if _, taken := obj[k]; !taken {
			obj[k] = v
		}
	}
	return json.Marshal(obj)
}
