package domain

import "encoding/json"

// Event types carried on the control plane. Distinct from chat content.
const (
	EventTypeDelete    = "delete"
	EventTypeBan       = "ban"
	EventTypeDeleteBan = "delete_ban"
	EventTypeIgnore    = "ignore"
	EventTypeChatLock  = "chat_lock"
	EventTypeSettings  = "settings"
)

// Event is a moderation or settings signal. Fire-and-forget from the
// sender's perspective; at most one acknowledgement arrives per event,
// interleaved with unrelated inbound frames.
type Event struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Channel string          `json:"channel,omitempty"`
}

// NewEvent marshals payload into an Event for the given room channel.
func NewEvent(eventType, channel string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data, Channel: channel}, nil
}
