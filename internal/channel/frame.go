package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/webinarium/roomchat/internal/domain"
)

// frameTypeMessage tags chat content; any other type is a control event.
const frameTypeMessage = "message"

// Frame is the wire envelope shared by both directions. The realtime
// backend owns the schema beyond this shape.
type Frame struct {
	Type    string          `json:"type"`
	Channel string          `json:"channel,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// decodeFrame splits raw transport data into a Message or an Event.
// Exactly one of the results is non-nil on success.
func decodeFrame(data []byte) (*domain.Message, *domain.Event, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("decoding frame: %w", err)
	}

	if f.Type == frameTypeMessage {
		var msg domain.Message
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return nil, nil, fmt.Errorf("decoding message frame: %w", err)
		}
		return &msg, nil, nil
	}

	return nil, &domain.Event{Type: f.Type, Data: f.Data, Channel: f.Channel}, nil
}

// encodeMessage wraps outgoing chat text in a message frame. The id is
// generated here so it is collision-resistant across senders.
func encodeMessage(identity domain.RoomIdentity, text string) ([]byte, error) {
	msg := domain.Message{
		ID:        uuid.NewString(),
		Username:  identity.DisplayName,
		Text:      text,
		CreatedAt: time.Now(),
		Role:      identity.Role,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Type: frameTypeMessage, Channel: identity.RoomID, Data: data})
}

// encodeEvent wraps a control event for the wire.
func encodeEvent(evt domain.Event) ([]byte, error) {
	return json.Marshal(Frame{Type: evt.Type, Channel: evt.Channel, Data: evt.Data})
}
