package domain

import "time"

// ReplyRef is the quoted parent shown above a reply.
type ReplyRef struct {
	Username string `json:"username"`
	Text     string `json:"text"`
}

// Message is one unit of chat content received from the room channel.
// Immutable once received; display order is arrival order. Ids are not
// deduplicated downstream, so producers must use collision-resistant ids.
type Message struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Role      Role      `json:"role,omitempty"`
	ReplyTo   *ReplyRef `json:"reply_to,omitempty"`

	// Moderation / routing flags set by the backend.
	Filtered  bool   `json:"filtered,omitempty"`
	Private   bool   `json:"private,omitempty"`
	Recipient string `json:"recipient,omitempty"`
}
