package domain

// Role selects presentation and privileges for a room participant.
// Closed set: nothing inherits from anything.
type Role string

const (
	RoleGuest     Role = "guest"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// IsOperator reports whether the role bypasses the admission gate.
func (r Role) IsOperator() bool {
	return r == RoleModerator || r == RoleAdmin
}

// RoomIdentity binds a user to one room for the lifetime of a channel
// session. Immutable: changing any field means a new identity and a new
// session.
type RoomIdentity struct {
	RoomID         string `json:"room_id"`
	UserIdentifier string `json:"user_id"`
	DisplayName    string `json:"display_name"`
	Role           Role   `json:"role"`
}

// Equal reports whether two identities describe the same session owner.
func (id RoomIdentity) Equal(other RoomIdentity) bool {
	return id == other
}
