package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/webinarium/roomchat/internal/channel"
	"github.com/webinarium/roomchat/internal/domain"
)

// ErrNothingSelected guards the bulk actions that need a selection.
var ErrNothingSelected = errors.New("moderation: no messages selected")

// Sender submits control events on the live channel. Satisfied by
// *channel.Session and *channel.Manager.
type Sender interface {
	SendEvent(ctx context.Context, evt domain.Event) error
}

// SidePoster pushes settings events over the CMS HTTP side-channel,
// complementing the live transport. Satisfied by *backend.Client.
type SidePoster interface {
	PostEvent(ctx context.Context, roomID string, evt domain.Event) error
}

type deletePayload struct {
	IDs []string `json:"ids"`
}

type banPayload struct {
	Usernames []string `json:"usernames"`
}

type deleteBanPayload struct {
	IDs       []string `json:"ids"`
	Usernames []string `json:"usernames"`
}

type chatLockPayload struct {
	Locked bool `json:"locked"`
}

type settingPayload struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Coordinator is the client-side moderation reducer: it keeps the
// operator's selection and view toggles, consumes the room's message
// stream, and expresses every moderation action as an outgoing event.
// It never mutates message data directly; effects come back as events.
type Coordinator struct {
	roomID string
	sender Sender
	side   SidePoster

	mu           sync.Mutex
	list         []domain.Message
	messages     map[string]domain.Message
	selected     map[string]struct{}
	chatLocked   bool
	showFiltered bool
	showPrivate  bool
}

// NewCoordinator builds a coordinator for roomID. side may be nil when
// no HTTP side-channel is configured.
func NewCoordinator(roomID string, sender Sender, side SidePoster) *Coordinator {
	return &Coordinator{
		roomID:   roomID,
		sender:   sender,
		side:     side,
		messages: make(map[string]domain.Message),
		selected: make(map[string]struct{}),
	}
}

// --- channel.Consumer ---

// OnMessage appends to the view in arrival order. Duplicate ids are not
// deduplicated; each received payload keeps its own list entry, and the
// id map tracks the latest one for selection and author lookups.
func (c *Coordinator) OnMessage(msg domain.Message) {
	c.mu.Lock()
	c.list = append(c.list, msg)
	c.messages[msg.ID] = msg
	c.mu.Unlock()
}

// OnEvent applies inbound moderation effects to the local view.
func (c *Coordinator) OnEvent(evt domain.Event) {
	switch evt.Type {
	case domain.EventTypeDelete, domain.EventTypeDeleteBan:
		var p deletePayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			log.Printf("moderation: bad %s payload: %v", evt.Type, err)
			return
		}
		c.removeMessages(p.IDs)
	case domain.EventTypeChatLock:
		var p chatLockPayload
		if err := json.Unmarshal(evt.Data, &p); err != nil {
			log.Printf("moderation: bad chat_lock payload: %v", err)
			return
		}
		c.mu.Lock()
		c.chatLocked = p.Locked
		c.mu.Unlock()
	}
}

func (c *Coordinator) OnStatus(channel.Status) {}

func (c *Coordinator) OnTerminal(error) {}

// --- selection ---

// ToggleSelect adds or removes a message from the selection. Unknown
// ids are ignored and reported false.
func (c *Coordinator) ToggleSelect(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.messages[id]; !ok {
		return false
	}
	if _, ok := c.selected[id]; ok {
		delete(c.selected, id)
	} else {
		c.selected[id] = struct{}{}
	}
	return true
}

// Selected returns the selected ids in arrival order.
func (c *Coordinator) Selected() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.selected))
	seen := make(map[string]struct{}, len(c.selected))
	for _, msg := range c.list {
		if _, ok := c.selected[msg.ID]; !ok {
			continue
		}
		if _, dup := seen[msg.ID]; dup {
			continue
		}
		seen[msg.ID] = struct{}{}
		ids = append(ids, msg.ID)
	}
	return ids
}

// --- moderation actions ---

// DeleteSelected emits a delete event for the selection. The selection
// clears only once the event is submitted; on failure the operator
// keeps it so the action can be retried.
func (c *Coordinator) DeleteSelected(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	if err := c.emit(ctx, domain.EventTypeDelete, deletePayload{IDs: ids}); err != nil {
		return err
	}
	c.clearSelection()
	return nil
}

// BanSelected emits a ban for the authors of the selected messages. The
// selection is left as is; the ban's effect arrives as its own event.
func (c *Coordinator) BanSelected(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	return c.emit(ctx, domain.EventTypeBan, banPayload{Usernames: c.usernames(ids)})
}

// DeleteBanSelected deletes the selected messages and bans their
// authors in one event, then clears the selection.
func (c *Coordinator) DeleteBanSelected(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	payload := deleteBanPayload{IDs: ids, Usernames: c.usernames(ids)}
	if err := c.emit(ctx, domain.EventTypeDeleteBan, payload); err != nil {
		return err
	}
	c.clearSelection()
	return nil
}

// IgnoreSelected mutes the authors of the selected messages for this
// operator. No selection change.
func (c *Coordinator) IgnoreSelected(ctx context.Context) error {
	ids := c.Selected()
	if len(ids) == 0 {
		return ErrNothingSelected
	}
	return c.emit(ctx, domain.EventTypeIgnore, banPayload{Usernames: c.usernames(ids)})
}

// ToggleChatLock flips the room lock optimistically, then propagates it
// over the transport and the HTTP side-channel. A synchronous send
// failure reverts the flip.
func (c *Coordinator) ToggleChatLock(ctx context.Context) error {
	c.mu.Lock()
	c.chatLocked = !c.chatLocked
	locked := c.chatLocked
	c.mu.Unlock()

	err := c.emitSetting(ctx, domain.EventTypeChatLock, chatLockPayload{Locked: locked})
	if err != nil {
		c.mu.Lock()
		c.chatLocked = !locked
		c.mu.Unlock()
		return err
	}
	return nil
}

// PushSetting propagates a named room setting (banner, audio, ...) the
// same way chat lock travels.
func (c *Coordinator) PushSetting(ctx context.Context, name string, value any) error {
	return c.emitSetting(ctx, domain.EventTypeSettings, settingPayload{Name: name, Value: value})
}

// ChatLocked reports the current (optimistic) lock state.
func (c *Coordinator) ChatLocked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chatLocked
}

// --- display ---

func (c *Coordinator) SetShowFiltered(on bool) {
	c.mu.Lock()
	c.showFiltered = on
	c.mu.Unlock()
}

func (c *Coordinator) SetShowPrivate(on bool) {
	c.mu.Lock()
	c.showPrivate = on
	c.mu.Unlock()
}

// Visible returns the messages the given viewer should see, in arrival
// order. Operators see everything; for plain viewers filtered messages
// and other parties' private messages are hidden unless the matching
// toggle is on.
func (c *Coordinator) Visible(viewerName string, viewerRole domain.Role) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]domain.Message, 0, len(c.list))
	for _, msg := range c.list {
		if !viewerRole.IsOperator() {
			if msg.Filtered && !c.showFiltered {
				continue
			}
			if msg.Private && !c.showPrivate &&
				msg.Username != viewerName && msg.Recipient != viewerName {
				continue
			}
		}
		out = append(out, msg)
	}
	return out
}

// Badge maps a message role onto its display badge. Closed set, no
// inheritance: the role selects presentation and nothing else.
func Badge(role domain.Role) string {
	switch role {
	case domain.RoleModerator:
		return "moderator"
	case domain.RoleAdmin:
		return "admin"
	default:
		return "user"
	}
}

// --- internals ---

func (c *Coordinator) emit(ctx context.Context, eventType string, payload any) error {
	evt, err := domain.NewEvent(eventType, c.roomID, payload)
	if err != nil {
		return err
	}
	return c.sender.SendEvent(ctx, evt)
}

// emitSetting sends over the transport and mirrors to the side-channel.
// The side-channel is best-effort: its failures are logged, never
// returned.
func (c *Coordinator) emitSetting(ctx context.Context, eventType string, payload any) error {
	evt, err := domain.NewEvent(eventType, c.roomID, payload)
	if err != nil {
		return err
	}

	sendErr := c.sender.SendEvent(ctx, evt)

	if c.side != nil {
		if postErr := c.side.PostEvent(ctx, c.roomID, evt); postErr != nil {
			log.Printf("moderation: side-channel post for room %s: %v", c.roomID, postErr)
		} else if sendErr != nil {
			// The setting reached the backend over HTTP even though the
			// live channel is down.
			return nil
		}
	}
	return sendErr
}

func (c *Coordinator) usernames(ids []string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{})
	var names []string
	for _, id := range ids {
		msg, ok := c.messages[id]
		if !ok {
			continue
		}
		if _, dup := seen[msg.Username]; dup {
			continue
		}
		seen[msg.Username] = struct{}{}
		names = append(names, msg.Username)
	}
	return names
}

func (c *Coordinator) clearSelection() {
	c.mu.Lock()
	c.selected = make(map[string]struct{})
	c.mu.Unlock()
}

func (c *Coordinator) removeMessages(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.messages, id)
		delete(c.selected, id)
	}
	kept := c.list[:0]
	for _, msg := range c.list {
		if _, ok := c.messages[msg.ID]; ok {
			kept = append(kept, msg)
		}
	}
	c.list = kept
}
