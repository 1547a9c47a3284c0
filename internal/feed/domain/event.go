package domain

// EventType kind of applied feed transition
type EventType string

const (
	// EventRoomSelected current room changed, window reset
	EventRoomSelected EventType = "room_selected"
	// EventRoomResolved placeholder metadata replaced
	EventRoomResolved EventType = "room_resolved"
	// EventMessagesLoaded first page applied
	EventMessagesLoaded EventType = "messages_loaded"
	// EventHistoryLoaded older page prepended
	EventHistoryLoaded EventType = "history_loaded"
	// EventMessageAdded record appended at the tail
	EventMessageAdded EventType = "message_added"
	// EventMessageUpdated record changed in place
	EventMessageUpdated EventType = "message_updated"
	// EventMessageRemoved record removed from the window
	EventMessageRemoved EventType = "message_removed"
	// EventMessageConfirmed local echo promoted to a server record
	EventMessageConfirmed EventType = "message_confirmed"
	// EventRolledBack rejected mutation undone
	EventRolledBack EventType = "rolled_back"
	// EventCleared window emptied on teardown
	EventCleared EventType = "cleared"
)

// FeedView render snapshot of the session
type FeedView struct {
	Room         *Room     `json:"room"`
	Messages     []Message `json:"messages"`
	Page         int       `json:"page"`
	HasMore      bool      `json:"has_more"`
	PendingIDs   []string  `json:"pending_ids"`
	LoadingOlder bool      `json:"loading_older"`
}

// Keys ids of the window in order
func (v FeedView) Keys() []string {
	keys := make([]string, 0, len(v.Messages))
	for _, m := range v.Messages {
		keys = append(keys, m.Key())
	}
	return keys
}

// FeedEvent emitted after each applied transition
type FeedEvent struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id,omitempty"`
	Key    string    `json:"key,omitempty"`
	// PreviousKey set on confirmation, the local id that was replaced
	PreviousKey string   `json:"previous_key,omitempty"`
	View        FeedView `json:"view"`
}
