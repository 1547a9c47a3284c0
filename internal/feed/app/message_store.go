package app

import (
	"fmt"
	"sort"

	"chat_feed_sync/internal/feed/domain"
)

// MessageStore the conversation window of one feed session: current room,
// ordered records, pagination cursor and the ids of pending local echoes.
//
// It is not safe for concurrent use; FeedSession serializes access.
type MessageStore struct {
	pageSize int

	room     *domain.Room
	messages []domain.Message
	keys     map[string]struct{}
	page     int
	hasMore  bool
	pending  map[string]struct{}
}

// NewMessageStore empty store, no room
func NewMessageStore(pageSize int) *MessageStore {
	s := &MessageStore{pageSize: pageSize}
	s.reset()
	return s
}

func (s *MessageStore) reset() {
	s.messages = nil
	s.keys = map[string]struct{}{}
	s.page = 1
	s.hasMore = true
	s.pending = map[string]struct{}{}
}

// SetMessages replaces the window, page back to 1
func (s *MessageStore) SetMessages(list []domain.Message) error {
	return s.setWindow(list, len(list))
}

// setWindow like SetMessages with hasMore derived from fetched, the raw size
// of the page the window was built from
func (s *MessageStore) setWindow(list []domain.Message, fetched int) error {
	keys, err := uniqueKeys(list, nil)
	if err != nil {
		return err
	}

	s.messages = cloneMessages(list)
	s.keys = keys
	s.page = 1
	s.hasMore = fetched >= s.pageSize

	pending := map[string]struct{}{}
	for id := range s.pending {
		if _, ok := keys[id]; ok {
			pending[id] = struct{}{}
		}
	}
	s.pending = pending
	return nil
}

// LoadMoreMessages prepends an older page, page+1
func (s *MessageStore) LoadMoreMessages(older []domain.Message) error {
	return s.prependPage(older, len(older))
}

func (s *MessageStore) prependPage(older []domain.Message, fetched int) error {
	keys, err := uniqueKeys(older, s.keys)
	if err != nil {
		return err
	}

	merged := make([]domain.Message, 0, len(older)+len(s.messages))
	merged = append(merged, cloneMessages(older)...)
	merged = append(merged, s.messages...)

	s.messages = merged
	for k := range keys {
		s.keys[k] = struct{}{}
	}
	s.page++
	s.hasMore = fetched >= s.pageSize
	return nil
}

// AddMessage appends at the tail
func (s *MessageStore) AddMessage(m domain.Message) error {
	return s.InsertAt(len(s.messages), m)
}

// SetCurrentRoom switches room and resets the window. nil selects no room.
func (s *MessageStore) SetCurrentRoom(room *domain.Room) {
	s.room = room.Clone()
	s.reset()
}

// ClearMessages empties the window, keeps the room
func (s *MessageStore) ClearMessages() {
	s.reset()
}

// UpdateRoom replaces the room metadata when the ids match, without reset
func (s *MessageStore) UpdateRoom(room *domain.Room) bool {
	if s.room == nil || room == nil || s.room.ID != room.ID {
		return false
	}
	s.room = room.Clone()
	return true
}

// CurrentRoom copy of the current room, nil when none
func (s *MessageStore) CurrentRoom() *domain.Room {
	return s.room.Clone()
}

// CurrentRoomID empty when none
func (s *MessageStore) CurrentRoomID() string {
	if s.room == nil {
		return ""
	}
	return s.room.ID
}

// Messages copy of the window, oldest first
func (s *MessageStore) Messages() []domain.Message {
	return cloneMessages(s.messages)
}

// Len window size
func (s *MessageStore) Len() int { return len(s.messages) }

// Page history pages loaded for the room
func (s *MessageStore) Page() int { return s.page }

// HasMore an older page is believed to exist
func (s *MessageStore) HasMore() bool { return s.hasMore }

// PageSize configured page size
func (s *MessageStore) PageSize() int { return s.pageSize }

// Has key in the window
func (s *MessageStore) Has(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Get copy of the record
func (s *MessageStore) Get(key string) (domain.Message, bool) {
	i := s.IndexOf(key)
	if i < 0 {
		return domain.Message{}, false
	}
	return s.messages[i].Clone(), true
}

// At copy of the record at i
func (s *MessageStore) At(i int) (domain.Message, bool) {
	if i < 0 || i >= len(s.messages) {
		return domain.Message{}, false
	}
	return s.messages[i].Clone(), true
}

// IndexOf position of key, -1 when absent
func (s *MessageStore) IndexOf(key string) int {
	if !s.Has(key) {
		return -1
	}
	for i, m := range s.messages {
		if m.Key() == key {
			return i
		}
	}
	return -1
}

// Replace swaps the record at key's position. The new key must be unused
// unless it is key itself.
func (s *MessageStore) Replace(key string, m domain.Message) error {
	i := s.IndexOf(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, key)
	}
	newKey := m.Key()
	if newKey == "" {
		return fmt.Errorf("%w: empty id", domain.ErrDuplicateID)
	}
	if newKey != key && s.Has(newKey) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, newKey)
	}

	s.messages[i] = m.Clone()
	if newKey != key {
		delete(s.keys, key)
		s.keys[newKey] = struct{}{}
	}
	return nil
}

// Remove drops the record and returns it with its former index
func (s *MessageStore) Remove(key string) (domain.Message, int, bool) {
	i := s.IndexOf(key)
	if i < 0 {
		return domain.Message{}, -1, false
	}
	m := s.messages[i]
	s.messages = append(s.messages[:i:i], s.messages[i+1:]...)
	delete(s.keys, key)
	delete(s.pending, key)
	return m, i, true
}

// InsertAt inserts at i, clamped to the window bounds
func (s *MessageStore) InsertAt(i int, m domain.Message) error {
	key := m.Key()
	if key == "" {
		return fmt.Errorf("%w: empty id", domain.ErrDuplicateID)
	}
	if s.Has(key) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateID, key)
	}
	if i < 0 {
		i = 0
	}
	if i > len(s.messages) {
		i = len(s.messages)
	}

	s.messages = append(s.messages, domain.Message{})
	copy(s.messages[i+1:], s.messages[i:])
	s.messages[i] = m.Clone()
	s.keys[key] = struct{}{}
	return nil
}

// TrackPending registers a local id awaiting confirmation
func (s *MessageStore) TrackPending(id string) {
	s.pending[id] = struct{}{}
}

// UntrackPending forgets a local id
func (s *MessageStore) UntrackPending(id string) {
	delete(s.pending, id)
}

// IsPending id awaits confirmation
func (s *MessageStore) IsPending(id string) bool {
	_, ok := s.pending[id]
	return ok
}

// PendingIDs sorted ids awaiting confirmation
func (s *MessageStore) PendingIDs() []string {
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Snapshot deep copy for rendering
func (s *MessageStore) Snapshot() domain.FeedView {
	return domain.FeedView{
		Room:       s.room.Clone(),
		Messages:   cloneMessages(s.messages),
		Page:       s.page,
		HasMore:    s.hasMore,
		PendingIDs: s.PendingIDs(),
	}
}

// uniqueKeys keys of list; fails on an empty id, a repeat inside list or a
// key already in existing
func uniqueKeys(list []domain.Message, existing map[string]struct{}) (map[string]struct{}, error) {
	keys := make(map[string]struct{}, len(list))
	for _, m := range list {
		k := m.Key()
		if k == "" {
			return nil, fmt.Errorf("%w: empty id", domain.ErrDuplicateID)
		}
		if _, ok := keys[k]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, k)
		}
		if _, ok := existing[k]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateID, k)
		}
		keys[k] = struct{}{}
	}
	return keys, nil
}

func cloneMessages(list []domain.Message) []domain.Message {
	out := make([]domain.Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}
