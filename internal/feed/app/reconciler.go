package app

import (
	"fmt"
	"strings"
	"time"

	"chat_feed_sync/internal/feed/domain"

	"github.com/google/uuid"
)

type editSnapshot struct {
	content  string
	isEdited bool
}

type deleteSnapshot struct {
	msg     domain.Message
	prevKey string
	nextKey string
	index   int
}

// Reconciler applies send/edit/delete to the store ahead of the server and
// settles them on confirmation or rejection. Records keep their insertion
// position throughout.
type Reconciler struct {
	store   *MessageStore
	edits   map[string]editSnapshot
	deletes map[string]deleteSnapshot
	newID   func() string
}

// NewReconciler reconciler over store
func NewReconciler(store *MessageStore) *Reconciler {
	return &Reconciler{
		store:   store,
		edits:   map[string]editSnapshot{},
		deletes: map[string]deleteSnapshot{},
		newID:   func() string { return uuid.New().String() },
	}
}

// BeginSend appends a Pending echo and registers its local id
func (r *Reconciler) BeginSend(roomID, authorID, content string, attachments []domain.Attachment, now time.Time) (domain.Message, error) {
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	localID := r.newID()
	if r.store.Has(localID) {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrDuplicateID, localID)
	}

	msg := domain.Message{
		ID:          domain.Pending{LocalID: localID},
		RoomID:      roomID,
		AuthorID:    authorID,
		Content:     content,
		Attachments: attachments,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.store.AddMessage(msg); err != nil {
		return domain.Message{}, err
	}
	r.store.TrackPending(localID)
	return msg.Clone(), nil
}

// ConfirmSend promotes the echo to the confirmed record in place. A copy of
// the same server record already in the window (pushed before the
// acknowledgement) is dropped so the echo keeps its position.
func (r *Reconciler) ConfirmSend(localID string, confirmed domain.ServerMessage) (domain.Message, error) {
	echo, ok := r.store.Get(localID)
	if !ok || !echo.IsOptimistic() {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, localID)
	}

	if confirmed.ID != localID && r.store.Has(confirmed.ID) {
		r.store.Remove(confirmed.ID)
	}

	// the acknowledgement may carry only the id and timestamps
	msg := confirmed.ToMessage()
	msg.RoomID = echo.RoomID
	if msg.Content == "" {
		msg.Content = echo.Content
	}
	if msg.AuthorID == "" {
		msg.AuthorID = echo.AuthorID
	}
	if msg.Attachments == nil {
		msg.Attachments = echo.Attachments
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = echo.CreatedAt
	}
	if msg.UpdatedAt.IsZero() {
		msg.UpdatedAt = msg.CreatedAt
	}

	if err := r.store.Replace(localID, msg); err != nil {
		return domain.Message{}, err
	}
	r.store.UntrackPending(localID)
	return msg, nil
}

// RejectSend removes the echo and forgets its id
func (r *Reconciler) RejectSend(localID string) error {
	if _, _, ok := r.store.Remove(localID); !ok {
		r.store.UntrackPending(localID)
		return fmt.Errorf("%w: %s", domain.ErrMessageNotFound, localID)
	}
	r.store.UntrackPending(localID)
	return nil
}

// BeginEdit applies content and marks the record edited, keeping the prior state
func (r *Reconciler) BeginEdit(key, content string) (domain.Message, error) {
	msg, err := r.mutable(key)
	if err != nil {
		return domain.Message{}, err
	}
	if strings.TrimSpace(content) == "" && len(msg.Attachments) == 0 {
		return domain.Message{}, domain.ErrEmptyMessage
	}

	r.edits[key] = editSnapshot{content: msg.Content, isEdited: msg.IsEdited}
	msg.Content = content
	msg.IsEdited = true
	if err := r.store.Replace(key, msg); err != nil {
		delete(r.edits, key)
		return domain.Message{}, err
	}
	return msg, nil
}

// ConfirmEdit drops the snapshot and applies the server's copy when given
func (r *Reconciler) ConfirmEdit(key string, updated *domain.ServerMessage) (domain.Message, error) {
	if _, ok := r.edits[key]; !ok {
		return domain.Message{}, fmt.Errorf("%w: no edit for %s", domain.ErrMessageNotFound, key)
	}
	delete(r.edits, key)

	msg, ok := r.store.Get(key)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, key)
	}
	if updated != nil {
		if updated.Content != "" {
			msg.Content = updated.Content
		}
		if !updated.UpdatedAt.IsZero() {
			msg.UpdatedAt = updated.UpdatedAt
		}
	}
	msg.IsEdited = true
	if err := r.store.Replace(key, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// RejectEdit restores content and isEdited exactly as before the edit
func (r *Reconciler) RejectEdit(key string) (domain.Message, error) {
	snap, ok := r.edits[key]
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: no edit for %s", domain.ErrMessageNotFound, key)
	}
	delete(r.edits, key)

	msg, ok := r.store.Get(key)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, key)
	}
	msg.Content = snap.content
	msg.IsEdited = snap.isEdited
	if err := r.store.Replace(key, msg); err != nil {
		return domain.Message{}, err
	}
	return msg, nil
}

// BeginDelete removes the record, remembering its neighbours
func (r *Reconciler) BeginDelete(key string) (domain.Message, error) {
	if _, err := r.mutable(key); err != nil {
		return domain.Message{}, err
	}

	i := r.store.IndexOf(key)
	snap := deleteSnapshot{index: i}
	if prev, ok := r.store.At(i - 1); ok {
		snap.prevKey = prev.Key()
	}
	if next, ok := r.store.At(i + 1); ok {
		snap.nextKey = next.Key()
	}

	msg, _, _ := r.store.Remove(key)
	snap.msg = msg
	r.deletes[key] = snap
	return msg.Clone(), nil
}

// ConfirmDelete drops the snapshot
func (r *Reconciler) ConfirmDelete(key string) error {
	if _, ok := r.deletes[key]; !ok {
		return fmt.Errorf("%w: no delete for %s", domain.ErrMessageNotFound, key)
	}
	delete(r.deletes, key)
	return nil
}

// RejectDelete puts the record back between the same neighbours: after the
// previous one, else before the next one, else at its old index
func (r *Reconciler) RejectDelete(key string) (domain.Message, error) {
	snap, ok := r.deletes[key]
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: no delete for %s", domain.ErrMessageNotFound, key)
	}
	delete(r.deletes, key)

	at := snap.index
	if i := r.indexOf(snap.prevKey); i >= 0 {
		at = i + 1
	} else if i := r.indexOf(snap.nextKey); i >= 0 {
		at = i
	}

	if err := r.store.InsertAt(at, snap.msg); err != nil {
		return domain.Message{}, err
	}
	return snap.msg.Clone(), nil
}

// InFlight a send, edit or delete on key is unsettled
func (r *Reconciler) InFlight(key string) bool {
	_, editing := r.edits[key]
	_, deleting := r.deletes[key]
	return editing || deleting || r.store.IsPending(key)
}

// Reset forgets every snapshot, used on room switch and teardown
func (r *Reconciler) Reset() {
	r.edits = map[string]editSnapshot{}
	r.deletes = map[string]deleteSnapshot{}
}

// mutable the record may take an edit or delete now
func (r *Reconciler) mutable(key string) (domain.Message, error) {
	msg, ok := r.store.Get(key)
	if !ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, key)
	}
	if msg.IsOptimistic() {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMessagePending, key)
	}
	if _, ok := r.edits[key]; ok {
		return domain.Message{}, fmt.Errorf("%w: %s", domain.ErrMutationInFlight, key)
	}
	return msg, nil
}

func (r *Reconciler) indexOf(key string) int {
	if key == "" {
		return -1
	}
	return r.store.IndexOf(key)
}
