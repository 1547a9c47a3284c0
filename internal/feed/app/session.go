package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/pkg/config"
	"chat_feed_sync/pkg/logger"

	"go.uber.org/zap"
)

// FeedSessionDeps collaborators of a feed session. Subscriber and Identity may be nil.
type FeedSessionDeps struct {
	Registry   repository.RoomRegistry
	Transport  repository.MutationTransport
	Subscriber repository.MessageSubscriber
	Identity   domain.Identity
}

// FeedSession the state of one conversation view between Mount and Unmount.
//
// Every transition runs under mu. Network calls run on session goroutines
// outside the lock and carry the RoomTag they were issued for; a completion
// whose tag is no longer current is dropped.
type FeedSession struct {
	deps     FeedSessionDeps
	selector RoomSelector
	now      func() time.Time

	mu         sync.Mutex
	store      *MessageStore
	pager      *Paginator
	reconciler *Reconciler
	generation uint64
	mounted    bool
	ctx        context.Context
	cancel     context.CancelFunc
	subCancel  context.CancelFunc
	wg         sync.WaitGroup

	qmu          sync.Mutex
	queue        []domain.FeedEvent
	notify       chan struct{}
	stop         chan struct{}
	dispatchDone chan struct{}

	listenerMu   sync.Mutex
	listeners    map[int]func(domain.FeedEvent)
	nextListener int
}

// NewFeedSession unmounted session
func NewFeedSession(deps FeedSessionDeps, cfg config.FeedConfig) *FeedSession {
	pageSize := cfg.PageSizeOrDefault()
	store := NewMessageStore(pageSize)
	return &FeedSession{
		deps:       deps,
		now:        time.Now,
		store:      store,
		pager:      NewPaginator(pageSize),
		reconciler: NewReconciler(store),
		listeners:  map[int]func(domain.FeedEvent){},
	}
}

// Mount starts the session. A non-empty deepLinkRoomID selects that room;
// the returned operation settles when its first page is applied.
func (s *FeedSession) Mount(ctx context.Context, deepLinkRoomID string) (*Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted {
		return nil, domain.ErrAlreadyMounted
	}
	s.mounted = true
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.notify = make(chan struct{}, 1)
	s.stop = make(chan struct{})
	s.dispatchDone = make(chan struct{})
	go s.dispatch(s.notify, s.stop, s.dispatchDone)

	room := s.selector.Initial(deepLinkRoomID)
	logger.Log.Debug("feed session mounted", zap.String("deepLink", deepLinkRoomID))
	return s.selectLocked(room), nil
}

// Unmount cancels outstanding requests, waits for them and clears the window.
// It must not be called from a listener.
func (s *FeedSession) Unmount() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.generation++
	if s.subCancel != nil {
		s.subCancel()
		s.subCancel = nil
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.store.ClearMessages()
	s.store.SetCurrentRoom(nil)
	s.reconciler.Reset()
	s.pager.Reset()
	s.emitLocked(domain.EventCleared, "", "")
	stop, done := s.stop, s.dispatchDone
	s.mu.Unlock()

	close(stop)
	<-done
	logger.Log.Debug("feed session unmounted")
}

// Subscribe registers fn for every applied event, in order. The returned
// func removes it.
func (s *FeedSession) Subscribe(fn func(domain.FeedEvent)) func() {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

// View render snapshot
func (s *FeedSession) View() domain.FeedView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// IsOwn the record was written by the viewing actor
func (s *FeedSession) IsOwn(msg domain.Message) bool {
	actor := s.actorID()
	return actor != "" && msg.AuthorID == actor
}

// SelectRoom makes roomID current (placeholder first) and loads it. An empty
// id selects no room.
func (s *FeedSession) SelectRoom(roomID string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.mounted {
		return completedOperation("", domain.ErrNotMounted)
	}
	return s.selectLocked(s.selector.Select(roomID))
}

// ResolveRoom replaces the placeholder metadata when room is the current one
func (s *FeedSession) ResolveRoom(room *domain.Room) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.store.UpdateRoom(room) {
		return false
	}
	s.emitLocked(domain.EventRoomResolved, "", "")
	return true
}

// LoadOlder requests the next older page. ErrHistoryExhausted and
// ErrBackfillInFlight leave the state untouched and issue no request.
func (s *FeedSession) LoadOlder() *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.activeTagLocked()
	if err != nil {
		return completedOperation("", err)
	}

	ticket, err := s.pager.Begin(tag, s.store.Page()+1, s.store.HasMore())
	if err != nil {
		return completedOperation("", err)
	}
	return s.start("", func(ctx context.Context) error {
		return s.loadOlder(ctx, ticket)
	})
}

// Receive applies a message pushed by the server. Messages for another room
// or already in the window are ignored.
func (s *FeedSession) Receive(msg domain.ServerMessage) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.receiveLocked(msg)
}

// Send appends a local echo now and confirms or removes it when the
// transport answers
func (s *FeedSession) Send(content string, attachments []domain.Attachment) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.activeTagLocked()
	if err != nil {
		return completedOperation("", err)
	}

	echo, err := s.reconciler.BeginSend(tag.RoomID, s.actorID(), content, attachments, s.now())
	if err != nil {
		return completedOperation("", err)
	}
	localID := echo.Key()
	s.emitLocked(domain.EventMessageAdded, localID, "")

	req := repository.SendRequest{
		RoomID:      tag.RoomID,
		LocalID:     localID,
		Content:     content,
		Attachments: echo.Attachments,
	}
	return s.start(localID, func(ctx context.Context) error {
		confirmed, sendErr := s.deps.Transport.Send(ctx, req)

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.isCurrentLocked(tag) {
			logger.Log.Debug("drop send result", zap.String("localID", localID), zap.Error(domain.ErrStaleResponse))
			return nil
		}

		if sendErr != nil {
			s.rollbackSendLocked(localID)
			return fmt.Errorf("%w: send %s: %v", domain.ErrMutationRejected, localID, sendErr)
		}

		msg, err := s.reconciler.ConfirmSend(localID, confirmed)
		if err != nil {
			logger.Log.Error("unusable send confirmation", zap.String("localID", localID), zap.Error(err))
			s.rollbackSendLocked(localID)
			return fmt.Errorf("confirm send %s: %w", localID, err)
		}
		s.emitLocked(domain.EventMessageConfirmed, msg.Key(), localID)
		return nil
	})
}

// Edit applies content now and restores the prior content and edited flag
// if the transport rejects it
func (s *FeedSession) Edit(key, content string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.activeTagLocked()
	if err != nil {
		return completedOperation(key, err)
	}
	if _, err := s.reconciler.BeginEdit(key, content); err != nil {
		return completedOperation(key, err)
	}
	s.emitLocked(domain.EventMessageUpdated, key, "")

	return s.start(key, func(ctx context.Context) error {
		updated, editErr := s.deps.Transport.Edit(ctx, tag.RoomID, key, content)

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.isCurrentLocked(tag) {
			logger.Log.Debug("drop edit result", zap.String("key", key), zap.Error(domain.ErrStaleResponse))
			return nil
		}

		if editErr != nil {
			if _, err := s.reconciler.RejectEdit(key); err != nil {
				logger.Log.Warn("edit rollback failed", zap.String("key", key), zap.Error(err))
			}
			s.emitLocked(domain.EventRolledBack, key, "")
			return fmt.Errorf("%w: edit %s: %v", domain.ErrMutationRejected, key, editErr)
		}

		var server *domain.ServerMessage
		if updated.ID != "" {
			server = &updated
		}
		if _, err := s.reconciler.ConfirmEdit(key, server); err != nil {
			logger.Log.Warn("edit confirmation not applied", zap.String("key", key), zap.Error(err))
			return nil
		}
		s.emitLocked(domain.EventMessageUpdated, key, "")
		return nil
	})
}

// Delete removes the record now and puts it back between the same
// neighbours if the transport rejects it
func (s *FeedSession) Delete(key string) *Operation {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag, err := s.activeTagLocked()
	if err != nil {
		return completedOperation(key, err)
	}
	if _, err := s.reconciler.BeginDelete(key); err != nil {
		return completedOperation(key, err)
	}
	s.emitLocked(domain.EventMessageRemoved, key, "")

	return s.start(key, func(ctx context.Context) error {
		deleteErr := s.deps.Transport.Delete(ctx, tag.RoomID, key)

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.isCurrentLocked(tag) {
			logger.Log.Debug("drop delete result", zap.String("key", key), zap.Error(domain.ErrStaleResponse))
			return nil
		}

		if deleteErr != nil {
			if _, err := s.reconciler.RejectDelete(key); err != nil {
				logger.Log.Warn("delete rollback failed", zap.String("key", key), zap.Error(err))
			}
			s.emitLocked(domain.EventRolledBack, key, "")
			return fmt.Errorf("%w: delete %s: %v", domain.ErrMutationRejected, key, deleteErr)
		}

		if err := s.reconciler.ConfirmDelete(key); err != nil {
			logger.Log.Warn("delete confirmation not applied", zap.String("key", key), zap.Error(err))
		}
		return nil
	})
}

func (s *FeedSession) selectLocked(room *domain.Room) *Operation {
	s.generation++
	if s.subCancel != nil {
		s.subCancel()
		s.subCancel = nil
	}
	s.store.SetCurrentRoom(room)
	s.reconciler.Reset()
	s.pager.Reset()
	s.emitLocked(domain.EventRoomSelected, "", "")

	if room == nil {
		return completedOperation("", nil)
	}

	tag := s.currentTagLocked()
	// the first page holds the pager so no older page can race it
	ticket, err := s.pager.Begin(tag, 1, true)
	if err != nil {
		return completedOperation("", err)
	}
	return s.start("", func(ctx context.Context) error {
		return s.loadRoom(ctx, ticket)
	})
}

func (s *FeedSession) loadRoom(ctx context.Context, ticket Ticket) error {
	tag := ticket.Tag
	s.subscribe(ctx, tag)

	room, err := s.deps.Registry.FindRoom(ctx, tag.RoomID)
	switch {
	case errors.Is(err, domain.ErrRoomNotFound):
		s.mu.Lock()
		s.pager.Release(ticket)
		s.mu.Unlock()
		logger.Log.Warn("room not found, keeping placeholder", zap.String("roomID", tag.RoomID))
		return nil
	case err != nil:
		logger.Log.Warn("room resolution failed", zap.String("roomID", tag.RoomID), zap.Error(err))
	default:
		s.mu.Lock()
		if s.isCurrentLocked(tag) && s.store.UpdateRoom(room) {
			s.emitLocked(domain.EventRoomResolved, "", "")
		}
		s.mu.Unlock()
	}

	page, err := s.deps.Registry.ListMessages(ctx, tag.RoomID, 1, s.pager.PageSize())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.pager.Release(ticket)
		if !s.isCurrentLocked(tag) {
			return nil
		}
		logger.Log.Warn("first page failed", zap.String("roomID", tag.RoomID), zap.Error(err))
		return fmt.Errorf("load room %s: %w", tag.RoomID, err)
	}
	if !s.pager.Accept(ticket, s.currentTagLocked()) {
		logger.Log.Debug("drop first page", zap.String("roomID", tag.RoomID), zap.Error(domain.ErrStaleResponse))
		return nil
	}

	// records that reached the window while the page was in flight (local
	// echoes, pushes) are newer than the page and stay at the tail
	window := domain.ToMessages(page)
	seen := make(map[string]struct{}, len(window))
	for _, m := range window {
		seen[m.Key()] = struct{}{}
	}
	for _, m := range s.store.Messages() {
		if _, ok := seen[m.Key()]; !ok {
			window = append(window, m)
		}
	}

	if err := s.store.setWindow(window, len(page)); err != nil {
		logger.Log.Error("first page rejected", zap.String("roomID", tag.RoomID), zap.Error(err))
		return fmt.Errorf("load room %s: %w", tag.RoomID, err)
	}
	s.emitLocked(domain.EventMessagesLoaded, "", "")
	return nil
}

func (s *FeedSession) loadOlder(ctx context.Context, ticket Ticket) error {
	tag := ticket.Tag
	older, err := s.deps.Registry.ListMessages(ctx, tag.RoomID, ticket.Page, s.pager.PageSize())

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.pager.Release(ticket)
		if !s.isCurrentLocked(tag) {
			return nil
		}
		return fmt.Errorf("load page %d of %s: %w", ticket.Page, tag.RoomID, err)
	}
	if !s.pager.Accept(ticket, s.currentTagLocked()) {
		logger.Log.Debug("drop older page", zap.String("roomID", tag.RoomID), zap.Int("page", ticket.Page), zap.Error(domain.ErrStaleResponse))
		return nil
	}

	// offsets shift when messages arrive after the first page; drop the overlap
	fresh := make([]domain.Message, 0, len(older))
	for _, m := range domain.ToMessages(older) {
		if !s.store.Has(m.Key()) {
			fresh = append(fresh, m)
		}
	}

	if err := s.store.prependPage(fresh, len(older)); err != nil {
		logger.Log.Error("older page rejected", zap.String("roomID", tag.RoomID), zap.Error(err))
		return fmt.Errorf("load page %d of %s: %w", ticket.Page, tag.RoomID, err)
	}
	s.emitLocked(domain.EventHistoryLoaded, "", "")
	return nil
}

func (s *FeedSession) subscribe(ctx context.Context, tag RoomTag) {
	if s.deps.Subscriber == nil {
		return
	}

	subCtx, cancel := context.WithCancel(ctx)
	err := s.deps.Subscriber.Subscribe(subCtx, tag.RoomID, func(msg domain.ServerMessage) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.isCurrentLocked(tag) {
			s.receiveLocked(msg)
		}
	})
	if err != nil {
		cancel()
		logger.Log.Warn("room subscription failed", zap.String("roomID", tag.RoomID), zap.Error(err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isCurrentLocked(tag) {
		cancel()
		return
	}
	s.subCancel = cancel
}

func (s *FeedSession) receiveLocked(msg domain.ServerMessage) bool {
	if !s.mounted || msg.ID == "" || msg.RoomID != s.store.CurrentRoomID() {
		return false
	}
	if s.store.Has(msg.ID) {
		return false
	}
	if err := s.store.AddMessage(msg.ToMessage()); err != nil {
		logger.Log.Warn("push not applied", zap.String("messageID", msg.ID), zap.Error(err))
		return false
	}
	s.emitLocked(domain.EventMessageAdded, msg.ID, "")
	return true
}

func (s *FeedSession) rollbackSendLocked(localID string) {
	if err := s.reconciler.RejectSend(localID); err != nil {
		logger.Log.Warn("send rollback failed", zap.String("localID", localID), zap.Error(err))
	}
	s.emitLocked(domain.EventRolledBack, localID, "")
}

// start runs fn on a session goroutine. Callers hold mu while mounted.
func (s *FeedSession) start(key string, fn func(ctx context.Context) error) *Operation {
	op := newOperation(key)
	ctx := s.ctx
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		op.finish(fn(ctx))
	}()
	return op
}

func (s *FeedSession) activeTagLocked() (RoomTag, error) {
	if !s.mounted {
		return RoomTag{}, domain.ErrNotMounted
	}
	tag := s.currentTagLocked()
	if tag.RoomID == "" {
		return RoomTag{}, domain.ErrNoRoom
	}
	return tag, nil
}

func (s *FeedSession) currentTagLocked() RoomTag {
	return RoomTag{RoomID: s.store.CurrentRoomID(), Generation: s.generation}
}

func (s *FeedSession) isCurrentLocked(tag RoomTag) bool {
	return s.mounted && s.currentTagLocked() == tag
}

func (s *FeedSession) actorID() string {
	if s.deps.Identity == nil {
		return ""
	}
	return s.deps.Identity.ActorID()
}

func (s *FeedSession) viewLocked() domain.FeedView {
	v := s.store.Snapshot()
	v.LoadingOlder = s.pager.InFlightPage() > 1
	return v
}

func (s *FeedSession) emitLocked(t domain.EventType, key, previousKey string) {
	ev := domain.FeedEvent{
		Type:        t,
		RoomID:      s.store.CurrentRoomID(),
		Key:         key,
		PreviousKey: previousKey,
		View:        s.viewLocked(),
	}

	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	s.qmu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *FeedSession) dispatch(notify <-chan struct{}, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-notify:
			s.deliver()
		case <-stop:
			s.deliver()
			return
		}
	}
}

func (s *FeedSession) deliver() {
	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.qmu.Unlock()
			return
		}
		ev := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.listenerMu.Lock()
		fns := make([]func(domain.FeedEvent), 0, len(s.listeners))
		for _, fn := range s.listeners {
			fns = append(fns, fn)
		}
		s.listenerMu.Unlock()

		for _, fn := range fns {
			fn(ev)
		}
	}
}
