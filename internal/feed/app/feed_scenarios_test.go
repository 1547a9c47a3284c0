package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/pkg/config"

	"github.com/cucumber/godog"
	"github.com/stretchr/testify/mock"
)

type transportReply struct {
	msg domain.ServerMessage
	err error
}

// gatedTransport answers each mutation with the next reply the scenario releases
type gatedTransport struct {
	replies chan transportReply
}

func (g *gatedTransport) wait(ctx context.Context) (domain.ServerMessage, error) {
	select {
	case r := <-g.replies:
		return r.msg, r.err
	case <-ctx.Done():
		return domain.ServerMessage{}, ctx.Err()
	}
}

func (g *gatedTransport) Send(ctx context.Context, req repository.SendRequest) (domain.ServerMessage, error) {
	return g.wait(ctx)
}

func (g *gatedTransport) Edit(ctx context.Context, roomID, messageID, content string) (domain.ServerMessage, error) {
	return g.wait(ctx)
}

func (g *gatedTransport) Delete(ctx context.Context, roomID, messageID string) error {
	_, err := g.wait(ctx)
	return err
}

type feedWorld struct {
	pageSize  int
	registry  *MockRoomRegistry
	transport *gatedTransport
	session   *FeedSession
	pending   *Operation
	sendRoom  string
	lastErr   error
}

func (w *feedWorld) thePageSizeIs(n int) error {
	w.pageSize = n
	return nil
}

func (w *feedWorld) roomHasMessages(roomID string, n int) error {
	hist := history(roomID, n)
	w.registry.On("FindRoom", mock.Anything, roomID).Return(&domain.Room{ID: roomID, Name: roomID, IsActive: true}, nil)
	for p := 1; p <= n/w.pageSize+2; p++ {
		w.registry.On("ListMessages", mock.Anything, roomID, p, w.pageSize).Return(page(hist, p, w.pageSize), nil)
	}
	return nil
}

func (w *feedWorld) ensureSession() {
	if w.session != nil {
		return
	}
	w.session = NewFeedSession(FeedSessionDeps{
		Registry:  w.registry,
		Transport: w.transport,
		Identity:  stubIdentity("member-1"),
	}, config.FeedConfig{PageSize: w.pageSize})
}

func (w *feedWorld) theFeedOpensRoom(roomID string) error {
	w.ensureSession()
	op, err := w.session.Mount(context.Background(), roomID)
	if err != nil {
		return err
	}
	return op.Wait()
}

func (w *feedWorld) theFeedSwitchesToRoom(roomID string) error {
	return w.session.SelectRoom(roomID).Wait()
}

func (w *feedWorld) olderMessagesAreLoaded() error {
	w.lastErr = w.session.LoadOlder().Wait()
	if w.lastErr != nil && !errors.Is(w.lastErr, domain.ErrHistoryExhausted) {
		return w.lastErr
	}
	return nil
}

func (w *feedWorld) loadingReportsExhausted() error {
	if !errors.Is(w.lastErr, domain.ErrHistoryExhausted) {
		return fmt.Errorf("expected exhausted history, got %v", w.lastErr)
	}
	return nil
}

func (w *feedWorld) theFeedShowsNMessages(n int) error {
	if got := len(w.session.View().Messages); got != n {
		return fmt.Errorf("expected %d messages, got %d", n, got)
	}
	return nil
}

func (w *feedWorld) theFeedShowsMessages(keys string) error {
	got := strings.Join(w.session.View().Keys(), ",")
	if got != keys {
		return fmt.Errorf("expected %s, got %s", keys, got)
	}
	return nil
}

func (w *feedWorld) moreHistoryIsAvailable() error {
	if !w.session.View().HasMore {
		return errors.New("expected more history")
	}
	return nil
}

func (w *feedWorld) noMoreHistoryIsAvailable() error {
	if w.session.View().HasMore {
		return errors.New("expected no more history")
	}
	return nil
}

func (w *feedWorld) messagesAreChronological() error {
	msgs := w.session.View().Messages
	if !sort.SliceIsSorted(msgs, func(i, j int) bool { return msgs[i].CreatedAt.Before(msgs[j].CreatedAt) }) {
		return errors.New("messages out of order")
	}
	return nil
}

func (w *feedWorld) iSend(content string) error {
	w.sendRoom = w.session.View().Room.ID
	w.pending = w.session.Send(content, nil)
	return nil
}

func (w *feedWorld) iDeleteMessage(key string) error {
	w.pending = w.session.Delete(key)
	return nil
}

func (w *feedWorld) iEditMessage(key, content string) error {
	w.pending = w.session.Edit(key, content)
	return nil
}

func (w *feedWorld) theServerConfirmsTheSendAs(serverID string) error {
	// acknowledgement carries the final id and timestamps only
	w.transport.replies <- transportReply{msg: domain.ServerMessage{
		ID:        serverID,
		RoomID:    w.sendRoom,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}}
	return w.pending.Wait()
}

func (w *feedWorld) theServerRejectsTheChange() error {
	w.transport.replies <- transportReply{err: errors.New("rejected")}
	if err := w.pending.Wait(); !errors.Is(err, domain.ErrMutationRejected) {
		return fmt.Errorf("expected rejection, got %v", err)
	}
	return nil
}

func (w *feedWorld) lastMessageIsPendingWithContent(content string) error {
	msgs := w.session.View().Messages
	last := msgs[len(msgs)-1]
	if !last.IsOptimistic() || last.Content != content {
		return fmt.Errorf("expected pending %q, got %+v", content, last)
	}
	return nil
}

func (w *feedWorld) lastMessageIsWithContent(key, content string) error {
	msgs := w.session.View().Messages
	last := msgs[len(msgs)-1]
	if last.Key() != key || last.IsOptimistic() || last.Content != content {
		return fmt.Errorf("expected %s %q, got %+v", key, content, last)
	}
	return nil
}

func (w *feedWorld) noMessageIsPending() error {
	if ids := w.session.View().PendingIDs; len(ids) != 0 {
		return fmt.Errorf("still pending: %v", ids)
	}
	return nil
}

func (w *feedWorld) messageHasContent(key, content string) error {
	for _, m := range w.session.View().Messages {
		if m.Key() == key {
			if m.Content != content {
				return fmt.Errorf("%s has %q", key, m.Content)
			}
			return nil
		}
	}
	return fmt.Errorf("%s not in the feed", key)
}

func initializeFeedScenario(ctx *godog.ScenarioContext) {
	w := &feedWorld{}

	ctx.Before(func(c context.Context, sc *godog.Scenario) (context.Context, error) {
		*w = feedWorld{
			pageSize:  20,
			registry:  new(MockRoomRegistry),
			transport: &gatedTransport{replies: make(chan transportReply, 1)},
		}
		return c, nil
	})
	ctx.After(func(c context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		if w.session != nil {
			w.session.Unmount()
		}
		return c, nil
	})

	ctx.Step(`^the page size is (\d+)$`, w.thePageSizeIs)
	ctx.Step(`^room "([^"]*)" has (\d+) messages$`, w.roomHasMessages)
	ctx.Step(`^the feed opens room "([^"]*)"$`, w.theFeedOpensRoom)
	ctx.Step(`^the feed switches to room "([^"]*)"$`, w.theFeedSwitchesToRoom)
	ctx.Step(`^older messages are loaded$`, w.olderMessagesAreLoaded)
	ctx.Step(`^loading reports the history is exhausted$`, w.loadingReportsExhausted)
	ctx.Step(`^the feed shows (\d+) messages$`, w.theFeedShowsNMessages)
	ctx.Step(`^the feed shows messages "([^"]*)"$`, w.theFeedShowsMessages)
	ctx.Step(`^more history is available$`, w.moreHistoryIsAvailable)
	ctx.Step(`^no more history is available$`, w.noMoreHistoryIsAvailable)
	ctx.Step(`^the messages are in chronological order$`, w.messagesAreChronological)
	ctx.Step(`^I send "([^"]*)"$`, w.iSend)
	ctx.Step(`^I delete message "([^"]*)"$`, w.iDeleteMessage)
	ctx.Step(`^I edit message "([^"]*)" to "([^"]*)"$`, w.iEditMessage)
	ctx.Step(`^the server confirms the send as "([^"]*)"$`, w.theServerConfirmsTheSendAs)
	ctx.Step(`^the server rejects the change$`, w.theServerRejectsTheChange)
	ctx.Step(`^the last message is pending with content "([^"]*)"$`, w.lastMessageIsPendingWithContent)
	ctx.Step(`^the last message is "([^"]*)" with content "([^"]*)"$`, w.lastMessageIsWithContent)
	ctx.Step(`^no message is pending$`, w.noMessageIsPending)
	ctx.Step(`^message "([^"]*)" has content "([^"]*)"$`, w.messageHasContent)
}

func TestFeedScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "message_feed",
		ScenarioInitializer: initializeFeedScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
