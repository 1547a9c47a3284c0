package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/config"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatServer answers mutations over websocket
type fakeChatServer struct {
	upgrader websocket.Upgrader

	mu        sync.Mutex
	authz     []string
	requests  []domain.WSRequest
	reject    map[string]string
	silent    bool
	dropAfter int
}

func (s *fakeChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.authz = append(s.authz, r.Header.Get("Authorization"))
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		var req domain.WSRequest
		if err := conn.ReadJSON(&req); err != nil {
			return
		}

		s.mu.Lock()
		s.requests = append(s.requests, req)
		count := len(s.requests)
		reason, rejected := s.reject[req.Action]
		silent, dropAfter := s.silent, s.dropAfter
		s.mu.Unlock()

		if dropAfter > 0 && count >= dropAfter {
			return
		}
		if silent {
			continue
		}

		resp := domain.WSResponse{Action: req.Action, RequestID: req.RequestID, Success: !rejected, Error: reason}
		if !rejected && req.Action != string(domain.DeleteMessage) {
			resp.Message = &domain.ServerMessage{
				ID:       "srv-" + req.RequestID[:8],
				RoomID:   req.RoomID,
				Content:  req.Content,
				IsEdited: req.Action == string(domain.EditMessage),
			}
			if req.MessageID != "" {
				resp.Message.ID = req.MessageID
			}
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}

func startChatServer(t *testing.T) (*fakeChatServer, config.TransportConfig) {
	fake := &fakeChatServer{reject: map[string]string{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, config.TransportConfig{
		URL:            "ws" + strings.TrimPrefix(srv.URL, "http"),
		RequestTimeout: 2 * time.Second,
	}
}

func TestWebsocketMutationTransport_SendEditDelete(t *testing.T) {
	fake, cfg := startChatServer(t)
	tr := NewWebsocketMutationTransport(cfg, "jwt-token")
	defer tr.Close()
	ctx := context.Background()

	sent, err := tr.Send(ctx, SendRequest{RoomID: "room-1", LocalID: "tmp-1", Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "hello", sent.Content)
	assert.True(t, strings.HasPrefix(sent.ID, "srv-"))

	edited, err := tr.Edit(ctx, "room-1", "m1", "changed")
	require.NoError(t, err)
	assert.Equal(t, "m1", edited.ID)
	assert.True(t, edited.IsEdited)

	require.NoError(t, tr.Delete(ctx, "room-1", "m1"))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{"Bearer jwt-token"}, fake.authz)
	require.Len(t, fake.requests, 3)
	assert.Equal(t, "tmp-1", fake.requests[0].LocalID)
	assert.Equal(t, string(domain.DeleteMessage), fake.requests[2].Action)
}

func TestWebsocketMutationTransport_ConcurrentRequests(t *testing.T) {
	_, cfg := startChatServer(t)
	tr := NewWebsocketMutationTransport(cfg, "")
	defer tr.Close()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			msg, err := tr.Send(context.Background(), SendRequest{RoomID: "room-1", Content: content})
			assert.NoError(t, err)
			assert.Equal(t, content, msg.Content)
		}(strings.Repeat("x", i+1))
	}
	wg.Wait()
}

func TestWebsocketMutationTransport_Rejected(t *testing.T) {
	fake, cfg := startChatServer(t)
	fake.reject[string(domain.EditMessage)] = "edit window closed"
	tr := NewWebsocketMutationTransport(cfg, "")
	defer tr.Close()

	_, err := tr.Edit(context.Background(), "room-1", "m1", "late")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "edit window closed")
}

func TestWebsocketMutationTransport_TimeoutAndCancel(t *testing.T) {
	fake, cfg := startChatServer(t)
	fake.silent = true
	cfg.RequestTimeout = 100 * time.Millisecond
	tr := NewWebsocketMutationTransport(cfg, "")
	defer tr.Close()

	_, err := tr.Send(context.Background(), SendRequest{RoomID: "room-1", Content: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	err = tr.Delete(ctx, "room-1", "m1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWebsocketMutationTransport_ConnectionLostThenRedial(t *testing.T) {
	fake, cfg := startChatServer(t)
	fake.dropAfter = 1
	tr := NewWebsocketMutationTransport(cfg, "")
	defer tr.Close()

	_, err := tr.Send(context.Background(), SendRequest{RoomID: "room-1", Content: "x"})
	require.Error(t, err)

	fake.mu.Lock()
	fake.dropAfter = 0
	fake.mu.Unlock()

	require.Eventually(t, func() bool {
		_, err := tr.Send(context.Background(), SendRequest{RoomID: "room-1", Content: "y"})
		return err == nil
	}, 2*time.Second, 50*time.Millisecond)
}

func TestWebsocketMutationTransport_Closed(t *testing.T) {
	_, cfg := startChatServer(t)
	tr := NewWebsocketMutationTransport(cfg, "")
	require.NoError(t, tr.Close())

	err := tr.Delete(context.Background(), "room-1", "m1")
	assert.ErrorIs(t, err, ErrTransportClosed)
}

func TestWebsocketMutationTransport_DialFailure(t *testing.T) {
	tr := NewWebsocketMutationTransport(config.TransportConfig{URL: "ws://127.0.0.1:1/ws", DialTimeout: 200 * time.Millisecond}, "")
	defer tr.Close()

	_, err := tr.Send(context.Background(), SendRequest{RoomID: "room-1", Content: "x"})
	assert.Error(t, err)
}
