package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/config"
	"chat_feed_sync/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SendRequest a new message toward the chat service
type SendRequest struct {
	RoomID      string
	LocalID     string
	Content     string
	Attachments []domain.Attachment
}

// MutationTransport carries send/edit/delete to the chat service and reports
// the confirmed record or the rejection
type MutationTransport interface {
	Send(ctx context.Context, req SendRequest) (domain.ServerMessage, error)
	Edit(ctx context.Context, roomID, messageID, content string) (domain.ServerMessage, error)
	Delete(ctx context.Context, roomID, messageID string) error
}

// ErrTransportClosed the transport was closed
var ErrTransportClosed = errors.New("mutation transport closed")

const (
	defaultDialTimeout    = 5 * time.Second
	defaultRequestTimeout = 10 * time.Second
)

// WebsocketMutationTransport MutationTransport over one websocket connection.
// Responses are correlated to requests by request_id. The connection is dialed
// lazily and redialed after a read failure.
type WebsocketMutationTransport struct {
	url            string
	header         http.Header
	dialer         *websocket.Dialer
	requestTimeout time.Duration

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan domain.WSResponse
	closed  bool

	writeMu sync.Mutex
}

// NewWebsocketMutationTransport authToken is forwarded as a bearer token
func NewWebsocketMutationTransport(cfg config.TransportConfig, authToken string) *WebsocketMutationTransport {
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = defaultDialTimeout
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	header := http.Header{}
	if authToken != "" {
		header.Set("Authorization", "Bearer "+authToken)
	}

	return &WebsocketMutationTransport{
		url:            cfg.URL,
		header:         header,
		dialer:         &websocket.Dialer{HandshakeTimeout: dialTimeout},
		requestTimeout: requestTimeout,
		pending:        map[string]chan domain.WSResponse{},
	}
}

// Send send_message
func (t *WebsocketMutationTransport) Send(ctx context.Context, req SendRequest) (domain.ServerMessage, error) {
	resp, err := t.request(ctx, domain.WSRequest{
		Action:      string(domain.SendMessage),
		RoomID:      req.RoomID,
		LocalID:     req.LocalID,
		Content:     req.Content,
		Attachments: req.Attachments,
	})
	if err != nil {
		return domain.ServerMessage{}, err
	}
	return confirmedMessage(resp)
}

// Edit edit_message
func (t *WebsocketMutationTransport) Edit(ctx context.Context, roomID, messageID, content string) (domain.ServerMessage, error) {
	resp, err := t.request(ctx, domain.WSRequest{
		Action:    string(domain.EditMessage),
		RoomID:    roomID,
		MessageID: messageID,
		Content:   content,
	})
	if err != nil {
		return domain.ServerMessage{}, err
	}
	return confirmedMessage(resp)
}

// Delete delete_message
func (t *WebsocketMutationTransport) Delete(ctx context.Context, roomID, messageID string) error {
	_, err := t.request(ctx, domain.WSRequest{
		Action:    string(domain.DeleteMessage),
		RoomID:    roomID,
		MessageID: messageID,
	})
	return err
}

// Close closes the connection and fails every outstanding request
func (t *WebsocketMutationTransport) Close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}
	t.writeMu.Lock()
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	t.writeMu.Unlock()
	return conn.Close()
}

func confirmedMessage(resp domain.WSResponse) (domain.ServerMessage, error) {
	if resp.Message == nil {
		return domain.ServerMessage{}, fmt.Errorf("%s response without message", resp.Action)
	}
	return *resp.Message, nil
}

func (t *WebsocketMutationTransport) request(ctx context.Context, req domain.WSRequest) (domain.WSResponse, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return domain.WSResponse{}, err
	}

	req.RequestID = uuid.New().String()
	ch := make(chan domain.WSResponse, 1)

	t.mu.Lock()
	t.pending[req.RequestID] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, req.RequestID)
		t.mu.Unlock()
	}()

	t.writeMu.Lock()
	err = conn.WriteJSON(req)
	t.writeMu.Unlock()
	if err != nil {
		t.dropConn(conn, err)
		return domain.WSResponse{}, fmt.Errorf("write %s: %w", req.Action, err)
	}

	timer := time.NewTimer(t.requestTimeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return domain.WSResponse{}, fmt.Errorf("%s: connection lost", req.Action)
		}
		if !resp.Success {
			return resp, fmt.Errorf("%s: %s", req.Action, resp.Error)
		}
		return resp, nil
	case <-timer.C:
		return domain.WSResponse{}, fmt.Errorf("%s: timed out after %s", req.Action, t.requestTimeout)
	case <-ctx.Done():
		return domain.WSResponse{}, ctx.Err()
	}
}

func (t *WebsocketMutationTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrTransportClosed
	}
	if t.conn != nil {
		return t.conn, nil
	}

	conn, _, err := t.dialer.DialContext(ctx, t.url, t.header)
	if err != nil {
		logger.Log.Warn("mutation transport dial failed", zap.String("url", t.url), zap.Error(err))
		return nil, fmt.Errorf("dial %s: %w", t.url, err)
	}
	t.conn = conn
	go t.readLoop(conn)
	return conn, nil
}

func (t *WebsocketMutationTransport) readLoop(conn *websocket.Conn) {
	for {
		var resp domain.WSResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.dropConn(conn, err)
			return
		}

		t.mu.Lock()
		ch, ok := t.pending[resp.RequestID]
		if ok {
			delete(t.pending, resp.RequestID)
		}
		t.mu.Unlock()

		if !ok {
			logger.Log.Debug("unmatched transport response", zap.String("action", resp.Action), zap.String("requestID", resp.RequestID))
			continue
		}
		ch <- resp
	}
}

// dropConn forgets conn and fails the requests waiting on it
func (t *WebsocketMutationTransport) dropConn(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	if t.conn != conn {
		t.mu.Unlock()
		return
	}
	t.conn = nil
	waiting := t.pending
	t.pending = map[string]chan domain.WSResponse{}
	closed := t.closed
	t.mu.Unlock()

	conn.Close()
	for _, ch := range waiting {
		close(ch)
	}

	if !closed && !websocket.IsCloseError(cause, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		logger.Log.Warn("mutation transport connection lost", zap.Error(cause))
	}
}
