package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/pkg/config"
	"chat_feed_sync/pkg/logger"
	"chat_feed_sync/pkg/middlewares"
	"chat_feed_sync/pkg/token"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// TransportFactory builds the mutation transport of one connection, authToken
// is the caller's JWT
type TransportFactory func(authToken string) repository.MutationTransport

// FeedWebsocketHandler serves one FeedSession per websocket connection
type FeedWebsocketHandler struct {
	registry     repository.RoomRegistry
	subscriber   repository.MessageSubscriber
	fetcher      repository.AttachmentFetcher
	newTransport TransportFactory
	feedCfg      config.FeedConfig
	pingInterval time.Duration
}

// NewFeedWebsocketHandler create FeedWebsocketHandler
func NewFeedWebsocketHandler(
	registry repository.RoomRegistry,
	subscriber repository.MessageSubscriber,
	fetcher repository.AttachmentFetcher,
	newTransport TransportFactory,
	feedCfg config.FeedConfig,
) *FeedWebsocketHandler {
	return &FeedWebsocketHandler{
		registry:     registry,
		subscriber:   subscriber,
		fetcher:      fetcher,
		newTransport: newTransport,
		feedCfg:      feedCfg,
		pingInterval: 10 * time.Minute,
	}
}

// feedConnection state of one client connection
type feedConnection struct {
	conn     *websocket.Conn
	memberID string
	session  *FeedSession
	fetcher  repository.AttachmentFetcher

	writeMu sync.Mutex

	previewMu sync.Mutex
	previews  map[string]*AttachmentPreview
}

// HandleConnection 是 WebSocket 連線的進入點. The `room` query parameter is
// the deep link, read once at mount.
func (h *FeedWebsocketHandler) HandleConnection(ctx context.Context, conn *websocket.Conn) {
	var identity domain.Identity
	memberID := ""
	if claims, ok := conn.Locals(middlewares.TokenClaims).(*token.Claims); ok && claims != nil {
		identity = claims
		memberID = claims.MemberID
	}

	authToken := conn.Query(middlewares.QueryToken)
	if authToken == "" {
		authToken = conn.Cookies(middlewares.CookieToken)
	}
	transport := h.newTransport(authToken)

	session := NewFeedSession(FeedSessionDeps{
		Registry:   h.registry,
		Transport:  transport,
		Subscriber: h.subscriber,
		Identity:   identity,
	}, h.feedCfg)

	fc := &feedConnection{
		conn:     conn,
		memberID: memberID,
		session:  session,
		fetcher:  h.fetcher,
		previews: map[string]*AttachmentPreview{},
	}
	logger.Log.Info("websocket open", zap.String("memberID", memberID))

	unsubscribe := session.Subscribe(func(ev domain.FeedEvent) {
		fc.send(domain.WSResponse{
			Action:  string(domain.NotifyFeed),
			Success: true,
			Payload: map[string]interface{}{"event": ev},
		})
	})

	ticker := time.NewTicker(h.pingInterval)
	ctxClose, cancel := context.WithCancel(ctx)

	defer func() {
		ticker.Stop()
		unsubscribe()
		session.Unmount()
		cancel()
		if closer, ok := transport.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				logger.Log.Warn("transport close failed", zap.Error(err))
			}
		}
		logger.Log.Info("websocket close", zap.String("memberID", memberID))
		conn.Close()
	}()

	//client發出close
	//fiber會自動處理(在read msg 回傳err),故需要SetCloseHandler另外接出
	conn.SetCloseHandler(func(code int, text string) error {
		logger.Log.Debug("websocket closed by client", zap.Int("code", code), zap.String("memberID", memberID))
		return nil
	})

	conn.SetPongHandler(func(appData string) error {
		logger.Log.Debug("received pong", zap.String("memberID", memberID))
		return nil
	})

	op, err := session.Mount(ctxClose, conn.Query("room"))
	if err != nil {
		fc.sendError(err.Error())
		return
	}
	fc.reply(domain.WSRequest{Action: string(domain.SelectRoom)}, op)

	// 定期發送 Ping
	go func() {
		for {
			select {
			case <-ticker.C:
				fc.writeMu.Lock()
				err := conn.WriteMessage(websocket.PingMessage, []byte("ping"))
				fc.writeMu.Unlock()
				if err != nil {
					logger.Log.Warn("ping failed", zap.String("memberID", memberID), zap.Error(err))
					return
				}
			case <-ctxClose.Done():
				return
			}
		}
	}()

	for {
		mt, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Log.Debug("connection closed", zap.String("memberID", memberID))
			} else {
				logger.Log.Warn("websocket read error", zap.String("memberID", memberID), zap.Error(err))
			}
			return
		}
		h.execWebsocketAction(ctxClose, fc, mt, message)
	}
}

func (h *FeedWebsocketHandler) execWebsocketAction(ctx context.Context, fc *feedConnection, mt int, msg []byte) {
	switch mt {
	case websocket.TextMessage:
		h.textMessageAction(ctx, fc, msg)
	default:
		fc.sendError("unsupported message type")
	}
}

func (h *FeedWebsocketHandler) textMessageAction(ctx context.Context, fc *feedConnection, msg []byte) {
	var req domain.WSRequest
	if err := json.Unmarshal(msg, &req); err != nil {
		fc.sendError("invalid request")
		return
	}

	switch domain.Action(req.Action) {
	case domain.SelectRoom:
		fc.closePreviews()
		fc.reply(req, fc.session.SelectRoom(req.RoomID))

	case domain.LoadMore:
		fc.reply(req, fc.session.LoadOlder())

	case domain.SendMessage:
		fc.reply(req, fc.session.Send(req.Content, req.Attachments))

	case domain.EditMessage:
		fc.reply(req, fc.session.Edit(req.MessageID, req.Content))

	case domain.DeleteMessage:
		fc.reply(req, fc.session.Delete(req.MessageID))

	case domain.GetView:
		fc.send(domain.WSResponse{
			Action:    req.Action,
			RequestID: req.RequestID,
			Success:   true,
			Payload:   map[string]interface{}{"view": fc.session.View()},
		})

	case domain.OpenPreview:
		preview, err := fc.preview(req.MessageID, req.AttachmentIndex)
		if err != nil {
			fc.replyPreview(req, nil, err)
			return
		}
		go func() {
			fc.replyPreview(req, preview, preview.Open(ctx))
		}()

	case domain.ClosePreview:
		preview, err := fc.preview(req.MessageID, req.AttachmentIndex)
		if err == nil {
			preview.Close()
		}
		fc.replyPreview(req, preview, err)

	default:
		fc.sendError("unknown action " + req.Action)
	}
}

// reply answers req once op settles
func (fc *feedConnection) reply(req domain.WSRequest, op *Operation) {
	go func() {
		err := op.Wait()

		resp := domain.WSResponse{
			Action:    req.Action,
			RequestID: req.RequestID,
			Success:   err == nil,
			Payload: map[string]interface{}{
				"view": fc.session.View(),
			},
		}
		if op.Key != "" {
			resp.Payload["key"] = op.Key
		}

		switch {
		case err == nil:
		case errors.Is(err, domain.ErrHistoryExhausted):
			resp.Success = true
			resp.Payload["exhausted"] = true
		default:
			resp.Error = err.Error()
			logger.Log.Warn("websocket action failed", zap.String("memberID", fc.memberID), zap.String("action", req.Action), zap.Error(err))
		}
		fc.send(resp)
	}()
}

func (fc *feedConnection) replyPreview(req domain.WSRequest, preview *AttachmentPreview, err error) {
	resp := domain.WSResponse{
		Action:    req.Action,
		RequestID: req.RequestID,
		Success:   err == nil,
		Payload:   map[string]interface{}{},
	}
	if preview != nil {
		resp.Payload["preview"] = preview.State()
	}
	if err != nil {
		resp.Error = err.Error()
	}
	fc.send(resp)
}

// preview of attachment index of a record in the window, kept per connection
func (fc *feedConnection) preview(messageID string, index int) (*AttachmentPreview, error) {
	var att *domain.Attachment
	for _, m := range fc.session.View().Messages {
		if m.Key() == messageID {
			if index < 0 || index >= len(m.Attachments) {
				return nil, fmt.Errorf("%w: attachment %d of %s", domain.ErrMessageNotFound, index, messageID)
			}
			att = &m.Attachments[index]
			break
		}
	}
	if att == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, messageID)
	}

	key := fmt.Sprintf("%s#%d", messageID, index)
	fc.previewMu.Lock()
	defer fc.previewMu.Unlock()
	p, ok := fc.previews[key]
	if !ok {
		p = NewAttachmentPreview(*att, fc.fetcher)
		fc.previews[key] = p
	}
	return p, nil
}

func (fc *feedConnection) closePreviews() {
	fc.previewMu.Lock()
	fc.previews = map[string]*AttachmentPreview{}
	fc.previewMu.Unlock()
}

// send - 發送 JSON 給前端
func (fc *feedConnection) send(resp domain.WSResponse) {
	b, err := json.Marshal(resp)
	if err != nil {
		logger.Log.Error("marshal response failed", zap.String("action", resp.Action), zap.Error(err))
		return
	}

	fc.writeMu.Lock()
	defer fc.writeMu.Unlock()
	if err := fc.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		logger.Log.Debug("write message error", zap.String("memberID", fc.memberID), zap.Error(err))
	}
}

func (fc *feedConnection) sendError(errorMsg string) {
	fc.send(domain.WSResponse{
		Action:  "error",
		Success: false,
		Error:   errorMsg,
	})
}
