package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MessageSubscriber delivers messages pushed by the server for one room
type MessageSubscriber interface {
	// Subscribe returns once the subscription is active; handler runs until ctx is done
	Subscribe(ctx context.Context, roomID string, handler func(msg domain.ServerMessage)) error
}

// RoomChannel redis channel of a room
func RoomChannel(roomID string) string {
	return "chat:room:" + roomID
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish 將 message 序列化後，發布到房間 channel
func (r *RedisPubSub) Publish(ctx context.Context, msg domain.ServerMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, RoomChannel(msg.RoomID), data).Err()
}

// Subscribe 訂閱房間 channel，收到訊息後呼叫 handler 處理
func (r *RedisPubSub) Subscribe(ctx context.Context, roomID string, handler func(msg domain.ServerMessage)) error {
	channel := RoomChannel(roomID)
	sub := r.client.Subscribe(ctx, channel)

	// 等待訂閱確認
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("subscribe %s: %w", channel, err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var msg domain.ServerMessage
				if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
					logger.Log.Error("push decode failed", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(msg)
			case <-ctx.Done():
				logger.Log.Debug("sub close", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}
