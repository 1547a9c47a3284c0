package repository

import (
	"context"
	"errors"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/database"
	"chat_feed_sync/pkg/logger"

	"go.uber.org/zap"
)

// RoomCacheKeyPrefix redis key prefix of cached room metadata
const RoomCacheKeyPrefix = "feed:room:"

// CachedRoomRegistry caches room metadata in redis in front of another registry.
// History pages are never cached.
type CachedRoomRegistry struct {
	next  RoomRegistry
	cache database.RedisRepository[domain.Room]
	ttl   time.Duration
}

// NewCachedRoomRegistry wraps next
func NewCachedRoomRegistry(next RoomRegistry, cache database.RedisRepository[domain.Room], ttl time.Duration) *CachedRoomRegistry {
	return &CachedRoomRegistry{next: next, cache: cache, ttl: ttl}
}

// FindRoom cache first, falls back to next and fills the cache
func (r *CachedRoomRegistry) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := r.cache.Get(ctx, roomID)
	if err == nil {
		return &room, nil
	}
	if !errors.Is(err, database.ErrCacheMiss) {
		logger.Log.Warn("room cache read failed", zap.String("roomID", roomID), zap.Error(err))
	}

	found, err := r.next.FindRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, roomID, *found, r.ttl); err != nil {
		logger.Log.Warn("room cache write failed", zap.String("roomID", roomID), zap.Error(err))
	}
	return found, nil
}

// ListMessages delegates to next
func (r *CachedRoomRegistry) ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.ServerMessage, error) {
	return r.next.ListMessages(ctx, roomID, page, pageSize)
}
