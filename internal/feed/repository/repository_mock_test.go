package repository

import (
	"context"
	"io"
	"time"

	"chat_feed_sync/internal/feed/domain"

	"github.com/stretchr/testify/mock"
)

// MockRoomCache Mock database.RedisRepository[domain.Room]
type MockRoomCache struct {
	mock.Mock
}

// Set moke set
func (m *MockRoomCache) Set(ctx context.Context, key string, value domain.Room, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

// Get moke get
func (m *MockRoomCache) Get(ctx context.Context, key string) (domain.Room, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(domain.Room), args.Error(1)
}

// Del moke del
func (m *MockRoomCache) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockRoomRegistry Mock RoomRegistry
type MockRoomRegistry struct {
	mock.Mock
}

// FindRoom moke find room
func (m *MockRoomRegistry) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListMessages moke list messages
func (m *MockRoomRegistry) ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.ServerMessage, error) {
	args := m.Called(ctx, roomID, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ServerMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockObjectStore Mock ObjectStore
type MockObjectStore struct {
	mock.Mock
}

// PutObject moke put, drains r
func (m *MockObjectStore) PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (int64, error) {
	args := m.Called(ctx, objectName, size, contentType)
	n, _ := io.Copy(io.Discard, r)
	if args.Error(1) != nil {
		return 0, args.Error(1)
	}
	return n, nil
}

// PresignGetURL moke presign
func (m *MockObjectStore) PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

// RemoveObject moke remove
func (m *MockObjectStore) RemoveObject(ctx context.Context, objectName string) error {
	args := m.Called(ctx, objectName)
	return args.Error(0)
}
