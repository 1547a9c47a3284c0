package app

import (
	"context"
	"io"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"

	"github.com/stretchr/testify/mock"
)

// MockRoomRegistry Mock RoomRegistry
type MockRoomRegistry struct {
	mock.Mock
}

// FindRoom moke find room by id
func (m *MockRoomRegistry) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.Room), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListMessages moke list a history page
func (m *MockRoomRegistry) ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.ServerMessage, error) {
	args := m.Called(ctx, roomID, page, pageSize)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.ServerMessage), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMutationTransport Mock MutationTransport
type MockMutationTransport struct {
	mock.Mock
}

// Send moke send message
func (m *MockMutationTransport) Send(ctx context.Context, req repository.SendRequest) (domain.ServerMessage, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.ServerMessage), args.Error(1)
}

// Edit moke edit message
func (m *MockMutationTransport) Edit(ctx context.Context, roomID, messageID, content string) (domain.ServerMessage, error) {
	args := m.Called(ctx, roomID, messageID, content)
	return args.Get(0).(domain.ServerMessage), args.Error(1)
}

// Delete moke delete message
func (m *MockMutationTransport) Delete(ctx context.Context, roomID, messageID string) error {
	args := m.Called(ctx, roomID, messageID)
	return args.Error(0)
}

// MockMessageSubscriber Mock MessageSubscriber, keeps the handlers so tests can push
type MockMessageSubscriber struct {
	mock.Mock
	handlers chan func(domain.ServerMessage)
}

// NewMockMessageSubscriber create MockMessageSubscriber
func NewMockMessageSubscriber() *MockMessageSubscriber {
	return &MockMessageSubscriber{handlers: make(chan func(domain.ServerMessage), 8)}
}

// Subscribe moke subscriber
func (m *MockMessageSubscriber) Subscribe(ctx context.Context, roomID string, handler func(msg domain.ServerMessage)) error {
	args := m.Called(ctx, roomID, handler)
	if args.Error(0) == nil {
		m.handlers <- handler
	}
	return args.Error(0)
}

// MockAttachmentFetcher Mock AttachmentFetcher
type MockAttachmentFetcher struct {
	mock.Mock
}

// Probe moke probe url
func (m *MockAttachmentFetcher) Probe(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// Download moke download, writes the configured body
func (m *MockAttachmentFetcher) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	args := m.Called(ctx, url, w)
	if body, ok := args.Get(0).([]byte); ok && args.Error(1) == nil {
		n, err := w.Write(body)
		return int64(n), err
	}
	return 0, args.Error(1)
}

// MockUploader Mock Uploader
type MockUploader struct {
	mock.Mock
}

// Upload moke upload
func (m *MockUploader) Upload(ctx context.Context, req repository.UploadRequest) (domain.Attachment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Attachment), args.Error(1)
}

// stubIdentity fixed actor
type stubIdentity string

func (s stubIdentity) ActorID() string { return string(s) }
