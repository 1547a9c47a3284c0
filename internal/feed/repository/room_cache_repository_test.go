package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCachedRoomRegistry_Hit(t *testing.T) {
	cache := new(MockRoomCache)
	next := new(MockRoomRegistry)
	cache.On("Get", mock.Anything, "room-1").Return(domain.Room{ID: "room-1", Name: "Go Club"}, nil)

	room, err := NewCachedRoomRegistry(next, cache, time.Minute).FindRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "Go Club", room.Name)
	next.AssertNotCalled(t, "FindRoom", mock.Anything, mock.Anything)
}

func TestCachedRoomRegistry_MissFillsCache(t *testing.T) {
	cache := new(MockRoomCache)
	next := new(MockRoomRegistry)
	found := &domain.Room{ID: "room-1", Name: "Go Club"}
	cache.On("Get", mock.Anything, "room-1").Return(domain.Room{}, database.ErrCacheMiss)
	next.On("FindRoom", mock.Anything, "room-1").Return(found, nil)
	cache.On("Set", mock.Anything, "room-1", *found, time.Minute).Return(nil)

	room, err := NewCachedRoomRegistry(next, cache, time.Minute).FindRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, found, room)
	cache.AssertExpectations(t)
}

func TestCachedRoomRegistry_CacheErrorsAreNotFatal(t *testing.T) {
	cache := new(MockRoomCache)
	next := new(MockRoomRegistry)
	found := &domain.Room{ID: "room-1"}
	cache.On("Get", mock.Anything, "room-1").Return(domain.Room{}, errors.New("redis down"))
	next.On("FindRoom", mock.Anything, "room-1").Return(found, nil)
	cache.On("Set", mock.Anything, "room-1", mock.Anything, mock.Anything).Return(errors.New("redis down"))

	room, err := NewCachedRoomRegistry(next, cache, time.Minute).FindRoom(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "room-1", room.ID)
}

func TestCachedRoomRegistry_NotFoundNotCached(t *testing.T) {
	cache := new(MockRoomCache)
	next := new(MockRoomRegistry)
	cache.On("Get", mock.Anything, "ghost").Return(domain.Room{}, database.ErrCacheMiss)
	next.On("FindRoom", mock.Anything, "ghost").Return(nil, domain.ErrRoomNotFound)

	_, err := NewCachedRoomRegistry(next, cache, time.Minute).FindRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
	cache.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCachedRoomRegistry_ListMessagesDelegates(t *testing.T) {
	cache := new(MockRoomCache)
	next := new(MockRoomRegistry)
	next.On("ListMessages", mock.Anything, "room-1", 2, 20).Return([]domain.ServerMessage{{ID: "m1"}}, nil)

	msgs, err := NewCachedRoomRegistry(next, cache, time.Minute).ListMessages(context.Background(), "room-1", 2, 20)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}
