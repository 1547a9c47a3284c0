package app

import (
	"strings"

	"chat_feed_sync/internal/feed/domain"
)

// RoomSelector turns a room id from the caller (explicit choice or deep link)
// into the room to select. Existence is not checked here, the registry
// resolves the placeholder later.
type RoomSelector struct{}

// Initial room for a deep-link id given at mount, nil when there is none
func (RoomSelector) Initial(deepLinkRoomID string) *domain.Room {
	return RoomSelector{}.Select(deepLinkRoomID)
}

// Select placeholder for roomID, nil for an empty id
func (RoomSelector) Select(roomID string) *domain.Room {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return nil
	}
	return domain.NewPlaceholderRoom(roomID)
}
