package domain

import "time"

// RoomType definition chat room type
type RoomType string

const (
	//RoomTypePrivate definition chat room 1 on 1
	RoomTypePrivate RoomType = "private"
	//RoomTypeGroup definition chat room group
	RoomTypeGroup RoomType = "group"
)

// Room definition chat room metadata, owned by the room registry
type Room struct {
	ID            string    `bson:"_id" json:"id"`
	Name          string    `bson:"name" json:"name"`
	Type          RoomType  `bson:"room_type" json:"room_type"`
	IsArchived    bool      `bson:"is_archived" json:"is_archived"`
	IsActive      bool      `bson:"is_active" json:"is_active"`
	LastMessageAt time.Time `bson:"last_message_at,omitempty" json:"last_message_at,omitempty"`
}

// NewPlaceholderRoom minimal room addressed by id before its metadata is loaded
func NewPlaceholderRoom(id string) *Room {
	return &Room{
		ID:       id,
		Type:     RoomTypeGroup,
		IsActive: true,
	}
}

// Clone copy of the room, nil safe
func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
