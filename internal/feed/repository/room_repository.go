package repository

import (
	"context"
	"errors"
	"fmt"

	"chat_feed_sync/internal/feed/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RoomRegistry resolves rooms and serves their history pages
type RoomRegistry interface {
	FindRoom(ctx context.Context, roomID string) (*domain.Room, error)
	// ListMessages page 1 holds the newest pageSize records, page n the
	// block before page n-1. Each page is returned oldest-first.
	ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.ServerMessage, error)
}

const (
	roomsCollection    = "rooms"
	messagesCollection = "messages"
)

// MongoRoomRegistry RoomRegistry backed by MongoDB
type MongoRoomRegistry struct {
	roomsColl    *mongo.Collection
	messagesColl *mongo.Collection
}

// NewMongoRoomRegistry create new mongo room registry
func NewMongoRoomRegistry(db *mongo.Database) *MongoRoomRegistry {
	return &MongoRoomRegistry{
		roomsColl:    db.Collection(roomsCollection),
		messagesColl: db.Collection(messagesCollection),
	}
}

// FindRoom find room by id
func (r *MongoRoomRegistry) FindRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.roomsColl.FindOne(ctx, bson.M{"_id": roomID}).Decode(&room)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("find room %s: %w", roomID, err)
	}
	return &room, nil
}

// ListMessages newest-first query with skip, reversed before returning
func (r *MongoRoomRegistry) ListMessages(ctx context.Context, roomID string, page, pageSize int) ([]domain.ServerMessage, error) {
	if page < 1 || pageSize < 1 {
		return nil, fmt.Errorf("invalid page %d size %d", page, pageSize)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))

	cur, err := r.messagesColl.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var msgs []domain.ServerMessage
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("cursor All error: %w", err)
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// CreateRoom create room
func (r *MongoRoomRegistry) CreateRoom(ctx context.Context, room *domain.Room) error {
	_, err := r.roomsColl.InsertOne(ctx, room)
	return err
}

// InsertMessage store one confirmed message and bump the room's last message time
func (r *MongoRoomRegistry) InsertMessage(ctx context.Context, msg domain.ServerMessage) error {
	if _, err := r.messagesColl.InsertOne(ctx, msg); err != nil {
		return err
	}
	_, err := r.roomsColl.UpdateOne(ctx,
		bson.M{"_id": msg.RoomID},
		bson.M{"$max": bson.M{"last_message_at": msg.CreatedAt}},
	)
	return err
}
