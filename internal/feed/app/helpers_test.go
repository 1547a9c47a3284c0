package app

import (
	"fmt"
	"os"
	"testing"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}

var baseTime = time.Date(2025, 1, 23, 9, 0, 0, 0, time.UTC)

func confirmedMsg(id, roomID string) domain.Message {
	return domain.Message{
		ID:        domain.Confirmed{ServerID: id},
		RoomID:    roomID,
		AuthorID:  "member-2",
		Content:   "content of " + id,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

func confirmedMsgs(roomID string, ids ...string) []domain.Message {
	out := make([]domain.Message, 0, len(ids))
	for _, id := range ids {
		out = append(out, confirmedMsg(id, roomID))
	}
	return out
}

func serverMsg(id, roomID string) domain.ServerMessage {
	return domain.ServerMessage{
		ID:        id,
		RoomID:    roomID,
		AuthorID:  "member-2",
		Content:   "content of " + id,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
	}
}

// history of n messages h-1..h-n, oldest first
func history(roomID string, n int) []domain.ServerMessage {
	out := make([]domain.ServerMessage, 0, n)
	for i := 1; i <= n; i++ {
		m := serverMsg(fmt.Sprintf("h-%03d", i), roomID)
		m.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		out = append(out, m)
	}
	return out
}

// page of hist as the registry serves it: page 1 newest, oldest-first inside
func page(hist []domain.ServerMessage, page, size int) []domain.ServerMessage {
	end := len(hist) - (page-1)*size
	if end <= 0 {
		return []domain.ServerMessage{}
	}
	start := end - size
	if start < 0 {
		start = 0
	}
	out := make([]domain.ServerMessage, end-start)
	copy(out, hist[start:end])
	return out
}
