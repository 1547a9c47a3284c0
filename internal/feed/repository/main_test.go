package repository

import (
	"os"
	"testing"

	"chat_feed_sync/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	os.Exit(m.Run())
}
