package errprocess

import (
	"fmt"

	"chat_feed_sync/pkg/logger"

	"go.uber.org/zap"
)

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return fmt.Errorf("%s", errMsg)
}

// Wrap logs errMsg with the cause and returns an error wrapping cause.
func Wrap(errMsg string, cause error, fields ...zap.Field) error {
	logger.Log.Error(errMsg, append(fields, zap.Error(cause))...)
	return fmt.Errorf("%s: %w", errMsg, cause)
}
