package repository

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/pkg"
	"chat_feed_sync/pkg/config"
	errprocess "chat_feed_sync/pkg/err"
	"chat_feed_sync/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UploadRequest a raw file to store before it is attached to a message
type UploadRequest struct {
	RoomID   string
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// Uploader stores a file and returns its descriptor
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (domain.Attachment, error)
}

// ObjectStore the part of the minio client the uploader needs
type ObjectStore interface {
	PutObject(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (int64, error)
	PresignGetURL(ctx context.Context, objectName string, expiry time.Duration) (string, error)
	RemoveObject(ctx context.Context, objectName string) error
}

const defaultPresignExpiry = 24 * time.Hour

// MinIOUploader Uploader enforcing size and type policy before writing to minio
type MinIOUploader struct {
	store        ObjectStore
	maxBytes     int64
	allowedTypes []string
	expiry       time.Duration
}

// NewMinIOUploader create uploader from the minio config
func NewMinIOUploader(store ObjectStore, cfg config.MinIOConfig) *MinIOUploader {
	expiry := cfg.PresignExpiry
	if expiry <= 0 {
		expiry = defaultPresignExpiry
	}
	return &MinIOUploader{
		store:        store,
		maxBytes:     cfg.MaxUploadMB << 20,
		allowedTypes: cfg.AllowedTypes,
		expiry:       expiry,
	}
}

// Upload validate, store and presign
func (u *MinIOUploader) Upload(ctx context.Context, req UploadRequest) (domain.Attachment, error) {
	if req.Body == nil || req.FileName == "" || req.Size < 0 {
		return domain.Attachment{}, fmt.Errorf("%w: name %q size %d", domain.ErrInvalidAttachment, req.FileName, req.Size)
	}
	if u.maxBytes > 0 && req.Size > u.maxBytes {
		return domain.Attachment{}, fmt.Errorf("%w: %d bytes", domain.ErrAttachmentTooLarge, req.Size)
	}
	if len(u.allowedTypes) > 0 && !pkg.HasAnyPrefix(req.MimeType, u.allowedTypes) {
		return domain.Attachment{}, fmt.Errorf("%w: %s", domain.ErrAttachmentType, req.MimeType)
	}

	objectName := path.Join(req.RoomID, uuid.New().String(), path.Base(req.FileName))
	size, err := u.store.PutObject(ctx, objectName, req.Body, req.Size, req.MimeType)
	if err != nil {
		return domain.Attachment{}, errprocess.Wrap("upload attachment failed", err, zap.String("object", objectName))
	}

	url, err := u.store.PresignGetURL(ctx, objectName, u.expiry)
	if err != nil {
		if rmErr := u.store.RemoveObject(ctx, objectName); rmErr != nil {
			logger.Log.Warn("remove orphan object failed", zap.String("object", objectName), zap.Error(rmErr))
		}
		return domain.Attachment{}, errprocess.Wrap("presign attachment failed", err, zap.String("object", objectName))
	}

	logger.Log.Info("attachment uploaded", zap.String("object", objectName), zap.Int64("size", size))
	return domain.Attachment{
		FileName: req.FileName,
		FilePath: url,
		MimeType: req.MimeType,
		FileSize: size,
	}, nil
}
