package app

import (
	"bytes"
	"errors"
	"fmt"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/pkg"
	"chat_feed_sync/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AttachmentHandler upload and download of attachment files over HTTP
type AttachmentHandler struct {
	uploader repository.Uploader
	fetcher  repository.AttachmentFetcher
	// downloads are proxied only for file paths under one of these prefixes
	allowedOrigins []string
}

// NewAttachmentHandler create AttachmentHandler
func NewAttachmentHandler(uploader repository.Uploader, fetcher repository.AttachmentFetcher, allowedOrigins []string) *AttachmentHandler {
	return &AttachmentHandler{
		uploader:       uploader,
		fetcher:        fetcher,
		allowedOrigins: allowedOrigins,
	}
}

// Upload multipart field "file" plus "room_id", answers the attachment descriptor
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing file"})
	}

	f, err := fh.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unreadable file"})
	}
	defer f.Close()

	att, err := h.uploader.Upload(c.UserContext(), repository.UploadRequest{
		RoomID:   c.FormValue("room_id"),
		FileName: fh.Filename,
		MimeType: fh.Header.Get(fiber.HeaderContentType),
		Size:     fh.Size,
		Body:     f,
	})
	switch {
	case err == nil:
		return c.Status(fiber.StatusCreated).JSON(att)
	case errors.Is(err, domain.ErrAttachmentTooLarge):
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrAttachmentType):
		return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidAttachment):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "upload failed"})
	}
}

// Download streams file_path back under file_name
func (h *AttachmentHandler) Download(c *fiber.Ctx) error {
	att := domain.Attachment{
		FileName: c.Query("file_name"),
		FilePath: c.Query("file_path"),
		MimeType: c.Query("mime_type"),
	}
	if att.FilePath == "" || att.FileName == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "file_path and file_name are required"})
	}
	if !pkg.HasAnyPrefix(att.FilePath, h.allowedOrigins) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "file_path not allowed"})
	}

	var buf bytes.Buffer
	name, err := NewAttachmentPreview(att, h.fetcher).Download(c.UserContext(), &buf)
	if err != nil {
		logger.Log.Warn("attachment download failed", zap.String("file", att.FileName), zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "download failed"})
	}

	if att.MimeType != "" {
		c.Set(fiber.HeaderContentType, att.MimeType)
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	}
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Send(buf.Bytes())
}
