package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"chat_feed_sync/internal/feed/domain"
	"chat_feed_sync/internal/feed/repository"
	"chat_feed_sync/pkg/logger"

	"go.uber.org/zap"
)

// PreviewMode how an attachment is rendered
type PreviewMode string

const (
	// PreviewThumbnail inline thumbnail with a fullscreen toggle
	PreviewThumbnail PreviewMode = "thumbnail"
	// PreviewPlayer fullscreen-capable player
	PreviewPlayer PreviewMode = "player"
	// PreviewFrame embedded frame, fullscreen only
	PreviewFrame PreviewMode = "frame"
	// PreviewDownload generic icon, download only
	PreviewDownload PreviewMode = "download"
)

// PreviewState what the UI renders for the preview
type PreviewState struct {
	Mode       PreviewMode       `json:"mode"`
	Inline     bool              `json:"inline"`
	Fullscreen bool              `json:"fullscreen"`
	Attachment domain.Attachment `json:"attachment"`
}

// AttachmentPreview fullscreen toggle and download of one attachment
type AttachmentPreview struct {
	att     domain.Attachment
	fetcher repository.AttachmentFetcher

	mu         sync.Mutex
	fullscreen bool
}

// NewAttachmentPreview preview of att, closed
func NewAttachmentPreview(att domain.Attachment, fetcher repository.AttachmentFetcher) *AttachmentPreview {
	return &AttachmentPreview{att: att, fetcher: fetcher}
}

// Mode dispatch on the attachment kind
func (p *AttachmentPreview) Mode() PreviewMode {
	switch p.att.Kind() {
	case domain.KindImage:
		return PreviewThumbnail
	case domain.KindVideo:
		return PreviewPlayer
	case domain.KindPDF:
		return PreviewFrame
	default:
		return PreviewDownload
	}
}

// IsFullscreen current toggle
func (p *AttachmentPreview) IsFullscreen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fullscreen
}

// State render state
func (p *AttachmentPreview) State() PreviewState {
	return PreviewState{
		Mode:       p.Mode(),
		Inline:     p.Mode() == PreviewThumbnail,
		Fullscreen: p.IsFullscreen(),
		Attachment: p.att,
	}
}

// Open enters fullscreen once the file is confirmed reachable. On any failure
// the toggle is left as it was.
func (p *AttachmentPreview) Open(ctx context.Context) error {
	if p.Mode() == PreviewDownload {
		return fmt.Errorf("%w: %s", domain.ErrPreviewUnsupported, p.att.MimeType)
	}

	if err := p.fetcher.Probe(ctx, p.att.FilePath); err != nil {
		logger.Log.Warn("preview open failed", zap.String("file", p.att.FileName), zap.Error(err))
		return fmt.Errorf("open preview %s: %w", p.att.FileName, err)
	}

	p.mu.Lock()
	p.fullscreen = true
	p.mu.Unlock()
	return nil
}

// Close leaves fullscreen
func (p *AttachmentPreview) Close() {
	p.mu.Lock()
	p.fullscreen = false
	p.mu.Unlock()
}

// Download streams the file from FilePath into w and returns FileName as is
func (p *AttachmentPreview) Download(ctx context.Context, w io.Writer) (string, error) {
	if _, err := p.fetcher.Download(ctx, p.att.FilePath, w); err != nil {
		return "", fmt.Errorf("download %s: %w", p.att.FileName, err)
	}
	return p.att.FileName, nil
}
