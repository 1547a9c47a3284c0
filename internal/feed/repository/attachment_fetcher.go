package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
)

// AttachmentFetcher reaches the storage URL of an attachment
type AttachmentFetcher interface {
	// Probe checks the file is reachable
	Probe(ctx context.Context, url string) error
	// Download copies the file into w
	Download(ctx context.Context, url string, w io.Writer) (int64, error)
}

const defaultFetchTimeout = 30 * time.Second

// HTTPAttachmentFetcher AttachmentFetcher over the fiber HTTP client
type HTTPAttachmentFetcher struct {
	timeout time.Duration
}

// NewHTTPAttachmentFetcher timeout <= 0 uses 30s
func NewHTTPAttachmentFetcher(timeout time.Duration) *HTTPAttachmentFetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &HTTPAttachmentFetcher{timeout: timeout}
}

// Probe requests the first byte, any status >= 400 fails. Presigned GET
// URLs reject HEAD, so a ranged GET is used.
func (f *HTTPAttachmentFetcher) Probe(ctx context.Context, url string) error {
	code, _, err := f.do(ctx, fiber.Get(url).Set(fiber.HeaderRange, "bytes=0-0"))
	if err != nil {
		return fmt.Errorf("probe %s: %w", url, err)
	}
	if code >= fiber.StatusBadRequest {
		return fmt.Errorf("probe %s: status %d", url, code)
	}
	return nil
}

// Download GET request, body written to w
func (f *HTTPAttachmentFetcher) Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	code, body, err := f.do(ctx, fiber.Get(url))
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", url, err)
	}
	if code >= fiber.StatusBadRequest {
		return 0, fmt.Errorf("download %s: status %d", url, code)
	}
	n, err := w.Write(body)
	return int64(n), err
}

func (f *HTTPAttachmentFetcher) do(ctx context.Context, agent *fiber.Agent) (int, []byte, error) {
	timeout := f.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	code, body, errs := agent.Timeout(timeout).Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return code, body, nil
}
