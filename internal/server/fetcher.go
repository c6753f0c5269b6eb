package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	driveport_errors "driveport/pkg/errors"
)

// HTTPFetcher materializes transient references that are plain URLs
// handed out by the chat front. References are single-use: the front
// revokes them shortly after issuing.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPFetcher(maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{
		client:   &http.Client{Timeout: 5 * time.Minute},
		maxBytes: maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, ref, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return fmt.Errorf("%w: bad reference: %v", driveport_errors.ErrTransfer, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", driveport_errors.ErrTransfer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: reference fetch returned %d", driveport_errors.ErrTransfer, resp.StatusCode)
	}

	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("%w: %v", driveport_errors.ErrTransfer, err)
	}
	defer out.Close()

	limit := f.maxBytes
	if limit <= 0 {
		limit = 1 << 31 // 2 GiB guard when unconfigured
	}
	n, err := io.Copy(out, io.LimitReader(resp.Body, limit+1))
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("%w: %v", driveport_errors.ErrTransfer, err)
	}
	if n > limit {
		os.Remove(destPath)
		return fmt.Errorf("%w: %v", driveport_errors.ErrTransfer, driveport_errors.ErrTooLargeForTransport)
	}
	return nil
}
