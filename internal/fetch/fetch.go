// Package fetch retrieves raw attachment bytes from the platform CDN.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrTooLarge is returned when an attachment exceeds the configured cap.
var ErrTooLarge = errors.New("attachment exceeds size limit")

// DefaultMaxBytes bounds attachment downloads. Voice messages are small;
// anything bigger than this is not worth decoding.
const DefaultMaxBytes = 64 << 20

const userAgent = "voxbot/1"

// Options configures a Client. Zero values get sensible defaults.
type Options struct {
	MaxBytes   int64
	Retries    int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client downloads attachments with bounded size and simple retry.
type Client struct {
	maxBytes int64
	retries  int
	http     *http.Client
	logger   *zap.Logger
}

// NewClient builds a Client from opts.
func NewClient(opts Options) *Client {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Retries <= 0 {
		opts.Retries = 3
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		maxBytes: opts.MaxBytes,
		retries:  opts.Retries,
		http:     opts.HTTPClient,
		logger:   opts.Logger,
	}
}

// Download fetches the full attachment body. Transient failures are retried
// with a short backoff; ErrTooLarge and context cancellation are not.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, errors.New("attachment URL is required")
	}

	var lastErr error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if attempt > 1 {
			c.logger.Warn("retrying attachment download", zap.Int("attempt", attempt), zap.Int("max", c.retries), zap.String("url", url))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * 250 * time.Millisecond):
			}
		}

		body, err := c.downloadOnce(ctx, url)
		if err == nil {
			return body, nil
		}
		if errors.Is(err, ErrTooLarge) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}

func (c *Client) downloadOnce(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	if resp.ContentLength > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read attachment body: %w", err)
	}
	if int64(len(body)) > c.maxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, c.maxBytes)
	}

	return body, nil
}
