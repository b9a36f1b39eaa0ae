package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2lambda123/ultralytics-yolov5/internal/progress"
)

// Common errors.
var (
	ErrRangeNotSupported = errors.New("transport: server does not support range requests")
	ErrNotFound          = errors.New("transport: resource not found")
	ErrForbidden         = errors.New("transport: access forbidden")
	ErrUnauthorized      = errors.New("transport: unauthorized")
	ErrServerError       = errors.New("transport: server error")
)

// Transport copies the resource at url into the local file dest and returns
// the number of bytes written. Implementations stream directly into dest;
// cleanup of partial files on failure is the caller's responsibility.
type Transport interface {
	Fetch(ctx context.Context, url, dest string) (int64, error)
}

// Options configures the HTTP transports.
type Options struct {
	// MaxIdleConnsPerHost sets the maximum idle connections per host.
	// Default: 100
	MaxIdleConnsPerHost int

	// Timeout for individual requests. Applies per attempt, not to the
	// whole transfer.
	// Default: 30s
	Timeout time.Duration

	// RetryAttempts is the maximum number of retry attempts for the
	// resuming transport.
	// Default: 9
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration

	// Progress is an optional progress reporter. Nil disables reporting.
	Progress *progress.Reporter
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		MaxIdleConnsPerHost: 100,
		Timeout:             30 * time.Second,
		RetryAttempts:       9,
		RetryBackoff:        time.Second,
		RetryMaxBackoff:     30 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxIdleConnsPerHost == 0 {
		o.MaxIdleConnsPerHost = def.MaxIdleConnsPerHost
	}
	if o.Timeout == 0 {
		o.Timeout = def.Timeout
	}
	if o.RetryAttempts == 0 {
		o.RetryAttempts = def.RetryAttempts
	}
	if o.RetryBackoff == 0 {
		o.RetryBackoff = def.RetryBackoff
	}
	if o.RetryMaxBackoff == 0 {
		o.RetryMaxBackoff = def.RetryMaxBackoff
	}
	return o
}

// FileInfo contains metadata about a remote file.
type FileInfo struct {
	Size          int64
	ETag          string
	AcceptsRanges bool
	ContentType   string
	LastModified  time.Time
}

func newHTTPClient(opts Options) *http.Client {
	transport := &http.Transport{
		MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
		MaxIdleConns:        opts.MaxIdleConnsPerHost * 2,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // raw bytes, sizes must match Content-Length
	}

	return &http.Client{
		Transport: transport,
		Timeout:   opts.Timeout,
	}
}

// Head performs a HEAD request to get file metadata.
func Head(ctx context.Context, url string) (*FileInfo, error) {
	return headWithClient(ctx, newHTTPClient(DefaultOptions()), url)
}

func headWithClient(ctx context.Context, client *http.Client, url string) (*FileInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return nil, err
	}

	info := &FileInfo{
		Size:          resp.ContentLength,
		ETag:          cleanETag(resp.Header.Get("ETag")),
		AcceptsRanges: resp.Header.Get("Accept-Ranges") == "bytes",
		ContentType:   resp.Header.Get("Content-Type"),
	}

	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}

	return info, nil
}

// backoff waits for an exponentially increasing duration with jitter.
func backoff(ctx context.Context, opts Options, attempt int) error {
	d := opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if d > opts.RetryMaxBackoff {
		d = opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(d) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code >= 500:
		return fmt.Errorf("%w: %d", ErrServerError, code)
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}

// retryable reports whether a failed attempt is worth repeating. Client
// errors like 404 never resolve on retry.
func retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnauthorized),
		errors.Is(err, ErrRangeNotSupported):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}

// cleanETag removes quotes from an ETag value.
func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	etag = strings.Trim(etag, `"`)
	return etag
}

// ParseContentRange parses a Content-Range header value.
// Returns start, end, total bytes. Total may be -1 if unknown.
func ParseContentRange(header string) (start, end, total int64, err error) {
	// Format: bytes start-end/total or bytes start-end/*
	header = strings.TrimPrefix(header, "bytes ")
	parts := strings.Split(header, "/")
	if len(parts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	rangeParts := strings.Split(parts[0], "-")
	if len(rangeParts) != 2 {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range format: %s", header)
	}

	start, err = strconv.ParseInt(rangeParts[0], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}

	end, err = strconv.ParseInt(rangeParts[1], 10, 64)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}

	if parts[1] == "*" {
		total = -1
	} else {
		total, err = strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
		}
	}

	return start, end, total, nil
}

// drainAndClose discards any remaining body so the connection can be reused.
func drainAndClose(body io.ReadCloser) {
	io.Copy(io.Discard, body)
	body.Close()
}
