package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Direct is the primary transport: a single-shot HTTP GET streamed to the
// destination file. It makes no retry or resume attempts; a failed transfer
// is reported to the caller, who decides whether to fall back.
type Direct struct {
	client *http.Client
	opts   Options
}

// NewDirect creates a direct transport with the given options.
func NewDirect(opts Options) *Direct {
	opts = opts.withDefaults()
	return &Direct{
		client: newHTTPClient(opts),
		opts:   opts,
	}
}

// Fetch downloads url into dest with a single GET request.
func (d *Direct) Fetch(ctx context.Context, url, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer drainAndClose(resp.Body)

	if err := checkStatusCode(resp.StatusCode); err != nil {
		return 0, err
	}

	if resp.ContentLength > 0 {
		d.opts.Progress.SetTotal(resp.ContentLength)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}

	n, copyErr := io.Copy(d.opts.Progress.CountingWriter(f), resp.Body)
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return n, fmt.Errorf("write %s: %w", dest, copyErr)
	}

	return n, nil
}
