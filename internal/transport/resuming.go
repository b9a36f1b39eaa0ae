package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Resuming is the fallback transport: a retrying HTTP client that resumes
// an interrupted transfer from the bytes already on disk using Range
// requests. The retry budget is fixed by Options.RetryAttempts.
type Resuming struct {
	client *http.Client
	opts   Options
}

// NewResuming creates a resuming transport with the given options.
func NewResuming(opts Options) *Resuming {
	opts = opts.withDefaults()
	return &Resuming{
		client: newHTTPClient(opts),
		opts:   opts,
	}
}

// Fetch downloads url into dest, resuming from any partial content left by
// an earlier attempt. Each retry picks up where the previous one stopped.
func (r *Resuming) Fetch(ctx context.Context, url, dest string) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= r.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := backoff(ctx, r.opts, attempt); err != nil {
				return fileSize(dest), err
			}
		}

		n, err := r.attempt(ctx, url, dest)
		if err == nil {
			return n, nil
		}
		lastErr = err
		if !retryable(err) {
			break
		}
	}

	return fileSize(dest), fmt.Errorf("resumable download failed after %d attempts: %w",
		r.opts.RetryAttempts+1, lastErr)
}

// attempt performs one transfer pass, resuming from the current size of dest.
func (r *Resuming) attempt(ctx context.Context, url, dest string) (int64, error) {
	have := fileSize(dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return have, fmt.Errorf("create request: %w", err)
	}
	if have > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", have))
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return have, err
	}
	defer drainAndClose(resp.Body)

	var f *os.File
	switch resp.StatusCode {
	case http.StatusPartialContent:
		// Server honors the range; verify it starts where our file ends.
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			start, _, total, perr := ParseContentRange(cr)
			if perr != nil {
				return have, perr
			}
			if start != have {
				return have, fmt.Errorf("server resumed at byte %d, expected %d", start, have)
			}
			if total > 0 {
				r.opts.Progress.SetTotal(total)
			}
		}
		f, err = os.OpenFile(dest, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return have, fmt.Errorf("open %s: %w", dest, err)
		}

	case http.StatusOK:
		// Server ignored the range header; restart from scratch.
		if resp.ContentLength > 0 {
			r.opts.Progress.SetTotal(resp.ContentLength)
		}
		r.opts.Progress.Reset()
		have = 0
		f, err = os.Create(dest)
		if err != nil {
			return 0, fmt.Errorf("create %s: %w", dest, err)
		}

	case http.StatusRequestedRangeNotSatisfiable:
		// Everything is already on disk.
		if have > 0 {
			return have, nil
		}
		return 0, ErrRangeNotSupported

	default:
		return have, checkStatusCode(resp.StatusCode)
	}

	n, copyErr := io.Copy(r.opts.Progress.CountingWriter(f), resp.Body)
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		return have + n, fmt.Errorf("write %s: %w", dest, copyErr)
	}

	return have + n, nil
}

// fileSize returns the size of path, or 0 if it does not exist.
func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}
