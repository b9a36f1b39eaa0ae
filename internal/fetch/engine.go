package fetch

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/2lambda123/ultralytics-yolov5/internal/progress"
	"github.com/2lambda123/ultralytics-yolov5/internal/transport"
)

// Request describes a single file transfer.
type Request struct {
	// URL is the primary source.
	URL string

	// AlternateURL is tried by the resuming transport when the primary
	// transfer fails. Empty means retry the primary URL.
	AlternateURL string

	// Dest is the local path to materialize the file at.
	Dest string

	// MinBytes is the minimum valid size. A resulting file must be strictly
	// larger to count as a successful download. Values <= 0 mean any
	// non-empty file is accepted.
	MinBytes int64
}

// Outcome reports the result of a Fetch. A failed fetch never leaves a
// partial file at Dest.
type Outcome struct {
	Dest      string
	Bytes     int64
	Succeeded bool
	FellBack  bool
	Err       error
}

// Options configures the engine.
type Options struct {
	// Primary is the transport for the first attempt.
	// Default: transport.Direct built from Transport.
	Primary transport.Transport

	// Fallback is the resumable transport used after a failed or
	// undersized primary transfer.
	// Default: transport.Resuming built from Transport.
	Fallback transport.Transport

	// Transport configures the default transports.
	Transport transport.Options

	// Progress is an optional progress reporter, shared by both transports.
	Progress *progress.Reporter

	// Logger receives informational and warning output.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// Engine downloads single files with size validation, partial-download
// cleanup and a resumable fallback transport.
type Engine struct {
	primary  transport.Transport
	fallback transport.Transport
	logger   *zap.Logger
}

// NewEngine creates an engine, filling in default transports.
func NewEngine(opts Options) *Engine {
	topts := opts.Transport
	if topts.Progress == nil {
		topts.Progress = opts.Progress
	}
	if opts.Primary == nil {
		opts.Primary = transport.NewDirect(topts)
	}
	if opts.Fallback == nil {
		opts.Fallback = transport.NewResuming(topts)
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Engine{
		primary:  opts.Primary,
		fallback: opts.Fallback,
		logger:   opts.Logger,
	}
}

// Fetch transfers req.URL to req.Dest. On a failed or undersized primary
// transfer the partial file is removed and the alternate URL (or the same
// URL) is retried through the resumable fallback transport. Whatever
// happens, no file smaller than req.MinBytes survives at req.Dest.
//
// Failures are reported in the Outcome, not raised: the caller decides
// whether an unresolved artifact is fatal.
func (e *Engine) Fetch(ctx context.Context, req Request) Outcome {
	out := Outcome{Dest: req.Dest}

	e.logger.Info("downloading",
		zap.String("url", req.URL),
		zap.String("dest", req.Dest))

	_, err := e.primary.Fetch(ctx, req.URL, req.Dest)
	if err == nil {
		_, err = validate(req.Dest, req.MinBytes)
	}

	if err != nil {
		removePartial(e.logger, req.Dest)

		retryURL := req.AlternateURL
		if retryURL == "" {
			retryURL = req.URL
		}

		e.logger.Warn("transfer failed, retrying with resumable transport",
			zap.String("url", retryURL),
			zap.String("dest", req.Dest),
			zap.Error(err))
		fallbacksTotal.Inc()
		out.FellBack = true

		if _, ferr := e.fallback.Fetch(ctx, retryURL, req.Dest); ferr != nil {
			err = multierr.Append(err, ferr)
		}
	}

	size, verr := validate(req.Dest, req.MinBytes)
	if verr != nil {
		removePartial(e.logger, req.Dest)
		out.Err = multierr.Append(err, verr)
		downloadsTotal.WithLabelValues("failure").Inc()
		e.logger.Warn("download failed",
			zap.String("url", req.URL),
			zap.String("dest", req.Dest),
			zap.Error(out.Err))
		return out
	}

	out.Bytes = size
	out.Succeeded = true
	downloadsTotal.WithLabelValues("success").Inc()
	downloadBytesTotal.Add(float64(size))
	e.logger.Info("download complete",
		zap.String("dest", req.Dest),
		zap.String("size", progress.FormatBytes(size)))
	return out
}

// validate checks that path exists and is strictly larger than minBytes,
// returning its size.
func validate(path string, minBytes int64) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("downloaded file missing: %w", err)
	}
	if fi.Size() <= minBytes {
		return fi.Size(), fmt.Errorf("downloaded file %s is %d bytes, need more than %d",
			path, fi.Size(), minBytes)
	}
	return fi.Size(), nil
}

// removePartial deletes a partial download, tolerating its absence.
func removePartial(logger *zap.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("could not remove partial download",
			zap.String("path", path),
			zap.Error(err))
	}
}
