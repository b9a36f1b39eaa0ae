package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"go.uber.org/zap"
	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Options configures a mirror.
type Options struct {
	// Prefix is prepended to every object key.
	Prefix string

	// Logger receives informational output.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// Mirror caches resolved artifacts in an object-store bucket so that a
// fleet of machines hits the upstream registry once instead of N times.
type Mirror struct {
	bucket *blob.Bucket
	prefix string
	logger *zap.Logger

	ownsBucket bool
}

// Open opens a mirror over the bucket identified by a gocloud URL
// (s3://..., gs://..., file://..., mem://).
func Open(ctx context.Context, bucketURL string, opts Options) (*Mirror, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("open mirror bucket: %w", err)
	}
	m := New(bucket, opts)
	m.ownsBucket = true
	return m, nil
}

// New wraps an already opened bucket.
func New(bucket *blob.Bucket, opts Options) *Mirror {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Mirror{
		bucket: bucket,
		prefix: opts.Prefix,
		logger: opts.Logger,
	}
}

// Close releases the bucket if this mirror opened it.
func (m *Mirror) Close() error {
	if m.ownsBucket {
		return m.bucket.Close()
	}
	return nil
}

// Exists reports whether the named artifact is present in the mirror.
func (m *Mirror) Exists(ctx context.Context, name string) (bool, error) {
	return m.bucket.Exists(ctx, m.key(name))
}

// Fetch copies the named artifact from the mirror to dest. A failed copy
// removes the partial local file. Returns the number of bytes written.
func (m *Mirror) Fetch(ctx context.Context, name, dest string) (int64, error) {
	r, err := m.bucket.NewReader(ctx, m.key(name), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return 0, fmt.Errorf("mirror: %s not found", name)
		}
		return 0, fmt.Errorf("mirror: open %s: %w", name, err)
	}
	defer r.Close()

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("mirror: create %s: %w", dest, err)
	}

	n, copyErr := io.Copy(f, r)
	if closeErr := f.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		if rmErr := os.Remove(dest); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			m.logger.Warn("could not remove partial mirror copy",
				zap.String("path", dest),
				zap.Error(rmErr))
		}
		return 0, fmt.Errorf("mirror: copy %s: %w", name, copyErr)
	}

	m.logger.Info("fetched from mirror",
		zap.String("name", name),
		zap.String("dest", dest))
	return n, nil
}

// Put uploads a local artifact into the mirror under its name.
func (m *Mirror) Put(ctx context.Context, name, src string) error {
	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("mirror: open %s: %w", src, err)
	}
	defer f.Close()

	w, err := m.bucket.NewWriter(ctx, m.key(name), &blob.WriterOptions{
		Metadata: map[string]string{
			"source_path": src,
		},
	})
	if err != nil {
		return fmt.Errorf("mirror: create writer for %s: %w", name, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()
		return fmt.Errorf("mirror: upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mirror: finalize %s: %w", name, err)
	}

	m.logger.Info("uploaded to mirror", zap.String("name", name))
	return nil
}

func (m *Mirror) key(name string) string {
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}
