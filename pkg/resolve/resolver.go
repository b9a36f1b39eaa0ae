package resolve

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/2lambda123/ultralytics-yolov5/internal/fetch"
	"github.com/2lambda123/ultralytics-yolov5/internal/mirror"
	"github.com/2lambda123/ultralytics-yolov5/internal/registry"
)

// MinWeightBytes is the minimum plausible size of a weights file. Anything
// smaller is treated as a failed download. No digest is checked beyond
// this; the size check is the only integrity control.
const MinWeightBytes = 100_000

// ErrAssetNotFound reports that a bare name is not among the known release
// assets. The resolver does not retry in that case.
var ErrAssetNotFound = errors.New("resolve: asset not found in release")

// Source identifies where a resolved artifact came from.
type Source int

const (
	SourceNone Source = iota
	SourceLocal
	SourceMirror
	SourceURL
	SourceRelease
)

func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceMirror:
		return "mirror"
	case SourceURL:
		return "url"
	case SourceRelease:
		return "release"
	default:
		return "none"
	}
}

// Attempt records one tried source and its failure, if any.
type Attempt struct {
	Source string
	Err    error
}

// Result reports a resolution. Path is always usable as "the place the
// caller should open": the resolved local file on success, or the original
// unresolved spec on failure, in which case the caller's open will fail
// with a plain not-found error. Found and Err make the distinction
// explicit so callers no longer have to read logs to tell "fetch failed"
// from "nothing to fetch".
type Result struct {
	Path     string
	Found    bool
	Source   Source
	Attempts []Attempt
	Err      error
}

// Options configures a resolver.
type Options struct {
	// Repo is the release repository, e.g. "ultralytics/yolov5".
	Repo string

	// Release is the default release tag, e.g. "v7.0".
	Release string

	// Dir is where resolved artifacts are materialized when the requested
	// spec is relative. Default: current directory.
	Dir string

	// Registry queries the release registry. Required for bare names.
	Registry *registry.Client

	// Engine performs the downloads. Required unless every spec resolves
	// locally.
	Engine *fetch.Engine

	// Mirror is an optional artifact cache consulted before the registry
	// and populated after successful downloads.
	Mirror *mirror.Mirror

	// Logger receives informational and warning output.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// Resolver turns a file spec (existing path, direct URL or bare asset
// name) into a local file.
type Resolver struct {
	repo     string
	release  string
	dir      string
	registry *registry.Client
	engine   *fetch.Engine
	mirror   *mirror.Mirror
	logger   *zap.Logger
}

// New creates a resolver.
func New(opts Options) *Resolver {
	if opts.Repo == "" {
		opts.Repo = registry.DefaultRepo
	}
	if opts.Release == "" {
		opts.Release = registry.DefaultRelease
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Registry == nil {
		opts.Registry = registry.NewClient(registry.Options{Logger: opts.Logger})
	}
	if opts.Engine == nil {
		opts.Engine = fetch.NewEngine(fetch.Options{Logger: opts.Logger})
	}
	return &Resolver{
		repo:     opts.Repo,
		release:  opts.Release,
		dir:      opts.Dir,
		registry: opts.Registry,
		engine:   opts.Engine,
		mirror:   opts.Mirror,
		logger:   opts.Logger,
	}
}

// Resolve locates the artifact named by spec and returns where it lives.
//
// Resolution order: existing local file, direct URL download, mirror
// bucket, release registry. Failures along the way are absorbed into the
// Result rather than aborting, and an unresolvable spec comes back
// unchanged in Result.Path.
func (r *Resolver) Resolve(ctx context.Context, spec string) Result {
	spec = strings.TrimSpace(strings.ReplaceAll(spec, "'", ""))
	res := Result{Path: spec}

	if spec == "" {
		res.Err = errors.New("resolve: empty file spec")
		return res
	}

	if isURL(spec) {
		return r.resolveURL(ctx, spec)
	}

	dest := r.destPath(spec)
	if fileExists(dest) {
		res.Path = dest
		res.Found = true
		res.Source = SourceLocal
		return res
	}

	return r.resolveAsset(ctx, spec, dest)
}

// resolveURL downloads a directly specified URL, deriving the local file
// name from the decoded URL path with any query parameters stripped.
func (r *Resolver) resolveURL(ctx context.Context, rawURL string) Result {
	res := Result{Path: rawURL}

	u, err := url.Parse(rawURL)
	if err != nil {
		res.Err = fmt.Errorf("resolve: parse url: %w", err)
		return res
	}

	decoded := u.Path
	if dec, derr := url.PathUnescape(u.Path); derr == nil {
		decoded = dec
	}
	name := path.Base(decoded)

	dest := r.destPath(name)
	if fileExists(dest) {
		r.logger.Info("found url locally",
			zap.String("url", rawURL),
			zap.String("path", dest))
		res.Path = dest
		res.Found = true
		res.Source = SourceLocal
		return res
	}

	out := r.engine.Fetch(ctx, fetch.Request{
		URL:      rawURL,
		Dest:     dest,
		MinBytes: MinWeightBytes,
	})
	res.Attempts = append(res.Attempts, Attempt{Source: "url:" + rawURL, Err: out.Err})
	res.Source = SourceURL
	if out.Succeeded {
		res.Path = dest
		res.Found = true
		return res
	}

	res.Path = dest
	res.Err = out.Err
	return res
}

// resolveAsset treats spec as a bare asset name and resolves it through
// the mirror and the release registry.
func (r *Resolver) resolveAsset(ctx context.Context, spec, dest string) Result {
	res := Result{Path: spec}
	name := path.Base(filepath.ToSlash(spec))

	if r.mirror != nil {
		if ok, _ := r.mirror.Exists(ctx, name); ok {
			if err := mkdirParent(dest); err == nil {
				if _, err := r.mirror.Fetch(ctx, name, dest); err == nil {
					res.Path = dest
					res.Found = true
					res.Source = SourceMirror
					return res
				} else {
					res.Attempts = append(res.Attempts, Attempt{Source: "mirror:" + name, Err: err})
				}
			}
		}
	}

	tag, assets, regErr := r.registry.ResolveAssets(ctx, r.repo, r.release)
	if regErr != nil {
		res.Attempts = append(res.Attempts, Attempt{Source: "registry:" + r.repo, Err: regErr})
	}

	if !contains(assets, name) {
		res.Err = multierr.Append(regErr,
			fmt.Errorf("%w: %s not in assets of %s %s", ErrAssetNotFound, name, r.repo, tag))
		r.logger.Warn("asset not found, returning spec unchanged",
			zap.String("spec", spec),
			zap.String("tag", tag))
		return res
	}

	if err := mkdirParent(dest); err != nil {
		res.Err = multierr.Append(regErr, err)
		return res
	}

	assetURL := r.registry.DownloadURL(r.repo, tag, name)
	out := r.engine.Fetch(ctx, fetch.Request{
		URL:      assetURL,
		Dest:     dest,
		MinBytes: MinWeightBytes,
	})
	res.Attempts = append(res.Attempts, Attempt{Source: "release:" + assetURL, Err: out.Err})
	res.Source = SourceRelease

	if !out.Succeeded {
		res.Err = multierr.Append(regErr, fmt.Errorf("download %s: %w (see %s)",
			assetURL, out.Err, r.registry.ReleaseURL(r.repo, tag)))
		return res
	}

	if r.mirror != nil {
		if err := r.mirror.Put(ctx, name, dest); err != nil {
			r.logger.Warn("could not populate mirror",
				zap.String("name", name),
				zap.Error(err))
		}
	}

	res.Path = dest
	res.Found = true
	return res
}

// destPath places a relative artifact under the resolver's directory.
func (r *Resolver) destPath(p string) string {
	if r.dir == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.dir, p)
}

func isURL(s string) bool {
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		return false
	}
	u, err := url.Parse(s)
	return err == nil && u.Host != ""
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

func mkdirParent(p string) error {
	dir := filepath.Dir(p)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("resolve: create %s: %w", dir, err)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
