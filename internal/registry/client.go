package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Defaults for the stock YOLOv5 release registry.
const (
	DefaultAPIBase      = "https://api.github.com"
	DefaultDownloadBase = "https://github.com"
	DefaultRepo         = "ultralytics/yolov5"
	DefaultRelease      = "v7.0"
)

// ErrLookupFailed is wrapped by errors returned from failed registry queries.
var ErrLookupFailed = errors.New("registry: release lookup failed")

// Release is a tagged release with its downloadable assets.
type Release struct {
	Tag    string  `json:"tag_name"`
	Assets []Asset `json:"assets"`
}

// Asset is a named binary attached to a release.
type Asset struct {
	Name string `json:"name"`
}

// AssetNames returns the names of all assets in the release.
func (r *Release) AssetNames() []string {
	names := make([]string, len(r.Assets))
	for i, a := range r.Assets {
		names[i] = a.Name
	}
	return names
}

// Options configures the registry client.
type Options struct {
	// APIBase is the registry API root.
	// Default: https://api.github.com
	APIBase string

	// DownloadBase is the host assets are downloaded from.
	// Default: https://github.com
	DownloadBase string

	// TagMarkerPath names a local file whose last non-empty line is used
	// as the release tag when the registry is unreachable. Empty disables
	// the local fallback.
	TagMarkerPath string

	// Timeout for registry queries.
	// Default: 10s
	Timeout time.Duration

	// Logger receives informational and warning output.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// Client queries a GitHub-style release registry.
type Client struct {
	apiBase       string
	downloadBase  string
	tagMarkerPath string
	http          *http.Client
	logger        *zap.Logger
}

// NewClient creates a registry client.
func NewClient(opts Options) *Client {
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	if opts.DownloadBase == "" {
		opts.DownloadBase = DefaultDownloadBase
	}
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		apiBase:       strings.TrimSuffix(opts.APIBase, "/"),
		downloadBase:  strings.TrimSuffix(opts.DownloadBase, "/"),
		tagMarkerPath: opts.TagMarkerPath,
		http:          &http.Client{Timeout: opts.Timeout},
		logger:        opts.Logger,
	}
}

// Release queries the registry for the given release tag. An empty or
// "latest" tag queries the latest release.
func (c *Client) Release(ctx context.Context, repo, tag string) (*Release, error) {
	version := "latest"
	if tag != "" && tag != "latest" {
		version = "tags/" + tag
	}
	url := fmt.Sprintf("%s/repos/%s/releases/%s", c.apiBase, repo, version)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned %d", ErrLookupFailed, url, resp.StatusCode)
	}

	var rel Release
	if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrLookupFailed, url, err)
	}
	if rel.Tag == "" {
		return nil, fmt.Errorf("%w: %s returned no tag_name", ErrLookupFailed, url)
	}

	return &rel, nil
}

// ResolveAssets resolves a release tag and its asset names, cascading
// through the fallback chain: tagged lookup, latest release, local tag
// marker, static default. The returned tag and asset list are always
// usable; the error aggregates the failed lookups on the way, so callers
// can tell a registry answer from a degraded default.
func (c *Client) ResolveAssets(ctx context.Context, repo, tag string) (string, []string, error) {
	rel, err := c.Release(ctx, repo, tag)
	if err == nil {
		return rel.Tag, rel.AssetNames(), nil
	}
	errs := err
	c.logger.Warn("tagged release lookup failed, trying latest",
		zap.String("repo", repo),
		zap.String("tag", tag),
		zap.Error(err))

	rel, err = c.Release(ctx, repo, "latest")
	if err == nil {
		return rel.Tag, rel.AssetNames(), nil
	}
	errs = multierr.Append(errs, err)
	c.logger.Warn("latest release lookup failed, trying local tag marker",
		zap.String("repo", repo),
		zap.Error(err))

	if local, lerr := c.localTag(); lerr == nil {
		return local, DefaultAssets(), errs
	} else if c.tagMarkerPath != "" {
		errs = multierr.Append(errs, lerr)
	}

	if tag == "" {
		tag = DefaultRelease
	}
	c.logger.Warn("falling back to default release tag",
		zap.String("repo", repo),
		zap.String("tag", tag))
	return tag, DefaultAssets(), errs
}

// localTag reads the release tag from the configured marker file.
func (c *Client) localTag() (string, error) {
	if c.tagMarkerPath == "" {
		return "", errors.New("registry: no tag marker configured")
	}
	data, err := os.ReadFile(c.tagMarkerPath)
	if err != nil {
		return "", fmt.Errorf("registry: read tag marker: %w", err)
	}

	var tag string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tag = line
		}
	}
	if tag == "" {
		return "", errors.New("registry: tag marker is empty")
	}
	return tag, nil
}

// DownloadURL builds the asset download URL for a repository, tag and
// asset name.
func (c *Client) DownloadURL(repo, tag, name string) string {
	return fmt.Sprintf("%s/%s/releases/download/%s/%s", c.downloadBase, repo, tag, name)
}

// ReleaseURL points a human at the release page, for error messages.
func (c *Client) ReleaseURL(repo, tag string) string {
	return fmt.Sprintf("%s/%s/releases/%s", c.downloadBase, repo, tag)
}

// DefaultAssets returns the static candidate asset list: every model size
// crossed with every variant suffix. Used only when the registry cannot be
// queried at all.
func DefaultAssets() []string {
	sizes := []string{"n", "s", "m", "l", "x"}
	suffixes := []string{"", "6", "-cls", "-seg"}

	assets := make([]string, 0, len(sizes)*len(suffixes))
	for _, size := range sizes {
		for _, suffix := range suffixes {
			assets = append(assets, fmt.Sprintf("yolov5%s%s.pt", size, suffix))
		}
	}
	return assets
}
