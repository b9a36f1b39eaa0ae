package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/2lambda123/ultralytics-yolov5/internal/config"
	"github.com/2lambda123/ultralytics-yolov5/internal/fetch"
	"github.com/2lambda123/ultralytics-yolov5/internal/mirror"
	"github.com/2lambda123/ultralytics-yolov5/internal/progress"
	"github.com/2lambda123/ultralytics-yolov5/internal/registry"
	"github.com/2lambda123/ultralytics-yolov5/internal/transport"
	"github.com/2lambda123/ultralytics-yolov5/pkg/resolve"
)

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	repo := fs.String("repo", "", "Release repository as owner/name")
	release := fs.String("release", "", "Release tag")
	dir := fs.String("dir", "", "Directory to place resolved files in")
	mirrorURL := fs.String("mirror", "", "Mirror bucket URL (s3://, gs://, file://)")
	tagMarker := fs.String("tag-marker", "", "Local file whose last line names the release tag")
	apiBase := fs.String("api-base", "", "Release registry API root (default: https://api.github.com)")
	downloadBase := fs.String("download-base", "", "Asset download host (default: https://github.com)")
	verbose := fs.Bool("verbose", false, "Verbose output with download progress")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: weights fetch [options] <spec>...

Resolve each spec to a local weights file. A spec can be an existing path
(returned as is), a direct http(s) URL, or a bare asset name looked up in
the release registry. Downloads fall back to a resumable transport and are
cached in the mirror bucket when one is configured.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	specs := fs.Args()
	if len(specs) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one spec is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath, config.Config{
		Repo:       *repo,
		Release:    *release,
		WeightsDir: *dir,
		MirrorURL:  *mirrorURL,
		TagMarker:  *tagMarker,
		Verbose:    *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n[weights] Received interrupt, shutting down...")
		cancel()
	}()

	logger := newLogger(cfg.Verbose)
	defer logger.Sync()

	var reporter *progress.Reporter
	if cfg.Verbose {
		reporter = progress.NewReporter(progress.Options{Label: "weights"})
		reporter.Start()
		defer reporter.Stop()
	}

	engine := fetch.NewEngine(fetch.Options{
		Transport: transport.Options{
			RetryAttempts:   cfg.Retry.Attempts,
			RetryBackoff:    cfg.Retry.Backoff,
			RetryMaxBackoff: cfg.Retry.MaxBackoff,
		},
		Progress: reporter,
		Logger:   logger,
	})

	reg := registry.NewClient(registry.Options{
		APIBase:       *apiBase,
		DownloadBase:  *downloadBase,
		TagMarkerPath: cfg.TagMarker,
		Logger:        logger,
	})

	var mir *mirror.Mirror
	if cfg.MirrorURL != "" {
		mir, err = mirror.Open(ctx, cfg.MirrorURL, mirror.Options{Logger: logger})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening mirror: %v\n", err)
			return ExitMirrorError
		}
		defer mir.Close()
	}

	resolver := resolve.New(resolve.Options{
		Repo:     cfg.Repo,
		Release:  cfg.Release,
		Dir:      cfg.WeightsDir,
		Registry: reg,
		Engine:   engine,
		Mirror:   mir,
		Logger:   logger,
	})

	exit := ExitSuccess
	for _, spec := range specs {
		res := resolver.Resolve(ctx, spec)
		if res.Found {
			fmt.Printf("%s\t%s\n", res.Path, res.Source)
			continue
		}

		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", spec, res.Err)
		if errors.Is(res.Err, resolve.ErrAssetNotFound) {
			if exit == ExitSuccess {
				exit = ExitNotFound
			}
		} else {
			exit = ExitDownloadFailed
		}
	}

	return exit
}
