package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/2lambda123/ultralytics-yolov5/internal/config"
	"github.com/2lambda123/ultralytics-yolov5/internal/mirror"
	"github.com/2lambda123/ultralytics-yolov5/internal/progress"
)

func runMirror(args []string) int {
	fs := flag.NewFlagSet("mirror", flag.ExitOnError)

	configPath := fs.String("config", "", "Path to YAML config file")
	bucket := fs.String("bucket", "", "Mirror bucket URL (required unless configured)")
	prefix := fs.String("prefix", "", "Key prefix inside the bucket")
	put := fs.String("put", "", "Upload a local weights file under its base name")
	check := fs.String("check", "", "Report whether the named asset is mirrored")
	get := fs.String("get", "", "Download the named asset from the mirror")
	output := fs.String("output", "", "Output path for -get (default: asset name)")
	verbose := fs.Bool("verbose", false, "Verbose output")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: weights mirror [options]

Inspect or populate the weights mirror bucket. Exactly one of -put, -check
or -get must be given.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return ExitInvalidArgs
	}

	ops := 0
	for _, v := range []string{*put, *check, *get} {
		if v != "" {
			ops++
		}
	}
	if ops != 1 {
		fmt.Fprintln(os.Stderr, "Error: exactly one of -put, -check or -get is required")
		fs.Usage()
		return ExitInvalidArgs
	}

	cfg, err := loadConfig(*configPath, config.Config{
		MirrorURL: *bucket,
		Verbose:   *verbose,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitInvalidArgs
	}
	if cfg.MirrorURL == "" {
		fmt.Fprintln(os.Stderr, "Error: no mirror bucket configured, pass -bucket")
		return ExitInvalidArgs
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	logger := newLogger(cfg.Verbose)
	defer logger.Sync()

	mir, err := mirror.Open(ctx, cfg.MirrorURL, mirror.Options{
		Prefix: *prefix,
		Logger: logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening mirror: %v\n", err)
		return ExitMirrorError
	}
	defer mir.Close()

	switch {
	case *put != "":
		name := filepath.Base(*put)
		if err := mir.Put(ctx, name, *put); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitMirrorError
		}
		fmt.Printf("%s\tmirrored\n", name)
		return ExitSuccess

	case *check != "":
		ok, err := mir.Exists(ctx, *check)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitMirrorError
		}
		if !ok {
			fmt.Printf("%s\tmissing\n", *check)
			return ExitNotFound
		}
		fmt.Printf("%s\tpresent\n", *check)
		return ExitSuccess

	default:
		dest := *output
		if dest == "" {
			dest = *get
		}
		n, err := mir.Fetch(ctx, *get, dest)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return ExitMirrorError
		}
		fmt.Printf("%s\t%s\n", dest, progress.FormatBytes(n))
		return ExitSuccess
	}
}
