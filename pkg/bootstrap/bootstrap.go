package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/2lambda123/ultralytics-yolov5/pkg/barrier"
)

// DefaultWorkerLimit caps loader workers when the caller does not.
const DefaultWorkerLimit = 8

// Options configures a bootstrap run.
type Options struct {
	Params

	// Rank is this process's position in the group: -1 when not part of a
	// distributed group, 0 for the leader, >0 for followers.
	Rank int

	// Group coordinates the process group. Required when Rank >= 0.
	Group barrier.Group

	// Shuffle requests shuffled iteration. Forced off under rectangular
	// batching and whenever a distributed sampler owns the ordering.
	Shuffle bool

	// Quad selects quad batch assembly.
	Quad bool

	// WorkerLimit is the configured ceiling on loader workers.
	// Default: DefaultWorkerLimit
	WorkerLimit int

	// CPUCount overrides the detected host CPU count. Default: runtime.NumCPU().
	CPUCount int

	// DeviceCount overrides accelerator device detection. Default:
	// DetectDeviceCount.
	DeviceCount func() int

	// Logger receives warnings about adjusted options.
	// Default: zap.NewNop()
	Logger *zap.Logger
}

// LoaderConfig is the derived, immutable iteration configuration handed to
// the external iteration layer.
type LoaderConfig struct {
	BatchSize int
	Workers   int
	Shuffle   bool
	Sampler   SamplerKind
	Assembly  BatchAssembly
	Loader    LoaderKind
}

// Bootstrap prepares a dataset for iteration. The builder's expensive
// Prepare step runs exactly once per process group (rank 0 first, everyone
// else waits), then every rank builds its own dataset handle from the
// prepared state and derives its loader configuration from the dataset
// size and host concurrency.
func Bootstrap(ctx context.Context, opts Options, b Builder) (LoaderConfig, Dataset, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if b == nil {
		return LoaderConfig{}, nil, errors.New("bootstrap: nil builder")
	}
	if opts.Rank >= 0 && opts.Group == nil {
		return LoaderConfig{}, nil, fmt.Errorf("bootstrap: rank %d requires a process group", opts.Rank)
	}

	shuffle := opts.Shuffle
	if opts.Rect && shuffle {
		logger.Warn("rect is incompatible with shuffle, setting shuffle=false")
		shuffle = false
	}

	quad := opts.Quad
	if quad && opts.ImageWeights {
		logger.Warn("quad assembly is incompatible with image weights, setting quad=false")
		quad = false
	}

	// Build the index/cache once per machine group.
	err := barrier.LeaderOnce(ctx, opts.Rank, opts.Group, func(ctx context.Context) error {
		return b.Prepare(ctx, opts.Params)
	})
	if err != nil {
		return LoaderConfig{}, nil, fmt.Errorf("bootstrap: prepare dataset: %w", err)
	}

	ds, err := b.Build(ctx, opts.Params)
	if err != nil {
		return LoaderConfig{}, nil, fmt.Errorf("bootstrap: build dataset: %w", err)
	}

	batchSize := opts.BatchSize
	if n := ds.Len(); batchSize > n {
		batchSize = n
	}

	sampler := SamplerNone
	if opts.Rank >= 0 {
		sampler = SamplerDistributedShuffled
	}

	assembly := AssemblyStandard
	if quad {
		assembly = AssemblyQuad
	}

	loader := LoaderInfinite
	if opts.ImageWeights {
		loader = LoaderReweightable
	}

	cfg := LoaderConfig{
		BatchSize: batchSize,
		Workers:   workerCount(opts, batchSize),
		Shuffle:   shuffle && sampler == SamplerNone,
		Sampler:   sampler,
		Assembly:  assembly,
		Loader:    loader,
	}
	return cfg, ds, nil
}

// workerCount derives the loader worker count from host CPUs, accelerator
// devices and the configured ceiling. Never exceeds the batch size; a
// batch of one gets zero workers.
func workerCount(opts Options, batchSize int) int {
	cpus := opts.CPUCount
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}

	detect := opts.DeviceCount
	if detect == nil {
		detect = DetectDeviceCount
	}
	devices := detect()
	if devices < 1 {
		devices = 1
	}

	limit := opts.WorkerLimit
	if limit <= 0 {
		limit = DefaultWorkerLimit
	}

	perDevice := cpus / devices

	batchBound := 0
	if batchSize > 1 {
		batchBound = batchSize
	}

	nw := perDevice
	if batchBound < nw {
		nw = batchBound
	}
	if limit < nw {
		nw = limit
	}
	if nw < 0 {
		nw = 0
	}
	return nw
}

// DetectDeviceCount reports the number of visible accelerator devices by
// inspecting CUDA_VISIBLE_DEVICES. Absent or disabled visibility counts
// as zero devices.
func DetectDeviceCount() int {
	v, ok := os.LookupEnv("CUDA_VISIBLE_DEVICES")
	if !ok {
		return 0
	}
	v = strings.TrimSpace(v)
	if v == "" || v == "-1" {
		return 0
	}

	count := 0
	for _, part := range strings.Split(v, ",") {
		if strings.TrimSpace(part) != "" {
			count++
		}
	}
	return count
}
