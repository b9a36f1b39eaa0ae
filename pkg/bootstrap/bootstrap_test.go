package bootstrap

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/2lambda123/ultralytics-yolov5/pkg/barrier"
)

// fakeDataset is a dataset handle with a fixed length.
type fakeDataset struct {
	length int
	epoch  int64 // identifies the prepared state it was built from
}

func (d *fakeDataset) Len() int { return d.length }

// fakeBuilder counts Prepare calls and stamps built datasets with the
// prepared epoch, so tests can check followers see the leader's state.
type fakeBuilder struct {
	length   int
	prepares atomic.Int64
	prepErr  error
}

func (b *fakeBuilder) Prepare(ctx context.Context, p Params) error {
	if b.prepErr != nil {
		return b.prepErr
	}
	b.prepares.Add(1)
	return nil
}

func (b *fakeBuilder) Build(ctx context.Context, p Params) (Dataset, error) {
	return &fakeDataset{length: b.length, epoch: b.prepares.Load()}, nil
}

func testOptions(length, batch int) Options {
	return Options{
		Params:      Params{Path: "data/images", ImageSize: 640, BatchSize: batch, Stride: 32},
		Rank:        -1,
		CPUCount:    16,
		DeviceCount: func() int { return 1 },
		WorkerLimit: 8,
	}
}

func TestBootstrapBatchSizeClampedToDatasetLength(t *testing.T) {
	b := &fakeBuilder{length: 10}
	cfg, ds, err := Bootstrap(context.Background(), testOptions(10, 64), b)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 10, ds.Len())
}

func TestBootstrapWorkerCount(t *testing.T) {
	tests := []struct {
		name    string
		cpus    int
		devices int
		batch   int
		limit   int
		want    int
	}{
		{"cpu bound", 4, 1, 64, 8, 4},
		{"cpu split across devices", 16, 4, 64, 8, 4},
		{"batch bound", 16, 1, 2, 8, 2},
		{"limit bound", 64, 1, 64, 8, 8},
		{"batch of one gets zero workers", 16, 1, 1, 8, 0},
		{"more devices than cpus", 2, 4, 64, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBuilder{length: 1000}
			opts := testOptions(1000, tt.batch)
			opts.CPUCount = tt.cpus
			opts.DeviceCount = func() int { return tt.devices }
			opts.WorkerLimit = tt.limit

			cfg, _, err := Bootstrap(context.Background(), opts, b)
			require.NoError(t, err)

			assert.Equal(t, tt.want, cfg.Workers)
			assert.GreaterOrEqual(t, cfg.Workers, 0)
			assert.LessOrEqual(t, cfg.Workers, tt.limit)
			if tt.batch > 1 {
				assert.LessOrEqual(t, cfg.Workers, tt.batch)
			}
		})
	}
}

func TestBootstrapRectDisablesShuffle(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	b := &fakeBuilder{length: 100}
	opts := testOptions(100, 16)
	opts.Shuffle = true
	opts.Rect = true
	opts.Logger = zap.New(core)

	cfg, _, err := Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)

	assert.False(t, cfg.Shuffle)
	require.Equal(t, 1, logs.Len(), "expected a logged warning")
	assert.Contains(t, logs.All()[0].Message, "rect is incompatible with shuffle")
}

func TestBootstrapSamplerSelection(t *testing.T) {
	b := &fakeBuilder{length: 100}

	// No group: no sampler, shuffle flag honored.
	opts := testOptions(100, 16)
	opts.Shuffle = true
	cfg, _, err := Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)
	assert.Equal(t, SamplerNone, cfg.Sampler)
	assert.True(t, cfg.Shuffle)

	// Distributed: sampler owns ordering, shuffle forced off.
	opts = testOptions(100, 16)
	opts.Shuffle = true
	opts.Rank = 0
	opts.Group = barrier.NewLocalGroup(1)
	cfg, _, err = Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)
	assert.Equal(t, SamplerDistributedShuffled, cfg.Sampler)
	assert.False(t, cfg.Shuffle)
}

func TestBootstrapAssemblyAndLoaderSelection(t *testing.T) {
	b := &fakeBuilder{length: 100}

	opts := testOptions(100, 16)
	cfg, _, err := Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)
	assert.Equal(t, AssemblyStandard, cfg.Assembly)
	assert.Equal(t, LoaderInfinite, cfg.Loader)

	opts = testOptions(100, 16)
	opts.Quad = true
	cfg, _, err = Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)
	assert.Equal(t, AssemblyQuad, cfg.Assembly)

	opts = testOptions(100, 16)
	opts.ImageWeights = true
	cfg, _, err = Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)
	assert.Equal(t, LoaderReweightable, cfg.Loader)
}

func TestBootstrapQuadIncompatibleWithImageWeights(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	b := &fakeBuilder{length: 100}
	opts := testOptions(100, 16)
	opts.Quad = true
	opts.ImageWeights = true
	opts.Logger = zap.New(core)

	cfg, _, err := Bootstrap(context.Background(), opts, b)
	require.NoError(t, err)

	assert.Equal(t, AssemblyStandard, cfg.Assembly)
	assert.Equal(t, LoaderReweightable, cfg.Loader)
	assert.Equal(t, 1, logs.Len())
}

func TestBootstrapPreparesOncePerGroup(t *testing.T) {
	const size = 2
	g := barrier.NewLocalGroup(size)
	b := &fakeBuilder{length: 100}

	var wg sync.WaitGroup
	datasets := make([]Dataset, size)
	errs := make([]error, size)
	for rank := 0; rank < size; rank++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			opts := testOptions(100, 16)
			opts.Rank = rank
			opts.Group = g
			_, datasets[rank], errs[rank] = Bootstrap(context.Background(), opts, b)
		}(rank)
	}
	wg.Wait()

	for rank := 0; rank < size; rank++ {
		require.NoError(t, errs[rank], "rank %d", rank)
	}
	assert.Equal(t, int64(1), b.prepares.Load(), "Prepare must run exactly once")

	// Both ranks built from the same prepared state.
	lead := datasets[0].(*fakeDataset)
	follow := datasets[1].(*fakeDataset)
	assert.Equal(t, lead.epoch, follow.epoch)
	assert.Equal(t, lead.Len(), follow.Len())
}

func TestBootstrapRequiresGroupForDistributedRank(t *testing.T) {
	b := &fakeBuilder{length: 100}
	opts := testOptions(100, 16)
	opts.Rank = 0
	opts.Group = nil

	_, _, err := Bootstrap(context.Background(), opts, b)
	assert.Error(t, err)
}

func TestDetectDeviceCount(t *testing.T) {
	tests := []struct {
		value string
		want  int
	}{
		{"0", 1},
		{"0,1", 2},
		{"0,1,2,3", 4},
		{"", 0},
		{"-1", 0},
	}

	for _, tt := range tests {
		t.Setenv("CUDA_VISIBLE_DEVICES", tt.value)
		assert.Equal(t, tt.want, DetectDeviceCount(), "CUDA_VISIBLE_DEVICES=%q", tt.value)
	}
}
