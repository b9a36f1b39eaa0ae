package bootstrap

import "context"

// Dataset is the externally constructed dataset collaborator. Only its
// identity and length are inspected here; decoding, labels, augmentation
// and the on-disk cache format live behind this interface.
type Dataset interface {
	Len() int
}

// Params carries the dataset construction inputs through to the builder.
type Params struct {
	Path         string
	ImageSize    int
	BatchSize    int
	Stride       int
	Pad          float64
	Rect         bool
	Augment      bool
	CacheImages  bool
	SingleClass  bool
	ImageWeights bool
	Prefix       string
}

// Builder constructs datasets. Prepare performs the expensive, process-wide
// initialization (building the label index / cache over the file set) and
// is guarded so it runs exactly once per process group. Build is the cheap
// per-rank construction that reuses whatever Prepare produced.
type Builder interface {
	Prepare(ctx context.Context, p Params) error
	Build(ctx context.Context, p Params) (Dataset, error)
}
