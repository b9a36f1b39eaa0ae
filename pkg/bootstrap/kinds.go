package bootstrap

// SamplerKind selects how the iteration layer orders samples.
type SamplerKind int

const (
	// SamplerNone leaves ordering to the loader's own shuffle flag.
	SamplerNone SamplerKind = iota

	// SamplerDistributedShuffled partitions and shuffles samples across
	// the process group. When a sampler is present it owns ordering and
	// the loader's shuffle flag is forced off.
	SamplerDistributedShuffled
)

func (s SamplerKind) String() string {
	switch s {
	case SamplerDistributedShuffled:
		return "distributed-shuffled"
	default:
		return "none"
	}
}

// BatchAssembly selects the collation strategy for the iteration layer.
type BatchAssembly int

const (
	// AssemblyStandard collates samples one-to-one into a batch.
	AssemblyStandard BatchAssembly = iota

	// AssemblyQuad tiles four samples into a combined mosaic per slot.
	AssemblyQuad
)

func (a BatchAssembly) String() string {
	if a == AssemblyQuad {
		return "quad"
	}
	return "standard"
}

// LoaderKind selects the loader facade. Resolved once at construction
// time, never switched afterwards.
type LoaderKind int

const (
	// LoaderInfinite repeats the dataset indefinitely and is the default.
	LoaderInfinite LoaderKind = iota

	// LoaderReweightable is the plain facade that accepts per-sample
	// weight updates after construction. Required when image weighting is
	// enabled; it cannot repeat infinitely.
	LoaderReweightable
)

func (l LoaderKind) String() string {
	if l == LoaderReweightable {
		return "reweightable"
	}
	return "infinite"
}
