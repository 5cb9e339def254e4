package dataset

// Config carries the load-time parameters consumed by Construct. Structural
// fields (everything except the constraint and penalty vectors) are fixed
// once a Dataset has been constructed; ResetConfig refuses to change them.
type Config struct {
	// EnableBundle turns conflict-aware feature bundling on.
	EnableBundle bool
	// DeviceType selects bin-budget caps: "cpu" or "gpu". On "gpu" a
	// single-value group may not exceed 256 total bins.
	DeviceType string
	// MaxBin is the global per-feature bin cap used during quantization.
	MaxBin int
	// MinDataInBin is the minimum row count per bin used during quantization.
	MinDataInBin int
	// BinConstructSampleCnt is the number of rows sampled for bundling.
	BinConstructSampleCnt int
	// UseMissing enables missing-value handling.
	UseMissing bool
	// ZeroAsMissing treats zero raw values as missing.
	ZeroAsMissing bool

	// MonotoneConstraints is indexed by real feature index; -1, 0 or +1.
	MonotoneConstraints []int8
	// FeaturePenalty is indexed by real feature index; 1.0 is neutral.
	FeaturePenalty []float64
	// MaxBinByFeature overrides MaxBin per real feature index; -1 is unset.
	MaxBinByFeature []int32
	// ForcedBinBounds carries caller-forced bin boundaries per real feature.
	ForcedBinBounds [][]float64
}

// DefaultConfig returns the configuration used when the caller does not
// override anything.
func DefaultConfig() *Config {
	return &Config{
		EnableBundle:          true,
		DeviceType:            "cpu",
		MaxBin:                255,
		MinDataInBin:          3,
		BinConstructSampleCnt: 200000,
		UseMissing:            true,
		ZeroAsMissing:         false,
	}
}
