package dataset

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestConflictCount(t *testing.T) {
	mark := []uint8{1, 0, 1, 0, 1}

	assert.Equal(t, 0, conflictCount(mark, []int{1, 3}, 10, 1))
	assert.Equal(t, 2, conflictCount(mark, []int{0, 1, 2}, 10, 64))
	// hitting the running budget aborts with -1
	assert.Equal(t, -1, conflictCount(mark, []int{0, 2, 4}, 2, 64))
	// a row already at the per-row feature cap aborts with -1
	assert.Equal(t, -1, conflictCount(mark, []int{0}, 10, 1))
	// a zero budget rejects immediately, conflicts or not
	assert.Equal(t, -1, conflictCount(mark, []int{1}, 0, 64))
}

func TestMarkUsed(t *testing.T) {
	mark := make([]uint8, 4)
	markUsed(mark, []int{0, 2})
	markUsed(mark, []int{2, 3})
	assert.Equal(t, []uint8{1, 0, 2, 1}, mark)
}

func TestFixSampleIndices(t *testing.T) {
	// default bin equals most frequent bin: nothing to fix
	bm := stepMapper(4, 0)
	assert.Nil(t, fixSampleIndices(bm, 6, []int{1, 4}, []float64{1, 2}))

	// most frequent bin 2: explicit rows at the most frequent value drop out,
	// implicit zero rows become explicit
	bm = NewBinMapper([]float64{0.5, 1.5, 2.5, math.Inf(1)}, MissingNone, 0.5, 2)
	indices := []int{1, 3, 4}
	values := []float64{2, 1, 2} // rows 1 and 4 sit on the most frequent bin
	fixed := fixSampleIndices(bm, 6, indices, values)
	assert.Equal(t, []int{0, 2, 3, 5}, fixed)
	// inputs are untouched
	assert.Equal(t, []int{1, 3, 4}, indices)
}

func TestFixSampleIndicesEmptyResultKeepsOriginal(t *testing.T) {
	// default bin 0, most frequent bin 1: a fix is required, but every
	// sample row is explicit and sits on the most frequent bin, so the
	// fixed list is empty and the original indices stay in effect
	bm := NewBinMapper([]float64{0.5, 1.5, math.Inf(1)}, MissingNone, 0.9, 1)
	require.NotEqual(t, bm.DefaultBin(), bm.MostFreqBin())

	indices := []int{0, 1, 2}
	values := []float64{1, 1, 1}
	assert.Nil(t, fixSampleIndices(bm, 3, indices, values))
}

func TestExtraBins(t *testing.T) {
	// default bin 0 shares the implicit slot
	assert.Equal(t, 3, extraBins(stepMapper(4, 0)))
	// a nonzero default bin keeps all slots
	bm := NewBinMapper([]float64{-1.5, -0.5, 0.5, math.Inf(1)}, MissingNone, 0, 0)
	require.NotEqual(t, uint32(0), bm.DefaultBin())
	assert.Equal(t, 4, extraBins(bm))
}

func TestNoGroup(t *testing.T) {
	groups := noGroup([]int{2, 5, 7})
	assert.Equal(t, [][]int{{2}, {5}, {7}}, groups)
}

// TestBundlingMergesExclusiveFeatures checks that two features whose nonzero
// rows never collide end up sharing one single-value group.
func TestBundlingMergesExclusiveFeatures(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			X.Set(i, 0, 1)
		} else {
			X.Set(i, 1, 1)
		}
	}
	d := buildDataset(t, X, 3, DefaultConfig())

	assert.Equal(t, 2, d.NumFeatures())
	assert.Equal(t, 1, d.NumGroups())
	assert.False(t, d.FeatureGroupAt(0).IsMultiVal())
}

// TestBundlingGPUBinCap checks the 256-bin single-value group cap applies on
// "gpu" only: wide exclusive features merge on cpu but stay apart when their
// combined bins would exceed the cap.
func TestBundlingGPUBinCap(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			X.Set(i, 0, 1)
		} else {
			X.Set(i, 1, 1)
		}
	}

	// 200 bins per feature: one group would hold 1+199+199 = 399 bins
	cpu := buildDataset(t, X, 200, DefaultConfig())
	assert.Equal(t, 1, cpu.NumGroups())

	gpuCfg := DefaultConfig()
	gpuCfg.DeviceType = "gpu"
	gpu := buildDataset(t, X, 200, gpuCfg)
	assert.Equal(t, 2, gpu.NumGroups())
	for g := 0; g < gpu.NumGroups(); g++ {
		assert.LessOrEqual(t, gpu.FeatureGroupAt(g).NumTotalBin(), 256)
	}
}

// TestBundlingConflictingFeaturesGoMultiVal checks that merging features with
// a genuine row collision flips the group to sparse multi-value storage.
func TestBundlingConflictingFeaturesGoMultiVal(t *testing.T) {
	X := mat.NewDense(12, 2, nil)
	for i := 0; i < 6; i++ {
		X.Set(i, 0, 1)
	}
	for i := 5; i < 10; i++ { // row 5 collides
		X.Set(i, 1, 1)
	}
	d := buildDataset(t, X, 3, DefaultConfig())

	require.Equal(t, 1, d.NumGroups())
	assert.True(t, d.FeatureGroupAt(0).IsMultiVal())
	// the colliding row stores both features' bins
	fg := d.FeatureGroupAt(0)
	assert.Len(t, fg.rows[5], 2)
	assert.Len(t, fg.rows[0], 1)
	assert.Empty(t, fg.rows[11])
}

// TestBundlingDeterminism checks repeated construction over the same input
// produces identical physical layouts.
func TestBundlingDeterminism(t *testing.T) {
	X := mat.NewDense(40, 8, nil)
	for i := 0; i < 40; i++ {
		for j := 0; j < 8; j++ {
			if (i*13+j*5)%7 < 2 {
				X.Set(i, j, float64((i+j)%3+1))
			}
		}
	}
	a := buildDataset(t, X, 5, DefaultConfig())
	b := buildDataset(t, X, 5, DefaultConfig())

	assert.Equal(t, a.NumGroups(), b.NumGroups())
	assert.Equal(t, a.GroupBinBoundaries(), b.GroupBinBoundaries())
	assert.Equal(t, a.feature2Group, b.feature2Group)
	assert.Equal(t, a.feature2SubFeature, b.feature2SubFeature)
	assert.Equal(t, a.realFeatureIdx, b.realFeatureIdx)
}

// TestBundlingCoversEveryUsedFeature checks each used feature lands in
// exactly one group regardless of how the greedy search merged them.
func TestBundlingCoversEveryUsedFeature(t *testing.T) {
	X := mat.NewDense(30, 6, nil)
	for i := 0; i < 30; i++ {
		for j := 0; j < 6; j++ {
			if (i+j)%3 == 0 {
				X.Set(i, j, float64(j+1))
			}
		}
	}
	d := buildDataset(t, X, 8, DefaultConfig())

	assert.Equal(t, 6, d.NumFeatures())
	seen := make(map[int]bool)
	for inner := 0; inner < d.NumFeatures(); inner++ {
		realFidx := d.RealFeatureIndex(inner)
		assert.False(t, seen[realFidx], "feature %d assigned twice", realFidx)
		seen[realFidx] = true
		assert.Equal(t, inner, d.InnerFeatureIndex(realFidx))
	}
	assert.LessOrEqual(t, d.NumGroups(), d.NumFeatures())
}

func TestSampleSearchIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	idx := sampleSearchIndices(rng, 10, 5)
	require.Len(t, idx, 5)
	seen := make(map[int]bool)
	for _, i := range idx {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 10)
		assert.False(t, seen[i])
		seen[i] = true
	}
	assert.Len(t, sampleSearchIndices(rng, 3, 10), 3)
	assert.Nil(t, sampleSearchIndices(rng, 5, 0))
}
