package dataset

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinMapperValueToBin(t *testing.T) {
	// 4 bins: (-inf, 0.5], (0.5, 1.5], (1.5, 2.5], (2.5, +inf)
	bm := NewBinMapper([]float64{0.5, 1.5, 2.5, math.Inf(1)}, MissingNone, 0, 0)

	assert.Equal(t, 4, bm.NumBin())
	assert.Equal(t, uint32(0), bm.ValueToBin(0))
	assert.Equal(t, uint32(0), bm.ValueToBin(-100))
	assert.Equal(t, uint32(1), bm.ValueToBin(1))
	assert.Equal(t, uint32(2), bm.ValueToBin(2))
	assert.Equal(t, uint32(3), bm.ValueToBin(3))
	assert.Equal(t, uint32(3), bm.ValueToBin(1e12))
	assert.Equal(t, uint32(0), bm.DefaultBin())
}

func TestBinMapperMissing(t *testing.T) {
	nan := math.NaN()

	bm := NewBinMapper([]float64{0.5, 1.5, math.Inf(1)}, MissingNaN, 0, 0)
	assert.Equal(t, uint32(2), bm.ValueToBin(nan), "NaN maps to the last bin under MissingNaN")

	bm = NewBinMapper([]float64{0.5, 1.5, math.Inf(1)}, MissingZero, 0, 0)
	assert.Equal(t, bm.DefaultBin(), bm.ValueToBin(nan), "NaN maps to the default bin otherwise")
}

func TestBinMapperDefaultVsMostFreq(t *testing.T) {
	// zero quantizes to bin 0 but the most frequent observed bin is 2
	bm := NewBinMapper([]float64{0.5, 1.5, 2.5, math.Inf(1)}, MissingNone, 0.7, 2)
	assert.Equal(t, uint32(0), bm.DefaultBin())
	assert.Equal(t, uint32(2), bm.MostFreqBin())
	assert.False(t, bm.IsTrivial())
}

func TestTrivialBinMapper(t *testing.T) {
	bm := NewTrivialBinMapper()
	assert.True(t, bm.IsTrivial())
	assert.Equal(t, 1, bm.NumBin())
	assert.Equal(t, uint32(0), bm.ValueToBin(123.0))
}

func TestBinMapperClone(t *testing.T) {
	bm := NewBinMapper([]float64{0.5, 1.5, math.Inf(1)}, MissingNaN, 0.3, 1)
	dup := bm.Clone()
	require.NotSame(t, bm, dup)
	assert.Equal(t, bm.NumBin(), dup.NumBin())
	assert.Equal(t, bm.MostFreqBin(), dup.MostFreqBin())
	assert.Equal(t, bm.GetMissingType(), dup.GetMissingType())
	assert.Equal(t, bm.SparseRate(), dup.SparseRate())
	// bounds storage is independent
	dup.upperBounds[0] = -1
	assert.Equal(t, 0.5, bm.upperBounds[0])
}

func TestBinMapperChecksBounds(t *testing.T) {
	assert.Panics(t, func() { NewBinMapper(nil, MissingNone, 0, 0) })
	assert.Panics(t, func() { NewBinMapper([]float64{2, 1}, MissingNone, 0, 0) })
	assert.Panics(t, func() { NewBinMapper([]float64{1, math.Inf(1)}, MissingNone, 0, 5) })
}
