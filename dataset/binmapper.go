package dataset

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

// MissingType describes how a feature's missing raw values were encoded
// during quantization.
type MissingType uint8

const (
	// MissingNone means the feature has no missing values.
	MissingNone MissingType = iota
	// MissingZero maps missing values onto the zero bin.
	MissingZero
	// MissingNaN maps missing values onto a dedicated NaN bin.
	MissingNaN
)

// BinMapper is the per-feature quantization table: it maps raw values to
// small integer bin ids and records the default bin (the bin a missing/zero
// value lands in), the most frequent bin, and the feature's sparse rate.
// A BinMapper is immutable once built; quantizer construction itself lives
// outside this module.
type BinMapper struct {
	upperBounds []float64
	numBin      int
	missingType MissingType
	trivial     bool
	sparseRate  float64
	defaultBin  uint32
	mostFreqBin uint32
}

// NewBinMapper builds a mapper from sorted upper bin bounds. The last bound
// must be +Inf so every value maps to some bin. mostFreqBin is the bin id
// observed most often over the sample rows.
func NewBinMapper(upperBounds []float64, missingType MissingType, sparseRate float64, mostFreqBin uint32) *BinMapper {
	errors.Check(len(upperBounds) > 0, "BinMapper needs at least one bin bound")
	errors.Check(sort.Float64sAreSorted(upperBounds), "BinMapper bounds must be sorted")
	errors.Check(int(mostFreqBin) < len(upperBounds), "most frequent bin %d out of range (%d bins)", mostFreqBin, len(upperBounds))
	bm := &BinMapper{
		upperBounds: append([]float64(nil), upperBounds...),
		numBin:      len(upperBounds),
		missingType: missingType,
		trivial:     len(upperBounds) <= 1,
		sparseRate:  sparseRate,
		mostFreqBin: mostFreqBin,
	}
	bm.defaultBin = bm.ValueToBin(0)
	return bm
}

// NewTrivialBinMapper builds the single-bin mapper assigned to constant
// features. Trivial features never enter any group.
func NewTrivialBinMapper() *BinMapper {
	return NewBinMapper([]float64{math.Inf(1)}, MissingNone, 1.0, 0)
}

// NumBin returns the number of bins.
func (bm *BinMapper) NumBin() int { return bm.numBin }

// DefaultBin returns the bin a missing/zero raw value maps to.
func (bm *BinMapper) DefaultBin() uint32 { return bm.defaultBin }

// MostFreqBin returns the bin observed most often across sample rows.
func (bm *BinMapper) MostFreqBin() uint32 { return bm.mostFreqBin }

// SparseRate returns the fraction of sample rows at the most frequent bin.
func (bm *BinMapper) SparseRate() float64 { return bm.sparseRate }

// GetMissingType returns how missing values were encoded.
func (bm *BinMapper) GetMissingType() MissingType { return bm.missingType }

// IsTrivial reports whether the feature is constant (a single bin).
func (bm *BinMapper) IsTrivial() bool { return bm.trivial }

// ValueToBin maps a raw value to its bin id. NaN maps to the last bin under
// MissingNaN and to the default bin otherwise.
func (bm *BinMapper) ValueToBin(value float64) uint32 {
	if math.IsNaN(value) {
		if bm.missingType == MissingNaN {
			return uint32(bm.numBin - 1)
		}
		return bm.defaultBin
	}
	// first bin whose upper bound contains the value
	idx := sort.SearchFloat64s(bm.upperBounds, value)
	if idx >= bm.numBin {
		idx = bm.numBin - 1
	}
	return uint32(idx)
}

// Clone returns an independent copy.
func (bm *BinMapper) Clone() *BinMapper {
	dup := *bm
	dup.upperBounds = append([]float64(nil), bm.upperBounds...)
	return &dup
}

// sizesInByte returns the serialized size of the mapper.
func (bm *BinMapper) sizesInByte() uint64 {
	// bounds length + bounds + missing type + trivial + sparse rate +
	// default bin + most freq bin
	return 4 + 8*uint64(len(bm.upperBounds)) + 1 + 1 + 8 + 4 + 4
}

func (bm *BinMapper) writeTo(w *binWriter) {
	w.Int32(int32(len(bm.upperBounds)))
	for _, b := range bm.upperBounds {
		w.Float64(b)
	}
	w.Byte(byte(bm.missingType))
	w.Bool(bm.trivial)
	w.Float64(bm.sparseRate)
	w.Uint32(bm.defaultBin)
	w.Uint32(bm.mostFreqBin)
}

func readBinMapper(r *binReader) (*BinMapper, error) {
	n := int(r.Int32())
	if r.Err() != nil {
		return nil, r.Err()
	}
	if n <= 0 {
		return nil, errors.NewValueError("ReadDataset", fmt.Sprintf("invalid bin bound count %d", n))
	}
	bm := &BinMapper{
		upperBounds: make([]float64, n),
		numBin:      n,
	}
	for i := range bm.upperBounds {
		bm.upperBounds[i] = r.Float64()
	}
	bm.missingType = MissingType(r.Byte())
	bm.trivial = r.Bool()
	bm.sparseRate = r.Float64()
	bm.defaultBin = r.Uint32()
	bm.mostFreqBin = r.Uint32()
	return bm, r.Err()
}
