package dataset

import (
	"fmt"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

// FeatureGroup is one physical storage unit holding the quantized values of
// one or more features. Single-value groups store one bin id per row and rely
// on the shared implicit bin 0; multi-value groups store an independent bin
// list per row. A group owns its BinMappers; ownership transfers in through
// NewFeatureGroup and never leaves.
//
// Bin layout: bin 0 is shared by every member feature's implicit
// most-frequent values. Feature j's explicit bins occupy
// [binOffsets[j], binOffsets[j+1]); a feature whose most frequent bin is 0
// drops that slot, every other feature keeps a (never scattered) slot for its
// most frequent bin which the histogram fix-up fills in afterwards.
type FeatureGroup struct {
	numFeature  int
	isMultiVal  bool
	mappers     []*BinMapper
	binOffsets  []uint32
	numTotalBin int
	numData     int

	data []uint32   // single-value storage, one bin id per row
	rows [][]uint32 // multi-value storage, bin ids per row
}

// NewFeatureGroup builds a group from numFeature mappers, taking ownership of
// the mapper slice entries.
func NewFeatureGroup(numFeature int, isMultiVal bool, mappers []*BinMapper, numData int) *FeatureGroup {
	errors.Check(numFeature == len(mappers), "feature count %d does not match mapper count %d", numFeature, len(mappers))
	fg := &FeatureGroup{
		numFeature: numFeature,
		isMultiVal: isMultiVal,
		mappers:    mappers,
		numData:    numData,
	}
	fg.initOffsets()
	if isMultiVal {
		fg.rows = make([][]uint32, numData)
	} else {
		fg.data = make([]uint32, numData)
	}
	return fg
}

func (fg *FeatureGroup) initOffsets() {
	fg.numTotalBin = 1
	fg.binOffsets = make([]uint32, 0, fg.numFeature+1)
	fg.binOffsets = append(fg.binOffsets, uint32(fg.numTotalBin))
	for _, bm := range fg.mappers {
		nb := bm.NumBin()
		if bm.MostFreqBin() == 0 {
			nb--
		}
		fg.numTotalBin += nb
		fg.binOffsets = append(fg.binOffsets, uint32(fg.numTotalBin))
	}
}

// NumFeature returns the number of member features.
func (fg *FeatureGroup) NumFeature() int { return fg.numFeature }

// IsMultiVal reports whether the group uses sparse multi-value storage.
func (fg *FeatureGroup) IsMultiVal() bool { return fg.isMultiVal }

// NumTotalBin returns the group's total bin count, including the shared
// implicit bin 0.
func (fg *FeatureGroup) NumTotalBin() int { return fg.numTotalBin }

// BinMapper returns the mapper of the sub-feature at subIdx.
func (fg *FeatureGroup) BinMapper(subIdx int) *BinMapper { return fg.mappers[subIdx] }

// FeatureBinOffset returns the first group-local bin of sub-feature subIdx.
func (fg *FeatureGroup) FeatureBinOffset(subIdx int) uint32 { return fg.binOffsets[subIdx] }

// PushData quantizes value for sub-feature subIdx on the given row. Values
// that land on the most frequent bin stay implicit.
func (fg *FeatureGroup) PushData(subIdx, row int, value float64) {
	bm := fg.mappers[subIdx]
	bin := bm.ValueToBin(value)
	fg.PushBin(subIdx, row, bin)
}

// PushBin records an already-quantized bin for sub-feature subIdx.
func (fg *FeatureGroup) PushBin(subIdx, row int, bin uint32) {
	bm := fg.mappers[subIdx]
	if bin == bm.MostFreqBin() {
		return
	}
	v := bin + fg.binOffsets[subIdx]
	if bm.MostFreqBin() == 0 {
		v--
	}
	if fg.isMultiVal {
		fg.rows[row] = append(fg.rows[row], v)
	} else {
		fg.data[row] = v
	}
}

// RowBin returns the stored group-local bin of a row in a single-value group.
func (fg *FeatureGroup) RowBin(row int) uint32 {
	return fg.data[row]
}

// FinishLoad releases over-allocated per-row storage after all pushes.
func (fg *FeatureGroup) FinishLoad() {
	if !fg.isMultiVal {
		return
	}
	for i, r := range fg.rows {
		if len(r) < cap(r) {
			fg.rows[i] = append(make([]uint32, 0, len(r)), r...)
		}
	}
}

// Resize reallocates storage for a new row count. Bin layout is untouched;
// rows past the old count start empty.
func (fg *FeatureGroup) Resize(numData int) {
	if numData == fg.numData {
		return
	}
	if fg.isMultiVal {
		rows := make([][]uint32, numData)
		copy(rows, fg.rows)
		fg.rows = rows
	} else {
		data := make([]uint32, numData)
		copy(data, fg.data)
		fg.data = data
	}
	fg.numData = numData
}

// CopySubset materializes the given rows of full into this group's storage.
// Both groups must share the same layout.
func (fg *FeatureGroup) CopySubset(full *FeatureGroup, usedIndices []int) {
	errors.Check(len(usedIndices) == fg.numData, "subset size %d does not match group row count %d", len(usedIndices), fg.numData)
	if fg.isMultiVal {
		for i, idx := range usedIndices {
			fg.rows[i] = append([]uint32(nil), full.rows[idx]...)
		}
	} else {
		for i, idx := range usedIndices {
			fg.data[i] = full.data[idx]
		}
	}
}

// clone deep-copies the group, cloning mappers and storage.
func (fg *FeatureGroup) clone() *FeatureGroup {
	mappers := make([]*BinMapper, len(fg.mappers))
	for i, bm := range fg.mappers {
		mappers[i] = bm.Clone()
	}
	dup := NewFeatureGroup(fg.numFeature, fg.isMultiVal, mappers, fg.numData)
	if fg.isMultiVal {
		for i, r := range fg.rows {
			dup.rows[i] = append([]uint32(nil), r...)
		}
	} else {
		copy(dup.data, fg.data)
	}
	return dup
}

// constructHistogram scatter-accumulates gradient/hessian pairs into out,
// which holds 2 accumulators per group-local bin. When indices is nil rows
// [start, end) are used directly; otherwise positions [start, end) of indices
// select the rows while grad/hess stay position-indexed (the caller gathers
// them up front).
func (fg *FeatureGroup) constructHistogram(indices []int, start, end int, grad, hess []float64, out []float64) {
	if fg.isMultiVal {
		if indices == nil {
			for i := start; i < end; i++ {
				for _, b := range fg.rows[i] {
					out[b<<1] += grad[i]
					out[b<<1+1] += hess[i]
				}
			}
		} else {
			for i := start; i < end; i++ {
				for _, b := range fg.rows[indices[i]] {
					out[b<<1] += grad[i]
					out[b<<1+1] += hess[i]
				}
			}
		}
		return
	}
	if indices == nil {
		for i := start; i < end; i++ {
			b := fg.data[i]
			out[b<<1] += grad[i]
			out[b<<1+1] += hess[i]
		}
	} else {
		for i := start; i < end; i++ {
			b := fg.data[indices[i]]
			out[b<<1] += grad[i]
			out[b<<1+1] += hess[i]
		}
	}
}

// constructHistogramNoHess is the constant-hessian variant: only gradients
// are scattered and the hessian slot counts rows, to be scaled by the
// constant afterwards. Halves the scatter traffic.
func (fg *FeatureGroup) constructHistogramNoHess(indices []int, start, end int, grad []float64, out []float64) {
	if fg.isMultiVal {
		if indices == nil {
			for i := start; i < end; i++ {
				for _, b := range fg.rows[i] {
					out[b<<1] += grad[i]
					out[b<<1+1]++
				}
			}
		} else {
			for i := start; i < end; i++ {
				for _, b := range fg.rows[indices[i]] {
					out[b<<1] += grad[i]
					out[b<<1+1]++
				}
			}
		}
		return
	}
	if indices == nil {
		for i := start; i < end; i++ {
			b := fg.data[i]
			out[b<<1] += grad[i]
			out[b<<1+1]++
		}
	} else {
		for i := start; i < end; i++ {
			b := fg.data[indices[i]]
			out[b<<1] += grad[i]
			out[b<<1+1]++
		}
	}
}

// SizesInByte returns the serialized size of the group.
func (fg *FeatureGroup) SizesInByte() uint64 {
	size := uint64(4 + 1 + 4) // feature count, multi-val flag, row count
	for _, bm := range fg.mappers {
		size += bm.sizesInByte()
	}
	if fg.isMultiVal {
		for _, r := range fg.rows {
			size += 4 + 4*uint64(len(r))
		}
	} else {
		size += 4 * uint64(len(fg.data))
	}
	return size
}

func (fg *FeatureGroup) writeTo(w *binWriter) {
	w.Int32(int32(fg.numFeature))
	w.Bool(fg.isMultiVal)
	w.Int32(int32(fg.numData))
	for _, bm := range fg.mappers {
		bm.writeTo(w)
	}
	if fg.isMultiVal {
		for _, r := range fg.rows {
			w.Int32(int32(len(r)))
			for _, b := range r {
				w.Uint32(b)
			}
		}
	} else {
		for _, b := range fg.data {
			w.Uint32(b)
		}
	}
}

func readFeatureGroup(r *binReader) (*FeatureGroup, error) {
	numFeature := int(r.Int32())
	isMultiVal := r.Bool()
	numData := int(r.Int32())
	if r.Err() != nil {
		return nil, r.Err()
	}
	if numFeature <= 0 || numData < 0 {
		return nil, errors.NewValueError("ReadDataset",
			fmt.Sprintf("invalid feature group header (features=%d rows=%d)", numFeature, numData))
	}
	mappers := make([]*BinMapper, numFeature)
	for i := range mappers {
		bm, err := readBinMapper(r)
		if err != nil {
			return nil, err
		}
		mappers[i] = bm
	}
	fg := NewFeatureGroup(numFeature, isMultiVal, mappers, numData)
	if isMultiVal {
		for i := 0; i < numData; i++ {
			n := int(r.Int32())
			if r.Err() != nil {
				return nil, r.Err()
			}
			if n > 0 {
				fg.rows[i] = make([]uint32, n)
				for j := range fg.rows[i] {
					fg.rows[i][j] = r.Uint32()
				}
			}
		}
	} else {
		for i := range fg.data {
			fg.data[i] = r.Uint32()
		}
	}
	return fg, r.Err()
}
