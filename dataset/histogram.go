package dataset

import (
	"github.com/YuminosukeSato/gbdata/core/parallel"
	"github.com/YuminosukeSato/gbdata/pkg/log"
)

// Histogram layout: two accumulators per bin, gradient at 2*bin, hessian at
// 2*bin+1. The output buffer spans all groups back to back, group g starting
// at groupBinBoundaries[g]*2.
const (
	histEntrySize = 2

	// minimum rows per scatter chunk and bins per reduce block for sparse
	// groups; smaller work items are not worth a task
	minRowsPerChunk = 512
	minBinsPerBlock = 512
)

// ConstructHistograms fills, for every group containing a used feature, its
// bin range in out with the per-bin sums of gradients and hessians over the
// given rows. isFeatureUsed is indexed by inner feature. A nil dataIndices
// means all rows; a strict subset is gathered once into orderedGradients
// (and orderedHessians unless constHessian) and shared by all groups.
// out must hold at least 2*NumTotalBin() accumulators. Precondition
// violations (negative leafIdx, nil out) are a no-op, not an error.
func (d *Dataset) ConstructHistograms(isFeatureUsed []bool, dataIndices []int,
	leafIdx int, gradients, hessians []float64,
	orderedGradients, orderedHessians []float64,
	constHessian bool, out []float64) {

	if leafIdx < 0 || out == nil {
		return
	}
	numData := d.numData
	if dataIndices != nil {
		numData = len(dataIndices)
	}
	if numData < 0 {
		return
	}
	numThreads := parallel.NumWorkers()

	var usedDenseGroups, usedSparseGroups []int
	for group := 0; group < d.numGroups; group++ {
		used := false
		for j := 0; j < d.groupFeatureCnt[group]; j++ {
			if isFeatureUsed[d.groupFeatureStart[group]+j] {
				used = true
				break
			}
		}
		if !used {
			continue
		}
		if d.groups[group].IsMultiVal() {
			usedSparseGroups = append(usedSparseGroups, group)
		} else {
			usedDenseGroups = append(usedDenseGroups, group)
		}
	}

	// gather once for a strict subset so every group shares the compact
	// gradient arrays instead of chasing indices
	ptrGrad, ptrHess := gradients, hessians
	indices := dataIndices
	isSubset := dataIndices != nil && numData < d.numData
	if isSubset {
		if !constHessian {
			parallel.Parallelize(numData, func(start, end int) {
				for i := start; i < end; i++ {
					orderedGradients[i] = gradients[dataIndices[i]]
					orderedHessians[i] = hessians[dataIndices[i]]
				}
			})
			ptrHess = orderedHessians
		} else {
			parallel.Parallelize(numData, func(start, end int) {
				for i := start; i < end; i++ {
					orderedGradients[i] = gradients[dataIndices[i]]
				}
			})
		}
		ptrGrad = orderedGradients
	} else {
		indices = nil
	}

	// dense groups: one task per group, each owning its bin range
	if err := parallel.ForEach(len(usedDenseGroups), func(gi int) error {
		group := usedDenseGroups[gi]
		fg := d.groups[group]
		numBin := fg.NumTotalBin()
		data := out[d.groupBinBoundaries[group]*histEntrySize:]
		data = data[:numBin*histEntrySize]
		for i := range data {
			data[i] = 0
		}
		if constHessian {
			fg.constructHistogramNoHess(indices, 0, numData, ptrGrad, data)
			for i := 0; i < numBin; i++ {
				data[i*histEntrySize+1] *= hessians[0]
			}
		} else {
			fg.constructHistogram(indices, 0, numData, ptrGrad, ptrHess, data)
		}
		return nil
	}); err != nil {
		panic(err)
	}

	// sparse groups: per-thread scratch scatter, then block-wise reduce
	for _, group := range usedSparseGroups {
		fg := d.groups[group]
		numBin := fg.NumTotalBin()
		if need := histEntrySize * numBin * numThreads; need > len(d.histBuf) {
			d.histBuf = make([]float64, need)
			log.Debugf("grew sparse histogram buffer to %d bins", numBin)
		}

		nPart := parallel.Chunks(numData, minRowsPerChunk)
		if nPart == 0 {
			// empty row scope: the group's range is all zeros
			data := out[d.groupBinBoundaries[group]*histEntrySize:]
			for i := range data[:numBin*histEntrySize] {
				data[i] = 0
			}
			continue
		}
		if err := parallel.ForEachChunk(numData, minRowsPerChunk, func(chunk, start, end int) error {
			scratch := d.histBuf[chunk*numBin*histEntrySize:]
			scratch = scratch[:numBin*histEntrySize]
			for i := range scratch {
				scratch[i] = 0
			}
			if constHessian {
				fg.constructHistogramNoHess(indices, start, end, ptrGrad, scratch)
			} else {
				fg.constructHistogram(indices, start, end, ptrGrad, ptrHess, scratch)
			}
			return nil
		}); err != nil {
			panic(err)
		}

		data := out[d.groupBinBoundaries[group]*histEntrySize:]
		data = data[:numBin*histEntrySize]
		for i := range data {
			data[i] = 0
		}

		// bin 0 is the shared implicit slot and is never merged
		nBlock := numThreads
		if b := (numBin + minBinsPerBlock - 2) / minBinsPerBlock; b < nBlock {
			nBlock = b
		}
		if nBlock < 1 {
			nBlock = 1
		}
		binsPerBlock := (numBin + nBlock - 2) / nBlock
		if err := parallel.ForEach(nBlock, func(t int) error {
			start := t*binsPerBlock + 1
			end := start + binsPerBlock
			if end > numBin {
				end = numBin
			}
			for tid := 0; tid < nPart; tid++ {
				src := d.histBuf[tid*numBin*histEntrySize:]
				for i := start; i < end; i++ {
					data[i*histEntrySize] += src[i*histEntrySize]
					data[i*histEntrySize+1] += src[i*histEntrySize+1]
				}
			}
			if constHessian {
				for i := start; i < end; i++ {
					data[i*histEntrySize+1] *= hessians[0]
				}
			}
			return nil
		}); err != nil {
			panic(err)
		}
	}
}

// FixHistogram reconstructs an inner feature's most-frequent bin in out as
// the externally supplied totals minus the sum over the feature's other
// bins. The most-frequent bin is never scattered directly; this fix-up is
// exact in infinite precision, with accepted floating-point cancellation for
// many-bin features. Features whose most frequent bin is bin 0 need no
// fix-up: their implicit mass lives in the shared bin 0 outside the
// feature's range.
func (d *Dataset) FixHistogram(innerFidx int, sumGradient, sumHessian float64, out []float64) {
	group := d.feature2Group[innerFidx]
	sub := d.feature2SubFeature[innerFidx]
	fg := d.groups[group]
	bm := fg.BinMapper(sub)
	mostFreqBin := int(bm.MostFreqBin())
	if mostFreqBin == 0 {
		return
	}
	base := int(d.groupBinBoundaries[group]) + int(fg.FeatureBinOffset(sub))
	mf := (base + mostFreqBin) * histEntrySize
	out[mf] = sumGradient
	out[mf+1] = sumHessian
	for i := 0; i < bm.NumBin(); i++ {
		if i == mostFreqBin {
			continue
		}
		out[mf] -= out[(base+i)*histEntrySize]
		out[mf+1] -= out[(base+i)*histEntrySize+1]
	}
}

// FeatureHistogramRange returns the global bin range [start, start+size)
// holding an inner feature's explicit bins in the histogram buffer.
func (d *Dataset) FeatureHistogramRange(innerFidx int) (start, size int) {
	group := d.feature2Group[innerFidx]
	sub := d.feature2SubFeature[innerFidx]
	fg := d.groups[group]
	bm := fg.BinMapper(sub)
	start = int(d.groupBinBoundaries[group]) + int(fg.FeatureBinOffset(sub))
	size = bm.NumBin()
	if bm.MostFreqBin() == 0 {
		size--
	}
	return start, size
}
