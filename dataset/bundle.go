package dataset

import (
	"math/rand"
	"sort"
)

// Bundling packs several quantized features into one physical storage group
// when their nonzero rows rarely collide. The search is a two-round greedy
// pass over a fixed row sample: round 1 builds dense single-value groups with
// a tight collision budget, round 2 re-groups the leftovers into multi-value
// groups with far looser budgets. Thresholds and tie-breaks are load-bearing:
// downstream numerical results depend on exact group membership, so they are
// not to be "simplified".
const (
	maxSearchGroup               = 100
	maxBinPerGroup               = 256
	maxConcurrentFeaturePerGroup = 64
	maxBinPerMultiValGroup       = 1 << 14
	denseThreshold               = 0.6
)

// noGroup returns the trivial one-feature-per-group layout.
func noGroup(usedFeatures []int) [][]int {
	groups := make([][]int, len(usedFeatures))
	for i, f := range usedFeatures {
		groups[i] = []int{f}
	}
	return groups
}

// conflictCount scores how many of the candidate feature's nonzero sample
// rows are already claimed inside a group. It returns -1 ("incompatible") as
// soon as the running count reaches maxCnt or any single row would exceed
// maxFeatureCnt simultaneous features.
func conflictCount(mark []uint8, indices []int, maxCnt, maxFeatureCnt int) int {
	ret := 0
	for _, idx := range indices {
		if mark[idx] > 0 {
			ret++
			if int(mark[idx])+1 > maxFeatureCnt {
				return -1
			}
		}
		if ret >= maxCnt {
			return -1
		}
	}
	return ret
}

func markUsed(mark []uint8, indices []int) {
	for _, idx := range indices {
		mark[idx]++
	}
}

// fixSampleIndices rebuilds a feature's sample indices when its default bin
// differs from its most frequent bin: rows whose value quantizes to the most
// frequent bin carry no conflict information and are elided, while rows
// absent from the sparse sample (implicit zeros, which quantize to the
// default bin) become explicit. Returns nil when no fix is needed, or when
// the fixed list comes back empty, in which case the original indices stay in
// effect. The input slices are not mutated; the result is newly owned.
func fixSampleIndices(bm *BinMapper, numTotalSamples int, indices []int, values []float64) []int {
	if bm.DefaultBin() == bm.MostFreqBin() {
		return nil
	}
	ret := make([]int, 0, numTotalSamples)
	i, j := 0, 0
	for i < numTotalSamples {
		switch {
		case j < len(indices) && indices[j] < i:
			j++
		case j < len(indices) && indices[j] == i:
			if bm.ValueToBin(values[j]) != bm.MostFreqBin() {
				ret = append(ret, i)
			}
			i++
		default:
			ret = append(ret, i)
			i++
		}
	}
	if len(ret) == 0 {
		return nil
	}
	return ret
}

// sampleSearchIndices draws k distinct indices from [0, n).
func sampleSearchIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		k = n
	}
	if k <= 0 {
		return nil
	}
	return rng.Perm(n)[:k]
}

// extraBins is the bin count a feature adds to a group: its own bins, minus
// the shared zero slot when its default bin is bin 0.
func extraBins(bm *BinMapper) int {
	if bm.DefaultBin() == 0 {
		return bm.NumBin() - 1
	}
	return bm.NumBin()
}

// findGroups runs the two-round greedy grouping over features in findOrder.
// sampleIndices[f] is feature f's (already fixed) nonzero sample rows and
// numPerCol[f] its nonzero count; features at or beyond numSampleCol were not
// sampled and are treated as all-zero. The returned multiVal flags mark the
// groups that ended up with sparse multi-value storage.
func findGroups(mappers []*BinMapper, findOrder []int, sampleIndices [][]int,
	numPerCol []int, numSampleCol, totalSampleCnt, numData int,
	useGPU bool) (groups [][]int, multiVal []bool) {

	singleValMaxConflictCnt := totalSampleCnt / 10000
	maxSamplesPerMultiValGroup := totalSampleCnt * 10

	rng := rand.New(rand.NewSource(int64(numData)))

	var (
		featuresInGroup   [][]int
		conflictMarks     [][]uint8
		groupUsedRowCnt   []int
		groupTotalDataCnt []int
		groupNumBin       []int
	)

	// first round: fill the single-value groups
	for _, fidx := range findOrder {
		isFiltered := fidx >= numSampleCol
		curNonZeroCnt := 0
		if !isFiltered {
			curNonZeroCnt = numPerCol[fidx]
		}
		var availableGroups []int
		for gid := range featuresInGroup {
			curNumBin := groupNumBin[gid] + extraBins(mappers[fidx])
			if groupTotalDataCnt[gid]+curNonZeroCnt <= totalSampleCnt+singleValMaxConflictCnt {
				if !useGPU || curNumBin <= maxBinPerGroup {
					availableGroups = append(availableGroups, gid)
				}
			}
		}
		var searchGroups []int
		if len(availableGroups) > 0 {
			last := len(availableGroups) - 1
			// always search the most recently created group, plus a
			// random subset of the rest
			searchGroups = append(searchGroups, availableGroups[last])
			k := maxSearchGroup - 1
			if k > last {
				k = last
			}
			for _, idx := range sampleSearchIndices(rng, last, k) {
				searchGroups = append(searchGroups, availableGroups[idx])
			}
		}
		bestGID, bestConflictCnt := -1, -1
		for _, gid := range searchGroups {
			restMaxCnt := singleValMaxConflictCnt - groupTotalDataCnt[gid] + groupUsedRowCnt[gid]
			cnt := 0
			if !isFiltered {
				// round 1 tolerates at most one collision per row
				cnt = conflictCount(conflictMarks[gid], sampleIndices[fidx], restMaxCnt, 1)
			}
			if cnt >= 0 && cnt <= restMaxCnt && cnt <= curNonZeroCnt/2 {
				bestGID = gid
				bestConflictCnt = cnt
				break
			}
		}
		if bestGID >= 0 {
			featuresInGroup[bestGID] = append(featuresInGroup[bestGID], fidx)
			groupTotalDataCnt[bestGID] += curNonZeroCnt
			groupUsedRowCnt[bestGID] += curNonZeroCnt - bestConflictCnt
			if !isFiltered {
				markUsed(conflictMarks[bestGID], sampleIndices[fidx])
			}
			groupNumBin[bestGID] += extraBins(mappers[fidx])
		} else {
			featuresInGroup = append(featuresInGroup, []int{fidx})
			conflictMarks = append(conflictMarks, make([]uint8, totalSampleCnt))
			if !isFiltered {
				markUsed(conflictMarks[len(conflictMarks)-1], sampleIndices[fidx])
			}
			groupTotalDataCnt = append(groupTotalDataCnt, curNonZeroCnt)
			groupUsedRowCnt = append(groupUsedRowCnt, curNonZeroCnt)
			groupNumBin = append(groupNumBin, 1+extraBins(mappers[fidx]))
		}
	}

	// repack: freeze dense groups, pool the members of under-dense ones
	var (
		secondRoundFeatures  []int
		keptGroups           [][]int
		keptMarks            [][]uint8
		keptUsedRowCnt       []int
		keptTotalDataCnt     []int
		keptNumBin           []int
		forcedSingleValGroup []bool
	)
	for gid := range featuresInGroup {
		denseRate := float64(groupUsedRowCnt[gid]) / float64(totalSampleCnt)
		if denseRate >= denseThreshold {
			keptGroups = append(keptGroups, featuresInGroup[gid])
			keptMarks = append(keptMarks, conflictMarks[gid])
			keptUsedRowCnt = append(keptUsedRowCnt, groupUsedRowCnt[gid])
			keptTotalDataCnt = append(keptTotalDataCnt, groupTotalDataCnt[gid])
			keptNumBin = append(keptNumBin, groupNumBin[gid])
			forcedSingleValGroup = append(forcedSingleValGroup, true)
		} else {
			secondRoundFeatures = append(secondRoundFeatures, featuresInGroup[gid]...)
		}
	}
	featuresInGroup = keptGroups
	conflictMarks = keptMarks
	groupUsedRowCnt = keptUsedRowCnt
	groupTotalDataCnt = keptTotalDataCnt
	groupNumBin = keptNumBin
	multiVal = make([]bool, len(featuresInGroup))

	// second round: fill the multi-value groups
	for _, fidx := range secondRoundFeatures {
		isFiltered := fidx >= numSampleCol
		curNonZeroCnt := 0
		if !isFiltered {
			curNonZeroCnt = numPerCol[fidx]
		}
		var availableGroups []int
		for gid := range featuresInGroup {
			curNumBin := groupNumBin[gid] + extraBins(mappers[fidx])
			if multiVal[gid] && groupNumBin[gid]+curNumBin > maxBinPerMultiValGroup {
				continue
			}
			maxSampleCnt := maxSamplesPerMultiValGroup
			if forcedSingleValGroup[gid] {
				maxSampleCnt = totalSampleCnt + singleValMaxConflictCnt
			}
			if groupTotalDataCnt[gid]+curNonZeroCnt <= maxSampleCnt {
				if !useGPU || curNumBin <= maxBinPerGroup {
					availableGroups = append(availableGroups, gid)
				}
			}
		}
		var searchGroups []int
		if len(availableGroups) > 0 {
			last := len(availableGroups) - 1
			searchGroups = append(searchGroups, availableGroups[last])
			k := maxSearchGroup - 1
			if k > last {
				k = last
			}
			for _, idx := range sampleSearchIndices(rng, last, k) {
				searchGroups = append(searchGroups, availableGroups[idx])
			}
		}
		bestGID := -1
		bestConflictCnt := totalSampleCnt + 1
		for _, gid := range searchGroups {
			restMaxCnt := totalSampleCnt
			if forcedSingleValGroup[gid] {
				if rest := singleValMaxConflictCnt - groupTotalDataCnt[gid] + groupUsedRowCnt[gid]; rest < restMaxCnt {
					restMaxCnt = rest
				}
			}
			cnt := 0
			if !isFiltered {
				cnt = conflictCount(conflictMarks[gid], sampleIndices[fidx], restMaxCnt, maxConcurrentFeaturePerGroup)
			}
			if cnt < 0 {
				continue
			}
			// On a count tie, prefer frozen single-value groups, then the
			// fuller group; the comparison is against the best found so far,
			// matching the reference search order.
			if cnt < bestConflictCnt ||
				(cnt == bestConflictCnt && (forcedSingleValGroup[gid] || groupTotalDataCnt[bestGID] > groupTotalDataCnt[gid])) {
				bestConflictCnt = cnt
				bestGID = gid
			}
			if cnt == 0 && forcedSingleValGroup[gid] {
				break
			}
		}
		if bestGID >= 0 {
			featuresInGroup[bestGID] = append(featuresInGroup[bestGID], fidx)
			groupTotalDataCnt[bestGID] += curNonZeroCnt
			groupUsedRowCnt[bestGID] += curNonZeroCnt - bestConflictCnt
			if !isFiltered {
				markUsed(conflictMarks[bestGID], sampleIndices[fidx])
			}
			groupNumBin[bestGID] += extraBins(mappers[fidx])
			if !multiVal[bestGID] && groupTotalDataCnt[bestGID]-groupUsedRowCnt[bestGID] > singleValMaxConflictCnt {
				multiVal[bestGID] = true
			}
		} else {
			forcedSingleValGroup = append(forcedSingleValGroup, false)
			featuresInGroup = append(featuresInGroup, []int{fidx})
			conflictMarks = append(conflictMarks, make([]uint8, totalSampleCnt))
			if !isFiltered {
				markUsed(conflictMarks[len(conflictMarks)-1], sampleIndices[fidx])
			}
			groupTotalDataCnt = append(groupTotalDataCnt, curNonZeroCnt)
			groupUsedRowCnt = append(groupUsedRowCnt, curNonZeroCnt)
			groupNumBin = append(groupNumBin, 1+extraBins(mappers[fidx]))
			multiVal = append(multiVal, false)
		}
	}
	return featuresInGroup, multiVal
}

// fastFeatureBundling runs findGroups twice, once in the caller-supplied
// order and once with denser features first, keeps whichever run produced
// fewer groups, and finally shuffles the winning groups. The shuffle only
// decorates physical group order for memory locality; membership is
// untouched.
func fastFeatureBundling(mappers []*BinMapper, sample *SampleColumns,
	usedFeatures []int, numData int, useGPU bool) (groups [][]int, multiVal []bool) {

	numSampleCol := sample.NumColumns()
	totalSampleCnt := sample.NumTotal
	numPerCol := sample.NonZeroCounts()

	featureNonZeroCnt := make([]int, len(usedFeatures))
	for i, fidx := range usedFeatures {
		if fidx < numSampleCol {
			featureNonZeroCnt[i] = numPerCol[fidx]
		}
	}
	sortedIdx := make([]int, len(usedFeatures))
	for i := range sortedIdx {
		sortedIdx[i] = i
	}
	sort.SliceStable(sortedIdx, func(a, b int) bool {
		return featureNonZeroCnt[sortedIdx[a]] > featureNonZeroCnt[sortedIdx[b]]
	})
	orderByCnt := make([]int, len(sortedIdx))
	for i, sidx := range sortedIdx {
		orderByCnt[i] = usedFeatures[sidx]
	}

	// drop sample rows that carry no conflict information; the fixed slices
	// are fresh, the shared sample storage is left alone
	sampleIndices := make([][]int, numSampleCol)
	copy(sampleIndices, sample.Indices)
	fixedNumPerCol := make([]int, numSampleCol)
	for _, fidx := range usedFeatures {
		if fidx >= numSampleCol {
			continue
		}
		if fixed := fixSampleIndices(mappers[fidx], totalSampleCnt, sample.Indices[fidx], sample.Values[fidx]); fixed != nil {
			sampleIndices[fidx] = fixed
			fixedNumPerCol[fidx] = len(fixed)
		} else {
			fixedNumPerCol[fidx] = numPerCol[fidx]
		}
	}

	groups, multiVal = findGroups(mappers, usedFeatures, sampleIndices,
		fixedNumPerCol, numSampleCol, totalSampleCnt, numData, useGPU)
	groups2, multiVal2 := findGroups(mappers, orderByCnt, sampleIndices,
		fixedNumPerCol, numSampleCol, totalSampleCnt, numData, useGPU)
	if len(groups) > len(groups2) {
		groups = groups2
		multiVal = multiVal2
	}

	numGroup := len(groups)
	rng := rand.New(rand.NewSource(int64(numData)))
	for i := 0; i < numGroup-1; i++ {
		j := i + 1 + rng.Intn(numGroup-i-1)
		groups[i], groups[j] = groups[j], groups[i]
		multiVal[i], multiVal[j] = multiVal[j], multiVal[i]
	}
	return groups, multiVal
}
