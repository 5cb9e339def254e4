// Package dataset implements the row/feature storage and
// histogram-construction engine underneath a gradient-boosting trainer:
// conflict-aware feature bundling, grouped physical bin storage, per-leaf
// histogram accumulation and binary persistence.
package dataset

import (
	"fmt"
	"io"
	"strings"

	"github.com/YuminosukeSato/gbdata/core/parallel"
	"github.com/YuminosukeSato/gbdata/pkg/errors"
	"github.com/YuminosukeSato/gbdata/pkg/log"
)

// Dataset owns the ordered feature groups plus the index tables that tie
// logical features to physical storage. It is built once by Construct from a
// bundling result and a set of BinMappers; afterwards only the row count and
// the constraint/penalty side channels may change.
type Dataset struct {
	dataFilename string

	numData          int
	numTotalFeatures int
	numFeatures      int
	numGroups        int
	labelIdx         int

	maxBin                int
	binConstructSampleCnt int
	minDataInBin          int
	useMissing            bool
	zeroAsMissing         bool

	usedFeatureMap     []int // real index -> inner index, -1 when unused
	realFeatureIdx     []int // inner index -> real index
	feature2Group      []int
	feature2SubFeature []int
	groupBinBoundaries []uint64
	groupFeatureStart  []int
	groupFeatureCnt    []int

	// side channels, nil when every entry equals the neutral default
	monotoneTypes   []int8
	featurePenalty  []float64
	maxBinByFeature []int32

	forcedBinBounds      [][]float64
	featureNames         []string
	featureNeedPushZeros []int

	groups   []*FeatureGroup
	metadata Metadata

	finishLoad bool
	histBuf    []float64
}

// NewDataset creates an empty dataset with numData rows. Groups are attached
// by Construct.
func NewDataset(numData int) *Dataset {
	errors.Check(numData > 0, "Dataset needs a positive row count, got %d", numData)
	d := &Dataset{
		dataFilename:       "noname",
		numData:            numData,
		groupBinBoundaries: []uint64{0},
	}
	d.metadata.Init(numData)
	return d
}

// Construct assembles groups and index tables from per-feature mappers, the
// bundling sample and the load-time configuration. Ownership of the mappers
// transfers into the created groups: the caller's slice entries are nilled
// out. Entries may be nil or trivial; those features stay unused (inner
// index -1).
func (d *Dataset) Construct(mappers []*BinMapper, numTotalFeatures int, sample *SampleColumns, cfg *Config) {
	errors.Check(numTotalFeatures == len(mappers), "feature count %d does not match mapper count %d", numTotalFeatures, len(mappers))
	d.numTotalFeatures = numTotalFeatures

	var usedFeatures []int
	for i, bm := range mappers {
		if bm != nil && !bm.IsTrivial() {
			usedFeatures = append(usedFeatures, i)
		}
	}
	if len(usedFeatures) == 0 {
		errors.Warn(&errors.TrivialFeaturesWarning{})
	}

	featuresInGroup := noGroup(usedFeatures)
	groupIsMultiVal := make([]bool, len(usedFeatures))
	if cfg.EnableBundle && len(usedFeatures) > 0 {
		featuresInGroup, groupIsMultiVal = fastFeatureBundling(mappers, sample,
			usedFeatures, d.numData, cfg.DeviceType == "gpu")
	}

	d.numFeatures = 0
	for _, fs := range featuresInGroup {
		d.numFeatures += len(fs)
	}
	d.numGroups = len(featuresInGroup)
	d.usedFeatureMap = make([]int, numTotalFeatures)
	for i := range d.usedFeatureMap {
		d.usedFeatureMap[i] = -1
	}
	d.realFeatureIdx = make([]int, d.numFeatures)
	d.feature2Group = make([]int, d.numFeatures)
	d.feature2SubFeature = make([]int, d.numFeatures)
	d.featureNeedPushZeros = nil
	d.groups = make([]*FeatureGroup, 0, d.numGroups)

	curFidx := 0
	numMultiValGroup := 0
	for gid, curFeatures := range featuresInGroup {
		if groupIsMultiVal[gid] {
			numMultiValGroup++
		}
		curMappers := make([]*BinMapper, len(curFeatures))
		for j, realFidx := range curFeatures {
			d.usedFeatureMap[realFidx] = curFidx
			d.realFeatureIdx[curFidx] = realFidx
			d.feature2Group[curFidx] = gid
			d.feature2SubFeature[curFidx] = j
			curMappers[j] = mappers[realFidx]
			mappers[realFidx] = nil // ownership moves into the group
			if curMappers[j].DefaultBin() != curMappers[j].MostFreqBin() {
				d.featureNeedPushZeros = append(d.featureNeedPushZeros, curFidx)
			}
			curFidx++
		}
		d.groups = append(d.groups, NewFeatureGroup(len(curFeatures), groupIsMultiVal[gid], curMappers, d.numData))
	}
	log.Infof("total groups %d, multi-val groups %d", d.numGroups, numMultiValGroup)

	d.rebuildBoundaries()

	if len(cfg.MonotoneConstraints) > 0 {
		errors.Check(numTotalFeatures == len(cfg.MonotoneConstraints), "monotone constraints length %d does not match feature count %d", len(cfg.MonotoneConstraints), numTotalFeatures)
		d.setMonotoneTypes(cfg.MonotoneConstraints)
	}
	if len(cfg.FeaturePenalty) > 0 {
		errors.Check(numTotalFeatures == len(cfg.FeaturePenalty), "feature penalty length %d does not match feature count %d", len(cfg.FeaturePenalty), numTotalFeatures)
		d.setFeaturePenalty(cfg.FeaturePenalty)
	}
	if len(cfg.MaxBinByFeature) > 0 {
		errors.Check(numTotalFeatures == len(cfg.MaxBinByFeature), "max bin override length %d does not match feature count %d", len(cfg.MaxBinByFeature), numTotalFeatures)
		for _, mb := range cfg.MaxBinByFeature {
			errors.Check(mb == -1 || mb > 1, "per-feature max bin must be -1 or > 1, got %d", mb)
		}
		d.maxBinByFeature = append([]int32(nil), cfg.MaxBinByFeature...)
		if allEqual(d.maxBinByFeature, -1) {
			d.maxBinByFeature = nil
		}
	}
	d.forcedBinBounds = cfg.ForcedBinBounds
	if d.forcedBinBounds == nil {
		d.forcedBinBounds = make([][]float64, numTotalFeatures)
	}
	if d.featureNames == nil {
		d.featureNames = make([]string, numTotalFeatures)
		for i := range d.featureNames {
			d.featureNames[i] = fmt.Sprintf("Column_%d", i)
		}
	}

	d.maxBin = cfg.MaxBin
	d.minDataInBin = cfg.MinDataInBin
	d.binConstructSampleCnt = cfg.BinConstructSampleCnt
	d.useMissing = cfg.UseMissing
	d.zeroAsMissing = cfg.ZeroAsMissing
}

// rebuildBoundaries recomputes the bin boundary prefix sums and the
// group-feature run-length tables from the current groups.
func (d *Dataset) rebuildBoundaries() {
	d.groupBinBoundaries = d.groupBinBoundaries[:0]
	var numTotalBin uint64
	d.groupBinBoundaries = append(d.groupBinBoundaries, numTotalBin)
	for _, fg := range d.groups {
		numTotalBin += uint64(fg.NumTotalBin())
		d.groupBinBoundaries = append(d.groupBinBoundaries, numTotalBin)
	}

	d.groupFeatureStart = d.groupFeatureStart[:0]
	d.groupFeatureCnt = d.groupFeatureCnt[:0]
	if d.numFeatures == 0 {
		return
	}
	lastGroup := d.feature2Group[0]
	d.groupFeatureStart = append(d.groupFeatureStart, 0)
	d.groupFeatureCnt = append(d.groupFeatureCnt, 1)
	for i := 1; i < d.numFeatures; i++ {
		if g := d.feature2Group[i]; g == lastGroup {
			d.groupFeatureCnt[len(d.groupFeatureCnt)-1]++
		} else {
			d.groupFeatureStart = append(d.groupFeatureStart, i)
			d.groupFeatureCnt = append(d.groupFeatureCnt, 1)
			lastGroup = g
		}
	}
}

func (d *Dataset) setMonotoneTypes(constraints []int8) {
	d.monotoneTypes = make([]int8, d.numFeatures)
	for i := 0; i < d.numTotalFeatures; i++ {
		if inner := d.InnerFeatureIndex(i); inner >= 0 {
			d.monotoneTypes[inner] = constraints[i]
		}
	}
	if allEqual(d.monotoneTypes, 0) {
		d.monotoneTypes = nil
	}
}

func (d *Dataset) setFeaturePenalty(penalty []float64) {
	d.featurePenalty = make([]float64, d.numFeatures)
	for i := 0; i < d.numTotalFeatures; i++ {
		if inner := d.InnerFeatureIndex(i); inner >= 0 {
			p := penalty[i]
			if p < 0 {
				p = 0
			}
			d.featurePenalty[inner] = p
		}
	}
	if allEqual(d.featurePenalty, 1.0) {
		d.featurePenalty = nil
	}
}

func allEqual[T comparable](s []T, v T) bool {
	for _, x := range s {
		if x != v {
			return false
		}
	}
	return true
}

// ResetConfig applies a new configuration to a constructed Dataset. Only the
// monotone constraint and feature penalty vectors may change; any differing
// structural parameter is reported as a warning and keeps its old value.
func (d *Dataset) ResetConfig(cfg *Config) {
	if cfg.MaxBin != d.maxBin {
		errors.Warn(errors.NewImmutableParamWarning("max_bin"))
	}
	if len(cfg.MaxBinByFeature) > 0 && !int32SliceEqual(cfg.MaxBinByFeature, d.expandedMaxBinByFeature()) {
		errors.Warn(errors.NewImmutableParamWarning("max_bin_by_feature"))
	}
	if cfg.BinConstructSampleCnt != d.binConstructSampleCnt {
		errors.Warn(errors.NewImmutableParamWarning("bin_construct_sample_cnt"))
	}
	if cfg.MinDataInBin != d.minDataInBin {
		errors.Warn(errors.NewImmutableParamWarning("min_data_in_bin"))
	}
	if cfg.UseMissing != d.useMissing {
		errors.Warn(errors.NewImmutableParamWarning("use_missing"))
	}
	if cfg.ZeroAsMissing != d.zeroAsMissing {
		errors.Warn(errors.NewImmutableParamWarning("zero_as_missing"))
	}
	if cfg.ForcedBinBounds != nil {
		errors.Warn(errors.NewImmutableParamWarning("forced bins"))
	}

	if len(cfg.MonotoneConstraints) > 0 {
		errors.Check(d.numTotalFeatures == len(cfg.MonotoneConstraints), "monotone constraints length %d does not match feature count %d", len(cfg.MonotoneConstraints), d.numTotalFeatures)
		d.setMonotoneTypes(cfg.MonotoneConstraints)
	}
	if len(cfg.FeaturePenalty) > 0 {
		errors.Check(d.numTotalFeatures == len(cfg.FeaturePenalty), "feature penalty length %d does not match feature count %d", len(cfg.FeaturePenalty), d.numTotalFeatures)
		d.setFeaturePenalty(cfg.FeaturePenalty)
	}
}

func int32SliceEqual(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// FinishLoad compacts group storage after all rows have been pushed.
func (d *Dataset) FinishLoad() {
	if d.finishLoad {
		return
	}
	if d.numGroups > 0 {
		if err := parallel.ForEach(d.numGroups, func(i int) error {
			d.groups[i].FinishLoad()
			return nil
		}); err != nil {
			panic(err)
		}
	}
	d.finishLoad = true
}

// PushRow quantizes and stores one dense row; values is indexed by real
// feature index.
func (d *Dataset) PushRow(row int, values []float64) {
	errors.Check(len(values) == d.numTotalFeatures, "row width %d does not match feature count %d", len(values), d.numTotalFeatures)
	for realFidx, v := range values {
		inner := d.usedFeatureMap[realFidx]
		if inner < 0 {
			continue
		}
		d.groups[d.feature2Group[inner]].PushData(d.feature2SubFeature[inner], row, v)
	}
}

// PushRowSparse stores one sparse row given parallel (real feature index,
// value) pairs. Features whose default bin differs from their most frequent
// bin get an explicit zero pushed when absent, since their storage cannot
// elide the zero value.
func (d *Dataset) PushRowSparse(row int, indices []int, values []float64) {
	errors.Check(len(indices) == len(values), "sparse row has %d indices but %d values", len(indices), len(values))
	seen := make(map[int]bool, len(indices))
	for k, realFidx := range indices {
		inner := d.usedFeatureMap[realFidx]
		if inner < 0 {
			continue
		}
		seen[inner] = true
		d.groups[d.feature2Group[inner]].PushData(d.feature2SubFeature[inner], row, values[k])
	}
	for _, inner := range d.featureNeedPushZeros {
		if seen[inner] {
			continue
		}
		d.groups[d.feature2Group[inner]].PushData(d.feature2SubFeature[inner], row, 0)
	}
}

// CreateValid builds a validation dataset layout from a constructed training
// dataset: the same mappers, but one feature per group so feature and group
// indices correspond one to one. Row storage is allocated for this dataset's
// own row count.
func (d *Dataset) CreateValid(train *Dataset) {
	d.groups = nil
	d.numFeatures = train.numFeatures
	d.numGroups = d.numFeatures
	d.feature2Group = make([]int, 0, d.numFeatures)
	d.feature2SubFeature = make([]int, 0, d.numFeatures)
	d.featureNeedPushZeros = nil
	for i := 0; i < d.numFeatures; i++ {
		bm := train.FeatureBinMapper(i).Clone()
		if bm.DefaultBin() != bm.MostFreqBin() {
			d.featureNeedPushZeros = append(d.featureNeedPushZeros, i)
		}
		d.groups = append(d.groups, NewFeatureGroup(1, false, []*BinMapper{bm}, d.numData))
		d.feature2Group = append(d.feature2Group, i)
		d.feature2SubFeature = append(d.feature2SubFeature, 0)
	}
	d.usedFeatureMap = append([]int(nil), train.usedFeatureMap...)
	d.numTotalFeatures = train.numTotalFeatures
	d.featureNames = append([]string(nil), train.featureNames...)
	d.labelIdx = train.labelIdx
	d.realFeatureIdx = append([]int(nil), train.realFeatureIdx...)
	d.rebuildBoundaries()
	d.monotoneTypes = append([]int8(nil), train.monotoneTypes...)
	d.featurePenalty = append([]float64(nil), train.featurePenalty...)
	d.forcedBinBounds = append([][]float64(nil), train.forcedBinBounds...)
	d.copyScalarsFrom(train)
}

// CopyFeatureMapperFrom copies another dataset's full layout (groups
// included, with fresh storage for this dataset's row count).
func (d *Dataset) CopyFeatureMapperFrom(src *Dataset) {
	d.groups = nil
	d.numFeatures = src.numFeatures
	d.numGroups = src.numGroups
	for _, fg := range src.groups {
		mappers := make([]*BinMapper, fg.NumFeature())
		for j := range mappers {
			mappers[j] = fg.BinMapper(j).Clone()
		}
		d.groups = append(d.groups, NewFeatureGroup(fg.NumFeature(), fg.IsMultiVal(), mappers, d.numData))
	}
	d.usedFeatureMap = append([]int(nil), src.usedFeatureMap...)
	d.numTotalFeatures = src.numTotalFeatures
	d.featureNames = append([]string(nil), src.featureNames...)
	d.labelIdx = src.labelIdx
	d.realFeatureIdx = append([]int(nil), src.realFeatureIdx...)
	d.feature2Group = append([]int(nil), src.feature2Group...)
	d.feature2SubFeature = append([]int(nil), src.feature2SubFeature...)
	d.groupBinBoundaries = append([]uint64(nil), src.groupBinBoundaries...)
	d.groupFeatureStart = append([]int(nil), src.groupFeatureStart...)
	d.groupFeatureCnt = append([]int(nil), src.groupFeatureCnt...)
	d.monotoneTypes = append([]int8(nil), src.monotoneTypes...)
	d.featurePenalty = append([]float64(nil), src.featurePenalty...)
	d.forcedBinBounds = append([][]float64(nil), src.forcedBinBounds...)
	d.featureNeedPushZeros = append([]int(nil), src.featureNeedPushZeros...)
	d.copyScalarsFrom(src)
}

func (d *Dataset) copyScalarsFrom(src *Dataset) {
	d.maxBin = src.maxBin
	d.minDataInBin = src.minDataInBin
	d.binConstructSampleCnt = src.binConstructSampleCnt
	d.useMissing = src.useMissing
	d.zeroAsMissing = src.zeroAsMissing
	d.maxBinByFeature = append([]int32(nil), src.maxBinByFeature...)
}

// Resize reallocates every group's storage for a new row count. Bundling is
// not redone.
func (d *Dataset) Resize(numData int) {
	if d.numData == numData {
		return
	}
	d.numData = numData
	if err := parallel.ForEach(d.numGroups, func(i int) error {
		d.groups[i].Resize(numData)
		return nil
	}); err != nil {
		panic(err)
	}
}

// CopySubset materializes the given rows of fullset into this dataset's
// storage, one parallel task per group. The layout must already be copied
// (CopyFeatureMapperFrom) and the row count must equal len(usedIndices).
func (d *Dataset) CopySubset(fullset *Dataset, usedIndices []int, needMetadata bool) {
	errors.Check(len(usedIndices) == d.numData, "subset size %d does not match row count %d", len(usedIndices), d.numData)
	if err := parallel.ForEach(d.numGroups, func(i int) error {
		d.groups[i].CopySubset(fullset.groups[i], usedIndices)
		return nil
	}); err != nil {
		panic(err)
	}
	if needMetadata {
		d.metadata.InitSubset(&fullset.metadata, usedIndices)
	}
	d.finishLoad = true
}

// AddFeaturesFrom appends the other dataset's groups, feature maps and side
// channels to this one, shifting every contributed index by this dataset's
// pre-merge counts. Both datasets must have the same number of rows.
func (d *Dataset) AddFeaturesFrom(other *Dataset) error {
	if other.numData != d.numData {
		return errors.NewRowCountMismatchError("AddFeaturesFrom", d.numData, other.numData)
	}
	d.featureNames = append(d.featureNames, other.featureNames...)
	d.feature2SubFeature = append(d.feature2SubFeature, other.feature2SubFeature...)
	d.groupFeatureCnt = append(d.groupFeatureCnt, other.groupFeatureCnt...)
	d.forcedBinBounds = append(d.forcedBinBounds, other.forcedBinBounds...)
	for _, fg := range other.groups {
		d.groups = append(d.groups, fg.clone())
	}
	for _, innerIdx := range other.usedFeatureMap {
		if innerIdx >= 0 {
			d.usedFeatureMap = append(d.usedFeatureMap, innerIdx+d.numFeatures)
		} else {
			d.usedFeatureMap = append(d.usedFeatureMap, -1)
		}
	}
	for _, realIdx := range other.realFeatureIdx {
		d.realFeatureIdx = append(d.realFeatureIdx, realIdx+d.numTotalFeatures)
	}
	for _, g := range other.feature2Group {
		d.feature2Group = append(d.feature2Group, g+d.numGroups)
	}
	binOffset := d.groupBinBoundaries[len(d.groupBinBoundaries)-1]
	// skip the other's leading 0
	for _, b := range other.groupBinBoundaries[1:] {
		d.groupBinBoundaries = append(d.groupBinBoundaries, b+binOffset)
	}
	for _, s := range other.groupFeatureStart {
		d.groupFeatureStart = append(d.groupFeatureStart, s+d.numFeatures)
	}
	for _, f := range other.featureNeedPushZeros {
		d.featureNeedPushZeros = append(d.featureNeedPushZeros, f+d.numFeatures)
	}

	d.monotoneTypes = pushClearIfEmpty(d.monotoneTypes, d.numFeatures, other.monotoneTypes, other.numFeatures, int8(0))
	d.featurePenalty = pushClearIfEmpty(d.featurePenalty, d.numFeatures, other.featurePenalty, other.numFeatures, 1.0)
	d.maxBinByFeature = pushClearIfEmpty(d.maxBinByFeature, d.numTotalFeatures, other.maxBinByFeature, other.numTotalFeatures, int32(-1))

	d.numFeatures += other.numFeatures
	d.numTotalFeatures += other.numTotalFeatures
	d.numGroups += other.numGroups
	return nil
}

// pushClearIfEmpty appends src to dest, filling either side with the neutral
// default when it was collapsed to empty. When both are empty (both all
// default) the result stays empty.
func pushClearIfEmpty[T comparable](dest []T, destLen int, src []T, srcLen int, deflt T) []T {
	switch {
	case len(dest) > 0 && len(src) > 0:
		return append(dest, src...)
	case len(dest) > 0 && len(src) == 0:
		for i := 0; i < srcLen; i++ {
			dest = append(dest, deflt)
		}
		return dest
	case len(dest) == 0 && len(src) > 0:
		for i := 0; i < destLen; i++ {
			dest = append(dest, deflt)
		}
		return append(dest, src...)
	default:
		return dest
	}
}

// --- accessors ---

// NumData returns the row count.
func (d *Dataset) NumData() int { return d.numData }

// NumFeatures returns the number of used (non-constant) features.
func (d *Dataset) NumFeatures() int { return d.numFeatures }

// NumTotalFeatures returns the full input schema width.
func (d *Dataset) NumTotalFeatures() int { return d.numTotalFeatures }

// NumGroups returns the number of feature groups.
func (d *Dataset) NumGroups() int { return d.numGroups }

// NumTotalBin returns the total bin count across all groups.
func (d *Dataset) NumTotalBin() int {
	return int(d.groupBinBoundaries[len(d.groupBinBoundaries)-1])
}

// GroupBinBoundaries returns the prefix-summed per-group bin boundaries
// (length NumGroups+1).
func (d *Dataset) GroupBinBoundaries() []uint64 { return d.groupBinBoundaries }

// InnerFeatureIndex maps a real feature index to its inner index, -1 when the
// feature is unused.
func (d *Dataset) InnerFeatureIndex(realFidx int) int {
	return d.usedFeatureMap[realFidx]
}

// RealFeatureIndex maps an inner feature index back to its real index.
func (d *Dataset) RealFeatureIndex(innerFidx int) int {
	return d.realFeatureIdx[innerFidx]
}

// FeatureGroupIndex returns the group an inner feature is stored in.
func (d *Dataset) FeatureGroupIndex(innerFidx int) int {
	return d.feature2Group[innerFidx]
}

// FeatureSubFeatureIndex returns an inner feature's offset within its group.
func (d *Dataset) FeatureSubFeatureIndex(innerFidx int) int {
	return d.feature2SubFeature[innerFidx]
}

// FeatureBinMapper returns the mapper of an inner feature.
func (d *Dataset) FeatureBinMapper(innerFidx int) *BinMapper {
	return d.groups[d.feature2Group[innerFidx]].BinMapper(d.feature2SubFeature[innerFidx])
}

// FeatureGroupAt returns the group at index gid.
func (d *Dataset) FeatureGroupAt(gid int) *FeatureGroup { return d.groups[gid] }

// MonotoneTypes returns the per-inner-feature monotone constraints, nil when
// all neutral.
func (d *Dataset) MonotoneTypes() []int8 { return d.monotoneTypes }

// FeaturePenalty returns the per-inner-feature penalties, nil when all 1.0.
func (d *Dataset) FeaturePenalty() []float64 { return d.featurePenalty }

// FeatureNames returns the per-real-feature names.
func (d *Dataset) FeatureNames() []string { return d.featureNames }

// SetFeatureNames replaces the feature names; the length must match the full
// schema width.
func (d *Dataset) SetFeatureNames(names []string) {
	errors.Check(len(names) == d.numTotalFeatures, "name count %d does not match feature count %d", len(names), d.numTotalFeatures)
	d.featureNames = append([]string(nil), names...)
}

// Metadata returns the per-row side data.
func (d *Dataset) Metadata() *Metadata { return &d.metadata }

func (d *Dataset) expandedMaxBinByFeature() []int32 {
	if d.maxBinByFeature != nil {
		return d.maxBinByFeature
	}
	out := make([]int32, d.numTotalFeatures)
	for i := range out {
		out[i] = -1
	}
	return out
}

// --- generic field accessors ---

func normalizeFieldName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// SetFloatField sets a float-valued field by name. Recognized names are
// label/target, weight/weights and init_score; anything else returns false.
func (d *Dataset) SetFloatField(name string, values []float64) bool {
	switch normalizeFieldName(name) {
	case "label", "target":
		d.metadata.SetLabel(values)
	case "weight", "weights":
		d.metadata.SetWeights(values)
	case "init_score":
		d.metadata.SetInitScore(values)
	default:
		return false
	}
	return true
}

// SetIntField sets an int-valued field by name. Recognized names are
// query/group (per-query row counts).
func (d *Dataset) SetIntField(name string, values []int) bool {
	switch normalizeFieldName(name) {
	case "query", "group":
		d.metadata.SetQuery(values)
	default:
		return false
	}
	return true
}

// GetFloatField returns a float-valued field by name: label/target,
// weight/weights, init_score or feature_penalty.
func (d *Dataset) GetFloatField(name string) ([]float64, bool) {
	switch normalizeFieldName(name) {
	case "label", "target":
		return d.metadata.Label(), true
	case "weight", "weights":
		return d.metadata.Weights(), true
	case "init_score":
		return d.metadata.InitScore(), true
	case "feature_penalty":
		return d.featurePenalty, true
	default:
		return nil, false
	}
}

// GetIntField returns an int-valued field by name: query/group boundaries.
func (d *Dataset) GetIntField(name string) ([]int, bool) {
	switch normalizeFieldName(name) {
	case "query", "group":
		return d.metadata.QueryBoundaries(), true
	default:
		return nil, false
	}
}

// GetInt8Field returns an int8-valued field by name: monotone_constraints.
func (d *Dataset) GetInt8Field(name string) ([]int8, bool) {
	switch normalizeFieldName(name) {
	case "monotone_constraints":
		return d.monotoneTypes, true
	default:
		return nil, false
	}
}

// DumpText writes a human-readable summary of the layout for debugging.
func (d *Dataset) DumpText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "num_features: %d\nnum_total_features: %d\nnum_groups: %d\nnum_data: %d\n",
		d.numFeatures, d.numTotalFeatures, d.numGroups, d.numData); err != nil {
		return errors.Wrap(err, "dump text")
	}
	fmt.Fprintf(w, "feature_names: %s\n", strings.Join(d.featureNames, ", "))
	fmt.Fprintf(w, "group_bin_boundaries: %v\n", d.groupBinBoundaries)
	fmt.Fprintf(w, "monotone_constraints: %v\n", d.monotoneTypes)
	fmt.Fprintf(w, "feature_penalty: %v\n", d.featurePenalty)
	fmt.Fprintf(w, "max_bin_by_feature: %v\n", d.maxBinByFeature)
	for gid, fg := range d.groups {
		_, err := fmt.Fprintf(w, "group %d: features=%d multi_val=%v bins=%d\n",
			gid, fg.NumFeature(), fg.IsMultiVal(), fg.NumTotalBin())
		if err != nil {
			return errors.Wrap(err, "dump text")
		}
	}
	return nil
}
