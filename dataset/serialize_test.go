package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

func roundTripDataset(t *testing.T) *Dataset {
	t.Helper()
	cfg := DefaultConfig()
	cfg.EnableBundle = false
	cfg.MonotoneConstraints = []int8{1, 0, -1}
	d := buildDataset(t, denseTestMatrix(20, 3), 5, cfg)

	label := make([]float64, 20)
	weights := make([]float64, 20)
	for i := range label {
		label[i] = float64(i % 2)
		weights[i] = 1.0 + float64(i)*0.1
	}
	d.Metadata().SetLabel(label)
	d.Metadata().SetWeights(weights)
	d.Metadata().SetQuery([]int{8, 12})
	d.SetFeatureNames([]string{"f_a", "f_b", "f_c"})
	return d
}

func assertDatasetsEqual(t *testing.T, want, got *Dataset) {
	t.Helper()
	assert.Equal(t, want.NumData(), got.NumData())
	assert.Equal(t, want.NumFeatures(), got.NumFeatures())
	assert.Equal(t, want.NumTotalFeatures(), got.NumTotalFeatures())
	assert.Equal(t, want.NumGroups(), got.NumGroups())
	assert.Equal(t, want.GroupBinBoundaries(), got.GroupBinBoundaries())
	assert.Equal(t, want.FeatureNames(), got.FeatureNames())
	assert.Equal(t, want.MonotoneTypes(), got.MonotoneTypes())
	assert.Equal(t, want.usedFeatureMap, got.usedFeatureMap)
	assert.Equal(t, want.realFeatureIdx, got.realFeatureIdx)
	assert.Equal(t, want.feature2Group, got.feature2Group)
	assert.Equal(t, want.feature2SubFeature, got.feature2SubFeature)
	assert.Equal(t, want.groupFeatureStart, got.groupFeatureStart)
	assert.Equal(t, want.groupFeatureCnt, got.groupFeatureCnt)

	assert.Equal(t, want.Metadata().Label(), got.Metadata().Label())
	assert.Equal(t, want.Metadata().Weights(), got.Metadata().Weights())
	assert.Equal(t, want.Metadata().QueryBoundaries(), got.Metadata().QueryBoundaries())

	require.Equal(t, len(want.groups), len(got.groups))
	for g := range want.groups {
		wfg, gfg := want.groups[g], got.groups[g]
		assert.Equal(t, wfg.NumFeature(), gfg.NumFeature())
		assert.Equal(t, wfg.IsMultiVal(), gfg.IsMultiVal())
		assert.Equal(t, wfg.NumTotalBin(), gfg.NumTotalBin())
		for j := 0; j < wfg.NumFeature(); j++ {
			assert.Equal(t, wfg.BinMapper(j).NumBin(), gfg.BinMapper(j).NumBin())
			assert.Equal(t, wfg.BinMapper(j).MostFreqBin(), gfg.BinMapper(j).MostFreqBin())
		}
		for row := 0; row < want.NumData(); row++ {
			if !wfg.IsMultiVal() {
				require.Equal(t, wfg.RowBin(row), gfg.RowBin(row), "group %d row %d", g, row)
			} else {
				require.Equal(t, wfg.rows[row], gfg.rows[row], "group %d row %d", g, row)
			}
		}
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	d := roundTripDataset(t)

	var buf bytes.Buffer
	n, err := d.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := ReadDatasetFrom(&buf)
	require.NoError(t, err)
	assertDatasetsEqual(t, d, got)

	// the restored dataset produces the same histograms
	grad, hess := testGradHess(20)
	wantHist := make([]float64, histEntrySize*d.NumTotalBin())
	gotHist := make([]float64, histEntrySize*got.NumTotalBin())
	d.ConstructHistograms(allUsed(d), nil, 0, grad, hess, nil, nil, false, wantHist)
	got.ConstructHistograms(allUsed(got), nil, 0, grad, hess, nil, nil, false, gotHist)
	assert.Equal(t, wantHist, gotHist)
}

func TestBinaryRoundTripMultiVal(t *testing.T) {
	d, _ := multiValDataset(t, 24)

	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)
	got, err := ReadDatasetFrom(&buf)
	require.NoError(t, err)
	assertDatasetsEqual(t, d, got)
}

func TestReadRejectsBadToken(t *testing.T) {
	junk := bytes.Repeat([]byte{0xAB}, len(BinaryFileToken)+64)
	_, err := ReadDatasetFrom(bytes.NewReader(junk))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token")
}

func TestReadRejectsNegativeHeaderCounts(t *testing.T) {
	// a structurally readable stream whose row count is negative
	var buf bytes.Buffer
	bw := newBinWriter(&buf)
	bw.write([]byte(BinaryFileToken))
	bw.Uint64(0)
	bw.Int32(-5) // rows
	for i := 0; i < 6; i++ {
		bw.Int32(0)
	}
	bw.Bool(false)
	bw.Bool(false)

	_, err := ReadDatasetFrom(&buf)
	require.Error(t, err)
	var valErr *errors.ValueError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "ReadDataset", valErr.Op)
	assert.Contains(t, err.Error(), "rows=-5")
}

func TestReadRejectsCorruptStream(t *testing.T) {
	d := roundTripDataset(t)
	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)

	// flip a byte inside the last group's storage, ahead of the trailer
	raw := buf.Bytes()
	raw[len(raw)-9] ^= 0xFF
	_, err = ReadDatasetFrom(bytes.NewReader(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestReadRejectsTruncatedStream(t *testing.T) {
	d := roundTripDataset(t)
	var buf bytes.Buffer
	_, err := d.WriteTo(&buf)
	require.NoError(t, err)

	_, err = ReadDatasetFrom(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	require.Error(t, err)
}

func TestSaveAndLoadBinaryFile(t *testing.T) {
	d := roundTripDataset(t)
	path := filepath.Join(t.TempDir(), "train.bin")

	require.NoError(t, d.SaveBinaryFile(path))
	got, err := LoadBinaryFile(path)
	require.NoError(t, err)
	assertDatasetsEqual(t, d, got)
}

func TestSaveBinaryFileRefusesExisting(t *testing.T) {
	d := roundTripDataset(t)
	path := filepath.Join(t.TempDir(), "occupied.bin")
	require.NoError(t, os.WriteFile(path, []byte("do not touch"), 0o644))

	require.NoError(t, d.SaveBinaryFile(path), "an existing path is skipped, not an error")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "do not touch", string(content))
}

func TestSaveAndLoadCompressedBinaryFile(t *testing.T) {
	d := roundTripDataset(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "plain.bin")
	packed := filepath.Join(dir, "packed.bin")

	require.NoError(t, d.SaveBinaryFile(plain))
	require.NoError(t, d.SaveCompressedBinaryFile(packed))

	got, err := LoadBinaryFile(packed)
	require.NoError(t, err)
	assertDatasetsEqual(t, d, got)
}

func TestLoadBinaryFileMissing(t *testing.T) {
	_, err := LoadBinaryFile(filepath.Join(t.TempDir(), "absent.bin"))
	require.Error(t, err)
}
