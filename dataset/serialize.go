package dataset

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
	"github.com/YuminosukeSato/gbdata/pkg/log"
)

// BinaryFileToken opens every serialized dataset; readers must see it before
// trusting anything after it.
const BinaryFileToken = "______GBData_Binary_File_Token______\n"

// compressedMagic opens the zstd-framed container variant.
const compressedMagic = "GBDZSTD1\n"

// All multi-byte fields are little-endian. The stream after the token is
// covered by an xxhash64 trailer.

type binWriter struct {
	w       io.Writer
	digest  *xxhash.Digest
	scratch [8]byte
	n       int64
	err     error
}

func newBinWriter(w io.Writer) *binWriter {
	return &binWriter{w: w, digest: xxhash.New()}
}

func (bw *binWriter) write(p []byte) {
	if bw.err != nil {
		return
	}
	n, err := bw.w.Write(p)
	bw.n += int64(n)
	if err != nil {
		bw.err = err
		return
	}
	_, _ = bw.digest.Write(p)
}

func (bw *binWriter) Byte(b byte) { bw.scratch[0] = b; bw.write(bw.scratch[:1]) }

func (bw *binWriter) Bool(b bool) {
	if b {
		bw.Byte(1)
	} else {
		bw.Byte(0)
	}
}

func (bw *binWriter) Uint32(v uint32) {
	binary.LittleEndian.PutUint32(bw.scratch[:4], v)
	bw.write(bw.scratch[:4])
}

func (bw *binWriter) Int32(v int32) { bw.Uint32(uint32(v)) }

func (bw *binWriter) Uint64(v uint64) {
	binary.LittleEndian.PutUint64(bw.scratch[:8], v)
	bw.write(bw.scratch[:8])
}

func (bw *binWriter) Int64(v int64) { bw.Uint64(uint64(v)) }

func (bw *binWriter) Float64(v float64) { bw.Uint64(math.Float64bits(v)) }

func (bw *binWriter) String(s string) {
	bw.Int32(int32(len(s)))
	bw.write([]byte(s))
}

// trailer writes the running hash; the hash bytes themselves are not hashed.
func (bw *binWriter) trailer() {
	if bw.err != nil {
		return
	}
	binary.LittleEndian.PutUint64(bw.scratch[:8], bw.digest.Sum64())
	n, err := bw.w.Write(bw.scratch[:8])
	bw.n += int64(n)
	bw.err = err
}

type binReader struct {
	r       io.Reader
	digest  *xxhash.Digest
	scratch [8]byte
	err     error
}

func newBinReader(r io.Reader) *binReader {
	return &binReader{r: r, digest: xxhash.New()}
}

func (br *binReader) Err() error { return br.err }

func (br *binReader) read(p []byte) {
	if br.err != nil {
		return
	}
	if _, err := io.ReadFull(br.r, p); err != nil {
		br.err = err
		return
	}
	_, _ = br.digest.Write(p)
}

func (br *binReader) Byte() byte {
	br.read(br.scratch[:1])
	return br.scratch[0]
}

func (br *binReader) Bool() bool { return br.Byte() != 0 }

func (br *binReader) Uint32() uint32 {
	br.read(br.scratch[:4])
	return binary.LittleEndian.Uint32(br.scratch[:4])
}

func (br *binReader) Int32() int32 { return int32(br.Uint32()) }

func (br *binReader) Uint64() uint64 {
	br.read(br.scratch[:8])
	return binary.LittleEndian.Uint64(br.scratch[:8])
}

func (br *binReader) Int64() int64 { return int64(br.Uint64()) }

func (br *binReader) Float64() float64 { return math.Float64frombits(br.Uint64()) }

func (br *binReader) String() string {
	n := int(br.Int32())
	if br.err != nil || n < 0 {
		return ""
	}
	buf := make([]byte, n)
	br.read(buf)
	return string(buf)
}

// checkTrailer reads the trailing hash and compares it against everything
// consumed so far.
func (br *binReader) checkTrailer() error {
	if br.err != nil {
		return br.err
	}
	want := br.digest.Sum64()
	if _, err := io.ReadFull(br.r, br.scratch[:8]); err != nil {
		return errors.Wrap(err, "read checksum trailer")
	}
	if got := binary.LittleEndian.Uint64(br.scratch[:8]); got != want {
		return errors.Newf("checksum mismatch: stream has %016x, computed %016x", got, want)
	}
	return nil
}

// headerSizeInByte returns the declared byte length of the header section,
// with the side channels counted at their dense expanded size.
func (d *Dataset) headerSizeInByte() uint64 {
	size := uint64(7*4 + 2) // scalars and the two flags
	size += 4 * uint64(d.numTotalFeatures)
	size += 4 // numGroups
	size += 3 * 4 * uint64(d.numFeatures)
	size += 8 * uint64(d.numGroups+1)
	size += 2 * 4 * uint64(d.numGroups)
	size += uint64(d.numFeatures)     // monotone types
	size += 8 * uint64(d.numFeatures) // feature penalty
	size += 4 * uint64(d.numTotalFeatures)
	for _, name := range d.featureNames {
		size += 4 + uint64(len(name))
	}
	for _, bounds := range d.forcedBinBounds {
		size += 4 + 8*uint64(len(bounds))
	}
	return size
}

// WriteTo serializes the dataset in the fixed field order: token, declared
// header length, scalars, index tables, names, forced bounds, metadata and
// each group, the last two length-prefixed for streaming skips. Side-channel
// vectors collapsed to empty are expanded to dense default-filled arrays for
// the write and re-collapsed afterwards.
func (d *Dataset) WriteTo(w io.Writer) (int64, error) {
	bw := newBinWriter(w)
	bw.write([]byte(BinaryFileToken))
	bw.Uint64(d.headerSizeInByte())

	bw.Int32(int32(d.numData))
	bw.Int32(int32(d.numFeatures))
	bw.Int32(int32(d.numTotalFeatures))
	bw.Int32(int32(d.labelIdx))
	bw.Int32(int32(d.maxBin))
	bw.Int32(int32(d.binConstructSampleCnt))
	bw.Int32(int32(d.minDataInBin))
	bw.Bool(d.useMissing)
	bw.Bool(d.zeroAsMissing)
	for _, v := range d.usedFeatureMap {
		bw.Int32(int32(v))
	}
	bw.Int32(int32(d.numGroups))
	for _, v := range d.realFeatureIdx {
		bw.Int32(int32(v))
	}
	for _, v := range d.feature2Group {
		bw.Int32(int32(v))
	}
	for _, v := range d.feature2SubFeature {
		bw.Int32(int32(v))
	}
	for _, v := range d.groupBinBoundaries {
		bw.Uint64(v)
	}
	for _, v := range d.groupFeatureStart {
		bw.Int32(int32(v))
	}
	for _, v := range d.groupFeatureCnt {
		bw.Int32(int32(v))
	}

	// the on-disk layout always carries dense per-feature arrays
	monotone := d.monotoneTypes
	if monotone == nil {
		monotone = make([]int8, d.numFeatures)
	}
	for _, v := range monotone {
		bw.Byte(byte(v))
	}
	penalty := d.featurePenalty
	if penalty == nil {
		penalty = make([]float64, d.numFeatures)
		for i := range penalty {
			penalty[i] = 1.0
		}
	}
	for _, v := range penalty {
		bw.Float64(v)
	}
	for _, v := range d.expandedMaxBinByFeature() {
		bw.Int32(v)
	}

	for _, name := range d.featureNames {
		bw.String(name)
	}
	for _, bounds := range d.forcedBinBounds {
		bw.Int32(int32(len(bounds)))
		for _, b := range bounds {
			bw.Float64(b)
		}
	}

	bw.Uint64(d.metadata.SizesInByte())
	d.metadata.writeTo(bw)

	for _, fg := range d.groups {
		bw.Uint64(fg.SizesInByte())
		fg.writeTo(bw)
	}
	bw.trailer()
	if bw.err != nil {
		return bw.n, errors.Wrap(bw.err, "write dataset")
	}
	return bw.n, nil
}

// ReadDatasetFrom deserializes a dataset written by WriteTo, validating the
// leading token and the checksum trailer.
func ReadDatasetFrom(r io.Reader) (*Dataset, error) {
	br := newBinReader(r)
	token := make([]byte, len(BinaryFileToken))
	br.read(token)
	if br.err != nil {
		return nil, errors.Wrap(br.err, "read binary token")
	}
	if string(token) != BinaryFileToken {
		return nil, errors.New("input is not a gbdata binary file: token mismatch")
	}
	_ = br.Uint64() // declared header size, informational

	d := &Dataset{dataFilename: "noname"}
	d.numData = int(br.Int32())
	d.numFeatures = int(br.Int32())
	d.numTotalFeatures = int(br.Int32())
	d.labelIdx = int(br.Int32())
	d.maxBin = int(br.Int32())
	d.binConstructSampleCnt = int(br.Int32())
	d.minDataInBin = int(br.Int32())
	d.useMissing = br.Bool()
	d.zeroAsMissing = br.Bool()
	if br.Err() != nil {
		return nil, errors.Wrap(br.Err(), "read header")
	}
	if d.numData < 0 || d.numFeatures < 0 || d.numTotalFeatures < 0 {
		return nil, errors.NewValueError("ReadDataset",
			fmt.Sprintf("corrupt header: rows=%d features=%d total=%d", d.numData, d.numFeatures, d.numTotalFeatures))
	}

	d.usedFeatureMap = make([]int, d.numTotalFeatures)
	for i := range d.usedFeatureMap {
		d.usedFeatureMap[i] = int(br.Int32())
	}
	d.numGroups = int(br.Int32())
	if br.Err() == nil && d.numGroups < 0 {
		return nil, errors.NewValueError("ReadDataset", fmt.Sprintf("corrupt header: groups=%d", d.numGroups))
	}
	d.realFeatureIdx = make([]int, d.numFeatures)
	for i := range d.realFeatureIdx {
		d.realFeatureIdx[i] = int(br.Int32())
	}
	d.feature2Group = make([]int, d.numFeatures)
	for i := range d.feature2Group {
		d.feature2Group[i] = int(br.Int32())
	}
	d.feature2SubFeature = make([]int, d.numFeatures)
	for i := range d.feature2SubFeature {
		d.feature2SubFeature[i] = int(br.Int32())
	}
	d.groupBinBoundaries = make([]uint64, d.numGroups+1)
	for i := range d.groupBinBoundaries {
		d.groupBinBoundaries[i] = br.Uint64()
	}
	d.groupFeatureStart = make([]int, d.numGroups)
	for i := range d.groupFeatureStart {
		d.groupFeatureStart[i] = int(br.Int32())
	}
	d.groupFeatureCnt = make([]int, d.numGroups)
	for i := range d.groupFeatureCnt {
		d.groupFeatureCnt[i] = int(br.Int32())
	}

	d.monotoneTypes = make([]int8, d.numFeatures)
	for i := range d.monotoneTypes {
		d.monotoneTypes[i] = int8(br.Byte())
	}
	if allEqual(d.monotoneTypes, 0) {
		d.monotoneTypes = nil
	}
	d.featurePenalty = make([]float64, d.numFeatures)
	for i := range d.featurePenalty {
		d.featurePenalty[i] = br.Float64()
	}
	if allEqual(d.featurePenalty, 1.0) {
		d.featurePenalty = nil
	}
	d.maxBinByFeature = make([]int32, d.numTotalFeatures)
	for i := range d.maxBinByFeature {
		d.maxBinByFeature[i] = br.Int32()
	}
	if allEqual(d.maxBinByFeature, -1) {
		d.maxBinByFeature = nil
	}

	d.featureNames = make([]string, d.numTotalFeatures)
	for i := range d.featureNames {
		d.featureNames[i] = br.String()
	}
	d.forcedBinBounds = make([][]float64, d.numTotalFeatures)
	for i := range d.forcedBinBounds {
		n := int(br.Int32())
		if br.Err() != nil {
			return nil, errors.Wrap(br.Err(), "read forced bounds")
		}
		if n > 0 {
			d.forcedBinBounds[i] = make([]float64, n)
			for j := range d.forcedBinBounds[i] {
				d.forcedBinBounds[i][j] = br.Float64()
			}
		}
	}

	_ = br.Uint64() // metadata byte length
	if err := d.metadata.readFrom(br); err != nil {
		return nil, errors.Wrap(err, "read metadata")
	}

	d.groups = make([]*FeatureGroup, d.numGroups)
	for i := range d.groups {
		_ = br.Uint64() // group byte length
		fg, err := readFeatureGroup(br)
		if err != nil {
			return nil, errors.Wrapf(err, "read feature group %d", i)
		}
		d.groups[i] = fg
	}
	if err := br.checkTrailer(); err != nil {
		return nil, err
	}

	// derived, not serialized
	for inner := 0; inner < d.numFeatures; inner++ {
		bm := d.groups[d.feature2Group[inner]].BinMapper(d.feature2SubFeature[inner])
		if bm.DefaultBin() != bm.MostFreqBin() {
			d.featureNeedPushZeros = append(d.featureNeedPushZeros, inner)
		}
	}
	d.finishLoad = true
	return d, nil
}

// SaveBinaryFile writes the dataset to filename. A name that collides with
// the source data file or with an existing path is refused with a warning
// and no write happens.
func (d *Dataset) SaveBinaryFile(filename string) error {
	if filename == "" {
		filename = d.dataFilename + ".bin"
	}
	if filename == d.dataFilename {
		log.Warnf("binary file %s already exists", filename)
		return nil
	}
	if _, err := os.Stat(filename); err == nil {
		log.Warnf("file %s exists, cannot save binary to it", filename)
		return nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "cannot write binary data to %s", filename)
	}
	defer f.Close()
	log.Infof("saving data to binary file %s", filename)
	w := bufio.NewWriter(f)
	if _, err := d.WriteTo(w); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return errors.Wrapf(err, "cannot write binary data to %s", filename)
	}
	return f.Close()
}

// SaveCompressedBinaryFile writes the zstd-framed container variant, with
// the same name-collision policy as SaveBinaryFile.
func (d *Dataset) SaveCompressedBinaryFile(filename string) error {
	if filename == d.dataFilename {
		log.Warnf("binary file %s already exists", filename)
		return nil
	}
	if _, err := os.Stat(filename); err == nil {
		log.Warnf("file %s exists, cannot save binary to it", filename)
		return nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrapf(err, "cannot write binary data to %s", filename)
	}
	defer f.Close()
	if _, err := f.Write([]byte(compressedMagic)); err != nil {
		return errors.Wrapf(err, "cannot write binary data to %s", filename)
	}
	zw, err := zstd.NewWriter(f)
	if err != nil {
		return errors.Wrap(err, "init zstd writer")
	}
	if _, err := d.WriteTo(zw); err != nil {
		zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrapf(err, "cannot write binary data to %s", filename)
	}
	return f.Close()
}

// LoadBinaryFile reads a dataset saved by SaveBinaryFile or
// SaveCompressedBinaryFile, sniffing the container magic.
func LoadBinaryFile(filename string) (*Dataset, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open binary file %s", filename)
	}
	defer f.Close()
	br := bufio.NewReader(f)
	magic, err := br.Peek(len(compressedMagic))
	if err == nil && string(magic) == compressedMagic {
		if _, err := br.Discard(len(compressedMagic)); err != nil {
			return nil, errors.WithStack(err)
		}
		zr, err := zstd.NewReader(br)
		if err != nil {
			return nil, errors.Wrap(err, "init zstd reader")
		}
		defer zr.Close()
		d, err := ReadDatasetFrom(zr)
		if err != nil {
			return nil, err
		}
		d.dataFilename = filename
		return d, nil
	}
	d, err := ReadDatasetFrom(br)
	if err != nil {
		return nil, err
	}
	d.dataFilename = filename
	return d, nil
}
