package dataset

import (
	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

// Metadata holds the per-row side data the trainer needs next to the feature
// storage: labels, optional weights, optional initial scores and optional
// query boundaries for ranking tasks.
type Metadata struct {
	numData         int
	label           []float64
	weights         []float64
	initScore       []float64
	queryBoundaries []int
}

// Init allocates metadata for numData rows.
func (m *Metadata) Init(numData int) {
	m.numData = numData
	m.label = make([]float64, numData)
	m.weights = nil
	m.initScore = nil
	m.queryBoundaries = nil
}

// InitSubset materializes the metadata of the given rows of full.
func (m *Metadata) InitSubset(full *Metadata, usedIndices []int) {
	m.numData = len(usedIndices)
	m.label = make([]float64, len(usedIndices))
	for i, idx := range usedIndices {
		m.label[i] = full.label[idx]
	}
	if full.weights != nil {
		m.weights = make([]float64, len(usedIndices))
		for i, idx := range usedIndices {
			m.weights[i] = full.weights[idx]
		}
	} else {
		m.weights = nil
	}
	if full.initScore != nil {
		m.initScore = make([]float64, len(usedIndices))
		for i, idx := range usedIndices {
			m.initScore[i] = full.initScore[idx]
		}
	} else {
		m.initScore = nil
	}
	// query boundaries do not survive row subsetting
	m.queryBoundaries = nil
}

// NumData returns the row count.
func (m *Metadata) NumData() int { return m.numData }

// SetLabel replaces the label column.
func (m *Metadata) SetLabel(label []float64) {
	errors.Check(len(label) == m.numData, "label length %d does not match row count %d", len(label), m.numData)
	m.label = append([]float64(nil), label...)
}

// Label returns the label column.
func (m *Metadata) Label() []float64 { return m.label }

// SetWeights replaces the per-row weights.
func (m *Metadata) SetWeights(weights []float64) {
	errors.Check(len(weights) == m.numData, "weight length %d does not match row count %d", len(weights), m.numData)
	m.weights = append([]float64(nil), weights...)
}

// Weights returns the per-row weights, nil when unweighted.
func (m *Metadata) Weights() []float64 { return m.weights }

// SetInitScore replaces the initial scores.
func (m *Metadata) SetInitScore(initScore []float64) {
	errors.Check(len(initScore) == m.numData, "init score length %d does not match row count %d", len(initScore), m.numData)
	m.initScore = append([]float64(nil), initScore...)
}

// InitScore returns the initial scores, nil when unset.
func (m *Metadata) InitScore() []float64 { return m.initScore }

// SetQuery sets per-query row counts; boundaries are their prefix sums and
// must cover every row.
func (m *Metadata) SetQuery(query []int) {
	boundaries := make([]int, len(query)+1)
	for i, q := range query {
		boundaries[i+1] = boundaries[i] + q
	}
	errors.Check(boundaries[len(boundaries)-1] == m.numData, "query sizes sum to %d, want %d rows", boundaries[len(boundaries)-1], m.numData)
	m.queryBoundaries = boundaries
}

// QueryBoundaries returns the query boundary prefix sums, nil when unset.
func (m *Metadata) QueryBoundaries() []int { return m.queryBoundaries }

// NumQueries returns the number of queries.
func (m *Metadata) NumQueries() int {
	if m.queryBoundaries == nil {
		return 0
	}
	return len(m.queryBoundaries) - 1
}

// SizesInByte returns the serialized size.
func (m *Metadata) SizesInByte() uint64 {
	size := uint64(4)
	size += 4 + 8*uint64(len(m.label))
	size += 4 + 8*uint64(len(m.weights))
	size += 4 + 8*uint64(len(m.initScore))
	size += 4 + 8*uint64(len(m.queryBoundaries))
	return size
}

func (m *Metadata) writeTo(w *binWriter) {
	w.Int32(int32(m.numData))
	w.Int32(int32(len(m.label)))
	for _, v := range m.label {
		w.Float64(v)
	}
	w.Int32(int32(len(m.weights)))
	for _, v := range m.weights {
		w.Float64(v)
	}
	w.Int32(int32(len(m.initScore)))
	for _, v := range m.initScore {
		w.Float64(v)
	}
	w.Int32(int32(len(m.queryBoundaries)))
	for _, v := range m.queryBoundaries {
		w.Int64(int64(v))
	}
}

func (m *Metadata) readFrom(r *binReader) error {
	m.numData = int(r.Int32())
	readFloats := func() []float64 {
		n := int(r.Int32())
		if n <= 0 || r.Err() != nil {
			return nil
		}
		out := make([]float64, n)
		for i := range out {
			out[i] = r.Float64()
		}
		return out
	}
	m.label = readFloats()
	m.weights = readFloats()
	m.initScore = readFloats()
	n := int(r.Int32())
	if n > 0 && r.Err() == nil {
		m.queryBoundaries = make([]int, n)
		for i := range m.queryBoundaries {
			m.queryBoundaries[i] = int(r.Int64())
		}
	} else {
		m.queryBoundaries = nil
	}
	return r.Err()
}
