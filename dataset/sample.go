package dataset

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/gbdata/pkg/errors"
)

// SampleColumns holds, for a fixed-size sample of rows, the sparse
// (row index, value) pairs of every feature column. It is the bundling
// algorithm's view of the data: indices are sorted and only nonzero sampled
// values appear. The slices are owned by the SampleColumns and treated as
// immutable by the bundling code.
type SampleColumns struct {
	// Indices[f] holds the sorted sample-row indices where feature f is
	// nonzero.
	Indices [][]int
	// Values[f] holds the raw values matching Indices[f].
	Values [][]float64
	// NumTotal is the number of rows in the sample.
	NumTotal int
}

// NumColumns returns the number of sampled feature columns.
func (s *SampleColumns) NumColumns() int { return len(s.Indices) }

// NonZeroCounts returns the per-column nonzero counts.
func (s *SampleColumns) NonZeroCounts() []int {
	cnt := make([]int, len(s.Indices))
	for i, idx := range s.Indices {
		cnt[i] = len(idx)
	}
	return cnt
}

// SampleFromMatrix builds sample columns from a row-major matrix, sampling at
// most maxSample rows. Row selection is deterministic for a given row count:
// the seed is the row count itself, so repeated loads of the same data
// produce the same grouping.
func SampleFromMatrix(m mat.Matrix, maxSample int) *SampleColumns {
	rows, cols := m.Dims()
	errors.Check(maxSample > 0, "maxSample must be positive, got %d", maxSample)

	picked := make([]int, rows)
	for i := range picked {
		picked[i] = i
	}
	if rows > maxSample {
		rng := rand.New(rand.NewSource(int64(rows)))
		rng.Shuffle(rows, func(i, j int) {
			picked[i], picked[j] = picked[j], picked[i]
		})
		picked = picked[:maxSample]
		sort.Ints(picked)
	}

	s := &SampleColumns{
		Indices:  make([][]int, cols),
		Values:   make([][]float64, cols),
		NumTotal: len(picked),
	}
	for j := 0; j < cols; j++ {
		for i, r := range picked {
			if v := m.At(r, j); v != 0 {
				s.Indices[j] = append(s.Indices[j], i)
				s.Values[j] = append(s.Values[j], v)
			}
		}
	}
	return s
}
