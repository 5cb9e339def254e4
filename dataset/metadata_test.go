package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetadataSetQuery(t *testing.T) {
	var m Metadata
	m.Init(10)

	m.SetQuery([]int{3, 4, 3})
	assert.Equal(t, []int{0, 3, 7, 10}, m.QueryBoundaries())
	assert.Equal(t, 3, m.NumQueries())

	assert.Panics(t, func() { m.SetQuery([]int{3, 3}) }, "counts must sum to the row count")
}

func TestMetadataSetLabelLengthCheck(t *testing.T) {
	var m Metadata
	m.Init(5)
	assert.Panics(t, func() { m.SetLabel([]float64{1, 2}) })
	assert.Panics(t, func() { m.SetWeights([]float64{1, 2}) })
}

func TestMetadataInitSubset(t *testing.T) {
	var full Metadata
	full.Init(6)
	full.SetLabel([]float64{0, 1, 2, 3, 4, 5})
	full.SetWeights([]float64{1, 2, 3, 4, 5, 6})
	full.SetQuery([]int{3, 3})

	var sub Metadata
	sub.InitSubset(&full, []int{1, 4})
	assert.Equal(t, 2, sub.NumData())
	assert.Equal(t, []float64{1, 4}, sub.Label())
	assert.Equal(t, []float64{2, 5}, sub.Weights())
	assert.Nil(t, sub.QueryBoundaries(), "query boundaries do not survive subsetting")
	assert.Nil(t, sub.InitScore())
}
