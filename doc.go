// Package gbdata provides the data layer of a gradient-boosting trainer:
// quantized feature storage, conflict-aware feature bundling, per-leaf
// histogram construction and binary dataset persistence.
//
// # Packages
//
//   - dataset: the Dataset type with feature bundling, grouped bin storage,
//     histogram accumulation and binary save/load
//   - core/parallel: fork-join primitives used by the histogram engine
//   - pkg/errors: error types, warnings and panic recovery
//   - pkg/log: zerolog-backed logging
//
// # Quick Start
//
//	package main
//
//	import (
//	    "gonum.org/v1/gonum/mat"
//
//	    "github.com/YuminosukeSato/gbdata/dataset"
//	)
//
//	func main() {
//	    X := loadMatrix() // mat.Matrix with raw feature values
//	    rows, cols := X.Dims()
//
//	    mappers := buildBinMappers(X) // one *dataset.BinMapper per column
//	    cfg := dataset.DefaultConfig()
//	    sample := dataset.SampleFromMatrix(X, cfg.BinConstructSampleCnt)
//
//	    d := dataset.NewDataset(rows)
//	    d.Construct(mappers, cols, sample, cfg)
//	    for i := 0; i < rows; i++ {
//	        d.PushRow(i, mat.Row(nil, i, X))
//	    }
//	    d.FinishLoad()
//
//	    hist := make([]float64, 2*d.NumTotalBin())
//	    d.ConstructHistograms(used, nil, 0, grads, hesses, nil, nil, false, hist)
//	}
//
// Bundling decisions are deterministic for a fixed row count, so repeated
// loads of the same data produce identical physical layouts and identical
// training results.
package gbdata
