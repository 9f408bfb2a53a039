// Package testutil provides testing utilities for vecstore.
//
// This package is intended for use in tests only. It provides helpers for
// generating reproducible random vectors, computing exact nearest neighbours
// and verifying search recall.
//
//	rng := testutil.NewRNG(seed)
//	data := rng.ClusteredVectors(1000, 32, 10, 0.1)
//	truth := testutil.ExactTopK(query, data, 10)
//	recall := testutil.ComputeRecall(truth, approx)
package testutil
