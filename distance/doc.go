// Package distance provides the vector kernels used by the indexes and by
// relevance scoring.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (what every index reports)
//   - MetricCosine: Cosine distance (1 - cosine similarity)
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	sim := distance.Cosine(a, b)
//	unit, ok := distance.NormalizeL2Copy(vec)
package distance
