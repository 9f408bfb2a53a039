// Package kmeans implements Lloyd's k-means clustering.
//
// It trains the coarse quantizer (list centroids) of the IVF index.
package kmeans
