// Package bamprovider provides region-restricted read access to a
// coordinate-sorted, indexed BAM file.
//
// The Provider is an interface for reading the BAM file; it hands out
// Iterators over the reads that overlap a half-open genomic range.  Several
// iterators may be active at once, so a Provider can be shared by
// per-chromosome workers.
package bamprovider
