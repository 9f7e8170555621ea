// Package spikein reads spike-in read counts for a batch of samples.
//
// Counts come from a headerless delimited table whose configured column holds
// one real number per sample, in the same order as the input alignments. A
// missing or empty table is not an error: it means the batch is rendered
// without normalization.
package spikein
