// Package scaling turns spike-in counts into per-sample scaling factors,
// divides CPUs between concurrent conversions, and persists the factors.
//
// Factors are computed once per run and never mutated; the same slice feeds
// the converter invocations and the factor file.
package scaling
