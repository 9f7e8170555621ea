// Package preflight provides readiness checks for the executables and
// filesystem paths a normalization run depends on.
//
// These checks run in two contexts:
//   - "spikenorm check" calls RunAll and prints every result.
//   - "spikenorm run" calls CheckBatch before dispatching so a missing
//     alignment or unwritable output directory fails before any conversion
//     starts.
package preflight
