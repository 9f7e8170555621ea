// Package history keeps a SQLite ledger of normalization runs.
//
// Each run records its inputs, the factors applied to every sample, and how it
// ended, so operators can see which factors produced a given set of tracks
// after the fact. The ledger is advisory: the factor file stays the
// authoritative output of a run.
package history
