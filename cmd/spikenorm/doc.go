// Package main hosts the spikenorm CLI entrypoint and command graph.
//
// The Cobra-based command tree resolves configuration once, builds the
// structured logger, and hands immutable options to internal/normalize. Keep
// this package lean: the normalization logic lives in the internal packages and
// the commands here only translate flags and render results.
package main
