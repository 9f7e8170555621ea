// Package config loads, normalizes, and validates spikenorm configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the SPIKENORM_BAMCOVERAGE
// environment override. The Config type centralizes the converter invocation
// parameters, spike-in table parsing rules, and log/state locations so the
// CLI resolves them in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
