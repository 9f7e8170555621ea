// Package services defines shared utilities consumed by the normalization
// pipeline and its external tool integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, sample indexes, and stage names for
//     logging.
//   - Structured error markers plus the Wrap helper that classify failures as
//     configuration, validation, external tool, or output errors.
//
// Use these helpers when adding pipeline steps so failures surface with the
// same shape and category as the rest of the tool.
package services
