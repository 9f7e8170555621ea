// Package normalize runs one spike-in normalization batch end to end.
//
// Run loads the spike-in counts, derives the scaling factors, splits the CPU
// budget across samples, converts every alignment through a coverage.Converter
// and finally persists the factors. The factor file is only written once every
// conversion has succeeded.
package normalize
