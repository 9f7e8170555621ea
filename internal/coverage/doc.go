// Package coverage turns BAM alignments into scaled coverage tracks.
//
// Converter is the capability the rest of the program depends on; BamCoverage
// implements it by shelling out to deepTools bamCoverage through an Executor so
// tests can substitute the subprocess. Dispatcher fans a batch of Tasks out over
// a bounded worker pool and stops the batch at the first failure.
package coverage
