// Package deps locates the external executables spikenorm shells out to.
package deps
