package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckReadableFile verifies that path is an existing regular file the
// process can read.
func CheckReadableFile(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckOutputPath verifies that the directory path will be written into exists
// and is writable.
func CheckOutputPath(name, path string) Result {
	dir := filepath.Dir(path)
	result := CheckDirectoryAccess(name, dir)
	if result.Passed {
		result.Detail = path
	}
	return result
}

// CheckBatch validates the input alignments and output locations of a run.
func CheckBatch(inputs, outputs []string, factorPath string) []Result {
	results := make([]Result, 0, len(inputs)+len(outputs)+1)
	for i, input := range inputs {
		results = append(results, CheckReadableFile(fmt.Sprintf("Sample %d input", i+1), input))
	}
	for i, output := range outputs {
		results = append(results, CheckOutputPath(fmt.Sprintf("Sample %d output", i+1), output))
	}
	if factorPath != "" {
		results = append(results, CheckOutputPath("Factor file", factorPath))
	}
	return results
}
