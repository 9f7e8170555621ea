//go:build !linux

package scaling

func affinityCPUs() (int, bool) {
	return 0, false
}
