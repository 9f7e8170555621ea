package scaling

import "runtime"

// CPUBudget divides total parallelism between n concurrent tasks. The result
// is never below 1; oversubscribing is preferred over starving a task.
func CPUBudget(total, n int) int {
	if total <= 0 || n <= 0 {
		return 1
	}
	if budget := total / n; budget > 1 {
		return budget
	}
	return 1
}

// AvailableCPUs reports how many CPUs this process may run on. Where the
// platform exposes a scheduler affinity mask (taskset, cgroup cpusets) it is
// honoured; otherwise runtime.NumCPU is used.
func AvailableCPUs() int {
	if count, ok := affinityCPUs(); ok && count > 0 {
		return count
	}
	return runtime.NumCPU()
}

// ResolveCPUs returns override when positive, otherwise AvailableCPUs.
func ResolveCPUs(override int) int {
	if override > 0 {
		return override
	}
	return AvailableCPUs()
}
