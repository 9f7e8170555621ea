package scaling_test

import (
	"testing"

	"spikenorm/internal/scaling"
)

func TestCPUBudget(t *testing.T) {
	cases := []struct {
		total, n, want int
	}{
		{8, 3, 2},
		{8, 8, 1},
		{8, 16, 1},
		{32, 4, 8},
		{1, 1, 1},
		{0, 3, 1},
		{8, 0, 1},
	}
	for _, tc := range cases {
		if got := scaling.CPUBudget(tc.total, tc.n); got != tc.want {
			t.Fatalf("CPUBudget(%d, %d) = %d, want %d", tc.total, tc.n, got, tc.want)
		}
	}
}

func TestResolveCPUs(t *testing.T) {
	if got := scaling.ResolveCPUs(12); got != 12 {
		t.Fatalf("expected override to win, got %d", got)
	}
	if got := scaling.ResolveCPUs(0); got < 1 {
		t.Fatalf("expected at least one available CPU, got %d", got)
	}
	if scaling.AvailableCPUs() < 1 {
		t.Fatal("expected at least one available CPU")
	}
}
