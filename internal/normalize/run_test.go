package normalize_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gofrs/flock"

	"spikenorm/internal/coverage"
	"spikenorm/internal/history"
	"spikenorm/internal/normalize"
	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

type recordingConverter struct {
	mu      sync.Mutex
	factors map[string]float64
	cpus    map[string]int
	fail    string
}

func (c *recordingConverter) Convert(ctx context.Context, input string, factor float64, cpus int, output string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.factors == nil {
		c.factors = map[string]float64{}
		c.cpus = map[string]int{}
	}
	c.factors[input] = factor
	c.cpus[input] = cpus
	if input == c.fail {
		return errors.New("exit status 1")
	}
	return nil
}

type memoryLedger struct {
	runs []history.Run
}

func (l *memoryLedger) Record(_ context.Context, run history.Run) error {
	l.runs = append(l.runs, run)
	return nil
}

func threeSamples() []normalize.Sample {
	return []normalize.Sample{
		{Input: "a.bam", Output: "a.bw"},
		{Input: "b.bam", Output: "b.bw"},
		{Input: "c.bam", Output: "c.bw"},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestRunWithSpikeIns(t *testing.T) {
	factorPath := filepath.Join(t.TempDir(), "norm.txt")
	conv := &recordingConverter{}
	ledger := &memoryLedger{}

	report, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 20, 5},
		FactorPath: factorPath,
		TotalCPUs:  8,
		Converter:  conv,
		Ledger:     ledger,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := readFile(t, factorPath); got != "0.5\n0.25\n1\n" {
		t.Fatalf("unexpected factor file %q", got)
	}
	want := map[string]float64{"a.bam": 0.5, "b.bam": 0.25, "c.bam": 1}
	for input, factor := range want {
		if conv.factors[input] != factor {
			t.Fatalf("%s converted with factor %v, want %v", input, conv.factors[input], factor)
		}
		if conv.cpus[input] != 2 {
			t.Fatalf("%s converted with %d cpus, want 2", input, conv.cpus[input])
		}
	}
	if report.RunID == "" || report.CPUsPerTask != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(ledger.runs) != 1 || ledger.runs[0].Status != history.StatusSucceeded || ledger.runs[0].Samples[2].Factor != 1 {
		t.Fatalf("unexpected ledger %+v", ledger.runs)
	}
}

func TestRunWithoutSpikeIns(t *testing.T) {
	factorPath := filepath.Join(t.TempDir(), "norm.txt")
	conv := &recordingConverter{}
	_, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.FileSource{Path: filepath.Join(t.TempDir(), "absent.csv")},
		FactorPath: factorPath,
		TotalCPUs:  4,
		Converter:  conv,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got := readFile(t, factorPath); got != "1\n1\n1\n" {
		t.Fatalf("unexpected factor file %q", got)
	}
	for input, factor := range conv.factors {
		if factor != 1 {
			t.Fatalf("%s converted with factor %v, want 1", input, factor)
		}
		if conv.cpus[input] != 1 {
			t.Fatalf("%s converted with %d cpus, want 1", input, conv.cpus[input])
		}
	}
}

func TestRunFailureLeavesNoFactorFile(t *testing.T) {
	factorPath := filepath.Join(t.TempDir(), "norm.txt")
	ledger := &memoryLedger{}
	_, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 20, 5},
		FactorPath: factorPath,
		TotalCPUs:  3,
		Converter:  &recordingConverter{fail: "b.bam"},
		Ledger:     ledger,
	})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if !strings.Contains(err.Error(), "b.bam") {
		t.Fatalf("expected failing sample in error, got %v", err)
	}
	if _, statErr := os.Stat(factorPath); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("expected no factor file, stat err=%v", statErr)
	}
	if len(ledger.runs) != 1 || ledger.runs[0].Status != history.StatusFailed || ledger.runs[0].Category != "external_tool" {
		t.Fatalf("expected failed run recorded, got %+v", ledger.runs)
	}
}

func TestRunRejectsCountMismatch(t *testing.T) {
	conv := &recordingConverter{}
	_, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 20},
		FactorPath: filepath.Join(t.TempDir(), "norm.txt"),
		Converter:  conv,
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(conv.factors) != 0 {
		t.Fatal("expected no conversions before factors are valid")
	}
}

func TestRunRejectsZeroCount(t *testing.T) {
	_, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 0, 5},
		FactorPath: filepath.Join(t.TempDir(), "norm.txt"),
		Converter:  &recordingConverter{},
	})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunDryRunWritesFactorsOnly(t *testing.T) {
	factorPath := filepath.Join(t.TempDir(), "norm.txt")
	converter, err := coverage.NewBamCoverage("bamCoverage")
	if err != nil {
		t.Fatalf("NewBamCoverage returned error: %v", err)
	}
	ledger := &memoryLedger{}
	report, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 20, 5},
		FactorPath: factorPath,
		TotalCPUs:  6,
		Converter:  converter,
		DryRun:     true,
		Ledger:     ledger,
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(report.Planned) != 3 || report.Planned[1] != "bamCoverage -b b.bam --scaleFactor 0.25 -bs 10 -of bigwig -p 2 -o b.bw" {
		t.Fatalf("unexpected plan %q", report.Planned)
	}
	if report.Results != nil {
		t.Fatal("expected no conversions in dry run")
	}
	if got := readFile(t, factorPath); got != "0.5\n0.25\n1\n" {
		t.Fatalf("unexpected factor file %q", got)
	}
	if ledger.runs[0].Status != history.StatusDryRun {
		t.Fatalf("expected dry run status, got %s", ledger.runs[0].Status)
	}
}

func TestRunHonoursFactorLock(t *testing.T) {
	factorPath := filepath.Join(t.TempDir(), "norm.txt")
	held := flock.New(factorPath + ".lock")
	locked, err := held.TryLock()
	if err != nil || !locked {
		t.Fatalf("seed lock: locked=%v err=%v", locked, err)
	}
	defer held.Unlock()

	_, err = normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		FactorPath: factorPath,
		Converter:  &recordingConverter{},
	})
	if !errors.Is(err, services.ErrLocked) {
		t.Fatalf("expected locked error, got %v", err)
	}
}

func TestRunValidatesSamples(t *testing.T) {
	cases := map[string]normalize.Options{
		"no samples":    {FactorPath: "norm.txt", Converter: &recordingConverter{}},
		"no factor":     {Samples: threeSamples(), Converter: &recordingConverter{}},
		"no converter":  {Samples: threeSamples(), FactorPath: "norm.txt"},
		"shared output": {Samples: []normalize.Sample{{"a.bam", "x.bw"}, {"b.bam", "./x.bw"}}, FactorPath: "norm.txt", Converter: &recordingConverter{}},
	}
	for name, opts := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := normalize.Run(context.Background(), opts); !errors.Is(err, services.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestPairSamples(t *testing.T) {
	samples, err := normalize.PairSamples([]string{"a.bam", "b.bam"}, []string{"a.bw", "b.bw"})
	if err != nil {
		t.Fatalf("PairSamples returned error: %v", err)
	}
	if samples[1].Input != "b.bam" || samples[1].Output != "b.bw" {
		t.Fatalf("unexpected pairing %+v", samples)
	}
	if _, err := normalize.PairSamples([]string{"a.bam", "b.bam"}, []string{"a.bw"}); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, err := normalize.PairSamples(nil, nil); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error for empty batch, got %v", err)
	}
}

func TestRunRecordsToSQLiteLedger(t *testing.T) {
	dir := t.TempDir()
	store, err := history.Open(context.Background(), filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()

	report, err := normalize.Run(context.Background(), normalize.Options{
		Samples:    threeSamples(),
		Counts:     spikein.Static{10, 20, 5},
		FactorPath: filepath.Join(dir, "norm.txt"),
		TotalCPUs:  3,
		Converter:  &recordingConverter{},
		Ledger:     store,
		RunID:      "fixed-run",
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	run, err := store.Get(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if run.ID != "fixed-run" || len(run.Samples) != 3 || run.Samples[0].Count != 10 || run.Samples[0].Status != "succeeded" {
		t.Fatalf("unexpected ledger entry %+v", run)
	}
}
