package normalize

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"spikenorm/internal/coverage"
	"spikenorm/internal/history"
	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

// Sample pairs one input alignment with the track it produces.
type Sample struct {
	Input  string
	Output string
}

// Ledger records finished runs.
type Ledger interface {
	Record(ctx context.Context, run history.Run) error
}

// Options is the immutable description of a batch.
type Options struct {
	Samples    []Sample
	Counts     spikein.Source
	FactorPath string
	// TotalCPUs is the parallelism shared by the batch; <= 0 detects it.
	TotalCPUs int
	Converter coverage.Converter
	DryRun    bool
	Logger    *slog.Logger
	// Ledger is optional.
	Ledger Ledger
	// RunID is generated when empty.
	RunID string
}

// PairSamples zips input and output paths positionally.
func PairSamples(inputs, outputs []string) ([]Sample, error) {
	if len(inputs) == 0 {
		return nil, services.Wrap(services.ErrConfiguration, "normalize", "pair samples", "at least one input alignment required", nil)
	}
	if len(inputs) != len(outputs) {
		return nil, services.Wrap(services.ErrConfiguration, "normalize", "pair samples",
			fmt.Sprintf("%d input alignments but %d output tracks", len(inputs), len(outputs)), nil)
	}
	samples := make([]Sample, len(inputs))
	for i := range inputs {
		samples[i] = Sample{Input: inputs[i], Output: outputs[i]}
	}
	return samples, nil
}

func (o Options) validate() error {
	if len(o.Samples) == 0 {
		return services.Wrap(services.ErrConfiguration, "normalize", "validate", "no samples", nil)
	}
	if strings.TrimSpace(o.FactorPath) == "" {
		return services.Wrap(services.ErrConfiguration, "normalize", "validate", "factor output path required", nil)
	}
	if o.Converter == nil && !o.DryRun {
		return services.Wrap(services.ErrConfiguration, "normalize", "validate", "converter required", nil)
	}
	outputs := make(map[string]int, len(o.Samples))
	for i, sample := range o.Samples {
		if strings.TrimSpace(sample.Input) == "" || strings.TrimSpace(sample.Output) == "" {
			return services.Wrap(services.ErrConfiguration, "normalize", "validate",
				fmt.Sprintf("sample %d: input and output paths required", i+1), nil)
		}
		key := filepath.Clean(sample.Output)
		if prev, ok := outputs[key]; ok {
			return services.Wrap(services.ErrConfiguration, "normalize", "validate",
				fmt.Sprintf("samples %d and %d both write %s", prev+1, i+1, sample.Output), nil)
		}
		outputs[key] = i
	}
	return nil
}
