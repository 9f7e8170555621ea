package coverage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"spikenorm/internal/logging"
	"spikenorm/internal/scaling"
	"spikenorm/internal/services"
)

// Converter produces one coverage track from one alignment file.
type Converter interface {
	Convert(ctx context.Context, input string, scaleFactor float64, cpus int, output string) error
}

// Output formats understood by bamCoverage's -of flag.
const (
	FormatBigWig   = "bigwig"
	FormatBedGraph = "bedgraph"
)

// DefaultBinSize matches the resolution historically used for these tracks.
const DefaultBinSize = 10

// Option configures BamCoverage.
type Option func(*BamCoverage)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(b *BamCoverage) {
		if exec != nil {
			b.exec = exec
		}
	}
}

// WithLogger routes subprocess output to logger at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *BamCoverage) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBinSize overrides the -bs argument.
func WithBinSize(size int) Option {
	return func(b *BamCoverage) {
		if size > 0 {
			b.binSize = size
		}
	}
}

// WithFormat overrides the -of argument.
func WithFormat(format string) Option {
	return func(b *BamCoverage) {
		if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
			b.format = format
		}
	}
}

// WithExtraArgs appends arguments after the generated ones.
func WithExtraArgs(args ...string) Option {
	return func(b *BamCoverage) {
		b.extraArgs = append(b.extraArgs, args...)
	}
}

// WithTimeout bounds each invocation. Zero disables the limit.
func WithTimeout(timeout time.Duration) Option {
	return func(b *BamCoverage) {
		if timeout >= 0 {
			b.timeout = timeout
		}
	}
}

// BamCoverage wraps the deepTools bamCoverage CLI.
type BamCoverage struct {
	binary    string
	binSize   int
	format    string
	extraArgs []string
	timeout   time.Duration
	exec      Executor
	logger    *slog.Logger
}

// NewBamCoverage constructs a converter invoking binary.
func NewBamCoverage(binary string, opts ...Option) (*BamCoverage, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, services.Wrap(services.ErrConfiguration, "coverage", "init", "bamCoverage binary required", nil)
	}
	b := &BamCoverage{
		binary:  binary,
		binSize: DefaultBinSize,
		format:  FormatBigWig,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	switch b.format {
	case FormatBigWig, FormatBedGraph:
	default:
		return nil, services.Wrap(services.ErrConfiguration, "coverage", "init",
			fmt.Sprintf("unsupported output format %q", b.format), nil)
	}
	return b, nil
}

// Binary returns the executable that will be invoked.
func (b *BamCoverage) Binary() string { return b.binary }

// Args builds the argument list for one conversion.
func (b *BamCoverage) Args(input string, scaleFactor float64, cpus int, output string) []string {
	if cpus < 1 {
		cpus = 1
	}
	args := []string{
		"-b", input,
		"--scaleFactor", scaling.Format(scaleFactor),
		"-bs", strconv.Itoa(b.binSize),
		"-of", b.format,
		"-p", strconv.Itoa(cpus),
		"-o", output,
	}
	return append(args, b.extraArgs...)
}

// CommandLine renders the invocation for logs and dry runs.
func (b *BamCoverage) CommandLine(input string, scaleFactor float64, cpus int, output string) string {
	parts := append([]string{b.binary}, b.Args(input, scaleFactor, cpus, output)...)
	for i, part := range parts {
		if part == "" || strings.ContainsAny(part, " \t\"'") {
			parts[i] = strconv.Quote(part)
		}
	}
	return strings.Join(parts, " ")
}

// Convert runs bamCoverage once and reports any failure as an external tool error.
func (b *BamCoverage) Convert(ctx context.Context, input string, scaleFactor float64, cpus int, output string) error {
	runCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	logger := logging.WithContext(ctx, b.logger)
	args := b.Args(input, scaleFactor, cpus, output)
	logger.Debug("invoking bamCoverage",
		logging.String("binary", b.binary),
		logging.String("args", strings.Join(args, " ")),
	)

	err := b.exec.Run(runCtx, b.binary, args, func(line string) {
		logger.Debug(line, logging.String(logging.FieldEventType, "bamcoverage_output"))
	})
	if err == nil {
		return nil
	}
	return services.Wrap(services.ErrExternalTool, "coverage", "bamCoverage", describeFailure(runCtx, ctx, b.binary, err), err)
}

func describeFailure(runCtx, parent context.Context, binary string, err error) string {
	var startErr *StartError
	if errors.As(err, &startErr) {
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Sprintf("%s not found on PATH", binary)
		}
		return fmt.Sprintf("could not start %s", binary)
	}
	if parent.Err() != nil {
		return "cancelled"
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "timed out"
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return fmt.Sprintf("exited with status %d", code)
		}
		return "terminated by signal"
	}
	return "failed"
}
