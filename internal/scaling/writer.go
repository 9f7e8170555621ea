package scaling

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"

	"spikenorm/internal/services"
)

// WriteFactors persists factors to path, one decimal per line in sample order.
// Readers of path see either the previous contents or the complete new file.
func WriteFactors(path string, factors []float64) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return services.Wrap(services.ErrConfiguration, "scaling", "write factors", "destination path required", nil)
	}
	pending, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o644))
	if err != nil {
		return services.Wrap(services.ErrOutput, "scaling", "write factors", path, err)
	}
	defer func() {
		_ = pending.Cleanup()
	}()

	if err := EncodeFactors(pending, factors); err != nil {
		return services.Wrap(services.ErrOutput, "scaling", "write factors", path, err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return services.Wrap(services.ErrOutput, "scaling", "write factors", path, err)
	}
	return nil
}

// EncodeFactors writes one factor per newline-terminated line.
func EncodeFactors(w io.Writer, factors []float64) error {
	buf := bufio.NewWriter(w)
	for _, factor := range factors {
		if _, err := buf.WriteString(Format(factor)); err != nil {
			return err
		}
		if err := buf.WriteByte('\n'); err != nil {
			return err
		}
	}
	return buf.Flush()
}

// ReadFactors parses a factor file written by WriteFactors.
func ReadFactors(r io.Reader) ([]float64, error) {
	var factors []float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		value, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid factor %q", line, text)
		}
		factors = append(factors, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return factors, nil
}
