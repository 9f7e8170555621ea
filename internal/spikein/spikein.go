package spikein

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"spikenorm/internal/services"
)

// Counts is the ordered sequence of spike-in read counts, one per sample.
// An empty Values slice means no spike-in data is available.
type Counts struct {
	Values []float64
	// Path is the table the counts were read from, if any.
	Path string
	// Missing reports that a path was supplied but did not exist.
	Missing bool
}

// Present reports whether normalization data is available.
func (c Counts) Present() bool {
	return len(c.Values) > 0
}

// Len returns the number of counts.
func (c Counts) Len() int {
	return len(c.Values)
}

// Source yields spike-in counts for a batch.
type Source interface {
	Load() (Counts, error)
}

// None is a Source that never has spike-in data.
type None struct{}

// Load implements Source.
func (None) Load() (Counts, error) { return Counts{}, nil }

// Static is a Source backed by in-memory values.
type Static []float64

// Load implements Source.
func (s Static) Load() (Counts, error) {
	return Counts{Values: append([]float64(nil), s...)}, nil
}

// FileSource reads a headerless delimited table and takes one column of counts.
type FileSource struct {
	Path      string
	Delimiter rune
	Column    int
}

// Load implements Source. An empty path, a path that does not exist, and an
// empty table all yield absent counts.
func (f FileSource) Load() (Counts, error) {
	path := strings.TrimSpace(f.Path)
	if path == "" {
		return Counts{}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Counts{Path: path, Missing: true}, nil
		}
		return Counts{}, services.Wrap(services.ErrConfiguration, "spikein", "open", path, err)
	}
	defer file.Close()

	values, err := Parse(file, f.Delimiter, f.Column)
	if err != nil {
		return Counts{}, services.Wrap(services.ErrValidation, "spikein", "parse", path, err)
	}
	return Counts{Values: values, Path: path}, nil
}

// Parse reads a headerless table and returns the numeric values of the given
// zero-based column. Blank lines and lines starting with '#' are skipped.
func Parse(r io.Reader, delimiter rune, column int) ([]float64, error) {
	if delimiter == 0 {
		delimiter = ','
	}
	if column < 0 {
		return nil, fmt.Errorf("column %d out of range", column)
	}
	reader := csv.NewReader(r)
	reader.Comma = delimiter
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.ReuseRecord = true

	var values []float64
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := reader.FieldPos(0)
		if column >= len(record) {
			return nil, fmt.Errorf("line %d: expected at least %d columns, found %d", line, column+1, len(record))
		}
		field := strings.TrimSpace(record[column])
		if field == "" {
			return nil, fmt.Errorf("line %d: empty count", line)
		}
		value, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid count %q", line, field)
		}
		values = append(values, value)
	}
	return values, nil
}
