package spikein_test

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"spikenorm/internal/services"
	"spikenorm/internal/spikein"
)

func TestParseFirstColumn(t *testing.T) {
	input := "10,sampleA\n20,sampleB\n\n# trailing comment\n5,sampleC\n"
	got, err := spikein.Parse(strings.NewReader(input), ',', 0)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []float64{10, 20, 5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %v, want %v", got, want)
	}
}

func TestParseTabDelimitedSecondColumn(t *testing.T) {
	input := "A\t1.5e6\nB\t  3000000\n"
	got, err := spikein.Parse(strings.NewReader(input), '\t', 1)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	want := []float64{1.5e6, 3e6}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Parse = %v, want %v", got, want)
	}
}

func TestParseRejectsMalformedValues(t *testing.T) {
	cases := map[string]string{
		"text":    "10\nabc\n",
		"empty":   "10\n,x\n",
		"columns": "10,1\n20\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			column := 0
			if name == "columns" {
				column = 1
			}
			_, err := spikein.Parse(strings.NewReader(input), ',', column)
			if err == nil {
				t.Fatal("expected parse error")
			}
			if !strings.Contains(err.Error(), "line 2") {
				t.Fatalf("expected error to name line 2, got %v", err)
			}
		})
	}
}

func TestFileSourceAbsentCases(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write empty: %v", err)
	}

	counts, err := spikein.FileSource{}.Load()
	if err != nil || counts.Present() {
		t.Fatalf("expected absent counts for empty path, got %+v err=%v", counts, err)
	}

	counts, err = spikein.FileSource{Path: empty}.Load()
	if err != nil || counts.Present() || counts.Missing {
		t.Fatalf("expected absent counts for empty file, got %+v err=%v", counts, err)
	}

	counts, err = spikein.FileSource{Path: filepath.Join(dir, "nope.csv")}.Load()
	if err != nil {
		t.Fatalf("expected missing file to be tolerated, got %v", err)
	}
	if counts.Present() || !counts.Missing {
		t.Fatalf("expected Missing flag, got %+v", counts)
	}
}

func TestFileSourceWrapsParseErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	if err := os.WriteFile(path, []byte("12\nnot-a-number\n"), 0o644); err != nil {
		t.Fatalf("write counts: %v", err)
	}
	_, err := spikein.FileSource{Path: path, Delimiter: ','}.Load()
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error to name %s, got %v", path, err)
	}
}

func TestFileSourceLoadsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "counts.csv")
	if err := os.WriteFile(path, []byte("10\n20\n5\n"), 0o644); err != nil {
		t.Fatalf("write counts: %v", err)
	}
	counts, err := spikein.FileSource{Path: path}.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !counts.Present() || counts.Len() != 3 || counts.Path != path {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestStaticAndNone(t *testing.T) {
	values := []float64{1, 2}
	counts, _ := spikein.Static(values).Load()
	values[0] = 99
	if counts.Values[0] != 1 {
		t.Fatal("expected Static to copy its values")
	}
	if counts, _ := (spikein.None{}).Load(); counts.Present() {
		t.Fatal("expected None to be absent")
	}
}
