package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// FakeBamCoverage is a script body that behaves like bamCoverage closely
// enough for end-to-end tests: it writes its arguments to the -o target.
const FakeBamCoverage = `out=""
args="$*"
while [ $# -gt 0 ]; do
  if [ "$1" = "-o" ]; then out="$2"; fi
  shift
done
[ -n "$out" ] || exit 2
echo "$args" > "$out"`

// WriteScript writes an executable /bin/sh script with the given body.
func WriteScript(t testing.TB, path, body string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script %s: %v", path, err)
	}
}

// WriteLines writes lines to path, each newline-terminated.
func WriteLines(t testing.TB, path string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	content := ""
	if len(lines) > 0 {
		content = strings.Join(lines, "\n") + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// TouchAlignments creates placeholder alignment files named name.bam in dir
// and returns their paths.
func TouchAlignments(t testing.TB, dir string, names ...string) []string {
	t.Helper()

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(dir, name+".bam")
		WriteLines(t, paths[i], "BAM")
	}
	return paths
}
