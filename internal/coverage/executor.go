package coverage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"
)

// waitDelay bounds how long Wait keeps the output pipes open after the
// process exits or is killed. bamCoverage forks worker processes that inherit
// them.
const waitDelay = 5 * time.Second

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// StartError reports that a command could not be launched at all, as opposed
// to running and exiting unsuccessfully.
type StartError struct {
	Binary string
	Err    error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start %s: %v", e.Binary, e.Err)
}

func (e *StartError) Unwrap() error { return e.Err }

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	cmd.WaitDelay = waitDelay

	out := newLineWriter(onOutput)
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Start(); err != nil {
		return &StartError{Binary: binary, Err: err}
	}
	err := cmd.Wait()
	out.Flush()
	if err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}

// lineWriter forwards complete lines written by a child process. Stdout and
// stderr share one writer, so writes are serialized.
type lineWriter struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	forward func(string)
}

func newLineWriter(forward func(string)) *lineWriter {
	return &lineWriter{forward: forward}
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(p)
	for {
		line, err := w.buf.ReadBytes('\n')
		if err == io.EOF {
			// Keep the partial line for the next write.
			w.buf.Write(line)
			break
		}
		w.emit(line)
	}
	return len(p), nil
}

// Flush forwards any trailing output that was not newline-terminated.
func (w *lineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineWriter) emit(line []byte) {
	text := string(bytes.TrimRight(line, "\r\n"))
	if text == "" || w.forward == nil {
		return
	}
	w.forward(text)
}
