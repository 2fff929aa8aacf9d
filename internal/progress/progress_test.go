package progress

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestStreamWriter(t *testing.T) {
	buf := &bytes.Buffer{}
	sw := NewStreamWriter(buf, "[TEST] ")

	// Write a complete line
	n, err := sw.Write([]byte("Hello, World!\n"))
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if n != 14 {
		t.Errorf("Expected to write 14 bytes, wrote %d", n)
	}
	if got := buf.String(); got != "[TEST] Hello, World!\n" {
		t.Errorf("Expected prefixed output, got: %q", got)
	}

	// Write partial line
	buf.Reset()
	sw.Write([]byte("Partial"))

	if buf.Len() > 0 {
		t.Error("Partial line should not be written")
	}

	sw.Write([]byte(" line\nnext"))

	if got := buf.String(); got != "[TEST] Partial line\n" {
		t.Errorf("Expected complete prefixed line, got: %q", got)
	}
}

func TestStreamWriterFlush(t *testing.T) {
	buf := &bytes.Buffer{}
	sw := NewStreamWriter(buf, "==> ")

	sw.Write([]byte("Incomplete"))

	if err := sw.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if got := buf.String(); got != "==> Incomplete\n" {
		t.Errorf("Expected flushed output, got: %q", got)
	}

	// Second flush should be a no-op
	buf.Reset()
	if err := sw.Flush(); err != nil {
		t.Fatalf("Second flush failed: %v", err)
	}
	if buf.Len() > 0 {
		t.Error("Second flush should write nothing")
	}
}

func TestStreamWriterMultipleLines(t *testing.T) {
	buf := &bytes.Buffer{}
	sw := NewStreamWriter(buf, "")

	sw.Write([]byte("Line 1\nLine 2\nLine 3\n"))

	if got := buf.String(); got != "Line 1\nLine 2\nLine 3\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

// countingWriter records every Write call separately.
type countingWriter struct {
	calls []string
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.calls = append(c.calls, string(p))
	return len(p), nil
}

func TestStreamWriterLinesAreAtomic(t *testing.T) {
	cw := &countingWriter{}
	shared := NewSyncWriter(cw)

	var wg sync.WaitGroup
	writers := 8
	lines := 50
	wg.Add(writers)
	for w := 0; w < writers; w++ {
		go func(w int) {
			defer wg.Done()
			sw := NewStreamWriter(shared, fmt.Sprintf("[%d] ", w))
			for i := 0; i < lines; i++ {
				// split every line across two writes
				sw.Write([]byte("line "))
				sw.Write([]byte(fmt.Sprintf("%d\n", i)))
			}
		}(w)
	}
	wg.Wait()

	if len(cw.calls) != writers*lines {
		t.Fatalf("expected %d writes, got %d", writers*lines, len(cw.calls))
	}
	for _, call := range cw.calls {
		if !strings.HasPrefix(call, "[") || !strings.HasSuffix(call, "\n") || strings.Count(call, "\n") != 1 {
			t.Errorf("write is not a single prefixed line: %q", call)
		}
	}
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestStreamWriterPropagatesErrors(t *testing.T) {
	sw := NewStreamWriter(failingWriter{}, "")
	if _, err := sw.Write([]byte("x\n")); err == nil {
		t.Error("expected write error")
	}
}

func TestIndicatorUpdate(t *testing.T) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf})

	ind.Update("build[0,1]", StatusRunning, nil)
	ind.Update("build[0,1]", StatusCompleted, nil)
	ind.Update("test", StatusFailed, errors.New("exit 2"))
	ind.Update("deploy", StatusSkipped, nil)

	output := buf.String()
	for _, want := range []string{
		"▶ build[0,1] [running]",
		"✓ build[0,1] [completed]",
		"✗ test [failed] - exit 2",
		"⊘ deploy [skipped]",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q\nGot: %s", want, output)
		}
	}
}

func TestPrintSummary(t *testing.T) {
	buf := &bytes.Buffer{}
	ind := NewIndicator(Config{Writer: buf})

	ind.PrintSummary(Summary{
		RunID:     "run-1",
		Total:     4,
		Succeeded: 2,
		Failed:    1,
		Skipped:   1,
		Duration:  65 * time.Second,
		Failures:  []string{"test: task 0 failed with exit code 2"},
	})

	output := buf.String()
	for _, want := range []string{
		"Execution Summary",
		"run-1",
		"2 ✓",
		"1 ✗",
		"1 ⊘",
		"50.0%",
		"1m5s",
		"Failed Invocations:",
		"test: task 0 failed with exit code 2",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q\nGot: %s", want, output)
		}
	}
}

func TestSuccessRate(t *testing.T) {
	if got := (Summary{}).SuccessRate(); got != 100 {
		t.Errorf("empty run should be 100%%, got %v", got)
	}
	if got := (Summary{Total: 4, Succeeded: 3}).SuccessRate(); got != 75 {
		t.Errorf("expected 75, got %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{1500 * time.Microsecond, "2ms"},
		{5 * time.Second, "5s"},
		{65 * time.Second, "1m5s"},
		{3665 * time.Second, "1h1m5s"},
		{3600 * time.Second, "1h0m0s"},
		{90 * time.Second, "1m30s"},
	}

	for _, tt := range tests {
		result := formatDuration(tt.duration)
		if result != tt.expected {
			t.Errorf("formatDuration(%v) = %s, expected %s", tt.duration, result, tt.expected)
		}
	}
}
