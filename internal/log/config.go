package log

import (
	"io"
	"os"
)

// Format represents the output format for logs
type Format int

const (
	// FormatJSON outputs logs in JSON format
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format
	FormatText
)

// String returns the string representation of the format
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	default:
		return "json"
	}
}

// ParseFormat parses a string into a Format
func ParseFormat(s string) Format {
	switch s {
	case "text", "TEXT", "console":
		return FormatText
	default:
		return FormatJSON
	}
}

// Output represents where logs should be written
type Output struct {
	writer io.Writer
}

// Writer returns the underlying io.Writer
func (o Output) Writer() io.Writer {
	if o.writer == nil {
		return os.Stderr
	}
	return o.writer
}

// NewOutput creates an Output from an io.Writer
func NewOutput(w io.Writer) Output {
	return Output{writer: w}
}

// OutputStderr creates an Output that writes to stderr.
// Stdout is reserved for plan documents and command output.
func OutputStderr() Output {
	return Output{writer: os.Stderr}
}

// Config holds configuration for the logger
type Config struct {
	// Level is the minimum log level to output
	Level Level

	// Format is the output format (JSON or Text)
	Format Format

	// Output is where logs should be written
	Output Output

	// AddSource includes source file and line number in logs
	AddSource bool

	// ServiceName is attached to every record as "service"
	ServiceName string
}

// DefaultConfig returns a sensible default configuration.
// Logs at INFO level in text format to stderr.
func DefaultConfig() Config {
	return Config{
		Level:       LevelInfo,
		Format:      FormatText,
		Output:      OutputStderr(),
		ServiceName: "chainrun",
	}
}

// ConfigFrom builds a Config from the string forms accepted on the command line.
func ConfigFrom(level, format string, w io.Writer) Config {
	cfg := DefaultConfig()
	cfg.Level = ParseLevel(level)
	cfg.Format = ParseFormat(format)
	cfg.AddSource = cfg.Level == LevelDebug
	if w != nil {
		cfg.Output = NewOutput(w)
	}
	return cfg
}
