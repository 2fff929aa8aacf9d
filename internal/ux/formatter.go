package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chainrun/internal/errors"
)

// Output formats accepted by describe and list.
const (
	FormatText       = "text"
	FormatYAML       = "yaml"
	FormatJSON       = "json"
	FormatJSONPretty = "json+p"
	FormatTOML       = "toml"
)

// Formats lists every supported output format.
var Formats = []string{FormatText, FormatYAML, FormatJSON, FormatJSONPretty, FormatTOML}

// Formatter defines the interface for output formatters.
// This enables consistent output formatting across all commands.
type Formatter interface {
	// Format writes the given data to the output writer
	Format(data interface{}) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// Writer is where output is written (defaults to os.Stdout)
	Writer io.Writer
	// NoColor disables colored output for text formatters
	NoColor bool
}

// NewFormatter creates a formatter based on the format string
func NewFormatter(format string, opts *FormatterOptions) (Formatter, error) {
	if opts == nil {
		opts = &FormatterOptions{Writer: os.Stdout}
	}
	if opts.Writer == nil {
		opts.Writer = os.Stdout
	}

	switch format {
	case FormatJSON:
		return &JSONFormatter{opts: opts}, nil
	case FormatJSONPretty:
		return &JSONFormatter{opts: opts, pretty: true}, nil
	case FormatYAML:
		return &YAMLFormatter{opts: opts}, nil
	case FormatTOML:
		return &TOMLFormatter{opts: opts}, nil
	case FormatText, "":
		return &TextFormatter{opts: opts, styles: NewStyles(opts.Writer, opts.NoColor)}, nil
	default:
		return nil, errors.NewInvalidArgumentError(
			fmt.Sprintf("unknown output format: %s (supported: text, yaml, json, json+p, toml)", format))
	}
}

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	opts   *FormatterOptions
	pretty bool
}

// Format writes data as JSON
func (f *JSONFormatter) Format(data interface{}) error {
	encoder := json.NewEncoder(f.opts.Writer)
	if f.pretty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as YAML
func (f *YAMLFormatter) Format(data interface{}) error {
	encoder := yaml.NewEncoder(f.opts.Writer)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(data)
}

// TOMLFormatter formats output as TOML. TOML documents must be tables,
// so data has to be a struct or a map.
type TOMLFormatter struct {
	opts *FormatterOptions
}

// Format writes data as TOML
func (f *TOMLFormatter) Format(data interface{}) error {
	return toml.NewEncoder(f.opts.Writer).Encode(data)
}

// TextRenderer is implemented by views that know how to draw themselves.
type TextRenderer interface {
	RenderText(s Styles) string
}

// TextFormatter formats output as human-readable text
type TextFormatter struct {
	opts   *FormatterOptions
	styles Styles
}

// Format writes data as formatted text.
// Data must be a string, a TextRenderer or a fmt.Stringer.
func (f *TextFormatter) Format(data interface{}) error {
	var out string
	switch v := data.(type) {
	case string:
		out = v
	case TextRenderer:
		out = v.RenderText(f.styles)
	case fmt.Stringer:
		out = v.String()
	default:
		return fmt.Errorf("text formatter cannot render %T", data)
	}
	_, err := fmt.Fprintln(f.opts.Writer, out)
	return err
}

// Compile-time verification that formatters implement Formatter
var _ Formatter = (*JSONFormatter)(nil)
var _ Formatter = (*YAMLFormatter)(nil)
var _ Formatter = (*TOMLFormatter)(nil)
var _ Formatter = (*TextFormatter)(nil)
