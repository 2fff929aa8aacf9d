package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chainrun/internal/errors"
)

// Format is a plan document syntax.
type Format string

const (
	FormatYAML       Format = "yaml"
	FormatJSON       Format = "json"
	FormatJSONPretty Format = "json+p"
	FormatTOML       Format = "toml"
)

// Formats lists the accepted syntaxes.
var Formats = []Format{FormatYAML, FormatJSON, FormatJSONPretty, FormatTOML}

// ParseFormat validates a --format or --output value.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", errors.NewInvalidArgumentError(fmt.Sprintf("unknown plan format %q", s)).
		WithSuggestion("Use one of: yaml, json, json+p, toml")
}

// Marshal encodes p in the given syntax.
func Marshal(p *Plan, f Format) ([]byte, error) {
	doc := ToDocument(p)
	switch f {
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode plan as yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode plan as yaml: %w", err)
		}
		return buf.Bytes(), nil
	case FormatJSON:
		data, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode plan as json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatJSONPretty:
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode plan as json: %w", err)
		}
		return append(data, '\n'), nil
	case FormatTOML:
		data, err := toml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("encode plan as toml: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported plan format %q", f)
}

// Unmarshal decodes and validates a plan. Every failure is a codec error.
func Unmarshal(data []byte, f Format) (*Plan, error) {
	var doc Document
	var err error
	switch f {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err = dec.Decode(&doc)
		if err == io.EOF {
			err = fmt.Errorf("empty document")
		}
	case FormatJSON, FormatJSONPretty:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	case FormatTOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&doc)
	default:
		return nil, errors.NewCodecError(fmt.Sprintf("unsupported format %q", f), nil)
	}
	if err != nil {
		return nil, errors.NewCodecError("decode "+string(f), err)
	}

	if doc.Version != DocumentVersion {
		return nil, errors.NewCodecError(fmt.Sprintf("unsupported plan version %q, expected %q", doc.Version, DocumentVersion), nil)
	}

	p := FromDocument(&doc)
	if err := p.Validate(); err != nil {
		return nil, errors.NewCodecError("validate", err)
	}
	return p, nil
}

// Encode writes p to w in the given syntax.
func Encode(w io.Writer, p *Plan, f Format) error {
	data, err := Marshal(p, f)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Decode reads a whole plan document from r.
func Decode(r io.Reader, f Format) (*Plan, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Unmarshal(data, f)
}
