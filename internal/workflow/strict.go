package workflow

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"
)

// decodeStrict decodes data into v, rejecting keys v does not declare.
// An empty document leaves v untouched.
func decodeStrict(data []byte, v interface{}) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// decodeNodeStrict is decodeStrict for a node handed to an UnmarshalYAML
// method. yaml.Node.Decode ignores KnownFields, so the node is re-encoded
// with its aliases expanded and decoded again.
func decodeNodeStrict(n *yaml.Node, v interface{}) error {
	data, err := yaml.Marshal(expandAliases(n))
	if err != nil {
		return err
	}
	return decodeStrict(data, v)
}

func expandAliases(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	if n.Kind == yaml.AliasNode && n.Alias != nil {
		return expandAliases(n.Alias)
	}
	out := *n
	out.Anchor = ""
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = expandAliases(c)
		}
	}
	return &out
}
