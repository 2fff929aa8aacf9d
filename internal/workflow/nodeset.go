package workflow

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/chainrun/internal/scope"
)

// NodeSet is an ordered set of nodes keyed by name.
type NodeSet struct {
	nodes []*Node
	index map[string]int
}

// NewNodeSet builds a set from nodes, keeping their order.
func NewNodeSet(nodes ...*Node) (NodeSet, error) {
	var s NodeSet
	for _, n := range nodes {
		if err := s.Add(n); err != nil {
			return NodeSet{}, err
		}
	}
	return s, nil
}

// Add appends n. Names must be unique.
func (s *NodeSet) Add(n *Node) error {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if _, dup := s.index[n.Name]; dup {
		return fmt.Errorf("node %q declared more than once", n.Name)
	}
	s.index[n.Name] = len(s.nodes)
	s.nodes = append(s.nodes, n)
	return nil
}

// Len returns the number of nodes.
func (s NodeSet) Len() int { return len(s.nodes) }

// At returns the i-th node in declaration order.
func (s NodeSet) At(i int) *Node { return s.nodes[i] }

// Index returns the declaration position of name.
func (s NodeSet) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Get looks a node up by name.
func (s NodeSet) Get(name string) (*Node, bool) {
	i, ok := s.index[name]
	if !ok {
		return nil, false
	}
	return s.nodes[i], true
}

// All returns the nodes in declaration order. The slice must not be modified.
func (s NodeSet) All() []*Node { return s.nodes }

// Names returns the node names in declaration order.
func (s NodeSet) Names() []string {
	out := make([]string, len(s.nodes))
	for i, n := range s.nodes {
		out[i] = n.Name
	}
	return out
}

// UnmarshalYAML decodes a mapping of name to node, keeping document order.
func (s *NodeSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: nodes must be a mapping of name to node", value.Line)
	}

	*s = NodeSet{}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key, body := value.Content[i], value.Content[i+1]
		if key.Value == "<<" {
			return fmt.Errorf("line %d: merge keys are not supported directly under nodes", key.Line)
		}
		n := &Node{}
		if err := decodeNodeStrict(body, n); err != nil {
			return fmt.Errorf("node %s: %w", key.Value, err)
		}
		n.Name = key.Value
		if err := s.Add(n); err != nil {
			return fmt.Errorf("line %d: %w", key.Line, err)
		}
	}
	return nil
}

// MarshalYAML encodes the set as a mapping in declaration order.
func (s NodeSet) MarshalYAML() (interface{}, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, n := range s.nodes {
		var body yaml.Node
		if err := body.Encode(n); err != nil {
			return nil, err
		}
		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: n.Name}, &body)
	}
	return out, nil
}

// UnmarshalYAML accepts both the keyed form (dense/sparse) and a bare list of
// dimensions, which is shorthand for a dense matrix.
func (m *Matrix) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.AliasNode {
		value = value.Alias
	}
	if value.Kind == yaml.SequenceNode {
		var dims [][]scope.Fragment
		if err := decodeNodeStrict(value, &dims); err != nil {
			return err
		}
		*m = Matrix{Dense: &Dense{Dimensions: dims}}
		return nil
	}

	type plain Matrix
	var p plain
	if err := decodeNodeStrict(value, &p); err != nil {
		return err
	}
	*m = Matrix(p)
	return nil
}
