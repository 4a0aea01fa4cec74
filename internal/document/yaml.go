package document

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const mergeKey = "<<"

// Parse decodes a YAML document whose root is a mapping.
// Empty input and an explicit null root decode to an empty map.
func Parse(data []byte, name string) (*Map, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &ParseError{File: name, Err: err}
	}

	if root.Kind == 0 || len(root.Content) == 0 {
		return NewMap(), nil
	}

	node := root.Content[0]
	if node.Kind == yaml.ScalarNode && node.ShortTag() == "!!null" {
		return NewMap(), nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, &ParseError{File: name, Err: fmt.Errorf("root must be a mapping, got %s", nodeKindName(node.Kind))}
	}

	v, err := fromNode(node)
	if err != nil {
		return nil, &ParseError{File: name, Err: err}
	}
	return v.m, nil
}

// Marshal encodes m as YAML with keys sorted at every level.
func Marshal(m *Map) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)

	if err := enc.Encode(toNode(FromMap(m))); err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to flush YAML encoder: %w", err)
	}
	return buf.Bytes(), nil
}

func fromNode(n *yaml.Node) (*Value, error) {
	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, fmt.Errorf("line %d: dangling alias", n.Line)
		}
		return fromNode(n.Alias)
	case yaml.ScalarNode:
		return scalarFromNode(n), nil
	case yaml.SequenceNode:
		items := make([]*Value, 0, len(n.Content))
		for _, c := range n.Content {
			item, err := fromNode(c)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return Sequence(items...), nil
	case yaml.MappingNode:
		return mapFromNode(n)
	default:
		return nil, fmt.Errorf("line %d: unsupported node %s", n.Line, nodeKindName(n.Kind))
	}
}

func mapFromNode(n *yaml.Node) (*Value, error) {
	m := NewMap()
	var inherited []*Map

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valueNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: map keys must be scalars", keyNode.Line)
		}

		if keyNode.Value == mergeKey && keyNode.ShortTag() == "!!merge" {
			maps, err := mergeSources(valueNode)
			if err != nil {
				return nil, err
			}
			inherited = append(inherited, maps...)
			continue
		}

		v, err := fromNode(valueNode)
		if err != nil {
			return nil, err
		}
		m.Set(keyNode.Value, v)
	}

	if len(inherited) == 0 {
		return FromMap(m), nil
	}

	// explicit keys override merged ones
	base := NewMap()
	for _, src := range inherited {
		for _, k := range src.keys {
			if !base.Has(k) {
				base.Set(k, src.values[k].Clone())
			}
		}
	}
	for _, k := range m.keys {
		base.Set(k, m.values[k])
	}
	return FromMap(base), nil
}

func mergeSources(n *yaml.Node) ([]*Map, error) {
	var nodes []*yaml.Node
	if n.Kind == yaml.SequenceNode {
		nodes = n.Content
	} else {
		nodes = []*yaml.Node{n}
	}

	out := make([]*Map, 0, len(nodes))
	for _, c := range nodes {
		v, err := fromNode(c)
		if err != nil {
			return nil, err
		}
		m, err := v.AsMap()
		if err != nil {
			return nil, fmt.Errorf("line %d: merge source: %w", c.Line, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func scalarFromNode(n *yaml.Node) *Value {
	switch n.ShortTag() {
	case "!!null":
		return Null()
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return Bool(b)
		}
	case "!!int":
		return Scalar(KindInt, n.Value)
	case "!!float":
		return Scalar(KindFloat, n.Value)
	}
	return String(n.Value)
}

func toNode(v *Value) *yaml.Node {
	switch v.Kind() {
	case KindMap:
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range v.m.SortedKeys() {
			child, _ := v.m.Get(k)
			n.Content = append(n.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				toNode(child),
			)
		}
		return n
	case KindSequence:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range v.items {
			n.Content = append(n.Content, toNode(item))
		}
		return n
	case KindNull:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	case KindBool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: v.text}
	case KindInt:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: v.text}
	case KindFloat:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: v.text}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v.text}
	}
}

func nodeKindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}

// IsParseError reports whether err wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
