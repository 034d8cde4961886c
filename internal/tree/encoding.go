package tree

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avaroute/internal/matcher"
)

// Node kinds in a Document.
const (
	KindLeaf   = "leaf"
	KindParent = "parent"
)

// Document is the serializable form of a Tree.
type Document struct {
	Root     []Route           `json:"root,omitempty" yaml:"root,omitempty"`
	Segments []SegmentDocument `json:"segments" yaml:"segments"`
}

// SegmentDocument holds the root nodes for one segment count.
type SegmentDocument struct {
	Count int            `json:"count" yaml:"count"`
	Nodes []NodeDocument `json:"nodes" yaml:"nodes"`
}

// NodeDocument is the serializable form of a Node.
type NodeDocument struct {
	Kind     string          `json:"kind" yaml:"kind"`
	Matchers []EntryDocument `json:"matchers,omitempty" yaml:"matchers,omitempty"`
	Routes   []Route         `json:"routes,omitempty" yaml:"routes,omitempty"`
	Children []NodeDocument  `json:"children,omitempty" yaml:"children,omitempty"`
}

// EntryDocument is a matcher bound to a segment depth.
type EntryDocument struct {
	Depth           int `json:"depth" yaml:"depth"`
	MatcherDocument `yaml:",inline"`
}

// MatcherDocument is the serializable form of a segment matcher. Value holds
// the static value, the regex or the expression template.
type MatcherDocument struct {
	Type     string            `json:"type" yaml:"type"`
	Value    string            `json:"value,omitempty" yaml:"value,omitempty"`
	Keys     []string          `json:"keys,omitempty" yaml:"keys,omitempty"`
	Matchers []MatcherDocument `json:"matchers,omitempty" yaml:"matchers,omitempty"`
}

// Encode converts a tree to its document form. Only the matcher types of
// the matcher package can be encoded.
func Encode(t *Tree) (*Document, error) {
	doc := &Document{Segments: make([]SegmentDocument, 0, len(t.SegmentDepthNodes))}
	if t.Root != nil {
		doc.Root = t.Root.Routes
	}

	for _, count := range t.SegmentCounts() {
		nodes, err := encodeNodes(t.SegmentDepthNodes[count])
		if err != nil {
			return nil, fmt.Errorf("segment count %d: %w", count, err)
		}
		doc.Segments = append(doc.Segments, SegmentDocument{Count: count, Nodes: nodes})
	}

	return doc, nil
}

func encodeNodes(c *Collection) ([]NodeDocument, error) {
	docs := make([]NodeDocument, 0, c.Len())
	for _, n := range c.Nodes() {
		doc, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func encodeNode(n *Node) (NodeDocument, error) {
	doc := NodeDocument{}
	for _, e := range n.matchers.Entries() {
		md, err := encodeMatcher(e.Matcher)
		if err != nil {
			return NodeDocument{}, err
		}
		doc.Matchers = append(doc.Matchers, EntryDocument{Depth: e.Depth, MatcherDocument: md})
	}

	if !n.IsParent() {
		doc.Kind = KindLeaf
		doc.Routes = n.Leaf().Routes
		return doc, nil
	}

	children, err := encodeNodes(n.Children())
	if err != nil {
		return NodeDocument{}, err
	}
	doc.Kind = KindParent
	doc.Children = children
	return doc, nil
}

func encodeMatcher(m matcher.SegmentMatcher) (MatcherDocument, error) {
	switch v := m.(type) {
	case *matcher.AnyMatcher:
		return MatcherDocument{Type: matcher.TypeAny, Keys: v.ParameterKeys()}, nil
	case *matcher.StaticMatcher:
		return MatcherDocument{Type: matcher.TypeStatic, Value: v.Value()}, nil
	case *matcher.RegexMatcher:
		return MatcherDocument{Type: matcher.TypeRegex, Value: v.Regexp(), Keys: v.ParameterKeys()}, nil
	case *matcher.ExpressionMatcher:
		return MatcherDocument{Type: matcher.TypeExpression, Value: v.Template(), Keys: v.ParameterKeys()}, nil
	case *matcher.CompoundMatcher:
		doc := MatcherDocument{Type: matcher.TypeCompound}
		for _, sub := range v.Matchers() {
			sd, err := encodeMatcher(sub)
			if err != nil {
				return MatcherDocument{}, err
			}
			doc.Matchers = append(doc.Matchers, sd)
		}
		return doc, nil
	default:
		return MatcherDocument{}, fmt.Errorf("unsupported matcher type %q", m.Type())
	}
}

// Decode rebuilds a tree from its document form.
func Decode(doc *Document) (*Tree, error) {
	t := NewTree()
	if len(doc.Root) > 0 {
		t.Root = &Leaf{Routes: doc.Root}
	}

	for _, seg := range doc.Segments {
		if _, exists := t.SegmentDepthNodes[seg.Count]; exists {
			return nil, fmt.Errorf("duplicate segment count %d", seg.Count)
		}
		nodes, err := decodeNodes(seg.Nodes)
		if err != nil {
			return nil, fmt.Errorf("segment count %d: %w", seg.Count, err)
		}
		t.SegmentDepthNodes[seg.Count] = NewCollection(nodes...)
	}

	return t, nil
}

func decodeNodes(docs []NodeDocument) ([]*Node, error) {
	nodes := make([]*Node, 0, len(docs))
	for i := range docs {
		n, err := decodeNode(&docs[i])
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func decodeNode(doc *NodeDocument) (*Node, error) {
	var matchers matcher.Map
	for _, e := range doc.Matchers {
		m, err := decodeMatcher(&e.MatcherDocument)
		if err != nil {
			return nil, fmt.Errorf("depth %d: %w", e.Depth, err)
		}
		matchers = matchers.With(e.Depth, m)
	}

	switch doc.Kind {
	case KindLeaf:
		return NewLeafNode(matchers, doc.Routes...), nil
	case KindParent:
		children, err := decodeNodes(doc.Children)
		if err != nil {
			return nil, err
		}
		return NewParentNode(matchers, children...), nil
	default:
		return nil, fmt.Errorf("unknown node kind %q", doc.Kind)
	}
}

func decodeMatcher(doc *MatcherDocument) (matcher.SegmentMatcher, error) {
	switch doc.Type {
	case matcher.TypeAny:
		return matcher.NewAny(doc.Keys...), nil
	case matcher.TypeStatic:
		return matcher.NewStatic(doc.Value), nil
	case matcher.TypeRegex:
		return matcher.NewRegex(doc.Value, doc.Keys...)
	case matcher.TypeExpression:
		return matcher.NewExpression(doc.Value, doc.Keys...)
	case matcher.TypeCompound:
		if len(doc.Matchers) < 2 {
			return nil, fmt.Errorf("compound matcher requires at least two sub-matchers, got %d", len(doc.Matchers))
		}
		subs := make([]matcher.SegmentMatcher, 0, len(doc.Matchers))
		for i := range doc.Matchers {
			sub, err := decodeMatcher(&doc.Matchers[i])
			if err != nil {
				return nil, err
			}
			subs = append(subs, sub)
		}
		return matcher.NewCompound(subs...), nil
	default:
		return nil, fmt.Errorf("unknown matcher type %q", doc.Type)
	}
}

// MarshalJSON encodes the tree as JSON.
func MarshalJSON(t *Tree) ([]byte, error) {
	doc, err := Encode(t)
	if err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a tree from JSON.
func UnmarshalJSON(data []byte) (*Tree, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode tree document: %w", err)
	}
	return Decode(&doc)
}

// MarshalYAML encodes the tree as YAML.
func MarshalYAML(t *Tree) ([]byte, error) {
	doc, err := Encode(t)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}
