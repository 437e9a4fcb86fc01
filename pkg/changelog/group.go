package changelog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ErrInvalidIndex reports a grouping tree whose shape disagrees with its
// fields. It signals a defect, never bad user input.
var ErrInvalidIndex = errors.New("inconsistent grouping tree")

// Node is either an *Index or a *Leaf.
type Node interface {
	node()
}

// Index maps keys to child nodes and remembers the order in which keys were
// first seen.
type Index struct {
	keys     []string
	children map[string]Node
}

// Leaf holds the entries that share every key on the path to it.
type Leaf struct {
	entries []Entry
}

func (*Index) node() {}
func (*Leaf) node()  {}

func newIndex() *Index {
	return &Index{children: make(map[string]Node)}
}

// Keys returns the keys in first-insertion order.
func (ix *Index) Keys() []string {
	return slices.Clone(ix.keys)
}

// Child returns the node stored under key.
func (ix *Index) Child(key string) (Node, bool) {
	child, ok := ix.children[key]

	return child, ok
}

// Len returns the number of keys.
func (ix *Index) Len() int {
	return len(ix.keys)
}

func (ix *Index) add(key string, child Node) {
	ix.keys = append(ix.keys, key)
	ix.children[key] = child
}

// Entries returns the entries in insertion order.
func (l *Leaf) Entries() []Entry {
	return slices.Clone(l.entries)
}

// Len returns the number of entries.
func (l *Leaf) Len() int {
	return len(l.entries)
}

// Grouper buckets entries into a tree whose depth is the number of fields.
type Grouper struct {
	fields []Field
	root   Node
	count  int
}

// NewGrouper returns a grouper for the given ordered fields. With no fields
// every entry lands in a single flat list.
func NewGrouper(fields ...Field) *Grouper {
	var root Node = newIndex()
	if len(fields) == 0 {
		root = &Leaf{}
	}

	return &Grouper{fields: slices.Clone(fields), root: root}
}

// Fields returns the grouping fields.
func (g *Grouper) Fields() []Field {
	return slices.Clone(g.fields)
}

// Root returns the top of the tree.
func (g *Grouper) Root() Node {
	return g.root
}

// Count returns the number of inserted entries.
func (g *Grouper) Count() int {
	return g.count
}

// Insert files e under the keys its fields extract.
func (g *Grouper) Insert(e Entry) error {
	node := g.root

	for depth, field := range g.fields {
		index, ok := node.(*Index)
		if !ok {
			return fmt.Errorf("%w: expected an index at depth %d for field %s", ErrInvalidIndex, depth, field)
		}

		key := field.Key(e)

		child, found := index.children[key]
		if !found {
			child = newIndex()
			if depth == len(g.fields)-1 {
				child = &Leaf{}
			}

			index.add(key, child)
		}

		node = child
	}

	leaf, ok := node.(*Leaf)
	if !ok {
		return fmt.Errorf("%w: expected a leaf at depth %d", ErrInvalidIndex, len(g.fields))
	}

	leaf.entries = append(leaf.entries, e)
	g.count++

	return nil
}

// InsertAll inserts entries in order, stopping at the first failure.
func (g *Grouper) InsertAll(entries []Entry) error {
	for _, e := range entries {
		err := g.Insert(e)
		if err != nil {
			return err
		}
	}

	return nil
}

// MarshalYAML writes the mapping in first-insertion order.
func (ix *Index) MarshalYAML() (any, error) {
	out := &yaml.Node{Kind: yaml.MappingNode}

	for _, key := range ix.keys {
		value := &yaml.Node{}

		err := value.Encode(ix.children[key])
		if err != nil {
			return nil, fmt.Errorf("encode group %q: %w", key, err)
		}

		out.Content = append(out.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}, value)
	}

	return out, nil
}

// MarshalYAML writes the entries as a sequence.
func (l *Leaf) MarshalYAML() (any, error) {
	if l.entries == nil {
		return []Entry{}, nil
	}

	return l.entries, nil
}

// MarshalJSON writes the object members in first-insertion order.
func (ix *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range ix.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}

		encodedChild, err := json.Marshal(ix.children[key])
		if err != nil {
			return nil, fmt.Errorf("encode group %q: %w", key, err)
		}

		buf.Write(encodedKey)
		buf.WriteByte(':')
		buf.Write(encodedChild)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// MarshalJSON writes the entries as an array.
func (l *Leaf) MarshalJSON() ([]byte, error) {
	if l.entries == nil {
		return []byte("[]"), nil
	}

	return json.Marshal(l.entries)
}
