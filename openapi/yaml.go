package openapi

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Map is a decoded mapping that keeps document key order.
type Map = orderedmap.OrderedMap[string, any]

func newMap() *Map { return orderedmap.New[string, any]() }

// DuplicateKeyError reports a key repeated within one YAML mapping, with
// the positions of both occurrences.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("openapi: duplicate key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// Reader decodes a multi-document YAML (or JSON) stream into ordered
// values: *Map for mappings, []any for sequences and plain scalars.
// Duplicate mapping keys are errors.
type Reader struct {
	dec *yaml.Decoder
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: yaml.NewDecoder(r)}
}

// Next returns the next document, or io.EOF when the stream is exhausted.
// An empty document yields nil.
func (r *Reader) Next() (any, error) {
	var doc yaml.Node
	if err := r.dec.Decode(&doc); err != nil {
		return nil, err
	}
	return fromYAML(&doc)
}

// ReadAll returns every remaining document.
func (r *Reader) ReadAll() ([]any, error) {
	var out []any
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func fromYAML(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return fromYAML(n.Content[0])
	case yaml.AliasNode:
		return fromYAML(n.Alias)
	case yaml.MappingNode:
		m := newMap()
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if pos, dup := first[k.Value]; dup {
				return nil, &DuplicateKeyError{Key: k.Value, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[k.Value] = [2]int{k.Line, k.Column}
			v, err := fromYAML(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			m.Set(k.Value, v)
		}
		return m, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := fromYAML(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.ScalarNode:
		return scalar(n), nil
	}
	return nil, nil
}

func scalar(n *yaml.Node) any {
	switch n.ShortTag() {
	case "!!null":
		return nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err == nil {
			return b
		}
	case "!!int":
		if i, err := strconv.ParseInt(n.Value, 0, 64); err == nil {
			return i
		}
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	case "!!float":
		var f float64
		if err := n.Decode(&f); err == nil {
			return f
		}
	}
	return n.Value
}

// ordered converts decoded JSON-like values (map[string]any, map[any]any,
// []any) into the ordered form. Plain maps have no order, so their keys are
// sorted.
func ordered(v any) any {
	switch t := v.(type) {
	case *Map:
		return t
	case map[string]any:
		m := newMap()
		for _, k := range slices.Sorted(maps.Keys(t)) {
			m.Set(k, ordered(t[k]))
		}
		return m
	case map[any]any:
		plainKeys := make(map[string]any, len(t))
		for k, vv := range t {
			if ks, ok := k.(string); ok {
				plainKeys[ks] = vv
			}
		}
		return ordered(plainKeys)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = ordered(t[i])
		}
		return out
	}
	return v
}

// plain converts ordered values back into map[string]any trees.
func plain(v any) any {
	switch t := v.(type) {
	case *Map:
		out := make(map[string]any, t.Len())
		for p := t.Oldest(); p != nil; p = p.Next() {
			out[p.Key] = plain(p.Value)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plain(t[i])
		}
		return out
	}
	return v
}
