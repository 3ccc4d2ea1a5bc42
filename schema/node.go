// Package schema defines the canonical schema model every dialect converts
// through. Nodes are plain values: construct them with the functions in this
// package, which enforce structural invariants, and treat them as immutable
// once built.
package schema

import (
	"github.com/reoring/typebridge/internal/pattern"
)

// Codec is a decode or encode function of a transform node.
type Codec func(any) (any, error)

// Node is a canonical schema.
type Node struct {
	Kind Kind
	Options

	// Items holds tuple elements, union variants, intersect parts and
	// function/constructor parameters.
	Items []*Node
	// Item is the array element, promise result, record value, or the inner
	// node of optional, readonly and transform.
	Item *Node
	// Properties are the declared object properties in declaration order.
	Properties []Property
	// AdditionalProperties governs undeclared object keys: nil allows any
	// value, a never node rejects them, anything else constrains them.
	AdditionalProperties *Node
	// KeyPattern is the record key pattern.
	KeyPattern string
	// Literal is the value of a literal node.
	Literal any
	// Returns is the function/constructor result.
	Returns *Node
	// Flags are the regexp flags of a regexp node.
	Flags string
	// Ref is the referenced schema ID.
	Ref string

	Decode Codec
	Encode Codec

	Opaque *Opaque
}

// Property is one object property edge.
type Property struct {
	Key      string
	Schema   *Node
	Optional bool
	Readonly bool
}

// Opaque carries a schema of another dialect unchanged. Check, when set,
// validates values with the dialect's own engine.
type Opaque struct {
	Dialect string
	Value   any
	Check   func(any) bool
}

func node(k Kind, opts []Options) *Node {
	n := &Node{Kind: k}
	for _, o := range opts {
		n.Options = n.Options.Merge(o)
	}
	return n
}

func Any(opts ...Options) *Node       { return node(KindAny, opts) }
func Unknown(opts ...Options) *Node   { return node(KindUnknown, opts) }
func Never(opts ...Options) *Node     { return node(KindNever, opts) }
func Void(opts ...Options) *Node      { return node(KindVoid, opts) }
func Null(opts ...Options) *Node      { return node(KindNull, opts) }
func Undefined(opts ...Options) *Node { return node(KindUndefined, opts) }
func Boolean(opts ...Options) *Node   { return node(KindBoolean, opts) }
func Number(opts ...Options) *Node    { return node(KindNumber, opts) }
func Integer(opts ...Options) *Node   { return node(KindInteger, opts) }
func BigInt(opts ...Options) *Node    { return node(KindBigInt, opts) }
func String(opts ...Options) *Node    { return node(KindString, opts) }
func Symbol(opts ...Options) *Node    { return node(KindSymbol, opts) }
func Date(opts ...Options) *Node      { return node(KindDate, opts) }

// Literal accepts exactly v. Numeric literals are normalised by
// LiteralValue.
func Literal(v any, opts ...Options) *Node {
	n := node(KindLiteral, opts)
	n.Literal = LiteralValue(v)
	return n
}

// Array is a homogeneous list of item.
func Array(item *Node, opts ...Options) *Node {
	n := node(KindArray, opts)
	n.Item = orNever(item)
	return n
}

// Tuple is a fixed-length list. Its item bounds always equal len(items).
func Tuple(items []*Node, opts ...Options) *Node {
	n := node(KindTuple, opts)
	n.Items = nonNil(items)
	n.MinItems, n.MaxItems = Int(len(items)), Int(len(items))
	return n
}

// P builds a property edge, folding optional and readonly wrappers on s.
func P(key string, s *Node) Property {
	p := Property{Key: key}
	p.Schema, p.Optional, p.Readonly = s.Unwrap()
	return p
}

// Object declares properties in order. Wrapper kinds on property schemas are
// folded onto the edge; a later duplicate key replaces an earlier one.
func Object(props []Property, opts ...Options) *Node {
	n := node(KindObject, opts)
	n.Properties = make([]Property, 0, len(props))
	idx := make(map[string]int, len(props))
	for _, p := range props {
		inner, opt, ro := p.Schema.Unwrap()
		p.Schema, p.Optional, p.Readonly = inner, p.Optional || opt, p.Readonly || ro
		if i, dup := idx[p.Key]; dup {
			n.Properties[i] = p
			continue
		}
		idx[p.Key] = len(n.Properties)
		n.Properties = append(n.Properties, p)
	}
	return n
}

// WithAdditional returns a copy of the object n governing undeclared keys
// with ap. See Node.AdditionalProperties.
func WithAdditional(n *Node, ap *Node) *Node {
	c := n.Clone()
	c.AdditionalProperties = ap
	return c
}

// Strict returns a copy of the object n that rejects undeclared keys.
func Strict(n *Node) *Node { return WithAdditional(n, Never()) }

// Record maps keys matching keyPattern to value. An empty or invalid pattern
// yields the any-key pattern and never respectively.
func Record(keyPattern string, value *Node, opts ...Options) *Node {
	if keyPattern == "" {
		keyPattern = pattern.Any
	}
	if !pattern.Valid(keyPattern) {
		return Never(opts...)
	}
	n := node(KindRecord, opts)
	n.KeyPattern = keyPattern
	n.Item = orNever(value)
	return n
}

// Union accepts values matching any variant. No variants is never; a single
// variant is returned as is.
func Union(variants []*Node, opts ...Options) *Node {
	switch len(variants) {
	case 0:
		return Never(opts...)
	case 1:
		return orNever(variants[0]).With(opts...)
	}
	n := node(KindUnion, opts)
	n.Items = nonNil(variants)
	return n
}

// Intersect accepts values matching every part. No parts is never; a single
// part is returned as is.
func Intersect(parts []*Node, opts ...Options) *Node {
	switch len(parts) {
	case 0:
		return Never(opts...)
	case 1:
		return orNever(parts[0]).With(opts...)
	}
	n := node(KindIntersect, opts)
	n.Items = nonNil(parts)
	return n
}

func Promise(item *Node, opts ...Options) *Node {
	n := node(KindPromise, opts)
	n.Item = orNever(item)
	return n
}

// RegExp matches strings against pattern with the given flags.
func RegExp(src, flags string, opts ...Options) *Node {
	n := node(KindRegExp, opts)
	n.Pattern, n.Flags = src, flags
	return n
}

func Function(params []*Node, returns *Node, opts ...Options) *Node {
	n := node(KindFunction, opts)
	n.Items, n.Returns = nonNil(params), orNever(returns)
	return n
}

func Constructor(params []*Node, returns *Node, opts ...Options) *Node {
	n := node(KindConstructor, opts)
	n.Items, n.Returns = nonNil(params), orNever(returns)
	return n
}

// Transform validates against input and converts with decode/encode. Either
// codec may be nil, meaning identity.
func Transform(input *Node, decode, encode Codec, opts ...Options) *Node {
	n := node(KindTransform, opts)
	n.Item, n.Decode, n.Encode = orNever(input), decode, encode
	return n
}

// Ref refers to the schema whose ID is id.
func Ref(id string, opts ...Options) *Node {
	n := node(KindRef, opts)
	n.Ref = id
	return n
}

// Optional marks n as optional. Wrapping is idempotent.
func Optional(n *Node) *Node {
	n = orNever(n)
	if n.Kind == KindOptional {
		return n
	}
	return &Node{Kind: KindOptional, Item: n}
}

// Readonly marks n as readonly. Wrapping is idempotent.
func Readonly(n *Node) *Node {
	n = orNever(n)
	if n.Kind == KindReadonly {
		return n
	}
	return &Node{Kind: KindReadonly, Item: n}
}

// NewOpaque wraps a dialect-native schema.
func NewOpaque(dialect string, value any, check func(any) bool, opts ...Options) *Node {
	n := node(KindOpaque, opts)
	n.Opaque = &Opaque{Dialect: dialect, Value: value, Check: check}
	return n
}

// Unwrap peels optional and readonly wrappers, reporting which were present.
func (n *Node) Unwrap() (inner *Node, optional, readonly bool) {
	inner = orNever(n)
	for {
		switch inner.Kind {
		case KindOptional:
			optional = true
		case KindReadonly:
			readonly = true
		default:
			return inner, optional, readonly
		}
		inner = orNever(inner.Item)
	}
}

// With returns a copy of n with opts merged over its options.
func (n *Node) With(opts ...Options) *Node {
	if len(opts) == 0 {
		return n
	}
	c := n.Clone()
	for _, o := range opts {
		c.Options = c.Options.Merge(o)
	}
	return c
}

// Clone returns a shallow copy of n with its own slices.
func (n *Node) Clone() *Node {
	c := *n
	c.Items = append([]*Node(nil), n.Items...)
	c.Properties = append([]Property(nil), n.Properties...)
	return &c
}

// Property looks up a declared property.
func (n *Node) Property(key string) (Property, bool) {
	for _, p := range n.Properties {
		if p.Key == key {
			return p, true
		}
	}
	return Property{}, false
}

// Keys returns declared property keys in order.
func (n *Node) Keys() []string {
	out := make([]string, len(n.Properties))
	for i, p := range n.Properties {
		out[i] = p.Key
	}
	return out
}

// Required returns the keys of non-optional properties in order.
func (n *Node) Required() []string {
	var out []string
	for _, p := range n.Properties {
		if !p.Optional {
			out = append(out, p.Key)
		}
	}
	return out
}

// AcceptsUndefined reports whether an absent value satisfies n.
func (n *Node) AcceptsUndefined() bool {
	switch n.Kind {
	case KindAny, KindUnknown, KindUndefined, KindVoid, KindOptional:
		return true
	case KindReadonly, KindTransform:
		return n.Item.AcceptsUndefined()
	case KindUnion:
		for _, v := range n.Items {
			if v.AcceptsUndefined() {
				return true
			}
		}
	}
	return false
}

func orNever(n *Node) *Node {
	if n == nil {
		return Never()
	}
	return n
}

func nonNil(ns []*Node) []*Node {
	out := make([]*Node, len(ns))
	for i, n := range ns {
		out[i] = orNever(n)
	}
	return out
}
