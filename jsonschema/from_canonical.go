package jsonschema

import (
	"math"

	ijs "github.com/invopop/jsonschema"

	"github.com/reoring/typebridge/internal/dispatch"
	s "github.com/reoring/typebridge/schema"
)

// Draft is the $schema written by Document.
const Draft = "https://json-schema.org/draft/2020-12/schema"

type fromArg struct {
	n   *s.Node
	cfg *config
}

func (a fromArg) sub(n *s.Node) *ijs.Schema { return fromTable.Convert(fromArg{n: n, cfg: a.cfg}) }

var fromTable *dispatch.Table[fromArg, *ijs.Schema]

func kindIs(kinds ...s.Kind) func(fromArg) bool {
	return func(a fromArg) bool {
		for _, k := range kinds {
			if a.n.Kind == k {
				return true
			}
		}
		return false
	}
}

func init() {
	fromTable = dispatch.New(func(fromArg) *ijs.Schema { return impossible() },
		dispatch.Case[fromArg, *ijs.Schema]{Name: "nil", Match: func(a fromArg) bool { return a.n == nil }, Convert: func(fromArg) *ijs.Schema { return impossible() }},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "optional", Match: kindIs(s.KindOptional), Convert: fromOptional},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "readonly", Match: kindIs(s.KindReadonly), Convert: fromReadonly},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "opaque", Match: kindIs(s.KindOpaque), Convert: fromOpaque},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "transform", Match: kindIs(s.KindTransform), Convert: fromTransform},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "ref", Match: kindIs(s.KindRef), Convert: fromRef},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "object", Match: kindIs(s.KindObject), Convert: fromObject},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "record", Match: kindIs(s.KindRecord), Convert: fromRecord},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "tuple", Match: kindIs(s.KindTuple), Convert: fromTuple},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "array", Match: kindIs(s.KindArray), Convert: fromArray},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "union", Match: kindIs(s.KindUnion), Convert: fromUnion},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "intersect", Match: kindIs(s.KindIntersect), Convert: fromIntersect},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "hinted", Match: kindIs(s.KindUndefined, s.KindVoid, s.KindSymbol, s.KindUnknown, s.KindPromise, s.KindFunction, s.KindConstructor, s.KindBigInt, s.KindDate, s.KindRegExp), Convert: fromHinted},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "literal", Match: kindIs(s.KindLiteral), Convert: fromLiteral},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "never", Match: kindIs(s.KindNever), Convert: func(a fromArg) *ijs.Schema { return withOptions(impossible(), a.n) }},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "any", Match: kindIs(s.KindAny), Convert: func(a fromArg) *ijs.Schema { return withOptions(&ijs.Schema{}, a.n) }},
		dispatch.Case[fromArg, *ijs.Schema]{Name: "scalar", Match: kindIs(s.KindNull, s.KindBoolean, s.KindNumber, s.KindInteger, s.KindString), Convert: fromScalar},
	)
	fromTable.Recover(func(a fromArg, r any) *ijs.Schema {
		a.cfg.diag.Warnf("jsonschema: conversion failed: %v; written as {\"not\":{}}", r)
		return impossible()
	})
}

// impossible is the schema no value satisfies.
func impossible() *ijs.Schema { return &ijs.Schema{Not: &ijs.Schema{}} }

func withOptions(js *ijs.Schema, n *s.Node) *ijs.Schema {
	applyOptions(js, n.Options)
	return js
}

// FromCanonical converts a canonical schema to JSON Schema. It never fails:
// unconvertible input yields the impossible schema {"not":{}}.
func FromCanonical(n *s.Node, opts ...Option) *ijs.Schema {
	return fromTable.Convert(fromArg{n: n, cfg: newConfig(opts)})
}

// Document converts root and places refs under $defs, keyed by their IDs,
// so that ref nodes become resolvable local references.
func Document(root *s.Node, refs []*s.Node, opts ...Option) *ijs.Schema {
	doc := FromCanonical(root, opts...)
	doc.Version = Draft
	for _, r := range refs {
		if r == nil || r.ID == "" {
			continue
		}
		def := FromCanonical(r.With(), opts...)
		// The key names the definition; a relative $id would rebase it.
		def.ID = ""
		if doc.Definitions == nil {
			doc.Definitions = ijs.Definitions{}
		}
		doc.Definitions[r.ID] = def
	}
	return doc
}

func fromOptional(a fromArg) *ijs.Schema {
	a.cfg.diag.Warnf("jsonschema: optional outside an object property has no JSON Schema form; kept the inner schema")
	return a.sub(a.n.Item)
}

func fromReadonly(a fromArg) *ijs.Schema {
	js := a.sub(a.n.Item)
	js.ReadOnly = true
	return js
}

func fromOpaque(a fromArg) *ijs.Schema {
	if a.n.Opaque.Dialect == Dialect {
		if js, ok := a.n.Opaque.Value.(*ijs.Schema); ok && js != nil {
			c := *js
			return &c
		}
	}
	a.cfg.diag.Warnf("jsonschema: opaque %s schema replaced by {}", a.n.Opaque.Dialect)
	return withOptions(&ijs.Schema{}, a.n)
}

func fromTransform(a fromArg) *ijs.Schema {
	a.cfg.diag.Warnf("jsonschema: transform codecs dropped; kept the input schema")
	return a.sub(a.n.Item)
}

func fromRef(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{}, a.n)
	js.Ref = defsPrefix + a.n.Ref
	return js
}

func fromObject(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{Type: "object"}, a.n)
	if len(a.n.Properties) > 0 {
		js.Properties = ijs.NewProperties()
		for _, p := range a.n.Properties {
			child := a.sub(p.Schema)
			if p.Readonly {
				child.ReadOnly = true
			}
			js.Properties.Set(p.Key, child)
		}
	}
	js.Required = a.n.Required()
	if ap := a.n.AdditionalProperties; ap != nil {
		if ap.Kind == s.KindNever && ap.Options.IsZero() {
			js.AdditionalProperties = ijs.FalseSchema
		} else {
			js.AdditionalProperties = a.sub(ap)
		}
	}
	return js
}

func fromRecord(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{Type: "object"}, a.n)
	js.PatternProperties = map[string]*ijs.Schema{a.n.KeyPattern: a.sub(a.n.Item)}
	js.AdditionalProperties = ijs.FalseSchema
	return js
}

func fromTuple(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{Type: "array"}, a.n)
	js.PrefixItems = make([]*ijs.Schema, len(a.n.Items))
	for i, it := range a.n.Items {
		js.PrefixItems[i] = a.sub(it)
	}
	js.Items = ijs.FalseSchema
	return js
}

func fromArray(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{Type: "array"}, a.n)
	if a.n.Item != nil && a.n.Item.Kind != s.KindAny {
		js.Items = a.sub(a.n.Item)
	}
	return js
}

func fromUnion(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{}, a.n)
	js.AnyOf = make([]*ijs.Schema, len(a.n.Items))
	for i, it := range a.n.Items {
		js.AnyOf[i] = a.sub(it)
	}
	return js
}

func fromIntersect(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{}, a.n)
	js.AllOf = make([]*ijs.Schema, len(a.n.Items))
	for i, it := range a.n.Items {
		js.AllOf[i] = a.sub(it)
	}
	return js
}

// fromHinted writes kinds without a JSON Schema counterpart as their
// nearest JSON form plus a kind hint.
func fromHinted(a fromArg) *ijs.Schema {
	n := a.n
	js := withOptions(&ijs.Schema{}, n)
	extra(js, KindHint, n.Kind.String())
	switch n.Kind {
	case s.KindBigInt:
		js.Type = "integer"
	case s.KindDate:
		js.Type = "string"
		js.Format = "date-time"
	case s.KindRegExp:
		js.Type = "string"
		if n.Flags != "" {
			extra(js, FlagsHint, n.Flags)
		}
	case s.KindPromise:
		js.Items = a.sub(n.Item)
	case s.KindFunction, s.KindConstructor:
		js.PrefixItems = make([]*ijs.Schema, len(n.Items))
		for i, it := range n.Items {
			js.PrefixItems[i] = a.sub(it)
		}
		extra(js, ReturnsHint, a.sub(n.Returns))
	}
	if n.Kind != s.KindUnknown && n.Kind != s.KindBigInt && n.Kind != s.KindDate && n.Kind != s.KindRegExp {
		a.cfg.diag.Warnf("jsonschema: %s has no JSON Schema form; written as a hinted schema", n.Kind)
	}
	return js
}

func fromLiteral(a fromArg) *ijs.Schema {
	js := withOptions(&ijs.Schema{}, a.n)
	switch v := a.n.Literal.(type) {
	case nil:
		// const null is dropped by omitempty.
		js.Enum = []any{nil}
		return js
	case string:
		js.Type = "string"
	case bool:
		js.Type = "boolean"
	case float64:
		js.Type = "number"
		if v == math.Trunc(v) && !math.IsInf(v, 0) {
			js.Type = "integer"
		}
	case int64, uint64:
		js.Type = "integer"
	}
	js.Const = a.n.Literal
	return js
}

func fromScalar(a fromArg) *ijs.Schema {
	return withOptions(&ijs.Schema{Type: a.n.Kind.String()}, a.n)
}
