package tags

import (
	"strings"

	"github.com/reoring/typebridge/internal/dispatch"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

type toArg struct {
	r   *Rule
	cfg *config
}

func (a toArg) sub(r *Rule) *s.Node { return toTable.Convert(toArg{r: r, cfg: a.cfg}) }

var toTable *dispatch.Table[toArg, *s.Node]

func typeIs(types ...Type) func(toArg) bool {
	return func(a toArg) bool {
		for _, t := range types {
			if a.r.Type == t {
				return true
			}
		}
		return false
	}
}

func init() {
	toTable = dispatch.New(func(toArg) *s.Node { return s.Never() },
		dispatch.Case[toArg, *s.Node]{Name: "nil", Match: func(a toArg) bool { return a.r == nil }, Convert: func(toArg) *s.Node { return s.Never() }},
		dispatch.Case[toArg, *s.Node]{Name: "opaque", Match: func(a toArg) bool { return a.r.Type == TypeCustom || strings.Contains(a.r.Tag, "|") }, Convert: toOpaque},
		dispatch.Case[toArg, *s.Node]{Name: "struct", Match: typeIs(TypeStruct), Convert: toStruct},
		dispatch.Case[toArg, *s.Node]{Name: "map", Match: typeIs(TypeMap), Convert: toMap},
		dispatch.Case[toArg, *s.Node]{Name: "slice", Match: typeIs(TypeSlice), Convert: toSlice},
		dispatch.Case[toArg, *s.Node]{Name: "union", Match: typeIs(TypeUnion), Convert: toUnion},
		dispatch.Case[toArg, *s.Node]{Name: "literal", Match: func(a toArg) bool { return Extract(a.r.Type, a.r.Tag).HasLiterals }, Convert: toLiteral},
		dispatch.Case[toArg, *s.Node]{Name: "scalar", Match: typeIs(TypeAny, TypeNever, TypeNull, TypeBool, TypeInt, TypeFloat, TypeString, TypeTime), Convert: toScalar},
	)
	toTable.Recover(func(a toArg, r any) *s.Node {
		a.cfg.diag.Warnf("tags: conversion failed: %v; written as never", r)
		return s.Never()
	})
}

// ToCanonical converts a rule tree to a canonical schema. It never fails:
// unknown rule types yield never, and custom rules or tags with "|"
// alternatives yield opaque nodes checked by the validator engine.
func ToCanonical(r *Rule, opts ...Option) *s.Node {
	return toTable.Convert(toArg{r: r, cfg: newConfig(opts)})
}

func (a toArg) constraints() s.Options {
	c := Extract(a.r.Type, a.r.Tag)
	for _, ig := range c.Ignored {
		a.cfg.diag.Warnf("tags: %s has no canonical form; ignored", ig)
	}
	c.Options.Description = a.r.Description
	return c.Options
}

func toOpaque(a toArg) *s.Node {
	r := a.r
	return s.NewOpaque(Dialect, r, func(v any) bool { return Matches(r, v) }, s.Options{Description: r.Description})
}

func toStruct(a toArg) *s.Node {
	props := make([]s.Property, 0, len(a.r.Fields))
	for _, f := range a.r.Fields {
		child := a.sub(f.Rule)
		if !f.Rule.Required() {
			child = s.Optional(child)
		}
		props = append(props, s.P(f.Name, child))
	}
	n := s.Object(props, a.constraints())
	if a.r.Strict {
		n = s.Strict(n)
	}
	return n
}

func toMap(a toArg) *s.Node {
	key := Extract(TypeString, a.r.KeyTag)
	if o := key.Options; o.MinLength != nil || o.MaxLength != nil || o.Format != "" {
		a.cfg.diag.Warnf("tags: key checks other than patterns dropped from %q", a.r.KeyTag)
	}
	value := s.Any()
	if a.r.Elem != nil {
		value = a.sub(a.r.Elem)
	}
	return s.Record(key.Options.Pattern, value, a.constraints())
}

func toSlice(a toArg) *s.Node {
	if len(a.r.Items) > 0 {
		items := make([]*s.Node, len(a.r.Items))
		for i, it := range a.r.Items {
			items[i] = a.sub(it)
		}
		return s.Tuple(items, a.constraints())
	}
	elem := s.Any()
	if a.r.Elem != nil {
		elem = a.sub(a.r.Elem)
	}
	return s.Array(elem, a.constraints())
}

func toUnion(a toArg) *s.Node {
	vs := make([]*s.Node, len(a.r.Variants))
	for i, v := range a.r.Variants {
		vs[i] = a.sub(v)
	}
	return s.Union(vs, s.Options{Description: a.r.Description})
}

// toLiteral turns eq and oneof into literals. Other checks on the same
// node are redundant for the accepted values and dropped.
func toLiteral(a toArg) *s.Node {
	c := Extract(a.r.Type, a.r.Tag)
	o := s.Options{Description: a.r.Description}
	lits := make([]*s.Node, len(c.Literals))
	for i, v := range c.Literals {
		lits[i] = s.Literal(v)
	}
	if len(lits) == 1 {
		return lits[0].With(o)
	}
	return s.Union(lits, o)
}

func toScalar(a toArg) *s.Node {
	o := a.constraints()
	switch a.r.Type {
	case TypeAny:
		return s.Any(o)
	case TypeNever:
		return s.Never(o)
	case TypeNull:
		return s.Null(o)
	case TypeBool:
		return s.Boolean(o)
	case TypeInt:
		return s.Integer(o)
	case TypeFloat:
		return s.Number(o)
	case TypeTime:
		return s.Date(o)
	}
	return s.String(o)
}

// keyPattern is the record pattern written for a key tag, "" for any key.
func keyPattern(p string) string {
	if p == pattern.Any {
		return ""
	}
	return p
}
