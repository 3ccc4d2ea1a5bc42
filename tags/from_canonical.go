package tags

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/reoring/typebridge/internal/dispatch"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

type fromArg struct {
	n   *s.Node
	cfg *config
}

func (a fromArg) sub(n *s.Node) *Rule { return fromTable.Convert(fromArg{n: n, cfg: a.cfg}) }

var fromTable *dispatch.Table[fromArg, *Rule]

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
	fromTable = dispatch.New(fromUnsupported,
		dispatch.Case[fromArg, *Rule]{Name: "nil", Match: func(a fromArg) bool { return a.n == nil }, Convert: func(fromArg) *Rule { return Never() }},
		dispatch.Case[fromArg, *Rule]{Name: "optional", Match: kindIs(s.KindOptional), Convert: func(a fromArg) *Rule {
			a.cfg.diag.Warnf("tags: optional outside a struct field kept as its inner rule")
			return a.sub(a.n.Item)
		}},
		dispatch.Case[fromArg, *Rule]{Name: "readonly", Match: kindIs(s.KindReadonly), Convert: func(a fromArg) *Rule { return a.sub(a.n.Item) }},
		dispatch.Case[fromArg, *Rule]{Name: "transform", Match: kindIs(s.KindTransform), Convert: func(a fromArg) *Rule { return a.sub(a.n.Item) }},
		dispatch.Case[fromArg, *Rule]{Name: "opaque", Match: kindIs(s.KindOpaque), Convert: fromOpaque},
		dispatch.Case[fromArg, *Rule]{Name: "object", Match: kindIs(s.KindObject), Convert: fromObject},
		dispatch.Case[fromArg, *Rule]{Name: "intersect", Match: kindIs(s.KindIntersect), Convert: fromIntersect},
		dispatch.Case[fromArg, *Rule]{Name: "record", Match: kindIs(s.KindRecord), Convert: fromRecord},
		dispatch.Case[fromArg, *Rule]{Name: "tuple", Match: kindIs(s.KindTuple), Convert: fromTuple},
		dispatch.Case[fromArg, *Rule]{Name: "array", Match: kindIs(s.KindArray), Convert: fromArray},
		dispatch.Case[fromArg, *Rule]{Name: "oneof", Match: literalUnion, Convert: fromOneOf},
		dispatch.Case[fromArg, *Rule]{Name: "union", Match: kindIs(s.KindUnion), Convert: fromUnion},
		dispatch.Case[fromArg, *Rule]{Name: "literal", Match: kindIs(s.KindLiteral), Convert: fromLiteral},
		dispatch.Case[fromArg, *Rule]{Name: "scalar", Match: kindIs(s.KindAny, s.KindUnknown, s.KindNever, s.KindNull, s.KindBoolean, s.KindInteger, s.KindNumber, s.KindString, s.KindDate, s.KindBigInt, s.KindRegExp), Convert: fromScalar},
	)
	fromTable.Recover(func(a fromArg, r any) *Rule {
		a.cfg.diag.Warnf("tags: conversion failed: %v; written as never", r)
		return Never()
	})
}

// FromCanonical converts a canonical schema to a rule tree. It never fails:
// kinds without a tag form (symbol, function, promise, ref, ...) yield a
// never rule and a warning.
func FromCanonical(n *s.Node, opts ...Option) *Rule {
	return fromTable.Convert(fromArg{n: n, cfg: newConfig(opts)})
}

func fromUnsupported(a fromArg) *Rule {
	a.cfg.diag.Warnf("tags: %s has no tag form; written as never", a.n.Kind)
	return Never()
}

func fromOpaque(a fromArg) *Rule {
	if a.n.Opaque.Dialect == Dialect {
		if r, ok := a.n.Opaque.Value.(*Rule); ok && r != nil {
			c := *r
			return &c
		}
	}
	a.cfg.diag.Warnf("tags: opaque %s schema replaced by any", a.n.Opaque.Dialect)
	return &Rule{Type: TypeAny, Description: a.n.Description}
}

func fromObject(a fromArg) *Rule {
	r := &Rule{Type: TypeStruct, Description: a.n.Description}
	for _, p := range a.n.Properties {
		fr := a.sub(p.Schema)
		marker := "required"
		if p.Optional {
			marker = "omitempty"
		}
		fr.Tag = joinTags(marker, fr.Tag)
		r.Fields = append(r.Fields, Field{Name: p.Key, Rule: fr})
	}
	switch ap := a.n.AdditionalProperties; {
	case ap == nil:
	case ap.Kind == s.KindNever:
		r.Strict = true
	default:
		a.cfg.diag.Warnf("tags: additional property schema dropped")
	}
	if a.n.MinProperties != nil || a.n.MaxProperties != nil {
		a.cfg.diag.Warnf("tags: property count bounds dropped")
	}
	return r
}

// fromIntersect merges object parts into one struct; a later field of the
// same name replaces an earlier one. Other intersections keep their first
// part.
func fromIntersect(a fromArg) *Rule {
	merged := &Rule{Type: TypeStruct, Description: a.n.Description}
	for _, part := range a.n.Items {
		r := a.sub(part)
		if r.Type != TypeStruct {
			a.cfg.diag.Warnf("tags: intersection of non-objects reduced to its first part")
			return a.sub(a.n.Items[0])
		}
		for _, f := range r.Fields {
			replaced := false
			for i := range merged.Fields {
				if merged.Fields[i].Name == f.Name {
					merged.Fields[i], replaced = f, true
				}
			}
			if !replaced {
				merged.Fields = append(merged.Fields, f)
			}
		}
		merged.Strict = merged.Strict || r.Strict
	}
	return merged
}

func fromRecord(a fromArg) *Rule {
	r := &Rule{Type: TypeMap, Elem: a.sub(a.n.Item), Description: a.n.Description}
	if p := keyPattern(a.n.KeyPattern); p != "" {
		r.KeyTag = Join(patternChecks(p))
	}
	return r
}

func fromTuple(a fromArg) *Rule {
	r := &Rule{Type: TypeSlice, Description: a.n.Description}
	for _, it := range a.n.Items {
		r.Items = append(r.Items, a.sub(it))
	}
	r.Tag = Join([]Check{{Name: "len", Param: strconv.Itoa(len(a.n.Items))}})
	return r
}

func fromArray(a fromArg) *Rule {
	r := &Rule{Type: TypeSlice, Description: a.n.Description}
	if a.n.Item != nil && a.n.Item.Kind != s.KindAny {
		r.Elem = a.sub(a.n.Item)
	}
	r.Tag = Join(a.checks(TypeSlice))
	return r
}

// literalUnion matches unions of string or integer literals, which oneof
// can express.
func literalUnion(a fromArg) bool {
	if a.n.Kind != s.KindUnion || len(a.n.Items) == 0 {
		return false
	}
	var t Type
	for _, v := range a.n.Items {
		if v.Kind != s.KindLiteral {
			return false
		}
		vt := literalType(v.Literal)
		if vt != TypeString && vt != TypeInt || t != "" && vt != t {
			return false
		}
		t = vt
	}
	return true
}

func literalType(v any) Type {
	switch x := v.(type) {
	case string:
		return TypeString
	case bool:
		return TypeBool
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return TypeInt
		}
		return TypeFloat
	case int64, uint64:
		return TypeInt
	case nil:
		return TypeNull
	}
	return TypeNever
}

func literalText(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	}
	return ""
}

func fromOneOf(a fromArg) *Rule {
	vals := make([]string, len(a.n.Items))
	for i, v := range a.n.Items {
		t := literalText(v.Literal)
		if strings.ContainsAny(t, " ") || t == "" {
			t = "'" + t + "'"
		}
		vals[i] = t
	}
	return &Rule{
		Type:        literalType(a.n.Items[0].Literal),
		Tag:         Join([]Check{{Name: "oneof", Param: strings.Join(vals, " ")}}),
		Description: a.n.Description,
	}
}

func fromUnion(a fromArg) *Rule {
	r := &Rule{Type: TypeUnion, Description: a.n.Description}
	for _, v := range a.n.Items {
		r.Variants = append(r.Variants, a.sub(v))
	}
	return r
}

func fromLiteral(a fromArg) *Rule {
	t := literalType(a.n.Literal)
	switch t {
	case TypeNull:
		return &Rule{Type: TypeNull, Description: a.n.Description}
	case TypeNever:
		return fromUnsupported(a)
	}
	return &Rule{Type: t, Tag: Join([]Check{{Name: "eq", Param: literalText(a.n.Literal)}}), Description: a.n.Description}
}

func fromScalar(a fromArg) *Rule {
	var t Type
	switch a.n.Kind {
	case s.KindAny, s.KindUnknown:
		t = TypeAny
	case s.KindNever:
		t = TypeNever
	case s.KindNull:
		t = TypeNull
	case s.KindBoolean:
		t = TypeBool
	case s.KindInteger:
		t = TypeInt
	case s.KindBigInt:
		a.cfg.diag.Warnf("tags: bigint written as int")
		t = TypeInt
	case s.KindNumber:
		t = TypeFloat
	case s.KindDate:
		t = TypeTime
	case s.KindRegExp:
		if a.n.Flags != "" {
			a.cfg.diag.Warnf("tags: regexp flags %q dropped", a.n.Flags)
		}
		t = TypeString
	default:
		t = TypeString
	}
	return &Rule{Type: t, Tag: Join(a.checks(t)), Description: a.n.Description}
}

// checks renders the constraint options of a.n for base type t in a fixed
// order: sizes or bounds, exclusive bounds, format, patterns, uniqueness.
func (a fromArg) checks(t Type) []Check {
	o := a.n.Options
	var out []Check
	add := func(name, param string) { out = append(out, Check{Name: name, Param: param}) }
	switch t {
	case TypeString:
		sizes(add, o.MinLength, o.MaxLength)
	case TypeSlice:
		sizes(add, o.MinItems, o.MaxItems)
		if o.UniqueItems {
			add("unique", "")
		}
	case TypeInt, TypeFloat:
		num := func(name string, f *float64, round func(float64) float64) {
			if f == nil {
				return
			}
			v := *f
			if t == TypeInt && v != math.Trunc(v) {
				v = round(v)
			}
			add(name, strconv.FormatFloat(v, 'f', -1, 64))
		}
		num("min", o.Minimum, math.Ceil)
		num("max", o.Maximum, math.Floor)
		num("gt", o.ExclusiveMinimum, math.Floor)
		num("lt", o.ExclusiveMaximum, math.Ceil)
		if o.MultipleOf != nil {
			a.cfg.diag.Warnf("tags: multipleOf %v dropped", *o.MultipleOf)
		}
	}
	if t == TypeString {
		if o.Format != "" {
			if c, ok := formatCheck(o.Format); ok {
				out = append(out, c)
			} else {
				a.cfg.diag.Warnf("tags: format %q has no validator tag; dropped", o.Format)
			}
		}
		if o.Pattern != "" {
			out = append(out, patternChecks(o.Pattern)...)
		}
	}
	return out
}

func sizes(add func(name, param string), lo, hi *int) {
	switch {
	case lo != nil && hi != nil && *lo == *hi:
		add("len", strconv.Itoa(*lo))
		return
	case lo != nil:
		add("min", strconv.Itoa(*lo))
	}
	if hi != nil {
		add("max", strconv.Itoa(*hi))
	}
}

var layoutOf = map[string]string{
	"date-time": time.RFC3339,
	"date":      time.DateOnly,
	"time":      time.TimeOnly,
}

// formatCheck maps a generic or tags-qualified format name to its tag.
func formatCheck(name string) (Check, bool) {
	name = strings.TrimPrefix(name, Dialect+":")
	if layout, ok := layoutOf[name]; ok {
		return Check{Name: "datetime", Param: layout}, true
	}
	switch name {
	case "email", "uuid", "url", "uri", "ipv4", "ipv6":
		return Check{Name: name}, true
	case "hostname":
		return Check{Name: "hostname_rfc1123"}, true
	}
	return Check{}, false
}

// patternChecks splits a combined pattern into its pieces and writes each
// as the most specific check.
func patternChecks(p string) []Check {
	var out []Check
	for _, piece := range pattern.Split(p) {
		out = append(out, patternCheck(piece))
	}
	return out
}

func patternCheck(p string) Check {
	for name, src := range namedPatterns {
		if p == src {
			return Check{Name: name}
		}
	}
	if kind, lit, ok := pattern.Literal(p); ok {
		switch kind {
		case "prefix":
			return Check{Name: "startswith", Param: lit}
		case "suffix":
			return Check{Name: "endswith", Param: lit}
		default:
			return Check{Name: "contains", Param: lit}
		}
	}
	return Check{Name: "pattern", Param: p}
}

func joinTags(tags ...string) string {
	var keep []string
	for _, t := range tags {
		if t != "" {
			keep = append(keep, t)
		}
	}
	return strings.Join(keep, ",")
}
