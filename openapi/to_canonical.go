package openapi

import (
	"strings"

	"github.com/reoring/typebridge/internal/dispatch"
	s "github.com/reoring/typebridge/schema"
)

const (
	extIntOrString     = "x-kubernetes-int-or-string"
	extPreserveUnknown = "x-kubernetes-preserve-unknown-fields"
	extListType        = "x-kubernetes-list-type"
	extListMapKeys     = "x-kubernetes-list-map-keys"
	extEmbedded        = "x-kubernetes-embedded-resource"
)

type toArg struct {
	m   *Map
	cfg *config
}

func (a toArg) sub(v any) *s.Node {
	switch t := v.(type) {
	case *Map:
		return toTable.Convert(toArg{m: t, cfg: a.cfg})
	case bool:
		if t {
			return s.Any()
		}
	}
	return s.Never()
}

// rest converts the schema minus keys.
func (a toArg) rest(keys ...string) *s.Node {
	return a.sub(without(a.m, keys...))
}

var toTable *dispatch.Table[toArg, *s.Node]

func init() {
	toTable = dispatch.New(toUnsupported,
		dispatch.Case[toArg, *s.Node]{Name: "nil", Match: func(a toArg) bool { return a.m == nil }, Convert: func(toArg) *s.Node { return s.Never() }},
		dispatch.Case[toArg, *s.Node]{Name: "ref", Match: func(a toArg) bool { return has(a.m, "$ref") }, Convert: toRef},
		dispatch.Case[toArg, *s.Node]{Name: "types", Match: func(a toArg) bool { return len(list(a.m, "type")) > 0 }, Convert: toTypes},
		dispatch.Case[toArg, *s.Node]{Name: "nullable", Match: func(a toArg) bool { return flag(a.m, "nullable") }, Convert: toNullable},
		dispatch.Case[toArg, *s.Node]{Name: "int-or-string", Match: func(a toArg) bool { return flag(a.m, extIntOrString) }, Convert: toIntOrString},
		dispatch.Case[toArg, *s.Node]{Name: "embedded", Match: func(a toArg) bool { return a.cfg.embedded && flag(a.m, extEmbedded) }, Convert: toEmbedded},
		dispatch.Case[toArg, *s.Node]{Name: "not", Match: func(a toArg) bool { return has(a.m, "not") }, Convert: toNot},
		dispatch.Case[toArg, *s.Node]{Name: "enum", Match: func(a toArg) bool { return len(list(a.m, "enum")) > 0 }, Convert: toEnum},
		dispatch.Case[toArg, *s.Node]{Name: "allOf", Match: func(a toArg) bool { return len(list(a.m, "allOf")) > 0 }, Convert: toAllOf},
		dispatch.Case[toArg, *s.Node]{Name: "anyOf", Match: func(a toArg) bool { return len(list(a.m, "anyOf")) > 0 }, Convert: toAnyOf},
		dispatch.Case[toArg, *s.Node]{Name: "oneOf", Match: func(a toArg) bool { return len(list(a.m, "oneOf")) > 0 }, Convert: toOneOf},
		dispatch.Case[toArg, *s.Node]{Name: "tuple", Match: isTuple, Convert: toTuple},
		dispatch.Case[toArg, *s.Node]{Name: "array", Match: isArray, Convert: toArray},
		dispatch.Case[toArg, *s.Node]{Name: "object", Match: isObject, Convert: toObject},
		dispatch.Case[toArg, *s.Node]{Name: "scalar", Match: func(a toArg) bool { return scalarKinds[str(a.m, "type")] != nil }, Convert: toScalar},
		dispatch.Case[toArg, *s.Node]{Name: "unknown", Match: func(a toArg) bool { return flag(a.m, extPreserveUnknown) && !has(a.m, "type") }, Convert: func(a toArg) *s.Node { return s.Unknown(Options(a.m)) }},
		dispatch.Case[toArg, *s.Node]{Name: "any", Match: func(a toArg) bool { return !has(a.m, "type") }, Convert: func(a toArg) *s.Node { return s.Any(Options(a.m)) }},
	)
	toTable.Recover(func(a toArg, r any) *s.Node {
		a.cfg.diag.Warnf("openapi: conversion failed: %v; written as never", r)
		return s.Never()
	})
}

// ToCanonical converts one decoded schema (an ordered *Map or a plain
// map[string]any) without unwrapping or definitions. It never fails:
// unconvertible input yields never.
func ToCanonical(schema any, opts ...Option) *s.Node {
	m, _ := ordered(schema).(*Map)
	return convert(m, newConfig(opts))
}

func convert(m *Map, cfg *config) *s.Node {
	return toTable.Convert(toArg{m: m, cfg: cfg})
}

func toUnsupported(a toArg) *s.Node {
	a.cfg.diag.Warnf("unsupported type %q converted to never", str(a.m, "type"))
	return s.Never()
}

func toRef(a toArg) *s.Node {
	ref := str(a.m, "$ref")
	name, ok := refName(ref)
	if !ok {
		a.cfg.diag.Warnf("$ref %q not supported (local definitions only)", ref)
		return s.Unknown(Options(a.m))
	}
	return s.Ref(name, Options(a.m))
}

// toTypes handles OpenAPI 3.1 type lists.
func toTypes(a toArg) *s.Node {
	var out []*s.Node
	for _, t := range list(a.m, "type") {
		name, _ := t.(string)
		m := without(a.m, "type")
		m.Set("type", name)
		out = append(out, a.sub(m))
	}
	return s.Union(out)
}

func toNullable(a toArg) *s.Node {
	return s.Union([]*s.Node{a.rest("nullable"), s.Null()})
}

func toIntOrString(a toArg) *s.Node {
	return s.Union([]*s.Node{s.Integer(), s.String()}, annotations(a.m))
}

func toNot(a toArg) *s.Node {
	not := get(a.m, "not")
	if nm, ok := not.(*Map); ok && nm.Len() == 0 {
		return s.Never(Options(a.m))
	}
	inner := a.sub(not)
	check := lazyCheck(a.cfg, inner)
	neg := s.NewOpaque(Dialect, map[string]any{"not": plain(not)}, func(v any) bool { return !check(v) })
	return s.Intersect([]*s.Node{a.rest("not"), neg})
}

func toEnum(a toArg) *s.Node {
	var out []*s.Node
	for _, v := range list(a.m, "enum") {
		out = append(out, s.Literal(plain(v)))
	}
	return s.Union(out, annotations(a.m))
}

func toAllOf(a toArg) *s.Node {
	var parts []*s.Node
	for _, p := range list(a.m, "allOf") {
		parts = append(parts, a.sub(p))
	}
	if r := without(a.m, "allOf"); constrains(r) {
		parts = append([]*s.Node{a.sub(r)}, parts...)
	}
	return s.Intersect(parts)
}

func toAnyOf(a toArg) *s.Node {
	return branches(a, "anyOf")
}

func toOneOf(a toArg) *s.Node {
	a.cfg.diag.Warnf("oneOf converted to a union: exclusivity is not enforced")
	return branches(a, "oneOf")
}

// branches converts a composition keyword to a union, intersected with the
// sibling keywords when they constrain the value.
func branches(a toArg, key string) *s.Node {
	var vs []*s.Node
	for _, b := range list(a.m, key) {
		vs = append(vs, a.sub(b))
	}
	u := s.Union(vs, discriminated(a.m))
	if r := without(a.m, key); constrains(r) {
		return s.Intersect([]*s.Node{a.sub(r), u})
	}
	return u
}

// constrains reports whether a schema carries keywords that restrict values.
func constrains(m *Map) bool {
	for p := m.Oldest(); p != nil; p = p.Next() {
		switch p.Key {
		case "title", "description", "default", "example", "externalDocs", "discriminator":
		default:
			return true
		}
	}
	return false
}

func isTuple(a toArg) bool {
	if has(a.m, "prefixItems") {
		return true
	}
	_, ok := get(a.m, "items").([]any)
	return ok
}

func toTuple(a toArg) *s.Node {
	items := list(a.m, "prefixItems")
	if items == nil {
		items = list(a.m, "items")
	}
	out := make([]*s.Node, len(items))
	for i, it := range items {
		out[i] = a.sub(it)
	}
	o := Options(a.m)
	o.MinItems, o.MaxItems = nil, nil
	return s.Tuple(out, o)
}

func isArray(a toArg) bool {
	return str(a.m, "type") == "array" || (!has(a.m, "type") && has(a.m, "items"))
}

func toArray(a toArg) *s.Node {
	item := s.Unknown()
	if it, ok := get(a.m, "items").(*Map); ok {
		item = a.sub(it)
	}
	arr := s.Array(item, Options(a.m))
	parts := []*s.Node{arr}
	if str(a.m, extListType) == "map" {
		if keys := strs(a.m, extListMapKeys); len(keys) > 0 {
			parts = append(parts, listMapKeys(keys))
		}
	}
	if c := get(a.m, "contains"); c != nil {
		parts = append(parts, containsCheck(a, c))
	}
	return s.Intersect(parts)
}

func isObject(a toArg) bool {
	if t := str(a.m, "type"); t != "" {
		return t == "object"
	}
	for _, k := range []string{"properties", "required", "additionalProperties", "patternProperties", "propertyNames"} {
		if has(a.m, k) {
			return true
		}
	}
	return false
}

func toObject(a toArg) *s.Node {
	props := child(a.m, "properties")
	required := strs(a.m, "required")
	patterns := child(a.m, "patternProperties")
	preserve := flag(a.m, extPreserveUnknown)
	o := Options(a.m)

	if props == nil && len(required) == 0 {
		if ap, ok := get(a.m, "additionalProperties").(*Map); ok {
			if patterns != nil {
				a.cfg.diag.Warnf("patternProperties alongside additionalProperties schema dropped")
			}
			return s.Record("", a.sub(ap), o)
		}
		if patterns != nil && patterns.Len() > 0 {
			return toRecord(a, patterns, o)
		}
		if pn := child(a.m, "propertyNames"); str(pn, "pattern") != "" {
			return s.Record(str(pn, "pattern"), a.additional(preserve), o)
		}
	} else if patterns != nil {
		a.cfg.diag.Warnf("patternProperties alongside properties dropped")
	}

	isRequired := make(map[string]bool, len(required))
	for _, k := range required {
		isRequired[k] = true
	}
	var ps []s.Property
	if props != nil {
		for p := props.Oldest(); p != nil; p = p.Next() {
			n := a.sub(p.Value)
			if pm, ok := p.Value.(*Map); ok && flag(pm, "readOnly") {
				n = s.Readonly(n)
			}
			if !isRequired[p.Key] {
				n = s.Optional(n)
			}
			ps = append(ps, s.P(p.Key, n))
		}
	}
	for _, k := range required {
		if !has(props, k) {
			ps = append(ps, s.P(k, jsonValue()))
		}
	}
	obj := s.Object(ps, o)
	if preserve {
		return obj
	}
	switch ap := get(a.m, "additionalProperties").(type) {
	case bool:
		if !ap {
			return s.Strict(obj)
		}
		return obj
	case *Map:
		return s.WithAdditional(obj, a.sub(ap))
	}
	if a.cfg.unknown == UnknownStrict {
		return s.Strict(obj)
	}
	return obj
}

// jsonValue accepts any present JSON value. Unlike unknown it does not
// accept an absent one, so required keys without a schema stay required.
func jsonValue() *s.Node {
	return s.Union([]*s.Node{s.Null(), s.Boolean(), s.Number(), s.String(), s.Array(s.Unknown()), s.Object(nil)})
}

// additional is the value schema of an object whose keys are constrained
// by propertyNames only.
func (a toArg) additional(preserve bool) *s.Node {
	if ap, ok := get(a.m, "additionalProperties").(*Map); ok && !preserve {
		return a.sub(ap)
	}
	return s.Unknown()
}

// toRecord folds patternProperties into one record. Several patterns are
// alternated; differing value schemas degrade to their union.
func toRecord(a toArg, patterns *Map, o s.Options) *s.Node {
	var (
		keys   []string
		values []*s.Node
	)
	for p := patterns.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
		v := a.sub(p.Value)
		dup := false
		for _, w := range values {
			if s.Equal(v, w) {
				dup = true
				break
			}
		}
		if !dup {
			values = append(values, v)
		}
	}
	if len(keys) == 1 {
		return s.Record(keys[0], values[0], o)
	}
	if len(values) > 1 {
		a.cfg.diag.Warnf("patternProperties with differing value schemas merged into a union")
	}
	alt := make([]string, len(keys))
	for i, k := range keys {
		alt[i] = "(?:" + k + ")"
	}
	return s.Record(strings.Join(alt, "|"), s.Union(values), o)
}

var scalarKinds = map[string]func(...s.Options) *s.Node{
	"string":  s.String,
	"integer": s.Integer,
	"number":  s.Number,
	"boolean": s.Boolean,
	"null":    s.Null,
}

func toScalar(a toArg) *s.Node {
	return scalarKinds[str(a.m, "type")](Options(a.m))
}
