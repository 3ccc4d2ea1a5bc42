package jsonschema

import (
	"reflect"
	"slices"
	"strings"

	ijs "github.com/invopop/jsonschema"

	"github.com/reoring/typebridge/internal/dispatch"
	s "github.com/reoring/typebridge/schema"
)

type toArg struct {
	js  *ijs.Schema
	cfg *config
	// defs are the root definitions, attached to opaque sub-schemas so their
	// local references still resolve.
	defs ijs.Definitions
}

func (a toArg) sub(js *ijs.Schema) *s.Node {
	return toTable.Convert(toArg{js: js, cfg: a.cfg, defs: a.defs})
}

var toTable *dispatch.Table[toArg, *s.Node]

func init() {
	toTable = dispatch.New(func(a toArg) *s.Node { return s.Never(Options(a.js)) },
		dispatch.Case[toArg, *s.Node]{Name: "nil", Match: func(a toArg) bool { return a.js == nil }, Convert: func(toArg) *s.Node { return s.Never() }},
		dispatch.Case[toArg, *s.Node]{Name: "false", Match: func(a toArg) bool { return isFalse(a.js) }, Convert: func(toArg) *s.Node { return s.Never() }},
		dispatch.Case[toArg, *s.Node]{Name: "true", Match: func(a toArg) bool { return isTrue(a.js) }, Convert: func(toArg) *s.Node { return s.Any() }},
		dispatch.Case[toArg, *s.Node]{Name: "readonly", Match: func(a toArg) bool { return a.js.ReadOnly }, Convert: toReadonly},
		dispatch.Case[toArg, *s.Node]{Name: "opaque", Match: func(a toArg) bool { return unsupported(a.js) != "" }, Convert: toOpaque},
		dispatch.Case[toArg, *s.Node]{Name: "ref", Match: func(a toArg) bool { return a.js.Ref != "" }, Convert: toRef},
		dispatch.Case[toArg, *s.Node]{Name: "hinted", Match: func(a toArg) bool { return hint(a.js) != "" }, Convert: toHinted},
		dispatch.Case[toArg, *s.Node]{Name: "never", Match: func(a toArg) bool { return a.js.Not != nil }, Convert: func(a toArg) *s.Node { return s.Never(Options(a.js)) }},
		dispatch.Case[toArg, *s.Node]{Name: "const", Match: func(a toArg) bool { return a.js.Const != nil }, Convert: toConst},
		dispatch.Case[toArg, *s.Node]{Name: "enum", Match: func(a toArg) bool { return len(a.js.Enum) > 0 }, Convert: toEnum},
		dispatch.Case[toArg, *s.Node]{Name: "anyOf", Match: func(a toArg) bool { return len(a.js.AnyOf) > 0 }, Convert: toUnion},
		dispatch.Case[toArg, *s.Node]{Name: "allOf", Match: func(a toArg) bool { return len(a.js.AllOf) > 0 }, Convert: toIntersect},
		dispatch.Case[toArg, *s.Node]{Name: "tuple", Match: func(a toArg) bool { return a.js.Type == "array" && len(a.js.PrefixItems) > 0 }, Convert: toTuple},
		dispatch.Case[toArg, *s.Node]{Name: "array", Match: func(a toArg) bool { return a.js.Type == "array" }, Convert: toArray},
		dispatch.Case[toArg, *s.Node]{Name: "record", Match: func(a toArg) bool { return len(a.js.PatternProperties) == 1 }, Convert: toRecord},
		dispatch.Case[toArg, *s.Node]{Name: "object", Match: func(a toArg) bool { return a.js.Type == "object" || a.js.Properties != nil }, Convert: toObject},
		dispatch.Case[toArg, *s.Node]{Name: "scalar", Match: func(a toArg) bool { return scalarType(a.js.Type) }, Convert: toScalar},
		dispatch.Case[toArg, *s.Node]{Name: "any", Match: func(a toArg) bool { return a.js.Type == "" }, Convert: func(a toArg) *s.Node { return s.Any(Options(a.js)) }},
	)
	toTable.Recover(func(a toArg, r any) *s.Node {
		a.cfg.diag.Warnf("jsonschema: conversion failed: %v; written as never", r)
		return s.Never()
	})
}

// ToCanonical converts a JSON Schema to a canonical schema. It never fails:
// unconvertible input yields never, and keywords without a canonical
// counterpart yield opaque nodes checked by google/jsonschema-go.
func ToCanonical(js *ijs.Schema, opts ...Option) *s.Node {
	var defs ijs.Definitions
	if js != nil {
		defs = js.Definitions
	}
	return toTable.Convert(toArg{js: js, cfg: newConfig(opts), defs: defs})
}

// Import converts js and its $defs. Each definition becomes a canonical node
// whose ID is its key, ready for compile.WithReferences.
func Import(js *ijs.Schema, opts ...Option) (root *s.Node, refs []*s.Node) {
	root = ToCanonical(js, opts...)
	if js == nil {
		return root, nil
	}
	keys := make([]string, 0, len(js.Definitions))
	for k := range js.Definitions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		def := *js.Definitions[k]
		if def.Definitions == nil {
			def.Definitions = js.Definitions
		}
		refs = append(refs, ToCanonical(&def, opts...).With(s.Options{ID: k}))
	}
	return root, refs
}

func isFalse(js *ijs.Schema) bool { return reflect.DeepEqual(js, ijs.FalseSchema) }

func isTrue(js *ijs.Schema) bool {
	return reflect.DeepEqual(js, ijs.TrueSchema) || reflect.DeepEqual(js, &ijs.Schema{})
}

func propCount(js *ijs.Schema) int {
	if js.Properties == nil {
		return 0
	}
	return js.Properties.Len()
}

func scalarType(t string) bool {
	switch t {
	case "null", "boolean", "number", "integer", "string":
		return true
	}
	return false
}

func scalarValue(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int64, uint64:
		return true
	}
	return false
}

func localRef(ref string) (string, bool) {
	for _, p := range []string{defsPrefix, legacyPrefix} {
		if name, ok := strings.CutPrefix(ref, p); ok && name != "" && !strings.Contains(name, "/") {
			return name, true
		}
	}
	return "", false
}

// unsupported names the first keyword of js that has no canonical form, or
// returns "".
func unsupported(js *ijs.Schema) string {
	switch {
	case js.If != nil || js.Then != nil || js.Else != nil:
		return "if/then/else"
	case len(js.OneOf) > 0:
		return "oneOf"
	case js.Not != nil && !isTrue(js.Not):
		return "not"
	case js.Contains != nil:
		return "contains"
	case len(js.DependentRequired) > 0:
		return "dependentRequired"
	case len(js.DependentSchemas) > 0:
		return "dependentSchemas"
	case js.PropertyNames != nil:
		return "propertyNames"
	case js.DynamicRef != "":
		return "$dynamicRef"
	case js.Ref != "":
		if _, ok := localRef(js.Ref); !ok {
			return "$ref"
		}
	case js.Const != nil && !scalarValue(js.Const):
		return "const"
	case (len(js.AnyOf) > 0 || len(js.AllOf) > 0) && js.Type != "":
		return "type with a combinator"
	case js.Type == "array" && len(js.PrefixItems) > 0 && !isFalse(js.Items):
		return "open prefixItems"
	case len(js.PatternProperties) > 0 && (len(js.PatternProperties) > 1 || propCount(js) > 0 || !isFalse(js.AdditionalProperties)):
		return "patternProperties"
	}
	for _, e := range js.Enum {
		if !scalarValue(e) {
			return "enum"
		}
	}
	for _, k := range js.Required {
		if js.Properties == nil {
			return "required"
		}
		if _, ok := js.Properties.Get(k); !ok {
			return "required"
		}
	}
	return ""
}

func toReadonly(a toArg) *s.Node {
	c := *a.js
	c.ReadOnly = false
	return s.Readonly(a.sub(&c))
}

func toOpaque(a toArg) *s.Node {
	a.cfg.diag.Warnf("jsonschema: %s kept as an opaque schema", unsupported(a.js))
	check := *a.js
	if check.Definitions == nil && len(a.defs) > 0 {
		check.Definitions = a.defs
	}
	return s.NewOpaque(Dialect, a.js, Checker(&check), Options(a.js))
}

func toRef(a toArg) *s.Node {
	name, _ := localRef(a.js.Ref)
	return s.Ref(name, Options(a.js))
}

func toHinted(a toArg) *s.Node {
	js, o := a.js, Options(a.js)
	k, _ := s.ParseKind(hint(js))
	switch k {
	case s.KindUndefined:
		return s.Undefined(o)
	case s.KindVoid:
		return s.Void(o)
	case s.KindSymbol:
		return s.Symbol(o)
	case s.KindUnknown:
		return s.Unknown(o)
	case s.KindBigInt:
		return s.BigInt(o)
	case s.KindDate:
		o.Format = ""
		return s.Date(o)
	case s.KindRegExp:
		flags, _ := js.Extras[FlagsHint].(string)
		return s.RegExp(js.Pattern, flags, o)
	case s.KindPromise:
		if js.Items == nil {
			return s.Promise(s.Any(), o)
		}
		return s.Promise(a.sub(js.Items), o)
	case s.KindFunction, s.KindConstructor:
		params := make([]*s.Node, len(js.PrefixItems))
		for i, p := range js.PrefixItems {
			params[i] = a.sub(p)
		}
		ret := a.sub(schemaOf(js.Extras[ReturnsHint]))
		if k == s.KindConstructor {
			return s.Constructor(params, ret, o)
		}
		return s.Function(params, ret, o)
	}
	a.cfg.diag.Warnf("jsonschema: unknown kind hint %q ignored", hint(js))
	c := *js
	c.Extras = without(js.Extras, KindHint)
	return a.sub(&c)
}

func without(m map[string]any, key string) map[string]any {
	if len(m) <= 1 {
		return nil
	}
	out := make(map[string]any, len(m)-1)
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func toConst(a toArg) *s.Node { return s.Literal(a.js.Const, Options(a.js)) }

func toEnum(a toArg) *s.Node {
	vs := make([]*s.Node, len(a.js.Enum))
	for i, e := range a.js.Enum {
		vs[i] = s.Literal(e)
	}
	return s.Union(vs, Options(a.js))
}

func toUnion(a toArg) *s.Node {
	vs := make([]*s.Node, len(a.js.AnyOf))
	for i, v := range a.js.AnyOf {
		vs[i] = a.sub(v)
	}
	return s.Union(vs, Options(a.js))
}

func toIntersect(a toArg) *s.Node {
	ps := make([]*s.Node, len(a.js.AllOf))
	for i, p := range a.js.AllOf {
		ps[i] = a.sub(p)
	}
	return s.Intersect(ps, Options(a.js))
}

func toTuple(a toArg) *s.Node {
	items := make([]*s.Node, len(a.js.PrefixItems))
	for i, it := range a.js.PrefixItems {
		items[i] = a.sub(it)
	}
	return s.Tuple(items, Options(a.js))
}

func toArray(a toArg) *s.Node {
	if a.js.Items == nil {
		return s.Array(s.Any(), Options(a.js))
	}
	return s.Array(a.sub(a.js.Items), Options(a.js))
}

func toRecord(a toArg) *s.Node {
	for p, v := range a.js.PatternProperties {
		return s.Record(p, a.sub(v), Options(a.js))
	}
	return s.Never()
}

func toObject(a toArg) *s.Node {
	js := a.js
	var props []s.Property
	if js.Properties != nil {
		for pair := js.Properties.Oldest(); pair != nil; pair = pair.Next() {
			child := a.sub(pair.Value)
			if !slices.Contains(js.Required, pair.Key) {
				child = s.Optional(child)
			}
			props = append(props, s.P(pair.Key, child))
		}
	}
	n := s.Object(props, Options(js))
	switch ap := js.AdditionalProperties; {
	case ap == nil, isTrue(ap):
	case isFalse(ap):
		n = s.Strict(n)
	default:
		n = s.WithAdditional(n, a.sub(ap))
	}
	return n
}

func toScalar(a toArg) *s.Node {
	o := Options(a.js)
	switch a.js.Type {
	case "null":
		return s.Null(o)
	case "boolean":
		return s.Boolean(o)
	case "number":
		return s.Number(o)
	case "integer":
		return s.Integer(o)
	}
	return s.String(o)
}
