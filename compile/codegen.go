package compile

import (
	"fmt"
	"strconv"
	"strings"

	s "github.com/reoring/typebridge/schema"
)

// generator renders a schema as a boolean expr-lang expression over the
// variable v. Every non-trivial constant (patterns, bounds, literals, key
// lists) goes through the constant table c, so no user text is ever spliced
// into the source.
type generator struct {
	consts []any
}

func (g *generator) c(v any) string {
	g.consts = append(g.consts, v)
	return "c[" + strconv.Itoa(len(g.consts)-1) + "]"
}

// and joins conjuncts, dropping trivially true ones.
func and(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p != "" && p != "true" {
			keep = append(keep, p)
		}
	}
	switch len(keep) {
	case 0:
		return "true"
	case 1:
		return keep[0]
	}
	for _, p := range keep {
		if p == "false" {
			return "false"
		}
	}
	return "(" + strings.Join(keep, " && ") + ")"
}

func or(parts ...string) string {
	for _, p := range parts {
		if p == "true" {
			return "true"
		}
	}
	var keep []string
	for _, p := range parts {
		if p != "false" {
			keep = append(keep, p)
		}
	}
	switch len(keep) {
	case 0:
		return "false"
	case 1:
		return keep[0]
	}
	return "(" + strings.Join(keep, " || ") + ")"
}

func call(fn string, args ...string) string {
	return fn + "(" + strings.Join(args, ", ") + ")"
}

// expr returns the check of n against the value expression x.
func (g *generator) expr(n *s.Node, x string) string {
	switch n.Kind {
	case s.KindAny, s.KindUnknown:
		return "true"
	case s.KindNever:
		return "false"
	case s.KindOptional:
		return or(call("isUndefined", x), g.expr(n.Item, x))
	case s.KindReadonly, s.KindTransform:
		return g.expr(n.Item, x)
	case s.KindNull:
		return call("isNull", x)
	case s.KindUndefined:
		return call("isUndefined", x)
	case s.KindVoid:
		return call("isVoid", x)
	case s.KindBoolean:
		return call("isBool", x)
	case s.KindSymbol:
		return call("isSymbol", x)
	case s.KindDate:
		return call("isDate", x)
	case s.KindPromise:
		return call("isPromise", x)
	case s.KindFunction, s.KindConstructor:
		return call("isFunction", x)
	case s.KindNumber:
		return and(append([]string{call("isNumber", x)}, g.numeric(n, x)...)...)
	case s.KindInteger:
		return and(append([]string{call("isInteger", x)}, g.numeric(n, x)...)...)
	case s.KindBigInt:
		return and(append([]string{call("isBigInt", x)}, g.numeric(n, x)...)...)
	case s.KindString:
		parts := append([]string{call("isString", x)}, g.lengths(n, x)...)
		if n.Pattern != "" {
			parts = append(parts, call("matchOK", x, g.c(n.Pattern)))
		}
		if n.Format != "" {
			parts = append(parts, call("formatOK", x, g.c(n.Format)))
		}
		return and(parts...)
	case s.KindRegExp:
		parts := []string{call("isString", x), call("matchFlagsOK", x, g.c(n.Pattern), g.c(n.Flags))}
		return and(append(parts, g.lengths(n, x)...)...)
	case s.KindLiteral:
		return call("eqLit", x, g.c(n.Literal))
	case s.KindArray:
		parts := append([]string{call("isArray", x)}, g.itemCount(n, x)...)
		if n.UniqueItems {
			parts = append(parts, call("uniqueOK", x))
		}
		if item := g.expr(n.Item, "#"); item != "true" {
			parts = append(parts, "all("+call("arr", x)+", {"+item+"})")
		}
		return and(parts...)
	case s.KindTuple:
		parts := append([]string{call("isArray", x)}, g.itemCount(n, x)...)
		for i, it := range n.Items {
			idx := strconv.Itoa(i)
			if e := g.expr(it, call("at", x, idx)); e != "true" {
				parts = append(parts, or("!"+call("hasIndex", x, idx), e))
			}
		}
		return and(parts...)
	case s.KindObject:
		return g.object(n, x)
	case s.KindRecord:
		parts := append([]string{call("isObject", x)}, g.propCount(n, x)...)
		entry := and(call("matchOK", "#.k", g.c(n.KeyPattern)), g.expr(n.Item, "#.v"))
		parts = append(parts, "all("+call("entriesOf", x)+", {"+entry+"})")
		return and(parts...)
	case s.KindUnion:
		vs := make([]string, len(n.Items))
		for i, it := range n.Items {
			vs[i] = g.expr(it, x)
		}
		return or(vs...)
	case s.KindIntersect:
		ps := make([]string, len(n.Items))
		for i, it := range n.Items {
			ps[i] = g.expr(it, x)
		}
		return and(ps...)
	case s.KindRef:
		return call("refOK", g.c(n.Ref), x)
	case s.KindOpaque:
		return call("opaqueOK", g.c(n.Opaque), x)
	}
	return "false"
}

func (g *generator) numeric(n *s.Node, x string) []string {
	var out []string
	add := func(fn string, b *float64) {
		if b != nil {
			out = append(out, call(fn, x, g.c(*b)))
		}
	}
	add("gte", n.Minimum)
	add("gtx", n.ExclusiveMinimum)
	add("lte", n.Maximum)
	add("ltx", n.ExclusiveMaximum)
	add("multOf", n.MultipleOf)
	return out
}

func (g *generator) lengths(n *s.Node, x string) []string {
	var out []string
	if n.MinLength != nil {
		out = append(out, call("minLen", x, strconv.Itoa(*n.MinLength)))
	}
	if n.MaxLength != nil {
		out = append(out, call("maxLen", x, strconv.Itoa(*n.MaxLength)))
	}
	return out
}

func (g *generator) itemCount(n *s.Node, x string) []string {
	var out []string
	if n.MinItems != nil {
		out = append(out, call("minItems", x, strconv.Itoa(*n.MinItems)))
	}
	if n.MaxItems != nil {
		out = append(out, call("maxItems", x, strconv.Itoa(*n.MaxItems)))
	}
	return out
}

func (g *generator) propCount(n *s.Node, x string) []string {
	var out []string
	if n.MinProperties != nil {
		out = append(out, call("minProps", x, strconv.Itoa(*n.MinProperties)))
	}
	if n.MaxProperties != nil {
		out = append(out, call("maxProps", x, strconv.Itoa(*n.MaxProperties)))
	}
	return out
}

func (g *generator) object(n *s.Node, x string) string {
	parts := append([]string{call("isObject", x)}, g.propCount(n, x)...)
	for _, p := range n.Properties {
		key := g.c(p.Key)
		val := g.expr(p.Schema, call("prop", x, key))
		has := call("hasProp", x, key)
		if p.Optional || p.Schema.AcceptsUndefined() {
			parts = append(parts, or("!"+has, val))
		} else {
			parts = append(parts, and(has, val))
		}
	}
	if ap := n.AdditionalProperties; ap != nil {
		keys := g.c(n.Keys())
		if ap.Kind == s.KindNever {
			parts = append(parts, call("onlyKeys", x, keys))
		} else if e := g.expr(ap, "#"); e != "true" {
			parts = append(parts, "all("+call("extrasOf", x, keys)+", {"+e+"})")
		}
	}
	return and(parts...)
}

// Generate renders n as an expr-lang source plus its constant table. It is
// exported for debugging tools; validators call it internally.
func Generate(n *s.Node) (src string, consts []any, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, consts, err = "", nil, fmt.Errorf("compile: generate: %v", r)
		}
	}()
	g := &generator{}
	return g.expr(n, "v"), g.consts, nil
}
