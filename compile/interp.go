package compile

import (
	"fmt"
	"sort"
	"strconv"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/i18n"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

// maxDepth bounds reference expansion on cyclic values.
const maxDepth = 512

// walker visits a schema and a value together, reporting each failure to
// emit. A false return from emit stops the walk; visit then returns false
// all the way up.
type walker struct {
	v     *Validator
	emit  func(tb.ValueError) bool
	depth int
}

func (w *walker) fail(n *s.Node, p tb.Path, v any, code string, data map[string]string) bool {
	return w.emit(tb.ValueError{Path: p, Code: code, Message: i18n.T(code, data), Schema: n, Value: v})
}

func (w *walker) typeErr(n *s.Node, p tb.Path, v any, expected string) bool {
	return w.fail(n, p, v, tb.CodeInvalidType, map[string]string{"expected": expected, "got": typeName(v)})
}

func (w *walker) visit(n *s.Node, p tb.Path, v any) bool {
	switch n.Kind {
	case s.KindAny, s.KindUnknown:
		return true
	case s.KindNever:
		return w.fail(n, p, v, tb.CodeNever, nil)
	case s.KindOptional:
		if isUndefined(v) {
			return true
		}
		return w.visit(n.Item, p, v)
	case s.KindReadonly, s.KindTransform:
		return w.visit(n.Item, p, v)
	case s.KindNull:
		if !isNull(v) {
			return w.typeErr(n, p, v, "null")
		}
	case s.KindUndefined:
		if !isUndefined(v) {
			return w.typeErr(n, p, v, "undefined")
		}
	case s.KindVoid:
		if !isVoid(v) {
			return w.typeErr(n, p, v, "void")
		}
	case s.KindBoolean:
		if !isBool(v) {
			return w.typeErr(n, p, v, "boolean")
		}
	case s.KindSymbol:
		if !isSymbol(v) {
			return w.typeErr(n, p, v, "symbol")
		}
	case s.KindDate:
		if !isDate(v) {
			return w.typeErr(n, p, v, "date")
		}
	case s.KindPromise:
		if !isPromise(v) {
			return w.typeErr(n, p, v, "promise")
		}
	case s.KindFunction, s.KindConstructor:
		if !isFunction(v) {
			return w.typeErr(n, p, v, n.Kind.String())
		}
	case s.KindNumber:
		if !isNumber(v) {
			return w.typeErr(n, p, v, "number")
		}
		return w.numeric(n, p, v)
	case s.KindInteger:
		if !isInteger(v) {
			return w.typeErr(n, p, v, "integer")
		}
		return w.numeric(n, p, v)
	case s.KindBigInt:
		if !isBigInt(v) {
			return w.typeErr(n, p, v, "bigint")
		}
		return w.numeric(n, p, v)
	case s.KindString:
		str, ok := v.(string)
		if !ok {
			return w.typeErr(n, p, v, "string")
		}
		return w.str(n, p, str)
	case s.KindRegExp:
		str, ok := v.(string)
		if !ok {
			return w.typeErr(n, p, v, "string")
		}
		if !pattern.MatchFlags(n.Pattern, n.Flags, str) {
			if !w.fail(n, p, v, tb.CodePattern, map[string]string{"pattern": n.Pattern}) {
				return false
			}
		}
		return w.lengths(n, p, str)
	case s.KindLiteral:
		if !equalValue(v, n.Literal) {
			return w.fail(n, p, v, tb.CodeInvalidLiteral, map[string]string{"expected": literalText(n.Literal)})
		}
	case s.KindArray:
		return w.array(n, p, v)
	case s.KindTuple:
		return w.tuple(n, p, v)
	case s.KindObject:
		return w.object(n, p, v)
	case s.KindRecord:
		return w.record(n, p, v)
	case s.KindUnion:
		return w.union(n, p, v)
	case s.KindIntersect:
		for _, part := range n.Items {
			if !w.visit(part, p, v) {
				return false
			}
		}
	case s.KindRef:
		target, ok := w.v.refs[n.Ref]
		if !ok {
			return w.fail(n, p, v, tb.CodeUnresolvedRef, map[string]string{"ref": n.Ref})
		}
		if w.depth >= maxDepth {
			return w.fail(n, p, v, tb.CodeNever, nil)
		}
		w.depth++
		ok = w.visit(target, p, v)
		w.depth--
		return ok
	case s.KindOpaque:
		if n.Opaque == nil || n.Opaque.Check == nil || !n.Opaque.Check(v) {
			dialect := ""
			if n.Opaque != nil {
				dialect = n.Opaque.Dialect
			}
			return w.fail(n, p, v, tb.CodeOpaque, map[string]string{"dialect": dialect})
		}
	default:
		return w.fail(n, p, v, tb.CodeNever, nil)
	}
	return true
}

func (w *walker) numeric(n *s.Node, p tb.Path, v any) bool {
	f, _ := toFloat(v)
	bound := func(code, key string, b float64) bool {
		return w.fail(n, p, v, code, map[string]string{key: strconv.FormatFloat(b, 'f', -1, 64)})
	}
	if n.Minimum != nil && f < *n.Minimum && !bound(tb.CodeTooSmall, "minimum", *n.Minimum) {
		return false
	}
	if n.ExclusiveMinimum != nil && f <= *n.ExclusiveMinimum && !bound(tb.CodeTooSmall, "exclusiveMinimum", *n.ExclusiveMinimum) {
		return false
	}
	if n.Maximum != nil && f > *n.Maximum && !bound(tb.CodeTooBig, "maximum", *n.Maximum) {
		return false
	}
	if n.ExclusiveMaximum != nil && f >= *n.ExclusiveMaximum && !bound(tb.CodeTooBig, "exclusiveMaximum", *n.ExclusiveMaximum) {
		return false
	}
	if n.MultipleOf != nil && !multipleOf(f, *n.MultipleOf) && !bound(tb.CodeNotMultipleOf, "multipleOf", *n.MultipleOf) {
		return false
	}
	return true
}

func (w *walker) lengths(n *s.Node, p tb.Path, str string) bool {
	l := runeLen(str)
	if n.MinLength != nil && l < *n.MinLength && !w.fail(n, p, str, tb.CodeTooShort, map[string]string{"min": strconv.Itoa(*n.MinLength)}) {
		return false
	}
	if n.MaxLength != nil && l > *n.MaxLength && !w.fail(n, p, str, tb.CodeTooLong, map[string]string{"max": strconv.Itoa(*n.MaxLength)}) {
		return false
	}
	return true
}

func (w *walker) str(n *s.Node, p tb.Path, str string) bool {
	if !w.lengths(n, p, str) {
		return false
	}
	if n.Pattern != "" && !pattern.Match(n.Pattern, str) && !w.fail(n, p, str, tb.CodePattern, map[string]string{"pattern": n.Pattern}) {
		return false
	}
	if n.Format != "" {
		ok, known := w.v.formats.Check(n.Format, str)
		switch {
		case !known:
			return w.fail(n, p, str, tb.CodeUnknownFormat, map[string]string{"format": n.Format})
		case !ok:
			return w.fail(n, p, str, tb.CodeInvalidFormat, map[string]string{"format": n.Format})
		}
	}
	return true
}

func (w *walker) array(n *s.Node, p tb.Path, v any) bool {
	items, ok := asArray(v)
	if !ok {
		return w.typeErr(n, p, v, "array")
	}
	if !w.itemCount(n, p, v, len(items)) {
		return false
	}
	if n.UniqueItems && !uniqueItems(items) && !w.fail(n, p, v, tb.CodeNotUnique, nil) {
		return false
	}
	for i, it := range items {
		if !w.visit(n.Item, p.Index(i), it) {
			return false
		}
	}
	return true
}

func (w *walker) itemCount(n *s.Node, p tb.Path, v any, l int) bool {
	if n.MinItems != nil && l < *n.MinItems && !w.fail(n, p, v, tb.CodeTooShort, map[string]string{"min": strconv.Itoa(*n.MinItems)}) {
		return false
	}
	if n.MaxItems != nil && l > *n.MaxItems && !w.fail(n, p, v, tb.CodeTooLong, map[string]string{"max": strconv.Itoa(*n.MaxItems)}) {
		return false
	}
	return true
}

func (w *walker) tuple(n *s.Node, p tb.Path, v any) bool {
	items, ok := asArray(v)
	if !ok {
		return w.typeErr(n, p, v, "array")
	}
	if !w.itemCount(n, p, v, len(items)) {
		return false
	}
	for i, it := range items {
		if i >= len(n.Items) {
			break
		}
		if !w.visit(n.Items[i], p.Index(i), it) {
			return false
		}
	}
	return true
}

func (w *walker) propCount(n *s.Node, p tb.Path, v any, m map[string]any) bool {
	c := 0
	for _, x := range m {
		if !isUndefined(x) {
			c++
		}
	}
	if n.MinProperties != nil && c < *n.MinProperties && !w.fail(n, p, v, tb.CodeTooSmall, map[string]string{"min": strconv.Itoa(*n.MinProperties)}) {
		return false
	}
	if n.MaxProperties != nil && c > *n.MaxProperties && !w.fail(n, p, v, tb.CodeTooBig, map[string]string{"max": strconv.Itoa(*n.MaxProperties)}) {
		return false
	}
	return true
}

func (w *walker) object(n *s.Node, p tb.Path, v any) bool {
	m, ok := asObject(v)
	if !ok {
		return w.typeErr(n, p, v, "object")
	}
	if !w.propCount(n, p, v, m) {
		return false
	}
	for _, prop := range n.Properties {
		if !present(m, prop.Key) {
			if !prop.Optional && !prop.Schema.AcceptsUndefined() {
				if !w.fail(prop.Schema, p.Field(prop.Key), nil, tb.CodeRequired, map[string]string{"key": prop.Key}) {
					return false
				}
			}
			continue
		}
		if !w.visit(prop.Schema, p.Field(prop.Key), m[prop.Key]) {
			return false
		}
	}
	if n.AdditionalProperties == nil {
		return true
	}
	for _, k := range extraKeys(n, m) {
		if n.AdditionalProperties.Kind == s.KindNever {
			if !w.fail(n, p.Field(k), m[k], tb.CodeUnknownKey, map[string]string{"key": k}) {
				return false
			}
			continue
		}
		if !w.visit(n.AdditionalProperties, p.Field(k), m[k]) {
			return false
		}
	}
	return true
}

// extraKeys lists the undeclared keys of m in sorted order.
func extraKeys(n *s.Node, m map[string]any) []string {
	var out []string
	for k, v := range m {
		if isUndefined(v) {
			continue
		}
		if _, declared := n.Property(k); !declared {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func sortedKeys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (w *walker) record(n *s.Node, p tb.Path, v any) bool {
	m, ok := asObject(v)
	if !ok {
		return w.typeErr(n, p, v, "object")
	}
	if !w.propCount(n, p, v, m) {
		return false
	}
	for _, k := range sortedKeys(m) {
		if isUndefined(m[k]) {
			continue
		}
		if !pattern.Match(n.KeyPattern, k) {
			if !w.fail(n, p.Field(k), m[k], tb.CodeInvalidKey, map[string]string{"key": k, "pattern": n.KeyPattern}) {
				return false
			}
			continue
		}
		if !w.visit(n.Item, p.Field(k), m[k]) {
			return false
		}
	}
	return true
}

func (w *walker) union(n *s.Node, p tb.Path, v any) bool {
	if key, ok := discriminator(n); ok {
		return w.discriminated(n, key, p, v)
	}
	for _, variant := range n.Items {
		if w.v.check(variant, v) {
			return true
		}
	}
	return w.fail(n, p, v, tb.CodeInvalidUnion, nil)
}

// discriminated dispatches on the discriminator property: every variant
// whose literal matches is tried, and errors come from the first of them.
func (w *walker) discriminated(n *s.Node, key string, p tb.Path, v any) bool {
	m, ok := asObject(v)
	if !ok {
		return w.typeErr(n, p, v, "object")
	}
	tag, ok := m[key]
	if !ok || isUndefined(tag) {
		return w.fail(n, p.Field(key), nil, tb.CodeDiscriminatorMissing, map[string]string{"key": key})
	}
	var first *s.Node
	for _, variant := range n.Items {
		lit, _ := variant.Property(key)
		if !equalValue(tag, lit.Schema.Literal) {
			continue
		}
		if w.v.check(variant, v) {
			return true
		}
		if first == nil {
			first = variant
		}
	}
	if first == nil {
		return w.fail(n, p.Field(key), tag, tb.CodeDiscriminatorUnknown, map[string]string{"key": key})
	}
	return w.visit(first, p, v)
}

// discriminator returns the union's discriminator key when every variant is
// an object declaring it as a required literal property.
func discriminator(n *s.Node) (string, bool) {
	if n.Discriminator == "" {
		return "", false
	}
	for _, variant := range n.Items {
		if variant.Kind != s.KindObject {
			return "", false
		}
		prop, ok := variant.Property(n.Discriminator)
		if !ok || prop.Optional || prop.Schema.Kind != s.KindLiteral {
			return "", false
		}
	}
	return n.Discriminator, true
}

func literalText(v any) string {
	if str, ok := v.(string); ok {
		return strconv.Quote(str)
	}
	return fmt.Sprint(v)
}
