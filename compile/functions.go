package compile

import (
	"errors"

	"github.com/expr-lang/expr"

	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

var errPanic = errors.New("compile: expr compiler panicked")

func pred(name string, fn func(any) bool) expr.Option {
	return expr.Function(name, func(a ...any) (any, error) {
		return fn(a[0]), nil
	}, new(func(any) bool))
}

func pred2(name string, fn func(any, any) bool) expr.Option {
	return expr.Function(name, func(a ...any) (any, error) {
		return fn(a[0], a[1]), nil
	}, new(func(any, any) bool))
}

func predN(name string, fn func(any, int) bool) expr.Option {
	return expr.Function(name, func(a ...any) (any, error) {
		return fn(a[0], a[1].(int)), nil
	}, new(func(any, int) bool))
}

func bound(cmp func(f, b float64) bool) func(any, any) bool {
	return func(x, b any) bool {
		f, ok := toFloat(x)
		bf, _ := b.(float64)
		return ok && cmp(f, bf)
	}
}

func strLen(cmp func(l, n int) bool) func(any, int) bool {
	return func(x any, n int) bool {
		str, ok := x.(string)
		return ok && cmp(runeLen(str), n)
	}
}

func arrLen(cmp func(l, n int) bool) func(any, int) bool {
	return func(x any, n int) bool {
		a, ok := asArray(x)
		return ok && cmp(len(a), n)
	}
}

func propLen(cmp func(l, n int) bool) func(any, int) bool {
	return func(x any, n int) bool {
		m, ok := asObject(x)
		if !ok {
			return false
		}
		c := 0
		for _, v := range m {
			if !isUndefined(v) {
				c++
			}
		}
		return cmp(c, n)
	}
}

func ge(a, b int) bool { return a >= b }
func le(a, b int) bool { return a <= b }

// functions binds the runtime predicates for one validator. Closures over v
// give generated code access to its format registry and references.
func (v *Validator) functions() []expr.Option {
	return []expr.Option{
		pred("isNull", isNull),
		pred("isUndefined", isUndefined),
		pred("isVoid", isVoid),
		pred("isBool", isBool),
		pred("isString", isString),
		pred("isSymbol", isSymbol),
		pred("isDate", isDate),
		pred("isPromise", isPromise),
		pred("isFunction", isFunction),
		pred("isNumber", isNumber),
		pred("isInteger", isInteger),
		pred("isBigInt", isBigInt),
		pred("isObject", isObject),
		pred("isArray", isArray),
		pred("uniqueOK", func(x any) bool {
			a, ok := asArray(x)
			return ok && uniqueItems(a)
		}),

		predN("minLen", strLen(ge)),
		predN("maxLen", strLen(le)),
		predN("minItems", arrLen(ge)),
		predN("maxItems", arrLen(le)),
		predN("minProps", propLen(ge)),
		predN("maxProps", propLen(le)),
		predN("hasIndex", func(x any, i int) bool {
			a, ok := asArray(x)
			return ok && i < len(a)
		}),

		pred2("gte", bound(func(f, b float64) bool { return f >= b })),
		pred2("gtx", bound(func(f, b float64) bool { return f > b })),
		pred2("lte", bound(func(f, b float64) bool { return f <= b })),
		pred2("ltx", bound(func(f, b float64) bool { return f < b })),
		pred2("multOf", bound(multipleOf)),
		pred2("eqLit", equalValue),
		pred2("matchOK", func(x, p any) bool {
			str, ok := x.(string)
			src, _ := p.(string)
			return ok && pattern.Match(src, str)
		}),
		pred2("formatOK", func(x, name any) bool {
			str, _ := x.(string)
			fmtName, _ := name.(string)
			ok, _ := v.formats.Check(fmtName, str)
			return ok
		}),
		pred2("hasProp", func(x, k any) bool {
			m, ok := asObject(x)
			key, _ := k.(string)
			return ok && present(m, key)
		}),
		pred2("onlyKeys", func(x, keys any) bool {
			m, ok := asObject(x)
			if !ok {
				return false
			}
			known := keys.([]string)
			for k, val := range m {
				if isUndefined(val) {
					continue
				}
				if !contains(known, k) {
					return false
				}
			}
			return true
		}),
		pred2("refOK", func(name, x any) bool {
			id, _ := name.(string)
			target, ok := v.refs[id]
			return ok && v.check(target, x)
		}),
		pred2("opaqueOK", func(o, x any) bool {
			op, _ := o.(*s.Opaque)
			return op != nil && op.Check != nil && op.Check(x)
		}),
		expr.Function("matchFlagsOK", func(a ...any) (any, error) {
			str, ok := a[0].(string)
			src, _ := a[1].(string)
			flags, _ := a[2].(string)
			return ok && pattern.MatchFlags(src, flags, str), nil
		}, new(func(any, any, any) bool)),

		expr.Function("prop", func(a ...any) (any, error) {
			m, _ := asObject(a[0])
			key, _ := a[1].(string)
			if val, ok := m[key]; ok {
				return val, nil
			}
			return s.Undef, nil
		}, new(func(any, any) any)),
		expr.Function("at", func(a ...any) (any, error) {
			arr, _ := asArray(a[0])
			i := a[1].(int)
			if i < len(arr) {
				return arr[i], nil
			}
			return s.Undef, nil
		}, new(func(any, int) any)),
		expr.Function("arr", func(a ...any) (any, error) {
			arr, _ := asArray(a[0])
			return arr, nil
		}, new(func(any) []any)),
		expr.Function("entriesOf", func(a ...any) (any, error) {
			m, _ := asObject(a[0])
			out := make([]any, 0, len(m))
			for _, k := range sortedKeys(m) {
				if isUndefined(m[k]) {
					continue
				}
				out = append(out, map[string]any{"k": k, "v": m[k]})
			}
			return out, nil
		}, new(func(any) []any)),
		expr.Function("extrasOf", func(a ...any) (any, error) {
			m, _ := asObject(a[0])
			known := a[1].([]string)
			var out []any
			for _, k := range sortedKeys(m) {
				if !isUndefined(m[k]) && !contains(known, k) {
					out = append(out, m[k])
				}
			}
			return out, nil
		}, new(func(any, any) []any)),
	}
}

func contains(xs []string, x string) bool {
	for _, k := range xs {
		if k == x {
			return true
		}
	}
	return false
}
