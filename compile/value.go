package compile

import (
	"encoding/json"
	"math"
	"math/big"
	"reflect"
	"time"
	"unicode/utf8"

	s "github.com/reoring/typebridge/schema"
)

// Runtime predicates shared by the interpreter and the generated fast path.
// Values follow the conventions of decoded JSON: nil is null,
// map[string]any is an object, slices are arrays.

func isNull(v any) bool      { return v == nil }
func isUndefined(v any) bool { return s.IsUndefined(v) }

// isVoid accepts undefined and nil: Go has no separate "no value" for
// results.
func isVoid(v any) bool { return v == nil || s.IsUndefined(v) }

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

func isString(v any) bool {
	_, ok := v.(string)
	return ok
}

func isSymbol(v any) bool {
	switch v.(type) {
	case s.SymbolValue, *s.SymbolValue:
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	if b, ok := v.(*big.Int); ok && b != nil {
		f, _ := new(big.Float).SetInt(b).Float64()
		return f, true
	}
	return s.ToFloat(v)
}

// isNumber accepts finite Go numerics and json.Number.
func isNumber(v any) bool {
	if _, ok := v.(*big.Int); ok {
		return false
	}
	f, ok := s.ToFloat(v)
	return ok && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func isInteger(v any) bool {
	if !isNumber(v) {
		return false
	}
	if n, ok := v.(json.Number); ok {
		if _, err := n.Int64(); err == nil {
			return true
		}
	}
	f, _ := s.ToFloat(v)
	return f == math.Trunc(f)
}

func isBigInt(v any) bool {
	b, ok := v.(*big.Int)
	return ok && b != nil
}

func isDate(v any) bool {
	switch d := v.(type) {
	case time.Time:
		return true
	case *time.Time:
		return d != nil
	}
	return false
}

func isPromise(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Chan
}

func isFunction(v any) bool {
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// asObject views v as an object. Maps with string keys of any value type
// qualify.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

func isObject(v any) bool {
	_, ok := asObject(v)
	return ok
}

// asArray views v as an array. Byte slices count as arrays of numbers.
func asArray(v any) ([]any, bool) {
	switch a := v.(type) {
	case []any:
		return a, true
	case nil, string:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func isArray(v any) bool {
	_, ok := asArray(v)
	return ok
}

// present reports whether key holds a value other than undefined.
func present(m map[string]any, key string) bool {
	v, ok := m[key]
	return ok && !s.IsUndefined(v)
}

func runeLen(str string) int { return utf8.RuneCountInString(str) }

// equalValue compares values the way literals match: numbers by value,
// everything else structurally.
func equalValue(a, b any) bool {
	if ia, ok := exactInt(a); ok {
		if ib, ok := exactInt(b); ok {
			return ia.Cmp(ib) == 0
		}
	}
	if fa, ok := toFloat(a); ok && !isBigInt(a) {
		fb, ok := toFloat(b)
		return ok && !isBigInt(b) && fa == fb
	}
	if ba, ok := a.(*big.Int); ok {
		bb, ok := b.(*big.Int)
		return ok && ba.Cmp(bb) == 0
	}
	return reflect.DeepEqual(a, b)
}

// exactInt returns the value of an integral number without going through
// float64, so integers past 2^53 compare exactly. Bigints are not numbers.
func exactInt(v any) (*big.Int, bool) {
	if n, ok := v.(json.Number); ok {
		return new(big.Int).SetString(string(n), 10)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return big.NewInt(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return new(big.Int).SetUint64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return nil, false
		}
		i, _ := big.NewFloat(f).Int(nil)
		return i, true
	}
	return nil, false
}

// uniqueItems reports whether no two items are equal.
func uniqueItems(items []any) bool {
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if equalValue(items[i], items[j]) {
				return false
			}
		}
	}
	return true
}

// multipleOf tolerates binary rounding of decimal factors.
func multipleOf(v, m float64) bool {
	if m == 0 {
		return false
	}
	q := v / m
	return math.Abs(q-math.Round(q)) < 1e-9
}

// typeName describes v for error messages.
func typeName(v any) string {
	switch {
	case v == nil:
		return "null"
	case isUndefined(v):
		return "undefined"
	case isBool(v):
		return "boolean"
	case isString(v):
		return "string"
	case isBigInt(v):
		return "bigint"
	case isNumber(v):
		return "number"
	case isDate(v):
		return "date"
	case isArray(v):
		return "array"
	case isObject(v):
		return "object"
	case isFunction(v):
		return "function"
	case isPromise(v):
		return "promise"
	case isSymbol(v):
		return "symbol"
	}
	return reflect.TypeOf(v).String()
}
