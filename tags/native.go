package tags

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/i18n"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Registration only fails on an empty name or nil function.
	_ = v.RegisterValidation("pattern", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		return f.Kind() == reflect.String && pattern.Match(fl.Param(), f.String())
	})
	return v
}

// RegisterValidation adds a custom check usable in tags of this dialect.
func RegisterValidation(name string, fn validator.Func) error {
	return validate.RegisterValidation(name, fn)
}

// Var runs tag on a single value. A tag that does not apply to the value's
// kind fails instead of panicking.
func Var(v any, tag string) (err error) {
	if tag == "" {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tags: %q does not apply to %T: %v", tag, v, r)
		}
	}()
	return validate.Var(v, tag)
}

// Validate checks v against r with the validator engine and returns nil or
// typebridge.Issues.
func Validate(r *Rule, v any) error {
	var iss tb.Issues
	(&native{emit: func(is tb.Issue) bool {
		iss = append(iss, is)
		return true
	}}).visit(r, tb.Path{}, v)
	if iss == nil {
		return nil
	}
	return iss
}

// Matches reports whether v satisfies r.
func Matches(r *Rule, v any) bool {
	ok := true
	(&native{emit: func(tb.Issue) bool {
		ok = false
		return false
	}}).visit(r, tb.Path{}, v)
	return ok
}

type native struct {
	emit    func(tb.Issue) bool
	stopped bool
}

func (n *native) fail(p tb.Path, code string, data map[string]string) {
	if n.stopped {
		return
	}
	if !n.emit(tb.Issue{Path: p, Code: code, Message: i18n.T(code, data)}) {
		n.stopped = true
	}
}

// presenceOnly are checks handled as field presence, not on values.
var presenceOnly = map[string]bool{"required": true, "omitempty": true}

func valueTag(tag string) string {
	var keep []Check
	for _, c := range Parse(tag) {
		if !presenceOnly[c.Name] {
			keep = append(keep, c)
		}
	}
	return Join(keep)
}

func (n *native) visit(r *Rule, p tb.Path, v any) {
	if n.stopped {
		return
	}
	if r == nil {
		n.fail(p, tb.CodeNever, nil)
		return
	}
	if s.IsUndefined(v) {
		v = nil
	}
	v, ok := n.typed(r, v)
	if !ok {
		if r.Type == TypeNever {
			n.fail(p, tb.CodeNever, nil)
		} else {
			n.fail(p, tb.CodeInvalidType, map[string]string{"expected": string(r.Type), "actual": fmt.Sprintf("%T", v)})
		}
		return
	}
	if tag := valueTag(r.Tag); tag != "" && v != nil {
		if err := Var(v, tag); err != nil {
			n.fail(p, codeOf(err), map[string]string{"dialect": Dialect, "format": tag, "expected": tag})
			return
		}
	}
	switch r.Type {
	case TypeStruct:
		m := v.(map[string]any)
		for _, f := range r.Fields {
			val, has := m[f.Name]
			if !has || s.IsUndefined(val) {
				if f.Rule.Required() {
					n.fail(p.Field(f.Name), tb.CodeRequired, map[string]string{"key": f.Name})
				}
				continue
			}
			n.visit(f.Rule, p.Field(f.Name), val)
		}
		if r.Strict {
			for _, k := range sortedKeys(m) {
				if _, declared := r.Field(k); !declared && !s.IsUndefined(m[k]) {
					n.fail(p.Field(k), tb.CodeUnknownKey, map[string]string{"key": k})
				}
			}
		}
	case TypeMap:
		m := v.(map[string]any)
		for _, k := range sortedKeys(m) {
			if s.IsUndefined(m[k]) {
				continue
			}
			if tag := valueTag(r.KeyTag); tag != "" {
				if err := Var(k, tag); err != nil {
					n.fail(p.Field(k), tb.CodeInvalidKey, map[string]string{"pattern": tag})
					continue
				}
			}
			if r.Elem != nil {
				n.visit(r.Elem, p.Field(k), m[k])
			}
		}
	case TypeSlice:
		a := v.([]any)
		for i, e := range a {
			switch {
			case len(r.Items) > 0:
				if i < len(r.Items) {
					n.visit(r.Items[i], p.Index(i), e)
				}
			case r.Elem != nil:
				n.visit(r.Elem, p.Index(i), e)
			}
		}
	case TypeUnion:
		for _, variant := range r.Variants {
			if Matches(variant, v) {
				return
			}
		}
		n.fail(p, tb.CodeInvalidUnion, nil)
	}
}

// typed checks the base type and returns v in the form the validator
// engine expects for it.
func (n *native) typed(r *Rule, v any) (any, bool) {
	switch r.Type {
	case TypeAny, TypeCustom, TypeUnion:
		return normalizeNumber(v), true
	case TypeNever:
		return v, false
	case TypeNull:
		return v, v == nil
	case TypeBool:
		_, ok := v.(bool)
		return v, ok
	case TypeString:
		_, ok := v.(string)
		return v, ok
	case TypeTime:
		_, ok := v.(time.Time)
		return v, ok
	case TypeInt:
		f, ok := number(v)
		if !ok || f != math.Trunc(f) || math.IsInf(f, 0) {
			return v, false
		}
		return int64(f), true
	case TypeFloat:
		f, ok := number(v)
		return f, ok && !math.IsInf(f, 0) && !math.IsNaN(f)
	case TypeSlice:
		a, ok := asSlice(v)
		return a, ok
	case TypeMap, TypeStruct:
		m, ok := asMap(v)
		return m, ok
	}
	return v, false
}

func number(v any) (float64, bool) {
	if _, isBool := v.(bool); isBool {
		return 0, false
	}
	return s.ToFloat(v)
}

func normalizeNumber(v any) any {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}

func asSlice(v any) ([]any, bool) {
	if a, ok := v.([]any); ok {
		return a, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func asMap(v any) (map[string]any, bool) {
	if m, ok := v.(map[string]any); ok {
		return m, true
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	for it := rv.MapRange(); it.Next(); {
		out[it.Key().String()] = it.Value().Interface()
	}
	return out, true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// codeOf maps the first failed validation of err to an issue code.
func codeOf(err error) string {
	var tag string
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		tag = ve[0].Tag()
	}
	switch tag {
	case "min", "gte", "gt":
		return tb.CodeTooSmall
	case "max", "lte", "lt":
		return tb.CodeTooBig
	case "len", "eq_len":
		return tb.CodeTooShort
	case "pattern", "startswith", "endswith", "contains", "alpha", "alphanum", "numeric":
		return tb.CodePattern
	case "eq", "oneof":
		return tb.CodeInvalidLiteral
	case "unique":
		return tb.CodeNotUnique
	case "datetime":
		return tb.CodeInvalidFormat
	}
	if _, ok := formatTags[tag]; ok {
		return tb.CodeInvalidFormat
	}
	return tb.CodeOpaque
}
