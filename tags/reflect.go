package tags

import (
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeFor[time.Time]()

// Reflect builds a rule tree from the Go type of v. Struct fields are named
// by their json tag and checked by their `validate` tag; "dive" splits a
// tag between a container and its elements, with map key checks between
// "keys" and "endkeys". Recursive types are cut with an any rule.
func Reflect(v any) *Rule {
	return reflectType(reflect.TypeOf(v), "", map[reflect.Type]bool{})
}

func reflectType(t reflect.Type, tag string, seen map[reflect.Type]bool) *Rule {
	if t == nil {
		return &Rule{Type: TypeAny}
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	own, keyTag, elemTag := splitDive(tag)
	if t == timeType {
		return &Rule{Type: TypeTime, Tag: own}
	}
	switch t.Kind() {
	case reflect.Bool:
		return &Rule{Type: TypeBool, Tag: own}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Rule{Type: TypeInt, Tag: own}
	case reflect.Float32, reflect.Float64:
		return &Rule{Type: TypeFloat, Tag: own}
	case reflect.String:
		return &Rule{Type: TypeString, Tag: own}
	case reflect.Interface:
		return &Rule{Type: TypeAny, Tag: own}
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// encoding/json writes byte slices as base64 strings.
			return &Rule{Type: TypeString, Tag: own}
		}
		return &Rule{Type: TypeSlice, Tag: own, Elem: reflectType(t.Elem(), elemTag, seen)}
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return Never()
		}
		return &Rule{Type: TypeMap, Tag: own, KeyTag: keyTag, Elem: reflectType(t.Elem(), elemTag, seen)}
	case reflect.Struct:
		if seen[t] {
			return &Rule{Type: TypeAny, Tag: own}
		}
		seen[t] = true
		defer delete(seen, t)
		r := &Rule{Type: TypeStruct, Tag: own}
		r.Fields = structFields(t, seen)
		return r
	}
	return Never()
}

func structFields(t reflect.Type, seen map[reflect.Type]bool) []Field {
	var out []Field
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if f.Anonymous && name == "" && ft.Kind() == reflect.Struct {
			out = append(out, structFields(ft, seen)...)
			continue
		}
		if !f.IsExported() {
			continue
		}
		if name == "" {
			name = f.Name
		}
		out = append(out, Field{Name: name, Rule: reflectType(f.Type, f.Tag.Get("validate"), seen)})
	}
	return out
}

// splitDive separates the container checks of tag from its key and
// element checks.
func splitDive(tag string) (own, keys, elem string) {
	parts := strings.Split(tag, ",")
	for i, p := range parts {
		if p != "dive" {
			continue
		}
		own = strings.Join(parts[:i], ",")
		rest := parts[i+1:]
		if len(rest) > 0 && rest[0] == "keys" {
			for j, q := range rest {
				if q == "endkeys" {
					keys = strings.Join(rest[1:j], ",")
					rest = rest[j+1:]
					break
				}
			}
		}
		return own, keys, strings.Join(rest, ",")
	}
	return tag, "", ""
}
