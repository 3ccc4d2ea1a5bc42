package openapi

import (
	"strings"

	s "github.com/reoring/typebridge/schema"
)

// Options extracts the canonical options carried by m's keywords. Both the
// OpenAPI 3.0 boolean exclusiveMinimum/exclusiveMaximum and the 3.1 numeric
// forms are understood. Extension keywords without a canonical meaning are
// kept in Metadata.
func Options(m *Map) s.Options {
	o := annotations(m)
	o.MinLength = count(get(m, "minLength"))
	o.MaxLength = count(get(m, "maxLength"))
	o.Pattern = str(m, "pattern")
	o.Format = str(m, "format")
	o.MultipleOf = number(get(m, "multipleOf"))
	o.Minimum, o.ExclusiveMinimum = bound(m, "minimum", "exclusiveMinimum")
	o.Maximum, o.ExclusiveMaximum = bound(m, "maximum", "exclusiveMaximum")
	o.MinItems = count(get(m, "minItems"))
	o.MaxItems = count(get(m, "maxItems"))
	o.UniqueItems = flag(m, "uniqueItems") || str(m, extListType) == "set"
	o.MinProperties = count(get(m, "minProperties"))
	o.MaxProperties = count(get(m, "maxProperties"))
	o.Discriminator = discriminated(m).Discriminator
	for p := m.Oldest(); p != nil; p = p.Next() {
		if !strings.HasPrefix(p.Key, "x-") || interpreted[p.Key] {
			continue
		}
		if o.Metadata == nil {
			o.Metadata = map[string]any{}
		}
		o.Metadata[p.Key] = plain(p.Value)
	}
	return o
}

var interpreted = map[string]bool{
	extIntOrString:     true,
	extPreserveUnknown: true,
	extListType:        true,
	extListMapKeys:     true,
	extEmbedded:        true,
}

// annotations are the options every node accepts.
func annotations(m *Map) s.Options {
	o := s.Options{Title: str(m, "title"), Description: str(m, "description")}
	if has(m, "default") {
		o.Default, o.HasDefault = plain(get(m, "default")), true
	}
	return o
}

func discriminated(m *Map) s.Options {
	switch d := get(m, "discriminator").(type) {
	case *Map:
		return s.Options{Discriminator: str(d, "propertyName")}
	case string:
		return s.Options{Discriminator: d}
	}
	return s.Options{}
}

// bound reads an inclusive keyword and its exclusive counterpart.
func bound(m *Map, inclusive, exclusive string) (incl, excl *float64) {
	incl = number(get(m, inclusive))
	switch e := get(m, exclusive).(type) {
	case bool:
		if e {
			return nil, incl
		}
	default:
		excl = number(e)
	}
	return incl, excl
}

func number(v any) *float64 {
	f, ok := s.ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

func count(v any) *int {
	f := number(v)
	if f == nil || *f < 0 || *f != float64(int(*f)) {
		return nil
	}
	return s.Int(int(*f))
}
