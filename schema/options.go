package schema

import (
	"encoding/json"
	"math"
	"strconv"
)

// Options is the bag of refinements attached to a node. Absent options are
// nil pointers or zero strings; options that do not apply to a node's kind
// are ignored by validators and converters.
type Options struct {
	ID          string
	Title       string
	Description string
	Default     any
	HasDefault  bool
	Metadata    map[string]any

	// string
	MinLength *int
	MaxLength *int
	Pattern   string
	Format    string

	// number, integer, bigint
	Minimum          *float64
	Maximum          *float64
	ExclusiveMinimum *float64
	ExclusiveMaximum *float64
	MultipleOf       *float64

	// array, tuple
	MinItems    *int
	MaxItems    *int
	UniqueItems bool

	// object, record
	MinProperties *int
	MaxProperties *int

	// union
	Discriminator string
}

// Int returns a pointer to v, for option literals.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for option literals.
func Float(v float64) *float64 { return &v }

// Merge returns a copy of o where every option set in p replaces o's.
func (o Options) Merge(p Options) Options {
	if p.ID != "" {
		o.ID = p.ID
	}
	if p.Title != "" {
		o.Title = p.Title
	}
	if p.Description != "" {
		o.Description = p.Description
	}
	if p.HasDefault {
		o.Default, o.HasDefault = p.Default, true
	}
	if len(p.Metadata) > 0 {
		m := make(map[string]any, len(o.Metadata)+len(p.Metadata))
		for k, v := range o.Metadata {
			m[k] = v
		}
		for k, v := range p.Metadata {
			m[k] = v
		}
		o.Metadata = m
	}
	setInt(&o.MinLength, p.MinLength)
	setInt(&o.MaxLength, p.MaxLength)
	if p.Pattern != "" {
		o.Pattern = p.Pattern
	}
	if p.Format != "" {
		o.Format = p.Format
	}
	setFloat(&o.Minimum, p.Minimum)
	setFloat(&o.Maximum, p.Maximum)
	setFloat(&o.ExclusiveMinimum, p.ExclusiveMinimum)
	setFloat(&o.ExclusiveMaximum, p.ExclusiveMaximum)
	setFloat(&o.MultipleOf, p.MultipleOf)
	setInt(&o.MinItems, p.MinItems)
	setInt(&o.MaxItems, p.MaxItems)
	if p.UniqueItems {
		o.UniqueItems = true
	}
	setInt(&o.MinProperties, p.MinProperties)
	setInt(&o.MaxProperties, p.MaxProperties)
	if p.Discriminator != "" {
		o.Discriminator = p.Discriminator
	}
	return o
}

func setInt(dst **int, v *int) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

func setFloat(dst **float64, v *float64) {
	if v != nil {
		x := *v
		*dst = &x
	}
}

// IsZero reports whether no option is set.
func (o Options) IsZero() bool {
	return o.ID == "" && o.Title == "" && o.Description == "" && !o.HasDefault && len(o.Metadata) == 0 &&
		o.MinLength == nil && o.MaxLength == nil && o.Pattern == "" && o.Format == "" &&
		o.Minimum == nil && o.Maximum == nil && o.ExclusiveMinimum == nil && o.ExclusiveMaximum == nil &&
		o.MultipleOf == nil && o.MinItems == nil && o.MaxItems == nil && !o.UniqueItems &&
		o.MinProperties == nil && o.MaxProperties == nil && o.Discriminator == ""
}

// OptionsFromMap reads an options object keyed by the JSON Schema keyword
// names (minLength, format, description, ...). Unknown keys and values of
// the wrong type are ignored.
func OptionsFromMap(m map[string]any) Options {
	var o Options
	for k, v := range m {
		switch k {
		case "$id", "id":
			o.ID, _ = v.(string)
		case "title":
			o.Title, _ = v.(string)
		case "description":
			o.Description, _ = v.(string)
		case "default":
			o.Default, o.HasDefault = v, true
		case "metadata":
			if mm, ok := v.(map[string]any); ok {
				o.Metadata = mm
			}
		case "minLength":
			o.MinLength = intOf(v)
		case "maxLength":
			o.MaxLength = intOf(v)
		case "pattern":
			o.Pattern, _ = v.(string)
		case "format":
			o.Format, _ = v.(string)
		case "minimum":
			o.Minimum = floatOf(v)
		case "maximum":
			o.Maximum = floatOf(v)
		case "exclusiveMinimum":
			o.ExclusiveMinimum = floatOf(v)
		case "exclusiveMaximum":
			o.ExclusiveMaximum = floatOf(v)
		case "multipleOf":
			o.MultipleOf = floatOf(v)
		case "minItems":
			o.MinItems = intOf(v)
		case "maxItems":
			o.MaxItems = intOf(v)
		case "uniqueItems":
			o.UniqueItems, _ = v.(bool)
		case "minProperties":
			o.MinProperties = intOf(v)
		case "maxProperties":
			o.MaxProperties = intOf(v)
		case "discriminator":
			o.Discriminator, _ = v.(string)
		}
	}
	return o
}

func intOf(v any) *int {
	f := floatOf(v)
	if f == nil || *f != math.Trunc(*f) || *f < 0 {
		return nil
	}
	return Int(int(*f))
}

func floatOf(v any) *float64 {
	f, ok := ToFloat(v)
	if !ok {
		return nil
	}
	return &f
}

// maxExact is the largest magnitude below which every integer is a float64.
const maxExact = 1 << 53

// LiteralValue normalises a numeric literal to float64 so that 1, int64(1)
// and 1.0 compare equal. Integers float64 cannot hold exactly stay int64,
// or uint64 above math.MaxInt64. Other values are returned unchanged.
func LiteralValue(v any) any {
	switch x := v.(type) {
	case int:
		return intLiteral(int64(x))
	case int64:
		return intLiteral(x)
	case uint:
		return uintLiteral(uint64(x))
	case uint64:
		return uintLiteral(x)
	case json.Number:
		if i, err := strconv.ParseInt(string(x), 10, 64); err == nil {
			return intLiteral(i)
		}
		if u, err := strconv.ParseUint(string(x), 10, 64); err == nil {
			return uintLiteral(u)
		}
	}
	if f, ok := ToFloat(v); ok {
		return f
	}
	return v
}

func intLiteral(i int64) any {
	if i >= -maxExact && i <= maxExact {
		return float64(i)
	}
	return i
}

func uintLiteral(u uint64) any {
	switch {
	case u <= maxExact:
		return float64(u)
	case u <= math.MaxInt64:
		return int64(u)
	}
	return u
}

// ToFloat converts any Go numeric value (and json.Number) to float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	}
	return 0, false
}
