package jsonschema

import (
	"encoding/json"
	"strconv"

	ijs "github.com/invopop/jsonschema"

	s "github.com/reoring/typebridge/schema"
)

// Options extracts the canonical options carried by js's keywords.
func Options(js *ijs.Schema) s.Options {
	var o s.Options
	if js == nil {
		return o
	}
	o.ID = string(js.ID)
	o.Title = js.Title
	o.Description = js.Description
	if js.Default != nil {
		o.Default, o.HasDefault = js.Default, true
	}
	if md, ok := js.Extras[MetadataKey].(map[string]any); ok {
		o.Metadata = md
	}
	o.MinLength = count(js.MinLength)
	o.MaxLength = count(js.MaxLength)
	o.Pattern = js.Pattern
	o.Format = js.Format
	o.Minimum = number(js.Minimum)
	o.Maximum = number(js.Maximum)
	o.ExclusiveMinimum = number(js.ExclusiveMinimum)
	o.ExclusiveMaximum = number(js.ExclusiveMaximum)
	o.MultipleOf = number(js.MultipleOf)
	o.MinItems = count(js.MinItems)
	o.MaxItems = count(js.MaxItems)
	o.UniqueItems = js.UniqueItems
	o.MinProperties = count(js.MinProperties)
	o.MaxProperties = count(js.MaxProperties)
	o.Discriminator = discriminator(js.Extras["discriminator"])
	return o
}

// discriminator accepts both the OpenAPI object form and a bare key.
func discriminator(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]any:
		name, _ := d["propertyName"].(string)
		return name
	}
	return ""
}

func count(p *uint64) *int {
	if p == nil {
		return nil
	}
	return s.Int(int(*p))
}

func number(n json.Number) *float64 {
	if n == "" {
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil
	}
	return &f
}

func toCount(p *int) *uint64 {
	if p == nil || *p < 0 {
		return nil
	}
	u := uint64(*p)
	return &u
}

func toNumber(p *float64) json.Number {
	if p == nil {
		return ""
	}
	return json.Number(strconv.FormatFloat(*p, 'f', -1, 64))
}

// applyOptions writes o onto js as keywords.
func applyOptions(js *ijs.Schema, o s.Options) {
	js.ID = ijs.ID(o.ID)
	js.Title = o.Title
	js.Description = o.Description
	if o.HasDefault {
		js.Default = o.Default
	}
	if len(o.Metadata) > 0 {
		extra(js, MetadataKey, o.Metadata)
	}
	js.MinLength = toCount(o.MinLength)
	js.MaxLength = toCount(o.MaxLength)
	js.Pattern = o.Pattern
	js.Format = o.Format
	js.Minimum = toNumber(o.Minimum)
	js.Maximum = toNumber(o.Maximum)
	js.ExclusiveMinimum = toNumber(o.ExclusiveMinimum)
	js.ExclusiveMaximum = toNumber(o.ExclusiveMaximum)
	js.MultipleOf = toNumber(o.MultipleOf)
	js.MinItems = toCount(o.MinItems)
	js.MaxItems = toCount(o.MaxItems)
	js.UniqueItems = o.UniqueItems
	js.MinProperties = toCount(o.MinProperties)
	js.MaxProperties = toCount(o.MaxProperties)
	if o.Discriminator != "" {
		extra(js, "discriminator", map[string]any{"propertyName": o.Discriminator})
	}
}

func extra(js *ijs.Schema, key string, v any) {
	if js.Extras == nil {
		js.Extras = map[string]any{}
	}
	js.Extras[key] = v
}

func hint(js *ijs.Schema) string {
	k, _ := js.Extras[KindHint].(string)
	return k
}
