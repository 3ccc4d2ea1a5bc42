package jsonschema

import (
	"bytes"
	"reflect"
	"strings"
	"sync"

	json "github.com/goccy/go-json"
	gjs "github.com/google/jsonschema-go/jsonschema"
	ijs "github.com/invopop/jsonschema"

	s "github.com/reoring/typebridge/schema"
)

// baseURI anchors relative $id values during native resolution.
const baseURI = "https://typebridge.invalid/schema.json"

// Marshal renders js as JSON, extension keywords included.
func Marshal(js *ijs.Schema) ([]byte, error) { return json.Marshal(js) }

// MarshalIndent is Marshal with indentation.
func MarshalIndent(js *ijs.Schema) ([]byte, error) { return json.MarshalIndent(js, "", "  ") }

// Unmarshal parses a JSON Schema document. Unlike decoding into
// ijs.Schema directly, "x-" extension keywords and "discriminator" are kept
// in Extras at every level. Schema-valued hints such as ReturnsHint are
// decoded as schemas, so their property order survives.
func Unmarshal(data []byte) (*ijs.Schema, error) {
	js := &ijs.Schema{}
	if err := json.Unmarshal(data, js); err != nil {
		return nil, err
	}
	if err := attachExtras(js, data); err != nil {
		return nil, err
	}
	return js, nil
}

func extensionKey(k string) bool {
	return strings.HasPrefix(k, "x-") || k == "discriminator"
}

// schemaHints are the extension keywords whose value is a schema.
var schemaHints = map[string]bool{ReturnsHint: true}

func attachExtras(js *ijs.Schema, data json.RawMessage) error {
	var m map[string]json.RawMessage
	if js == nil || len(data) == 0 || data[0] != '{' {
		return nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	for k, raw := range m {
		if !extensionKey(k) {
			continue
		}
		if schemaHints[k] {
			sub, err := Unmarshal(raw)
			if err != nil {
				return err
			}
			extra(js, k, sub)
			continue
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		extra(js, k, v)
	}
	if raw, ok := m["const"]; ok && js.Const != nil {
		js.Const = exactNumber(raw, js.Const)
	}
	var enum []json.RawMessage
	if json.Unmarshal(m["enum"], &enum) == nil {
		for i := range js.Enum {
			if i < len(enum) {
				js.Enum[i] = exactNumber(enum[i], js.Enum[i])
			}
		}
	}
	var err error
	one := func(sub *ijs.Schema, key string) {
		if err == nil {
			err = attachExtras(sub, m[key])
		}
	}
	list := func(subs []*ijs.Schema, key string) {
		var raws []json.RawMessage
		if err != nil || json.Unmarshal(m[key], &raws) != nil {
			return
		}
		for i, sub := range subs {
			if i < len(raws) && err == nil {
				err = attachExtras(sub, raws[i])
			}
		}
	}
	dict := func(subs map[string]*ijs.Schema, key string) {
		var raws map[string]json.RawMessage
		if err != nil || json.Unmarshal(m[key], &raws) != nil {
			return
		}
		for k, sub := range subs {
			if err == nil {
				err = attachExtras(sub, raws[k])
			}
		}
	}
	one(js.Items, "items")
	one(js.Not, "not")
	one(js.AdditionalProperties, "additionalProperties")
	one(js.Contains, "contains")
	one(js.PropertyNames, "propertyNames")
	one(js.If, "if")
	one(js.Then, "then")
	one(js.Else, "else")
	list(js.PrefixItems, "prefixItems")
	list(js.AllOf, "allOf")
	list(js.AnyOf, "anyOf")
	list(js.OneOf, "oneOf")
	dict(js.PatternProperties, "patternProperties")
	dict(js.DependentSchemas, "dependentSchemas")
	dict(js.Definitions, "$defs")
	if js.Properties != nil && err == nil {
		var raws map[string]json.RawMessage
		if json.Unmarshal(m["properties"], &raws) == nil {
			for pair := js.Properties.Oldest(); pair != nil && err == nil; pair = pair.Next() {
				err = attachExtras(pair.Value, raws[pair.Key])
			}
		}
	}
	return err
}

// exactNumber re-reads a JSON number so integers past float64 precision
// keep their value. Anything else returns cur.
func exactNumber(raw json.RawMessage, cur any) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if dec.Decode(&v) != nil {
		return cur
	}
	if n, ok := v.(json.Number); ok {
		return s.LiteralValue(n)
	}
	return cur
}

// schemaOf accepts a schema kept in Extras, either typed or as a generic
// map built by hand.
func schemaOf(v any) *ijs.Schema {
	switch x := v.(type) {
	case *ijs.Schema:
		return x
	case nil:
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	js, err := Unmarshal(data)
	if err != nil {
		return nil
	}
	return js
}

// Checker returns a reusable native check of js. Resolution happens once,
// on first use; a schema that does not resolve accepts nothing.
func Checker(js *ijs.Schema) func(any) bool {
	var (
		once sync.Once
		rs   *gjs.Resolved
	)
	return func(v any) bool {
		once.Do(func() { rs, _ = Resolve(js) })
		if rs == nil {
			return false
		}
		inst, err := Instance(v)
		return err == nil && rs.Validate(inst) == nil
	}
}

// Instance converts a runtime value into the plain JSON tree the native
// validator expects: undefined members are dropped and numbers become
// float64, the only numeric form its type checks recognise.
func Instance(v any) (any, error) {
	data, err := json.Marshal(plain(v))
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func plain(v any) any {
	if s.IsUndefined(v) {
		return nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			e := it.Value().Interface()
			if s.IsUndefined(e) {
				continue
			}
			out[it.Key().String()] = plain(e)
		}
		return out
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = plain(rv.Index(i).Interface())
		}
		return out
	}
	return v
}
