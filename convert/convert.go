// Package convert holds the public conversion entry points: one function per
// target dialect, each accepting a schema of any supported dialect in the
// call shapes of typebridge.ResolveSignature.
//
//	convert.JSONSchema("{ name: string, age?: integer }")
//	convert.Tags(typebridge.Params{"Email": emailNode}, "{ to: Email }")
//	convert.Syntax(jsonSchema, map[string]any{"description": "user"})
//
// Sources recognised in the type slot:
//
//	string              text syntax, parameters as named context
//	*schema.Node        canonical
//	*jsonschema.Schema  JSON Schema ($defs become refs)
//	*tags.Rule          validator tag tree
//	*openapi.Map        ordered OpenAPI / CRD document
//	*openapi.Document   an imported OpenAPI document
//	struct values       reflected through their validate tags
//
// Conversions never fail. Arguments that do not resolve, text that does not
// parse and unsupported sources all yield the target's impossible schema;
// a Converter with a Diag records why.
package convert

import (
	"reflect"

	ijs "github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/jsonschema"
	"github.com/reoring/typebridge/openapi"
	s "github.com/reoring/typebridge/schema"
	"github.com/reoring/typebridge/syntax"
	"github.com/reoring/typebridge/tags"
)

// Converter runs conversions, recording warnings in Diag when it is set.
// The zero value is ready to use.
type Converter struct {
	Diag *tb.Diag
}

// With returns a Converter recording warnings in d.
func With(d *tb.Diag) Converter { return Converter{Diag: d} }

// source is a resolved canonical schema and the definitions its refs name.
type source struct {
	root *s.Node
	refs []*s.Node
}

func (c Converter) resolve(args []any) source {
	sig := tb.ResolveSignature(args...)
	if sig.Never() {
		c.Diag.Warnf("convert: unrecognised arguments (%d) resolved to never", len(args))
		return source{root: s.Never()}
	}
	src := c.load(sig.Type, c.context(sig.Parameter))
	if len(sig.Options) > 0 {
		src.root = src.root.With(s.OptionsFromMap(sig.Options))
	}
	return src
}

// context converts the parameter map into named canonical nodes.
func (c Converter) context(p tb.Params) map[string]*s.Node {
	if len(p) == 0 {
		return nil
	}
	ctx := make(map[string]*s.Node, len(p))
	for k, v := range p {
		ctx[k] = c.load(v, nil).root
	}
	return ctx
}

func (c Converter) load(v any, ctx map[string]*s.Node) source {
	switch t := v.(type) {
	case string:
		n, err := syntax.Parse(t, ctx)
		if err != nil {
			c.Diag.Warnf("convert: %v", err)
			return source{root: s.Never()}
		}
		return source{root: n}
	case *s.Node:
		if t == nil {
			break
		}
		return source{root: t}
	case *ijs.Schema:
		if t == nil {
			break
		}
		root, refs := jsonschema.Import(t, jsonschema.WithDiag(c.Diag))
		return source{root: root, refs: refs}
	case *tags.Rule:
		if t == nil {
			break
		}
		return source{root: tags.ToCanonical(t, tags.WithDiag(c.Diag))}
	case *openapi.Map:
		if t == nil {
			break
		}
		doc, err := openapi.Import(t, openapi.WithDiag(c.Diag))
		if err != nil {
			c.Diag.Warnf("convert: %v", err)
			break
		}
		return source{root: doc.Root, refs: doc.Refs}
	case *openapi.Document:
		if t == nil || t.Root == nil {
			break
		}
		return source{root: t.Root, refs: t.Refs}
	default:
		if isStruct(v) {
			return source{root: tags.ToCanonical(tags.Reflect(v), tags.WithDiag(c.Diag))}
		}
	}
	c.Diag.Warnf("convert: unsupported source %T resolved to never", v)
	return source{root: s.Never()}
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}

// Canonical converts to a canonical node. Definitions of the source are
// not returned; ref nodes keep their names.
func (c Converter) Canonical(args ...any) *s.Node {
	return c.resolve(args).root
}

// JSONSchema converts to a JSON Schema. Source definitions are written
// under $defs.
func (c Converter) JSONSchema(args ...any) *jsonschema.Schema {
	src := c.resolve(args)
	if len(src.refs) > 0 {
		return jsonschema.Document(src.root, src.refs, jsonschema.WithDiag(c.Diag))
	}
	return jsonschema.FromCanonical(src.root, jsonschema.WithDiag(c.Diag))
}

// Tags converts to a validator tag tree.
func (c Converter) Tags(args ...any) *tags.Rule {
	return tags.FromCanonical(c.resolve(args).root, tags.WithDiag(c.Diag))
}

// Syntax converts to the text syntax.
func (c Converter) Syntax(args ...any) string {
	return syntax.Print(c.resolve(args).root, syntax.WithDiag(c.Diag))
}

// OpenAPI converts to an ordered OpenAPI v3 schema, which is accepted back
// as a source. Source definitions are written under components.schemas.
func (c Converter) OpenAPI(args ...any) *openapi.Map {
	src := c.resolve(args)
	out, err := openapi.ExportMap(src.root, src.refs, openapi.WithDiag(c.Diag))
	if err != nil {
		c.Diag.Warnf("convert: %v", err)
		out = orderedmap.New[string, any]()
		out.Set("not", orderedmap.New[string, any]())
	}
	return out
}

// Canonical converts args to a canonical node.
func Canonical(args ...any) *s.Node { return Converter{}.Canonical(args...) }

// JSONSchema converts args to a JSON Schema.
func JSONSchema(args ...any) *jsonschema.Schema { return Converter{}.JSONSchema(args...) }

// Tags converts args to a validator tag tree.
func Tags(args ...any) *tags.Rule { return Converter{}.Tags(args...) }

// Syntax converts args to the text syntax.
func Syntax(args ...any) string { return Converter{}.Syntax(args...) }

// OpenAPI converts args to an ordered OpenAPI v3 schema.
func OpenAPI(args ...any) *openapi.Map { return Converter{}.OpenAPI(args...) }
