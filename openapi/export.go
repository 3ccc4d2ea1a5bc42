package openapi

import (
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/reoring/typebridge/internal/dispatch"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

type fromArg struct {
	n   *s.Node
	cfg *config
}

func (a fromArg) sub(n *s.Node) *yaml.Node { return fromTable.Convert(fromArg{n: n, cfg: a.cfg}) }

var fromTable *dispatch.Table[fromArg, *yaml.Node]

func kindIs(kinds ...s.Kind) func(fromArg) bool {
	return func(a fromArg) bool {
		for _, k := range kinds {
			if a.n.Kind == k {
				return true
			}
		}
		return false
	}
}

func init() {
	fromTable = dispatch.New(fromUnrepresentable,
		dispatch.Case[fromArg, *yaml.Node]{Name: "nil", Match: func(a fromArg) bool { return a.n == nil }, Convert: func(fromArg) *yaml.Node { return notAnything() }},
		dispatch.Case[fromArg, *yaml.Node]{Name: "optional", Match: kindIs(s.KindOptional), Convert: func(a fromArg) *yaml.Node { return a.sub(a.n.Item) }},
		dispatch.Case[fromArg, *yaml.Node]{Name: "readonly", Match: kindIs(s.KindReadonly), Convert: fromReadonly},
		dispatch.Case[fromArg, *yaml.Node]{Name: "opaque", Match: kindIs(s.KindOpaque), Convert: fromOpaque},
		dispatch.Case[fromArg, *yaml.Node]{Name: "transform", Match: kindIs(s.KindTransform), Convert: func(a fromArg) *yaml.Node { return a.sub(a.n.Item) }},
		dispatch.Case[fromArg, *yaml.Node]{Name: "ref", Match: kindIs(s.KindRef), Convert: fromRef},
		dispatch.Case[fromArg, *yaml.Node]{Name: "object", Match: kindIs(s.KindObject), Convert: fromObject},
		dispatch.Case[fromArg, *yaml.Node]{Name: "record", Match: kindIs(s.KindRecord), Convert: fromRecord},
		dispatch.Case[fromArg, *yaml.Node]{Name: "tuple", Match: kindIs(s.KindTuple), Convert: fromTuple},
		dispatch.Case[fromArg, *yaml.Node]{Name: "array", Match: kindIs(s.KindArray), Convert: fromArray},
		dispatch.Case[fromArg, *yaml.Node]{Name: "nullable", Match: isNullable, Convert: fromNullable},
		dispatch.Case[fromArg, *yaml.Node]{Name: "int-or-string", Match: isIntOrString, Convert: fromIntOrString},
		dispatch.Case[fromArg, *yaml.Node]{Name: "enum", Match: isEnum, Convert: fromEnum},
		dispatch.Case[fromArg, *yaml.Node]{Name: "union", Match: kindIs(s.KindUnion), Convert: composite("anyOf")},
		dispatch.Case[fromArg, *yaml.Node]{Name: "intersect", Match: kindIs(s.KindIntersect), Convert: composite("allOf")},
		dispatch.Case[fromArg, *yaml.Node]{Name: "literal", Match: kindIs(s.KindLiteral), Convert: fromEnum},
		dispatch.Case[fromArg, *yaml.Node]{Name: "never", Match: kindIs(s.KindNever), Convert: func(fromArg) *yaml.Node { return notAnything() }},
		dispatch.Case[fromArg, *yaml.Node]{Name: "unknown", Match: kindIs(s.KindAny, s.KindUnknown), Convert: fromUnknown},
		dispatch.Case[fromArg, *yaml.Node]{Name: "null", Match: kindIs(s.KindNull), Convert: fromNull},
		dispatch.Case[fromArg, *yaml.Node]{Name: "scalar", Match: kindIs(s.KindString, s.KindNumber, s.KindInteger, s.KindBoolean), Convert: fromScalar},
		dispatch.Case[fromArg, *yaml.Node]{Name: "bigint", Match: kindIs(s.KindBigInt), Convert: func(a fromArg) *yaml.Node { return typed(a.n, "integer") }},
		dispatch.Case[fromArg, *yaml.Node]{Name: "date", Match: kindIs(s.KindDate), Convert: fromDate},
		dispatch.Case[fromArg, *yaml.Node]{Name: "regexp", Match: kindIs(s.KindRegExp), Convert: fromRegExp},
	)
	fromTable.Recover(func(a fromArg, r any) *yaml.Node {
		a.cfg.diag.Warnf("openapi: export failed: %v; written as not {}", r)
		return notAnything()
	})
}

// ExportNode converts root to an OpenAPI v3 schema node, keeping property
// order. refs are written under components.schemas. Canonical kinds without
// an OpenAPI form (undefined, symbol, promise, function, ...) become
// x-kubernetes-preserve-unknown-fields schemas with a warning.
func ExportNode(root *s.Node, refs []*s.Node, opts ...Option) *yaml.Node {
	cfg := newConfig(opts)
	out := fromTable.Convert(fromArg{n: root, cfg: cfg})
	if len(refs) == 0 {
		return out
	}
	defs := mapping()
	for _, r := range refs {
		if r == nil || r.ID == "" {
			continue
		}
		setKey(defs, r.ID, fromTable.Convert(fromArg{n: r, cfg: cfg}))
	}
	components := mapping()
	setKey(components, "schemas", defs)
	setKey(out, "components", components)
	return out
}

// ExportMap is ExportNode decoded into an ordered *Map. The result imports
// back through Import.
func ExportMap(root *s.Node, refs []*s.Node, opts ...Option) (*Map, error) {
	v, err := fromYAML(ExportNode(root, refs, opts...))
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, ErrNotObject
	}
	return m, nil
}

// Export is ExportNode decoded into plain Go values. Key order is lost; use
// ExportMap to keep it.
func Export(root *s.Node, refs []*s.Node, opts ...Option) (map[string]any, error) {
	var out map[string]any
	if err := ExportNode(root, refs, opts...).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// ExportYAML renders ExportNode as YAML.
func ExportYAML(root *s.Node, refs []*s.Node, opts ...Option) ([]byte, error) {
	return yaml.Marshal(ExportNode(root, refs, opts...))
}

func mapping() *yaml.Node { return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"} }

func sequence(items ...*yaml.Node) *yaml.Node {
	return &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Content: items}
}

func text(v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v} }

func value(v any) *yaml.Node {
	n := &yaml.Node{}
	if err := n.Encode(v); err != nil {
		return text("")
	}
	return n
}

// setKey sets key on the mapping m, replacing an existing entry.
func setKey(m *yaml.Node, key string, v *yaml.Node) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			m.Content[i+1] = v
			return
		}
	}
	m.Content = append(m.Content, text(key), v)
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func notAnything() *yaml.Node {
	m := mapping()
	setKey(m, "not", mapping())
	return m
}

// typed starts a schema of the given type carrying n's options.
func typed(n *s.Node, typ string) *yaml.Node {
	m := mapping()
	if typ != "" {
		setKey(m, "type", text(typ))
	}
	writeOptions(m, n.Options)
	return m
}

func writeOptions(m *yaml.Node, o s.Options) {
	if o.Title != "" {
		setKey(m, "title", text(o.Title))
	}
	if o.Description != "" {
		setKey(m, "description", text(o.Description))
	}
	if o.HasDefault {
		setKey(m, "default", value(o.Default))
	}
	if o.Format != "" {
		setKey(m, "format", text(o.Format))
	}
	if o.Pattern != "" {
		setKey(m, "pattern", text(o.Pattern))
	}
	setCount(m, "minLength", o.MinLength)
	setCount(m, "maxLength", o.MaxLength)
	writeBound(m, "minimum", "exclusiveMinimum", o.Minimum, o.ExclusiveMinimum, math.Max)
	writeBound(m, "maximum", "exclusiveMaximum", o.Maximum, o.ExclusiveMaximum, math.Min)
	if o.MultipleOf != nil {
		setKey(m, "multipleOf", value(*o.MultipleOf))
	}
	setCount(m, "minItems", o.MinItems)
	setCount(m, "maxItems", o.MaxItems)
	if o.UniqueItems {
		setKey(m, extListType, text("set"))
	}
	setCount(m, "minProperties", o.MinProperties)
	setCount(m, "maxProperties", o.MaxProperties)
	if o.Discriminator != "" {
		d := mapping()
		setKey(d, "propertyName", text(o.Discriminator))
		setKey(m, "discriminator", d)
	}
	keys := make([]string, 0, len(o.Metadata))
	for k := range o.Metadata {
		// Only extension keywords are valid OpenAPI schema members.
		if strings.HasPrefix(k, "x-") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		setKey(m, k, value(o.Metadata[k]))
	}
}

func setCount(m *yaml.Node, key string, v *int) {
	if v != nil {
		setKey(m, key, value(*v))
	}
}

// writeBound writes a bound in the OpenAPI 3.0 form: the tighter of the
// inclusive and exclusive bounds, with a boolean exclusive flag.
func writeBound(m *yaml.Node, inclusive, exclusive string, incl, excl *float64, tighter func(a, b float64) float64) {
	switch {
	case excl == nil && incl == nil:
	case excl == nil:
		setKey(m, inclusive, value(*incl))
	case incl != nil && tighter(*incl, *excl) == *incl && *incl != *excl:
		setKey(m, inclusive, value(*incl))
	default:
		setKey(m, inclusive, value(*excl))
		setKey(m, exclusive, value(true))
	}
}

func fromUnrepresentable(a fromArg) *yaml.Node {
	a.cfg.diag.Warnf("openapi: %s has no OpenAPI form; written as preserve-unknown-fields", a.n.Kind)
	return fromUnknown(a)
}

func fromUnknown(a fromArg) *yaml.Node {
	m := typed(a.n, "")
	setKey(m, extPreserveUnknown, value(true))
	return m
}

func fromReadonly(a fromArg) *yaml.Node {
	m := a.sub(a.n.Item)
	setKey(m, "readOnly", value(true))
	return m
}

func fromOpaque(a fromArg) *yaml.Node {
	if a.n.Opaque.Dialect == Dialect {
		if raw, ok := a.n.Opaque.Value.(map[string]any); ok {
			m := typed(a.n, "")
			keys := make([]string, 0, len(raw))
			for k := range raw {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				setKey(m, k, value(raw[k]))
			}
			return m
		}
	}
	a.cfg.diag.Warnf("openapi: opaque %s schema written as preserve-unknown-fields", a.n.Opaque.Dialect)
	return fromUnknown(a)
}

func fromRef(a fromArg) *yaml.Node {
	m := typed(a.n, "")
	m.Content = append([]*yaml.Node{text("$ref"), text(refPrefix + a.n.Ref)}, m.Content...)
	return m
}

func fromObject(a fromArg) *yaml.Node {
	m := typed(a.n, "object")
	if len(a.n.Properties) > 0 {
		props := mapping()
		for _, p := range a.n.Properties {
			c := a.sub(p.Schema)
			if p.Readonly {
				setKey(c, "readOnly", value(true))
			}
			setKey(props, p.Key, c)
		}
		setKey(m, "properties", props)
	}
	if req := a.n.Required(); len(req) > 0 {
		seq := sequence()
		for _, k := range req {
			seq.Content = append(seq.Content, text(k))
		}
		setKey(m, "required", seq)
	}
	if ap := a.n.AdditionalProperties; ap != nil {
		if ap.Kind == s.KindNever && ap.Options.IsZero() {
			setKey(m, "additionalProperties", value(false))
		} else {
			setKey(m, "additionalProperties", a.sub(ap))
		}
	}
	return m
}

func fromRecord(a fromArg) *yaml.Node {
	m := typed(a.n, "object")
	if a.n.KeyPattern == pattern.Any {
		setKey(m, "additionalProperties", a.sub(a.n.Item))
		return m
	}
	pp := mapping()
	setKey(pp, a.n.KeyPattern, a.sub(a.n.Item))
	setKey(m, "patternProperties", pp)
	return m
}

func fromTuple(a fromArg) *yaml.Node {
	m := typed(a.n, "array")
	seq := sequence()
	for _, it := range a.n.Items {
		seq.Content = append(seq.Content, a.sub(it))
	}
	setKey(m, "prefixItems", seq)
	return m
}

func fromArray(a fromArg) *yaml.Node {
	m := typed(a.n, "array")
	setKey(m, "items", a.sub(a.n.Item))
	return m
}

func nonNull(n *s.Node) []*s.Node {
	var out []*s.Node
	for _, it := range n.Items {
		if it.Kind != s.KindNull && !(it.Kind == s.KindLiteral && it.Literal == nil) {
			out = append(out, it)
		}
	}
	return out
}

func isNullable(a fromArg) bool {
	return a.n.Kind == s.KindUnion && len(nonNull(a.n)) < len(a.n.Items) && len(nonNull(a.n)) > 0
}

func fromNullable(a fromArg) *yaml.Node {
	rest := s.Union(nonNull(a.n))
	m := a.sub(rest)
	writeOptions(m, a.n.Options)
	setKey(m, "nullable", value(true))
	return m
}

// isIntOrString matches integer | string in that order, the form the
// extension imports as. string | integer stays an anyOf so the variant
// order survives.
func isIntOrString(a fromArg) bool {
	if a.n.Kind != s.KindUnion || len(a.n.Items) != 2 {
		return false
	}
	x, y := a.n.Items[0], a.n.Items[1]
	return x.Options.IsZero() && y.Options.IsZero() && x.Kind == s.KindInteger && y.Kind == s.KindString
}

func fromIntOrString(a fromArg) *yaml.Node {
	m := typed(a.n, "")
	setKey(m, extIntOrString, value(true))
	return m
}

// isEnum matches unions of literals sharing one OpenAPI type.
func isEnum(a fromArg) bool {
	if a.n.Kind != s.KindUnion {
		return false
	}
	typ := ""
	for i, it := range a.n.Items {
		if it.Kind != s.KindLiteral || it.Literal == nil {
			return false
		}
		t := literalType(it.Literal)
		if i > 0 && t != typ {
			return false
		}
		typ = t
	}
	return true
}

func literalType(v any) string {
	switch x := v.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return "integer"
		}
		return "number"
	case int64, uint64:
		return "integer"
	}
	return ""
}

// fromEnum writes a literal or a union of same-typed literals as enum.
func fromEnum(a fromArg) *yaml.Node {
	lits := a.n.Items
	if a.n.Kind == s.KindLiteral {
		lits = []*s.Node{a.n}
	}
	typ := ""
	seq := sequence()
	for _, l := range lits {
		t := literalType(l.Literal)
		if typ == "" || (typ == "integer" && t == "number") {
			typ = t
		}
		seq.Content = append(seq.Content, value(l.Literal))
	}
	m := typed(a.n, typ)
	if lits[0].Literal == nil {
		setKey(m, "nullable", value(true))
	}
	setKey(m, "enum", seq)
	return m
}

func composite(key string) func(fromArg) *yaml.Node {
	return func(a fromArg) *yaml.Node {
		m := typed(a.n, "")
		seq := sequence()
		for _, it := range a.n.Items {
			seq.Content = append(seq.Content, a.sub(it))
		}
		setKey(m, key, seq)
		return m
	}
}

func fromNull(a fromArg) *yaml.Node {
	m := typed(a.n, "")
	setKey(m, "nullable", value(true))
	setKey(m, "enum", sequence(value(nil)))
	return m
}

func fromScalar(a fromArg) *yaml.Node {
	return typed(a.n, a.n.Kind.String())
}

func fromDate(a fromArg) *yaml.Node {
	m := typed(a.n, "string")
	if lookup(m, "format") == nil {
		setKey(m, "format", text("date-time"))
	}
	return m
}

func fromRegExp(a fromArg) *yaml.Node {
	if a.n.Flags != "" {
		a.cfg.diag.Warnf("openapi: regexp flags %q dropped", a.n.Flags)
	}
	return typed(a.n, "string")
}
