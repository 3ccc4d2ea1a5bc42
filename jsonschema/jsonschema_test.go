package jsonschema_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	ijs "github.com/invopop/jsonschema"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/format"
	"github.com/reoring/typebridge/jsonschema"
	s "github.com/reoring/typebridge/schema"
)

func roundTripCases() map[string]*s.Node {
	user := s.Object([]s.Property{
		s.P("name", s.String(s.Options{MinLength: s.Int(1), Description: "display name"})),
		s.P("age", s.Optional(s.Integer(s.Options{Minimum: s.Float(0), ExclusiveMaximum: s.Float(150)}))),
		s.P("id", s.Readonly(s.String(s.Options{Format: "uuid"}))),
	}, s.Options{Title: "User", Metadata: map[string]any{"owner": "team-a"}})
	return map[string]*s.Node{
		"any":       s.Any(s.Options{Description: "anything"}),
		"never":     s.Never(),
		"null":      s.Null(),
		"boolean":   s.Boolean(s.Options{Default: true, HasDefault: true}),
		"number":    s.Number(s.Options{MultipleOf: s.Float(0.5), Maximum: s.Float(10)}),
		"string":    s.String(s.Options{Pattern: "^a", MaxLength: s.Int(3)}),
		"literal":   s.Literal(2),
		"null lit":  s.Literal(nil),
		"str lit":   s.Literal("on"),
		"object":    user,
		"strict":    s.Strict(user),
		"extras":    s.WithAdditional(s.Object(nil), s.Number()),
		"array":     s.Array(s.Integer(), s.Options{MinItems: s.Int(1), UniqueItems: true}),
		"any array": s.Array(s.Any()),
		"tuple":     s.Tuple([]*s.Node{s.String(), s.Number()}),
		"record":    s.Record("^x-", s.Boolean()),
		"union": s.Union([]*s.Node{
			s.Object([]s.Property{s.P("kind", s.Literal("a"))}),
			s.Object([]s.Property{s.P("kind", s.Literal("b"))}),
		}, s.Options{Discriminator: "kind"}),
		"intersect":   s.Intersect([]*s.Node{user, s.Object([]s.Property{s.P("role", s.String())})}),
		"readonly":    s.Readonly(s.Array(s.String())),
		"ref":         s.Ref("User"),
		"undefined":   s.Undefined(),
		"void":        s.Void(),
		"symbol":      s.Symbol(),
		"unknown":     s.Unknown(),
		"bigint":      s.BigInt(s.Options{Minimum: s.Float(0)}),
		"date":        s.Date(),
		"regexp":      s.RegExp("^ab+$", "i"),
		"promise":     s.Promise(s.String()),
		"function":    s.Function([]*s.Node{s.String(), s.Number()}, s.Void()),
		"constructor": s.Constructor(nil, user),
	}
}

func TestRoundTrip_InMemory(t *testing.T) {
	for name, n := range roundTripCases() {
		back := jsonschema.ToCanonical(jsonschema.FromCanonical(n))
		if d := s.Diff(n, back); d != "" {
			t.Fatalf("%s: round trip mismatch (-want +got):\n%s", name, d)
		}
	}
}

func TestRoundTrip_ThroughJSON(t *testing.T) {
	for name, n := range roundTripCases() {
		data, err := jsonschema.Marshal(jsonschema.FromCanonical(n))
		if err != nil {
			t.Fatalf("%s: marshal: %v", name, err)
		}
		js, err := jsonschema.Unmarshal(data)
		if err != nil {
			t.Fatalf("%s: unmarshal %s: %v", name, data, err)
		}
		if d := s.Diff(n, jsonschema.ToCanonical(js)); d != "" {
			t.Fatalf("%s: round trip through %s mismatch (-want +got):\n%s", name, data, d)
		}
	}
}

func TestUnmarshal_ReturnsKeepOrder(t *testing.T) {
	ret := s.Object([]s.Property{
		s.P("zeta", s.String()),
		s.P("alpha", s.Number()),
		s.P("mid", s.Object([]s.Property{s.P("y", s.Boolean()), s.P("b", s.Null())})),
	})
	n := s.Function([]*s.Node{s.String()}, ret)
	data, err := jsonschema.Marshal(jsonschema.FromCanonical(n))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	js, err := jsonschema.Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := js.Extras[jsonschema.ReturnsHint].(*ijs.Schema); !ok {
		t.Fatalf("returns hint decoded as %T", js.Extras[jsonschema.ReturnsHint])
	}
	back := jsonschema.ToCanonical(js)
	if d := cmp.Diff([]string{"zeta", "alpha", "mid"}, back.Returns.Keys()); d != "" {
		t.Fatalf("return keys (-want +got):\n%s", d)
	}
	if d := s.Diff(n, back); d != "" {
		t.Fatalf("round trip (-want +got):\n%s", d)
	}
}

func TestFromCanonical_Document(t *testing.T) {
	n := s.Object([]s.Property{
		s.P("name", s.String()),
		s.P("tags", s.Optional(s.Array(s.String()))),
		s.P("pair", s.Tuple([]*s.Node{s.Integer(), s.Literal("x")})),
	})
	got, err := jsonschema.Marshal(jsonschema.FromCanonical(n))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{
		"type": "object",
		"properties": {
			"name": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}},
			"pair": {
				"type": "array",
				"prefixItems": [{"type": "integer"}, {"type": "string", "const": "x"}],
				"items": false, "minItems": 2, "maxItems": 2
			}
		},
		"required": ["name", "pair"]
	}`
	var g, w any
	if err := json.Unmarshal(got, &g); err != nil {
		t.Fatalf("unmarshal got: %v", err)
	}
	if err := json.Unmarshal([]byte(want), &w); err != nil {
		t.Fatalf("unmarshal want: %v", err)
	}
	if d := cmp.Diff(w, g); d != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", d)
	}
	// Property order follows declaration order.
	if i, j := strings.Index(string(got), `"name"`), strings.Index(string(got), `"pair"`); i > j {
		t.Fatalf("property order lost: %s", got)
	}
}

func TestFromCanonical_Degradations(t *testing.T) {
	var d tb.Diag
	js := jsonschema.FromCanonical(s.Object([]s.Property{
		s.P("cb", s.Function(nil, s.Void())),
		s.P("at", s.Transform(s.String(), nil, nil)),
	}), jsonschema.WithDiag(&d))
	if !d.HasWarnings() {
		t.Fatalf("expected warnings")
	}
	at, _ := js.Properties.Get("at")
	if at.Type != "string" {
		t.Fatalf("transform should keep its input schema, got %+v", at)
	}
	if got := jsonschema.FromCanonical(nil); got.Not == nil {
		t.Fatalf("nil should convert to the impossible schema")
	}
}

func TestToCanonical_Opaque(t *testing.T) {
	js, err := jsonschema.Unmarshal([]byte(`{"oneOf":[{"type":"integer"},{"minimum":2}],"description":"odd"}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	var d tb.Diag
	n := jsonschema.ToCanonical(js, jsonschema.WithDiag(&d))
	if n.Kind != s.KindOpaque || n.Opaque.Dialect != jsonschema.Dialect {
		t.Fatalf("want opaque, got %s", n.Kind)
	}
	if n.Description != "odd" || !d.HasWarnings() {
		t.Fatalf("options or warning missing: %q %v", n.Description, d.Warnings())
	}
	v := compile.Compile(n)
	if !v.Check(1) || v.Check(3) || !v.Check(2.5) {
		t.Fatalf("opaque check disagrees with oneOf semantics")
	}
	// Converting back yields the original document.
	if back := jsonschema.FromCanonical(n); back.OneOf == nil {
		t.Fatalf("opaque value lost: %+v", back)
	}
}

func TestToCanonical_UnsupportedKeywords(t *testing.T) {
	docs := []string{
		`{"if":{"type":"string"},"then":{"minLength":1}}`,
		`{"not":{"type":"string"}}`,
		`{"type":"array","contains":{"type":"integer"}}`,
		`{"type":"object","propertyNames":{"pattern":"^a"}}`,
		`{"$ref":"https://example.com/other.json"}`,
		`{"type":"object","required":["id"]}`,
		`{"type":"array","prefixItems":[{"type":"string"}]}`,
	}
	for _, doc := range docs {
		js, err := jsonschema.Unmarshal([]byte(doc))
		if err != nil {
			t.Fatalf("unmarshal %s: %v", doc, err)
		}
		if n := jsonschema.ToCanonical(js); n.Kind != s.KindOpaque {
			t.Fatalf("%s: want opaque, got %s", doc, n.Kind)
		}
	}
}

func TestToCanonical_Enum(t *testing.T) {
	js, err := jsonschema.Unmarshal([]byte(`{"enum":["a","b",1]}`))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := s.Union([]*s.Node{s.Literal("a"), s.Literal("b"), s.Literal(1)})
	if d := s.Diff(want, jsonschema.ToCanonical(js)); d != "" {
		t.Fatalf("enum mismatch:\n%s", d)
	}
}

func TestImport_Definitions(t *testing.T) {
	doc := `{
		"type": "object",
		"properties": {"owner": {"$ref": "#/$defs/User"}},
		"required": ["owner"],
		"$defs": {"User": {"type": "object", "properties": {"name": {"type": "string"}}, "required": ["name"]}}
	}`
	js, err := jsonschema.Unmarshal([]byte(doc))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	root, refs := jsonschema.Import(js)
	if len(refs) != 1 || refs[0].ID != "User" {
		t.Fatalf("unexpected refs: %+v", refs)
	}
	v := compile.Compile(root, compile.WithReferences(refs...))
	if !v.Check(map[string]any{"owner": map[string]any{"name": "x"}}) {
		t.Fatalf("valid document rejected")
	}
	if v.Check(map[string]any{"owner": map[string]any{}}) {
		t.Fatalf("invalid owner accepted")
	}

	out := jsonschema.Document(root, refs)
	if out.Version != jsonschema.Draft || out.Definitions["User"] == nil || out.Definitions["User"].ID != "" {
		t.Fatalf("unexpected document: %+v", out)
	}
	if !jsonschema.Check(out, map[string]any{"owner": map[string]any{"name": "x"}}) {
		t.Fatalf("native check of the exported document failed")
	}
}

func TestUnmarshal_KeepsExtensions(t *testing.T) {
	doc := `{"type":"object","properties":{"a":{"type":"string","x-note":"n"}},"anyOf":[{"x-k":1}],"x-top":true}`
	js, err := jsonschema.Unmarshal([]byte(doc))
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	a, _ := js.Properties.Get("a")
	if js.Extras["x-top"] != true || a.Extras["x-note"] != "n" || js.AnyOf[0].Extras["x-k"] != float64(1) {
		t.Fatalf("extensions lost: %v %v %v", js.Extras, a.Extras, js.AnyOf[0].Extras)
	}
}

// The native validator and the canonical validator accept the same values.
func TestNativeAgreesWithCanonical(t *testing.T) {
	cases := []struct {
		n      *s.Node
		values []any
	}{
		{s.String(s.Options{MinLength: s.Int(2), Pattern: "^[a-z]+$"}), []any{"ab", "a", "AB", 3, nil}},
		{s.Integer(s.Options{Minimum: s.Float(1), MultipleOf: s.Float(2)}), []any{2, 4.0, 3, 0, 2.5, "2"}},
		{s.Number(s.Options{ExclusiveMinimum: s.Float(0)}), []any{0.1, 0, -1, true}},
		{s.Literal("on"), []any{"on", "off", nil}},
		{s.Literal(nil), []any{nil, 0}},
		{s.Tuple([]*s.Node{s.String(), s.Boolean()}), []any{[]any{"a", true}, []any{"a"}, []any{"a", true, 1}, []any{1, true}}},
		{s.Record("^[a-z]+$", s.Integer()), []any{map[string]any{"ab": 1}, map[string]any{"AB": 1}, map[string]any{"ab": "x"}}},
		{s.Array(s.Number(), s.Options{MaxItems: s.Int(2), UniqueItems: true}), []any{[]any{1, 2}, []any{1, 1}, []any{1, 2, 3}}},
		{s.Union([]*s.Node{s.String(), s.Null()}), []any{"x", nil, 1}},
		{s.Intersect([]*s.Node{
			s.Object([]s.Property{s.P("a", s.String())}),
			s.Object([]s.Property{s.P("b", s.Optional(s.Number()))}),
		}), []any{map[string]any{"a": "x"}, map[string]any{"a": "x", "b": 1}, map[string]any{"b": 1}, map[string]any{"a": "x", "b": "y"}}},
		{s.Strict(s.Object([]s.Property{s.P("a", s.Boolean())})), []any{map[string]any{"a": true}, map[string]any{"a": true, "z": 1}, map[string]any{}}},
		{s.Never(), []any{nil, 1}},
	}
	for _, c := range cases {
		js := jsonschema.FromCanonical(c.n)
		v := compile.Compile(c.n)
		for _, val := range c.values {
			if native, canon := jsonschema.Check(js, val), v.Check(val); native != canon {
				data, _ := jsonschema.Marshal(js)
				t.Fatalf("%s with %#v: native=%v canonical=%v", data, val, native, canon)
			}
		}
	}
}

func TestFormats_Registered(t *testing.T) {
	for name := range jsonschema.Formats {
		if !format.Has(jsonschema.QualifiedFormat(name)) {
			t.Fatalf("format %q not registered", name)
		}
	}
	if ok, _ := format.Default.Check("email", "Bob <bob@example.com>"); ok {
		t.Fatalf("generic email must stay the plain builtin")
	}
	if jsonschema.Email("Bob <bob@example.com>") || !jsonschema.Email("bob@example.com") {
		t.Fatalf("email predicate wrong")
	}
	for in, want := range map[string]bool{"P1D": true, "PT2H30M": true, "P3W": true, "P": false, "P1DT": false, "1D": false} {
		if jsonschema.Duration(in) != want {
			t.Fatalf("Duration(%q) != %v", in, want)
		}
	}
	if !jsonschema.JSONPointer("/a/~1b") || jsonschema.JSONPointer("a") || jsonschema.JSONPointer("/~2") {
		t.Fatalf("json-pointer predicate wrong")
	}
}

func TestSchemaAlias(t *testing.T) {
	var js *jsonschema.Schema = &ijs.Schema{Type: "string"}
	if n := jsonschema.ToCanonical(js); n.Kind != s.KindString {
		t.Fatalf("want string, got %s", n.Kind)
	}
}
