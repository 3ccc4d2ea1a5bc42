package convert_test

import (
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/convert"
	"github.com/reoring/typebridge/jsonschema"
	"github.com/reoring/typebridge/openapi"
	s "github.com/reoring/typebridge/schema"
	"github.com/reoring/typebridge/tags"
)

func TestCanonical_Signatures(t *testing.T) {
	cases := []struct {
		name string
		args []any
		want *s.Node
	}{
		{"type", []any{"string"}, s.String()},
		{"literal text", []any{"123"}, s.Literal(123)},
		{"params and type", []any{tb.Params{"T": s.Integer()}, "T[]"}, s.Array(s.Integer())},
		{"plain map params", []any{map[string]any{"T": "boolean"}, "[T, T]"}, s.Tuple([]*s.Node{s.Boolean(), s.Boolean()})},
		{"type and options", []any{"string", map[string]any{"minLength": 10}}, s.String(s.Options{MinLength: s.Int(10)})},
		{"all three", []any{tb.Params{"T": s.Number()}, "T", tb.Options{"minimum": 100}}, s.Number(s.Options{Minimum: s.Float(100)})},
		{"node", []any{s.Boolean()}, s.Boolean()},
		{"ambiguous maps", []any{map[string]any{}, map[string]any{}}, s.Never()},
		{"no arguments", nil, s.Never()},
		{"nil", []any{nil}, s.Never()},
		{"bad text", []any{"string |"}, s.Never()},
		{"unsupported source", []any{42}, s.Never()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if d := s.Diff(tc.want, convert.Canonical(tc.args...)); d != "" {
				t.Fatalf("mismatch (-want +got):\n%s", d)
			}
		})
	}
}

func TestCanonical_OptionsDoNotMutateInput(t *testing.T) {
	in := s.String()
	out := convert.Canonical(in, map[string]any{"format": "email", "description": "contact"})
	if out.Format != "email" || out.Description != "contact" {
		t.Fatalf("options not applied: %+v", out.Options)
	}
	if !in.Options.IsZero() {
		t.Fatalf("input mutated: %+v", in.Options)
	}
}

func TestSentinels(t *testing.T) {
	for _, bad := range [][]any{{"{ a string }"}, {3.5}, {map[string]any{"a": 1}}} {
		if js := convert.JSONSchema(bad...); js.Not == nil {
			t.Fatalf("%v: jsonschema sentinel, got %+v", bad, js)
		}
		if r := convert.Tags(bad...); r.Type != tags.TypeNever {
			t.Fatalf("%v: tags sentinel, got %+v", bad, r)
		}
		if got := convert.Syntax(bad...); got != "never" {
			t.Fatalf("%v: syntax sentinel, got %q", bad, got)
		}
		oa := convert.OpenAPI(bad...)
		if not, ok := oa.Value("not").(*openapi.Map); oa.Len() != 1 || !ok || not.Len() != 0 {
			t.Fatalf("%v: openapi sentinel, got %v", bad, oa)
		}
	}
}

func TestDiag(t *testing.T) {
	var d tb.Diag
	c := convert.With(&d)
	c.Canonical("string |")
	c.Canonical(struct{}{}, map[string]any{}, map[string]any{}, 1)
	ws := d.Warnings()
	if len(ws) != 2 {
		t.Fatalf("warnings: %v", ws)
	}
	for _, w := range ws {
		if !strings.HasPrefix(w, "convert:") {
			t.Fatalf("warning %q", w)
		}
	}
}

func TestOrderPreserved(t *testing.T) {
	const text = "{ z: string, a: string, m: string }"
	want := []string{"z", "a", "m"}

	if got := convert.Syntax(text); got != text {
		t.Fatalf("syntax: %q", got)
	}
	var js []string
	for p := convert.JSONSchema(text).Properties.Oldest(); p != nil; p = p.Next() {
		js = append(js, p.Key)
	}
	if d := cmp.Diff(want, js); d != "" {
		t.Fatalf("jsonschema order (-want +got):\n%s", d)
	}
	var fields []string
	for _, f := range convert.Tags(text).Fields {
		fields = append(fields, f.Name)
	}
	if d := cmp.Diff(want, fields); d != "" {
		t.Fatalf("tags order (-want +got):\n%s", d)
	}
	out, err := openapi.ExportYAML(convert.Canonical(text), nil)
	if err != nil {
		t.Fatal(err)
	}
	doc, err := openapi.Import(out)
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff(want, doc.Root.Keys()); d != "" {
		t.Fatalf("openapi order (-want +got):\n%s", d)
	}
}

func TestOpenAPIOutputRoundTrips(t *testing.T) {
	n := s.Strict(s.Object([]s.Property{
		s.P("z", s.Union([]*s.Node{s.String(), s.Integer()})),
		s.P("a", s.Optional(s.Array(s.Boolean()))),
		s.P("m", s.Union([]*s.Node{s.Integer(), s.String()})),
	}))
	oa := convert.OpenAPI(n)
	var keys []string
	for p := oa.Value("properties").(*openapi.Map).Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	if d := cmp.Diff([]string{"z", "a", "m"}, keys); d != "" {
		t.Fatalf("openapi order (-want +got):\n%s", d)
	}
	if d := s.Diff(n, convert.Canonical(oa)); d != "" {
		t.Fatalf("round trip (-want +got):\n%s", d)
	}
	if got := convert.Syntax(oa); got != "{ z: string | integer, a?: boolean[], m: integer | string }" {
		t.Fatalf("syntax: %q", got)
	}
}

func TestAcrossDialects(t *testing.T) {
	const text = "{ name: string, tags?: string[] }"
	js := convert.JSONSchema(text)
	if got := convert.Syntax(js); got != text {
		t.Fatalf("via jsonschema: %q", got)
	}
	if got := convert.Syntax(convert.Tags(js)); got != text {
		t.Fatalf("via tags: %q", got)
	}
	doc, err := openapi.Import("type: object\nrequired: [name]\nproperties:\n  name: {type: string}\n  count: {type: integer}\n")
	if err != nil {
		t.Fatal(err)
	}
	if got := convert.Syntax(doc); got != "{ name: string, count?: integer }" {
		t.Fatalf("from openapi document: %q", got)
	}
	m, err := openapi.NewReader(strings.NewReader("type: array\nitems: {type: boolean}\n")).Next()
	if err != nil {
		t.Fatal(err)
	}
	if got := convert.Syntax(m.(*openapi.Map)); got != "boolean[]" {
		t.Fatalf("from openapi map: %q", got)
	}
}

func TestNumericBoundRoundTrip(t *testing.T) {
	n := s.Number(s.Options{Minimum: s.Float(100)})
	back := convert.Canonical(convert.JSONSchema(n))
	if back.Minimum == nil || *back.Minimum != 100 {
		t.Fatalf("minimum lost: %+v", back.Options)
	}
}

func TestStrictObjectAcrossTargets(t *testing.T) {
	n := s.Strict(s.Object([]s.Property{s.P("a", s.String())}))
	if d := s.Diff(n, convert.Canonical(convert.JSONSchema(n))); d != "" {
		t.Fatalf("jsonschema (-want +got):\n%s", d)
	}
	if d := s.Diff(n, convert.Canonical(convert.Tags(n))); d != "" {
		t.Fatalf("tags (-want +got):\n%s", d)
	}
	if got := convert.OpenAPI(n).Value("additionalProperties"); got != false {
		t.Fatalf("openapi additionalProperties: %v", got)
	}
}

func TestDefinitionsTravel(t *testing.T) {
	js, err := jsonschema.Unmarshal([]byte(`{
		"type": "object",
		"properties": {"n": {"$ref": "#/$defs/Name"}},
		"required": ["n"],
		"$defs": {"Name": {"type": "string", "minLength": 1}}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	out := convert.JSONSchema(js)
	if _, ok := out.Definitions["Name"]; !ok {
		t.Fatalf("definitions dropped: %+v", out.Definitions)
	}
	oa := convert.OpenAPI(js)
	defs, _ := oa.Value("components").(*openapi.Map).Value("schemas").(*openapi.Map)
	if defs == nil || defs.Value("Name") == nil {
		t.Fatalf("openapi components.schemas: %v", oa.Value("components"))
	}
	if p, _ := convert.Canonical(oa).Property("n"); p.Schema.Kind != s.KindRef || p.Schema.Ref != "Name" {
		t.Fatalf("openapi ref: %+v", p)
	}
	root := convert.Canonical(js)
	if p, _ := root.Property("n"); p.Schema.Kind != s.KindRef || p.Schema.Ref != "Name" {
		t.Fatalf("ref: %+v", p)
	}
}

type signup struct {
	Email string `json:"email" validate:"required,email"`
	Name  string `json:"name" validate:"required,min=2"`
}

func TestStructSource(t *testing.T) {
	v := compile.Compile(convert.Canonical(signup{}))
	if !v.Check(map[string]any{"email": "a@b.co", "name": "ann"}) {
		t.Fatalf("valid signup rejected")
	}
	if v.Check(map[string]any{"email": "nope", "name": "ann"}) {
		t.Fatalf("bad email accepted")
	}
	if v.Check(map[string]any{"email": "a@b.co"}) {
		t.Fatalf("missing name accepted")
	}
}

func TestFailingNodeKeepsSiblings(t *testing.T) {
	// An opaque node without its payload fails to convert in every target.
	n := s.Object([]s.Property{
		s.P("a", s.String()),
		s.P("b", &s.Node{Kind: s.KindOpaque}),
		s.P("c", s.Integer()),
	})
	var d tb.Diag
	c := convert.With(&d)

	if got := c.Syntax(n); got != "{ a: string, b: never, c: integer }" {
		t.Fatalf("syntax: %q", got)
	}
	js := c.JSONSchema(n)
	if js.Properties.Len() != 3 || js.Properties.Value("a").Type != "string" || js.Properties.Value("c").Type != "integer" {
		t.Fatalf("jsonschema siblings lost: %+v", js)
	}
	if js.Properties.Value("b").Not == nil {
		t.Fatalf("jsonschema failing node: %+v", js.Properties.Value("b"))
	}
	r := c.Tags(n)
	if len(r.Fields) != 3 || r.Fields[1].Rule.Type != tags.TypeNever || r.Fields[2].Rule.Type != tags.TypeInt {
		t.Fatalf("tags: %+v", r.Fields)
	}
	props := c.OpenAPI(n).Value("properties").(*openapi.Map)
	if props.Len() != 3 || props.Value("a").(*openapi.Map).Value("type") != "string" {
		t.Fatalf("openapi siblings lost: %v", props)
	}
	if _, ok := props.Value("b").(*openapi.Map).Get("not"); !ok {
		t.Fatalf("openapi failing node: %v", props.Value("b"))
	}

	failed := 0
	for _, w := range d.Warnings() {
		if strings.Contains(w, "failed") {
			failed++
		}
	}
	if failed != 4 {
		t.Fatalf("want one failure warning per target, got %v", d.Warnings())
	}
}

func TestLargeIntegerLiterals(t *testing.T) {
	const big = "9007199254740993"
	n := convert.Canonical(big)
	if n.Literal != int64(9007199254740993) {
		t.Fatalf("literal %T %v", n.Literal, n.Literal)
	}
	if small := convert.Canonical("42"); small.Literal != 42.0 {
		t.Fatalf("small literal %T %v", small.Literal, small.Literal)
	}
	if got := convert.Syntax(n); got != big {
		t.Fatalf("syntax: %q", got)
	}
	if got := convert.Tags(n).Tag; got != "eq="+big {
		t.Fatalf("tags: %q", got)
	}

	b, err := jsonschema.Marshal(convert.JSONSchema(n))
	if err != nil {
		t.Fatal(err)
	}
	js, err := jsonschema.Unmarshal(b)
	if err != nil {
		t.Fatal(err)
	}
	via := map[string]*s.Node{
		"canonical":  n,
		"jsonschema": convert.Canonical(js),
		"openapi":    convert.Canonical(convert.OpenAPI(n)),
	}
	for name, got := range via {
		v := compile.Compile(got)
		if !v.Check(json.Number(big)) || !v.Check(int64(9007199254740993)) {
			t.Fatalf("%s: rejects %s", name, big)
		}
		if v.Check(json.Number("9007199254740992")) || v.Check(int64(9007199254740992)) {
			t.Fatalf("%s: accepts the neighbouring integer", name)
		}
	}
}
