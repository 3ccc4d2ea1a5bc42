package compile_test

import (
	"encoding/json"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"testing"
	"time"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/format"
	s "github.com/reoring/typebridge/schema"
)

type fixture struct {
	name   string
	schema *s.Node
	good   []any
	bad    []any
}

func fixtures() []fixture {
	user := s.Object([]s.Property{
		s.P("name", s.String(s.Options{MinLength: s.Int(1), MaxLength: s.Int(8)})),
		s.P("age", s.Optional(s.Integer(s.Options{Minimum: s.Float(0)}))),
		s.P("tags", s.Optional(s.Array(s.String(), s.Options{UniqueItems: true}))),
	})
	shapes := s.Union([]*s.Node{
		s.Object([]s.Property{s.P("kind", s.Literal("circle")), s.P("r", s.Number())}),
		s.Object([]s.Property{s.P("kind", s.Literal("square")), s.P("side", s.Number())}),
	}, s.Options{Discriminator: "kind"})
	return []fixture{
		{"any", s.Any(), []any{nil, 1, "x", map[string]any{}}, nil},
		{"never", s.Never(), nil, []any{nil, 1, "x"}},
		{"null", s.Null(), []any{nil}, []any{0, "", s.Undef}},
		{"undefined", s.Undefined(), []any{s.Undef}, []any{nil, 0}},
		{"void", s.Void(), []any{s.Undef, nil}, []any{0}},
		{"boolean", s.Boolean(), []any{true, false}, []any{"true", 1}},
		{"number", s.Number(s.Options{Minimum: s.Float(1), ExclusiveMaximum: s.Float(10)}),
			[]any{1, 9.5, json.Number("3")}, []any{0, 10, "5", big.NewInt(5)}},
		{"integer", s.Integer(s.Options{MultipleOf: s.Float(3)}), []any{3, -6, 9.0, json.Number("12")}, []any{3.5, 4, json.Number("1.5")}},
		{"multipleOf decimal", s.Number(s.Options{MultipleOf: s.Float(0.1)}), []any{0.3, 1.2}, []any{0.35}},
		{"bigint", s.BigInt(s.Options{Minimum: s.Float(0)}), []any{big.NewInt(3)}, []any{3, big.NewInt(-1)}},
		{"string", s.String(s.Options{MinLength: s.Int(2), MaxLength: s.Int(3), Pattern: "^[a-zé]+$"}),
			[]any{"ab", "abé"}, []any{"a", "abcd", "AB", 12}},
		{"format", s.String(s.Options{Format: "email"}), []any{"a@b.co"}, []any{"nope"}},
		{"unknown format", s.String(s.Options{Format: "no-such-format"}), nil, []any{"x"}},
		{"regexp", s.RegExp("^abc$", "i"), []any{"ABC"}, []any{"abd", 1}},
		{"literal", s.Literal(2), []any{2, 2.0, json.Number("2")}, []any{"2", 3}},
		{"null literal", s.Literal(nil), []any{nil}, []any{0}},
		{"date", s.Date(), []any{time.Now()}, []any{"2020-01-01"}},
		{"symbol", s.Symbol(), []any{s.SymbolValue{Description: "x"}}, []any{"x"}},
		{"promise", s.Promise(s.String()), []any{make(chan int)}, []any{"x"}},
		{"function", s.Function(nil, s.Void()), []any{func() {}}, []any{"x"}},
		{"array", s.Array(s.Integer(), s.Options{MinItems: s.Int(1), MaxItems: s.Int(2)}),
			[]any{[]any{1}, []int{1, 2}}, []any{[]any{}, []any{1, 2, 3}, []any{"x"}, "x"}},
		{"unique", s.Array(s.Any(), s.Options{UniqueItems: true}), []any{[]any{1, "1"}}, []any{[]any{1, 1.0}}},
		{"tuple", s.Tuple([]*s.Node{s.String(), s.Number()}), []any{[]any{"a", 1}}, []any{[]any{"a"}, []any{1, "a"}, []any{"a", 1, 2}}},
		{"object", user,
			[]any{
				map[string]any{"name": "ann"},
				map[string]any{"name": "bob", "age": 3, "tags": []any{"x", "y"}, "extra": true},
				map[string]any{"name": "cid", "age": s.Undef},
			},
			[]any{
				map[string]any{},
				map[string]any{"name": ""},
				map[string]any{"name": "bob", "age": -1},
				map[string]any{"name": "bob", "tags": []any{"x", "x"}},
				map[string]any{"name": "bob", "age": nil},
				[]any{},
			}},
		{"strict object", s.Strict(s.Object([]s.Property{s.P("a", s.String())})),
			[]any{map[string]any{"a": "x"}, map[string]any{"a": "x", "b": s.Undef}}, []any{map[string]any{"a": "x", "b": 1}}},
		{"additional schema", s.WithAdditional(s.Object(nil), s.Number()),
			[]any{map[string]any{"a": 1}}, []any{map[string]any{"a": "x"}}},
		{"typed map", s.Object([]s.Property{s.P("a", s.Number())}), []any{map[string]int{"a": 1}}, []any{map[string]string{"a": "1"}}},
		{"required accepting undefined", s.Object([]s.Property{s.P("a", s.Unknown())}), []any{map[string]any{}}, nil},
		{"record", s.Record(`^\d+$`, s.Boolean(), s.Options{MaxProperties: s.Int(2)}),
			[]any{map[string]any{"1": true}, map[string]any{}}, []any{map[string]any{"x": true}, map[string]any{"1": 1}, map[string]any{"1": true, "2": true, "3": false}}},
		{"union", s.Union([]*s.Node{s.String(), s.Number()}), []any{"x", 1}, []any{true, nil}},
		{"discriminated", shapes,
			[]any{map[string]any{"kind": "circle", "r": 1}, map[string]any{"kind": "square", "side": 2}},
			[]any{map[string]any{"kind": "circle", "side": 1}, map[string]any{"kind": "hex"}, map[string]any{"r": 1}, "circle"}},
		{"intersect", s.Intersect([]*s.Node{
			s.Object([]s.Property{s.P("a", s.String())}),
			s.Object([]s.Property{s.P("b", s.Number())}),
		}), []any{map[string]any{"a": "x", "b": 1}}, []any{map[string]any{"a": "x"}}},
		{"optional top", s.Optional(s.String()), []any{s.Undef, "x"}, []any{nil}},
		{"readonly", s.Readonly(s.Number()), []any{1}, []any{"1"}},
		{"nested arrays", s.Array(s.Array(s.Object([]s.Property{s.P("k", s.Literal(true))}))),
			[]any{[]any{[]any{map[string]any{"k": true}}}}, []any{[]any{[]any{map[string]any{"k": false}}}}},
		{"record of arrays", s.Record("", s.Array(s.Integer())),
			[]any{map[string]any{"a": []any{1, 2}}}, []any{map[string]any{"a": []any{1.5}}}},
		{"opaque", s.NewOpaque("test", "even", func(v any) bool { i, ok := v.(int); return ok && i%2 == 0 }),
			[]any{2}, []any{3, "2"}},
		{"opaque without check", s.NewOpaque("test", nil, nil), nil, []any{1}},
	}
}

func TestFastPathAndInterpreterAgree(t *testing.T) {
	for _, fx := range fixtures() {
		fast := compile.Compile(fx.schema)
		slow := compile.Compile(fx.schema, compile.WithCodegen(false))
		if !fast.IsGenerated() {
			t.Fatalf("%s: expected generated fast path", fx.name)
		}
		if slow.IsGenerated() || !strings.HasPrefix(slow.Code(), "// interpreted: ") {
			t.Fatalf("%s: codegen should be disabled", fx.name)
		}
		for i, v := range fx.good {
			if !fast.Check(v) || !slow.Check(v) {
				t.Fatalf("%s: good[%d]=%#v rejected (fast=%v slow=%v)", fx.name, i, v, fast.Check(v), slow.Check(v))
			}
		}
		for i, v := range fx.bad {
			if fast.Check(v) || slow.Check(v) {
				t.Fatalf("%s: bad[%d]=%#v accepted (fast=%v slow=%v)", fx.name, i, v, fast.Check(v), slow.Check(v))
			}
		}
	}
}

func TestErrorsEmptyIffCheck(t *testing.T) {
	for _, fx := range fixtures() {
		v := compile.Compile(fx.schema)
		for _, val := range append(append([]any{}, fx.good...), fx.bad...) {
			n := len(tb.IssuesOf(v.Errors(val)))
			if v.Check(val) != (n == 0) {
				t.Fatalf("%s: Check=%v but %d errors for %#v", fx.name, v.Check(val), n, val)
			}
		}
	}
}

func TestErrors_PathsAndCodes(t *testing.T) {
	n := s.Strict(s.Object([]s.Property{
		s.P("name", s.String(s.Options{MinLength: s.Int(2)})),
		s.P("items", s.Array(s.Number())),
		s.P("id", s.Integer()),
	}))
	v := compile.Compile(n)
	iss := tb.IssuesOf(v.Errors(map[string]any{
		"name":  "x",
		"items": []any{1, "two"},
		"zz":    1,
	}))
	want := []struct{ ptr, code string }{
		{"/name", tb.CodeTooShort},
		{"/items/1", tb.CodeInvalidType},
		{"/id", tb.CodeRequired},
		{"/zz", tb.CodeUnknownKey},
	}
	if len(iss) != len(want) {
		t.Fatalf("got %d issues: %v", len(iss), iss)
	}
	for i, w := range want {
		if iss[i].Pointer() != w.ptr || iss[i].Code != w.code {
			t.Fatalf("issue %d = %s %s, want %s %s", i, iss[i].Pointer(), iss[i].Code, w.ptr, w.code)
		}
	}
	if idx, ok := iss[1].Path[1].(int); !ok || idx != 1 {
		t.Fatalf("array index should be an int path segment: %#v", iss[1].Path)
	}
}

func TestErrors_Discriminator(t *testing.T) {
	n := s.Union([]*s.Node{
		s.Object([]s.Property{s.P("type", s.Literal("a")), s.P("x", s.String())}),
		s.Object([]s.Property{s.P("type", s.Literal("b")), s.P("y", s.Number())}),
	}, s.Options{Discriminator: "type"})
	v := compile.Compile(n)
	cases := []struct {
		in   any
		code string
		ptr  string
	}{
		{map[string]any{"x": "1"}, tb.CodeDiscriminatorMissing, "/type"},
		{map[string]any{"type": "c"}, tb.CodeDiscriminatorUnknown, "/type"},
		{map[string]any{"type": "b", "y": "no"}, tb.CodeInvalidType, "/y"},
	}
	for _, c := range cases {
		iss := tb.IssuesOf(v.Errors(c.in))
		if len(iss) == 0 || iss[0].Code != c.code || iss[0].Pointer() != c.ptr {
			t.Fatalf("%v: got %v", c.in, iss)
		}
	}
}

func TestReferences(t *testing.T) {
	node := s.Object([]s.Property{
		s.P("value", s.Number()),
		s.P("next", s.Optional(s.Ref("Node"))),
	}, s.Options{ID: "Node"})
	for _, gen := range []bool{true, false} {
		v := compile.Compile(s.Ref("Node"), compile.WithReferences(node), compile.WithCodegen(gen))
		good := map[string]any{"value": 1, "next": map[string]any{"value": 2}}
		bad := map[string]any{"value": 1, "next": map[string]any{"value": "2"}}
		if !v.Check(good) || v.Check(bad) {
			t.Fatalf("codegen=%v: recursive reference mishandled", gen)
		}
	}
	unresolved := compile.Compile(s.Ref("Missing"))
	iss := tb.IssuesOf(unresolved.Errors(1))
	if unresolved.Check(1) || len(iss) != 1 || iss[0].Code != tb.CodeUnresolvedRef {
		t.Fatalf("unresolved ref: %v", iss)
	}
}

func TestWithFormats(t *testing.T) {
	reg := format.Empty()
	reg.Set("upper", func(x string) bool { return x == strings.ToUpper(x) })
	for _, gen := range []bool{true, false} {
		v := compile.Compile(s.String(s.Options{Format: "upper"}), compile.WithFormats(reg), compile.WithCodegen(gen))
		if !v.Check("ABC") || v.Check("abc") {
			t.Fatalf("codegen=%v: custom format ignored", gen)
		}
		if compile.Compile(s.String(s.Options{Format: "email"}), compile.WithFormats(reg), compile.WithCodegen(gen)).Check("a@b.co") {
			t.Fatalf("codegen=%v: format missing from registry must fail closed", gen)
		}
	}
}

func TestState(t *testing.T) {
	v := compile.New(s.String())
	if v.State() != compile.StateUncompiled {
		t.Fatalf("state = %v", v.State())
	}
	if !v.Check("x") || v.State() != compile.StateReady {
		t.Fatalf("state after check = %v", v.State())
	}
	if compile.Compile(nil).Check(nil) {
		t.Fatalf("nil schema should behave as never")
	}
}

func TestCode_UsesConstantTable(t *testing.T) {
	v := compile.Compile(s.Object([]s.Property{s.P(`we"ird`, s.String(s.Options{Pattern: `^"`}))}))
	code := v.Code()
	if code == "" || strings.Contains(code, "weird") || strings.Contains(code, `we"ird`) {
		t.Fatalf("unexpected code: %s", code)
	}
	if !v.Check(map[string]any{`we"ird`: `"x`}) {
		t.Fatalf("quoted key not handled")
	}
}

func TestParse_DefaultsAndTransforms(t *testing.T) {
	toInt := func(v any) (any, error) {
		str, _ := v.(string)
		return strconv.Atoi(str)
	}
	n := s.Object([]s.Property{
		s.P("port", s.Optional(s.Transform(s.String(s.Options{Pattern: `^\d+$`}), toInt, nil))),
		s.P("host", s.Optional(s.String(s.Options{Default: "localhost", HasDefault: true}))),
	})
	v := compile.Compile(n)
	in := map[string]any{"port": "8080"}
	out, err := v.Parse(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m := out.(map[string]any)
	if m["port"] != 8080 || m["host"] != "localhost" {
		t.Fatalf("unexpected result: %#v", m)
	}
	if _, touched := in["host"]; touched || in["port"] != "8080" {
		t.Fatalf("input mutated: %#v", in)
	}

	_, err = v.Parse(map[string]any{"port": "x"})
	var de *tb.DecodeError
	if !errors.As(err, &de) || len(de.Issues) != 1 || de.Issues[0].Pointer() != "/port" {
		t.Fatalf("expected decode error at /port, got %v", err)
	}
	if iss, ok := tb.AsIssues(err); !ok || iss[0].Code != tb.CodePattern {
		t.Fatalf("AsIssues: %v %v", iss, ok)
	}
}

func TestParse_TransformFailure(t *testing.T) {
	boom := errors.New("boom")
	n := s.Transform(s.String(), func(any) (any, error) { return nil, boom }, nil)
	_, err := compile.Compile(n).Parse("x")
	var de *tb.DecodeError
	if !errors.As(err, &de) || de.Issues[0].Code != tb.CodeTransform || !errors.Is(de.Issues[0].Cause, boom) {
		t.Fatalf("unexpected: %v", err)
	}
}

func TestEncode(t *testing.T) {
	lower := func(v any) (any, error) {
		str, ok := v.(string)
		if !ok {
			return nil, errors.New("not a string")
		}
		return strings.ToLower(str), nil
	}
	n := s.Transform(s.String(), nil, lower)
	v := compile.Compile(s.Array(n))
	out, err := v.Encode([]any{"A", "B"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if a := out.([]any); a[0] != "a" || a[1] != "b" {
		t.Fatalf("unexpected: %#v", out)
	}
	if _, err := v.Encode([]any{1}); err == nil {
		t.Fatalf("expected encode failure for non-string")
	}
}

func TestParseJSON_KeepsNumbers(t *testing.T) {
	v := compile.Compile(s.Object([]s.Property{s.P("n", s.Integer())}))
	if _, err := v.ParseJSON([]byte(`{"n": 9007199254740993}`)); err != nil {
		t.Fatalf("big integer rejected: %v", err)
	}
	ok, err := v.CheckJSON([]byte(`{"n": 1.5}`))
	if err != nil || ok {
		t.Fatalf("CheckJSON: %v %v", ok, err)
	}
	if _, err := v.ParseJSON([]byte(`{`)); err == nil {
		t.Fatalf("expected syntax error")
	}
}

func TestStandard(t *testing.T) {
	std := compile.Compile(s.Object([]s.Property{s.P("a", s.String())})).Standard()
	if std.Vendor() != "typebridge" || std.Version() != 1 {
		t.Fatalf("vendor/version: %s %d", std.Vendor(), std.Version())
	}
	ok := std.Validate(map[string]any{"a": "x"})
	if !ok.OK() || ok.Value == nil {
		t.Fatalf("expected success: %+v", ok)
	}
	bad := std.Validate(map[string]any{"a": 1})
	if bad.OK() || len(bad.Issues) != 1 || bad.Issues[0].Path[0] != "a" {
		t.Fatalf("expected one issue at a: %+v", bad)
	}
}
