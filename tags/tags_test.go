package tags_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/format"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
	"github.com/reoring/typebridge/tags"
)

func TestParseAndJoin(t *testing.T) {
	got := tags.Parse("required, min=3,pattern=^a0x2Cb$,oneof=a 0x7C")
	want := []tags.Check{{Name: "required"}, {Name: "min", Param: "3"}, {Name: "pattern", Param: "^a,b$"}, {Name: "oneof", Param: "a |"}}
	if d := cmp.Diff(want, got); d != "" {
		t.Fatalf("parse mismatch (-want +got):\n%s", d)
	}
	if j := tags.Join(got); j != "required,min=3,pattern=^a0x2Cb$,oneof=a 0x7C" {
		t.Fatalf("join: %q", j)
	}
}

func TestExtract_LastWins(t *testing.T) {
	c := tags.Extract(tags.TypeString, "min=3,max=10,min=4,email,uuid")
	if *c.Options.MinLength != 4 || *c.Options.MaxLength != 10 || c.Options.Format != "uuid" {
		t.Fatalf("unexpected options: %+v", c.Options)
	}
	n := tags.Extract(tags.TypeFloat, "gte=1,gt=2,lte=9,lt=10")
	if *n.Options.Minimum != 1 || *n.Options.ExclusiveMinimum != 2 || *n.Options.Maximum != 9 || *n.Options.ExclusiveMaximum != 10 {
		t.Fatalf("unexpected numeric options: %+v", n.Options)
	}
	sl := tags.Extract(tags.TypeSlice, "len=2,unique")
	if *sl.Options.MinItems != 2 || *sl.Options.MaxItems != 2 || !sl.Options.UniqueItems {
		t.Fatalf("unexpected slice options: %+v", sl.Options)
	}
	str := tags.Extract(tags.TypeString, "gt=2,lt=5")
	if *str.Options.MinLength != 3 || *str.Options.MaxLength != 4 {
		t.Fatalf("exclusive lengths: %+v", str.Options)
	}
	if ig := tags.Extract(tags.TypeString, "required,excludesall=!").Ignored; len(ig) != 1 || ig[0] != "excludesall=!" {
		t.Fatalf("ignored: %v", ig)
	}
}

func TestExtract_SameKindPiecesAllKept(t *testing.T) {
	const tag = "contains=foo,contains=bar"
	c := tags.Extract(tags.TypeString, tag)
	if want := pattern.Combine("foo", "bar"); c.Options.Pattern != want {
		t.Fatalf("pattern %q, want %q", c.Options.Pattern, want)
	}
	r := &tags.Rule{Type: tags.TypeString, Tag: tag}
	v := compile.Compile(tags.ToCanonical(r))
	for _, in := range []string{"xbarx", "xfoox", "foobar", "barfoo"} {
		if native, canon := tags.Matches(r, in), v.Check(in); native != canon {
			t.Fatalf("%q: native=%v canonical=%v", in, native, canon)
		}
	}
	if !v.Check("barfoo") || v.Check("xbarx") {
		t.Fatalf("both checks must apply")
	}
	back := tags.FromCanonical(tags.ToCanonical(r))
	if !strings.Contains(back.Tag, "contains=foo") || !strings.Contains(back.Tag, "contains=bar") {
		t.Fatalf("round trip tag %q", back.Tag)
	}
	if p := tags.Extract(tags.TypeString, "contains=a,contains=a").Options.Pattern; p != "a" {
		t.Fatalf("repeated identical check: %q", p)
	}
}

func TestExtract_PatternPieces(t *testing.T) {
	c := tags.Extract(tags.TypeString, "startswith=ab,contains=y,endswith=z")
	want := pattern.Combine("^ab", "y", "z$")
	if c.Options.Pattern != want || want != "^(?=ab)(?=.*y)(?=.*z$).*$" {
		t.Fatalf("pattern %q, want %q", c.Options.Pattern, want)
	}
	v := compile.Compile(s.String(c.Options))
	if !v.Check("abyz") || v.Check("abyx") || v.Check("abz") || v.Check("zyab") {
		t.Fatalf("combined pattern semantics wrong")
	}
	if p := tags.Extract(tags.TypeString, "pattern=^a0x2Cb$").Options.Pattern; p != "^a,b$" {
		t.Fatalf("escaped pattern: %q", p)
	}
	if p := tags.Extract(tags.TypeString, "contains=a.b").Options.Pattern; p != `a\.b` {
		t.Fatalf("contains is quoted: %q", p)
	}
}

func TestExtract_Literals(t *testing.T) {
	c := tags.Extract(tags.TypeString, "oneof=red 'dark blue'")
	if d := cmp.Diff([]any{"red", "dark blue"}, c.Literals); d != "" || !c.HasLiterals {
		t.Fatalf("oneof literals:\n%s", d)
	}
	n := tags.Extract(tags.TypeInt, "eq=3")
	if d := cmp.Diff([]any{3.0}, n.Literals); d != "" {
		t.Fatalf("eq literal:\n%s", d)
	}
}

func TestFromCanonical_Tags(t *testing.T) {
	n := s.Object([]s.Property{
		s.P("name", s.String(s.Options{MinLength: s.Int(1), MaxLength: s.Int(8)})),
		s.P("age", s.Optional(s.Integer(s.Options{Minimum: s.Float(0)}))),
		s.P("email", s.String(s.Options{Format: "email"})),
		s.P("tags", s.Optional(s.Array(s.String(), s.Options{MinItems: s.Int(1), UniqueItems: true}))),
		s.P("role", s.Union([]*s.Node{s.Literal("admin"), s.Literal("dark user")})),
		s.P("code", s.String(s.Options{Pattern: "^a,b|c$"})),
	})
	r := tags.FromCanonical(n)
	want := map[string]string{
		"name":  "required,min=1,max=8",
		"age":   "omitempty,min=0",
		"email": "required,email",
		"tags":  "omitempty,min=1,unique",
		"role":  "required,oneof=admin 'dark user'",
		"code":  "required,pattern=^a0x2Cb0x7Cc$",
	}
	if r.Type != tags.TypeStruct || len(r.Fields) != len(want) {
		t.Fatalf("unexpected rule: %+v", r)
	}
	for _, f := range r.Fields {
		if f.Rule.Tag != want[f.Name] {
			t.Fatalf("%s: tag %q, want %q", f.Name, f.Rule.Tag, want[f.Name])
		}
	}
	if tg, _ := r.Field("tags"); tg.Elem == nil || tg.Elem.Type != tags.TypeString {
		t.Fatalf("slice element lost: %+v", tg)
	}
}

func TestFromCanonical_Degradations(t *testing.T) {
	var d tb.Diag
	r := tags.FromCanonical(s.Object([]s.Property{
		s.P("cb", s.Function(nil, s.Void())),
		s.P("n", s.Number(s.Options{MultipleOf: s.Float(2)})),
	}), tags.WithDiag(&d))
	if len(d.Warnings()) != 2 {
		t.Fatalf("warnings: %v", d.Warnings())
	}
	if cb, _ := r.Field("cb"); cb.Type != tags.TypeNever {
		t.Fatalf("function should degrade to never, got %s", cb.Type)
	}
	in := s.Intersect([]*s.Node{
		s.Object([]s.Property{s.P("a", s.String())}),
		s.Strict(s.Object([]s.Property{s.P("b", s.Optional(s.Integer()))})),
	})
	m := tags.FromCanonical(in)
	if len(m.Fields) != 2 || !m.Strict {
		t.Fatalf("intersection not merged: %+v", m)
	}
	if tags.FromCanonical(nil).Type != tags.TypeNever {
		t.Fatalf("nil should be never")
	}
}

func TestRoundTrip(t *testing.T) {
	cases := map[string]*s.Node{
		"string":   s.String(s.Options{MinLength: s.Int(1), MaxLength: s.Int(8), Description: "name"}),
		"len":      s.String(s.Options{MinLength: s.Int(2), MaxLength: s.Int(2)}),
		"int":      s.Integer(s.Options{Minimum: s.Float(0), Maximum: s.Float(10)}),
		"float":    s.Number(s.Options{ExclusiveMinimum: s.Float(0), ExclusiveMaximum: s.Float(1)}),
		"datetime": s.String(s.Options{Format: "date-time"}),
		"prefix":   s.String(s.Options{Pattern: "^ab"}),
		"pieces":   s.String(s.Options{Pattern: pattern.Combine("^ab", "z$", "^[a-zA-Z]+$")}),
		"regex":    s.String(s.Options{Pattern: "^[a-z]+$"}),
		"bool":     s.Boolean(),
		"null":     s.Null(),
		"any":      s.Any(),
		"never":    s.Never(),
		"date":     s.Date(),
		"array":    s.Array(s.String(), s.Options{MinItems: s.Int(1), UniqueItems: true}),
		"anyarray": s.Array(s.Any()),
		"tuple":    s.Tuple([]*s.Node{s.String(), s.Integer()}),
		"record":   s.Record("^[a-z]+$", s.Integer()),
		"anykey":   s.Record("", s.Boolean()),
		"oneof":    s.Union([]*s.Node{s.Literal("a"), s.Literal("b")}),
		"ints":     s.Union([]*s.Node{s.Literal(1), s.Literal(2)}),
		"literal":  s.Literal("x"),
		"number":   s.Literal(3),
		"true":     s.Literal(true),
		"union":    s.Union([]*s.Node{s.String(), s.Integer()}),
		"object": s.Strict(s.Object([]s.Property{
			s.P("a", s.String()),
			s.P("b", s.Optional(s.Array(s.Integer()))),
		}, s.Options{Description: "thing"})),
	}
	for name, n := range cases {
		r := tags.FromCanonical(n)
		if d := s.Diff(n, tags.ToCanonical(r)); d != "" {
			t.Fatalf("%s (%+v): round trip mismatch (-want +got):\n%s", name, r, d)
		}
	}
}

func TestToCanonical_Opaque(t *testing.T) {
	if err := tags.RegisterValidation("even", func(fl validator.FieldLevel) bool {
		return fl.Field().CanInt() && fl.Field().Int()%2 == 0
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	r := &tags.Rule{Type: tags.TypeCustom, Tag: "even"}
	n := tags.ToCanonical(r)
	if n.Kind != s.KindOpaque || n.Opaque.Dialect != tags.Dialect {
		t.Fatalf("want opaque, got %s", n.Kind)
	}
	v := compile.Compile(n)
	if !v.Check(4) || v.Check(3) {
		t.Fatalf("custom validation not delegated")
	}
	if back := tags.FromCanonical(n); back.Type != tags.TypeCustom || back.Tag != "even" {
		t.Fatalf("opaque rule not restored: %+v", back)
	}
	alt := tags.ToCanonical(&tags.Rule{Type: tags.TypeString, Tag: "email|uuid"})
	if alt.Kind != s.KindOpaque || !compile.Compile(alt).Check("a@b.co") || compile.Compile(alt).Check("x") {
		t.Fatalf("alternatives should stay opaque and checkable")
	}
}

func TestNativeAgreesWithCanonical(t *testing.T) {
	cases := []struct {
		r      *tags.Rule
		values []any
	}{
		{&tags.Rule{Type: tags.TypeString, Tag: "min=2,max=4,alpha"}, []any{"ab", "a", "abcde", "a1", 3}},
		{&tags.Rule{Type: tags.TypeInt, Tag: "min=1,max=5"}, []any{3, 0, 2.5, "3", json.Number("4")}},
		{&tags.Rule{Type: tags.TypeFloat, Tag: "gt=0,lt=1"}, []any{0.5, 0, 1, true}},
		{&tags.Rule{Type: tags.TypeStruct, Fields: []tags.Field{
			{Name: "name", Rule: &tags.Rule{Type: tags.TypeString, Tag: "required,min=1"}},
			{Name: "age", Rule: &tags.Rule{Type: tags.TypeInt, Tag: "omitempty,gte=0"}},
		}}, []any{
			map[string]any{"name": "x"}, map[string]any{}, map[string]any{"name": ""},
			map[string]any{"name": "x", "age": -1}, map[string]any{"name": "x", "extra": 1}, "x",
		}},
		{&tags.Rule{Type: tags.TypeMap, KeyTag: "startswith=x-", Elem: &tags.Rule{Type: tags.TypeInt}},
			[]any{map[string]any{"x-a": 1}, map[string]any{"a": 1}, map[string]any{"x-a": "s"}}},
		{&tags.Rule{Type: tags.TypeSlice, Tag: "len=2", Items: []*tags.Rule{{Type: tags.TypeString}, {Type: tags.TypeBool}}},
			[]any{[]any{"a", true}, []any{"a"}, []any{1, true}}},
		{&tags.Rule{Type: tags.TypeUnion, Variants: []*tags.Rule{{Type: tags.TypeNull}, {Type: tags.TypeString, Tag: "eq=on"}}},
			[]any{nil, "on", "off"}},
		{&tags.Rule{Type: tags.TypeString, Tag: "oneof=red green"}, []any{"red", "blue"}},
		{&tags.Rule{Type: tags.TypeSlice, Tag: "min=1,unique", Elem: &tags.Rule{Type: tags.TypeString, Tag: "email"}},
			[]any{[]any{"a@b.co"}, []any{"x"}, []any{}, []any{"a@b.co", "a@b.co"}}},
		{&tags.Rule{Type: tags.TypeTime}, []any{time.Now(), "2020-01-01"}},
	}
	for _, c := range cases {
		v := compile.Compile(tags.ToCanonical(c.r))
		for _, val := range c.values {
			if native, canon := tags.Matches(c.r, val), v.Check(val); native != canon {
				t.Fatalf("%+v with %#v: native=%v canonical=%v", c.r, val, native, canon)
			}
		}
	}
}

func TestValidate_Issues(t *testing.T) {
	r := &tags.Rule{Type: tags.TypeStruct, Strict: true, Fields: []tags.Field{
		{Name: "name", Rule: &tags.Rule{Type: tags.TypeString, Tag: "required"}},
		{Name: "n", Rule: &tags.Rule{Type: tags.TypeInt, Tag: "omitempty,min=3"}},
	}}
	err := tags.Validate(r, map[string]any{"n": 1, "extra": true})
	iss, ok := tb.AsIssues(err)
	if !ok {
		t.Fatalf("want issues, got %v", err)
	}
	var codes []string
	for _, is := range iss {
		codes = append(codes, is.Code+" "+is.Pointer())
	}
	want := []string{"required /name", "too_small /n", "unknown_key /extra"}
	if d := cmp.Diff(want, codes); d != "" {
		t.Fatalf("issues mismatch (-want +got):\n%s", d)
	}
	if tags.Validate(r, map[string]any{"name": "x"}) != nil {
		t.Fatalf("valid value rejected")
	}
}

func TestVar_RecoversFromPanics(t *testing.T) {
	if err := tags.Var(1.5, "oneof=1 2"); err == nil {
		t.Fatalf("oneof on a float must fail, not panic")
	}
	if err := tags.Var("ab", "pattern=^a"); err != nil {
		t.Fatalf("pattern validation not registered: %v", err)
	}
}

type address struct {
	City string `json:"city" validate:"required,min=1"`
}

type base struct {
	ID string `json:"id" validate:"required,uuid"`
}

type user struct {
	base
	Name    string         `json:"name" validate:"required,max=8"`
	Nick    *string        `json:"nick,omitempty"`
	Emails  []string       `json:"emails" validate:"min=1,dive,email"`
	Labels  map[string]int `json:"labels" validate:"dive,keys,startswith=x-,endkeys,gte=0"`
	Home    address        `json:"home"`
	Born    time.Time      `json:"born"`
	Skip    string         `json:"-"`
	private int
	Extra   map[string]string `json:"extra,omitempty"`
}

func TestReflect(t *testing.T) {
	r := tags.Reflect(user{})
	var names []string
	for _, f := range r.Fields {
		names = append(names, f.Name)
	}
	if d := cmp.Diff([]string{"id", "name", "nick", "emails", "labels", "home", "born", "extra"}, names); d != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", d)
	}
	emails, _ := r.Field("emails")
	if emails.Tag != "min=1" || emails.Elem.Tag != "email" {
		t.Fatalf("dive not split: %+v", emails)
	}
	labels, _ := r.Field("labels")
	if labels.KeyTag != "startswith=x-" || labels.Elem.Tag != "gte=0" || labels.Elem.Type != tags.TypeInt {
		t.Fatalf("keys not split: %+v", labels)
	}
	if born, _ := r.Field("born"); born.Type != tags.TypeTime {
		t.Fatalf("time field: %+v", born)
	}

	v := compile.Compile(tags.ToCanonical(r))
	good := map[string]any{
		"id":     "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"name":   "ann",
		"emails": []any{"a@b.co"},
		"labels": map[string]any{"x-a": 1},
		"home":   map[string]any{"city": "Oslo"},
		"born":   time.Now(),
		"extra":  map[string]any{},
	}
	if !v.Check(good) || !tags.Matches(r, good) {
		t.Fatalf("valid user rejected: %v", v.Validate(good))
	}
	bad := map[string]any{"id": "x", "name": "ann", "emails": []any{}, "labels": map[string]any{}, "home": map[string]any{}, "born": time.Now(), "extra": map[string]any{}}
	if v.Check(bad) || tags.Matches(r, bad) {
		t.Fatalf("invalid user accepted")
	}
}

func TestFormats_Registered(t *testing.T) {
	for name := range tags.Formats {
		if !format.Has(tags.QualifiedFormat(name)) {
			t.Fatalf("format %q not registered", name)
		}
	}
	if ok, known := format.Default.Check("tags:date", "2024-02-30"); !known || ok {
		t.Fatalf("tags:date should reject impossible dates")
	}
	if ok, _ := format.Default.Check("tags:hostname", "example.com"); !ok {
		t.Fatalf("tags:hostname should accept example.com")
	}
}
