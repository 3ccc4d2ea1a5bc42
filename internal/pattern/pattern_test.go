package pattern

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCombine_AllMustMatch(t *testing.T) {
	p := Combine("^abc", "xyz$", "mid")
	if p != "^(?=abc)(?=.*xyz$)(?=.*mid).*$" {
		t.Fatalf("unexpected combined pattern: %q", p)
	}
	cases := map[string]bool{
		"abc-mid-xyz": true,
		"abcmidxyz":   true,
		"abc-xyz":     false,
		"mid-abc-xyz": false,
		"abc-mid":     false,
	}
	for in, want := range cases {
		if got := Match(p, in); got != want {
			t.Fatalf("Match(%q)=%v want %v", in, got, want)
		}
	}
}

func TestCombine_SingleUnchanged(t *testing.T) {
	if got := Combine("^a+$"); got != "^a+$" {
		t.Fatalf("got %q", got)
	}
	if got := Combine(); got != "" {
		t.Fatalf("got %q", got)
	}
}

func TestSplit_ReversesCombine(t *testing.T) {
	in := []string{"^abc", "xyz$", "mid"}
	if diff := cmp.Diff(in, Split(Combine(in...))); diff != "" {
		t.Fatalf("split mismatch (-want +got):\n%s", diff)
	}
	if got := Split("^[a-z]+$"); len(got) != 1 || got[0] != "^[a-z]+$" {
		t.Fatalf("plain pattern should not split: %v", got)
	}
}

func TestLiteral_Forms(t *testing.T) {
	cases := []struct {
		in, kind, lit string
		ok            bool
	}{
		{"^" + Quote("a.b"), "prefix", "a.b", true},
		{Quote("x+y") + "$", "suffix", "x+y", true},
		{Quote("mid"), "contains", "mid", true},
		{"^a+$", "", "", false},
		{"a+", "contains", "", false},
	}
	for _, c := range cases {
		kind, lit, ok := Literal(c.in)
		if ok != c.ok || (ok && (kind != c.kind || lit != c.lit)) {
			t.Fatalf("Literal(%q) = %q %q %v", c.in, kind, lit, ok)
		}
	}
}

func TestMatch_InvalidPatternNeverMatches(t *testing.T) {
	if Match("(", "(") {
		t.Fatalf("invalid pattern must not match")
	}
	if Valid("(") {
		t.Fatalf("invalid pattern reported valid")
	}
}

func TestMatchFlags(t *testing.T) {
	if !MatchFlags("^abc$", "i", "ABC") {
		t.Fatalf("ignore-case flag not applied")
	}
	if Match("^a.b$", "a\nb") {
		t.Fatalf("dot must not match newline without s flag")
	}
	if !MatchFlags("^a.b$", "s", "a\nb") {
		t.Fatalf("s flag should let dot match newline")
	}
	if MatchFlags(`^a\.b$`, "s", "a\nb") {
		t.Fatalf("escaped dot must stay literal")
	}
}

func TestKeyPatterns(t *testing.T) {
	if !Match(Number, "0") || !Match(Number, "42") || Match(Number, "01") || Match(Number, "x") {
		t.Fatalf("number key pattern mismatch")
	}
	if !Match(Any, "") || !Match(Any, "anything") {
		t.Fatalf("any key pattern mismatch")
	}
}
