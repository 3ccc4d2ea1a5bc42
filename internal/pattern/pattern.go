// Package pattern compiles and caches the ECMAScript-flavoured regular
// expressions that schemas carry. Go's regexp package lacks lookahead, which
// the conjunction form produced by Combine depends on.
package pattern

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
)

// Key patterns for records.
const (
	Any     = "^.*$"
	Number  = "^(0|[1-9][0-9]*)$"
	Boolean = "^(true|false)$"
)

// matchTimeout bounds a single match; regexp2 backtracks.
const matchTimeout = 2 * time.Second

type key struct{ src, flags string }

var cache sync.Map // key -> *regexp2.Regexp

// Compile compiles src in ECMAScript mode. flags accepts the letters i, m
// and s. Compiled expressions are cached.
func Compile(src, flags string) (*regexp2.Regexp, error) {
	k := key{src, flags}
	if re, ok := cache.Load(k); ok {
		return re.(*regexp2.Regexp), nil
	}
	opts := regexp2.RegexOptions(regexp2.ECMAScript)
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 's':
			// ECMAScript mode rejects Singleline; dotall is emulated below.
			src = dotAll(src)
		}
	}
	re, err := regexp2.Compile(src, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = matchTimeout
	cache.Store(k, re)
	return re, nil
}

// dotAll rewrites every unescaped '.' outside a character class.
func dotAll(src string) string {
	b := &strings.Builder{}
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			b.WriteByte(c)
			i++
			b.WriteByte(src[i])
			continue
		case inClass && c == ']':
			inClass = false
		case !inClass && c == '[':
			inClass = true
		case !inClass && c == '.':
			b.WriteString(`[\s\S]`)
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// Valid reports whether src compiles.
func Valid(src string) bool {
	_, err := Compile(src, "")
	return err == nil
}

// Match reports whether s matches src. Invalid patterns never match.
func Match(src, s string) bool {
	return MatchFlags(src, "", s)
}

// MatchFlags is Match with regexp flags.
func MatchFlags(src, flags, s string) bool {
	re, err := Compile(src, flags)
	if err != nil {
		return false
	}
	ok, err := re.MatchString(s)
	return err == nil && ok
}

// Combine joins patterns into one that matches only when every pattern
// matches, using one lookahead per pattern. A single pattern is returned
// unchanged.
func Combine(patterns ...string) string {
	switch len(patterns) {
	case 0:
		return ""
	case 1:
		return patterns[0]
	}
	b := &strings.Builder{}
	b.WriteByte('^')
	for _, p := range patterns {
		b.WriteString("(?=")
		b.WriteString(normalize(p))
		b.WriteByte(')')
	}
	b.WriteString(".*$")
	return b.String()
}

// normalize anchors p at the lookahead position: a leading ^ is dropped and
// an unanchored pattern may start anywhere.
func normalize(p string) string {
	if strings.HasPrefix(p, "^") {
		return p[1:]
	}
	return ".*" + p
}

// Quote escapes every metacharacter in s. The result is valid in both RE2 and
// ECMAScript syntax.
func Quote(s string) string { return regexp.QuoteMeta(s) }

// Unquote reverses Quote. ok is false when p contains an unescaped
// metacharacter, i.e. it is not a plain literal.
func Unquote(p string) (string, bool) {
	b := &strings.Builder{}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == '\\' {
			if i+1 >= len(p) || !strings.ContainsRune(metachars, rune(p[i+1])) {
				return "", false
			}
			i++
			b.WriteByte(p[i])
			continue
		}
		if strings.IndexByte(metachars, c) >= 0 {
			return "", false
		}
		b.WriteByte(c)
	}
	return b.String(), true
}

const metachars = `\.+*?()|[]{}^$`

// Literal classifies p as one of the simple literal forms "^lit" (prefix),
// "lit$" (suffix) or "lit" (contains). ok is false otherwise.
func Literal(p string) (kind, lit string, ok bool) {
	switch {
	case strings.HasPrefix(p, "^") && !strings.HasSuffix(p, "$"):
		lit, ok = Unquote(p[1:])
		return "prefix", lit, ok && lit != ""
	case strings.HasSuffix(p, "$") && !strings.HasPrefix(p, "^") && !strings.HasSuffix(p, `\$`):
		lit, ok = Unquote(p[:len(p)-1])
		return "suffix", lit, ok && lit != ""
	case !strings.HasPrefix(p, "^") && !strings.HasSuffix(p, "$"):
		lit, ok = Unquote(p)
		return "contains", lit, ok && lit != ""
	}
	return "", "", false
}

// Split reverses Combine for patterns it produced. Anything else is returned
// as a single element.
func Split(p string) []string {
	if !strings.HasPrefix(p, "^(?=") || !strings.HasSuffix(p, ").*$") {
		return []string{p}
	}
	body := p[1 : len(p)-len(".*$")]
	var out []string
	for body != "" {
		if !strings.HasPrefix(body, "(?=") {
			return []string{p}
		}
		end := closing(body)
		if end < 0 {
			return []string{p}
		}
		inner := body[3:end]
		if strings.HasPrefix(inner, ".*") {
			inner = inner[2:]
		} else {
			inner = "^" + inner
		}
		out = append(out, inner)
		body = body[end+1:]
	}
	return out
}

// closing returns the index of the parenthesis closing the group opened at
// s[0], honouring escapes and character classes.
func closing(s string) int {
	depth, inClass := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
