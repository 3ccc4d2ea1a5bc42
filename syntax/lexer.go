package syntax

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	ErrSyntax       = errors.New("syntax error")
	ErrUnterminated = fmt.Errorf("%w: unterminated", ErrSyntax)
	ErrUnexpected   = fmt.Errorf("%w: unexpected", ErrSyntax)
	ErrUnknown      = fmt.Errorf("%w: unknown type", ErrSyntax)
)

// Error locates a syntax error in the parsed text.
type Error struct {
	Err    error
	Offset int
	Line   int
	Col    int
	Near   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v %q at line %d, col %d", e.Err, e.Near, e.Line, e.Col)
}

func (e *Error) Unwrap() error { return e.Err }

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokRegExp
	tokPunct
)

type token struct {
	kind tokenKind
	text string // identifier, punctuation or the decoded string/regexp source
	num  float64
	// flags of a regexp literal
	flags string
	off   int
}

// puncts lists multi-byte punctuation before its one-byte prefixes.
var puncts = []string{"=>", "{", "}", "[", "]", "(", ")", "<", ">", ",", ";", ":", "?", "|", "&"}

func lex(src string) ([]token, error) {
	var out []token
	for i := 0; i < len(src); {
		r, w := utf8.DecodeRuneInString(src[i:])
		switch {
		case r == utf8.RuneError && w == 1:
			return nil, errorAt(src, i, fmt.Errorf("%w: bad utf8", ErrSyntax))
		case unicode.IsSpace(r):
			i += w
		case strings.HasPrefix(src[i:], "//"):
			end := strings.IndexByte(src[i:], '\n')
			if end < 0 {
				i = len(src)
			} else {
				i += end
			}
		case isIdentStart(r):
			j := i + w
			for j < len(src) {
				r, w := utf8.DecodeRuneInString(src[j:])
				if !isIdentPart(r) {
					break
				}
				j += w
			}
			out = append(out, token{kind: tokIdent, text: src[i:j], off: i})
			i = j
		case r == '\'' || r == '"':
			s, n, err := lexString(src[i:])
			if err != nil {
				return nil, errorAt(src, i, err)
			}
			out = append(out, token{kind: tokString, text: s, off: i})
			i += n
		case r == '/':
			t, n, err := lexRegExp(src[i:])
			if err != nil {
				return nil, errorAt(src, i, err)
			}
			t.off = i
			out = append(out, t)
			i += n
		case r == '-' || r >= '0' && r <= '9':
			t, n, err := lexNumber(src[i:])
			if err != nil {
				return nil, errorAt(src, i, err)
			}
			t.off = i
			out = append(out, t)
			i += n
		default:
			p := matchPunct(src[i:])
			if p == "" {
				return nil, errorAt(src, i, ErrUnexpected)
			}
			out = append(out, token{kind: tokPunct, text: p, off: i})
			i += len(p)
		}
	}
	return append(out, token{kind: tokEOF, off: len(src)}), nil
}

func matchPunct(s string) string {
	for _, p := range puncts {
		if strings.HasPrefix(s, p) {
			return p
		}
	}
	return ""
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

func lexString(s string) (string, int, error) {
	q := s[0]
	b := &strings.Builder{}
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == q:
			return b.String(), i + 1, nil
		case c == '\n':
			return "", 0, ErrUnterminated
		case c == '\\':
			if i+1 >= len(s) {
				return "", 0, ErrUnterminated
			}
			i++
			switch e := s[i]; e {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'u':
				if i+4 >= len(s) {
					return "", 0, fmt.Errorf("%w: bad escape", ErrSyntax)
				}
				n, err := strconv.ParseUint(s[i+1:i+5], 16, 32)
				if err != nil {
					return "", 0, fmt.Errorf("%w: bad escape", ErrSyntax)
				}
				b.WriteRune(rune(n))
				i += 4
			default:
				b.WriteByte(e)
			}
		default:
			b.WriteByte(c)
		}
	}
	return "", 0, ErrUnterminated
}

// lexRegExp reads /source/flags. An escaped slash in the source stands for
// a plain slash.
func lexRegExp(s string) (token, int, error) {
	b := &strings.Builder{}
	inClass := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\n':
			return token{}, 0, ErrUnterminated
		case c == '\\':
			if i+1 >= len(s) {
				return token{}, 0, ErrUnterminated
			}
			if s[i+1] != '/' {
				b.WriteByte(c)
			}
			i++
			b.WriteByte(s[i])
		case c == '[':
			inClass = true
			b.WriteByte(c)
		case c == ']':
			inClass = false
			b.WriteByte(c)
		case c == '/' && !inClass:
			j := i + 1
			for j < len(s) && s[j] >= 'a' && s[j] <= 'z' {
				j++
			}
			return token{kind: tokRegExp, text: b.String(), flags: s[i+1 : j]}, j, nil
		default:
			b.WriteByte(c)
		}
	}
	return token{}, 0, ErrUnterminated
}

func lexNumber(s string) (token, int, error) {
	j := 0
	if s[0] == '-' {
		j++
	}
	digits := func() int {
		n := 0
		for j < len(s) && s[j] >= '0' && s[j] <= '9' {
			j++
			n++
		}
		return n
	}
	if digits() == 0 {
		return token{}, 0, ErrUnexpected
	}
	if j < len(s) && s[j] == '.' {
		j++
		if digits() == 0 {
			return token{}, 0, fmt.Errorf("%w: bad number", ErrSyntax)
		}
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		j++
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if digits() == 0 {
			return token{}, 0, fmt.Errorf("%w: bad number", ErrSyntax)
		}
	}
	f, err := strconv.ParseFloat(s[:j], 64)
	if err != nil {
		return token{}, 0, fmt.Errorf("%w: bad number", ErrSyntax)
	}
	return token{kind: tokNumber, text: s[:j], num: f}, j, nil
}

func errorAt(src string, off int, err error) *Error {
	line, col := 1, 1
	for _, r := range src[:off] {
		if r == '\n' {
			line, col = line+1, 1
			continue
		}
		col++
	}
	near := src[off:]
	if len(near) > 10 {
		near = near[:10]
	}
	return &Error{Err: err, Offset: off, Line: line, Col: col, Near: near}
}
