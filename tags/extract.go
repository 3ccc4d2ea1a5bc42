package tags

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

// Constraints is what a tag says about one node.
type Constraints struct {
	Options s.Options
	// Literals holds the eq value or the oneof values. HasLiterals
	// distinguishes "eq=" on an empty string from no literal check.
	Literals    []any
	HasLiterals bool
	Required    bool
	Omitempty   bool
	// Ignored lists checks without a canonical counterpart.
	Ignored []string
}

// Named pattern checks and their expressions.
var namedPatterns = map[string]string{
	"alpha":    "^[a-zA-Z]+$",
	"alphanum": "^[a-zA-Z0-9]+$",
	"numeric":  "^[-+]?[0-9]+(?:\\.[0-9]+)?$",
}

// Validator format tags and the generic format names they mean.
var formatTags = map[string]string{
	"email":            "email",
	"uuid":             "uuid",
	"url":              "url",
	"uri":              "uri",
	"ipv4":             "ipv4",
	"ip4_addr":         "ipv4",
	"ipv6":             "ipv6",
	"ip6_addr":         "ipv6",
	"hostname":         "hostname",
	"hostname_rfc1123": "hostname",
}

var layouts = map[string]string{
	time.RFC3339:     "date-time",
	time.RFC3339Nano: "date-time",
	time.DateOnly:    "date",
	time.TimeOnly:    "time",
}

// Extract reads the checks of tag for a node of base type t. Later bounds
// replace earlier ones. Every pattern-like check is kept, and together they
// are combined into one lookahead pattern.
func Extract(t Type, tag string) Constraints {
	var c Constraints
	var pieces []string
	addPiece := func(src string) {
		if !slices.Contains(pieces, src) {
			pieces = append(pieces, src)
		}
	}
	o := &c.Options
	for _, ch := range Parse(tag) {
		switch ch.Name {
		case "required":
			c.Required = true
		case "omitempty":
			c.Omitempty = true
		case "min", "gte":
			bound(t, ch.Param, 0, &o.MinLength, &o.MinItems, &o.MinProperties, &o.Minimum)
		case "max", "lte":
			bound(t, ch.Param, 0, &o.MaxLength, &o.MaxItems, &o.MaxProperties, &o.Maximum)
		case "len", "eq_len":
			bound(t, ch.Param, 0, &o.MinLength, &o.MinItems, &o.MinProperties, nil)
			bound(t, ch.Param, 0, &o.MaxLength, &o.MaxItems, &o.MaxProperties, nil)
		case "gt":
			bound(t, ch.Param, 1, &o.MinLength, &o.MinItems, &o.MinProperties, &o.ExclusiveMinimum)
		case "lt":
			bound(t, ch.Param, -1, &o.MaxLength, &o.MaxItems, &o.MaxProperties, &o.ExclusiveMaximum)
		case "datetime":
			if f, ok := layouts[ch.Param]; ok {
				o.Format = f
			} else {
				c.Ignored = append(c.Ignored, ch.String())
			}
		case "startswith":
			addPiece("^" + pattern.Quote(ch.Param))
		case "endswith":
			addPiece(pattern.Quote(ch.Param) + "$")
		case "contains":
			addPiece(pattern.Quote(ch.Param))
		case "alpha", "alphanum", "numeric":
			addPiece(namedPatterns[ch.Name])
		case "pattern":
			addPiece(ch.Param)
		case "eq":
			if v, ok := literal(t, ch.Param); ok {
				c.Literals, c.HasLiterals = []any{v}, true
			}
		case "oneof":
			var vs []any
			for _, p := range splitOneOf(ch.Param) {
				if v, ok := literal(t, p); ok {
					vs = append(vs, v)
				}
			}
			c.Literals, c.HasLiterals = vs, true
		case "unique":
			o.UniqueItems = true
		default:
			if f, ok := formatTags[ch.Name]; ok {
				o.Format = f
				continue
			}
			c.Ignored = append(c.Ignored, ch.String())
		}
	}
	o.Pattern = pattern.Combine(pieces...)
	return c
}

// bound stores param into the size bound matching t, or into num for
// numeric types. shift turns an exclusive size bound into an inclusive one.
func bound(t Type, param string, shift int, strLen, items, props **int, num **float64) {
	switch t {
	case TypeString, TypeSlice, TypeMap:
		n, err := strconv.Atoi(param)
		if err != nil {
			return
		}
		n += shift
		if n < 0 {
			n = 0
		}
		switch t {
		case TypeString:
			*strLen = s.Int(n)
		case TypeSlice:
			*items = s.Int(n)
		default:
			*props = s.Int(n)
		}
	case TypeInt, TypeFloat:
		f, err := strconv.ParseFloat(param, 64)
		if err != nil || num == nil || math.IsNaN(f) {
			return
		}
		*num = s.Float(f)
	}
}

func literal(t Type, param string) (any, bool) {
	switch t {
	case TypeString:
		return param, true
	case TypeInt, TypeFloat:
		if i, err := strconv.ParseInt(param, 10, 64); err == nil {
			return s.LiteralValue(i), true
		}
		f, err := strconv.ParseFloat(param, 64)
		return f, err == nil
	case TypeBool:
		b, err := strconv.ParseBool(param)
		return b, err == nil
	}
	return nil, false
}

// splitOneOf splits a oneof parameter on spaces; single quotes group a
// value containing spaces.
func splitOneOf(p string) []string {
	var out []string
	for p = strings.TrimSpace(p); p != ""; p = strings.TrimSpace(p) {
		if p[0] == '\'' {
			if end := strings.IndexByte(p[1:], '\''); end >= 0 {
				out = append(out, p[1:end+1])
				p = p[end+2:]
				continue
			}
		}
		word, rest, _ := strings.Cut(p, " ")
		out = append(out, word)
		p = rest
	}
	return out
}
