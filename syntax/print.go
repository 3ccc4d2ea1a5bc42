package syntax

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/internal/dispatch"
	"github.com/reoring/typebridge/internal/pattern"
	s "github.com/reoring/typebridge/schema"
)

type config struct {
	diag *tb.Diag
}

// Option configures Print.
type Option func(*config)

// WithDiag records what Print could not write in d.
func WithDiag(d *tb.Diag) Option {
	return func(c *config) { c.diag = d }
}

// Binding strength of the position a node is printed in.
const (
	precUnion = iota
	precIntersect
	precPostfix
)

type printArg struct {
	n    *s.Node
	prec int
	cfg  *config
}

func (a printArg) sub(n *s.Node, prec int) string {
	return printTable.Convert(printArg{n: n, prec: prec, cfg: a.cfg})
}

// wrap parenthesizes out when the position binds tighter than the node.
func (a printArg) wrap(own int, out string) string {
	if a.prec > own {
		return "(" + out + ")"
	}
	return out
}

var printTable *dispatch.Table[printArg, string]

func kindIs(kinds ...s.Kind) func(printArg) bool {
	return func(a printArg) bool {
		for _, k := range kinds {
			if a.n.Kind == k {
				return true
			}
		}
		return false
	}
}

var names = map[s.Kind]string{
	s.KindAny:       "any",
	s.KindUnknown:   "unknown",
	s.KindNever:     "never",
	s.KindVoid:      "void",
	s.KindNull:      "null",
	s.KindUndefined: "undefined",
	s.KindBoolean:   "boolean",
	s.KindNumber:    "number",
	s.KindInteger:   "integer",
	s.KindBigInt:    "bigint",
	s.KindString:    "string",
	s.KindSymbol:    "symbol",
	s.KindDate:      "Date",
}

func init() {
	printTable = dispatch.New(func(a printArg) string {
		a.cfg.diag.Warnf("syntax: %s is not printable; written as never", a.n.Kind)
		return "never"
	},
		dispatch.Case[printArg, string]{Name: "nil", Match: func(a printArg) bool { return a.n == nil }, Convert: func(printArg) string { return "never" }},
		dispatch.Case[printArg, string]{Name: "optional", Match: kindIs(s.KindOptional), Convert: func(a printArg) string { return "Optional<" + a.sub(a.n.Item, precUnion) + ">" }},
		dispatch.Case[printArg, string]{Name: "readonly", Match: kindIs(s.KindReadonly), Convert: func(a printArg) string { return "Readonly<" + a.sub(a.n.Item, precUnion) + ">" }},
		dispatch.Case[printArg, string]{Name: "opaque", Match: kindIs(s.KindOpaque), Convert: func(a printArg) string {
			a.cfg.diag.Warnf("syntax: opaque %s schema written as unknown", a.n.Opaque.Dialect)
			return "unknown"
		}},
		dispatch.Case[printArg, string]{Name: "transform", Match: kindIs(s.KindTransform), Convert: func(a printArg) string {
			a.cfg.diag.Warnf("syntax: transform written as its input")
			return a.sub(a.n.Item, a.prec)
		}},
		dispatch.Case[printArg, string]{Name: "ref", Match: kindIs(s.KindRef), Convert: printRef},
		dispatch.Case[printArg, string]{Name: "object", Match: kindIs(s.KindObject), Convert: printObject},
		dispatch.Case[printArg, string]{Name: "record", Match: kindIs(s.KindRecord), Convert: printRecord},
		dispatch.Case[printArg, string]{Name: "tuple", Match: kindIs(s.KindTuple), Convert: printTuple},
		dispatch.Case[printArg, string]{Name: "array", Match: kindIs(s.KindArray), Convert: func(a printArg) string { return a.sub(a.n.Item, precPostfix) + "[]" }},
		dispatch.Case[printArg, string]{Name: "promise", Match: kindIs(s.KindPromise), Convert: func(a printArg) string { return "Promise<" + a.sub(a.n.Item, precUnion) + ">" }},
		dispatch.Case[printArg, string]{Name: "union", Match: kindIs(s.KindUnion), Convert: func(a printArg) string { return a.join(" | ", precUnion, precIntersect) }},
		dispatch.Case[printArg, string]{Name: "intersect", Match: kindIs(s.KindIntersect), Convert: func(a printArg) string { return a.join(" & ", precIntersect, precPostfix) }},
		dispatch.Case[printArg, string]{Name: "function", Match: kindIs(s.KindFunction, s.KindConstructor), Convert: printFunction},
		dispatch.Case[printArg, string]{Name: "literal", Match: kindIs(s.KindLiteral), Convert: printLiteral},
		dispatch.Case[printArg, string]{Name: "regexp", Match: kindIs(s.KindRegExp), Convert: func(a printArg) string { return regexpLiteral(a.n.Pattern) + a.n.Flags }},
		dispatch.Case[printArg, string]{Name: "scalar", Match: func(a printArg) bool { _, ok := names[a.n.Kind]; return ok }, Convert: func(a printArg) string { return names[a.n.Kind] }},
	)
	printTable.Recover(func(a printArg, r any) string {
		a.cfg.diag.Warnf("syntax: print failed: %v; written as never", r)
		return "never"
	})
}

// Print writes n in the text syntax. Options and constraints have no text
// form and are dropped; so are additional property rules.
func Print(n *s.Node, opts ...Option) string {
	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}
	return printTable.Convert(printArg{n: n, cfg: cfg})
}

func (a printArg) join(sep string, own, inner int) string {
	if len(a.n.Items) == 0 {
		return "never"
	}
	parts := make([]string, len(a.n.Items))
	for i, it := range a.n.Items {
		parts[i] = a.sub(it, inner)
	}
	return a.wrap(own, strings.Join(parts, sep))
}

func printRef(a printArg) string {
	if !isIdent(a.n.Ref) || keywords[a.n.Ref] != nil || generics[a.n.Ref] != nil || a.n.Ref == "new" {
		a.cfg.diag.Warnf("syntax: reference %q is not an identifier; written as unknown", a.n.Ref)
		return "unknown"
	}
	return a.n.Ref
}

func printObject(a printArg) string {
	if a.n.AdditionalProperties != nil {
		a.cfg.diag.Warnf("syntax: additional property rule dropped")
	}
	if len(a.n.Properties) == 0 {
		return "{}"
	}
	parts := make([]string, len(a.n.Properties))
	for i, p := range a.n.Properties {
		b := &strings.Builder{}
		if p.Readonly {
			b.WriteString("readonly ")
		}
		b.WriteString(propertyKey(p.Key))
		if p.Optional {
			b.WriteByte('?')
		}
		b.WriteString(": ")
		b.WriteString(a.sub(p.Schema, precUnion))
		parts[i] = b.String()
	}
	return "{ " + strings.Join(parts, ", ") + " }"
}

func printRecord(a printArg) string {
	var key string
	switch a.n.KeyPattern {
	case pattern.Any, "":
		key = "string"
	case NumberKey:
		key = "number"
	case IntegerKey:
		key = "integer"
	default:
		key = regexpLiteral(a.n.KeyPattern)
	}
	return "Record<" + key + ", " + a.sub(a.n.Item, precUnion) + ">"
}

func printTuple(a printArg) string {
	parts := make([]string, len(a.n.Items))
	for i, it := range a.n.Items {
		parts[i] = a.sub(it, precUnion)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func printFunction(a printArg) string {
	parts := make([]string, len(a.n.Items))
	for i, it := range a.n.Items {
		name := "arg" + strconv.Itoa(i)
		if it.Kind == s.KindOptional {
			parts[i] = name + "?: " + a.sub(it.Item, precUnion)
			continue
		}
		parts[i] = name + ": " + a.sub(it, precUnion)
	}
	out := "(" + strings.Join(parts, ", ") + ") => " + a.sub(a.n.Returns, precUnion)
	if a.n.Kind == s.KindConstructor {
		out = "new " + out
	}
	return a.wrap(precUnion, out)
}

func printLiteral(a printArg) string {
	switch v := a.n.Literal.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			a.cfg.diag.Warnf("syntax: literal %v has no text form; written as number", v)
			return "number"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	}
	a.cfg.diag.Warnf("syntax: literal of %T written as never", a.n.Literal)
	return "never"
}

func propertyKey(k string) string {
	if isIdent(k) {
		return k
	}
	return quote(k)
}

func isIdent(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		if i == 0 && !isIdentStart(r) || !isIdentPart(r) {
			return false
		}
	}
	return true
}

func quote(v string) string {
	b := &strings.Builder{}
	b.WriteByte('\'')
	for _, r := range v {
		switch r {
		case '\'', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < utf8.RuneSelf && !unicode.IsPrint(r) {
				b.WriteString(`\u00`)
				b.WriteString(strconv.FormatInt(int64(r)>>4, 16))
				b.WriteString(strconv.FormatInt(int64(r)&0xf, 16))
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// regexpLiteral writes src between slashes, escaping slashes outside
// character classes.
func regexpLiteral(src string) string {
	b := &strings.Builder{}
	b.WriteByte('/')
	inClass := false
	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '\\' && i+1 < len(src):
			b.WriteByte(c)
			i++
			b.WriteByte(src[i])
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			b.WriteByte('\\')
		}
		b.WriteByte(c)
	}
	b.WriteByte('/')
	return b.String()
}
