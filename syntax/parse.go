// Package syntax reads and writes the compact text form of canonical
// schemas, e.g.
//
//	{ id: string, tags?: string[], kind: 'a' | 'b', at: Date }
//
// Identifiers are resolved in the caller's named context first, then as
// built-in types; any other identifier is a reference to a schema of that
// ID.
package syntax

import (
	"fmt"
	"strconv"

	s "github.com/reoring/typebridge/schema"
)

// Dialect is the dialect id of the text syntax.
const Dialect = "syntax"

// Record key patterns written as number and integer.
const (
	NumberKey  = `^-?(?:0|[1-9][0-9]*)(?:\.[0-9]+)?$`
	IntegerKey = `^-?(?:0|[1-9][0-9]*)$`
)

var keywords = map[string]func() *s.Node{
	"any":       func() *s.Node { return s.Any() },
	"unknown":   func() *s.Node { return s.Unknown() },
	"never":     func() *s.Node { return s.Never() },
	"void":      func() *s.Node { return s.Void() },
	"null":      func() *s.Node { return s.Null() },
	"undefined": func() *s.Node { return s.Undefined() },
	"boolean":   func() *s.Node { return s.Boolean() },
	"number":    func() *s.Node { return s.Number() },
	"integer":   func() *s.Node { return s.Integer() },
	"bigint":    func() *s.Node { return s.BigInt() },
	"string":    func() *s.Node { return s.String() },
	"symbol":    func() *s.Node { return s.Symbol() },
	"object":    func() *s.Node { return s.Object(nil) },
	"Date":      func() *s.Node { return s.Date() },
	"true":      func() *s.Node { return s.Literal(true) },
	"false":     func() *s.Node { return s.Literal(false) },
}

type generic func(p *parser, args []*s.Node, at token) (*s.Node, error)

var generics map[string]generic

func init() {
	one := func(f func(*s.Node) *s.Node) generic {
		return func(p *parser, args []*s.Node, at token) (*s.Node, error) {
			if len(args) != 1 {
				return nil, p.errAt(at, fmt.Errorf("%w: %s takes one argument", ErrSyntax, at.text))
			}
			return f(args[0]), nil
		}
	}
	generics = map[string]generic{
		"Array":    one(func(n *s.Node) *s.Node { return s.Array(n) }),
		"Promise":  one(func(n *s.Node) *s.Node { return s.Promise(n) }),
		"Optional": one(s.Optional),
		"Readonly": one(s.Readonly),
		"Partial":  objectMap(true),
		"Required": objectMap(false),
		"Record":   record,
	}
}

// objectMap sets the optionality of every property of an object argument.
func objectMap(optional bool) generic {
	return func(p *parser, args []*s.Node, at token) (*s.Node, error) {
		if len(args) != 1 || args[0].Kind != s.KindObject {
			return nil, p.errAt(at, fmt.Errorf("%w: %s takes one object", ErrSyntax, at.text))
		}
		c := args[0].Clone()
		c.Properties = append([]s.Property(nil), c.Properties...)
		for i := range c.Properties {
			c.Properties[i].Optional = optional
		}
		return c, nil
	}
}

// record builds Record<K, V>. Literal keys declare required properties.
func record(p *parser, args []*s.Node, at token) (*s.Node, error) {
	if len(args) != 2 {
		return nil, p.errAt(at, fmt.Errorf("%w: Record takes two arguments", ErrSyntax))
	}
	key, value := args[0], args[1]
	switch key.Kind {
	case s.KindString:
		return s.Record("", value), nil
	case s.KindNumber:
		return s.Record(NumberKey, value), nil
	case s.KindInteger:
		return s.Record(IntegerKey, value), nil
	case s.KindRegExp:
		return s.Record(key.Pattern, value), nil
	}
	var lits []*s.Node
	if key.Kind == s.KindUnion {
		lits = key.Items
	} else {
		lits = []*s.Node{key}
	}
	props := make([]s.Property, 0, len(lits))
	for _, l := range lits {
		k, ok := l.Literal.(string)
		if l.Kind != s.KindLiteral || !ok {
			return nil, p.errAt(at, fmt.Errorf("%w: unsupported Record key", ErrSyntax))
		}
		props = append(props, s.P(k, value))
	}
	return s.Object(props), nil
}

// Parse reads text into a canonical node. Identifiers found in ctx are
// replaced by their node.
func Parse(text string, ctx map[string]*s.Node) (*s.Node, error) {
	toks, err := lex(text)
	if err != nil {
		return nil, err
	}
	p := &parser{src: text, toks: toks, ctx: ctx}
	n, err := p.typ()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, p.errAt(t, ErrUnexpected)
	}
	return n, nil
}

// ParseNode is Parse returning never when text does not parse.
func ParseNode(text string, ctx map[string]*s.Node) *s.Node {
	n, err := Parse(text, ctx)
	if err != nil {
		return s.Never()
	}
	return n
}

type parser struct {
	src  string
	toks []token
	i    int
	ctx  map[string]*s.Node
}

func (p *parser) peek() token { return p.toks[p.i] }

func (p *parser) peekAt(k int) token {
	if p.i+k >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+k]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

func (p *parser) is(punct string) bool {
	t := p.peek()
	return t.kind == tokPunct && t.text == punct
}

func (p *parser) accept(punct string) bool {
	if p.is(punct) {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errAt(p.peek(), fmt.Errorf("%w: want %q", ErrUnexpected, punct))
	}
	return nil
}

func (p *parser) errAt(t token, err error) error { return errorAt(p.src, t.off, err) }

func (p *parser) typ() (*s.Node, error) {
	p.accept("|")
	var parts []*s.Node
	for {
		n, err := p.intersect()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
		if !p.accept("|") {
			break
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return s.Union(parts), nil
}

func (p *parser) intersect() (*s.Node, error) {
	p.accept("&")
	var parts []*s.Node
	for {
		n, err := p.postfix()
		if err != nil {
			return nil, err
		}
		parts = append(parts, n)
		if !p.accept("&") {
			break
		}
	}
	if len(parts) == 1 {
		return parts[0], nil
	}
	return s.Intersect(parts), nil
}

func (p *parser) postfix() (*s.Node, error) {
	n, err := p.primary()
	if err != nil {
		return nil, err
	}
	for p.is("[") && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "]" {
		p.i += 2
		n = s.Array(n)
	}
	return n, nil
}

func (p *parser) primary() (*s.Node, error) {
	t := p.peek()
	switch t.kind {
	case tokString:
		p.next()
		return s.Literal(t.text), nil
	case tokNumber:
		p.next()
		if i, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return s.Literal(i), nil
		}
		return s.Literal(t.num), nil
	case tokRegExp:
		p.next()
		return s.RegExp(t.text, t.flags), nil
	case tokIdent:
		if t.text == "new" && p.peekAt(1).kind == tokPunct && p.peekAt(1).text == "(" {
			p.next()
			return p.function(true)
		}
		return p.ident()
	case tokPunct:
		switch t.text {
		case "(":
			if p.arrowAhead() {
				return p.function(false)
			}
			p.next()
			n, err := p.typ()
			if err != nil {
				return nil, err
			}
			return n, p.expect(")")
		case "{":
			return p.object()
		case "[":
			return p.tuple()
		}
	}
	return nil, p.errAt(t, ErrUnexpected)
}

func (p *parser) ident() (*s.Node, error) {
	t := p.next()
	if n, ok := p.ctx[t.text]; ok && n != nil {
		return n, nil
	}
	if g, ok := generics[t.text]; ok && p.is("<") {
		p.next()
		var args []*s.Node
		for {
			n, err := p.typ()
			if err != nil {
				return nil, err
			}
			args = append(args, n)
			if !p.accept(",") {
				break
			}
		}
		if err := p.expect(">"); err != nil {
			return nil, err
		}
		return g(p, args, t)
	}
	if k, ok := keywords[t.text]; ok {
		return k(), nil
	}
	if _, ok := generics[t.text]; ok {
		return nil, p.errAt(t, fmt.Errorf("%w: %s needs type arguments", ErrSyntax, t.text))
	}
	return s.Ref(t.text), nil
}

// arrowAhead reports whether the parenthesis at the cursor closes before
// "=>", i.e. opens a parameter list.
func (p *parser) arrowAhead() bool {
	depth := 0
	for j := p.i; j < len(p.toks); j++ {
		t := p.toks[j]
		if t.kind == tokEOF {
			return false
		}
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				n := p.toks[min(j+1, len(p.toks)-1)]
				return n.kind == tokPunct && n.text == "=>"
			}
		}
	}
	return false
}

func (p *parser) function(ctor bool) (*s.Node, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []*s.Node
	for !p.is(")") {
		optional := false
		// A name is followed by ':' or '?:'; it is not kept.
		if t := p.peek(); t.kind == tokIdent {
			n1 := p.peekAt(1)
			switch {
			case n1.kind == tokPunct && n1.text == ":":
				p.i += 2
			case n1.kind == tokPunct && n1.text == "?":
				p.i += 2
				optional = true
				if err := p.expect(":"); err != nil {
					return nil, err
				}
			}
		}
		n, err := p.typ()
		if err != nil {
			return nil, err
		}
		if optional {
			n = s.Optional(n)
		}
		params = append(params, n)
		if !p.accept(",") {
			break
		}
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	if err := p.expect("=>"); err != nil {
		return nil, err
	}
	ret, err := p.typ()
	if err != nil {
		return nil, err
	}
	if ctor {
		return s.Constructor(params, ret), nil
	}
	return s.Function(params, ret), nil
}

func (p *parser) object() (*s.Node, error) {
	p.next()
	var props []s.Property
	for !p.accept("}") {
		readonly := false
		if t := p.peek(); t.kind == tokIdent && t.text == "readonly" {
			if k := p.peekAt(1).kind; k == tokIdent || k == tokString || k == tokNumber {
				p.next()
				readonly = true
			}
		}
		kt := p.next()
		var key string
		switch kt.kind {
		case tokIdent, tokString, tokNumber:
			key = kt.text
		default:
			return nil, p.errAt(kt, fmt.Errorf("%w: want property name", ErrUnexpected))
		}
		optional := p.accept("?")
		if err := p.expect(":"); err != nil {
			return nil, err
		}
		n, err := p.typ()
		if err != nil {
			return nil, err
		}
		if optional {
			n = s.Optional(n)
		}
		if readonly {
			n = s.Readonly(n)
		}
		props = append(props, s.P(key, n))
		if !p.accept(",") && !p.accept(";") && !p.is("}") {
			return nil, p.errAt(p.peek(), fmt.Errorf("%w: want ',' or '}'", ErrUnexpected))
		}
	}
	return s.Object(props), nil
}

func (p *parser) tuple() (*s.Node, error) {
	p.next()
	var items []*s.Node
	for !p.accept("]") {
		n, err := p.typ()
		if err != nil {
			return nil, err
		}
		items = append(items, n)
		if !p.accept(",") && !p.is("]") {
			return nil, p.errAt(p.peek(), fmt.Errorf("%w: want ',' or ']'", ErrUnexpected))
		}
	}
	return s.Tuple(items), nil
}
