// Package tags is the validator-tag dialect: a schema is a tree of Rules
// whose per-node checks are github.com/go-playground/validator/v10 tag
// strings such as "required,min=3,max=10,email".
//
// A struct field is required exactly when its tag holds "required";
// "omitempty" or no marker makes it optional. Constraints always apply to
// present values, zero values included.
package tags

import (
	"strings"

	tb "github.com/reoring/typebridge"
)

// Dialect is the dialect id used for opaque nodes and qualified formats.
const Dialect = "tags"

// Type is the base type of a rule.
type Type string

const (
	TypeAny    Type = "any"
	TypeNever  Type = "never"
	TypeNull   Type = "null"
	TypeBool   Type = "bool"
	TypeInt    Type = "int"
	TypeFloat  Type = "float"
	TypeString Type = "string"
	TypeTime   Type = "time"
	TypeSlice  Type = "slice"
	TypeMap    Type = "map"
	TypeStruct Type = "struct"
	TypeUnion  Type = "union"
	// TypeCustom rules are opaque: only their tag is evaluated.
	TypeCustom Type = "custom"
)

// Rule is one node of a tag schema.
type Rule struct {
	Type Type
	// Tag holds the checks of this node, in evaluation order.
	Tag string
	// Elem is the slice element or map value rule.
	Elem *Rule
	// Items are the positional rules of a fixed-length slice.
	Items []*Rule
	// KeyTag checks map keys.
	KeyTag string
	// Fields are the struct fields in declaration order.
	Fields []Field
	// Strict structs reject undeclared keys.
	Strict bool
	// Variants of a union rule.
	Variants    []*Rule
	Description string
}

// Field is a named struct member.
type Field struct {
	Name string
	Rule *Rule
}

// Never is the rule no value satisfies.
func Never() *Rule { return &Rule{Type: TypeNever} }

// Required reports whether the rule's tag marks a field as required.
func (r *Rule) Required() bool {
	if r == nil {
		return false
	}
	for _, c := range Parse(r.Tag) {
		if c.Name == "required" {
			return true
		}
	}
	return false
}

// Field looks up a struct field.
func (r *Rule) Field(name string) (*Rule, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Rule, true
		}
	}
	return nil, false
}

// Check is one tag element: a validation name and its optional parameter.
type Check struct {
	Name  string
	Param string
}

func (c Check) String() string {
	if c.Param == "" {
		return c.Name
	}
	return c.Name + "=" + escape(c.Param)
}

// Parse splits a tag into checks. Parameters are unescaped: 0x2C stands
// for ',' and 0x7C for '|'.
func Parse(tag string) []Check {
	if strings.TrimSpace(tag) == "" {
		return nil
	}
	var out []Check
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, param, _ := strings.Cut(part, "=")
		out = append(out, Check{Name: name, Param: unescape(param)})
	}
	return out
}

// Join renders checks as a tag.
func Join(checks []Check) string {
	parts := make([]string, len(checks))
	for i, c := range checks {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

var (
	escaper   = strings.NewReplacer(",", "0x2C", "|", "0x7C")
	unescaper = strings.NewReplacer("0x2C", ",", "0x7C", "|")
)

func escape(p string) string   { return escaper.Replace(p) }
func unescape(p string) string { return unescaper.Replace(p) }

type config struct {
	diag *tb.Diag
}

// Option configures a conversion.
type Option func(*config)

// WithDiag records conversion warnings in d.
func WithDiag(d *tb.Diag) Option {
	return func(c *config) { c.diag = d }
}

func newConfig(opts []Option) *config {
	c := &config{}
	for _, o := range opts {
		o(c)
	}
	return c
}
