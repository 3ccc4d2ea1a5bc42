package tags

import (
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"
)

// ErrTypeNotFound is returned by ParseGo when the source declares no struct
// of the requested name.
var ErrTypeNotFound = errors.New("tags: struct type not found")

// ParseGo builds the rule tree of the struct type typeName declared in the
// Go source file src, without compiling it. Fields follow the same rules as
// Reflect; types declared elsewhere become any, except time.Time.
func ParseGo(src []byte, typeName string) (*Rule, error) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", src, parser.SkipObjectResolution)
	if err != nil {
		return nil, err
	}
	decls := map[string]ast.Expr{}
	for _, d := range f.Decls {
		gd, ok := d.(*ast.GenDecl)
		if !ok || gd.Tok != token.TYPE {
			continue
		}
		for _, spec := range gd.Specs {
			if ts, ok := spec.(*ast.TypeSpec); ok {
				decls[ts.Name.Name] = ts.Type
			}
		}
	}
	root, ok := decls[typeName]
	if _, isStruct := root.(*ast.StructType); !ok || !isStruct {
		return nil, fmt.Errorf("%w: %s", ErrTypeNotFound, typeName)
	}
	p := &goParser{decls: decls, seen: map[string]bool{typeName: true}}
	return p.expr(root, ""), nil
}

type goParser struct {
	decls map[string]ast.Expr
	seen  map[string]bool
}

func (p *goParser) expr(e ast.Expr, tag string) *Rule {
	own, keyTag, elemTag := splitDive(tag)
	switch t := e.(type) {
	case *ast.ParenExpr:
		return p.expr(t.X, tag)
	case *ast.StarExpr:
		return p.expr(t.X, tag)
	case *ast.Ident:
		return p.ident(t.Name, tag, own)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok && x.Name == "time" && t.Sel.Name == "Time" {
			return &Rule{Type: TypeTime, Tag: own}
		}
		return &Rule{Type: TypeAny, Tag: own}
	case *ast.InterfaceType:
		return &Rule{Type: TypeAny, Tag: own}
	case *ast.ArrayType:
		if id, ok := t.Elt.(*ast.Ident); ok && id.Name == "byte" {
			return &Rule{Type: TypeString, Tag: own}
		}
		return &Rule{Type: TypeSlice, Tag: own, Elem: p.expr(t.Elt, elemTag)}
	case *ast.MapType:
		if id, ok := t.Key.(*ast.Ident); !ok || id.Name != "string" {
			return Never()
		}
		return &Rule{Type: TypeMap, Tag: own, KeyTag: keyTag, Elem: p.expr(t.Value, elemTag)}
	case *ast.StructType:
		return &Rule{Type: TypeStruct, Tag: own, Fields: p.fields(t)}
	}
	return Never()
}

func (p *goParser) ident(name, tag, own string) *Rule {
	switch name {
	case "bool":
		return &Rule{Type: TypeBool, Tag: own}
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte", "rune":
		return &Rule{Type: TypeInt, Tag: own}
	case "float32", "float64":
		return &Rule{Type: TypeFloat, Tag: own}
	case "string":
		return &Rule{Type: TypeString, Tag: own}
	case "any":
		return &Rule{Type: TypeAny, Tag: own}
	}
	decl, ok := p.decls[name]
	if !ok || p.seen[name] {
		return &Rule{Type: TypeAny, Tag: own}
	}
	p.seen[name] = true
	defer delete(p.seen, name)
	return p.expr(decl, tag)
}

func (p *goParser) fields(st *ast.StructType) []Field {
	var out []Field
	for _, f := range st.Fields.List {
		var tag reflect.StructTag
		if f.Tag != nil {
			raw, err := strconv.Unquote(f.Tag.Value)
			if err == nil {
				tag = reflect.StructTag(raw)
			}
		}
		name, _, _ := strings.Cut(tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if len(f.Names) == 0 {
			// Embedded struct: promote its fields.
			if id, ok := deref(f.Type).(*ast.Ident); ok && name == "" {
				if inner, ok := p.decls[id.Name].(*ast.StructType); ok && !p.seen[id.Name] {
					p.seen[id.Name] = true
					out = append(out, p.fields(inner)...)
					delete(p.seen, id.Name)
				}
			}
			continue
		}
		for _, id := range f.Names {
			if !id.IsExported() {
				continue
			}
			key := name
			if key == "" {
				key = id.Name
			}
			out = append(out, Field{Name: key, Rule: p.expr(f.Type, tag.Get("validate"))})
		}
	}
	return out
}

func deref(e ast.Expr) ast.Expr {
	for {
		s, ok := e.(*ast.StarExpr)
		if !ok {
			return e
		}
		e = s.X
	}
}

// GoSource renders r as a gofmt-formatted Go type declaration named name.
// Struct rules become struct types with json and validate tags; optional
// fields carry omitempty. Rules with no Go shape (unions, null, never)
// render as any.
func GoSource(name string, r *Rule) (string, error) {
	var b strings.Builder
	b.WriteString("package schema\n\n")
	fmt.Fprintf(&b, "type %s ", name)
	writeGoType(&b, r)
	b.WriteString("\n")
	out, err := format.Source([]byte(b.String()))
	if err != nil {
		return "", err
	}
	_, decl, _ := strings.Cut(string(out), "\n\n")
	return decl, nil
}

func writeGoType(b *strings.Builder, r *Rule) {
	if r == nil {
		b.WriteString("any")
		return
	}
	switch r.Type {
	case TypeBool:
		b.WriteString("bool")
	case TypeInt:
		b.WriteString("int64")
	case TypeFloat:
		b.WriteString("float64")
	case TypeString:
		b.WriteString("string")
	case TypeTime:
		b.WriteString("time.Time")
	case TypeSlice:
		b.WriteString("[]")
		elem := r.Elem
		if len(r.Items) > 0 {
			elem = nil
		}
		writeGoType(b, elem)
	case TypeMap:
		b.WriteString("map[string]")
		writeGoType(b, r.Elem)
	case TypeStruct:
		b.WriteString("struct {\n")
		for _, f := range r.Fields {
			fmt.Fprintf(b, "%s ", goName(f.Name))
			writeGoType(b, f.Rule)
			fmt.Fprintf(b, " `%s`\n", fieldTag(f))
		}
		b.WriteString("}")
	default:
		b.WriteString("any")
	}
}

// fieldTag folds the element and key checks of f back into one validate
// tag with dive/keys markers.
func fieldTag(f Field) string {
	jsonTag := f.Name
	if !f.Rule.Required() {
		jsonTag += ",omitempty"
	}
	v := validateTag(f.Rule)
	if v == "" {
		return fmt.Sprintf(`json:%q`, jsonTag)
	}
	return fmt.Sprintf(`json:%q validate:%q`, jsonTag, v)
}

func validateTag(r *Rule) string {
	if r == nil {
		return ""
	}
	tag := r.Tag
	var elem *Rule
	switch r.Type {
	case TypeSlice:
		if len(r.Items) == 0 {
			elem = r.Elem
		}
	case TypeMap:
		elem = r.Elem
	}
	inner := ""
	if elem != nil && elem.Type != TypeStruct {
		inner = validateTag(elem)
	}
	if inner == "" && r.KeyTag == "" {
		return tag
	}
	parts := []string{}
	if tag != "" {
		parts = append(parts, tag)
	}
	parts = append(parts, "dive")
	if r.KeyTag != "" {
		parts = append(parts, "keys", r.KeyTag, "endkeys")
	}
	if inner != "" {
		parts = append(parts, inner)
	}
	return strings.Join(parts, ",")
}

// goName turns a JSON key into an exported Go identifier.
func goName(key string) string {
	var b strings.Builder
	upper := true
	for _, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			upper = true
			continue
		case upper && r >= 'a' && r <= 'z':
			r -= 'a' - 'A'
		}
		if b.Len() == 0 && r >= '0' && r <= '9' {
			b.WriteString("F")
		}
		upper = false
		b.WriteRune(r)
	}
	if b.Len() == 0 {
		return "Field"
	}
	return b.String()
}
