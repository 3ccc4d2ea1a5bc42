package typebridge

import (
	"fmt"
	"strconv"
	"strings"
)

// Path is a sequence of property keys (string) and array indices (int)
// leading from a root value to a nested one. Paths are values: Field and
// Index never modify the receiver.
type Path []any

// Field returns a new path extended with a property key.
func (p Path) Field(name string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, name)
}

// Index returns a new path extended with an array index.
func (p Path) Index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, i)
}

// Pointer renders the path as an RFC 6901 JSON Pointer. The root is "";
// "/" is the member with the empty key.
func (p Path) Pointer() string {
	b := &strings.Builder{}
	for _, seg := range p {
		b.WriteByte('/')
		switch s := seg.(type) {
		case string:
			// escape '~' -> '~0', '/' -> '~1' per RFC6901
			b.WriteString(strings.ReplaceAll(strings.ReplaceAll(s, "~", "~0"), "/", "~1"))
		case int:
			b.WriteString(strconv.Itoa(s))
		default:
			b.WriteString(fmt.Sprint(s))
		}
	}
	return b.String()
}

func (p Path) String() string { return p.Pointer() }

// Issue creates an Issue at this path. kv is an alternating key/value list
// stored into Issue.Params.
func (p Path) Issue(code, msg string, kv ...any) Issue {
	var m map[string]any
	if len(kv) > 1 {
		m = make(map[string]any, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			m[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return Issue{Path: p, Code: code, Message: msg, Params: m}
}

// ParsePointer splits a JSON Pointer into path segments. Segments made of
// decimal digits become int indices.
func ParsePointer(ptr string) Path {
	if ptr == "" {
		return Path{}
	}
	var out Path
	for _, raw := range strings.Split(strings.TrimPrefix(ptr, "/"), "/") {
		seg := strings.ReplaceAll(strings.ReplaceAll(raw, "~1", "/"), "~0", "~")
		if i, err := strconv.Atoi(seg); err == nil && seg == strconv.Itoa(i) && i >= 0 {
			out = append(out, i)
			continue
		}
		out = append(out, seg)
	}
	return out
}
