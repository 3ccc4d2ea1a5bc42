package compile

import (
	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/i18n"
	s "github.com/reoring/typebridge/schema"
)

// Parse clones val, fills defaults for absent properties, checks the
// result and runs transform decoders bottom-up. A value that fails the
// schema yields a *typebridge.DecodeError carrying every issue.
func (v *Validator) Parse(val any) (any, error) {
	out := v.defaults(v.root, clone(val), 0)
	if !v.Check(out) {
		return nil, &tb.DecodeError{Issues: tb.IssuesOf(v.Errors(out))}
	}
	decoded, iss := v.decode(v.root, tb.Path{}, out, 0)
	if iss != nil {
		return nil, &tb.DecodeError{Issues: iss}
	}
	return decoded, nil
}

// ParseJSON decodes data with DecodeJSON and parses the result.
func (v *Validator) ParseJSON(data []byte) (any, error) {
	val, err := DecodeJSON(data)
	if err != nil {
		return nil, &tb.DecodeError{Issues: tb.Issues{{Path: tb.Path{}, Code: tb.CodeParseError, Message: i18n.T(tb.CodeParseError, nil), Cause: err}}}
	}
	return v.Parse(val)
}

// Encode runs transform encoders top-down and checks the result against
// the schema.
func (v *Validator) Encode(val any) (any, error) {
	out, iss := v.encode(v.root, tb.Path{}, clone(val), 0)
	if iss != nil {
		return nil, iss
	}
	if !v.Check(out) {
		return nil, tb.IssuesOf(v.Errors(out))
	}
	return out, nil
}

// clone deep-copies the JSON containers of val; leaves are shared.
func clone(val any) any {
	switch x := val.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = clone(e)
		}
		return m
	case []any:
		a := make([]any, len(x))
		for i, e := range x {
			a[i] = clone(e)
		}
		return a
	}
	return val
}

func (v *Validator) defaults(n *s.Node, val any, depth int) any {
	if depth > maxDepth {
		return val
	}
	if isUndefined(val) && n.HasDefault {
		val = clone(n.Default)
	}
	switch n.Kind {
	case s.KindOptional, s.KindReadonly, s.KindTransform:
		return v.defaults(n.Item, val, depth+1)
	case s.KindRef:
		if target, ok := v.refs[n.Ref]; ok {
			return v.defaults(target, val, depth+1)
		}
	case s.KindIntersect:
		for _, part := range n.Items {
			val = v.defaults(part, val, depth+1)
		}
	case s.KindObject:
		m, ok := val.(map[string]any)
		if !ok {
			return val
		}
		for _, p := range n.Properties {
			cur, has := m[p.Key]
			if !has {
				if !p.Schema.HasDefault {
					continue
				}
				cur = s.Undef
			}
			m[p.Key] = v.defaults(p.Schema, cur, depth+1)
		}
	case s.KindRecord:
		if m, ok := val.(map[string]any); ok {
			for k, e := range m {
				m[k] = v.defaults(n.Item, e, depth+1)
			}
		}
	case s.KindArray:
		if a, ok := val.([]any); ok {
			for i, e := range a {
				a[i] = v.defaults(n.Item, e, depth+1)
			}
		}
	case s.KindTuple:
		if a, ok := val.([]any); ok {
			for i := range a {
				if i < len(n.Items) {
					a[i] = v.defaults(n.Items[i], a[i], depth+1)
				}
			}
		}
	}
	return val
}

// codec applies one direction of the transforms found under n.
type codec struct {
	v *Validator
	// pick selects the function of a transform node.
	pick func(*s.Node) s.Codec
	// before runs the transform ahead of its inner node (encode) instead of
	// after it (decode).
	before bool
}

func (v *Validator) decode(n *s.Node, p tb.Path, val any, depth int) (any, tb.Issues) {
	return codec{v: v, pick: func(n *s.Node) s.Codec { return n.Decode }}.walk(n, p, val, depth)
}

func (v *Validator) encode(n *s.Node, p tb.Path, val any, depth int) (any, tb.Issues) {
	return codec{v: v, pick: func(n *s.Node) s.Codec { return n.Encode }, before: true}.walk(n, p, val, depth)
}

func (c codec) apply(n *s.Node, p tb.Path, val any) (any, tb.Issues) {
	fn := c.pick(n)
	if fn == nil {
		return val, nil
	}
	out, err := fn(val)
	if err != nil {
		return nil, tb.Issues{{Path: p, Code: tb.CodeTransform, Message: i18n.T(tb.CodeTransform, nil), Cause: err}}
	}
	return out, nil
}

func (c codec) walk(n *s.Node, p tb.Path, val any, depth int) (any, tb.Issues) {
	if depth > maxDepth || isUndefined(val) {
		return val, nil
	}
	switch n.Kind {
	case s.KindTransform:
		if c.before {
			out, iss := c.apply(n, p, val)
			if iss != nil {
				return nil, iss
			}
			return c.walk(n.Item, p, out, depth+1)
		}
		inner, iss := c.walk(n.Item, p, val, depth+1)
		if iss != nil {
			return nil, iss
		}
		return c.apply(n, p, inner)
	case s.KindOptional, s.KindReadonly:
		return c.walk(n.Item, p, val, depth+1)
	case s.KindRef:
		if target, ok := c.v.refs[n.Ref]; ok {
			return c.walk(target, p, val, depth+1)
		}
	case s.KindIntersect:
		var iss tb.Issues
		for _, part := range n.Items {
			if val, iss = c.walk(part, p, val, depth+1); iss != nil {
				return nil, iss
			}
		}
	case s.KindUnion:
		for _, variant := range n.Items {
			if c.v.check(variant, val) {
				return c.walk(variant, p, val, depth+1)
			}
		}
	case s.KindObject:
		m, ok := val.(map[string]any)
		if !ok {
			return val, nil
		}
		for _, prop := range n.Properties {
			cur, has := m[prop.Key]
			if !has {
				continue
			}
			out, iss := c.walk(prop.Schema, p.Field(prop.Key), cur, depth+1)
			if iss != nil {
				return nil, iss
			}
			m[prop.Key] = out
		}
		if ap := n.AdditionalProperties; ap != nil && ap.Kind != s.KindNever {
			for _, k := range extraKeys(n, m) {
				out, iss := c.walk(ap, p.Field(k), m[k], depth+1)
				if iss != nil {
					return nil, iss
				}
				m[k] = out
			}
		}
	case s.KindRecord:
		m, ok := val.(map[string]any)
		if !ok {
			return val, nil
		}
		for _, k := range sortedKeys(m) {
			out, iss := c.walk(n.Item, p.Field(k), m[k], depth+1)
			if iss != nil {
				return nil, iss
			}
			m[k] = out
		}
	case s.KindArray, s.KindTuple:
		a, ok := val.([]any)
		if !ok {
			return val, nil
		}
		for i := range a {
			item := n.Item
			if n.Kind == s.KindTuple {
				if i >= len(n.Items) {
					break
				}
				item = n.Items[i]
			}
			out, iss := c.walk(item, p.Index(i), a[i], depth+1)
			if iss != nil {
				return nil, iss
			}
			a[i] = out
		}
	}
	return val, nil
}
