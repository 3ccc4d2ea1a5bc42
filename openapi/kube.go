package openapi

import (
	"reflect"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/reoring/typebridge/compile"
	s "github.com/reoring/typebridge/schema"
)

// embeddedFields are required on every x-kubernetes-embedded-resource.
var embeddedFields = []string{"apiVersion", "kind", "metadata"}

func toEmbedded(a toArg) *s.Node {
	n := a.rest(extEmbedded)
	if n.Kind != s.KindObject {
		return s.Intersect([]*s.Node{n, embeddedObject(nil)})
	}
	return s.WithAdditional(embeddedObject(n), n.AdditionalProperties)
}

// embeddedObject adds the resource header fields to obj (or builds them
// alone), making them required and keeping declared schemas.
func embeddedObject(obj *s.Node) *s.Node {
	var (
		props []s.Property
		opts  s.Options
	)
	if obj != nil {
		props, opts = append(props, obj.Properties...), obj.Options
	}
	for _, k := range embeddedFields {
		found := false
		for i := range props {
			if props[i].Key == k {
				props[i].Optional, found = false, true
			}
		}
		if found {
			continue
		}
		header := s.String()
		if k == "metadata" {
			header = s.Object(nil)
		}
		props = append(props, s.P(k, header))
	}
	return s.Object(props, opts)
}

// listMapKeys checks that the items of a list-type map are objects carrying
// every key and that no two items share the same key values.
func listMapKeys(keys []string) *s.Node {
	return s.NewOpaque(Dialect, map[string]any{extListType: "map", extListMapKeys: keys}, func(v any) bool {
		items, ok := asSlice(v)
		if !ok {
			return false
		}
		seen := make(map[string]struct{}, len(items))
		for _, it := range items {
			obj, ok := it.(map[string]any)
			if !ok {
				return false
			}
			tuple := make([]any, len(keys))
			for i, k := range keys {
				kv, present := obj[k]
				if !present {
					return false
				}
				tuple[i] = kv
			}
			b, err := json.Marshal(tuple)
			if err != nil {
				return false
			}
			if _, dup := seen[string(b)]; dup {
				return false
			}
			seen[string(b)] = struct{}{}
		}
		return true
	})
}

// containsCheck enforces contains with minContains (default 1) and
// maxContains.
func containsCheck(a toArg, c any) *s.Node {
	check := lazyCheck(a.cfg, a.sub(c))
	lo, hi := 1, -1
	if n := count(get(a.m, "minContains")); n != nil {
		lo = *n
	}
	if n := count(get(a.m, "maxContains")); n != nil {
		hi = *n
	}
	raw := map[string]any{"contains": plain(c), "minContains": lo}
	if hi >= 0 {
		raw["maxContains"] = hi
	}
	return s.NewOpaque(Dialect, raw, func(v any) bool {
		items, ok := asSlice(v)
		if !ok {
			return false
		}
		matched := 0
		for _, it := range items {
			if check(it) {
				matched++
			}
		}
		return matched >= lo && (hi < 0 || matched <= hi)
	})
}

// lazyCheck compiles n on first use, once the definitions of the document
// being imported are known.
func lazyCheck(cfg *config, n *s.Node) func(any) bool {
	v := sync.OnceValue(func() *compile.Validator {
		return compile.Compile(n, compile.WithReferences(cfg.refs...))
	})
	return func(val any) bool { return v().Check(val) }
}

func asSlice(v any) ([]any, bool) {
	if xs, ok := v.([]any); ok {
		return xs, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
