package typebridge

import "github.com/reoring/typebridge/schema"

// Params is the named-schema context a conversion resolves identifiers
// against. Values may be schemas of any supported dialect.
type Params map[string]any

// Options is an options object applied on top of a converted schema
// (minLength, format, description, ...).
type Options map[string]any

// NeverType is the type slot returned for unrecognised argument lists. It
// parses as the never schema in every dialect.
const NeverType = "never"

// Signature is the normalised (parameter, type, options) triple of a
// variadic conversion call.
type Signature struct {
	Parameter Params
	Type      any
	Options   Options
}

// Never reports whether the signature is the fail-closed sentinel.
func (s Signature) Never() bool {
	t, ok := s.Type.(string)
	return ok && t == NeverType
}

// ResolveSignature normalises the arguments of a conversion call. Shapes are
// tried in priority order:
//
//	(params, string|schema, options) -> (params, type, options)
//	(string|schema, options)         -> ({}, type, options)
//	(params, string|schema)          -> (params, type, {})
//	(string|schema)                  -> ({}, type, {})
//
// Anything else resolves to ({}, "never", {}). Plain map[string]any counts
// as both a parameter and an options object; position decides.
func ResolveSignature(args ...any) Signature {
	switch {
	case len(args) == 3 && isParams(args[0]) && isType(args[1]) && isOptions(args[2]):
		return Signature{Parameter: asParams(args[0]), Type: args[1], Options: asOptions(args[2])}
	case len(args) == 2 && isType(args[0]) && isOptions(args[1]):
		return Signature{Parameter: Params{}, Type: args[0], Options: asOptions(args[1])}
	case len(args) == 2 && isParams(args[0]) && isType(args[1]):
		return Signature{Parameter: asParams(args[0]), Type: args[1], Options: Options{}}
	case len(args) == 1 && isType(args[0]):
		return Signature{Parameter: Params{}, Type: args[0], Options: Options{}}
	}
	return Signature{Parameter: Params{}, Type: NeverType, Options: Options{}}
}

func isParams(v any) bool {
	switch v.(type) {
	case Params, map[string]any, map[string]*schema.Node:
		return true
	}
	return false
}

func isOptions(v any) bool {
	switch v.(type) {
	case Options, map[string]any:
		return true
	}
	return false
}

// isType accepts source text and any non-map schema value. Map-shaped
// documents (OpenAPI) must be wrapped in a named type by their dialect.
func isType(v any) bool {
	switch v.(type) {
	case nil, Params, Options, map[string]any, map[string]*schema.Node:
		return false
	}
	return true
}

func asParams(v any) Params {
	switch m := v.(type) {
	case Params:
		return m
	case map[string]any:
		return Params(m)
	case map[string]*schema.Node:
		out := make(Params, len(m))
		for k, n := range m {
			out[k] = n
		}
		return out
	}
	return Params{}
}

func asOptions(v any) Options {
	switch m := v.(type) {
	case Options:
		return m
	case map[string]any:
		return Options(m)
	}
	return Options{}
}
