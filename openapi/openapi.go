// Package openapi imports Kubernetes-flavoured OpenAPI v3 schemas (bare
// structural schemas, CustomResourceDefinitions and multi-document CRD
// bundles) into canonical schemas, and exports canonical schemas back as
// OpenAPI documents.
//
// Property order follows the source document. Kubernetes extensions map
// onto canonical constructs:
//
//	nullable: true                        union with null
//	x-kubernetes-int-or-string            union of integer and string
//	x-kubernetes-preserve-unknown-fields  undeclared keys allowed; unknown when untyped
//	x-kubernetes-list-type: set           uniqueItems
//	x-kubernetes-list-type: map           items unique by x-kubernetes-list-map-keys
//	x-kubernetes-embedded-resource        apiVersion, kind and metadata required
//
// Local references (#/$defs/, #/definitions/, #/components/schemas/) become
// ref nodes; the definitions are returned alongside the root.
package openapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	tb "github.com/reoring/typebridge"
	s "github.com/reoring/typebridge/schema"
)

// Dialect is the dialect id used for opaque nodes.
const Dialect = "openapi"

var (
	// ErrNilSchema is returned for a nil or empty document.
	ErrNilSchema = errors.New("openapi: nil schema")
	// ErrNotObject is returned when the document root is not a mapping.
	ErrNotObject = errors.New("openapi: document root is not a mapping")
	// ErrNotFound is returned when a bundle holds no matching CRD.
	ErrNotFound = errors.New("openapi: CRD not found in bundle")
)

// UnknownBehavior selects how objects without additionalProperties treat
// undeclared keys.
type UnknownBehavior int

const (
	// UnknownPrune allows undeclared keys, which the API server prunes.
	UnknownPrune UnknownBehavior = iota
	// UnknownStrict rejects undeclared keys.
	UnknownStrict
)

type config struct {
	diag     *tb.Diag
	unknown  UnknownBehavior
	embedded bool
	version  string
	// refs are the imported definitions, read lazily by opaque checks.
	refs []*s.Node
}

// Option configures an import or export.
type Option func(*config)

// WithDiag records conversion warnings in d.
func WithDiag(d *tb.Diag) Option {
	return func(c *config) { c.diag = d }
}

// WithUnknown sets the policy for undeclared object keys.
func WithUnknown(u UnknownBehavior) Option {
	return func(c *config) { c.unknown = u }
}

// WithEmbeddedChecks toggles the apiVersion/kind/metadata requirement of
// x-kubernetes-embedded-resource. It is on by default.
func WithEmbeddedChecks(on bool) Option {
	return func(c *config) { c.embedded = on }
}

// WithVersion selects the CRD version whose schema is imported. By default
// the storage version wins, then the first served one.
func WithVersion(name string) Option {
	return func(c *config) { c.version = name }
}

func newConfig(opts []Option) *config {
	c := &config{embedded: true}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Document is one imported schema.
type Document struct {
	// Kind and Name identify the source CRD (spec.names.kind and
	// metadata.name); both are empty for bare schemas.
	Kind string
	Name string
	// Root is the canonical schema.
	Root *s.Node
	// Refs are the definitions Root refers to, each with its ID set to its
	// definition key. Pass them to compile.WithReferences.
	Refs []*s.Node
}

// Import converts one OpenAPI schema document. doc may be YAML or JSON
// ([]byte, string, io.Reader), a decoded map[string]any, an ordered *Map or
// a *yaml.Node. A CRD is unwrapped to its openAPIV3Schema; a stream with
// several documents imports the first non-empty one.
func Import(doc any, opts ...Option) (*Document, error) {
	v, err := decode(doc)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*Map)
	if !ok {
		return nil, ErrNotObject
	}
	return importDoc(m, newConfig(opts)), nil
}

// ImportBundle imports every CustomResourceDefinition of a multi-document
// stream. Other documents are skipped.
func ImportBundle(data []byte, opts ...Option) ([]*Document, error) {
	docs, err := NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		return nil, err
	}
	var out []*Document
	for _, d := range docs {
		m, ok := d.(*Map)
		if !ok || str(m, "kind") != "CustomResourceDefinition" {
			continue
		}
		out = append(out, importDoc(m, newConfig(opts)))
	}
	return out, nil
}

// ImportCRDKind imports the CRD of a bundle whose spec.names.kind is kind.
func ImportCRDKind(data []byte, kind string, opts ...Option) (*Document, error) {
	return find(data, func(d *Document) bool { return d.Kind == kind }, opts)
}

// ImportCRDName imports the CRD of a bundle whose metadata.name is name.
func ImportCRDName(data []byte, name string, opts ...Option) (*Document, error) {
	return find(data, func(d *Document) bool { return d.Name == name }, opts)
}

func find(data []byte, match func(*Document) bool, opts []Option) (*Document, error) {
	docs, err := ImportBundle(data, opts...)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if match(d) {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

func decode(doc any) (any, error) {
	var r io.Reader
	switch t := doc.(type) {
	case nil:
		return nil, ErrNilSchema
	case []byte:
		r = bytes.NewReader(t)
	case string:
		r = strings.NewReader(t)
	case io.Reader:
		r = t
	case *yaml.Node:
		return fromYAML(t)
	case *Map, map[string]any, map[any]any:
		return ordered(t), nil
	default:
		return nil, fmt.Errorf("openapi: unsupported input %T", doc)
	}
	rd := NewReader(r)
	for {
		v, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil, ErrNilSchema
		}
		if err != nil {
			return nil, err
		}
		if v != nil {
			return v, nil
		}
	}
}

func importDoc(m *Map, cfg *config) *Document {
	d := &Document{}
	if str(m, "kind") == "CustomResourceDefinition" {
		d.Name = str(child(m, "metadata"), "name")
		d.Kind = str(child(child(m, "spec"), "names"), "kind")
	}
	sch := m
	if oas := child(m, "openAPIV3Schema"); oas != nil {
		sch = oas
	} else if oas := unwrapCRD(m, cfg.version); oas != nil {
		sch = oas
	}

	defs := definitions(sch)
	warnCycles(defs, cfg)
	for p := defs.Oldest(); p != nil; p = p.Next() {
		def, _ := p.Value.(*Map)
		cfg.refs = append(cfg.refs, convert(def, cfg).With(s.Options{ID: p.Key}))
	}
	d.Refs = cfg.refs
	d.Root = convert(sch, cfg)
	return d
}

// unwrapCRD returns spec.versions[].schema.openAPIV3Schema, preferring the
// named version, then the storage version, then the first served one, then
// any; legacy CRDs carry spec.validation.openAPIV3Schema instead.
func unwrapCRD(m *Map, version string) *Map {
	spec := child(m, "spec")
	if spec == nil {
		return nil
	}
	var storage, served, first *Map
	for _, v := range list(spec, "versions") {
		vm, _ := v.(*Map)
		oas := child(child(vm, "schema"), "openAPIV3Schema")
		if oas == nil {
			continue
		}
		if version != "" && str(vm, "name") == version {
			return oas
		}
		if flag(vm, "storage") && storage == nil {
			storage = oas
		}
		isServed := true
		if b, ok := get(vm, "served").(bool); ok {
			isServed = b
		}
		if isServed && served == nil {
			served = oas
		}
		if first == nil {
			first = oas
		}
	}
	for _, oas := range []*Map{storage, served, first} {
		if oas != nil {
			return oas
		}
	}
	return child(child(spec, "validation"), "openAPIV3Schema")
}

// definitions merges the local definition sections of a schema.
func definitions(m *Map) *Map {
	out := newMap()
	for _, src := range []*Map{child(m, "$defs"), child(m, "definitions"), child(child(m, "components"), "schemas")} {
		if src == nil {
			continue
		}
		for p := src.Oldest(); p != nil; p = p.Next() {
			if _, ok := p.Value.(*Map); ok {
				out.Set(p.Key, p.Value)
			}
		}
	}
	return out
}

// refPrefix is where exported references point.
const refPrefix = "#/components/schemas/"

var refPrefixes = []string{"#/$defs/", "#/definitions/", refPrefix}

// refName returns the definition key of a local reference.
func refName(ref string) (string, bool) {
	for _, p := range refPrefixes {
		if name, ok := strings.CutPrefix(ref, p); ok && name != "" {
			return name, true
		}
	}
	return "", false
}

// warnCycles reports definitions that reach themselves through references.
// Structural schemas forbid recursion; the canonical refs still resolve
// lazily, so the import proceeds.
func warnCycles(defs *Map, cfg *config) {
	edges := map[string][]string{}
	for p := defs.Oldest(); p != nil; p = p.Next() {
		walkRefs(p.Value, func(name string) { edges[p.Key] = append(edges[p.Key], name) })
	}
	const (
		unvisited = iota
		active
		done
	)
	state := map[string]int{}
	var visit func(string)
	visit = func(k string) {
		state[k] = active
		for _, next := range edges[k] {
			switch state[next] {
			case active:
				cfg.diag.Warnf("cyclic $ref at $defs/%s", next)
			case unvisited:
				visit(next)
			}
		}
		state[k] = done
	}
	for p := defs.Oldest(); p != nil; p = p.Next() {
		if state[p.Key] == unvisited {
			visit(p.Key)
		}
	}
}

func walkRefs(v any, fn func(string)) {
	switch t := v.(type) {
	case *Map:
		for p := t.Oldest(); p != nil; p = p.Next() {
			if ref, ok := p.Value.(string); ok && p.Key == "$ref" {
				if name, ok := refName(ref); ok {
					fn(name)
				}
				continue
			}
			walkRefs(p.Value, fn)
		}
	case []any:
		for _, e := range t {
			walkRefs(e, fn)
		}
	}
}

func get(m *Map, k string) any {
	if m == nil {
		return nil
	}
	v, _ := m.Get(k)
	return v
}

func has(m *Map, k string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Get(k)
	return ok
}

func str(m *Map, k string) string {
	v, _ := get(m, k).(string)
	return v
}

func flag(m *Map, k string) bool {
	v, _ := get(m, k).(bool)
	return v
}

func child(m *Map, k string) *Map {
	v, _ := get(m, k).(*Map)
	return v
}

func list(m *Map, k string) []any {
	v, _ := get(m, k).([]any)
	return v
}

func strs(m *Map, k string) []string {
	var out []string
	for _, v := range list(m, k) {
		if x, ok := v.(string); ok {
			out = append(out, x)
		}
	}
	return out
}

// without returns a shallow copy of m minus keys.
func without(m *Map, keys ...string) *Map {
	out := newMap()
	for p := m.Oldest(); p != nil; p = p.Next() {
		if !slices.Contains(keys, p.Key) {
			out.Set(p.Key, p.Value)
		}
	}
	return out
}
