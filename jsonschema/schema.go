// Package jsonschema converts between canonical schemas and JSON Schema
// documents (draft 2020-12) modelled by github.com/invopop/jsonschema.
//
// Constructs JSON Schema cannot express (undefined, symbol, function, ...)
// are written as permissive schemas carrying an "x-typebridge-kind" hint so
// that converting back restores them. JSON Schema keywords the canonical
// model has no node for become opaque nodes validated by
// github.com/google/jsonschema-go.
package jsonschema

import (
	ijs "github.com/invopop/jsonschema"

	tb "github.com/reoring/typebridge"
)

// Dialect is the dialect id used for opaque nodes and qualified formats.
const Dialect = "jsonschema"

// Extension keywords written by this package.
const (
	KindHint     = "x-typebridge-kind"
	FlagsHint    = "x-typebridge-flags"
	ReturnsHint  = "x-typebridge-returns"
	MetadataKey  = "x-metadata"
	defsPrefix   = "#/$defs/"
	legacyPrefix = "#/definitions/"
)

// Schema is the native schema type of this dialect.
type Schema = ijs.Schema

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
