package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/jsonschema"
	"github.com/reoring/typebridge/openapi"
	s "github.com/reoring/typebridge/schema"
	"github.com/reoring/typebridge/syntax"
	"github.com/reoring/typebridge/tags"
)

// sourceFlags are the flags shared by every subcommand that reads a schema.
type sourceFlags struct {
	from     string
	in       string
	kind     string
	typeName string
	params   map[string]string
}

func (e *env) addSourceFlags(fs *flag.FlagSet, in string) *sourceFlags {
	sf := &sourceFlags{params: map[string]string{}}
	fs.StringVar(&sf.from, "from", e.cfg.From, "source dialect: syntax, jsonschema, openapi or go")
	fs.StringVar(&sf.in, in, "", "schema file (- for stdin); defaults to the first argument as text")
	fs.StringVar(&sf.kind, "kind", "", "openapi: CRD kind to import from a bundle")
	fs.StringVar(&sf.typeName, "type", "Schema", "go: struct type to read; tags: type name to write")
	fs.Func("p", "syntax: named parameter Name=text (repeatable)", func(v string) error {
		name, text, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return fmt.Errorf("parameter %q: want Name=text", v)
		}
		sf.params[name] = text
		return nil
	})
	return sf
}

// document is a loaded schema and its named definitions.
type document struct {
	root *s.Node
	refs []*s.Node
}

func (e *env) read(path string, args []string) ([]byte, error) {
	switch {
	case path == "-":
		return io.ReadAll(e.stdin)
	case path != "":
		return os.ReadFile(path)
	case len(args) > 0:
		return []byte(strings.Join(args, " ")), nil
	}
	return nil, fmt.Errorf("no schema given: pass text or -in file")
}

func (e *env) load(sf *sourceFlags, data []byte, diag *tb.Diag) (document, error) {
	e.log.Debug("loading schema", "dialect", sf.from, "bytes", len(data))
	switch sf.from {
	case "syntax":
		ctx := make(map[string]*s.Node, len(sf.params))
		for name, text := range sf.params {
			n, err := syntax.Parse(text, nil)
			if err != nil {
				return document{}, fmt.Errorf("parameter %s: %w", name, err)
			}
			ctx[name] = n
		}
		n, err := syntax.Parse(string(data), ctx)
		if err != nil {
			return document{}, err
		}
		return document{root: n}, nil
	case "jsonschema":
		js, err := jsonschema.Unmarshal(data)
		if err != nil {
			return document{}, err
		}
		root, refs := jsonschema.Import(js, jsonschema.WithDiag(diag))
		return document{root: root, refs: refs}, nil
	case "openapi":
		var (
			doc *openapi.Document
			err error
		)
		if sf.kind != "" {
			doc, err = openapi.ImportCRDKind(data, sf.kind, openapi.WithDiag(diag))
		} else {
			doc, err = openapi.Import(data, openapi.WithDiag(diag))
		}
		if err != nil {
			return document{}, err
		}
		return document{root: doc.Root, refs: doc.Refs}, nil
	case "go":
		r, err := tags.ParseGo(data, sf.typeName)
		if err != nil {
			return document{}, err
		}
		return document{root: tags.ToCanonical(r, tags.WithDiag(diag))}, nil
	}
	return document{}, fmt.Errorf("%w: unknown source dialect %q", errUsage, sf.from)
}

// warn logs the conversion warnings collected in d.
func (e *env) warn(d *tb.Diag) {
	for _, w := range d.Warnings() {
		e.log.Warn("lossy conversion", "detail", w)
	}
}
