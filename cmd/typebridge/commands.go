package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/convert"
	"github.com/reoring/typebridge/internal/jsondup"
	"github.com/reoring/typebridge/jsonschema"
	"github.com/reoring/typebridge/openapi"
	s "github.com/reoring/typebridge/schema"
	"github.com/reoring/typebridge/syntax"
	"github.com/reoring/typebridge/tags"
)

func (e *env) convertCmd(args []string) error {
	fs := e.newFlagSet("convert")
	sf := e.addSourceFlags(fs, "in")
	to := fs.String("to", e.cfg.To, "target dialect: syntax, jsonschema, openapi or tags")
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := e.read(sf.in, fs.Args())
	if err != nil {
		return err
	}
	var diag tb.Diag
	doc, err := e.load(sf, data, &diag)
	if err != nil {
		return err
	}
	text, err := emit(*to, sf.typeName, doc, &diag)
	if err != nil {
		return err
	}
	e.warn(&diag)
	if *out != "" {
		return os.WriteFile(*out, text, 0o644)
	}
	_, err = e.stdout.Write(text)
	return err
}

func emit(to, typeName string, doc document, diag *tb.Diag) ([]byte, error) {
	switch to {
	case "syntax":
		return []byte(convert.With(diag).Syntax(doc.root) + "\n"), nil
	case "jsonschema":
		js := jsonschema.FromCanonical(doc.root, jsonschema.WithDiag(diag))
		if len(doc.refs) > 0 {
			js = jsonschema.Document(doc.root, doc.refs, jsonschema.WithDiag(diag))
		}
		b, err := jsonschema.MarshalIndent(js)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "openapi":
		return openapi.ExportYAML(doc.root, doc.refs, openapi.WithDiag(diag))
	case "tags":
		src, err := tags.GoSource(typeName, convert.With(diag).Tags(doc.root))
		if err != nil {
			return nil, err
		}
		return []byte(src), nil
	}
	return nil, fmt.Errorf("%w: unknown target dialect %q", errUsage, to)
}

func (e *env) checkCmd(args []string) error {
	fs := e.newFlagSet("check")
	sf := e.addSourceFlags(fs, "schema")
	dataPath := fs.String("data", "", "JSON document to validate (- for stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dataPath == "" {
		return fmt.Errorf("%w: -data is required", errUsage)
	}
	src, err := e.read(sf.in, fs.Args())
	if err != nil {
		return err
	}
	var diag tb.Diag
	doc, err := e.load(sf, src, &diag)
	if err != nil {
		return err
	}
	e.warn(&diag)
	raw, err := e.read(*dataPath, nil)
	if err != nil {
		return err
	}
	dups, err := jsondup.Find(raw, 0)
	if err != nil {
		return fmt.Errorf("%s: %w", *dataPath, err)
	}
	val, err := compile.DecodeJSON(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", *dataPath, err)
	}
	v := compile.Compile(doc.root, compile.WithReferences(doc.refs...))
	e.log.Debug("compiled", "state", v.State(), "generated", v.IsGenerated())
	res := v.Standard().Validate(val)
	iss := tb.AppendIssues(dups, res.Issues...)
	if len(iss) == 0 {
		fmt.Fprintln(e.stdout, color.GreenString("ok"))
		return nil
	}
	for _, it := range iss {
		at := it.Pointer()
		if at == "" {
			at = "(root)"
		}
		fmt.Fprintf(e.stdout, "%s %s %s %s\n", color.RedString("✗"), color.CyanString(at), it.Message, color.New(color.Faint).Sprintf("(%s)", it.Code))
	}
	return exitError(1)
}

func (e *env) roundtripCmd(args []string) error {
	fs := e.newFlagSet("roundtrip")
	sf := e.addSourceFlags(fs, "in")
	via := fs.String("via", "", "dialect to round trip through: syntax, jsonschema, openapi or tags")
	if err := fs.Parse(args); err != nil {
		return err
	}
	data, err := e.read(sf.in, fs.Args())
	if err != nil {
		return err
	}
	var diag tb.Diag
	doc, err := e.load(sf, data, &diag)
	if err != nil {
		return err
	}
	back, err := through(*via, doc, &diag)
	if err != nil {
		return err
	}
	e.warn(&diag)
	if s.Equal(doc.root, back) {
		fmt.Fprintf(e.stdout, "%s lossless via %s\n", color.GreenString("✓"), *via)
		return nil
	}
	fmt.Fprintf(e.stdout, "%s lossy via %s\n", color.YellowString("!"), *via)
	before, after := render(doc.root), render(back)
	if before == after {
		// The difference does not show in JSON Schema; fall back to the
		// structural diff.
		fmt.Fprint(e.stdout, s.Diff(doc.root, back))
		return exitError(1)
	}
	writeDiff(e, before, after)
	return exitError(1)
}

// through converts doc into the dialect via and back to canonical.
func through(via string, doc document, diag *tb.Diag) (*s.Node, error) {
	switch via {
	case "syntax":
		return syntax.Parse(syntax.Print(doc.root, syntax.WithDiag(diag)), nil)
	case "tags":
		return tags.ToCanonical(tags.FromCanonical(doc.root, tags.WithDiag(diag)), tags.WithDiag(diag)), nil
	case "jsonschema":
		js := jsonschema.FromCanonical(doc.root, jsonschema.WithDiag(diag))
		b, err := jsonschema.Marshal(js)
		if err != nil {
			return nil, err
		}
		back, err := jsonschema.Unmarshal(b)
		if err != nil {
			return nil, err
		}
		return jsonschema.ToCanonical(back, jsonschema.WithDiag(diag)), nil
	case "openapi":
		y, err := openapi.ExportYAML(doc.root, nil, openapi.WithDiag(diag))
		if err != nil {
			return nil, err
		}
		d, err := openapi.Import(y, openapi.WithDiag(diag))
		if err != nil {
			return nil, err
		}
		return d.Root, nil
	case "":
		return nil, fmt.Errorf("%w: -via is required", errUsage)
	}
	return nil, fmt.Errorf("%w: unknown dialect %q", errUsage, via)
}

func render(n *s.Node) string {
	b, err := jsonschema.MarshalIndent(jsonschema.FromCanonical(n))
	if err != nil {
		return err.Error()
	}
	return string(b) + "\n"
}

// writeDiff prints a line diff of before and after.
func writeDiff(e *env, before, after string) {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)
	for _, d := range diffs {
		prefix, paint := "  ", fmt.Sprint
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix, paint = "+ ", color.New(color.FgGreen).Sprint
		case diffmatchpatch.DiffDelete:
			prefix, paint = "- ", color.New(color.FgRed).Sprint
		}
		for _, line := range strings.SplitAfter(strings.TrimSuffix(d.Text, "\n"), "\n") {
			fmt.Fprint(e.stdout, paint(prefix+strings.TrimSuffix(line, "\n")), "\n")
		}
	}
}
