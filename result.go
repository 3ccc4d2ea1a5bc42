package typebridge

import (
	"iter"

	"github.com/reoring/typebridge/schema"
)

// ValueError describes one way a value fails a schema.
type ValueError struct {
	Path    Path
	Code    string
	Message string
	// Schema is the (sub-)schema that rejected the value.
	Schema *schema.Node
	Value  any
}

// Issue converts the error into the Issue shape used by the result protocol.
func (e ValueError) Issue() Issue {
	return Issue{Path: e.Path, Code: e.Code, Message: e.Message}
}

// Checker is implemented by compiled validators.
type Checker interface {
	Check(v any) bool
	Errors(v any) iter.Seq[ValueError]
}

// Vendor and Version identify this library in the standard result protocol.
const (
	Vendor  = "typebridge"
	Version = 1
)

// Result is the outcome of StandardSchema.Validate. Exactly one of Value or
// Issues is meaningful: a nil Issues slice means success.
type Result struct {
	Value  any
	Issues Issues
}

// OK reports whether validation succeeded.
func (r Result) OK() bool { return r.Issues == nil }

// StandardSchema adapts a Checker to the standard validation result
// protocol.
type StandardSchema struct {
	checker Checker
}

// Standard wraps c.
func Standard(c Checker) *StandardSchema { return &StandardSchema{checker: c} }

func (s *StandardSchema) Vendor() string { return Vendor }

func (s *StandardSchema) Version() int { return Version }

// Validate returns {Value: v} on success, otherwise every issue reported by
// the checker. Issues is never empty on failure.
func (s *StandardSchema) Validate(v any) Result {
	if s.checker.Check(v) {
		return Result{Value: v}
	}
	iss := IssuesOf(s.checker.Errors(v))
	if len(iss) == 0 {
		iss = Issues{Path{}.Issue(CodeNever, "value rejected")}
	}
	return Result{Issues: iss}
}

// IssuesOf drains an error sequence into Issues.
func IssuesOf(seq iter.Seq[ValueError]) Issues {
	var out Issues
	for e := range seq {
		out = append(out, e.Issue())
	}
	return out
}
