package typebridge

import (
	"errors"
	"fmt"
	"strings"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	CodeInvalidType          = "invalid_type"
	CodeRequired             = "required"
	CodeUnknownKey           = "unknown_key"
	CodeInvalidKey           = "invalid_key"
	CodeTooSmall             = "too_small"
	CodeTooBig               = "too_big"
	CodeTooShort             = "too_short"
	CodeTooLong              = "too_long"
	CodePattern              = "pattern"
	CodeInvalidFormat        = "invalid_format"
	CodeUnknownFormat        = "unknown_format"
	CodeInvalidLiteral       = "invalid_literal"
	CodeNotMultipleOf        = "not_multiple_of"
	CodeNotUnique            = "not_unique"
	CodeInvalidUnion         = "invalid_union"
	CodeDiscriminatorMissing = "discriminator_missing"
	CodeDiscriminatorUnknown = "discriminator_unknown"
	CodeNever                = "never"
	CodeUnresolvedRef        = "unresolved_ref"
	CodeOpaque               = "opaque"
	CodeTransform            = "transform"
	CodeParseError           = "parse_error"
	CodeDuplicateKey         = "duplicate_key"
)

// Issue represents a single validation entry.
type Issue struct {
	// Path lists property keys (string) and indices (int) from the root to
	// the failing node. It is empty for the root itself.
	Path    Path
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, format names, etc.
	Cause   error  // Optional: underlying error.
	// Params carries structured parameters (e.g., {"min":1, "got":0}) for
	// i18n and observability.
	Params map[string]any
}

// Pointer renders the issue path as an RFC 6901 JSON Pointer. It is meant for
// display only; Path stays the source of truth.
func (it Issue) Pointer() string { return it.Path.Pointer() }

// Issues is the error returned for a value that fails a schema.
type Issues []Issue

// summaryLimit bounds how many issues Error spells out.
const summaryLimit = 3

// Error lists the code and location of the first issues, e.g.
// "required at /name; too_short at /tags/0".
func (iss Issues) Error() string {
	parts := make([]string, 0, min(len(iss), summaryLimit)+1)
	for _, it := range iss[:min(len(iss), summaryLimit)] {
		parts = append(parts, it.Code+" at "+it.Pointer())
	}
	if len(iss) > summaryLimit {
		parts = append(parts, fmt.Sprintf("... (total %d)", len(iss)))
	}
	return strings.Join(parts, "; ")
}

// Paths returns the JSON Pointer of every issue, in order.
func (iss Issues) Paths() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Pointer()
	}
	return out
}

// AppendIssues returns dst with more appended. The result is never nil, so
// callers can tell "checked, nothing found" from "not checked".
func AppendIssues(dst Issues, more ...Issue) Issues {
	return append(append(Issues{}, dst...), more...)
}

// AsIssues finds the Issues in err's chain, looking through *DecodeError.
func AsIssues(err error) (Issues, bool) {
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// DecodeError is returned by APIs documented as "may fail" (Parse) when the
// value does not satisfy the schema. It carries the same issues Validate
// would have produced.
type DecodeError struct {
	Issues Issues
}

func (e *DecodeError) Error() string {
	if len(e.Issues) == 0 {
		return "typebridge: decode failed"
	}
	return "typebridge: decode failed: " + e.Issues.Error()
}

// Unwrap exposes the underlying Issues to errors.As.
func (e *DecodeError) Unwrap() error { return e.Issues }
