// Package compile turns canonical schemas into reusable validators.
//
// A validator first tries to generate an expr-lang program specialised to
// the schema. When generation or compilation fails, or code generation is
// disabled (WithCodegen(false) or TYPEBRIDGE_DISABLE_CODEGEN=true), it falls
// back to an interpreter that walks the schema. Both paths accept exactly
// the same values; error reporting always uses the interpreter.
package compile

import (
	"bytes"
	"fmt"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	json "github.com/goccy/go-json"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/format"
	s "github.com/reoring/typebridge/schema"
)

// State is the compilation state of a Validator.
type State int32

const (
	StateUncompiled State = iota
	StateCompiling
	StateReady
)

func (st State) String() string {
	switch st {
	case StateUncompiled:
		return "uncompiled"
	case StateCompiling:
		return "compiling"
	case StateReady:
		return "ready"
	}
	return "invalid"
}

// checkEnv is the expr environment of generated programs.
type checkEnv struct {
	V any   `expr:"v"`
	C []any `expr:"c"`
}

// Validator checks values against a canonical schema. It is safe for
// concurrent use once compiled; Check compiles on first use.
type Validator struct {
	root    *s.Node
	refs    map[string]*s.Node
	formats *format.Registry
	codegen bool

	once    sync.Once
	state   atomic.Int32
	program *vm.Program
	code    string
	consts  []any
}

// Option configures a Validator.
type Option func(*Validator)

// WithReferences makes refs resolvable by ref nodes, keyed by their ID.
func WithReferences(refs ...*s.Node) Option {
	return func(v *Validator) {
		for _, r := range refs {
			if r != nil && r.ID != "" {
				v.refs[r.ID] = r
			}
		}
	}
}

// WithFormats replaces the format registry (format.Default otherwise).
func WithFormats(r *format.Registry) Option {
	return func(v *Validator) {
		if r != nil {
			v.formats = r
		}
	}
}

// WithCodegen enables or disables the generated fast path.
func WithCodegen(enabled bool) Option {
	return func(v *Validator) { v.codegen = enabled }
}

// New returns an uncompiled validator for n.
func New(n *s.Node, opts ...Option) *Validator {
	if n == nil {
		n = s.Never()
	}
	v := &Validator{root: n, refs: map[string]*s.Node{}, formats: format.Default, codegen: true}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Compile returns a ready validator for n.
func Compile(n *s.Node, opts ...Option) *Validator {
	v := New(n, opts...)
	v.Compile()
	return v
}

// Compile generates the fast path if possible. It is idempotent.
func (v *Validator) Compile() *Validator {
	v.once.Do(func() {
		v.state.Store(int32(StateCompiling))
		if v.codegen && CodegenAllowed() {
			v.program, v.code, v.consts = v.build()
		}
		v.state.Store(int32(StateReady))
	})
	return v
}

func (v *Validator) build() (*vm.Program, string, []any) {
	src, consts, err := Generate(v.root)
	if err != nil {
		return nil, "", nil
	}
	prog, err := compileProgram(src, v.functions())
	if err != nil {
		return nil, "", nil
	}
	return prog, src, consts
}

func compileProgram(src string, fns []expr.Option) (prog *vm.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			prog, err = nil, errPanic
		}
	}()
	opts := append([]expr.Option{expr.Env(checkEnv{}), expr.AsBool()}, fns...)
	return expr.Compile(src, opts...)
}

// State reports the compilation state.
func (v *Validator) State() State { return State(v.state.Load()) }

// Schema returns the validated schema.
func (v *Validator) Schema() *s.Node { return v.root }

// References returns the resolvable references by ID.
func (v *Validator) References() map[string]*s.Node {
	out := make(map[string]*s.Node, len(v.refs))
	for k, r := range v.refs {
		out[k] = r
	}
	return out
}

// IsGenerated reports whether checks run on the generated fast path.
func (v *Validator) IsGenerated() bool {
	v.Compile()
	return v.program != nil
}

// Code returns the generated source. On the interpreter path it returns a
// comment naming the interpreted schema instead.
func (v *Validator) Code() string {
	v.Compile()
	if v.program == nil {
		return fmt.Sprintf("// interpreted: %s schema", v.root.Kind)
	}
	return v.code
}

// Check reports whether val satisfies the schema.
func (v *Validator) Check(val any) bool {
	v.Compile()
	if v.program != nil {
		out, err := expr.Run(v.program, checkEnv{V: val, C: v.consts})
		if err == nil {
			ok, _ := out.(bool)
			return ok
		}
	}
	return v.check(v.root, val)
}

// Errors yields every failure of val, in schema order. It yields nothing
// exactly when Check returns true.
func (v *Validator) Errors(val any) iter.Seq[tb.ValueError] {
	return func(yield func(tb.ValueError) bool) {
		v.Compile()
		w := &walker{v: v, emit: yield}
		w.visit(v.root, tb.Path{}, val)
	}
}

// Validate returns nil or the Issues of val.
func (v *Validator) Validate(val any) error {
	if v.Check(val) {
		return nil
	}
	return tb.IssuesOf(v.Errors(val))
}

// Standard adapts the validator to the standard result protocol.
func (v *Validator) Standard() *tb.StandardSchema { return tb.Standard(v) }

// check runs the interpreter on n, stopping at the first failure.
func (v *Validator) check(n *s.Node, val any) bool {
	ok := true
	w := &walker{v: v, emit: func(tb.ValueError) bool {
		ok = false
		return false
	}}
	w.visit(n, tb.Path{}, val)
	return ok
}

// DecodeJSON decodes data the way validators expect values: numbers stay
// json.Number so that integers keep their precision.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// CheckJSON decodes data and checks it.
func (v *Validator) CheckJSON(data []byte) (bool, error) {
	val, err := DecodeJSON(data)
	if err != nil {
		return false, err
	}
	return v.Check(val), nil
}
