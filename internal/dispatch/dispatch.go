// Package dispatch implements the ordered predicate tables dialect
// converters are built from: the first case whose Match accepts the input
// converts it, and inputs no case accepts go to the fallback.
package dispatch

// Case is one row of a table.
type Case[S, T any] struct {
	Name    string
	Match   func(S) bool
	Convert func(S) T
}

// Table is an ordered list of cases plus a fallback. Order is significant:
// modifier cases must precede shape cases, shape cases must precede scalars.
type Table[S, T any] struct {
	cases    []Case[S, T]
	fallback func(S) T
	onPanic  func(S, any) T
}

// New builds a table. fallback must not be nil.
func New[S, T any](fallback func(S) T, cases ...Case[S, T]) *Table[S, T] {
	return &Table[S, T]{cases: cases, fallback: fallback}
}

// Recover installs h for panics raised while converting one input. The
// value h returns replaces that input's conversion only, so a recursive
// conversion keeps the siblings of a failing node.
func (t *Table[S, T]) Recover(h func(s S, r any) T) {
	t.onPanic = h
}

// Convert runs the first matching case.
func (t *Table[S, T]) Convert(s S) (out T) {
	if t.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				out = t.onPanic(s, r)
			}
		}()
	}
	for _, c := range t.cases {
		if c.Match(s) {
			return c.Convert(s)
		}
	}
	return t.fallback(s)
}

// Which names the case that would convert s, or "" for the fallback.
func (t *Table[S, T]) Which(s S) string {
	for _, c := range t.cases {
		if c.Match(s) {
			return c.Name
		}
	}
	return ""
}

// Names lists case names in order.
func (t *Table[S, T]) Names() []string {
	out := make([]string, len(t.cases))
	for i, c := range t.cases {
		out[i] = c.Name
	}
	return out
}
