package schema

// UndefinedValue marks an absent value where a Go nil would mean null.
type UndefinedValue struct{}

// Undef is the single UndefinedValue.
var Undef = UndefinedValue{}

// IsUndefined reports whether v is the undefined marker.
func IsUndefined(v any) bool {
	_, ok := v.(UndefinedValue)
	return ok
}

// SymbolValue is the runtime value of the symbol kind.
type SymbolValue struct{ Description string }
