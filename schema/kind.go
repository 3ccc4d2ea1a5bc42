package schema

// Kind identifies a canonical node type.
type Kind int

const (
	KindAny Kind = iota
	KindUnknown
	KindNever
	KindVoid
	KindNull
	KindUndefined
	KindBoolean
	KindNumber
	KindInteger
	KindBigInt
	KindString
	KindSymbol
	KindLiteral
	KindArray
	KindTuple
	KindObject
	KindRecord
	KindUnion
	KindIntersect
	KindPromise
	KindDate
	KindRegExp
	KindFunction
	KindConstructor
	KindTransform
	KindRef

	// Modifier wrappers. Inside an object they are folded onto the property
	// edge; elsewhere they wrap a single inner node.
	KindOptional
	KindReadonly

	// KindOpaque carries a dialect-native schema the canonical model cannot
	// express.
	KindOpaque
)

var kindNames = [...]string{
	KindAny:         "any",
	KindUnknown:     "unknown",
	KindNever:       "never",
	KindVoid:        "void",
	KindNull:        "null",
	KindUndefined:   "undefined",
	KindBoolean:     "boolean",
	KindNumber:      "number",
	KindInteger:     "integer",
	KindBigInt:      "bigint",
	KindString:      "string",
	KindSymbol:      "symbol",
	KindLiteral:     "literal",
	KindArray:       "array",
	KindTuple:       "tuple",
	KindObject:      "object",
	KindRecord:      "record",
	KindUnion:       "union",
	KindIntersect:   "intersect",
	KindPromise:     "promise",
	KindDate:        "date",
	KindRegExp:      "regexp",
	KindFunction:    "function",
	KindConstructor: "constructor",
	KindTransform:   "transform",
	KindRef:         "ref",
	KindOptional:    "optional",
	KindReadonly:    "readonly",
	KindOpaque:      "opaque",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, bool) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsScalar reports whether the kind has no child schemas.
func (k Kind) IsScalar() bool {
	switch k {
	case KindAny, KindUnknown, KindNever, KindVoid, KindNull, KindUndefined,
		KindBoolean, KindNumber, KindInteger, KindBigInt, KindString, KindSymbol,
		KindLiteral, KindDate, KindRegExp, KindRef:
		return true
	}
	return false
}
