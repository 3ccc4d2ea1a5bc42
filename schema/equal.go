package schema

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var equalOpts = cmp.Options{
	// Codecs and opaque checks are behaviour, not structure.
	cmp.FilterPath(func(p cmp.Path) bool {
		return p.Last().Type().Kind() == reflect.Func
	}, cmp.Ignore()),
	cmp.Comparer(func(a, b *Opaque) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Dialect == b.Dialect && reflect.DeepEqual(a.Value, b.Value)
	}),
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether a and b describe the same schema.
func Equal(a, b *Node) bool { return cmp.Equal(a, b, equalOpts) }

// Diff renders a human-readable difference between a and b, or "" when
// they are equal.
func Diff(a, b *Node) string { return cmp.Diff(a, b, equalOpts) }
