package convert_test

import (
	"fmt"

	tb "github.com/reoring/typebridge"
	"github.com/reoring/typebridge/compile"
	"github.com/reoring/typebridge/convert"
)

func ExampleSyntax() {
	fmt.Println(convert.Syntax(tb.Params{"Id": "string"}, "{ id: Id, tags?: string[] }"))
	// Output: { id: string, tags?: string[] }
}

func ExampleTags() {
	r := convert.Tags("{ name: string, nick?: string }")
	for _, f := range r.Fields {
		fmt.Printf("%s %q\n", f.Name, f.Rule.Tag)
	}
	// Output:
	// name "required"
	// nick "omitempty"
}

func ExampleCanonical() {
	v := compile.Compile(convert.Canonical("{ name: string, age?: integer }"))
	fmt.Println(v.Check(map[string]any{"name": "ann"}), v.Check(map[string]any{}))
	// Output: true false
}
