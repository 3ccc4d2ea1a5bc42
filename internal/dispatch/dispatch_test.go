package dispatch

import "testing"

func TestTable_FirstMatchWins(t *testing.T) {
	tbl := New(func(int) string { return "fallback" },
		Case[int, string]{Name: "even", Match: func(i int) bool { return i%2 == 0 }, Convert: func(int) string { return "even" }},
		Case[int, string]{Name: "small", Match: func(i int) bool { return i < 10 }, Convert: func(int) string { return "small" }},
	)
	cases := map[int]string{2: "even", 3: "small", 11: "fallback", 12: "even"}
	for in, want := range cases {
		if got := tbl.Convert(in); got != want {
			t.Fatalf("Convert(%d)=%q want %q", in, got, want)
		}
	}
	if tbl.Which(3) != "small" || tbl.Which(11) != "" {
		t.Fatalf("Which mismatch")
	}
	if n := tbl.Names(); len(n) != 2 || n[0] != "even" {
		t.Fatalf("names: %v", n)
	}
}

type tree struct {
	name string
	kids []*tree
}

func TestTable_RecoverKeepsSiblings(t *testing.T) {
	var tbl *Table[*tree, string]
	tbl = New(func(n *tree) string { return n.name },
		Case[*tree, string]{Name: "boom", Match: func(n *tree) bool { return n.name == "boom" }, Convert: func(*tree) string { panic("bad node") }},
		Case[*tree, string]{Name: "parent", Match: func(n *tree) bool { return len(n.kids) > 0 }, Convert: func(n *tree) string {
			out := n.name + "("
			for i, k := range n.kids {
				if i > 0 {
					out += ","
				}
				out += tbl.Convert(k)
			}
			return out + ")"
		}},
	)
	var caught []any
	tbl.Recover(func(n *tree, r any) string {
		caught = append(caught, r)
		return "never"
	})
	got := tbl.Convert(&tree{name: "root", kids: []*tree{{name: "a"}, {name: "boom"}, {name: "c"}}})
	if got != "root(a,never,c)" {
		t.Fatalf("Convert=%q", got)
	}
	if len(caught) != 1 || caught[0] != "bad node" {
		t.Fatalf("recovered %v", caught)
	}
}

func TestTable_NoRecoverPanics(t *testing.T) {
	tbl := New(func(int) string { panic("fallback") })
	defer func() {
		if recover() == nil {
			t.Fatalf("panic swallowed without a handler")
		}
	}()
	tbl.Convert(1)
}
