package jsondup

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestFind(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{`{"a":1,"b":2}`, nil},
		{`{"a":1,"a":2}`, []string{"/a"}},
		{`{"x":{"a":[1,{"k":1,"k":2}]},"y":[{"z":1},{"z":2,"z":3}]}`, []string{"/x/a/1/k", "/y/1/z"}},
		{`[{"a":1},{"a":1}]`, nil},
		{`{"a/b":1,"a/b":1}`, []string{"/a~1b"}},
		{`{"a":{"b":1},"c":2,"a":3}`, []string{"/a"}},
	}
	for _, c := range cases {
		iss, err := Find([]byte(c.in), 0)
		if err != nil {
			t.Fatalf("%s: %v", c.in, err)
		}
		if d := cmp.Diff(c.want, iss.Paths(), cmpopts.EquateEmpty()); d != "" {
			t.Fatalf("%s (-want +got):\n%s", c.in, d)
		}
	}
}

func TestFind_LimitAndErrors(t *testing.T) {
	iss, err := Find([]byte(`{"a":1,"a":2,"a":3}`), 1)
	if err != nil || len(iss) != 1 || iss[0].Code != "duplicate_key" {
		t.Fatalf("limit: %v %v", iss, err)
	}
	if _, err := Find([]byte(`{"a":`), 0); err == nil {
		t.Fatalf("truncated document must fail")
	}
}
