package openapi_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/typebridge/openapi"
)

func TestReader_ReadAll(t *testing.T) {
	src := "b: 1\na: [x, 2.5, true, null]\n---\n- one\n- 0x10\n"
	docs, err := openapi.NewReader(strings.NewReader(src)).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("documents: got %d", len(docs))
	}
	m, ok := docs[0].(*openapi.Map)
	if !ok {
		t.Fatalf("first document: %T", docs[0])
	}
	var keys []string
	for p := m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	if diff := cmp.Diff([]string{"b", "a"}, keys); diff != "" {
		t.Fatalf("key order (-want +got):\n%s", diff)
	}
	a, _ := m.Get("a")
	if diff := cmp.Diff([]any{"x", 2.5, true, nil}, a); diff != "" {
		t.Fatalf("scalars (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"one", int64(16)}, docs[1]); diff != "" {
		t.Fatalf("second document (-want +got):\n%s", diff)
	}
}

func TestReader_DuplicateKeyNested(t *testing.T) {
	src := "spec:\n  name: a\n  name: b\n"
	_, err := openapi.NewReader(strings.NewReader(src)).Next()
	var dup *openapi.DuplicateKeyError
	if !errors.As(err, &dup) {
		t.Fatalf("want DuplicateKeyError, got %v", err)
	}
	if dup.Key != "name" || dup.FirstLine != 2 || dup.Line != 3 || dup.Col != 3 {
		t.Fatalf("position: %+v", dup)
	}
	if !strings.Contains(err.Error(), `"name"`) {
		t.Fatalf("message: %v", err)
	}
}

func TestReader_Aliases(t *testing.T) {
	src := "base: &b\n  type: string\nother: *b\n"
	v, err := openapi.NewReader(strings.NewReader(src)).Next()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	other, _ := v.(*openapi.Map).Get("other")
	typ, _ := other.(*openapi.Map).Get("type")
	if typ != "string" {
		t.Fatalf("alias not resolved: %v", other)
	}
}
