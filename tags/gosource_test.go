package tags_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/reoring/typebridge/tags"
)

const models = `package models

import "time"

type Address struct {
	City string ` + "`json:\"city\" validate:\"required\"`" + `
}

type Base struct {
	Version int ` + "`json:\"version\" validate:\"gte=1\"`" + `
}

type Account struct {
	ID     string         ` + "`json:\"id\" validate:\"required,uuid\"`" + `
	Emails []string       ` + "`json:\"emails\" validate:\"required,min=1,dive,email\"`" + `
	Labels map[string]int ` + "`json:\"labels,omitempty\" validate:\"dive,keys,startswith=x-,endkeys,gte=0\"`" + `
	Home   *Address       ` + "`json:\"home\"`" + `
	Born   time.Time      ` + "`json:\"born\"`" + `
	Note   string
	secret string
	Skip   string ` + "`json:\"-\"`" + `
	Base
}
`

func TestParseGo(t *testing.T) {
	r, err := tags.ParseGo([]byte(models), "Account")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var names []string
	for _, f := range r.Fields {
		names = append(names, f.Name)
	}
	if d := cmp.Diff([]string{"id", "emails", "labels", "home", "born", "Note", "version"}, names); d != "" {
		t.Fatalf("fields (-want +got):\n%s", d)
	}
	emails, _ := r.Field("emails")
	if emails.Tag != "required,min=1" || emails.Elem.Tag != "email" {
		t.Fatalf("dive not split: %+v", emails)
	}
	labels, _ := r.Field("labels")
	if labels.KeyTag != "startswith=x-" || labels.Elem.Type != tags.TypeInt || labels.Elem.Tag != "gte=0" {
		t.Fatalf("keys not split: %+v", labels)
	}
	home, _ := r.Field("home")
	if city, ok := home.Field("city"); !ok || !city.Required() {
		t.Fatalf("nested struct: %+v", home)
	}
	if born, _ := r.Field("born"); born.Type != tags.TypeTime {
		t.Fatalf("time field: %+v", born)
	}

	if _, err := tags.ParseGo([]byte(models), "Missing"); !errors.Is(err, tags.ErrTypeNotFound) {
		t.Fatalf("want ErrTypeNotFound, got %v", err)
	}
	if _, err := tags.ParseGo([]byte("package x\nfunc {"), "X"); err == nil {
		t.Fatalf("want syntax error")
	}
}

func TestGoSource_RoundTrip(t *testing.T) {
	r, err := tags.ParseGo([]byte(models), "Account")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	src, err := tags.GoSource("Account", r)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(src, "type Account struct {") {
		t.Fatalf("declaration: %s", src)
	}
	for _, want := range []string{
		`json:"labels,omitempty" validate:"dive,keys,startswith=x-,endkeys,gte=0"`,
		`json:"emails" validate:"required,min=1,dive,email"`,
		"time.Time",
	} {
		if !strings.Contains(src, want) {
			t.Fatalf("missing %q in:\n%s", want, src)
		}
	}
	back, err := tags.ParseGo([]byte("package schema\n\n"+src), "Account")
	if err != nil {
		t.Fatalf("re-parse: %v\n%s", err, src)
	}
	if d := cmp.Diff(r, back); d != "" {
		t.Fatalf("round trip (-want +got):\n%s", d)
	}
}
