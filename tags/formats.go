package tags

import (
	"github.com/reoring/typebridge/format"
)

// Formats maps format names to the validator tags that check them. Each is
// registered in format.Default as "tags:<name>".
var Formats = map[string]string{
	"email":     "email",
	"uuid":      "uuid",
	"url":       "url",
	"uri":       "uri",
	"ipv4":      "ipv4",
	"ipv6":      "ipv6",
	"hostname":  "hostname_rfc1123",
	"date-time": "datetime=2006-01-02T15:04:05Z07:00",
	"date":      "datetime=2006-01-02",
	"time":      "datetime=15:04:05",
}

func init() {
	for name, tag := range Formats {
		format.Set(QualifiedFormat(name), predicate(tag))
	}
}

// QualifiedFormat returns the registry name of a tag format.
func QualifiedFormat(name string) string { return Dialect + ":" + name }

func predicate(tag string) format.Predicate {
	return func(s string) bool { return Var(s, tag) == nil }
}
