package jsonschema

import (
	"net/mail"
	"net/url"
	"regexp"
	"strings"

	"github.com/reoring/typebridge/format"
)

var (
	durationRe = regexp.MustCompile(`^P(?:\d+W|(?:\d+Y)?(?:\d+M)?(?:\d+D)?(?:T(?:\d+H)?(?:\d+M)?(?:\d+(?:\.\d+)?S)?)?)$`)
	pointerRe  = regexp.MustCompile(`^(?:/(?:[^~/]|~[01])*)*$`)
)

// Formats are the draft 2020-12 format names, registered in format.Default
// as "jsonschema:<name>". Generic names stay the registry's own.
var Formats = map[string]format.Predicate{
	"date-time":     format.DateTime,
	"date":          format.Date,
	"time":          format.Time,
	"duration":      Duration,
	"email":         Email,
	"hostname":      format.Hostname,
	"ipv4":          format.IPv4,
	"ipv6":          format.IPv6,
	"uri":           format.URI,
	"uri-reference": URIReference,
	"uuid":          format.UUID,
	"regex":         format.Regex,
	"json-pointer":  JSONPointer,
}

func init() {
	for name, fn := range Formats {
		format.Set(QualifiedFormat(name), fn)
	}
}

// QualifiedFormat returns the registry name of a JSON Schema format.
func QualifiedFormat(name string) string { return Dialect + ":" + name }

// Email accepts a bare RFC 5322 address: no display name, no angle brackets.
func Email(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Name == "" && a.Address == s && format.Email(s)
}

// Duration accepts ISO 8601 durations such as P1DT2H or P3W.
func Duration(s string) bool {
	return s != "P" && !strings.HasSuffix(s, "T") && durationRe.MatchString(s)
}

func URIReference(s string) bool {
	_, err := url.Parse(s)
	return err == nil
}

func JSONPointer(s string) bool { return pointerRe.MatchString(s) }
