package format

import (
	"net/netip"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/reoring/typebridge/internal/pattern"
)

var (
	emailRe    = regexp.MustCompile(`^[A-Za-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)
	hostnameRe = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9-]{0,61}[A-Za-z0-9])?)*$`)
	timeRe     = regexp.MustCompile(`^\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:[Zz]|[+-]\d{2}:\d{2})?$`)
)

var builtins = map[string]Predicate{
	"email":     Email,
	"uuid":      UUID,
	"uri":       URI,
	"url":       URL,
	"date-time": DateTime,
	"date":      Date,
	"time":      Time,
	"ipv4":      IPv4,
	"ipv6":      IPv6,
	"hostname":  Hostname,
	"regex":     Regex,
}

// Builtins returns the names of the formats every new registry starts with.
func Builtins() []string {
	return NewRegistry().Names()
}

func Email(s string) bool { return emailRe.MatchString(s) }

// UUID accepts the canonical 8-4-4-4-12 hex form only.
func UUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// URI requires an absolute URI with a scheme.
func URI(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != ""
}

// URL requires an absolute http(s) URL with a host.
func URL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	}
	return false
}

func DateTime(s string) bool {
	_, err := time.Parse(time.RFC3339Nano, s)
	return err == nil
}

func Date(s string) bool {
	_, err := time.Parse(time.DateOnly, s)
	return err == nil
}

func Time(s string) bool {
	if !timeRe.MatchString(s) {
		return false
	}
	h, m, sec := (s[0]-'0')*10+(s[1]-'0'), (s[3]-'0')*10+(s[4]-'0'), (s[6]-'0')*10+(s[7]-'0')
	return h < 24 && m < 60 && sec < 61
}

func IPv4(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is4()
}

func IPv6(s string) bool {
	a, err := netip.ParseAddr(s)
	return err == nil && a.Is6()
}

func Hostname(s string) bool { return len(s) <= 253 && hostnameRe.MatchString(s) }

// Regex accepts strings that compile as ECMAScript regular expressions.
func Regex(s string) bool { return pattern.Valid(s) }
