// Package validate holds the small input checks shared by the portal services.
package validate

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Fields collects per-field validation messages. The first message for a
// field wins.
type Fields map[string]string

// Add records msg for field unless one is already set.
func (f Fields) Add(field, msg string) {
	if _, ok := f[field]; !ok {
		f[field] = msg
	}
}

// Check records msg for field when ok is false.
func (f Fields) Check(ok bool, field, msg string) {
	if !ok {
		f.Add(field, msg)
	}
}

// Empty reports whether no problems were recorded.
func (f Fields) Empty() bool { return len(f) == 0 }

// Email reports whether s is a bare address such as a@b.co.
func Email(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	a, err := mail.ParseAddress(s)
	if err != nil || a.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at:], ".")
}

// MinLen reports whether s (trimmed) has at least n characters.
func MinLen(s string, n int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) >= n
}

var hostnameRe = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,63}$`)

// Hostname reports whether s is a lowercase DNS name with at least two labels.
func Hostname(s string) bool {
	return len(s) <= 253 && hostnameRe.MatchString(s)
}

var subdomainLabelRe = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// SubdomainLabel reports whether s is 3..30 lowercase letters, digits and
// single inner hyphens.
func SubdomainLabel(s string) bool {
	return len(s) >= 3 && len(s) <= 30 && subdomainLabelRe.MatchString(s)
}

// OneOf reports whether s equals one of options.
func OneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
