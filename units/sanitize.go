package units

import (
	"strings"
	"unicode"
)

// Deblank removes every whitespace rune from s.
func Deblank(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// Sanitize removes whitespace from a unit string and rewrites the micro
// prefix variants "µ", "μ" and "mu" to "u".
func Sanitize(unit string) string {
	u := Deblank(unit)
	u = strings.NewReplacer("µ", "u", "μ", "u").Replace(u)
	for strings.Contains(u, "mu") {
		u = strings.ReplaceAll(u, "mu", "u")
	}
	return u
}

// NameCheck reports whether name can be used as an entity name.
func NameCheck(name string) bool {
	return !strings.Contains(name, "/")
}

// SanitizeName replaces characters that are not allowed in entity names.
func SanitizeName(name string) string {
	return strings.ReplaceAll(name, "/", "_")
}
