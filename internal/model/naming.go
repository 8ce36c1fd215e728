package model

import (
	"strings"
	"unicode"
)

// DefaultStorageName converts a property name to the default storage field
// name: lower snake_case. Acronym runs stay together ("HTTPCode" -> "http_code").
func DefaultStorageName(name string) string {
	var b strings.Builder
	b.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if i > 0 && (prevLower || (nextLower && !unicode.IsLower(runes[i-1]))) && runes[i-1] != '_' {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
