package spanz

import (
	"strings"
	"unicode"
)

// SnakeCase converts a camelCase attribute name into snake_case.
// Acronym runs stay together: "httpURLPath" becomes "http_url_path".
func SnakeCase(key string) string {
	runes := []rune(key)
	var b strings.Builder
	b.Grow(len(key) + 4)

	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && runes[i-1] != '_' && runes[i-1] != '.' {
				prevLower := unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if prevLower || (unicode.IsUpper(runes[i-1]) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
