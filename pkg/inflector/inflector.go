// Package inflector converts identifiers between property names (lowerCamelCase)
// and column names (snake_case).
package inflector

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// Snakeize converts a camelCase identifier to snake_case.
// Every ASCII uppercase letter is replaced by an underscore followed by its
// lowercase form; the first character of the result is then lowercased.
func Snakeize(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i := 0; i < len(s); i++ {
		ch := s[i]
		if isUpper(ch) {
			b.WriteByte('_')
			b.WriteByte(toLower(ch))
			continue
		}
		b.WriteByte(ch)
	}

	return lowerFirst(b.String())
}

// Camelize converts a snake_case identifier to lowerCamelCase.
func Camelize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	for _, part := range strings.Split(s, "_") {
		b.WriteString(upperFirst(part))
	}

	return lowerFirst(b.String())
}

// Tableize converts a Go type name such as "ContactInfo" to a table name
// such as "contact_info".
func Tableize(typeName string) string {
	return strings.TrimPrefix(Snakeize(typeName), "_")
}

// TableizePlural is Tableize with the last word pluralized ("ContactInfo" ->
// "contact_infos", "Person" -> "people").
func TableizePlural(typeName string) string {
	name := Tableize(typeName)
	idx := strings.LastIndexByte(name, '_')
	return name[:idx+1] + inflection.Plural(name[idx+1:])
}

func isUpper(ch byte) bool {
	return ch >= 'A' && ch <= 'Z'
}

func isLower(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}

func toLower(ch byte) byte {
	if isUpper(ch) {
		return ch + 32
	}
	return ch
}

func toUpper(ch byte) byte {
	if isLower(ch) {
		return ch - 32
	}
	return ch
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return string(toLower(s[0])) + s[1:]
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return string(toUpper(s[0])) + s[1:]
}
