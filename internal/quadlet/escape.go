package quadlet

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Escape renders value for the right-hand side of a unit directive.
//
// Values containing a double quote or a backslash, or with leading or
// trailing whitespace, are wrapped in double quotes with `\` and `"`
// backslash-escaped. Unit files are line oriented, so values containing a
// line break cannot be represented and return a MappingError naming field.
func Escape(field, value string) (string, error) {
	if strings.ContainsAny(value, "\n\r") {
		return "", &MappingError{Field: field, Reason: "value contains a line break"}
	}
	if !needsQuoting(value) {
		return value, nil
	}
	return quote(value), nil
}

// EscapePair renders a KEY=VALUE word for directives whose values Quadlet
// splits on whitespace, such as Environment= and Label=. On top of the
// Escape rules the pair is quoted whenever it contains whitespace.
func EscapePair(field, key, value string) (string, error) {
	pair := key + "=" + value
	if strings.ContainsAny(pair, "\n\r") {
		return "", &MappingError{Field: field, Reason: "value contains a line break"}
	}
	if !needsQuoting(pair) && strings.IndexFunc(pair, unicode.IsSpace) < 0 {
		return pair, nil
	}
	return quote(pair), nil
}

func quote(value string) string {
	var b strings.Builder
	b.Grow(len(value) + 2)
	b.WriteByte('"')
	for _, r := range value {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(value string) bool {
	if value == "" {
		return false
	}
	if strings.ContainsAny(value, `"\`) {
		return true
	}
	first, _ := utf8.DecodeRuneInString(value)
	last, _ := utf8.DecodeLastRuneInString(value)
	return unicode.IsSpace(first) || unicode.IsSpace(last)
}

// Unquote reverses Escape. Values that are not wrapped in double quotes are
// returned unchanged.
func Unquote(value string) string {
	if len(value) < 2 || value[0] != '"' || value[len(value)-1] != '"' {
		return value
	}

	inner := value[1 : len(value)-1]
	var b strings.Builder
	b.Grow(len(inner))
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) && (inner[i+1] == '\\' || inner[i+1] == '"') {
			b.WriteByte(inner[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
