package textutil

import (
	"strings"
	"unicode"
)

// fileNameReplacer replaces filesystem-unsafe characters with safe alternatives.
var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// SanitizeFileName makes name safe to embed in a file name. Unsafe
// characters are replaced or removed and whitespace runs collapse to a
// single underscore. Empty input yields "unnamed".
func SanitizeFileName(name string) string {
	name = fileNameReplacer.Replace(strings.TrimSpace(name))
	fields := strings.FieldsFunc(name, unicode.IsSpace)
	out := strings.Trim(strings.Join(fields, "_"), "._")
	if out == "" {
		return "unnamed"
	}
	return out
}
