package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// CleanName strips non-breaking spaces and collapses runs of whitespace
// into single spaces. Student names on the report page are padded with
// &nbsp; between name segments.
func CleanName(name string) string {
	name = strings.ReplaceAll(name, " ", "")
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

// SanitizeFilename keeps only characters that are safe in a filename
// on every platform the output is shared to.
func SanitizeFilename(name string) string {
	var out strings.Builder
	for _, c := range name {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
			c == ' ' || c == '-' || c == '_' {
			out.WriteRune(c)
		}
	}
	return strings.TrimSpace(out.String())
}
