package recipients

import "strings"

// DecodeRow splits one line on delim and cleans every field. Quoted fields
// are not treated specially, so "a,b" inside quotes becomes two fields.
func DecodeRow(line string, delim rune) []string {
	parts := strings.Split(line, string(delim))
	for i, p := range parts {
		parts[i] = cleanField(p)
	}
	return parts
}

// cleanField trims whitespace and removes at most one leading and one
// trailing quote character (single or double).
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	if s != "" && isQuote(s[0]) {
		s = s[1:]
	}
	if s != "" && isQuote(s[len(s)-1]) {
		s = s[:len(s)-1]
	}
	return strings.TrimSpace(s)
}

func isQuote(b byte) bool { return b == '"' || b == '\'' }
