package recipients

import "strings"

// SniffDelimiter picks the field separator from the header line. Tab wins
// over semicolon, and comma is the fallback.
func SniffDelimiter(header string) rune {
	switch {
	case strings.ContainsRune(header, '\t'):
		return '\t'
	case strings.ContainsRune(header, ';'):
		return ';'
	default:
		return ','
	}
}
