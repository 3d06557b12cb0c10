// Package recipients turns pasted or uploaded tabular text into a list of
// email recipients.
//
// The parser is deliberately naive: the separator is sniffed from the header
// line (tab, then semicolon, then comma) and every line is split on it with no
// awareness of quoting. A quoted field that contains the separator is split
// like any other. Callers that need RFC 4180 handling must pre-process the
// text themselves.
//
// Parse never performs I/O and keeps no state between calls. Structural
// problems (no data rows, no email column, nothing usable) are returned as a
// *ParseError whose message is safe to show to an end user. Rows with a
// malformed email are reported in Result.Skipped and do not fail the parse.
package recipients
