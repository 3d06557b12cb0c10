package recipients

import "strings"

// Result is a successful parse. Recipients keeps document order; Skipped
// lists rows that had a malformed email.
type Result struct {
	Recipients []Recipient `json:"recipients"`
	Skipped    []RowError  `json:"skipped"`
	Columns    Columns     `json:"columns"`
	Delimiter  string      `json:"delimiter"`
}

// Parse extracts recipients from newline-separated tabular text. Both "\n"
// and "\r\n" line endings are accepted. Blank lines are dropped before rows
// are numbered.
//
// On structural failure the returned error is a *ParseError wrapping
// ErrNoDataRows, ErrNoEmailColumn or ErrNoValidRecipients.
func Parse(text string) (*Result, error) {
	lines := splitLines(text)
	if len(lines) < 2 {
		return nil, structuralError(ErrNoDataRows)
	}

	delim := SniffDelimiter(lines[0])
	cols, err := ResolveColumns(HeaderTokens(lines[0], delim))
	if err != nil {
		return nil, structuralError(err)
	}

	res := &Result{
		Recipients: make([]Recipient, 0, len(lines)-1),
		Skipped:    []RowError{},
		Columns:    cols,
		Delimiter:  string(delim),
	}
	for i, line := range lines[1:] {
		rec, rowErr, ok := ValidateRow(DecodeRow(line, delim), cols, i+2)
		switch {
		case ok:
			res.Recipients = append(res.Recipients, rec)
		case rowErr != nil:
			res.Skipped = append(res.Skipped, *rowErr)
		}
	}

	if len(res.Recipients) == 0 {
		return nil, noValidRecipients(res.Skipped)
	}
	return res, nil
}

// splitLines returns the non-blank lines of text with any trailing "\r"
// removed.
func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}
