package recipients

import "strings"

// Header substrings, tried in order against each column token.
var (
	emailHeaderHints = []string{"email", "e-mail", "mail"}
	nameHeaderHints  = []string{"name", "full name", "fullname", "recipient"}
)

const emailAddressHeader = "email address"

// Columns holds the resolved positions of the email and name columns.
// Name is -1 when the document has no name column.
type Columns struct {
	Email int `json:"email"`
	Name  int `json:"name"`
}

// HasName reports whether a name column was found.
func (c Columns) HasName() bool { return c.Name >= 0 }

// HeaderTokens decodes the header line and lower-cases every token.
func HeaderTokens(line string, delim rune) []string {
	tokens := DecodeRow(line, delim)
	for i, t := range tokens {
		tokens[i] = strings.ToLower(t)
	}
	return tokens
}

// ResolveColumns maps normalized header tokens to the email and name roles.
// The leftmost matching column wins for each role.
func ResolveColumns(tokens []string) (Columns, error) {
	cols := Columns{Email: -1, Name: -1}
	for i, tok := range tokens {
		if cols.Email < 0 && isEmailHeader(tok) {
			cols.Email = i
		}
		if cols.Name < 0 && containsAny(tok, nameHeaderHints) {
			cols.Name = i
		}
	}
	if cols.Email < 0 {
		return cols, ErrNoEmailColumn
	}
	return cols, nil
}

func isEmailHeader(tok string) bool {
	return containsAny(tok, emailHeaderHints) || tok == emailAddressHeader
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
