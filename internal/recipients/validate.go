package recipients

import (
	"fmt"
	"strings"
)

// DefaultName is used when neither a name column nor the email local part
// yields anything usable.
const DefaultName = "Recipient"

// Recipient is one accepted row.
type Recipient struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// RowError describes a data row whose email value was present but malformed.
// Row is 1-based and counts the header as row 1.
type RowError struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// ValidEmail is the acceptance test for an email value: it must contain an
// "@" and a ".". Nothing stricter is checked.
func ValidEmail(s string) bool {
	return strings.Contains(s, "@") && strings.Contains(s, ".")
}

// ValidateRow turns decoded fields into a Recipient. It returns ok=false with
// a nil RowError for rows that have no email value at all; those rows are
// skipped silently.
func ValidateRow(fields []string, cols Columns, row int) (Recipient, *RowError, bool) {
	raw := strings.TrimSpace(fieldAt(fields, cols.Email))
	if raw == "" {
		return Recipient{}, nil, false
	}
	if !ValidEmail(raw) {
		return Recipient{}, &RowError{
			Row:    row,
			Value:  raw,
			Reason: fmt.Sprintf(`Invalid email "%s"`, raw),
		}, false
	}

	email := strings.ToLower(raw)
	name := ""
	if cols.HasName() {
		name = strings.TrimSpace(fieldAt(fields, cols.Name))
	}
	if name == "" {
		name = NameFromEmail(email)
	}
	return Recipient{Email: email, Name: name}, nil, true
}

var localPartReplacer = strings.NewReplacer(".", " ", "_", " ", "-", " ")

// NameFromEmail derives a display name from the local part of an address:
// "john.doe@x.com" becomes "john doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	name := localPartReplacer.Replace(local)
	if strings.TrimSpace(name) == "" {
		return DefaultName
	}
	return name
}

func fieldAt(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return fields[i]
}
