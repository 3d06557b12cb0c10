package domain

import (
	"errors"
	"strings"
	"time"
)

// ListSource records how a recipient list entered the system.
type ListSource string

const (
	SourceUpload ListSource = "upload"
	SourcePaste  ListSource = "paste"
	SourceAPI    ListSource = "api"
)

// Valid reports whether s is a known source.
func (s ListSource) Valid() bool {
	switch s {
	case SourceUpload, SourcePaste, SourceAPI:
		return true
	}
	return false
}

// Recipient is a single address on a recipient list.
type Recipient struct {
	Email string `json:"email" db:"email"`
	Name  string `json:"name" db:"name"`
}

// RowIssue is a row that was dropped during import because its email value
// was malformed. Row counts the header line as row 1.
type RowIssue struct {
	Row    int    `json:"row"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

// RecipientList is an imported set of recipients owned by an organization.
type RecipientList struct {
	ID             string      `json:"id" db:"id"`
	OrganizationID string      `json:"organization_id" db:"organization_id"`
	Name           string      `json:"name" db:"name"`
	Source         ListSource  `json:"source" db:"source"`
	Filename       string      `json:"filename,omitempty" db:"filename"`
	Delimiter      string      `json:"delimiter" db:"delimiter"`
	RecipientCount int         `json:"recipient_count" db:"recipient_count"`
	SkippedCount   int         `json:"skipped_count" db:"skipped_count"`
	ArchiveKey     string      `json:"archive_key,omitempty" db:"archive_key"`
	Recipients     []Recipient `json:"recipients,omitempty"`
	Skipped        []RowIssue  `json:"skipped,omitempty"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// Validate checks the invariants a list must satisfy before it is stored.
func (l *RecipientList) Validate() error {
	if strings.TrimSpace(l.OrganizationID) == "" {
		return errors.New("organization_id is required")
	}
	if strings.TrimSpace(l.Name) == "" {
		return errors.New("name is required")
	}
	if !l.Source.Valid() {
		return errors.New("unknown list source: " + string(l.Source))
	}
	if len(l.Recipients) == 0 {
		return errors.New("list has no recipients")
	}
	if l.RecipientCount != len(l.Recipients) {
		return errors.New("recipient_count does not match recipients")
	}
	return nil
}

// Summary returns a copy of the list without its member and skipped rows.
func (l RecipientList) Summary() RecipientList {
	l.Recipients = nil
	l.Skipped = nil
	return l
}
