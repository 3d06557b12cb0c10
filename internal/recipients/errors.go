package recipients

import (
	"errors"
	"strings"
)

// Sentinel errors for structural parse failures.
var (
	ErrNoDataRows        = errors.New("File is empty or has no data rows")
	ErrNoEmailColumn     = errors.New("No email column found. Please ensure your file has a column named email, Email, or E-mail")
	ErrNoValidRecipients = errors.New("No valid email addresses found.")
)

// ParseError is returned by Parse when the document cannot yield any
// recipients. Reason is the user-facing message.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string { return e.Reason }

func (e *ParseError) Unwrap() error { return e.Err }

func structuralError(sentinel error) *ParseError {
	return &ParseError{Reason: sentinel.Error(), Err: sentinel}
}

func noValidRecipients(skipped []RowError) *ParseError {
	reasons := make([]string, 0, len(skipped))
	for _, s := range skipped {
		reasons = append(reasons, s.Reason)
	}
	return &ParseError{
		Reason: ErrNoValidRecipients.Error() + " Errors: " + strings.Join(reasons, ", "),
		Err:    ErrNoValidRecipients,
	}
}
