package recipientlist

import "errors"

// Sentinel errors for the recipient list service layer.
var (
	ErrNotFound       = errors.New("recipient list not found")
	ErrLocked         = errors.New("an import for this list is already running")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNoArchive      = errors.New("raw upload archiving is not configured")
)
