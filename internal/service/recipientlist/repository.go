package recipientlist

import (
	"context"
	"time"

	"github.com/ignite/leadops/internal/domain"
)

// Repository defines the durable storage contract for recipient lists.
type Repository interface {
	// Create stores the list metadata and its recipients.
	Create(ctx context.Context, l *domain.RecipientList) error

	// Get returns a list with its recipients. Returns ErrNotFound if missing.
	Get(ctx context.Context, orgID, id string) (*domain.RecipientList, error)

	// List returns list summaries (no recipients) matching the filter and the
	// total number of matches.
	List(ctx context.Context, orgID string, filter ListFilter) ([]domain.RecipientList, int, error)

	// Delete removes a list and its recipients. Returns ErrNotFound if missing.
	Delete(ctx context.Context, orgID, id string) error
}

// Cache is the key-value persistence port used to keep parsed recipients
// close to the composer between sessions.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Archive stores the raw text of uploaded files.
type Archive interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// ListFilter controls pagination and filtering for list summaries.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}
