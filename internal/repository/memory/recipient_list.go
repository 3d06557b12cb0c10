// Package memory holds process-local repositories used when no database is
// configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/ignite/leadops/internal/domain"
	"github.com/ignite/leadops/internal/service/recipientlist"
)

// RecipientListRepo implements recipientlist.Repository in memory.
type RecipientListRepo struct {
	mu    sync.RWMutex
	lists map[string]*domain.RecipientList // keyed by "orgID:id"
}

// NewRecipientListRepo creates an empty in-memory repository.
func NewRecipientListRepo() *RecipientListRepo {
	return &RecipientListRepo{lists: make(map[string]*domain.RecipientList)}
}

func key(orgID, id string) string { return orgID + ":" + id }

func clone(l *domain.RecipientList) *domain.RecipientList {
	cp := *l
	cp.Recipients = append([]domain.Recipient(nil), l.Recipients...)
	cp.Skipped = append([]domain.RowIssue(nil), l.Skipped...)
	return &cp
}

func (r *RecipientListRepo) Create(_ context.Context, l *domain.RecipientList) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists[key(l.OrganizationID, l.ID)] = clone(l)
	return nil
}

func (r *RecipientListRepo) Get(_ context.Context, orgID, id string) (*domain.RecipientList, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.lists[key(orgID, id)]
	if !ok {
		return nil, recipientlist.ErrNotFound
	}
	return clone(l), nil
}

// List returns summaries newest first.
func (r *RecipientListRepo) List(_ context.Context, orgID string, f recipientlist.ListFilter) ([]domain.RecipientList, int, error) {
	r.mu.RLock()
	search := strings.ToLower(f.Search)
	var matched []domain.RecipientList
	for _, l := range r.lists {
		if l.OrganizationID != orgID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(l.Name), search) {
			continue
		}
		matched = append(matched, l.Summary())
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if f.Offset >= total {
		return nil, total, nil
	}
	end := total
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *RecipientListRepo) Delete(_ context.Context, orgID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(orgID, id)
	if _, ok := r.lists[k]; !ok {
		return recipientlist.ErrNotFound
	}
	delete(r.lists, k)
	return nil
}
