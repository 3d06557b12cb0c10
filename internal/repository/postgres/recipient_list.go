package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ignite/leadops/internal/domain"
	"github.com/ignite/leadops/internal/service/recipientlist"
	"github.com/lib/pq"
)

// RecipientListRepo implements recipientlist.Repository against PostgreSQL.
type RecipientListRepo struct{ db *sql.DB }

// NewRecipientListRepo creates a Postgres-backed recipient list repository.
func NewRecipientListRepo(db *sql.DB) *RecipientListRepo { return &RecipientListRepo{db: db} }

// Create writes the list row and bulk-loads its members with COPY in a
// single transaction.
func (r *RecipientListRepo) Create(ctx context.Context, l *domain.RecipientList) error {
	skipped, err := json.Marshal(l.Skipped)
	if err != nil {
		return fmt.Errorf("encode skipped rows: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO recipient_lists (
			id, organization_id, name, source, filename, delimiter,
			recipient_count, skipped_count, skipped, archive_key, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, l.ID, l.OrganizationID, l.Name, string(l.Source), l.Filename, l.Delimiter,
		l.RecipientCount, l.SkippedCount, string(skipped), l.ArchiveKey, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert recipient list: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("recipient_list_members", "list_id", "position", "email", "name"))
	if err != nil {
		return fmt.Errorf("prepare copy: %w", err)
	}
	for i, m := range l.Recipients {
		if _, err := stmt.ExecContext(ctx, l.ID, i, m.Email, m.Name); err != nil {
			stmt.Close()
			return fmt.Errorf("copy member %d: %w", i, err)
		}
	}
	if _, err := stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close copy: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recipient list: %w", err)
	}
	return nil
}

func (r *RecipientListRepo) Get(ctx context.Context, orgID, id string) (*domain.RecipientList, error) {
	l := &domain.RecipientList{}
	var (
		source  string
		skipped []byte
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, organization_id, name, source, COALESCE(filename,''), delimiter,
		       recipient_count, skipped_count, COALESCE(skipped,'[]'), COALESCE(archive_key,''),
		       created_at, updated_at
		FROM recipient_lists
		WHERE id = $1 AND organization_id = $2
	`, id, orgID).Scan(
		&l.ID, &l.OrganizationID, &l.Name, &source, &l.Filename, &l.Delimiter,
		&l.RecipientCount, &l.SkippedCount, &skipped, &l.ArchiveKey,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, recipientlist.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient list: %w", err)
	}
	l.Source = domain.ListSource(source)
	if err := json.Unmarshal(skipped, &l.Skipped); err != nil {
		return nil, fmt.Errorf("decode skipped rows: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT email, name
		FROM recipient_list_members
		WHERE list_id = $1
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	l.Recipients = make([]domain.Recipient, 0, l.RecipientCount)
	for rows.Next() {
		var m domain.Recipient
		if err := rows.Scan(&m.Email, &m.Name); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		l.Recipients = append(l.Recipients, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return l, nil
}

func (r *RecipientListRepo) List(ctx context.Context, orgID string, f recipientlist.ListFilter) ([]domain.RecipientList, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipient_lists
		WHERE organization_id = $1 AND ($2::text = '' OR name ILIKE '%' || $2 || '%')
	`, orgID, f.Search).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count recipient lists: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_id, name, source, COALESCE(filename,''), delimiter,
		       recipient_count, skipped_count, COALESCE(archive_key,''), created_at, updated_at
		FROM recipient_lists
		WHERE organization_id = $1 AND ($2::text = '' OR name ILIKE '%' || $2 || '%')
		ORDER BY created_at DESC
		LIMIT $3 OFFSET $4
	`, orgID, f.Search, limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list recipient lists: %w", err)
	}
	defer rows.Close()

	var out []domain.RecipientList
	for rows.Next() {
		var (
			l      domain.RecipientList
			source string
		)
		if err := rows.Scan(
			&l.ID, &l.OrganizationID, &l.Name, &source, &l.Filename, &l.Delimiter,
			&l.RecipientCount, &l.SkippedCount, &l.ArchiveKey, &l.CreatedAt, &l.UpdatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan recipient list: %w", err)
		}
		l.Source = domain.ListSource(source)
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// Delete removes the list; members go with it through ON DELETE CASCADE.
func (r *RecipientListRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recipient_lists WHERE id = $1 AND organization_id = $2`,
		id, orgID,
	)
	if err != nil {
		return fmt.Errorf("delete recipient list: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return recipientlist.ErrNotFound
	}
	return nil
}
