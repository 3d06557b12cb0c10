package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ignite/leadops/internal/domain"
	"github.com/ignite/leadops/internal/service/recipientlist"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*RecipientListRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRecipientListRepo(db), mock
}

func sampleList() *domain.RecipientList {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &domain.RecipientList{
		ID:             "6f1c2e1a-0a4b-4c55-9d0e-3b7f6f0f2d11",
		OrganizationID: "org-1",
		Name:           "Expo leads",
		Source:         domain.SourceUpload,
		Filename:       "expo.csv",
		Delimiter:      ",",
		RecipientCount: 2,
		SkippedCount:   1,
		Recipients: []domain.Recipient{
			{Email: "ann@x.com", Name: "Ann"},
			{Email: "bob@y.org", Name: "bob"},
		},
		Skipped:   []domain.RowIssue{{Row: 3, Value: "broken", Reason: `Invalid email "broken"`}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRecipientListRepo_Create(t *testing.T) {
	repo, mock := newMockRepo(t)
	l := sampleList()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recipient_lists").
		WithArgs(l.ID, l.OrganizationID, l.Name, "upload", "expo.csv", ",", 2, 1,
			sqlmock.AnyArg(), "", l.CreatedAt, l.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	prep := mock.ExpectPrepare("COPY")
	prep.ExpectExec().WithArgs(l.ID, 0, "ann@x.com", "Ann").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WithArgs(l.ID, 1, "bob@y.org", "bob").WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), l))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientListRepo_Create_RollsBackOnInsertError(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO recipient_lists").WillReturnError(errors.New("duplicate key"))
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleList())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert recipient list")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientListRepo_Get(t *testing.T) {
	repo, mock := newMockRepo(t)
	want := sampleList()

	mock.ExpectQuery("SELECT (.+) FROM recipient_lists").
		WithArgs(want.ID, "org-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "name", "source", "filename", "delimiter",
			"recipient_count", "skipped_count", "skipped", "archive_key", "created_at", "updated_at",
		}).AddRow(want.ID, "org-1", "Expo leads", "upload", "expo.csv", ",", 2, 1,
			[]byte(`[{"row":3,"value":"broken","reason":"Invalid email \"broken\""}]`),
			"uploads/org-1/a.csv", want.CreatedAt, want.UpdatedAt))
	mock.ExpectQuery("FROM recipient_list_members").
		WithArgs(want.ID).
		WillReturnRows(sqlmock.NewRows([]string{"email", "name"}).
			AddRow("ann@x.com", "Ann").
			AddRow("bob@y.org", "bob"))

	got, err := repo.Get(context.Background(), "org-1", want.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SourceUpload, got.Source)
	assert.Equal(t, want.Recipients, got.Recipients)
	assert.Equal(t, want.Skipped, got.Skipped)
	assert.Equal(t, "uploads/org-1/a.csv", got.ArchiveKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientListRepo_Get_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM recipient_lists").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), "org-1", "missing")
	assert.ErrorIs(t, err, recipientlist.ErrNotFound)
}

func TestRecipientListRepo_List(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("org-1", "expo").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM recipient_lists").
		WithArgs("org-1", "expo", 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "name", "source", "filename", "delimiter",
			"recipient_count", "skipped_count", "archive_key", "created_at", "updated_at",
		}).AddRow("l1", "org-1", "Expo leads", "paste", "", ";", 12, 0, "", now, now))

	lists, total, err := repo.List(context.Background(), "org-1", recipientlist.ListFilter{Search: "expo", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, lists, 1)
	assert.Equal(t, domain.SourcePaste, lists[0].Source)
	assert.Equal(t, 12, lists[0].RecipientCount)
	assert.Nil(t, lists[0].Recipients)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientListRepo_Delete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM recipient_lists").
		WithArgs("l1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM recipient_lists").
		WithArgs("l2", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "org-1", "l1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "org-1", "l2"), recipientlist.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipient_lists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipient_list_members").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_StopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS recipient_lists").WillReturnError(errors.New("permission denied"))

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 1")
}
