package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	newLock := NewFactory(client, nil, time.Minute)
	first := newLock("import:org-1:leads")
	second := newLock("import:org-1:leads")

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second holder must not acquire")

	// A non-owner release leaves the lock in place.
	require.NoError(t, second.Release(ctx))
	assert.True(t, mr.Exists("lock:import:org-1:leads"))

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLock_ExpiresWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	lock := NewRedisLock(client, "k", 5*time.Second)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(6 * time.Second)
	ok, err = NewRedisLock(client, "k", 5*time.Second).Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPGAdvisoryLock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lock := NewFactory(nil, db, time.Minute)("import:org-1:leads")
	id := advisoryID("import:org-1:leads")

	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec(`SELECT pg_advisory_unlock\(\$1\)`).
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGAdvisoryLock_HeldElsewhere(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	lock := NewPGAdvisoryLock(db, "import:org-1:leads")
	mock.ExpectQuery(`SELECT pg_try_advisory_lock\(\$1\)`).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	ok, err := lock.Acquire(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	// Nothing held, so Release must not touch the database.
	require.NoError(t, lock.Release(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLocalLock(t *testing.T) {
	newLock := NewFactory(nil, nil, time.Minute)
	ctx := context.Background()

	a, b := newLock("k"), newLock("k")
	ok, _ := a.Acquire(ctx)
	assert.True(t, ok)
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok)

	require.NoError(t, b.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.False(t, ok, "release by a non-owner must not free the key")

	require.NoError(t, a.Release(ctx))
	ok, _ = b.Acquire(ctx)
	assert.True(t, ok)

	ok, _ = newLock("other").Acquire(ctx)
	assert.True(t, ok)
}
