// Package distlock provides the locks that serialize recipient list imports
// across server instances.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistLock is the interface for distributed locking.
// Implementations must be safe for use from a single goroutine;
// concurrent use across goroutines requires separate lock instances.
type DistLock interface {
	// Acquire tries to acquire the lock. Returns true if successful.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if we still own it.
	Release(ctx context.Context) error
}

// Factory builds a lock for a key.
type Factory func(key string) DistLock

// NewFactory returns a Factory using the best available backend: Redis when
// redisClient is non-nil, PostgreSQL advisory locks when db is non-nil, and
// an in-process lock otherwise.
func NewFactory(redisClient *redis.Client, db *sql.DB, ttl time.Duration) Factory {
	local := newLocalLocks()
	return func(key string) DistLock {
		switch {
		case redisClient != nil:
			return NewRedisLock(redisClient, key, ttl)
		case db != nil:
			return NewPGAdvisoryLock(db, key)
		default:
			return local.lock(key)
		}
	}
}

// =============================================================================
// PostgreSQL Advisory Lock (fallback when Redis is unavailable)
// =============================================================================
// Uses pg_try_advisory_lock / pg_advisory_unlock which are session-scoped.
// The lock is released automatically if the DB connection drops.

// PGAdvisoryLock implements DistLock using PostgreSQL advisory locks. The
// lock is held on one pooled connection between Acquire and Release.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
	conn   *sql.Conn
}

// NewPGAdvisoryLock creates a PG advisory lock with a deterministic lock ID
// derived from the given key string.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	return &PGAdvisoryLock{db: db, lockID: advisoryID(key)}
}

func advisoryID(key string) int64 {
	h := fnv.New64a()
	h.Write([]byte(key))
	return int64(h.Sum64())
}

// Acquire tries to acquire the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

// Release unlocks on the connection that took the lock and returns it to
// the pool.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	if l.conn == nil {
		return nil
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}

// =============================================================================
// In-process lock (single instance deployments and tests)
// =============================================================================

type localLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newLocalLocks() *localLocks {
	return &localLocks{held: make(map[string]bool)}
}

func (l *localLocks) lock(key string) *LocalLock {
	return &LocalLock{set: l, key: key}
}

// LocalLock is a DistLock scoped to the current process.
type LocalLock struct {
	set   *localLocks
	key   string
	owned bool
}

// Acquire takes the key if no other LocalLock from the same factory holds it.
func (l *LocalLock) Acquire(_ context.Context) (bool, error) {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()
	if l.set.held[l.key] {
		return false, nil
	}
	l.set.held[l.key] = true
	l.owned = true
	return true, nil
}

// Release frees the key if this lock holds it.
func (l *LocalLock) Release(_ context.Context) error {
	l.set.mu.Lock()
	defer l.set.mu.Unlock()
	if l.owned {
		delete(l.set.held, l.key)
		l.owned = false
	}
	return nil
}
