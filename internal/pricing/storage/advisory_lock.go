package storage

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"sync"
)

// Locker — именованная нестрогая блокировка: TryAcquire не ждёт, а сразу
// отвечает, занята ли. release обязателен на всех путях выхода.
type Locker interface {
	TryAcquire(ctx context.Context, name string) (release func(), acquired bool, err error)
}

// PgAdvisoryLocker держит pg_advisory_lock на выделенном соединении пула:
// advisory-блокировки сессионные, поэтому соединение нельзя возвращать в пул
// до снятия.
type PgAdvisoryLocker struct {
	db *sql.DB
}

func NewPgAdvisoryLocker(db *sql.DB) *PgAdvisoryLocker {
	return &PgAdvisoryLocker{db: db}
}

func lockKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return int64(h.Sum64())
}

func (l *PgAdvisoryLocker) TryAcquire(ctx context.Context, name string) (func(), bool, error) {
	key := lockKey(name)

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("advisory lock %q: %w", name, err)
	}

	var acquired bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("advisory lock %q: %w", name, err)
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	release := func() {
		// снимаем вне контекста вызова: release должен сработать и при отмене
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
		conn.Close()
	}
	return release, true, nil
}

// LocalLocker — внутрипроцессная реализация для тестов и одиночного запуска.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) TryAcquire(_ context.Context, name string) (func(), bool, error) {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	if !m.TryLock() {
		return nil, false, nil
	}
	return m.Unlock, true, nil
}
