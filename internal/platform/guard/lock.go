package guard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Lease is a held lock. Refresh pushes the expiry ttl into the future and
// reports false once the lease has expired or passed to another holder.
type Lease interface {
	Refresh(ctx context.Context, ttl time.Duration) (held bool, err error)
	Release(ctx context.Context) error
}

// MemoryLocker is a process-local Locker. Leases expire after their ttl so a
// worker that dies without releasing does not block the key forever.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]lease
	now  func() time.Time
}

type lease struct {
	token   uuid.UUID
	expires time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: map[string]lease{}, now: time.Now}
}

func (l *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, false, nil
	}
	token := uuid.New()
	l.held[key] = lease{token: token, expires: now.Add(ttl)}
	return &memoryLease{locker: l, key: key, token: token}, true, nil
}

type memoryLease struct {
	locker *MemoryLocker
	key    string
	token  uuid.UUID
}

func (m *memoryLease) Refresh(_ context.Context, ttl time.Duration) (bool, error) {
	l := m.locker
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	cur, ok := l.held[m.key]
	if !ok || cur.token != m.token || !now.Before(cur.expires) {
		return false, nil
	}
	l.held[m.key] = lease{token: m.token, expires: now.Add(ttl)}
	return true, nil
}

func (m *memoryLease) Release(context.Context) error {
	l := m.locker
	l.mu.Lock()
	defer l.mu.Unlock()
	if cur, ok := l.held[m.key]; ok && cur.token == m.token {
		delete(l.held, m.key)
	}
	return nil
}
