package leasestore

import (
	"context"
	"sync"
	"time"
)

type lease struct {
	owner    string
	deadline time.Time
}

/*
Memory 是单实例部署时使用的租约存储。
*/
type Memory struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

// 调用方持有锁
func (m *Memory) get(id string) (lease, bool) {
	l, ok := m.leases[id]
	if !ok {
		return l, false
	}
	if !m.now().Before(l.deadline) {
		delete(m.leases, id)
		return l, false
	}
	return l, true
}

func (m *Memory) Busy(ctx context.Context, owner string, ids []string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make(map[string]bool)
	for _, id := range ids {
		if l, ok := m.get(id); ok && l.owner != owner {
			ret[id] = true
		}
	}
	return ret, nil
}

/*
Acquire 为 owner 加租约。已被其他 owner 持有的句子保持原样，自己持有的会续期。
*/
func (m *Memory) Acquire(ctx context.Context, owner string, ids []string, ttl time.Duration) error {
	if owner == "" {
		return ErrEmptyOwner
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	deadline := m.now().Add(ttl)
	for _, id := range ids {
		if l, ok := m.get(id); ok && l.owner != owner {
			continue
		}
		m.leases[id] = lease{owner: owner, deadline: deadline}
	}
	return nil
}

func (m *Memory) Release(ctx context.Context, owner string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		if l, ok := m.get(id); ok && l.owner == owner {
			delete(m.leases, id)
		}
	}
	return nil
}
