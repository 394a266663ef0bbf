package session

import (
	"context"
	"github.com/google/uuid"
	"rank-annotation-backend/domain/commit"
	"rank-annotation-backend/logging"
	"sync"
	"time"
)

/*
Registry 保存进程内的所有会话，超过 ttl 未访问的会话会被清理并释放租约。
*/
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	loader    BatchLoader
	committer commit.Committer
	ttl       time.Duration
	now       func() time.Time

	stopOnce sync.Once
	stopChan chan struct{}
}

func NewRegistry(loader BatchLoader, committer commit.Committer, ttl time.Duration) *Registry {
	return &Registry{
		sessions:  make(map[string]*Session),
		loader:    loader,
		committer: committer,
		ttl:       ttl,
		now:       time.Now,
		stopChan:  make(chan struct{}),
	}
}

func (r *Registry) Create() *Session {
	s := New(uuid.NewString(), r.loader, r.committer, logging.NewLogger())

	r.mu.Lock()
	defer r.mu.Unlock()

	s.touchedAt = r.now()
	r.sessions[s.id] = s
	return s
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if ok {
		s.mu.Lock()
		s.touchedAt = r.now()
		s.mu.Unlock()
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

/*
Sweep 清理空闲超时的会话，返回清理的数量。正在提交的会话不会被清理。
*/
func (r *Registry) Sweep(ctx context.Context) int {
	r.mu.Lock()
	deadline := r.now().Add(-r.ttl)
	var expired []*Session
	for id, s := range r.sessions {
		s.mu.Lock()
		idle := s.touchedAt.Before(deadline) && s.state != StateSubmitting
		s.mu.Unlock()

		if idle {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		s.Close(ctx)
	}
	return len(expired)
}

/*
StartSweeper 启动后台清理，直到 Stop 被调用。
*/
func (r *Registry) StartSweeper(interval time.Duration) {
	go func() {
		logger := logging.NewLogger()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(context.Background()); n != 0 {
					logger.Infof("swept %d idle sessions", n)
				}
			case <-r.stopChan:
				logger.Infof("exiting session sweeper due to Stop signal")
				return
			}
		}
	}()
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		close(r.stopChan)
	})
}
