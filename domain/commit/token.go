package commit

import (
	"sync"
	"time"
)

// 提交成功的 Token 保留的时间，超过后重试会被当作新的提交
const tokenTTL = 24 * time.Hour

type tokenEntry struct {
	result Result
	at     time.Time
}

/*
tokenCache 记录已经成功提交的 Token 及其结果，只在进程内有效。
*/
type tokenCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]tokenEntry
	now     func() time.Time
}

func newTokenCache(ttl time.Duration) *tokenCache {
	return &tokenCache{
		ttl:     ttl,
		entries: make(map[string]tokenEntry),
		now:     time.Now,
	}
}

func (c *tokenCache) Get(token string) (Result, bool) {
	if token == "" {
		return Result{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[token]
	if !ok || c.now().Sub(e.at) > c.ttl {
		return Result{}, false
	}
	return e.result, true
}

func (c *tokenCache) Put(token string, result Result) {
	if token == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.at) > c.ttl {
			delete(c.entries, k)
		}
	}
	c.entries[token] = tokenEntry{result: result, at: now}
}
