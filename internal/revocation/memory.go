package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry はプロセス内のmapで失効トークンを保持するRegistry。
// 再起動で内容は失われる。
type MemoryRegistry struct {
	mu     sync.RWMutex
	tokens map[string]time.Time
	now    func() time.Time
}

// NewMemoryRegistry はMemoryRegistryを生成する。
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tokens: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Revoke はトークンを失効集合に追加する。
// 追加のたびに期限切れのエントリを掃除する。
func (m *MemoryRegistry) Revoke(_ context.Context, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, exp := range m.tokens {
		if now.After(exp) {
			delete(m.tokens, key)
		}
	}

	if current, ok := m.tokens[token]; ok && !expiresAt.After(current) {
		return nil
	}
	m.tokens[token] = expiresAt
	return nil
}

// IsRevoked はトークンが失効集合に含まれるかを返す。
// 期限切れのエントリは含まれないものとして扱う。
func (m *MemoryRegistry) IsRevoked(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exp, ok := m.tokens[token]
	if !ok {
		return false, nil
	}
	return !m.now().After(exp), nil
}

// Len は保持しているエントリ数を返す。
func (m *MemoryRegistry) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// compile-time interface check
var _ Registry = (*MemoryRegistry)(nil)
