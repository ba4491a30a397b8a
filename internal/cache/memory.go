package cache

import (
	"sync"
	"time"
)

// entry は値と有効期限のペア。
type entry struct {
	value     string
	expiresAt time.Time
}

// Memory はインメモリのTTL付きキーバリューストア。
// 期限切れエントリはバックグラウンドのジャニターが定期的に回収する。
type Memory struct {
	mu      sync.RWMutex
	entries map[string]entry

	stopCh   chan struct{}
	stopOnce sync.Once

	// テストで差し替えるための現在時刻取得関数
	now func() time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory は新しいインメモリストアを生成し、ジャニターを起動する。
// janitorIntervalが0以下の場合はジャニターを起動しない。
func NewMemory(janitorInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]entry),
		stopCh:  make(chan struct{}),
		now:     time.Now,
	}
	if janitorInterval > 0 {
		go m.janitorLoop(janitorInterval)
	}
	return m
}

// Set はキーに値をTTL付きで格納する。
func (m *Memory) Set(key, value string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = entry{
		value:     value,
		expiresAt: m.now().Add(ttl),
	}
}

// Get はキーの値を返す。期限切れのエントリは存在しないものとして扱う。
func (m *Memory) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || m.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Take は値の取得と削除を単一のロック区間で行う。
// 同じキーに対する並行Takeのうち、成功するのは1回だけになる。
func (m *Memory) Take(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return "", false
	}
	delete(m.entries, key)
	if m.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

// Delete はキーを削除する。
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Stop はジャニターを停止する。複数回呼んでも安全。
func (m *Memory) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
}

// janitorLoop は期限切れエントリを定期的に回収する。
func (m *Memory) janitorLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
