package cache

import (
	"sync"
	"time"

	"recipe-recommender/internal/infrastructure/config"
	"recipe-recommender/internal/pkg/common"

	"go.uber.org/zap"
)

// Manager 向量記憶體快取（TTL + 最少使用淘汰）
type Manager struct {
	maxSize int
	ttl     time.Duration
	mu      sync.Mutex
	store   map[string]cacheEntry
	stats   cacheStats
	stop    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// cacheEntry 快取條目
type cacheEntry struct {
	value       []float32
	expiresAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 快取統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// NewManager 建立記憶體快取；停用時回傳 nil
func NewManager(cfg config.CacheConfig) *Manager {
	if !cfg.Enabled {
		common.LogInfo("Cache disabled")
		return nil
	}

	m := &Manager{
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		store:   make(map[string]cacheEntry),
		stop:    make(chan struct{}),
		now:     time.Now,
	}

	// 啟動清理過期快取的協程
	go m.startCleanup(cfg.CleanupInterval)

	common.LogInfo("快取管理員已初始化",
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)

	return m
}

// Get 取得快取向量；回傳的切片為複本
func (m *Manager) Get(key string) ([]float32, bool) {
	if m == nil {
		return nil, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.store[key]
	if !exists {
		m.stats.misses++
		return nil, false
	}

	now := m.now()
	if now.After(entry.expiresAt) {
		delete(m.store, key)
		m.stats.evictions++
		m.stats.misses++
		return nil, false
	}

	entry.lastAccess = now
	entry.accessCount++
	m.store[key] = entry
	m.stats.hits++

	return cloneVector(entry.value), true
}

// Set 寫入快取向量
func (m *Manager) Set(key string, value []float32) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.store[key]; !exists && len(m.store) >= m.maxSize {
		// 先清理過期項目，仍滿則 LRU 淘汰
		if evicted := m.cleanup(); evicted == 0 {
			m.evictLRU()
		}
	}

	now := m.now()
	m.store[key] = cacheEntry{
		value:      cloneVector(value),
		expiresAt:  now.Add(m.ttl),
		lastAccess: now,
	}
}

// Len 目前條目數
func (m *Manager) Len() int {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.store)
}

// startCleanup 定期清理過期快取
func (m *Manager) startCleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			m.cleanup()
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

// cleanup 清理過期的快取，呼叫端需持有鎖
func (m *Manager) cleanup() int {
	now := m.now()
	count := 0

	for key, entry := range m.store {
		if now.After(entry.expiresAt) {
			delete(m.store, key)
			count++
			m.stats.evictions++
		}
	}

	if count > 0 {
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int64("total_evictions", m.stats.evictions),
			zap.Int("remaining_size", len(m.store)),
		)
	}

	return count
}

// evictLRU 淘汰最少使用的項目，呼叫端需持有鎖
func (m *Manager) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	var lowestAccessCount int

	for key, entry := range m.store {
		if oldestKey == "" ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if oldestKey != "" {
		delete(m.store, oldestKey)
		m.stats.evictions++
	}
}

// GetStats 取得快取統計
func (m *Manager) GetStats() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{"enabled": false}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	ratio := 0.0
	if total := m.stats.hits + m.stats.misses; total > 0 {
		ratio = float64(m.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"enabled":   true,
		"size":      len(m.store),
		"max_size":  m.maxSize,
		"hits":      m.stats.hits,
		"misses":    m.stats.misses,
		"evictions": m.stats.evictions,
		"hit_ratio": ratio,
	}
}

// Close 關閉快取並停止清理協程
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.once.Do(func() { close(m.stop) })

	m.mu.Lock()
	defer m.mu.Unlock()

	m.store = make(map[string]cacheEntry)
	common.LogInfo("快取管理員已關閉",
		zap.Int64("命中次數", m.stats.hits),
		zap.Int64("未命中次數", m.stats.misses),
		zap.Int64("淘汰次數", m.stats.evictions),
	)
	return nil
}

func cloneVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
