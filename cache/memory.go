// Package cache provides cross-request stores for Bastion access profiles.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/bastion"
	"github.com/xraph/bastion/id"
)

// Compile-time interface check.
var _ bastion.Cache = (*Memory)(nil)

// Memory is an in-process LRU profile cache with TTL-based expiration.
type Memory struct {
	mu       sync.Mutex
	entries  *lru.LRU[id.UserID, memoryEntry]
	global   uint64
	userGens map[id.UserID]uint64
	ttl      time.Duration
	maxSize  int
}

type memoryEntry struct {
	version string
	profile *bastion.Profile
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cached profiles.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		userGens: make(map[id.UserID]uint64),
		ttl:      5 * time.Minute,
		maxSize:  10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.entries = lru.NewLRU[id.UserID, memoryEntry](m.maxSize, nil, m.ttl)
	return m
}

func (m *Memory) versionLocked(userID id.UserID) string {
	return strconv.FormatUint(m.global, 10) + "." + strconv.FormatUint(m.userGens[userID], 10)
}

// Version implements bastion.Cache.
func (m *Memory) Version(_ context.Context, userID id.UserID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.versionLocked(userID), nil
}

// Get implements bastion.Cache.
func (m *Memory) Get(_ context.Context, userID id.UserID, version string) (*bastion.Profile, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries.Get(userID)
	if !ok || e.version != version || version != m.versionLocked(userID) {
		return nil, false, nil
	}
	return e.profile, true, nil
}

// Set implements bastion.Cache. Writes under a superseded version are
// dropped.
func (m *Memory) Set(_ context.Context, userID id.UserID, version string, p *bastion.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if version != m.versionLocked(userID) {
		return nil
	}
	m.entries.Add(userID, memoryEntry{version: version, profile: p})
	return nil
}

// InvalidateUser implements bastion.Cache.
func (m *Memory) InvalidateUser(_ context.Context, userID id.UserID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.userGens[userID]++
	m.entries.Remove(userID)
	return nil
}

// InvalidateAll implements bastion.Cache.
func (m *Memory) InvalidateAll(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.global++
	m.entries.Purge()
	return nil
}

// Len returns the number of cached profiles.
func (m *Memory) Len() int {
	return m.entries.Len()
}
