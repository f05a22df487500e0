// Package guard provides the IP block registry.
package guard

import (
	"sort"
	"sync"
	"time"
)

// BlockEntry records a deny-list membership.
type BlockEntry struct {
	Key       string
	Reason    string
	BlockedAt time.Time
	ExpiresAt time.Time
}

// BlockRegistry is the authoritative deny-list. Presence of a live entry is
// the single source of truth for "is this identity currently blocked"; every
// other check runs only after this one passes.
type BlockRegistry struct {
	mu         sync.Mutex
	now        func() time.Time
	defaultTTL time.Duration
	entries    map[string]*BlockEntry
	onUnblock  func(key string)
}

// NewBlockRegistry constructs a registry with the given default block
// duration. onUnblock, if set, runs after an entry is removed so related
// per-key state can be cleared.
func NewBlockRegistry(now func() time.Time, defaultTTL time.Duration, onUnblock func(key string)) *BlockRegistry {
	if now == nil {
		now = time.Now
	}
	if defaultTTL <= 0 {
		defaultTTL = 15 * time.Minute
	}
	return &BlockRegistry{
		now:        now,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*BlockEntry),
		onUnblock:  onUnblock,
	}
}

// IsBlocked reports whether the key has a live entry. Expired entries count
// as unblocked; the sweeper removes them.
func (r *BlockRegistry) IsBlocked(key string) bool {
	if r == nil || key == "" {
		return false
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[key]
	if !ok {
		return false
	}
	return now.Before(entry.ExpiresAt)
}

// Block adds the key with the default duration. Blocking an already-blocked
// key extends the expiry but keeps the original entry.
func (r *BlockRegistry) Block(key, reason string) {
	if r == nil {
		return
	}
	r.BlockFor(key, reason, r.defaultTTL)
}

// BlockFor adds the key with an explicit duration.
func (r *BlockRegistry) BlockFor(key, reason string, d time.Duration) {
	if r == nil || key == "" {
		return
	}
	if d <= 0 {
		d = r.defaultTTL
	}
	now := r.now()
	expires := now.Add(d)

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry, ok := r.entries[key]; ok && now.Before(entry.ExpiresAt) {
		if expires.After(entry.ExpiresAt) {
			entry.ExpiresAt = expires
		}
		return
	}
	r.entries[key] = &BlockEntry{
		Key:       key,
		Reason:    reason,
		BlockedAt: now,
		ExpiresAt: expires,
	}
}

// Unblock removes the key. Unblocking an absent key is a no-op. The
// onUnblock hook runs outside the registry lock.
func (r *BlockRegistry) Unblock(key string) {
	if r == nil || key == "" {
		return
	}
	r.mu.Lock()
	_, ok := r.entries[key]
	if ok {
		delete(r.entries, key)
	}
	hook := r.onUnblock
	r.mu.Unlock()

	if ok && hook != nil {
		hook(key)
	}
}

// Entries returns the live entries sorted by key.
func (r *BlockRegistry) Entries() []BlockEntry {
	if r == nil {
		return nil
	}
	now := r.now()
	r.mu.Lock()
	entries := make([]BlockEntry, 0, len(r.entries))
	for _, entry := range r.entries {
		if now.Before(entry.ExpiresAt) {
			entries = append(entries, *entry)
		}
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}

// Sweep removes expired entries and reports how many were removed.
func (r *BlockRegistry) Sweep() int {
	if r == nil {
		return 0
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for key, entry := range r.entries {
		if !now.Before(entry.ExpiresAt) {
			delete(r.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the number of entries, live or expired.
func (r *BlockRegistry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
