// Package guard provides the admin-managed trust list.
package guard

import (
	"sort"
	"sync"
	"time"
)

// TrustEntry records an identity exempt from burst and rate checks.
type TrustEntry struct {
	Key     string
	Note    string
	AddedAt time.Time
}

// TrustList holds identities the rate limiters skip. Trust never bypasses
// the block registry; an explicit block still wins.
type TrustList struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]*TrustEntry
}

// NewTrustList constructs an empty trust list.
func NewTrustList(now func() time.Time) *TrustList {
	if now == nil {
		now = time.Now
	}
	return &TrustList{
		now:     now,
		entries: make(map[string]*TrustEntry),
	}
}

// Contains reports whether the key is trusted.
func (l *TrustList) Contains(key string) bool {
	if l == nil || key == "" {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[key]
	return ok
}

// Add inserts or updates a trusted key.
func (l *TrustList) Add(key, note string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if entry, ok := l.entries[key]; ok {
		entry.Note = note
		return
	}
	l.entries[key] = &TrustEntry{Key: key, Note: note, AddedAt: l.now()}
}

// Remove deletes a trusted key. Removing an absent key is a no-op.
func (l *TrustList) Remove(key string) {
	if l == nil || key == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// Entries returns the trusted keys sorted by key.
func (l *TrustList) Entries() []TrustEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	entries := make([]TrustEntry, 0, len(l.entries))
	for _, entry := range l.entries {
		entries = append(entries, *entry)
	}
	l.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries
}
