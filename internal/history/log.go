// Package history keeps the bounded, newest-first delivery log.
package history

import (
	"sync"

	"bulk_sender/internal/model"
)

const (
	DefaultLimit = 500
	// PreviewRunes is how much of a message an entry keeps in Message.
	PreviewRunes = 100
)

type Log struct {
	mu      sync.RWMutex
	limit   int
	entries []model.HistoryEntry
}

// New returns a log capped at limit. Zero, negative and values above DefaultLimit become DefaultLimit.
func New(limit int) *Log {
	return &Log{limit: clampLimit(limit)}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultLimit {
		return DefaultLimit
	}
	return limit
}

// Append inserts e at the front and drops the oldest entries past the limit.
func (l *Log) Append(e model.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, model.HistoryEntry{})
	copy(l.entries[1:], l.entries)
	l.entries[0] = e
	l.trimLocked()
}

// Entries returns a copy, newest first.
func (l *Log) Entries() []model.HistoryEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.HistoryEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Load replaces the contents with entries, which must already be newest first.
func (l *Log) Load(entries []model.HistoryEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append([]model.HistoryEntry(nil), entries...)
	l.trimLocked()
}

// SetLimit changes the cap and trims immediately. It returns the number of dropped entries.
func (l *Log) SetLimit(limit int) int {
	limit = clampLimit(limit)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limit = limit
	return l.trimLocked()
}

func (l *Log) Limit() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.limit
}

func (l *Log) trimLocked() int {
	if len(l.entries) <= l.limit {
		return 0
	}
	n := len(l.entries) - l.limit
	for i := l.limit; i < len(l.entries); i++ {
		l.entries[i] = model.HistoryEntry{}
	}
	l.entries = l.entries[:l.limit]
	return n
}

// Preview shortens message to PreviewRunes runes followed by "...". Shorter messages are kept
// as they are.
func Preview(message string) string {
	r := []rune(message)
	if len(r) <= PreviewRunes {
		return message
	}
	return string(r[:PreviewRunes]) + "..."
}
