// Package history provides an append-only, per-key log of transaction facts
// used for windowed aggregation (velocity, averages, progressions).
//
// Entries are kept in insertion order per key. Nothing expires on its own:
// the owner decides when to call EvictBefore. A Store is not safe for
// concurrent use; callers serialize access.
package history

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry is one recorded transaction fact.
type Entry struct {
	Key       string
	Timestamp time.Time
	Amount    decimal.Decimal
}

// Store holds entries grouped by key (account or user).
type Store struct {
	entries map[string][]Entry
	size    int
}

// New creates an empty store.
func New() *Store {
	return &Store{entries: make(map[string][]Entry)}
}

// Append records an entry at the end of key's log.
func (s *Store) Append(key string, at time.Time, amount decimal.Decimal) {
	s.entries[key] = append(s.entries[key], Entry{Key: key, Timestamp: at, Amount: amount})
	s.size++
}

// Entries returns a copy of key's log in insertion order.
func (s *Store) Entries(key string) []Entry {
	log := s.entries[key]
	if len(log) == 0 {
		return nil
	}
	out := make([]Entry, len(log))
	copy(out, log)
	return out
}

// Since returns key's entries with a timestamp at or after from.
// The full log is scanned; there is no time index.
func (s *Store) Since(key string, from time.Time) []Entry {
	var out []Entry
	for _, e := range s.entries[key] {
		if !e.Timestamp.Before(from) {
			out = append(out, e)
		}
	}
	return out
}

// After returns key's entries strictly after from.
func (s *Store) After(key string, from time.Time) []Entry {
	var out []Entry
	for _, e := range s.entries[key] {
		if e.Timestamp.After(from) {
			out = append(out, e)
		}
	}
	return out
}

// Last returns up to n most recently appended entries for key, oldest first.
func (s *Store) Last(key string, n int) []Entry {
	log := s.entries[key]
	if n <= 0 || len(log) == 0 {
		return nil
	}
	if n > len(log) {
		n = len(log)
	}
	out := make([]Entry, n)
	copy(out, log[len(log)-n:])
	return out
}

// Count returns the number of entries recorded for key.
func (s *Store) Count(key string) int {
	return len(s.entries[key])
}

// Sum returns the total amount over entries.
func Sum(entries []Entry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Amount)
	}
	return total
}

// Len returns the number of entries across all keys.
func (s *Store) Len() int { return s.size }

// Keys returns the number of keys with at least one entry.
func (s *Store) Keys() int { return len(s.entries) }

// EvictBefore removes every entry older than cutoff and drops keys left
// empty. Returns the number of entries removed.
func (s *Store) EvictBefore(cutoff time.Time) int {
	removed := 0
	for key, log := range s.entries {
		kept := log[:0]
		for _, e := range log {
			if e.Timestamp.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(s.entries, key)
			continue
		}
		s.entries[key] = kept
	}
	s.size -= removed
	return removed
}
