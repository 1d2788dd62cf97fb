// Package ledger tracks which source messages already have a transcription,
// mapping them to the outcome message so repeat requests short-circuit
// instead of re-running the pipeline.
package ledger

import (
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Entry records where a finished transcription ended up.
type Entry struct {
	MessageID string
	URL       string
}

// Ledger is a bounded, concurrency-safe dedupe cache keyed by source message
// id. Entries are first-write-wins and evicted least-recently-used once the
// capacity is reached. State is memory-resident only; a restart starts empty.
//
// Two concurrent transcriptions of the same source can both miss and both
// run; whichever records first wins and the duplicate work is accepted as a
// narrow, benign race.
type Ledger struct {
	cache *lru.Cache[string, Entry]
}

// DefaultCapacity bounds the ledger when no capacity is configured.
const DefaultCapacity = 1024

// New builds a ledger holding at most capacity entries.
func New(capacity int) (*Ledger, error) {
	if capacity <= 0 {
		return nil, errors.New("ledger capacity must be positive")
	}

	cache, err := lru.New[string, Entry](capacity)
	if err != nil {
		return nil, err
	}
	return &Ledger{cache: cache}, nil
}

// Lookup returns the recorded outcome for a source message, if any.
func (l *Ledger) Lookup(sourceID string) (Entry, bool) {
	return l.cache.Get(sourceID)
}

// Record stores the outcome for a source message. The first write for a key
// sticks; later writes for the same key are dropped.
func (l *Ledger) Record(sourceID string, entry Entry) {
	l.cache.ContainsOrAdd(sourceID, entry)
}

// Len reports how many entries are currently held.
func (l *Ledger) Len() int {
	return l.cache.Len()
}
