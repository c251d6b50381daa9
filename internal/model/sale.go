package model

import (
	"sync"

	"github.com/google/uuid"
)

// Sale is one line of a completed checkout that has not yet been
// acknowledged by the accounting service. Sales are immutable once written.
type Sale struct {
	// ID is a UUIDv7. Its text form sorts in creation order.
	ID        string `json:"id"`
	Date      Date   `json:"date"`
	MemberID  string `json:"member_id"`
	ArticleID string `json:"article_id"`
	Amount    int    `json:"amount"`
}

// IDGenerator generates sale identifiers.
// Implemented by UUIDv7Generator (production) and FixedIDs (tests).
type IDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 identifiers.
//
// UUIDv7 puts a millisecond timestamp in the most significant bits and
// google/uuid keeps values generated within the same process strictly
// increasing, so ordering the ledger by ID recovers insertion order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
// Panics if the random source fails.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedIDs returns predetermined identifiers in order.
//
// Panics once all identifiers are consumed, which catches tests that create
// more sales than they expect.
type FixedIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedIDs creates a generator that returns ids in order.
func NewFixedIDs(ids ...string) *FixedIDs {
	return &FixedIDs{ids: ids}
}

// Generate returns the next predetermined identifier.
func (g *FixedIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedIDs: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
