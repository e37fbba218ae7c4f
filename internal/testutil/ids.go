// Package testutil holds deterministic helpers shared by engine, harness and
// CLI tests.
package testutil

import (
	"fmt"
	"sync"
)

// DefaultIDPrefix is used by NewSequentialGenerator when no prefix is given.
const DefaultIDPrefix = "line"

// SequentialGenerator allocates durable-looking line ids "<prefix>-1",
// "<prefix>-2", ... in call order.
//
// Promoting the same draft with a fresh SequentialGenerator always yields
// the same ids, which keeps golden snapshots stable. Unlike forest.Clock it
// can be reset, so one generator can serve several runs of a scenario.
//
// Implements forest.IDGenerator and is safe for concurrent use.
type SequentialGenerator struct {
	prefix string

	mu   sync.Mutex
	next int64
}

// NewSequentialGenerator creates a generator. An empty prefix uses
// DefaultIDPrefix.
func NewSequentialGenerator(prefix string) *SequentialGenerator {
	if prefix == "" {
		prefix = DefaultIDPrefix
	}
	return &SequentialGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequentialGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return fmt.Sprintf("%s-%d", g.prefix, g.next)
}

// Issued reports how many ids were generated since creation or the last
// Reset.
func (g *SequentialGenerator) Issued() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.next
}

// Reset restarts numbering at 1.
func (g *SequentialGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next = 0
}
