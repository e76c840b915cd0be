package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/typekit/internal/engine"
)

var _ engine.IDGenerator = (*SequentialIDGenerator)(nil)

// SequentialIDGenerator yields "<prefix>-1", "<prefix>-2", ... and never
// runs out, unlike engine.FixedGenerator. Scenario runs use it so that
// golden traces contain stable instance IDs.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix means "inst".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "inst"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
