package engine

import (
	"sync"

	"github.com/google/uuid"
)

// TraceIDGenerator yields the id that ties one compilation together across
// log lines, metrics and CLI output.
type TraceIDGenerator interface {
	Generate() string
}

// UUIDv7Generator is the default source. UUIDv7 ids carry their creation
// time, so log lines of consecutive requests sort by arrival.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator replays predetermined ids so that JSON output and golden
// files stay byte-stable.
type FixedGenerator struct {
	mu     sync.Mutex
	ids    []string
	next   int
	repeat bool
}

// NewFixedGenerator yields ids in order. Asking for more panics: a test
// that compiles more often than it planned should fail loudly.
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// NewRepeatingGenerator yields id on every call.
func NewRepeatingGenerator(id string) *FixedGenerator {
	return &FixedGenerator{ids: []string{id}, repeat: true}
}

func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.repeat {
		return g.ids[0]
	}
	if g.next >= len(g.ids) {
		panic("engine: fixed trace ids exhausted")
	}
	id := g.ids[g.next]
	g.next++
	return id
}
