package guid

// IDGenerator hands out dense, monotonically increasing integer ids.
// Exchange files number their entities with it. Each file or session owns
// its own generator; there is no process-wide counter.
type IDGenerator struct {
	last int
}

// NewIDGenerator returns a generator whose first id is start.
func NewIDGenerator(start int) *IDGenerator {
	return &IDGenerator{last: start - 1}
}

// Next returns the next id.
func (g *IDGenerator) Next() int {
	g.last++
	return g.last
}

// Last returns the most recently issued id, or start-1 if none was issued.
func (g *IDGenerator) Last() int {
	return g.last
}

// Observe advances the generator past id so ids read from an existing
// file are never reissued.
func (g *IDGenerator) Observe(id int) {
	if id > g.last {
		g.last = id
	}
}
