package testutil

import (
	"strconv"
	"sync"
	"time"
)

// SurveyEpoch is where FixedClock starts: a whole second, so stored
// timestamps and filesystem mtimes compare equal after truncation.
var SurveyEpoch = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

// StubClock is an ivcs.Clock that only moves when told to.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

func FixedClock() *StubClock {
	return NewStubClock(SurveyEpoch)
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d, e.g. to separate two scans.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator is an ivcs.IDGenerator issuing "<prefix>-1", "<prefix>-2"
// and so on. Two services sharing a database need distinct prefixes.
type StubIDGenerator struct {
	prefix string
	mu     sync.Mutex
	next   int
}

// NewStubIDGenerator issues ids prefixed "id".
func NewStubIDGenerator() *StubIDGenerator {
	return NewPrefixedIDGenerator("id")
}

func NewPrefixedIDGenerator(prefix string) *StubIDGenerator {
	return &StubIDGenerator{prefix: prefix}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.prefix + "-" + strconv.Itoa(g.next)
}
