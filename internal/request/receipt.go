package request

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// IntNSource yields a uniform integer in [0, n).
type IntNSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// ReceiptGenerator produces receipt numbers of the form YYYYMMDD-NNNN: the
// local date followed by a zero-padded random suffix.
type ReceiptGenerator struct {
	mu  sync.Mutex
	now func() time.Time
	rnd IntNSource
	loc *time.Location
}

// NewReceiptGenerator builds a generator. Nil arguments fall back to
// time.Now, the process-wide random source and UTC.
func NewReceiptGenerator(now func() time.Time, rnd IntNSource, loc *time.Location) *ReceiptGenerator {
	if now == nil {
		now = time.Now
	}
	if rnd == nil {
		rnd = globalRand{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReceiptGenerator{now: now, rnd: rnd, loc: loc}
}

// Next returns a fresh receipt number.
func (g *ReceiptGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fmt.Sprintf("%s-%04d", g.now().In(g.loc).Format("20060102"), g.rnd.IntN(10000))
}
