// Package reference produces transaction reference numbers of the form
// TXN-NNNNNNNN. Generators only propose candidates; uniqueness is enforced by
// the store, and the ledger service draws again when a candidate is taken.
package reference

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"sync"
	"sync/atomic"
	"time"
)

const (
	Prefix = "TXN-"
	digits = 8
	space  = 100_000_000
)

var pattern = regexp.MustCompile(`^TXN-\d{8}$`)

type Generator interface {
	Next() string
}

// Valid reports whether s is a well formed reference number.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

// Format renders n (taken modulo 10^8) as a reference number.
func Format(n uint64) string {
	return fmt.Sprintf("%s%0*d", Prefix, digits, n%space)
}

// Random draws uniformly from the 10^8 reference space.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandom returns a Random seeded from the wall clock.
func NewRandom() *Random {
	now := uint64(time.Now().UnixNano())
	return NewSeededRandom(now, now>>32)
}

// NewSeededRandom returns a Random whose sequence is fully determined by the seeds.
func NewSeededRandom(seed1, seed2 uint64) *Random {
	return &Random{rng: rand.New(rand.NewPCG(seed1, seed2))}
}

func (r *Random) Next() string {
	r.mu.Lock()
	n := r.rng.Uint64N(space)
	r.mu.Unlock()
	return Format(n)
}

// Sequence hands out consecutive numbers starting at start, wrapping after
// TXN-99999999.
type Sequence struct {
	next atomic.Uint64
}

func NewSequence(start uint64) *Sequence {
	s := &Sequence{}
	s.next.Store(start)
	return s
}

func (s *Sequence) Next() string {
	return Format(s.next.Add(1) - 1)
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) Next() string {
	return f()
}
