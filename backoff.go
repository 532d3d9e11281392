// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/spin"

// DefaultBackoffInitial and DefaultBackoffMax are the pause-iteration bounds
// used when a container is constructed without an explicit backoff override.
const (
	DefaultBackoffInitial = 256
	DefaultBackoffMax     = 65536
)

// Backoff is a stateful retry helper for CAS loops. Each call spins for the
// current pause count, then doubles the count, capped at Max. Both bounds
// must be powers of two.
//
// A Backoff has no memory effect beyond the CPU pause hint; it never
// allocates and is safe to keep on the stack inside a retry loop.
type Backoff struct {
	state   int
	initial int
	max     int
}

// NewBackoff creates a Backoff with the given initial and max pause counts.
// Both must be powers of two with initial <= max; it panics otherwise.
func NewBackoff(initial, max int) Backoff {
	if initial <= 0 || max <= 0 || initial&(initial-1) != 0 || max&(max-1) != 0 || initial > max {
		panic("containers: backoff bounds must be powers of two with initial <= max")
	}
	return Backoff{state: initial, initial: initial, max: max}
}

// DefaultBackoff creates a Backoff using [DefaultBackoffInitial] and
// [DefaultBackoffMax].
func DefaultBackoff() Backoff {
	return Backoff{state: DefaultBackoffInitial, initial: DefaultBackoffInitial, max: DefaultBackoffMax}
}

// Spin pauses for the current backoff state, then doubles the state up to
// Max. Call once per failed CAS iteration.
func (b *Backoff) Spin() {
	sw := spin.Wait{}
	for i := 0; i < b.state; i++ {
		sw.Once()
	}
	if b.state == 0 {
		b.state = b.initial
	}
	next := b.state << 1
	if next >= b.max || next <= 0 {
		next = b.max
	}
	b.state = next
}

// Reset restores the backoff to its initial state. Containers call this
// after a successful operation so the next contention episode starts cold.
func (b *Backoff) Reset() {
	b.state = b.initial
}

// State reports the current pause-iteration count, mostly useful for tests.
func (b *Backoff) State() int {
	return b.state
}
