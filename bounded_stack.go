// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "unsafe"

// boundedStackMark is the sentinel index used by [UnboundedBlockedStack] to
// poison an exhausted block's top so no further push/pop can succeed on it.
// Any real capacity is far below this, so ordinary BoundedStack use never
// collides with it.
const boundedStackMark = ^uint32(0)

// boundedStackSlot is the {index, counter, value} triple packed into a
// single 128-bit word: lo carries the raw bits of a <=8-byte payload, hi
// carries index in its low 32 bits and counter in its high 32 bits.
type boundedStackSlot struct {
	index   uint32
	counter uint32
	value   uint64
}

func (s boundedStackSlot) pack() (lo, hi uint64) {
	return s.value, uint64(s.index) | uint64(s.counter)<<32
}

func unpackStackSlot(lo, hi uint64) boundedStackSlot {
	return boundedStackSlot{index: uint32(hi), counter: uint32(hi >> 32), value: lo}
}

// BoundedStack is a Shavit/Zeev array-based lock-free stack for trivially
// copyable payloads no larger than 8 bytes. Push and Pop are lock-free:
// every CAS failure retries after a [Backoff] step.
type BoundedStack[T any] struct {
	top      Atomic128
	_        pad
	array    []Atomic128 // N+1 slots
	capacity uint32
}

// NewBoundedStack creates a stack with room for capacity elements. Panics if
// T is larger than 8 bytes — the packed 128-bit representation has no room
// for more.
func NewBoundedStack[T any](capacity int) *BoundedStack[T] {
	var zero T
	if unsafe.Sizeof(zero) > 8 {
		panic("containers: BoundedStack requires sizeof(T) <= 8")
	}
	if capacity < 1 {
		panic("containers: capacity must be >= 1")
	}
	return &BoundedStack[T]{
		array:    make([]Atomic128, capacity+1),
		capacity: uint32(capacity),
	}
}

func stackSlotToUint64[T any](v T) uint64 {
	var u uint64
	*(*T)(unsafe.Pointer(&u)) = v
	return u
}

func uint64ToStackSlot[T any](u uint64) T {
	return *(*T)(unsafe.Pointer(&u))
}

// finish ensures array[top.index] reflects top's write-through state,
// cooperatively repairing a slot left behind by a racing pusher/popper.
func (s *BoundedStack[T]) finish(top boundedStackSlot) {
	lo, hi := s.array[top.index].Load()
	cur := unpackStackSlot(lo, hi)
	if cur.counter == top.counter-1 {
		want := boundedStackSlot{index: top.index, counter: top.counter, value: top.value}
		wantLo, wantHi := want.pack()
		s.array[top.index].CompareAndSwap(lo, hi, wantLo, wantHi)
	}
}

// Push adds v to the stack. Returns false if the stack is at capacity.
func (s *BoundedStack[T]) Push(v T) bool {
	bo := DefaultBackoff()
	for {
		lo, hi := s.top.Load()
		cur := unpackStackSlot(lo, hi)
		if cur.isMarked() || cur.index == s.capacity {
			return false
		}
		s.finish(cur)

		belowLo, belowHi := s.array[cur.index+1].Load()
		below := unpackStackSlot(belowLo, belowHi)

		next := boundedStackSlot{index: cur.index + 1, counter: below.counter + 1, value: stackSlotToUint64(v)}
		nextLo, nextHi := next.pack()
		if s.top.CompareAndSwap(lo, hi, nextLo, nextHi) {
			return true
		}
		bo.Spin()
	}
}

// Pop removes and returns the top element. Returns (zero, false) if empty.
func (s *BoundedStack[T]) Pop() (T, bool) {
	bo := DefaultBackoff()
	for {
		lo, hi := s.top.Load()
		cur := unpackStackSlot(lo, hi)
		if cur.isMarked() || cur.index == 0 {
			var zero T
			return zero, false
		}
		s.finish(cur)

		belowLo, belowHi := s.array[cur.index-1].Load()
		below := unpackStackSlot(belowLo, belowHi)

		next := boundedStackSlot{index: cur.index - 1, counter: below.counter + 1, value: below.value}
		nextLo, nextHi := next.pack()
		if s.top.CompareAndSwap(lo, hi, nextLo, nextHi) {
			return uint64ToStackSlot[T](cur.value), true
		}
		bo.Spin()
	}
}

// Cap returns the stack's capacity.
func (s *BoundedStack[T]) Cap() int {
	return int(s.capacity)
}

// snapshot returns the current top slot, used by [UnboundedBlockedStack]
// after a failed Pop to see whether this block is empty or already marked.
func (s *BoundedStack[T]) snapshot() boundedStackSlot {
	lo, hi := s.top.Load()
	return unpackStackSlot(lo, hi)
}

// markEmpty poisons the top from the observed empty slot so no further
// push/pop on this block can succeed, forcing one racer to perform
// reclamation. Returns false if the top has moved on (no longer empty, or
// already marked).
func (s *BoundedStack[T]) markEmpty(observed boundedStackSlot) bool {
	if observed.index != 0 {
		return false
	}
	lo, hi := observed.pack()
	marked := boundedStackSlot{index: boundedStackMark, counter: observed.counter + 1, value: observed.value}
	markedLo, markedHi := marked.pack()
	return s.top.CompareAndSwap(lo, hi, markedLo, markedHi)
}

// isMarked reports whether slot carries the poison sentinel.
func (s boundedStackSlot) isMarked() bool {
	return s.index == boundedStackMark
}
