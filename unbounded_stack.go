// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// treiberNode is the linked-list node for [UnboundedStack]. next holds the
// successor's address as a uint64, 0 meaning nil — the same pointer
// encoding the teacher's FAA queues use for their indirect/pointer variants.
type treiberNode[T any] struct {
	value T
	next  atomix.Uint64
}

// UnboundedStack is a Treiber stack: an unbounded lock-free LIFO built over
// a [HazardEraAllocator], so a popped node can be retired instead of freed
// immediately even while another thread might still be dereferencing it.
type UnboundedStack[T any] struct {
	head  atomix.Uint64
	alloc *HazardEraAllocator[treiberNode[T]]
}

// NewUnboundedStack creates an empty stack sharing registry's thread slots.
func NewUnboundedStack[T any](registry *ThreadRegistry) *UnboundedStack[T] {
	return &UnboundedStack[T]{
		alloc: NewHazardEraAllocator[treiberNode[T]](registry, DefaultHazardEraFreq, nil),
	}
}

// Push adds v to the top of the stack. Infallible, subject to allocator
// failure (which panics, per the allocator's contract).
func (s *UnboundedStack[T]) Push(reg *Registration, v T) {
	n := s.alloc.Allocate(treiberNode[T]{value: v})
	addr := uint64(uintptr(unsafe.Pointer(n)))
	bo := DefaultBackoff()
	for {
		h := s.head.LoadAcquire()
		n.next.StoreRelaxed(h)
		if s.head.CompareAndSwapAcqRel(h, addr) {
			return
		}
		bo.Spin()
	}
}

// Pop removes and returns the top element. Returns (zero, false) if empty.
func (s *UnboundedStack[T]) Pop(reg *Registration) (T, bool) {
	g := s.alloc.Guard(reg)
	defer g.Release()

	bo := DefaultBackoff()
	for {
		h := s.alloc.Protect(&s.head)
		if h == nil {
			var zero T
			return zero, false
		}
		next := h.next.LoadAcquire()
		if s.head.CompareAndSwapAcqRel(uint64(uintptr(unsafe.Pointer(h))), next) {
			v := h.value
			s.alloc.Retire(reg, h)
			return v, true
		}
		bo.Spin()
	}
}

// Clear destroys every remaining node immediately. The caller must ensure
// no other goroutine holds a reference to the stack — this bypasses the
// hazard-era reclamation entirely, matching [HazardEraAllocator.DeallocateUnsafe]'s
// contract.
func (s *UnboundedStack[T]) Clear() {
	h := s.head.LoadRelaxed()
	s.head.StoreRelaxed(0)
	for h != 0 {
		n := (*treiberNode[T])(unsafe.Pointer(uintptr(h)))
		next := n.next.LoadRelaxed()
		s.alloc.DeallocateUnsafe(n)
		h = next
	}
}
