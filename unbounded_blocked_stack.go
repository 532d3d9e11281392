// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// DefaultBlockedStackInnerCapacity is the capacity of each [BoundedStack]
// block chained by [UnboundedBlockedStack].
const DefaultBlockedStackInnerCapacity = 128

// blockedStackNode is one link in an UnboundedBlockedStack: a bounded stack
// block plus the address of the next, older block.
type blockedStackNode[T any] struct {
	stack *BoundedStack[T]
	next  atomix.Uint64
}

// UnboundedBlockedStack chains [BoundedStack] blocks behind a
// hazard-era-protected head pointer, giving O(block) reclamation instead of
// the O(node) reclamation an [UnboundedStack] performs. At most one block at
// a time carries the poison mark that forces its retirement.
type UnboundedBlockedStack[T any] struct {
	head          atomix.Uint64
	innerCapacity int
	alloc         *HazardEraAllocator[blockedStackNode[T]]
}

// NewUnboundedBlockedStack creates a stack whose blocks each hold
// innerCapacity elements.
func NewUnboundedBlockedStack[T any](registry *ThreadRegistry, innerCapacity int) *UnboundedBlockedStack[T] {
	alloc := NewHazardEraAllocator[blockedStackNode[T]](registry, DefaultHazardEraFreq, nil)
	first := alloc.Allocate(blockedStackNode[T]{stack: NewBoundedStack[T](innerCapacity)})
	s := &UnboundedBlockedStack[T]{innerCapacity: innerCapacity, alloc: alloc}
	s.head.StoreRelaxed(uint64(uintptr(unsafe.Pointer(first))))
	return s
}

// Push adds v to the stack, allocating a new block if the current head
// block is full.
func (s *UnboundedBlockedStack[T]) Push(reg *Registration, v T) {
	g := s.alloc.Guard(reg)
	defer g.Release()

	bo := DefaultBackoff()
	for {
		head := s.alloc.Protect(&s.head)
		if head.stack.Push(v) {
			return
		}

		headAddr := uint64(uintptr(unsafe.Pointer(head)))
		nn := s.alloc.Allocate(blockedStackNode[T]{stack: NewBoundedStack[T](s.innerCapacity)})
		nn.next.StoreRelaxed(headAddr)
		newAddr := uint64(uintptr(unsafe.Pointer(nn)))

		if !s.head.CompareAndSwapAcqRel(headAddr, newAddr) {
			// A racing pusher already linked a new block; ours goes unused.
			s.alloc.DeallocateUnsafe(nn)
		}
		bo.Spin()
	}
}

// Pop removes and returns the top element, retiring the head block once it
// is observed empty and has a successor. Returns (zero, false) only when
// the single remaining block is empty.
func (s *UnboundedBlockedStack[T]) Pop(reg *Registration) (T, bool) {
	g := s.alloc.Guard(reg)
	defer g.Release()

	bo := DefaultBackoff()
	for {
		head := s.alloc.Protect(&s.head)
		if v, ok := head.stack.Pop(); ok {
			return v, true
		}

		next := head.next.LoadAcquire()
		if next == 0 {
			var zero T
			return zero, false
		}

		if observed := head.stack.snapshot(); observed.isMarked() || (observed.index == 0 && head.stack.markEmpty(observed)) {
			headAddr := uint64(uintptr(unsafe.Pointer(head)))
			if s.head.CompareAndSwapAcqRel(headAddr, next) {
				s.alloc.Retire(reg, head)
			}
		}
		bo.Spin()
	}
}
