// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// msNode is the linked-list node for [UnboundedQueue]. The queue always
// keeps one dummy node at head whose value is never read — real data lives
// from head.next onward, the classic Michael-Scott layout.
type msNode[T any] struct {
	value T
	next  atomix.Uint64
}

// UnboundedQueue is a Michael-Scott two-lock-free-pointer FIFO built over a
// [HazardEraAllocator]: push and pop each touch at most one atomic pointer
// on the fast path, with a helper CAS to catch the tail up on a lagging
// reader.
type UnboundedQueue[T any] struct {
	head  atomix.Uint64
	_     pad
	tail  atomix.Uint64
	alloc *HazardEraAllocator[msNode[T]]
}

// NewUnboundedQueue creates an empty queue sharing registry's thread slots.
func NewUnboundedQueue[T any](registry *ThreadRegistry) *UnboundedQueue[T] {
	alloc := NewHazardEraAllocator[msNode[T]](registry, DefaultHazardEraFreq, nil)
	dummy := alloc.Allocate(msNode[T]{})
	addr := uint64(uintptr(unsafe.Pointer(dummy)))
	q := &UnboundedQueue[T]{alloc: alloc}
	q.head.StoreRelaxed(addr)
	q.tail.StoreRelaxed(addr)
	return q
}

// Push adds v to the tail of the queue. Infallible, subject to allocator
// failure.
func (q *UnboundedQueue[T]) Push(reg *Registration, v T) {
	n := q.alloc.Allocate(msNode[T]{value: v})
	addr := uint64(uintptr(unsafe.Pointer(n)))

	g := q.alloc.Guard(reg)
	defer g.Release()

	bo := DefaultBackoff()
	for {
		tail := q.alloc.Protect(&q.tail)
		tailAddr := uint64(uintptr(unsafe.Pointer(tail)))
		next := tail.next.LoadAcquire()
		if next == 0 {
			if tail.next.CompareAndSwapAcqRel(0, addr) {
				q.tail.CompareAndSwapAcqRel(tailAddr, addr)
				return
			}
		} else {
			q.tail.CompareAndSwapAcqRel(tailAddr, next)
		}
		bo.Spin()
	}
}

// Pop removes and returns the element at the head of the queue. Returns
// (zero, false) if the queue is empty.
func (q *UnboundedQueue[T]) Pop(reg *Registration) (T, bool) {
	g := q.alloc.Guard(reg)
	defer g.Release()

	bo := DefaultBackoff()
	for {
		head := q.alloc.Protect(&q.head)
		headAddr := uint64(uintptr(unsafe.Pointer(head)))
		tail := q.tail.LoadAcquire()
		next := head.next.LoadAcquire()

		if headAddr == tail {
			if next == 0 {
				var zero T
				return zero, false
			}
			q.tail.CompareAndSwapAcqRel(tail, next)
		} else {
			n := (*msNode[T])(unsafe.Pointer(uintptr(next)))
			v := n.value
			if q.head.CompareAndSwapAcqRel(headAddr, next) {
				q.alloc.Retire(reg, head)
				return v, true
			}
		}
		bo.Spin()
	}
}

// Empty reports whether the queue currently holds no elements. Like any
// lock-free container, the answer may be stale by the time the caller acts
// on it.
func (q *UnboundedQueue[T]) Empty() bool {
	head := q.head.LoadAcquire()
	n := (*msNode[T])(unsafe.Pointer(uintptr(head)))
	return n.next.LoadAcquire() == 0
}

// Clear destroys every remaining node immediately, including the dummy.
// The caller must ensure no other goroutine holds a reference to the queue.
func (q *UnboundedQueue[T]) Clear() {
	h := q.head.LoadRelaxed()
	q.head.StoreRelaxed(0)
	q.tail.StoreRelaxed(0)
	for h != 0 {
		n := (*msNode[T])(unsafe.Pointer(uintptr(h)))
		next := n.next.LoadRelaxed()
		q.alloc.DeallocateUnsafe(n)
		h = next
	}
}
