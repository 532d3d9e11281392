// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/atomix"

// BoundedQueue is an array-based MPMC FIFO with separate producer and
// consumer head/tail cursors. Capacity must be a power of two.
//
// Producers reserve a slot by advancing phead, write their value, then wait
// for ptail to catch up to their reservation before publishing it —
// guaranteeing consumers never observe a slot out of FIFO order even when
// two producers race to fill adjacent slots. Consumers mirror this with
// chead/ctail.
type BoundedQueue[T any] struct {
	_        pad
	phead    atomix.Uint64
	_        pad
	ptail    atomix.Uint64
	_        pad
	chead    atomix.Uint64
	_        pad
	ctail    atomix.Uint64
	_        pad
	values   []T
	capacity uint64
	mask     uint64
}

// NewBoundedQueue creates a queue with the given capacity, which must be a
// power of two.
func NewBoundedQueue[T any](capacity int) *BoundedQueue[T] {
	if capacity < 1 || capacity&(capacity-1) != 0 {
		panic("containers: BoundedQueue capacity must be a power of two")
	}
	return &BoundedQueue[T]{
		values:   make([]T, capacity),
		capacity: uint64(capacity),
		mask:     uint64(capacity - 1),
	}
}

// Push adds v to the queue. Returns false iff the queue is full
// (phead+1 > ctail+capacity).
func (q *BoundedQueue[T]) Push(v T) bool {
	bo := DefaultBackoff()
	for {
		ph := q.phead.LoadAcquire()
		ct := q.ctail.LoadAcquire()
		if ph+1 > ct+q.capacity {
			return false
		}
		if q.phead.CompareAndSwapAcqRel(ph, ph+1) {
			q.values[ph&q.mask] = v
			for q.ptail.LoadAcquire() != ph {
				bo.Spin()
			}
			q.ptail.StoreRelease(ph + 1)
			return true
		}
		bo.Spin()
	}
}

// Pop removes and returns the oldest element. Returns (zero, false) iff the
// queue is empty (chead+1 > ptail, i.e. chead >= ptail).
func (q *BoundedQueue[T]) Pop() (T, bool) {
	bo := DefaultBackoff()
	for {
		ch := q.chead.LoadAcquire()
		pt := q.ptail.LoadAcquire()
		if ch+1 > pt {
			var zero T
			return zero, false
		}
		if q.chead.CompareAndSwapAcqRel(ch, ch+1) {
			v := q.values[ch&q.mask]
			var zero T
			q.values[ch&q.mask] = zero
			for q.ctail.LoadAcquire() != ch {
				bo.Spin()
			}
			q.ctail.StoreRelease(ch + 1)
			return v, true
		}
		bo.Spin()
	}
}

// Cap returns the queue's capacity.
func (q *BoundedQueue[T]) Cap() int {
	return int(q.capacity)
}
