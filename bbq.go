// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/atomix"

// bbqStatus is the outcome of a block-local cursor operation.
type bbqStatus int

const (
	bbqSuccess bbqStatus = iota
	bbqFail              // genuinely full/empty; propagate to the caller
	bbqBusy               // transient; back off and retry
	bbqBlockDone          // this block is exhausted; advance to the next one
)

// bbqCursor is BBQ's (offset, version) pair, packed with version in the
// high 32 bits so plain uint64 comparison orders cursors by version first —
// exactly what the monotone-max primitive needs.
type bbqCursor struct {
	offset  uint32
	version uint32
}

func (c bbqCursor) pack() uint64 {
	return uint64(c.offset) | uint64(c.version)<<32
}

func unpackBBQCursor(u uint64) bbqCursor {
	return bbqCursor{offset: uint32(u), version: uint32(u >> 32)}
}

// monotoneMax bumps a to max(a, v), returning the word now stored. This is
// the CAS-loop fetch-max primitive BBQ's cursor advances are built on.
func monotoneMax(a *atomix.Uint64, v bbqCursor) uint64 {
	want := v.pack()
	for {
		cur := a.LoadAcquire()
		if cur >= want {
			return cur
		}
		if a.CompareAndSwapAcqRel(cur, want) {
			return want
		}
	}
}

// bbqBlock is one fixed-size run of BBQ's ring, with independent
// allocated/committed/reserved/consumed cursors so producers and consumers
// only contend within a block, never across the whole queue.
type bbqBlock[T any] struct {
	allocated atomix.Uint64
	_         padShort
	committed atomix.Uint64
	_         padShort
	reserved  atomix.Uint64
	_         padShort
	consumed  atomix.Uint64
	_         padShort
	entries   []T
}

// newBBQBlock creates a block. predrainVersion < 0 means "fresh, empty,
// version 0" (block index 0's starting state); predrainVersion >= 0 means
// "already fully drained as of that version", which is how every other
// block in the ring is seeded so the producer can claim it the first time
// the ring reaches it without a spurious busy/fail (see BBQ.advancePhead).
func newBBQBlock[T any](blockSize int, predrainVersion int) *bbqBlock[T] {
	b := &bbqBlock[T]{entries: make([]T, blockSize)}
	if predrainVersion >= 0 {
		c := bbqCursor{offset: uint32(blockSize), version: uint32(predrainVersion)}.pack()
		b.allocated.StoreRelaxed(c)
		b.committed.StoreRelaxed(c)
		b.reserved.StoreRelaxed(c)
		b.consumed.StoreRelaxed(c)
	}
	return b
}

// allocateEntry bumps allocated.offset, returning the offset to write.
func (b *bbqBlock[T]) allocateEntry(blockSize uint32) (bbqStatus, uint32) {
	for {
		a := unpackBBQCursor(b.allocated.LoadAcquire())
		if a.offset >= blockSize {
			return bbqBlockDone, 0
		}
		next := bbqCursor{offset: a.offset + 1, version: a.version}
		if b.allocated.CompareAndSwapAcqRel(a.pack(), next.pack()) {
			return bbqSuccess, a.offset
		}
	}
}

// commitEntry publishes offset as readable, waiting for any lower offsets
// reserved by racing producers to publish first so committed always covers
// a contiguous prefix.
func (b *bbqBlock[T]) commitEntry(offset uint32, bo *Backoff) {
	for {
		c := unpackBBQCursor(b.committed.LoadAcquire())
		if c.offset == offset {
			next := bbqCursor{offset: offset + 1, version: c.version}
			if b.committed.CompareAndSwapAcqRel(c.pack(), next.pack()) {
				return
			}
		}
		bo.Spin()
	}
}

// reserveEntry claims the next committed-but-unconsumed offset for a
// consumer. Returns fail if nothing beyond reserved is committed and no
// allocation is outstanding either (the block is drained so far); busy if
// an allocation is outstanding (data incoming, worth another look).
func (b *bbqBlock[T]) reserveEntry(blockSize uint32) (bbqStatus, uint32) {
	for {
		r := unpackBBQCursor(b.reserved.LoadAcquire())
		if r.offset >= blockSize {
			return bbqBlockDone, 0
		}
		c := unpackBBQCursor(b.committed.LoadAcquire())
		if r.offset >= c.offset {
			a := unpackBBQCursor(b.allocated.LoadAcquire())
			if a.offset > c.offset {
				return bbqBusy, 0
			}
			return bbqFail, 0
		}
		next := bbqCursor{offset: r.offset + 1, version: r.version}
		if b.reserved.CompareAndSwapAcqRel(r.pack(), next.pack()) {
			return bbqSuccess, r.offset
		}
	}
}

// consumeEntry reads and clears entries[offset], then publishes consumed in
// order, mirroring commitEntry.
func (b *bbqBlock[T]) consumeEntry(offset uint32, bo *Backoff) T {
	v := b.entries[offset]
	var zero T
	b.entries[offset] = zero
	for {
		c := unpackBBQCursor(b.consumed.LoadAcquire())
		if c.offset == offset {
			next := bbqCursor{offset: offset + 1, version: c.version}
			if b.consumed.CompareAndSwapAcqRel(c.pack(), next.pack()) {
				return v
			}
		}
		bo.Spin()
	}
}

// BBQ is a block-based bounded FIFO (Wang et al., USENIX ATC'22): a ring of
// fixed-size blocks, each with its own producer/consumer cursors, so
// contention is amortized across BlockSize entries instead of hitting one
// pair of counters on every push/pop.
type BBQ[T any] struct {
	blocks    []*bbqBlock[T]
	numBlocks uint32
	blockSize uint32
	phead     atomix.Uint64
	_         pad
	chead     atomix.Uint64
}

// DefaultBBQBlockSize returns 2^max(1, log2(size)/4), the default block size
// for a queue of the given total capacity.
func DefaultBBQBlockSize(size int) int {
	e := log2(size) / 4
	if e < 1 {
		e = 1
	}
	return 1 << e
}

// NewBBQ creates a block-based bounded queue. size and blockSize must both
// be powers of two with size/blockSize > 1.
func NewBBQ[T any](size, blockSize int) *BBQ[T] {
	if size < 1 || size&(size-1) != 0 {
		panic("containers: BBQ size must be a power of two")
	}
	if blockSize < 1 || blockSize&(blockSize-1) != 0 {
		panic("containers: BBQ blockSize must be a power of two")
	}
	if size/blockSize <= 1 {
		panic("containers: BBQ requires size/blockSize > 1")
	}
	numBlocks := size / blockSize
	q := &BBQ[T]{
		blocks:    make([]*bbqBlock[T], numBlocks),
		numBlocks: uint32(numBlocks),
		blockSize: uint32(blockSize),
	}
	for i := range q.blocks {
		if i == 0 {
			q.blocks[i] = newBBQBlock[T](blockSize, -1)
		} else {
			q.blocks[i] = newBBQBlock[T](blockSize, i-1)
		}
	}
	return q
}

// Push adds v to the queue. Returns false iff the queue is genuinely full.
func (q *BBQ[T]) Push(v T) bool {
	bo := DefaultBackoff()
	for {
		head := unpackBBQCursor(q.phead.LoadAcquire())
		block := q.blocks[head.offset]
		status, off := block.allocateEntry(q.blockSize)
		switch status {
		case bbqSuccess:
			block.entries[off] = v
			block.commitEntry(off, &bo)
			return true
		case bbqBlockDone:
			switch q.advancePhead(head) {
			case bbqSuccess:
				bo.Reset()
			case bbqFail:
				return false
			case bbqBusy:
				bo.Spin()
			}
		}
	}
}

// Pop removes and returns the oldest element. Returns (zero, false) iff the
// queue is genuinely empty.
func (q *BBQ[T]) Pop() (T, bool) {
	bo := DefaultBackoff()
	for {
		head := unpackBBQCursor(q.chead.LoadAcquire())
		block := q.blocks[head.offset]
		status, off := block.reserveEntry(q.blockSize)
		switch status {
		case bbqSuccess:
			return block.consumeEntry(off, &bo), true
		case bbqFail:
			var zero T
			return zero, false
		case bbqBusy:
			bo.Spin()
		case bbqBlockDone:
			switch q.advanceChead(head) {
			case bbqSuccess:
				bo.Reset()
			case bbqFail:
				var zero T
				return zero, false
			case bbqBusy:
				bo.Spin()
			}
		}
	}
}

// advancePhead retires the producer's current block and claims the next
// one, provided the next block has been fully consumed by its prior
// generation. Block generations are a single ring-wide monotonic counter
// (incremented on every block transition, not once per lap): since the
// numBlocks blocks are visited round-robin, any given block's successive
// generation stamps are always numBlocks apart and therefore strictly
// increasing, which is what makes "consumed.version < prior generation" a
// valid staleness check regardless of which block is being examined.
func (q *BBQ[T]) advancePhead(head bbqCursor) bbqStatus {
	nextIdx := (head.offset + 1) % q.numBlocks
	next := q.blocks[nextIdx]
	newVersion := head.version + 1

	// The generation the next block last carried: numBlocks transitions ago,
	// or, on the ring's first lap, the newVersion-1 stamp newBBQBlock seeded.
	prior := newVersion - 1
	if newVersion >= q.numBlocks {
		prior = newVersion - q.numBlocks
	}

	consumed := unpackBBQCursor(next.consumed.LoadAcquire())
	if consumed.version < prior || (consumed.version == prior && consumed.offset != q.blockSize) {
		reserved := unpackBBQCursor(next.reserved.LoadAcquire())
		if reserved.pack() == consumed.pack() {
			return bbqFail
		}
		return bbqBusy
	}

	monotoneMax(&next.committed, bbqCursor{offset: 0, version: newVersion})
	monotoneMax(&next.allocated, bbqCursor{offset: 0, version: newVersion})
	monotoneMax(&q.phead, bbqCursor{offset: nextIdx, version: newVersion})
	return bbqSuccess
}

// advanceChead mirrors advancePhead for the consumer side: the next block
// becomes claimable once a producer has reset it for the generation the
// consumer is about to enter.
func (q *BBQ[T]) advanceChead(head bbqCursor) bbqStatus {
	nextIdx := (head.offset + 1) % q.numBlocks
	next := q.blocks[nextIdx]
	newVersion := head.version + 1

	allocated := unpackBBQCursor(next.allocated.LoadAcquire())
	if allocated.version < newVersion {
		return bbqFail
	}
	committed := unpackBBQCursor(next.committed.LoadAcquire())
	if committed.version == newVersion && committed.offset == 0 {
		return bbqBusy
	}

	monotoneMax(&next.reserved, bbqCursor{offset: 0, version: newVersion})
	monotoneMax(&next.consumed, bbqCursor{offset: 0, version: newVersion})
	monotoneMax(&q.chead, bbqCursor{offset: nextIdx, version: newVersion})
	return bbqSuccess
}

// Cap returns the queue's total capacity (numBlocks * blockSize).
func (q *BBQ[T]) Cap() int {
	return int(q.numBlocks) * int(q.blockSize)
}
