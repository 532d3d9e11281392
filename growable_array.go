// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import (
	"unsafe"

	"code.hybscloud.com/atomix"
)

// DefaultGrowableArrayBlockSize is the element count per block when none is
// given explicitly. Must be a power of two.
const DefaultGrowableArrayBlockSize = 256

type growableBlock[T any] struct {
	items []T
}

type growableBlockMap[T any] struct {
	blocks []*growableBlock[T]
}

// GrowableArray is a single-writer, many-reader append-only array: a linked
// series of fixed-capacity blocks indexed through a versioned block map.
// Readers never block the writer, and the writer never invalidates an
// index a reader has already observed. Concurrent writers are undefined —
// GrowableArray assumes exactly one.
type GrowableArray[T any] struct {
	size atomix.Uint64
	_    pad
	mp   atomix.Uint64 // *growableBlockMap[T], published with release ordering
	_    pad

	blockSize int

	// Writer-private bookkeeping: touched only by the single writer, so no
	// atomics are needed here even though mp/size are shared with readers.
	currentMap  *growableBlockMap[T]
	mapSize     int
	mapCapacity int
	writerSize  uint64

	// Retired maps are kept alive until the GrowableArray itself becomes
	// unreachable (strategy (a) of the two the design allows): a reader
	// that cached an old map pointer must never see it freed out from under
	// it, and Go's GC makes "never free early" essentially free to choose.
	retired []*growableBlockMap[T]
}

// NewGrowableArray creates an empty array with the given block size, which
// must be a power of two.
func NewGrowableArray[T any](blockSize int) *GrowableArray[T] {
	if blockSize < 1 || blockSize&(blockSize-1) != 0 {
		panic("containers: GrowableArray blockSize must be a power of two")
	}
	return &GrowableArray[T]{blockSize: blockSize}
}

// PushBack appends v, returning its index. Single-writer only.
func (a *GrowableArray[T]) PushBack(v T) int {
	size := a.writerSize
	idx := int(size) / a.blockSize
	off := int(size) % a.blockSize

	switch {
	case idx < a.mapSize:
		a.currentMap.blocks[idx].items[off] = v
	case a.mapSize < a.mapCapacity:
		blk := &growableBlock[T]{items: make([]T, a.blockSize)}
		blk.items[off] = v
		a.currentMap.blocks[a.mapSize] = blk
		a.mapSize++
	default:
		newCap := a.mapCapacity * 2
		if newCap == 0 {
			newCap = 1
		}
		newMap := &growableBlockMap[T]{blocks: make([]*growableBlock[T], newCap)}
		copy(newMap.blocks, a.currentMap.blocksOrNil())
		blk := &growableBlock[T]{items: make([]T, a.blockSize)}
		blk.items[off] = v
		newMap.blocks[a.mapSize] = blk

		if a.currentMap != nil {
			a.retired = append(a.retired, a.currentMap)
		}
		a.currentMap = newMap
		a.mapCapacity = newCap
		a.mapSize++
		a.mp.StoreRelease(uint64(uintptr(unsafe.Pointer(newMap))))
	}

	a.writerSize = size + 1
	a.size.StoreRelease(a.writerSize)
	return int(size)
}

func (m *growableBlockMap[T]) blocksOrNil() []*growableBlock[T] {
	if m == nil {
		return nil
	}
	return m.blocks
}

// EmplaceBack is an alias for PushBack, kept for parity with the original
// emplace_back/push_back pair — Go has no placement-construction to
// distinguish them.
func (a *GrowableArray[T]) EmplaceBack(v T) int {
	return a.PushBack(v)
}

// Len returns the writer's own view of the element count. Only safe to call
// from the writer; readers should use [GrowableArray.At] or a
// [GrowableArrayReader], which acquire-load the published size instead.
func (a *GrowableArray[T]) Len() int {
	return int(a.writerSize)
}

// At reads index under an acquire-load of the published size and map
// pointer. Returns (zero, false) if index >= the currently observed size.
func (a *GrowableArray[T]) At(index int) (T, bool) {
	sz := a.size.LoadAcquire()
	if index < 0 || uint64(index) >= sz {
		var zero T
		return zero, false
	}
	return a.at(index), true
}

func (a *GrowableArray[T]) at(index int) T {
	mp := (*growableBlockMap[T])(unsafe.Pointer(uintptr(a.mp.LoadAcquire())))
	blockIdx := index / a.blockSize
	off := index % a.blockSize
	return mp.blocks[blockIdx].items[off]
}

// GrowableArrayReader is a per-reader cached view of a [GrowableArray]'s
// size: the hot path only performs a fresh acquire-load when the requested
// index exceeds the last size this reader observed. There is no
// synchronization between different readers — each must own its own
// GrowableArrayReader.
type GrowableArrayReader[T any] struct {
	arr    *GrowableArray[T]
	cached uint64
}

// NewReader creates a cached reader view over a.
func (a *GrowableArray[T]) NewReader() *GrowableArrayReader[T] {
	return &GrowableArrayReader[T]{arr: a}
}

// At returns the value at index, refreshing the cached size only if index
// is not covered by the last observed size.
func (r *GrowableArrayReader[T]) At(index int) (T, bool) {
	if index < 0 {
		var zero T
		return zero, false
	}
	if uint64(index) >= r.cached {
		r.cached = r.arr.size.LoadAcquire()
		if uint64(index) >= r.cached {
			var zero T
			return zero, false
		}
	}
	return r.arr.at(index), true
}
