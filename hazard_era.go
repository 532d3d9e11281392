// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import (
	"sync"
	"unsafe"

	"code.hybscloud.com/atomix"
)

// DefaultHazardEraFreq is the default number of retires between cleanup
// passes. Must be a power of two.
const DefaultHazardEraFreq = 1024

// Deleter runs once a retired pointer is provably unreachable by any guarded
// reader. It is the hook a container uses to release whatever the node
// holds beyond its own memory — e.g. returning it to a sync.Pool.
type Deleter[T any] func(*T)

// HazardEraAllocator is a typed allocator and epoch-based reclamation
// service: it lets producers retire nodes that concurrent readers may still
// be dereferencing, without blocking and without per-pointer reference
// counting.
//
// Each participating goroutine brackets its use of protected pointers with
// a [HazardGuard]. A retired node's Deleter runs only once no live guard's
// enter-epoch is old enough to still observe it.
//
// HazardEraAllocator is process-wide singleton per T in spirit: construct
// one per node type and share it across every container built from that
// type.
//
// A container publishes a node's address as a bare uint64 in an atomix
// field (head/tail/next), which Go's garbage collector does not scan for
// pointer bit-patterns — unlike a real *T or unsafe.Pointer field, a uint64
// gives the collector no reason to keep the node alive. alive is the
// GC-visible side table that closes that gap: every node allocated through
// Allocate is kept reachable here until its Deleter has actually run, no
// matter how its address is encoded inside the container itself.
type HazardEraAllocator[T any] struct {
	registry     *ThreadRegistry
	epoch        atomix.Uint64
	records      []hazardRecord
	freq         int
	deleter      Deleter[T]
	retireCounts *Counter

	aliveMu sync.Mutex
	alive   map[unsafe.Pointer]*T
}

type hazardRecord struct {
	enterEpoch atomix.Uint64
	exitEpoch  atomix.Uint64
	_          pad
	retired    []retiredBuffer
}

type retiredBuffer struct {
	epoch uint64
	ptr   unsafe.Pointer
}

// NewHazardEraAllocator creates an allocator sharing registry's thread slots.
// freq must be a power of two; deleter may be nil, in which case retired
// nodes are simply dropped (equivalent to Go's GC reclaiming them once
// unreachable, with no extra side effect run).
func NewHazardEraAllocator[T any](registry *ThreadRegistry, freq int, deleter Deleter[T]) *HazardEraAllocator[T] {
	if freq <= 0 || freq&(freq-1) != 0 {
		panic("containers: HazardEraAllocator freq must be a power of two")
	}
	if deleter == nil {
		deleter = func(*T) {}
	}
	a := &HazardEraAllocator[T]{
		registry:     registry,
		records:      make([]hazardRecord, len(registry.slots)),
		freq:         freq,
		deleter:      deleter,
		retireCounts: NewCounter(registry),
		alive:        make(map[unsafe.Pointer]*T),
	}
	// Epochs start at 1 so an open guard's enter-epoch is always above the
	// zero exit-epoch Guard stores, which is what marks it as inside.
	a.epoch.StoreRelaxed(1)
	return a
}

// HazardGuard brackets a single goroutine's use of protected pointers.
// Overlapping guards on the same registration are undefined; callers that
// need reentrancy must reference-count themselves.
type HazardGuard[T any] struct {
	alloc    *HazardEraAllocator[T]
	reg      *Registration
	released bool
}

// Guard opens a new epoch guard for reg. The caller must call Release
// exactly once, typically via defer.
func (a *HazardEraAllocator[T]) Guard(reg *Registration) *HazardGuard[T] {
	rec := &a.records[reg.id]
	e := a.epoch.LoadAcquire()
	rec.exitEpoch.StoreRelaxed(0)
	rec.enterEpoch.StoreRelease(e)
	return &HazardGuard[T]{alloc: a, reg: reg}
}

// Release closes the guard, publishing that this thread is no longer
// protecting any pointer it read while the guard was open.
func (g *HazardGuard[T]) Release() {
	if g.released {
		panic("containers: hazard guard released twice")
	}
	rec := &g.alloc.records[g.reg.id]
	rec.exitEpoch.StoreRelease(rec.enterEpoch.LoadRelaxed() + 1)
	g.released = true
}

// Allocate constructs a new T and returns its address. Allocation failure
// is fatal and propagates as a panic, per the allocator contract: it is
// never a recoverable condition on the hot path. The node is registered in
// the GC-visible alive set before it is returned, so it stays reachable
// for the collector from this point until its Deleter runs, independent of
// whatever uint64-encoded pointer fields the caller's container publishes
// it through.
func (a *HazardEraAllocator[T]) Allocate(v T) *T {
	p := new(T)
	*p = v
	a.aliveMu.Lock()
	a.alive[unsafe.Pointer(p)] = p
	a.aliveMu.Unlock()
	return p
}

// Protect loads addr — a pointer published as a uint64 — with acquire
// ordering and returns it as *T. Callers must only call Protect while
// inside an open [HazardGuard] for reg; the value observed is guaranteed to
// be either still allocated or not yet past its deleter when the guard was
// entered. Returns nil if addr currently holds 0 (the null pointer).
func (a *HazardEraAllocator[T]) Protect(addr *atomix.Uint64) *T {
	p := addr.LoadAcquire()
	if p == 0 {
		return nil
	}
	return (*T)(unsafe.Pointer(uintptr(p)))
}

// Retire hands p to the reclaimer: it is appended to the calling
// registration's retired list with the current epoch, and will have its
// Deleter invoked once every guard that was open at retire time has closed.
// Cleanup cadence is driven by retireCounts, a [Counter] shard private to
// this allocator — every freq retires on reg's shard triggers a cleanup
// pass for this registration, mirroring the original's frequency_counter.
func (a *HazardEraAllocator[T]) Retire(reg *Registration, p *T) {
	if p == nil {
		return
	}
	rec := &a.records[reg.id]
	e := a.epoch.AddAcqRel(1)
	rec.retired = append(rec.retired, retiredBuffer{epoch: uint64(e), ptr: unsafe.Pointer(p)})
	a.retireCounts.Add(reg, 1)
	if a.retireCounts.Get(reg)%int64(a.freq) == 0 {
		a.cleanup(reg)
	}
}

// Cleanup forces a reclamation pass for reg's retired list. Retire already
// calls this every freq retires; exposed so a caller can force a pass
// before, e.g., reporting retired-list depth.
func (a *HazardEraAllocator[T]) Cleanup(reg *Registration) {
	a.cleanup(reg)
}

func (a *HazardEraAllocator[T]) cleanup(reg *Registration) {
	quiescent := a.quiescentEpoch()
	rec := &a.records[reg.id]
	kept := rec.retired[:0]
	for _, rb := range rec.retired {
		if rb.epoch < quiescent {
			a.deleter((*T)(rb.ptr))
			a.aliveMu.Lock()
			delete(a.alive, rb.ptr)
			a.aliveMu.Unlock()
		} else {
			kept = append(kept, rb)
		}
	}
	rec.retired = kept
}

// quiescentEpoch computes the minimum enter-epoch over all registrations
// currently inside a guard (exit < enter), or the max uint64 if none are.
func (a *HazardEraAllocator[T]) quiescentEpoch() uint64 {
	min := ^uint64(0)
	for i := range a.records {
		enter := a.records[i].enterEpoch.LoadAcquire()
		exit := a.records[i].exitEpoch.LoadAcquire()
		if exit < enter && enter < min {
			min = enter
		}
	}
	return min
}

// DeallocateUnsafe invokes p's deleter immediately, bypassing the retired
// list entirely, and drops p from the GC-visible alive set. Callable only
// when no other thread can possibly hold a pointer to p — typically the
// destructor of the owning container, or a node a losing racer allocated
// but never published.
func (a *HazardEraAllocator[T]) DeallocateUnsafe(p *T) {
	if p == nil {
		return
	}
	a.deleter(p)
	a.aliveMu.Lock()
	delete(a.alive, unsafe.Pointer(p))
	a.aliveMu.Unlock()
}
