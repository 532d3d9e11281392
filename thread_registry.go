// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/atomix"

// DefaultMaxThreads is the default [ThreadRegistry] capacity.
const DefaultMaxThreads = 256

// ThreadRegistry assigns each participating goroutine a dense integer id in
// [0, MaxThreads), freeing the slot when the goroutine releases it. It is
// the Go stand-in for a process-wide thread-identity service: Go has no
// native thread-local storage, so a goroutine "enters" once and keeps the
// returned [Registration] for the duration of its participation (e.g. for
// the lifetime of a worker loop), passing it to any container that needs a
// dense id — HazardEraAllocator's per-thread record, Counter's shard index.
//
// No operation blocks a caller that already holds a Registration.
type ThreadRegistry struct {
	slots []atomix.Uint64
	next  atomix.Uint64
}

// NewThreadRegistry creates a registry with room for maxThreads concurrent
// registrations.
func NewThreadRegistry(maxThreads int) *ThreadRegistry {
	if maxThreads < 1 {
		panic("containers: maxThreads must be >= 1")
	}
	return &ThreadRegistry{slots: make([]atomix.Uint64, maxThreads)}
}

// Registration is a live slot in a [ThreadRegistry]. It is not safe to use
// from more than one goroutine at a time, and must not outlive a single
// Release call.
type Registration struct {
	reg *ThreadRegistry
	id  int
}

// Enter claims a free slot and returns its Registration. Panics if every
// slot is occupied — a configuration error (MaxThreads too small), not a
// transient condition to retry.
func (r *ThreadRegistry) Enter() *Registration {
	token := r.next.AddAcqRel(1)
	for i := range r.slots {
		if r.slots[i].CompareAndSwapAcqRel(0, uint64(token)) {
			return &Registration{reg: r, id: i}
		}
	}
	panic("containers: thread registry exhausted")
}

// ID returns this registration's dense id, stable until Release.
func (reg *Registration) ID() int {
	return reg.id
}

// Release frees the slot for reuse by a future Enter call. The registration
// must not be used afterward.
func (reg *Registration) Release() {
	reg.reg.slots[reg.id].StoreRelease(0)
}
