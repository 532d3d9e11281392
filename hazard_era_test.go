// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/containers"
)

// =============================================================================
// HazardEraAllocator - Deleter Runs Only After Retirement Quiesces
// =============================================================================

func TestHazardEraAllocatorDeleterRunsEventually(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)

	var deleted atomic.Int64
	alloc := containers.NewHazardEraAllocator[int](registry, 1, func(p *int) {
		deleted.Add(1)
	})

	reg := registry.Enter()
	defer reg.Release()

	for i := 0; i < 64; i++ {
		p := alloc.Allocate(i)
		g := alloc.Guard(reg)
		alloc.Retire(reg, p)
		g.Release()
	}
	alloc.Cleanup(reg)

	if deleted.Load() != 64 {
		t.Fatalf("deleted: got %d, want 64", deleted.Load())
	}
}

func TestHazardEraAllocatorProtectNil(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
	alloc := containers.NewHazardEraAllocator[int](registry, containers.DefaultHazardEraFreq, nil)
	reg := registry.Enter()
	defer reg.Release()

	g := alloc.Guard(reg)
	defer g.Release()

	var addr atomix.Uint64 // zero value: unpublished pointer
	if p := alloc.Protect(&addr); p != nil {
		t.Fatalf("Protect on zero addr: got non-nil, want nil")
	}
}

func TestHazardEraAllocatorGuardDoubleReleasePanics(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
	alloc := containers.NewHazardEraAllocator[int](registry, containers.DefaultHazardEraFreq, nil)
	reg := registry.Enter()
	defer reg.Release()

	g := alloc.Guard(reg)
	g.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("second Release: want panic")
		}
	}()
	g.Release()
}

// =============================================================================
// ThreadRegistry - Slot Reuse
// =============================================================================

func TestThreadRegistryReusesReleasedSlots(t *testing.T) {
	registry := containers.NewThreadRegistry(2)

	r1 := registry.Enter()
	r2 := registry.Enter()
	if r1.ID() == r2.ID() {
		t.Fatalf("two live registrations share id %d", r1.ID())
	}

	r1.Release()
	r3 := registry.Enter()
	if r3.ID() != r1.ID() {
		t.Fatalf("Enter after Release: got id %d, want reused id %d", r3.ID(), r1.ID())
	}
	r2.Release()
	r3.Release()
}

func TestThreadRegistryExhaustionPanics(t *testing.T) {
	registry := containers.NewThreadRegistry(1)
	reg := registry.Enter()
	defer reg.Release()

	defer func() {
		if recover() == nil {
			t.Fatalf("Enter beyond capacity: want panic")
		}
	}()
	registry.Enter()
}

// =============================================================================
// Backoff - Doubles Up To Max, Resets On Demand
// =============================================================================

func TestBackoffDoublesAndCaps(t *testing.T) {
	bo := containers.NewBackoff(4, 16)
	if bo.State() != 4 {
		t.Fatalf("initial state: got %d, want 4", bo.State())
	}
	bo.Spin()
	if bo.State() != 8 {
		t.Fatalf("after 1 spin: got %d, want 8", bo.State())
	}
	bo.Spin()
	if bo.State() != 16 {
		t.Fatalf("after 2 spins: got %d, want 16", bo.State())
	}
	bo.Spin()
	if bo.State() != 16 {
		t.Fatalf("after 3 spins: got %d, want capped at 16", bo.State())
	}
	bo.Reset()
	if bo.State() != 4 {
		t.Fatalf("after Reset: got %d, want 4", bo.State())
	}
}

// =============================================================================
// Counter - Sharded Accumulation Under Concurrency
// =============================================================================

func TestCounterSumUnderConcurrency(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
	c := containers.NewCounter(registry)

	workers := 8
	perWorker := 1000
	if containers.RaceEnabled {
		workers = 4
		perWorker = 100
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg := registry.Enter()
			defer reg.Release()
			for i := 0; i < perWorker; i++ {
				c.Add(reg, 1)
			}
		}()
	}
	wg.Wait()

	if got, want := c.Sum(), int64(workers*perWorker); got != want {
		t.Fatalf("Sum: got %d, want %d", got, want)
	}
}
