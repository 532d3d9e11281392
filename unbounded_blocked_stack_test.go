// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers_test

import (
	"sync"
	"testing"

	"code.hybscloud.com/containers"
)

// =============================================================================
// UnboundedBlockedStack - Basic Operations, Spanning Multiple Blocks
// =============================================================================

func TestUnboundedBlockedStackBasic(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
	s := containers.NewUnboundedBlockedStack[int](registry, 4)
	reg := registry.Enter()
	defer reg.Release()

	// Push enough to span three inner blocks.
	const n = 10
	for i := range n {
		s.Push(reg, i)
	}

	for i := n - 1; i >= 0; i-- {
		v, ok := s.Pop(reg)
		if !ok {
			t.Fatalf("Pop(%d): want ok", i)
		}
		if v != i {
			t.Fatalf("Pop(%d): got %d, want %d (LIFO order)", i, v, i)
		}
	}

	if _, ok := s.Pop(reg); ok {
		t.Fatalf("Pop on empty: want !ok")
	}
}

// =============================================================================
// UnboundedBlockedStack - Concurrent Push/Pop Across Block Boundaries
// =============================================================================

func TestUnboundedBlockedStackConcurrent(t *testing.T) {
	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
	s := containers.NewUnboundedBlockedStack[int](registry, 8)

	workers := 6
	perWorker := 2000
	if containers.RaceEnabled {
		workers = 3
		perWorker = 200
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reg := registry.Enter()
			defer reg.Release()
			for i := 0; i < perWorker; i++ {
				s.Push(reg, i)
			}
		}()
	}
	wg.Wait()

	reg := registry.Enter()
	defer reg.Release()

	seen := 0
	for {
		if _, ok := s.Pop(reg); ok {
			seen++
		} else {
			break
		}
	}
	if seen != workers*perWorker {
		t.Fatalf("popped %d entries, want %d", seen, workers*perWorker)
	}
}
