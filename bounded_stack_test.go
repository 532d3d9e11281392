// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/containers"
)

// =============================================================================
// BoundedStack - Basic Operations
// =============================================================================

func TestBoundedStackBasic(t *testing.T) {
	s := containers.NewBoundedStack[int](4)

	if s.Cap() != 4 {
		t.Fatalf("Cap: got %d, want 4", s.Cap())
	}

	for i := range 4 {
		if !s.Push(i + 100) {
			t.Fatalf("Push(%d): want true", i)
		}
	}

	if s.Push(999) {
		t.Fatalf("Push on full: want false")
	}

	for i := 3; i >= 0; i-- {
		v, ok := s.Pop()
		if !ok {
			t.Fatalf("Pop(%d): want ok", i)
		}
		if v != i+100 {
			t.Fatalf("Pop(%d): got %d, want %d", i, v, i+100)
		}
	}

	if _, ok := s.Pop(); ok {
		t.Fatalf("Pop on empty: want !ok")
	}
}

func TestBoundedStackRejectsOversizedPayload(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("NewBoundedStack[large]: want panic")
		}
	}()
	type large struct{ a, b, c uint64 }
	containers.NewBoundedStack[large](4)
}

// =============================================================================
// BoundedStack - Concurrent Stress
// =============================================================================

func TestBoundedStackConcurrent(t *testing.T) {
	const capacity = 64
	workers := 8
	opsPerWorker := 2000
	if containers.RaceEnabled {
		workers = 4
		opsPerWorker = 200
	}

	s := containers.NewBoundedStack[int](capacity)
	var pushed, popped atomic.Int64
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				for !s.Push(i) {
					if _, ok := s.Pop(); ok {
						popped.Add(1)
					}
				}
				pushed.Add(1)
			}
		}()
	}
	wg.Wait()

	for {
		if _, ok := s.Pop(); ok {
			popped.Add(1)
		} else {
			break
		}
	}

	if pushed.Load() != popped.Load() {
		t.Fatalf("pushed/popped mismatch: pushed=%d popped=%d", pushed.Load(), popped.Load())
	}
}
