// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers_test

import (
	"testing"

	"code.hybscloud.com/containers"
)

// =============================================================================
// SegmentedLruMap - Eviction Order Across Probation and Protected Segments
// =============================================================================

func TestSegmentedLruMapEvictionOrder(t *testing.T) {
	m := containers.NewSegmentedLruMap[int, int]()

	for _, kv := range [][2]int{{1, 100}, {2, 200}, {3, 300}} {
		if _, inserted := m.Emplace(kv[0], kv[1]); !inserted {
			t.Fatalf("Emplace(%d, %d): want inserted", kv[0], kv[1])
		}
	}

	mustEvictable := func(want int) {
		t.Helper()
		it, ok := m.Evictable()
		if !ok {
			t.Fatalf("Evictable: want ok")
		}
		if it.Key() != want {
			t.Fatalf("Evictable: got key %d, want %d", it.Key(), want)
		}
	}

	mustEvictable(1)

	if !m.Touch(1) {
		t.Fatalf("Touch(1): want true")
	}
	mustEvictable(2)

	it, ok := m.Evictable()
	if !ok {
		t.Fatalf("Evictable: want ok")
	}
	m.EraseIterator(it)
	mustEvictable(3)

	it, ok = m.Evictable()
	if !ok {
		t.Fatalf("Evictable: want ok")
	}
	m.EraseIterator(it)
	mustEvictable(1)

	if m.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", m.Len())
	}
}

func TestSegmentedLruMapEmplaceExistingPromotes(t *testing.T) {
	m := containers.NewSegmentedLruMap[string, int]()

	m.Emplace("a", 1)
	m.Emplace("b", 2)

	if _, inserted := m.Emplace("a", 999); inserted {
		t.Fatalf("Emplace on existing key: want inserted=false")
	}

	it, ok := m.Find("a")
	if !ok {
		t.Fatalf("Find(a): want ok")
	}
	if it.Value() != 1 {
		t.Fatalf("Find(a).Value(): got %d, want 1 (Emplace on existing key must not overwrite)", it.Value())
	}

	// "a" was re-emplaced (promoted to protected), so it is no longer the
	// evictable head; "b" (still probation, untouched) is.
	evict, ok := m.Evictable()
	if !ok || evict.Key() != "b" {
		t.Fatalf("Evictable: got (%v, %v), want (b, true)", evict.Key(), ok)
	}
}

func TestSegmentedLruMapFindDoesNotMutateOrder(t *testing.T) {
	m := containers.NewSegmentedLruMap[int, int]()
	m.Emplace(1, 10)
	m.Emplace(2, 20)

	if _, ok := m.Find(1); !ok {
		t.Fatalf("Find(1): want ok")
	}

	it, ok := m.Evictable()
	if !ok || it.Key() != 1 {
		t.Fatalf("Evictable after Find: got (%v, %v), want (1, true); Find must be a pure read", it.Key(), ok)
	}
}

func TestSegmentedLruMapEraseByKey(t *testing.T) {
	m := containers.NewSegmentedLruMap[int, int]()
	m.Emplace(1, 10)
	m.Emplace(2, 20)

	if !m.Erase(1) {
		t.Fatalf("Erase(1): want true")
	}
	if m.Erase(1) {
		t.Fatalf("Erase(1) again: want false")
	}
	if m.Len() != 1 {
		t.Fatalf("Len: got %d, want 1", m.Len())
	}

	it, ok := m.Evictable()
	if !ok || it.Key() != 2 {
		t.Fatalf("Evictable: got (%v, %v), want (2, true)", it.Key(), ok)
	}
}

func TestSegmentedLruMapEmptyEvictable(t *testing.T) {
	m := containers.NewSegmentedLruMap[int, int]()
	if _, ok := m.Evictable(); ok {
		t.Fatalf("Evictable on empty map: want !ok")
	}
}
