// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

// lruSegment identifies which of SegmentedLruMap's two lists a node
// currently belongs to.
type lruSegment int

const (
	segProbation lruSegment = iota
	segProtected
)

// lruNode is an intrusive record: the hash index and exactly one of the two
// lists both reference the same node, never a copy.
type lruNode[K comparable, V any] struct {
	key     K
	value   V
	segment lruSegment
	next    *lruNode[K, V]
	prev    *lruNode[K, V]
}

// lruList is a plain intrusive doubly linked list with no sentinel node,
// mirroring the teacher's boundary-pointer style rather than a
// container/list ring.
type lruList[K comparable, V any] struct {
	head *lruNode[K, V]
	tail *lruNode[K, V]
}

func (l *lruList[K, V]) empty() bool {
	return l.head == nil
}

func (l *lruList[K, V]) pushBack(n *lruNode[K, V]) {
	n.prev = l.tail
	n.next = nil
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
}

func (l *lruList[K, V]) erase(n *lruNode[K, V]) {
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	n.next, n.prev = nil, nil
}

// LruIterator references one entry of a [SegmentedLruMap]. The zero value
// is not valid; obtain one from Emplace, Find, or Evictable.
type LruIterator[K comparable, V any] struct {
	n *lruNode[K, V]
}

// Valid reports whether it references a live node.
func (it LruIterator[K, V]) Valid() bool {
	return it.n != nil
}

// Key returns the entry's key. Panics if !it.Valid().
func (it LruIterator[K, V]) Key() K {
	return it.n.key
}

// Value returns the entry's value. Panics if !it.Valid().
func (it LruIterator[K, V]) Value() V {
	return it.n.value
}

// SegmentedLruMap is an open-addressed-by-delegation hash index (a Go map,
// since Go's built-in map already performs open addressing under the hood
// and the corpus carries no standalone hash-table library) over intrusive
// nodes threaded by two segments: "probation" for first-time inserts and
// "protected" for entries touched at least twice. Eviction always prefers
// the least-recently-inserted probation entry over the least-recently-
// touched protected one, so a single scan rarely evicts something still
// being re-referenced.
//
// Not concurrency-safe: callers needing concurrent access must serialize
// externally, e.g. behind a mutex.
type SegmentedLruMap[K comparable, V any] struct {
	index              map[K]*lruNode[K, V]
	probation, protect lruList[K, V]
}

// NewSegmentedLruMap creates an empty map.
func NewSegmentedLruMap[K comparable, V any]() *SegmentedLruMap[K, V] {
	return &SegmentedLruMap[K, V]{index: make(map[K]*lruNode[K, V])}
}

// Emplace inserts (k, v) if k is absent, placing the new node at the tail
// of the probation list, and returns (iterator, true). If k is already
// present, the existing node is moved to the tail of the protected list —
// matching the first-insert/second-touch promotion rule — and returns
// (iterator, false) without overwriting its value.
func (m *SegmentedLruMap[K, V]) Emplace(k K, v V) (LruIterator[K, V], bool) {
	if n, ok := m.index[k]; ok {
		m.promote(n)
		return LruIterator[K, V]{n}, false
	}
	n := &lruNode[K, V]{key: k, value: v, segment: segProbation}
	m.index[k] = n
	m.probation.pushBack(n)
	return LruIterator[K, V]{n}, true
}

// Find returns the entry for k without mutating list order.
func (m *SegmentedLruMap[K, V]) Find(k K) (LruIterator[K, V], bool) {
	n, ok := m.index[k]
	if !ok {
		return LruIterator[K, V]{}, false
	}
	return LruIterator[K, V]{n}, true
}

// Touch moves k's entry to the tail of the protected list. Returns false
// if k is absent.
func (m *SegmentedLruMap[K, V]) Touch(k K) bool {
	n, ok := m.index[k]
	if !ok {
		return false
	}
	m.promote(n)
	return true
}

// TouchIterator moves it's entry to the tail of the protected list.
func (m *SegmentedLruMap[K, V]) TouchIterator(it LruIterator[K, V]) {
	m.promote(it.n)
}

func (m *SegmentedLruMap[K, V]) promote(n *lruNode[K, V]) {
	m.listFor(n.segment).erase(n)
	n.segment = segProtected
	m.protect.pushBack(n)
}

// Erase removes k's entry. Returns false if k is absent.
func (m *SegmentedLruMap[K, V]) Erase(k K) bool {
	n, ok := m.index[k]
	if !ok {
		return false
	}
	m.eraseNode(n)
	return true
}

// EraseIterator removes it's entry, whether it came from Find, Emplace, or
// Evictable.
func (m *SegmentedLruMap[K, V]) EraseIterator(it LruIterator[K, V]) {
	m.eraseNode(it.n)
}

func (m *SegmentedLruMap[K, V]) eraseNode(n *lruNode[K, V]) {
	m.listFor(n.segment).erase(n)
	delete(m.index, n.key)
}

func (m *SegmentedLruMap[K, V]) listFor(s lruSegment) *lruList[K, V] {
	if s == segProbation {
		return &m.probation
	}
	return &m.protect
}

// Evictable returns the entry eviction should reclaim next: the head of
// the probation list if non-empty, else the head of the protected list.
// Callers should rely on no other eviction order.
func (m *SegmentedLruMap[K, V]) Evictable() (LruIterator[K, V], bool) {
	if !m.probation.empty() {
		return LruIterator[K, V]{m.probation.head}, true
	}
	if !m.protect.empty() {
		return LruIterator[K, V]{m.protect.head}, true
	}
	return LruIterator[K, V]{}, false
}

// Len returns the number of entries.
func (m *SegmentedLruMap[K, V]) Len() int {
	return len(m.index)
}

// Range calls fn for every entry in unspecified order, stopping early if
// fn returns false. Mutating the map from within fn is not supported.
func (m *SegmentedLruMap[K, V]) Range(fn func(k K, v V) bool) {
	for k, n := range m.index {
		if !fn(k, n.value) {
			return
		}
	}
}
