// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package containers provides lock-free and cache-aware in-memory data
// structures for latency-sensitive systems: schedulers, storage engines,
// routing layers. It is a component toolkit, not an application — there is
// no wire protocol, no CLI, no persisted format.
//
// # Memory reclamation
//
// [HazardEraAllocator] lets lock-free producers retire nodes that concurrent
// readers may still be dereferencing, without blocking and without
// reference counting on the hot path:
//
//	registry := containers.NewThreadRegistry(containers.DefaultMaxThreads)
//	alloc := containers.NewHazardEraAllocator[myNode](registry, containers.DefaultHazardEraFreq, nil)
//	reg := registry.Enter()
//	defer reg.Release()
//	g := alloc.Guard(reg)
//	defer g.Release()
//	n := alloc.Protect(&head)
//
// # Stacks and queues
//
// [UnboundedStack] is a Treiber stack over [HazardEraAllocator].
// [BoundedStack] is a Shavit/Zeev array-based lock-free stack for small
// trivially copyable payloads. [UnboundedQueue] is a Michael-Scott
// two-lock-free-pointer FIFO. [BoundedQueue] is an array-based MPMC FIFO
// with separate producer/consumer cursors. [BBQ] is a block-based bounded
// FIFO that amortizes cursor contention across blocks.
//
//	s := containers.NewBoundedStack[int](64)
//	s.Push(1)
//	v, ok := s.Pop()
//
// [UnboundedBlockedStack] composes [BoundedStack] blocks into an unbounded
// structure with O(block) reclamation instead of O(node).
//
// # Growable array
//
// [GrowableArray] is a single-writer, many-reader append-only array: readers
// never block the writer, and the writer never invalidates a reader's
// existing index.
//
// # Cache
//
// [SegmentedLruMap] is a single-threaded segmented LRU cache: an
// open-addressed hash index plus two doubly linked eviction segments
// ("probation" and "protected").
//
// # Concurrency
//
// All lock-free containers retry through CAS loops moderated by [Backoff];
// none of them block. None claim wait-freedom, only lock-freedom. Containers
// marked single-writer or single-threaded in their doc comment are not safe
// for concurrent use outside that constraint — callers must serialize access
// themselves (e.g. with a mutex) if they need to violate it.
package containers
