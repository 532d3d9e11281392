// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/atomix"

// Atomic128 is a linearisable atomic load/store/CAS over a 16-byte word,
// represented as a (lo, hi uint64) pair. It delegates to the platform's
// native 128-bit CAS where available and to a synthesised CAS16 elsewhere;
// both are [atomix.Uint128]'s concern, not this type's.
//
// [BoundedStack] packs {index, counter, value} triples into the (lo, hi)
// halves; [BBQ] and other callers are free to pack their own 128-bit
// aggregates the same way.
type Atomic128 struct {
	w atomix.Uint128
}

// Load returns the current (lo, hi) halves with acquire ordering.
func (a *Atomic128) Load() (lo, hi uint64) {
	return a.w.LoadAcquire()
}

// Store replaces the word with release ordering.
func (a *Atomic128) Store(lo, hi uint64) {
	a.w.StoreRelease(lo, hi)
}

// CompareAndSwap succeeds iff the current word bit-equals (oldLo, oldHi),
// in which case it is replaced with (newLo, newHi). Uses acquire-release
// ordering on both success and failure.
func (a *Atomic128) CompareAndSwap(oldLo, oldHi, newLo, newHi uint64) bool {
	return a.w.CompareAndSwapAcqRel(oldLo, oldHi, newLo, newHi)
}
