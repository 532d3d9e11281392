// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build race

package containers

// RaceEnabled is true when the race detector is active.
// Used by tests to scale down the worker and item counts of their
// high-contention stress tests on the lock-free containers, which run far
// slower under the race detector's happens-before tracker.
const RaceEnabled = true
