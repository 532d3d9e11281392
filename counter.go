// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package containers

import "code.hybscloud.com/atomix"

// Counter is a per-thread sharded accumulator: each [Registration] writes
// only to its own shard, so concurrent increments never contend on a single
// cache line. Sum folds the shards with a relaxed load, making it an
// approximate read under concurrent writers — exact only once all writers
// have quiesced.
//
// The lock-free containers in this package deliberately do not expose an
// exact Len(): computing one would require either a single contended atomic
// on every push/pop or a full-container scan. Counter is the idiomatic
// alternative for callers who want queue-depth telemetry without paying
// either cost.
type Counter struct {
	shards []counterShard
}

type counterShard struct {
	v atomix.Int64
	_ padShort
}

// NewCounter creates a Counter with one shard per slot of reg.
func NewCounter(reg *ThreadRegistry) *Counter {
	return &Counter{shards: make([]counterShard, len(reg.slots))}
}

// Add adds delta to the shard owned by reg. delta may be negative.
func (c *Counter) Add(reg *Registration, delta int64) {
	c.shards[reg.id].v.AddAcqRel(delta)
}

// Get reads back the shard owned by reg, without folding in any other
// shard. Used by callers that only ever care about their own thread's
// running count, e.g. a per-thread cadence check, where Sum's full scan
// across every shard would be wasted work.
func (c *Counter) Get(reg *Registration) int64 {
	return c.shards[reg.id].v.LoadRelaxed()
}

// Sum folds all shards into an approximate total.
func (c *Counter) Sum() int64 {
	var total int64
	for i := range c.shards {
		total += c.shards[i].v.LoadRelaxed()
	}
	return total
}
