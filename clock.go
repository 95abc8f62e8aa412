// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import (
	"sync/atomic"

	"github.com/jacobsa/timeutil"
)

// accessCounter is the strictly increasing integer spec.md §2 item 1
// calls for: a monotonic counter used for access ordering in optional
// caches (e.g. an LRU eviction policy a backend might layer on top of
// the dentry cache). The core itself only hands out ticks; it does not
// interpret them.
type accessCounter struct {
	n int64
}

// tick returns a value strictly greater than every value previously
// returned by this counter.
func (c *accessCounter) tick() int64 {
	return atomic.AddInt64(&c.n, 1)
}

// defaultClock is the production timeutil.Clock used when a VFS is
// constructed without an explicit one supplied, exactly as
// samples/memfs/mem_fs.go takes a timeutil.Clock dependency rather than
// calling time.Now() directly, so tests can inject a fake.
func defaultClock() timeutil.Clock {
	return timeutil.RealClock()
}
