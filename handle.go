// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import "sync"

// handleTableCapacity is the fixed capacity of the file-handle table
// (spec.md §4.7 suggests 1024 slots).
const handleTableCapacity = 1024

// Handle is a caller-visible file descriptor. External handles are
// 1-based; handle h references table slot h-1 (spec.md §3).
type Handle int

// handleSlot is a per-open record bridging a Handle to
// (dentry, backend handle translation, position, flags). Each slot has
// its own mutex, never held simultaneously with a dentry or inode lock
// (spec.md §5).
type handleSlot struct {
	mu       sync.Mutex
	inUse    bool
	dentry   *Dentry
	flags    OpenFlags
	position int64
}

// handleTable is the fixed-capacity array of handleSlots.
type handleTable struct {
	slots [handleTableCapacity]handleSlot
}

func newHandleTable() *handleTable {
	return &handleTable{}
}

// alloc scans for the first free slot, taking it and pinning dentry
// with a logical reference (the dentry must remain reachable for as
// long as the handle is open). Returns ErrTooManyOpenFiles if every
// slot is in use.
func (t *handleTable) alloc(dentry *Dentry, flags OpenFlags) (Handle, error) {
	for i := range t.slots {
		s := &t.slots[i]
		s.mu.Lock()
		if !s.inUse {
			s.inUse = true
			s.dentry = dentry
			s.flags = flags
			s.position = 0
			s.mu.Unlock()
			return Handle(i + 1), nil
		}
		s.mu.Unlock()
	}
	return 0, ErrTooManyOpenFiles
}

// get validates h's bounds and in-use flag, returning the slot for the
// caller to use under its own lock discipline.
func (t *handleTable) get(h Handle) (*handleSlot, error) {
	if h < 1 || int(h) > len(t.slots) {
		return nil, ErrBadFileDescriptor
	}
	s := &t.slots[h-1]
	s.mu.Lock()
	inUse := s.inUse
	s.mu.Unlock()
	if !inUse {
		return nil, ErrBadFileDescriptor
	}
	return s, nil
}

// free clears a slot. Returns ErrBadFileDescriptor if h is unknown or
// already freed, so a handle's second close fails (spec.md §8
// invariant 8).
func (t *handleTable) free(h Handle) error {
	if h < 1 || int(h) > len(t.slots) {
		return ErrBadFileDescriptor
	}
	s := &t.slots[h-1]

	s.mu.Lock()
	if !s.inUse {
		s.mu.Unlock()
		return ErrBadFileDescriptor
	}
	s.inUse = false
	s.dentry = nil
	s.mu.Unlock()
	return nil
}

// allInUse returns every currently in-use slot's handle, for shutdown
// to drain (spec.md §4.7: "Shutdown must free all in-use slots before
// destroying mounts").
func (t *handleTable) allInUse() []Handle {
	var out []Handle
	for i := range t.slots {
		s := &t.slots[i]
		s.mu.Lock()
		if s.inUse {
			out = append(out, Handle(i+1))
		}
		s.mu.Unlock()
	}
	return out
}
