// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import "sync"

// mountEntry binds a namespace prefix to a backend (spec.md §3 "Mount
// entry"). mountpoint is stored normalized; the backend field is nil for
// the synthetic in-memory root mount.
type mountEntry struct {
	mountpoint  string
	backendRoot string
	backend     Backend // attached instance (result of Backend.Init), nil if none
	root        *Dentry

	next *mountEntry // intrusive link into the mount list
}

// mountTable is a singly-linked list, head-protected by a single mutex
// (spec.md §4.3). Insertions push to the head; removals splice out the
// match.
type mountTable struct {
	mu   sync.Mutex
	head *mountEntry
}

func newMountTable() *mountTable {
	return &mountTable{}
}

func (t *mountTable) insert(m *mountEntry) {
	t.mu.Lock()
	m.next = t.head
	t.head = m
	t.mu.Unlock()
}

// removeByMountpoint splices out the entry with an exact mountpoint
// match, returning it (or nil if not found).
func (t *mountTable) removeByMountpoint(mountpoint string) *mountEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.head == nil {
		return nil
	}
	if t.head.mountpoint == mountpoint {
		m := t.head
		t.head = m.next
		m.next = nil
		return m
	}
	for e := t.head; e.next != nil; e = e.next {
		if e.next.mountpoint == mountpoint {
			m := e.next
			e.next = m.next
			m.next = nil
			return m
		}
	}
	return nil
}

// isPathBoundary reports whether a prefix match of mountpoint against
// path ends on a legal boundary: the character immediately after the
// match is either end-of-string or a separator, so "/ab" never matches
// a mountpoint of "/a" (spec.md §4.3).
func isPathBoundary(path, mountpoint string) bool {
	if len(path) == len(mountpoint) {
		return true
	}
	if mountpoint == "/" {
		return true
	}
	return path[len(mountpoint)] == '/'
}

// findBestMount selects the mount with the longest mountpoint that is a
// prefix of path, honoring the boundary rule above. On a tie, the first
// entry encountered while walking the list from the head wins, which is
// deterministic given insertion order (spec.md §4.3).
func (t *mountTable) findBestMount(path string) *mountEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var best *mountEntry
	for e := t.head; e != nil; e = e.next {
		if len(path) < len(e.mountpoint) {
			continue
		}
		if path[:len(e.mountpoint)] != e.mountpoint {
			continue
		}
		if !isPathBoundary(path, e.mountpoint) {
			continue
		}
		if best == nil || len(e.mountpoint) > len(best.mountpoint) {
			best = e
		}
	}
	return best
}

// snapshot returns every live mount entry. Used only by Shutdown's
// unmount-all loop; Read and Write never scan the mount list, since a
// backend-backed inode carries its own backend pointer.
func (t *mountTable) snapshot() []*mountEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []*mountEntry
	for e := t.head; e != nil; e = e.next {
		out = append(out, e)
	}
	return out
}
