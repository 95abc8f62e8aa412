// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import (
	"fmt"
	"os"
	"time"

	"github.com/jacobsa/syncutil"
	"github.com/jacobsa/timeutil"
)

// InodeID uniquely identifies an inode within one VFS instance.
type InodeID uint64

// Inode is spec.md §3's intrinsic file-system object: mode, owner, size,
// an optional backend handle, and a reference count. Destruction happens
// exactly when the count drops to zero (spec.md §3 Inode invariants).
type Inode struct {
	clock timeutil.Clock

	// Immutable for the inode's lifetime.
	id      InodeID
	backend Backend // nil for the synthetic in-memory tree

	mu syncutil.InvariantMutex

	// INVARIANT: mode&^(os.ModePerm|os.ModeDir) == 0
	// INVARIANT: the os.ModeDir bit of mode never changes after creation
	mode refcountedMode // GUARDED_BY(mu)

	uid, gid uint32 // GUARDED_BY(mu); ownership may change via chown, not modeled here

	// INVARIANT: size >= 0
	size int64 // GUARDED_BY(mu)

	mtime time.Time // GUARDED_BY(mu)

	// INVARIANT: refcount >= 0
	refcount int32 // GUARDED_BY(mu)

	hasHandle bool          // GUARDED_BY(mu)
	handle    BackendHandle // GUARDED_BY(mu); valid iff hasHandle
}

// refcountedMode is a plain alias of os.FileMode. checkInvariants does
// not compare the directory bit with its value at creation; nothing in
// this package assigns mode after newInode.
type refcountedMode = os.FileMode

// newInode returns an inode with reference count 1 (spec.md §4.6).
func newInode(
	clock timeutil.Clock,
	id InodeID,
	mode os.FileMode,
	uid, gid uint32,
	backend Backend) *Inode {
	in := &Inode{
		clock:    clock,
		id:       id,
		backend:  backend,
		mode:     mode,
		uid:      uid,
		gid:      gid,
		refcount: 1,
	}
	in.mtime = clock.Now()
	in.mu = syncutil.NewInvariantMutex(in.checkInvariants)
	return in
}

func (in *Inode) checkInvariants() {
	if in.mode&^(os.ModePerm|os.ModeDir) != 0 {
		panic(fmt.Sprintf("unexpected mode: %v", in.mode))
	}
	if in.size < 0 {
		panic(fmt.Sprintf("negative size: %d", in.size))
	}
	if in.refcount < 0 {
		panic(fmt.Sprintf("negative refcount: %d", in.refcount))
	}
}

// IsDir reports whether this inode is a directory. The bit is fixed for
// the inode's lifetime (spec.md §3).
func (in *Inode) IsDir() (isDir bool) {
	in.mu.Lock()
	isDir = in.mode&os.ModeDir != 0
	in.mu.Unlock()
	return
}

// acquire increments the reference count under the inode lock.
func (in *Inode) acquire() {
	in.mu.Lock()
	in.refcount++
	in.mu.Unlock()
}

// release decrements the reference count and, on transition to zero,
// destroys the inode: closes its backend handle, if any (spec.md §9's
// resolution of the "does vfs_close release the backend handle" open
// question -- deferred here to last-reference release rather than to
// every vfs_close).
func (in *Inode) release() {
	in.mu.Lock()
	in.refcount--
	if in.refcount < 0 {
		in.mu.Unlock()
		panic("Inode.release: refcount went negative")
	}
	destroy := in.refcount == 0
	var backend Backend
	var handle BackendHandle
	if destroy && in.hasHandle {
		backend, handle = in.backend, in.handle
		in.hasHandle = false
	}
	in.mu.Unlock()

	if destroy && backend != nil {
		backend.Close(handle)
	}
}

// ID returns the inode number.
func (in *Inode) ID() InodeID { return in.id }

// Size returns the current logical size.
func (in *Inode) Size() (n int64) {
	in.mu.Lock()
	n = in.size
	in.mu.Unlock()
	return
}

// Mode returns the current file-type-and-permission bits.
func (in *Inode) Mode() (m os.FileMode) {
	in.mu.Lock()
	m = in.mode
	in.mu.Unlock()
	return
}

// Owner returns the owning uid and gid.
func (in *Inode) Owner() (uid, gid uint32) {
	in.mu.Lock()
	uid, gid = in.uid, in.gid
	in.mu.Unlock()
	return
}

// Mtime returns the last-modified time recorded for this inode.
func (in *Inode) Mtime() (t time.Time) {
	in.mu.Lock()
	t = in.mtime
	in.mu.Unlock()
	return
}

// Backend returns the backend this inode's handle (if any) belongs to.
// A nil result means this inode is part of the synthetic, zero-filled
// in-memory tree (spec.md §4.9's fallback model).
func (in *Inode) Backend() Backend { return in.backend }

// BackendHandle returns the bound backend handle, if one has been
// opened yet.
func (in *Inode) BackendHandle() (h BackendHandle, ok bool) {
	in.mu.Lock()
	h, ok = in.handle, in.hasHandle
	in.mu.Unlock()
	return
}

// SetBackendHandle binds a backend handle obtained via a lazy open
// (spec.md §4.9 step 3: "if the dentry's inode still lacks a backend
// handle... open through the backend to obtain one").
func (in *Inode) SetBackendHandle(h BackendHandle) {
	in.mu.Lock()
	in.handle, in.hasHandle = h, true
	in.mu.Unlock()
}

// growSize extends the recorded size to at least newSize. Writes that
// extend a file must update size monotonically (spec.md §4.9).
func (in *Inode) growSize(newSize int64) {
	in.mu.Lock()
	if newSize > in.size {
		in.size = newSize
	}
	in.mtime = in.clock.Now()
	in.mu.Unlock()
}

// setSize sets the recorded size exactly. Its only caller is Open's
// OpenTruncate handling for the synthetic (no-backend) tree.
func (in *Inode) setSize(n int64) {
	in.mu.Lock()
	in.size = n
	in.mu.Unlock()
}
