// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import (
	"os"
	"strings"
	"sync/atomic"

	"github.com/jacobsa/timeutil"
)

// resolveMode gates the path resolver's auto-materialization policy
// (spec.md §4.5, §9: "gated behind an explicit flag").
type resolveMode int

const (
	// ResolveRequireExisting fails with ErrNoEntry on a missing component.
	ResolveRequireExisting resolveMode = iota
	// ResolveCreateMissing auto-materializes a missing component as a
	// fresh directory (spec.md §4.5 step 5).
	ResolveCreateMissing
)

// VFS is the public namespace object: the mount table, the directory
// cache it roots, the file-handle table, and the backend registry
// (spec.md §2 item 10). New returns the zero value; call Init before
// any other method.
type VFS struct {
	initialized int32 // atomic 0/1

	registry    *backendRegistry
	mounts      *mountTable
	handles     *handleTable
	clock       timeutil.Clock
	nextInodeID uint64 // atomic
	access      accessCounter
}

// New returns an uninitialized VFS. Call Init before use.
func New() *VFS {
	return &VFS{}
}

func (v *VFS) isInitialized() bool {
	return atomic.LoadInt32(&v.initialized) == 1
}

func (v *VFS) allocInodeID() InodeID {
	return InodeID(atomic.AddUint64(&v.nextInodeID, 1))
}

func (v *VFS) newSyntheticDirInode(mode os.FileMode, uid, gid uint32) *Inode {
	return newInode(v.clock, v.allocInodeID(), os.ModeDir|mode, uid, gid, nil)
}

// attachNewDentry wraps a freshly created inode (refcount 1) in a new
// dentry and transfers ownership of that initial reference to the
// dentry, per the create-then-release pattern implied by spec.md §4.6
// ("dentry_create... acquires a reference on the inode").
func attachNewDentry(name string, parent *Dentry, in *Inode) *Dentry {
	d := newDentry(name, parent, in)
	in.release()
	return d
}

// Init creates the backend registry, the file-handle table, and a
// single default in-memory root mount with a small sample tree
// (spec.md §2's lifecycle summary). It is an error to call Init twice
// without an intervening Shutdown.
func (v *VFS) Init() error {
	if !atomic.CompareAndSwapInt32(&v.initialized, 0, 1) {
		return ErrIO
	}

	v.registry = newBackendRegistry()
	v.mounts = newMountTable()
	v.handles = newHandleTable()
	if v.clock == nil {
		v.clock = defaultClock()
	}

	rootInode := v.newSyntheticDirInode(0755, 0, 0)
	rootDentry := newDentry("/", nil, rootInode)
	rootInode.release()
	v.mounts.insert(&mountEntry{mountpoint: "/", root: rootDentry})

	// A small sample tree, as spec.md §2's lifecycle summary calls for.
	tmpInode := v.newSyntheticDirInode(0777, 0, 0)
	rootDentry.addChild(attachNewDentry("tmp", rootDentry, tmpInode))

	return nil
}

// Shutdown drains all handles, unmounts every backend, and destroys
// every dentry tree (spec.md §4's lifecycle summary). Must not be
// called concurrently with any other VFS method (spec.md §5).
func (v *VFS) Shutdown() error {
	if !v.isInitialized() {
		return ErrIO
	}

	for _, h := range v.handles.allInUse() {
		v.closeHandle(h)
	}

	for _, m := range v.mounts.snapshot() {
		v.mounts.removeByMountpoint(m.mountpoint)
		destroyTree(m.root)
		if m.backend != nil {
			m.backend.Shutdown()
		}
	}

	v.registry.clear()
	atomic.StoreInt32(&v.initialized, 0)
	return nil
}

// RegisterBackend makes a backend type available to Mount by name
// (spec.md §4.2).
func (v *VFS) RegisterBackend(ops Backend) error {
	if !v.isInitialized() {
		return ErrIO
	}
	return v.registry.register(ops)
}

// Mount binds mountpoint to a new instance of the named backend type
// (spec.md §4.9 mount_backend). On backend-init failure no mount entry
// is created.
func (v *VFS) Mount(mountpoint, backendRoot, typeName string) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if !isAbsolute(mountpoint) {
		return ErrInvalidArgument
	}

	proto, ok := v.registry.find(typeName)
	if !ok {
		return ErrNoSuchDevice
	}

	inst, err := proto.Init(backendRoot)
	if err != nil {
		return toErrno(err)
	}

	norm := Normalize(mountpoint)
	rootInode := v.newSyntheticDirInode(0755, 0, 0)
	rootDentry := newDentry("/", nil, rootInode)
	rootInode.release()

	v.mounts.insert(&mountEntry{
		mountpoint:  norm,
		backendRoot: backendRoot,
		backend:     inst,
		root:        rootDentry,
	})
	return nil
}

// Unmount tears down the mount at the exact mountpoint given, shutting
// its backend down after its dentry subtree is destroyed (spec.md §3,
// §4.9 unmount_backend).
func (v *VFS) Unmount(mountpoint string) error {
	if !v.isInitialized() {
		return ErrIO
	}
	norm := Normalize(mountpoint)

	entry := v.mounts.removeByMountpoint(norm)
	if entry == nil {
		return ErrNoEntry
	}

	destroyTree(entry.root)
	if entry.backend != nil {
		return toErrno(entry.backend.Shutdown())
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
// Path resolution
////////////////////////////////////////////////////////////////////////

// resolve walks the dentry tree for norm (already-normalized, absolute)
// under the best-matching mount, materializing missing directories when
// mode is ResolveCreateMissing (spec.md §4.5).
func (v *VFS) resolve(norm string, mode resolveMode) (*Dentry, *mountEntry, error) {
	m := v.mounts.findBestMount(norm)
	if m == nil {
		return nil, nil, ErrNoEntry
	}
	if norm == m.mountpoint {
		return m.root, m, nil
	}

	cur := m.root
	for _, comp := range splitAfterPrefix(norm, m.mountpoint) {
		child, ok := cur.lookupChild(comp)
		if !ok {
			if mode == ResolveRequireExisting {
				return nil, nil, ErrNoEntry
			}
			in := v.newSyntheticDirInode(0755, 0, 0)
			child = attachNewDentry(comp, cur, in)
			cur.addChild(child)
		}
		cur = child
	}
	return cur, m, nil
}

// resolveForOpen behaves like resolve but, when materializing the final
// path component for a create, makes it a regular file with fileMode
// instead of a directory (spec.md §4.5's auto-materialization policy is
// specified for the generic resolver; Open/Create specialize the leaf
// so "create a file" does what it says). Intermediate missing
// components are still materialized as directories.
func (v *VFS) resolveForOpen(norm string, fileMode os.FileMode) (d *Dentry, m *mountEntry, created bool, err error) {
	m = v.mounts.findBestMount(norm)
	if m == nil {
		return nil, nil, false, ErrNoEntry
	}
	if norm == m.mountpoint {
		return m.root, m, false, nil
	}

	comps := splitAfterPrefix(norm, m.mountpoint)
	cur := m.root
	for i, comp := range comps {
		child, ok := cur.lookupChild(comp)
		if !ok {
			var in *Inode
			if i == len(comps)-1 {
				in = newInode(v.clock, v.allocInodeID(), fileMode&os.ModePerm, 0, 0, nil)
				created = true
			} else {
				in = v.newSyntheticDirInode(0755, 0, 0)
			}
			child = attachNewDentry(comp, cur, in)
			cur.addChild(child)
		}
		cur = child
	}
	return cur, m, created, nil
}

func relativePath(norm string, mountpoint string) string {
	return strings.Join(splitAfterPrefix(norm, mountpoint), "/")
}

////////////////////////////////////////////////////////////////////////
// Open / Close / Read / Write
////////////////////////////////////////////////////////////////////////

// Open resolves path and allocates a file handle (spec.md §4.9). Unlike
// Create, it materializes a missing path under OpenCreate with the
// default mode 0644.
func (v *VFS) Open(path string, flags OpenFlags) (Handle, error) {
	return v.open(path, flags, 0644)
}

// Create is equivalent to Open with OpenCreate|OpenExclusive|OpenReadWrite
// (spec.md §4.9).
func (v *VFS) Create(path string, mode os.FileMode) (Handle, error) {
	return v.open(path, OpenCreate|OpenExclusive|OpenReadWrite, mode)
}

func (v *VFS) open(path string, flags OpenFlags, mode os.FileMode) (Handle, error) {
	if !v.isInitialized() {
		return 0, ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return 0, ErrInvalidArgument
	}
	norm := Normalize(path)

	m := v.mounts.findBestMount(norm)
	if m == nil {
		return 0, ErrNoEntry
	}

	// spec.md §4.9 step 2: backend present and create flag set.
	if m.backend != nil && flags&OpenCreate != 0 {
		rel := relativePath(norm, m.mountpoint)
		bh, err := m.backend.Open(rel, flags, mode)
		if err != nil {
			return 0, toErrno(err)
		}

		in := newInode(v.clock, v.allocInodeID(), mode&os.ModePerm, 0, 0, m.backend)
		in.SetBackendHandle(bh)

		name := lastComponent(norm)
		d := newDentry(name, nil, in) // detached: no parent linkage (spec.md §4.9 step 2)
		in.release()

		return v.handles.alloc(d, flags)
	}

	// spec.md §4.9 step 3: resolve, refusing directories, checking
	// permission, lazily opening a backend handle if needed.
	var d *Dentry
	var err error
	if flags&OpenCreate != 0 {
		var created bool
		d, m, created, err = v.resolveForOpen(norm, mode)
		if err == nil && flags&OpenExclusive != 0 && !created {
			return 0, ErrExists
		}
	} else {
		d, m, err = v.resolve(norm, ResolveRequireExisting)
	}
	if err != nil {
		return 0, err
	}

	if d.Inode().IsDir() {
		return 0, ErrIsDirectory
	}

	mask := maskFromOpenFlags(flags)
	if err := v.checkInodePermission(d.Inode(), mask); err != nil {
		return 0, err
	}

	_, hadHandle := d.Inode().BackendHandle()

	// spec.md §4.1: OpenTruncate must take effect on every open that
	// requests it, not only an inode's first. The first open truncates
	// via m.backend.Open below; a later open of an inode that already
	// has a cached handle needs an explicit truncate instead, since
	// m.backend.Open is skipped once a handle exists.
	if flags&OpenTruncate != 0 {
		if m.backend != nil {
			if hadHandle {
				rel := relativePath(norm, m.mountpoint)
				if err := m.backend.Truncate(rel, 0); err != nil {
					return 0, toErrno(err)
				}
			}
		} else {
			d.Inode().setSize(0)
		}
	}

	if !hadHandle && m.backend != nil {
		rel := relativePath(norm, m.mountpoint)
		bh, err := m.backend.Open(rel, flags&^OpenCreate, mode)
		if err != nil {
			return 0, toErrno(err)
		}
		d.Inode().SetBackendHandle(bh)
	}

	return v.handles.alloc(d, flags)
}

func lastComponent(norm string) string {
	if norm == "/" {
		return "/"
	}
	i := strings.LastIndexByte(norm, '/')
	return norm[i+1:]
}

// Close frees a handle (spec.md §4.9). A handle that was created
// detached (the backend create-open path) has its inode reference
// released here, since nothing else in the tree holds it.
func (v *VFS) Close(h Handle) error {
	if !v.isInitialized() {
		return ErrIO
	}
	return v.closeHandle(h)
}

func (v *VFS) closeHandle(h Handle) error {
	slot, err := v.handles.get(h)
	if err != nil {
		return err
	}

	slot.mu.Lock()
	d := slot.dentry
	slot.mu.Unlock()

	if err := v.handles.free(h); err != nil {
		return err
	}
	if d.Parent() == nil && d.Name() != "/" {
		d.Inode().release()
	}
	return nil
}

// Read performs a positional read (spec.md §4.9).
func (v *VFS) Read(h Handle, buf []byte, offset int64) (int, error) {
	if !v.isInitialized() {
		return 0, ErrIO
	}
	slot, err := v.handles.get(h)
	if err != nil {
		return 0, err
	}

	slot.mu.Lock()
	d, flags := slot.dentry, slot.flags
	slot.mu.Unlock()

	in := d.Inode()
	if in.IsDir() {
		return 0, ErrIsDirectory
	}
	if !flags.wantsRead() {
		return 0, ErrPermissionDenied
	}

	var n int
	if backend := in.Backend(); backend != nil {
		bh, _ := in.BackendHandle()
		n, err = backend.ReadAt(bh, buf, offset)
		err = toErrno(err)
	} else {
		n, err = readZeroFilled(in, buf, offset)
	}

	slot.mu.Lock()
	slot.position = offset + int64(n)
	slot.mu.Unlock()

	return n, err
}

func readZeroFilled(in *Inode, buf []byte, offset int64) (int, error) {
	size := in.Size()
	if offset >= size {
		return 0, nil
	}
	n := int64(len(buf))
	if rem := size - offset; n > rem {
		n = rem
	}
	for i := int64(0); i < n; i++ {
		buf[i] = 0
	}
	return int(n), nil
}

// Write performs a positional write (spec.md §4.9). A write that
// extends the file updates size monotonically.
func (v *VFS) Write(h Handle, buf []byte, offset int64) (int, error) {
	if !v.isInitialized() {
		return 0, ErrIO
	}
	slot, err := v.handles.get(h)
	if err != nil {
		return 0, err
	}

	slot.mu.Lock()
	d, flags := slot.dentry, slot.flags
	slot.mu.Unlock()

	in := d.Inode()
	if in.IsDir() {
		return 0, ErrIsDirectory
	}
	if !flags.wantsWrite() {
		return 0, ErrPermissionDenied
	}

	var n int
	if backend := in.Backend(); backend != nil {
		bh, _ := in.BackendHandle()
		n, err = backend.WriteAt(bh, buf, offset)
		err = toErrno(err)
		if n > 0 {
			in.growSize(offset + int64(n))
		}
	} else {
		in.growSize(offset + int64(len(buf)))
		n = len(buf)
	}

	slot.mu.Lock()
	slot.position = offset + int64(n)
	slot.mu.Unlock()

	return n, err
}

func (v *VFS) checkInodePermission(in *Inode, mask AccessMask) error {
	uid, gid := in.Owner()
	return checkPermission(in.Mode(), uid, gid, uid, gid, mask)
}

////////////////////////////////////////////////////////////////////////
// Stat / Readdir
////////////////////////////////////////////////////////////////////////

// Stat prefers the backend's Stat via the relative path, falling back
// to in-memory dentry metadata when no backend is mounted there
// (spec.md §4.9).
func (v *VFS) Stat(path string) (Metadata, error) {
	if !v.isInitialized() {
		return Metadata{}, ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return Metadata{}, ErrInvalidArgument
	}
	norm := Normalize(path)

	m := v.mounts.findBestMount(norm)
	if m == nil {
		return Metadata{}, ErrNoEntry
	}

	if m.backend != nil {
		md, err := m.backend.Stat(relativePath(norm, m.mountpoint))
		return md, toErrno(err)
	}

	d, _, err := v.resolve(norm, ResolveRequireExisting)
	if err != nil {
		return Metadata{}, err
	}
	in := d.Inode()
	uid, gid := in.Owner()
	return Metadata{
		Mode:  in.Mode(),
		UID:   uid,
		GID:   gid,
		Size:  in.Size(),
		MTime: in.Mtime().UnixNano(),
	}, nil
}

// Readdir prefers the backend's Readdir, falling back to the dentry
// child list (after "." and "..") when no backend is mounted there
// (spec.md §4.9).
func (v *VFS) Readdir(path string, sink ReaddirSink) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return ErrInvalidArgument
	}
	norm := Normalize(path)

	m := v.mounts.findBestMount(norm)
	if m == nil {
		return ErrNoEntry
	}

	if m.backend != nil {
		return toErrno(m.backend.Readdir(relativePath(norm, m.mountpoint), sink))
	}

	d, _, err := v.resolve(norm, ResolveRequireExisting)
	if err != nil {
		return err
	}
	if !d.Inode().IsDir() {
		return ErrNotDirectory
	}

	// Cookie is assigned from the VFS's monotonic access counter: each
	// call to Readdir on the synthetic tree advances it, so cookies are
	// ordered by readdir call, not by directory position (spec.md §2
	// item 1).
	if sink(Dirent{Name: ".", Mode: d.Inode().Mode(), Cookie: v.access.tick()}) {
		return nil
	}
	parent := d
	if d.Parent() != nil {
		parent = d.Parent()
	}
	if sink(Dirent{Name: "..", Mode: parent.Inode().Mode(), Cookie: v.access.tick()}) {
		return nil
	}
	for _, c := range d.listChildren() {
		if sink(Dirent{Name: c.Name(), Mode: c.Inode().Mode(), Cookie: v.access.tick()}) {
			return nil
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////////////
// Mkdir / Unlink / Rename
////////////////////////////////////////////////////////////////////////

// Mkdir resolves path, which auto-materializes intermediate
// directories; it succeeds iff the final result is a freshly created
// directory, and returns ErrExists if an entry was already there
// (spec.md §4.9).
func (v *VFS) Mkdir(path string, mode os.FileMode) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return ErrInvalidArgument
	}
	norm := Normalize(path)
	if norm == "/" {
		return ErrExists
	}

	parentPath := norm[:strings.LastIndexByte(norm, '/')]
	if parentPath == "" {
		parentPath = "/"
	}
	leaf := lastComponent(norm)

	parent, _, err := v.resolve(parentPath, ResolveCreateMissing)
	if err != nil {
		return err
	}
	if !parent.Inode().IsDir() {
		return ErrNotDirectory
	}
	if _, ok := parent.lookupChild(leaf); ok {
		return ErrExists
	}

	in := v.newSyntheticDirInode(mode&os.ModePerm, 0, 0)
	parent.addChild(attachNewDentry(leaf, parent, in))
	return nil
}

// Unlink delegates to the backend when the mount has one; otherwise it
// removes the dentry from its parent and destroys its subtree
// (spec.md §4.9).
func (v *VFS) Unlink(path string) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return ErrInvalidArgument
	}
	norm := Normalize(path)

	m := v.mounts.findBestMount(norm)
	if m == nil {
		return ErrNoEntry
	}
	if m.backend != nil {
		return toErrno(m.backend.Unlink(relativePath(norm, m.mountpoint)))
	}

	d, _, err := v.resolve(norm, ResolveRequireExisting)
	if err != nil {
		return err
	}
	if d.Parent() == nil {
		return ErrInvalidArgument
	}
	if err := v.checkInodePermission(d.Inode(), AccessWrite); err != nil {
		return err
	}

	d.Parent().removeChild(d)
	destroyTree(d)
	return nil
}

// Rename delegates to the backend when present; spec.md §4.9 defines no
// in-memory fallback. A rename between two different mounts returns
// ErrInvalidArgument; one within a backendless mount returns
// ErrNotSupported.
func (v *VFS) Rename(oldPath, newPath string) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if oldPath == "" || newPath == "" || !isAbsolute(oldPath) || !isAbsolute(newPath) {
		return ErrInvalidArgument
	}
	oldNorm, newNorm := Normalize(oldPath), Normalize(newPath)

	mOld := v.mounts.findBestMount(oldNorm)
	mNew := v.mounts.findBestMount(newNorm)
	if mOld == nil || mNew == nil {
		return ErrNoEntry
	}
	if mOld != mNew {
		return ErrInvalidArgument
	}
	if mOld.backend == nil {
		return ErrNotSupported
	}

	return toErrno(mOld.backend.Rename(
		relativePath(oldNorm, mOld.mountpoint),
		relativePath(newNorm, mNew.mountpoint)))
}

////////////////////////////////////////////////////////////////////////
// Permission / Lookup
////////////////////////////////////////////////////////////////////////

// PermissionCheck implements spec.md §4.8/§6 as a standalone entry
// point: resolve path (without auto-materializing) and evaluate mask
// against uid/gid.
func (v *VFS) PermissionCheck(path string, uid, gid uint32, mask AccessMask) error {
	if !v.isInitialized() {
		return ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return ErrInvalidArgument
	}

	d, _, err := v.resolve(Normalize(path), ResolveRequireExisting)
	if err != nil {
		return err
	}

	in := d.Inode()
	ownerUID, ownerGID := in.Owner()
	return checkPermission(in.Mode(), ownerUID, ownerGID, uid, gid, mask)
}

// Lookup resolves path without auto-materializing missing components
// and returns its dentry (spec.md §2 item 10).
func (v *VFS) Lookup(path string) (*Dentry, error) {
	if !v.isInitialized() {
		return nil, ErrIO
	}
	if path == "" || !isAbsolute(path) {
		return nil, ErrInvalidArgument
	}
	d, _, err := v.resolve(Normalize(path), ResolveRequireExisting)
	return d, err
}
