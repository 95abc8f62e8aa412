// Copyright 2015 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package posixbackend is the reference backend spec.md §1 describes:
// it maps a mount into an underlying host directory. It is grounded on
// samples/roloopbackfs/roloopbackfs.go's loopback-path design, widened
// from read-only lookups to the full backend contract (spec.md §4.1).
package posixbackend

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jacobsa/vfscore"
	"golang.org/x/sys/unix"
)

// TypeName is the registry key this backend registers itself under.
const TypeName = "posix"

// Backend is a vfs.Backend that maps relative paths onto files
// beneath a host directory.
type Backend struct {
	vfs.NotImplementedBackend

	root string

	mu      sync.Mutex
	nextID  uint64
	handles map[uint64]*os.File // GUARDED_BY(mu)
}

var _ vfs.Backend = &Backend{}

// New returns an unattached Backend prototype suitable for
// vfs.RegisterBackend; its Init binds it to a host directory.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) TypeName() string { return TypeName }

func (b *Backend) Init(root string) (vfs.Backend, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, vfs.ErrNoEntry
	}
	if !info.IsDir() {
		return nil, vfs.ErrNotDirectory
	}

	return &Backend{
		root:    root,
		handles: make(map[uint64]*os.File),
	}, nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range b.handles {
		f.Close()
	}
	b.handles = make(map[uint64]*os.File)
	return nil
}

// hostPath translates a backend-relative path into a path beneath root.
// relPath must not be absolute (spec.md §4.1: "the backend rejects
// absolute paths").
func (b *Backend) hostPath(relPath string) (string, error) {
	if relPath == "" {
		return b.root, nil
	}
	if len(relPath) > 0 && relPath[0] == '/' {
		return "", vfs.ErrInvalidArgument
	}
	return filepath.Join(b.root, relPath), nil
}

func (b *Backend) Open(relPath string, flags vfs.OpenFlags, mode os.FileMode) (vfs.BackendHandle, error) {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return vfs.BackendHandle{}, err
	}

	osFlags := os.O_RDONLY
	switch {
	case flags&vfs.OpenWriteOnly != 0:
		osFlags = os.O_WRONLY
	case flags&vfs.OpenReadWrite != 0:
		osFlags = os.O_RDWR
	}
	if flags&vfs.OpenCreate != 0 {
		osFlags |= os.O_CREATE
	}
	if flags&vfs.OpenExclusive != 0 {
		osFlags |= os.O_EXCL
	}
	if flags&vfs.OpenTruncate != 0 {
		osFlags |= os.O_TRUNC
	}

	f, err := os.OpenFile(hp, osFlags, mode.Perm())
	if err != nil {
		return vfs.BackendHandle{}, translateErr(err)
	}

	id := atomic.AddUint64(&b.nextID, 1)
	b.mu.Lock()
	b.handles[id] = f
	b.mu.Unlock()

	return vfs.BackendHandle{ID: id}, nil
}

func (b *Backend) Close(h vfs.BackendHandle) error {
	b.mu.Lock()
	f, ok := b.handles[h.ID]
	delete(b.handles, h.ID)
	b.mu.Unlock()

	if !ok {
		return vfs.ErrBadFileDescriptor
	}
	return translateErr(f.Close())
}

func (b *Backend) file(h vfs.BackendHandle) (*os.File, error) {
	b.mu.Lock()
	f, ok := b.handles[h.ID]
	b.mu.Unlock()
	if !ok {
		return nil, vfs.ErrBadFileDescriptor
	}
	return f, nil
}

func (b *Backend) ReadAt(h vfs.BackendHandle, buf []byte, offset int64) (int, error) {
	f, err := b.file(h)
	if err != nil {
		return 0, err
	}
	n, err := f.ReadAt(buf, offset)
	if err != nil && (n > 0 || err == io.EOF) {
		// Short reads at EOF, including a zero-byte read at or past the
		// end, are legal (spec.md §4.1); any other error is reported only
		// when nothing at all was read.
		return n, nil
	}
	return n, translateErr(err)
}

func (b *Backend) WriteAt(h vfs.BackendHandle, buf []byte, offset int64) (int, error) {
	f, err := b.file(h)
	if err != nil {
		return 0, err
	}
	n, err := f.WriteAt(buf, offset)
	return n, translateErr(err)
}

func (b *Backend) Stat(relPath string) (vfs.Metadata, error) {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return vfs.Metadata{}, err
	}

	var st unix.Stat_t
	if err := unix.Stat(hp, &st); err != nil {
		return vfs.Metadata{}, translateErr(err)
	}

	return vfs.Metadata{
		Mode:  os.FileMode(st.Mode&0777) | dirBit(st.Mode),
		UID:   st.Uid,
		GID:   st.Gid,
		Size:  st.Size,
		MTime: st.Mtim.Nano(),
	}, nil
}

func dirBit(mode uint32) os.FileMode {
	if mode&unix.S_IFMT == unix.S_IFDIR {
		return os.ModeDir
	}
	return 0
}

func (b *Backend) Readdir(relPath string, sink vfs.ReaddirSink) error {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return err
	}

	f, err := os.Open(hp)
	if err != nil {
		return translateErr(err)
	}
	defer f.Close()

	entries, err := f.Readdir(-1)
	if err != nil {
		return translateErr(err)
	}

	for i, e := range entries {
		if sink(vfs.Dirent{Name: e.Name(), Mode: e.Mode(), Cookie: int64(i) + 1}) {
			return nil
		}
	}
	return nil
}

func (b *Backend) Unlink(relPath string) error {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return err
	}
	return translateErr(os.Remove(hp))
}

func (b *Backend) Rename(oldRelPath, newRelPath string) error {
	oldHp, err := b.hostPath(oldRelPath)
	if err != nil {
		return err
	}
	newHp, err := b.hostPath(newRelPath)
	if err != nil {
		return err
	}
	return translateErr(os.Rename(oldHp, newHp))
}

func (b *Backend) Mkdir(relPath string, mode os.FileMode) error {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return err
	}
	return translateErr(os.Mkdir(hp, mode.Perm()))
}

func (b *Backend) Truncate(relPath string, size int64) error {
	hp, err := b.hostPath(relPath)
	if err != nil {
		return err
	}
	return translateErr(os.Truncate(hp, size))
}

// translateErr coerces a host os/syscall error into the VFS error
// space (spec.md §7: backend errors forwarded verbatim when already
// errno-shaped, coerced to ErrIO otherwise).
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := underlyingErrno(err); ok {
		switch errno {
		case unix.ENOENT:
			return vfs.ErrNoEntry
		case unix.EEXIST:
			return vfs.ErrExists
		case unix.EISDIR:
			return vfs.ErrIsDirectory
		case unix.ENOTDIR:
			return vfs.ErrNotDirectory
		case unix.EACCES, unix.EPERM:
			return vfs.ErrPermissionDenied
		case unix.ENAMETOOLONG:
			return vfs.ErrNameTooLong
		case unix.ENOTEMPTY:
			return vfs.ErrNotEmpty
		case unix.ENOSPC:
			return vfs.ErrNoSpace
		}
	}
	return vfs.ErrIO
}

func underlyingErrno(err error) (unix.Errno, bool) {
	type errnoer interface{ Unwrap() error }
	for {
		if e, ok := err.(unix.Errno); ok {
			return e, true
		}
		u, ok := err.(errnoer)
		if !ok {
			return 0, false
		}
		err = u.Unwrap()
	}
}
