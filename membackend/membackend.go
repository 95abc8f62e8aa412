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

// Package membackend is a pure in-memory vfs.Backend, demonstrating
// that the dispatch layer is backend-agnostic (spec.md §1, §9: "...
// additional backends (in-memory, remote, archival) are intended to
// plug in under the same contract"). Its node bookkeeping is adapted
// from samples/memfs/inode.go, dir.go, and file.go: a fixed-shape
// struct carrying a ReadAt/WriteAt byte slice for files and a name-keyed
// child map for directories, generalized from a FUSE inode table keyed
// by inode number into one keyed by relative path.
package membackend

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jacobsa/vfscore"
)

// TypeName is the registry key this backend registers itself under.
const TypeName = "mem"

type node struct {
	mode     os.FileMode
	contents []byte           // GUARDED_BY(Backend.mu); nil for directories
	children map[string]*node // GUARDED_BY(Backend.mu); nil for files
}

func newDirNode(mode os.FileMode) *node {
	return &node{mode: os.ModeDir | mode, children: make(map[string]*node)}
}

func newFileNode(mode os.FileMode) *node {
	return &node{mode: mode &^ os.ModeDir}
}

// Backend is a vfs.Backend whose storage lives entirely in memory.
type Backend struct {
	vfs.NotImplementedBackend

	mu   sync.Mutex
	root *node // GUARDED_BY(mu)

	nextHandleID uint64
	handles      map[uint64]*node // GUARDED_BY(mu)
}

var _ vfs.Backend = &Backend{}

// New returns an unattached Backend prototype suitable for
// vfs.RegisterBackend.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) TypeName() string { return TypeName }

func (b *Backend) Init(root string) (vfs.Backend, error) {
	return &Backend{
		root:    newDirNode(0755),
		handles: make(map[uint64]*node),
	}, nil
}

func (b *Backend) Shutdown() error {
	b.mu.Lock()
	b.root = nil
	b.handles = make(map[uint64]*node)
	b.mu.Unlock()
	return nil
}

func splitPath(relPath string) []string {
	if relPath == "" {
		return nil
	}
	return strings.Split(relPath, "/")
}

// walk returns the node at relPath under b.root, and its parent and the
// leaf name if it wasn't the root.
//
// LOCKS_REQUIRED(b.mu)
func (b *Backend) walk(relPath string) (n *node, parent *node, leaf string, err error) {
	if len(relPath) > 0 && relPath[0] == '/' {
		return nil, nil, "", vfs.ErrInvalidArgument
	}
	comps := splitPath(relPath)
	if len(comps) == 0 {
		return b.root, nil, "", nil
	}

	cur := b.root
	for i, c := range comps {
		if cur.children == nil {
			return nil, nil, "", vfs.ErrNotDirectory
		}
		child, ok := cur.children[c]
		if !ok {
			if i == len(comps)-1 {
				return nil, cur, c, vfs.ErrNoEntry
			}
			return nil, nil, "", vfs.ErrNoEntry
		}
		if i == len(comps)-1 {
			return child, cur, c, nil
		}
		cur = child
	}
	panic("unreachable")
}

func (b *Backend) Open(relPath string, flags vfs.OpenFlags, mode os.FileMode) (vfs.BackendHandle, error) {
	if len(relPath) > 0 && relPath[0] == '/' {
		return vfs.BackendHandle{}, vfs.ErrInvalidArgument
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	n, parent, leaf, err := b.walk(relPath)
	existed := err == nil
	if err == vfs.ErrNoEntry && flags&vfs.OpenCreate != 0 && parent != nil {
		n = newFileNode(mode)
		parent.children[leaf] = n
		err = nil
	}
	if err != nil {
		return vfs.BackendHandle{}, err
	}
	if existed && flags&vfs.OpenCreate != 0 && flags&vfs.OpenExclusive != 0 {
		return vfs.BackendHandle{}, vfs.ErrExists
	}
	if n.mode&os.ModeDir != 0 {
		return vfs.BackendHandle{}, vfs.ErrIsDirectory
	}
	if flags&vfs.OpenTruncate != 0 {
		n.contents = n.contents[:0]
	}

	id := atomic.AddUint64(&b.nextHandleID, 1)
	b.handles[id] = n
	return vfs.BackendHandle{ID: id}, nil
}

func (b *Backend) Close(h vfs.BackendHandle) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.handles[h.ID]; !ok {
		return vfs.ErrBadFileDescriptor
	}
	delete(b.handles, h.ID)
	return nil
}

func (b *Backend) node(h vfs.BackendHandle) (*node, error) {
	n, ok := b.handles[h.ID]
	if !ok {
		return nil, vfs.ErrBadFileDescriptor
	}
	return n, nil
}

// ReadAt mirrors samples/memfs/inode.go's ReadAt: copy what's available,
// report io.EOF-equivalent short reads by simply returning fewer bytes
// (spec.md §4.1 permits short reads at EOF without error).
func (b *Backend) ReadAt(h vfs.BackendHandle, buf []byte, offset int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.node(h)
	if err != nil {
		return 0, err
	}
	if offset > int64(len(n.contents)) {
		return 0, nil
	}
	return copy(buf, n.contents[offset:]), nil
}

// WriteAt mirrors samples/memfs/inode.go's WriteAt: grow the backing
// slice as needed, then copy in place.
func (b *Backend) WriteAt(h vfs.BackendHandle, buf []byte, offset int64) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, err := b.node(h)
	if err != nil {
		return 0, err
	}

	newLen := int(offset) + len(buf)
	if len(n.contents) < newLen {
		n.contents = append(n.contents, make([]byte, newLen-len(n.contents))...)
	}

	written := copy(n.contents[offset:], buf)
	if written != len(buf) {
		panic(fmt.Sprintf("unexpected short copy: %d of %d", written, len(buf)))
	}
	return written, nil
}

func (b *Backend) Stat(relPath string) (vfs.Metadata, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, _, _, err := b.walk(relPath)
	if err != nil {
		return vfs.Metadata{}, err
	}
	return vfs.Metadata{Mode: n.mode, Size: int64(len(n.contents))}, nil
}

func (b *Backend) Readdir(relPath string, sink vfs.ReaddirSink) error {
	b.mu.Lock()
	n, _, _, err := b.walk(relPath)
	if err != nil {
		b.mu.Unlock()
		return err
	}
	if n.mode&os.ModeDir == 0 {
		b.mu.Unlock()
		return vfs.ErrNotDirectory
	}

	type entry struct {
		name string
		mode os.FileMode
	}
	entries := make([]entry, 0, len(n.children))
	for name, child := range n.children {
		entries = append(entries, entry{name, child.mode})
	}
	b.mu.Unlock()

	for i, e := range entries {
		if sink(vfs.Dirent{Name: e.name, Mode: e.mode, Cookie: int64(i) + 1}) {
			return nil
		}
	}
	return nil
}

func (b *Backend) Unlink(relPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, parent, leaf, err := b.walk(relPath)
	if err != nil {
		return err
	}
	if n.mode&os.ModeDir != 0 {
		return vfs.ErrIsDirectory
	}
	if parent == nil {
		return vfs.ErrInvalidArgument
	}
	delete(parent.children, leaf)
	return nil
}

func (b *Backend) Rename(oldRelPath, newRelPath string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, oldParent, oldLeaf, err := b.walk(oldRelPath)
	if err != nil {
		return err
	}
	_, newParent, newLeaf, err := b.walk(newRelPath)
	if err != nil && err != vfs.ErrNoEntry {
		return err
	}
	if newParent == nil || oldParent == nil {
		return vfs.ErrInvalidArgument
	}

	delete(oldParent.children, oldLeaf)
	newParent.children[newLeaf] = n
	return nil
}

func (b *Backend) Mkdir(relPath string, mode os.FileMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, parent, leaf, err := b.walk(relPath)
	if err == nil {
		return vfs.ErrExists
	}
	if err != vfs.ErrNoEntry || parent == nil {
		return err
	}

	parent.children[leaf] = newDirNode(mode)
	return nil
}

func (b *Backend) Truncate(relPath string, size int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, _, _, err := b.walk(relPath)
	if err != nil {
		return err
	}
	if n.mode&os.ModeDir != 0 {
		return vfs.ErrIsDirectory
	}

	switch {
	case int64(len(n.contents)) > size:
		n.contents = n.contents[:size]
	case int64(len(n.contents)) < size:
		n.contents = append(n.contents, make([]byte, size-int64(len(n.contents)))...)
	}
	return nil
}
