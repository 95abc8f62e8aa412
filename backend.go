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

package vfs

import "os"

// OpenFlags mirrors POSIX open(2) flag semantics (spec.md §4.1).
type OpenFlags uint32

const (
	OpenReadOnly  OpenFlags = 1 << iota // O_RDONLY (explicit bit; zero value is ambiguous)
	OpenWriteOnly                       // O_WRONLY
	OpenReadWrite                       // O_RDWR
	OpenCreate                          // O_CREAT
	OpenExclusive                       // O_EXCL
	OpenTruncate                        // O_TRUNC
)

func (f OpenFlags) wantsRead() bool {
	return f&OpenReadOnly != 0 || f&OpenReadWrite != 0
}

func (f OpenFlags) wantsWrite() bool {
	return f&OpenWriteOnly != 0 || f&OpenReadWrite != 0
}

// BackendHandle is the opaque value a backend's Open returns and its
// later calls accept. spec.md §9's design notes call for a typed
// variant over the source's raw integer-as-pointer cast; ID is
// meaningful only to the Backend that issued it.
type BackendHandle struct {
	ID uint64
}

// Metadata is what a backend's Stat reports about a path.
type Metadata struct {
	Mode  os.FileMode
	UID   uint32
	GID   uint32
	Size  int64
	MTime int64 // Unix nanoseconds; backend-supplied, not interpreted by the core.
}

// Dirent is one entry produced while enumerating a directory, grounded
// on fuseutil.Dirent's (Inode, Name, Type, Offset) shape from the
// teacher's directory-serialization helper.
type Dirent struct {
	Name   string
	Mode   os.FileMode
	Cookie int64 // opaque readdir resume position, backend-assigned
}

// ReaddirSink receives one call per directory entry. A non-zero return
// (stop=true) ends enumeration early, per spec.md §6's sink signature.
type ReaddirSink func(d Dirent) (stop bool)

// Backend is the operations table a storage backend implements to be
// mounted into the namespace (spec.md §4.1). All paths a Backend method
// receives are relative (no leading separator); a Backend must reject
// an absolute path with ErrInvalidArgument.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Backend interface {
	// TypeName returns the human-readable registry key, e.g. "posix".
	TypeName() string

	// Init attaches the backend to some root location and returns an
	// instance usable for the rest of this interface's methods. A
	// Backend value returned by a type's constructor is itself typically
	// the instance; Init may simply validate root and return itself.
	Init(root string) (Backend, error)

	// Shutdown releases all resources held by this backend instance.
	Shutdown() error

	// Open creates or opens relPath. flags follows POSIX open(2)
	// semantics (spec.md §4.1); mode is consulted only when flags
	// carries OpenCreate.
	Open(relPath string, flags OpenFlags, mode os.FileMode) (BackendHandle, error)

	// Close releases a handle previously returned by Open.
	Close(h BackendHandle) error

	// ReadAt is a positional read; it must not move any backend-side
	// cursor. A short read at end-of-file is legal and not an error.
	ReadAt(h BackendHandle, buf []byte, offset int64) (int, error)

	// WriteAt is a positional write; a short write signals resource
	// exhaustion.
	WriteAt(h BackendHandle, buf []byte, offset int64) (int, error)

	// Stat reports metadata for relPath without requiring an open handle.
	Stat(relPath string) (Metadata, error)

	// Readdir enumerates relPath's entries, invoking sink once per name.
	Readdir(relPath string, sink ReaddirSink) error

	// Unlink removes relPath.
	Unlink(relPath string) error

	// Rename moves oldRelPath to newRelPath within the same backend
	// instance.
	Rename(oldRelPath, newRelPath string) error

	// Mkdir creates relPath as a directory with the given mode.
	Mkdir(relPath string, mode os.FileMode) error

	// Truncate sets relPath's size to size exactly, independent of any
	// open handle. Open honors OpenTruncate itself for a handle's first
	// open of an inode; Truncate lets a later OpenTruncate against an
	// inode that already has a cached handle take effect too.
	Truncate(relPath string, size int64) error
}
