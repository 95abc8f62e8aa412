// Copyright 2015 Google Inc. All Rights Reserved.
// Author: jacobsa@google.com (Aaron Jacobs)

package vfs

import "syscall"

// Errno is a small negative integer drawn from the standard POSIX error
// set (spec.md §7). Backends return these directly; the core never
// invents a disjoint error space.
type Errno int32

func (e Errno) Error() string {
	return syscall.Errno(-e).Error()
}

// toErrno coerces a backend error into the VFS error space. A nil error
// stays nil; a backend returning an Errno is forwarded verbatim; any
// other non-nil error is coerced to ErrIO, per spec.md §7's propagation
// policy.
func toErrno(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(Errno); ok {
		return err
	}
	return ErrIO
}

const (
	// ErrInvalidArgument: null pointer, relative path, unknown backend type.
	ErrInvalidArgument = Errno(-int32(syscall.EINVAL))

	// ErrNoEntry: path does not resolve and no auto-materialization occurred.
	ErrNoEntry = Errno(-int32(syscall.ENOENT))

	// ErrExists: create-exclusive on a present entry.
	ErrExists = Errno(-int32(syscall.EEXIST))

	// ErrIsDirectory: type mismatch, directory where a file was required.
	ErrIsDirectory = Errno(-int32(syscall.EISDIR))

	// ErrNotDirectory: type mismatch, file where a directory was required.
	ErrNotDirectory = Errno(-int32(syscall.ENOTDIR))

	// ErrBadFileDescriptor: unknown or freed handle.
	ErrBadFileDescriptor = Errno(-int32(syscall.EBADF))

	// ErrTooManyOpenFiles: handle table exhausted.
	ErrTooManyOpenFiles = Errno(-int32(syscall.EMFILE))

	// ErrNameTooLong: path-join overflow.
	ErrNameTooLong = Errno(-int32(syscall.ENAMETOOLONG))

	// ErrPermissionDenied: permission check failed.
	ErrPermissionDenied = Errno(-int32(syscall.EACCES))

	// ErrIO: operation attempted before Init, or catch-all for an opaque
	// backend failure.
	ErrIO = Errno(-int32(syscall.EIO))

	// ErrNoMemory: allocation failed.
	ErrNoMemory = Errno(-int32(syscall.ENOMEM))

	// ErrNotSupported: optional operation not implemented (symlinks, etc.).
	ErrNotSupported = Errno(-int32(syscall.ENOTSUP))

	// ErrNoSpace: registry or other fixed-capacity table is full.
	ErrNoSpace = Errno(-int32(syscall.ENOSPC))

	// ErrAlreadyExists: backend type name already registered.
	ErrAlreadyExists = Errno(-int32(syscall.EEXIST))

	// ErrNoSuchDevice: mount_backend named an unregistered backend type.
	ErrNoSuchDevice = Errno(-int32(syscall.ENXIO))

	// ErrNotEmpty: rmdir/rename target directory not empty.
	ErrNotEmpty = Errno(-int32(syscall.ENOTEMPTY))
)
