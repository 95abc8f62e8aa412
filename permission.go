// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import "os"

// AccessMask is the set of access bits a caller is requesting, per
// spec.md §4.8.
type AccessMask uint8

const (
	AccessRead AccessMask = 1 << iota
	AccessWrite
	AccessExecute
)

// maskFromOpenFlags derives the permission mask from open(2)-style
// flags, for use by Open (spec.md §4.9 step 3).
func maskFromOpenFlags(flags OpenFlags) AccessMask {
	var m AccessMask
	if flags.wantsRead() {
		m |= AccessRead
	}
	if flags.wantsWrite() {
		m |= AccessWrite
	}
	return m
}

// checkPermission implements spec.md §4.8's classical owner/group/other
// evaluation with root override. uid/gid are the effective caller
// identity; mode/ownerUID/ownerGID describe the target inode.
func checkPermission(mode os.FileMode, ownerUID, ownerGID uint32, uid, gid uint32, mask AccessMask) error {
	perm := mode.Perm()

	var triplet os.FileMode
	switch {
	case uid == 0:
		// Root: R and W unconditionally; X iff any execute bit is set.
		any := perm&0111 != 0
		if mask&AccessExecute != 0 && !any {
			return ErrPermissionDenied
		}
		return nil
	case uid == ownerUID:
		triplet = (perm >> 6) & 07
	case gid == ownerGID:
		triplet = (perm >> 3) & 07
	default:
		triplet = perm & 07
	}

	var want os.FileMode
	if mask&AccessRead != 0 {
		want |= 04
	}
	if mask&AccessWrite != 0 {
		want |= 02
	}
	if mask&AccessExecute != 0 {
		want |= 01
	}

	if triplet&want != want {
		return ErrPermissionDenied
	}
	return nil
}
