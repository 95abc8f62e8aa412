// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import (
	"fmt"

	"github.com/jacobsa/syncutil"
)

// Dentry is spec.md §3's directory-cache node: a name within a parent
// directory, pointing at an inode. A Dentry holds exactly one reference
// on its inode for its entire lifetime.
type Dentry struct {
	// Immutable for the dentry's lifetime.
	name   string // non-empty, "/" for a mount root
	parent *Dentry
	inode  *Inode

	mu syncutil.InvariantMutex

	// The child list, intrusively linked through child.sibling.
	//
	// INVARIANT: no two live children share a name.
	children *Dentry // GUARDED_BY(mu); head of the list
	sibling  *Dentry // GUARDED_BY(parent.mu); next entry in the parent's list

	// detached is set once removeChild has spliced this dentry out of
	// its parent's list. Nothing reads it: a second removeChild is a
	// no-op because the dentry is no longer in the list, and destroyTree
	// does not consult it.
	detached bool // GUARDED_BY(parent.mu) if parent != nil
}

// newDentry allocates a dentry and acquires a reference on inode. It
// does not attach to a parent; callers invoke addChild for that
// (spec.md §4.6: "this separation avoids publishing half-initialized
// nodes").
func newDentry(name string, parent *Dentry, inode *Inode) *Dentry {
	inode.acquire()
	d := &Dentry{
		name:   name,
		parent: parent,
		inode:  inode,
	}
	d.mu = syncutil.NewInvariantMutex(d.checkInvariants)
	return d
}

func (d *Dentry) checkInvariants() {
	seen := make(map[string]struct{})
	for c := d.children; c != nil; c = c.sibling {
		if c.parent != d {
			panic(fmt.Sprintf("child %q has wrong parent", c.name))
		}
		if _, ok := seen[c.name]; ok {
			panic(fmt.Sprintf("duplicate child name: %q", c.name))
		}
		seen[c.name] = struct{}{}
	}
}

// Name returns this dentry's component name.
func (d *Dentry) Name() string { return d.name }

// Parent returns the parent dentry, or nil for a mount root.
func (d *Dentry) Parent() *Dentry { return d.parent }

// Inode returns the inode this dentry names.
func (d *Dentry) Inode() *Inode { return d.inode }

// addChild inserts child at the head of d's child list.
//
// EXCLUSIVE_LOCKS_REQUIRED(caller does not hold any inode lock)
func (d *Dentry) addChild(child *Dentry) {
	d.mu.Lock()
	child.sibling = d.children
	d.children = child
	d.mu.Unlock()
}

// removeChild splices child out of d's list by identity. It is a no-op
// if child is not (or is no longer) present.
func (d *Dentry) removeChild(child *Dentry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.children == child {
		d.children = child.sibling
		child.sibling = nil
		child.detached = true
		return
	}

	for c := d.children; c != nil; c = c.sibling {
		if c.sibling == child {
			c.sibling = child.sibling
			child.sibling = nil
			child.detached = true
			return
		}
	}
}

// lookupChild scans d's child list under d's lock for an entry named
// name (spec.md §4.5 step 4).
func (d *Dentry) lookupChild(name string) (child *Dentry, ok bool) {
	d.mu.Lock()
	for c := d.children; c != nil; c = c.sibling {
		if c.name == name {
			child, ok = c, true
			break
		}
	}
	d.mu.Unlock()
	return
}

// listChildren snapshots the current child list for enumeration (readdir).
// The snapshot is taken under the lock but walked afterward, matching
// §4.5's "follow the found child pointer after releasing the parent
// lock" discipline.
func (d *Dentry) listChildren() []*Dentry {
	d.mu.Lock()
	var out []*Dentry
	for c := d.children; c != nil; c = c.sibling {
		out = append(out, c)
	}
	d.mu.Unlock()
	return out
}

// destroyTree destroys root's entire subtree post-order: every child is
// destroyed before root itself (spec.md §4.6). The caller must already
// have detached root from its parent, if any.
func destroyTree(root *Dentry) {
	for _, c := range root.listChildren() {
		destroyTree(c)
	}
	root.inode.release()
}
