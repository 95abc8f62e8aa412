// Copyright 2015 Google Inc. All Rights Reserved.

package vfs

import "sync"

// registryCapacity is the fixed capacity of the backend registry
// (spec.md §4.2).
const registryCapacity = 64

// backendRegistry is a fixed-capacity, lock-protected table mapping
// backend type names to operations tables (prototype Backend values
// whose Init is called to bind a mount). It is not process-wide: each
// VFS holds its own instance, matching spec.md §9's call to make the
// registry explicit rather than a bare package-level singleton.
type backendRegistry struct {
	mu    sync.Mutex
	types map[string]Backend // GUARDED_BY(mu)
}

func newBackendRegistry() *backendRegistry {
	return &backendRegistry{
		types: make(map[string]Backend),
	}
}

// register adds ops under its own TypeName(). Fails with ErrAlreadyExists
// if the name is taken, ErrNoSpace if the table is full.
func (r *backendRegistry) register(ops Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := ops.TypeName()
	if _, ok := r.types[name]; ok {
		return ErrAlreadyExists
	}
	if len(r.types) >= registryCapacity {
		return ErrNoSpace
	}

	r.types[name] = ops
	return nil
}

// find looks up a registered backend prototype by type name.
func (r *backendRegistry) find(name string) (Backend, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ops, ok := r.types[name]
	return ops, ok
}

// clear drops every registration. Called by VFS shutdown.
func (r *backendRegistry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.types = make(map[string]Backend)
}
