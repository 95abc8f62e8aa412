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

// NotImplementedBackend responds to every Backend method with
// ErrNotSupported. Embed it in a backend struct to inherit defaults for
// any Backend method the backend does not implement itself while still
// satisfying the Backend interface. The Backend interface has no
// symlink, hard-link, xattr or locking methods.
type NotImplementedBackend struct{}

var _ Backend = &NotImplementedBackend{}

func (b *NotImplementedBackend) TypeName() string { return "not-implemented" }

func (b *NotImplementedBackend) Init(root string) (Backend, error) {
	return nil, ErrNotSupported
}

func (b *NotImplementedBackend) Shutdown() error { return ErrNotSupported }

func (b *NotImplementedBackend) Open(relPath string, flags OpenFlags, mode os.FileMode) (BackendHandle, error) {
	return BackendHandle{}, ErrNotSupported
}

func (b *NotImplementedBackend) Close(h BackendHandle) error { return ErrNotSupported }

func (b *NotImplementedBackend) ReadAt(h BackendHandle, buf []byte, offset int64) (int, error) {
	return 0, ErrNotSupported
}

func (b *NotImplementedBackend) WriteAt(h BackendHandle, buf []byte, offset int64) (int, error) {
	return 0, ErrNotSupported
}

func (b *NotImplementedBackend) Stat(relPath string) (Metadata, error) {
	return Metadata{}, ErrNotSupported
}

func (b *NotImplementedBackend) Readdir(relPath string, sink ReaddirSink) error {
	return ErrNotSupported
}

func (b *NotImplementedBackend) Unlink(relPath string) error { return ErrNotSupported }

func (b *NotImplementedBackend) Rename(oldRelPath, newRelPath string) error {
	return ErrNotSupported
}

func (b *NotImplementedBackend) Mkdir(relPath string, mode os.FileMode) error {
	return ErrNotSupported
}

func (b *NotImplementedBackend) Truncate(relPath string, size int64) error {
	return ErrNotSupported
}
