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

// Package vfs implements a user-space virtual file system over pluggable
// storage backends.
//
// The primary elements of interest are:
//
//  *  VFS, the namespace object: a mount table, a directory-entry cache,
//     a file-handle table, and the public operations (Open, Read, Write,
//     Stat, Readdir, Mkdir, Create, Unlink, Rename, Mount, Unmount, ...).
//
//  *  Backend, the contract a storage backend must implement to be
//     mounted into the namespace; RegisterBackend makes a backend type
//     available to Mount by name.
//
//  *  NotImplementedBackend, which may be embedded to obtain ENOTSUP
//     defaults for operations a backend doesn't care to support.
package vfs
