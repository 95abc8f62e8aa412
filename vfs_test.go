// Copyright 2015 Google Inc. All Rights Reserved.

package vfs_test

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/vfscore"
	"github.com/jacobsa/vfscore/posixbackend"
)

func TestVFS(t *testing.T) { RunTests(t) }

type VFSTest struct {
	v    *vfs.VFS
	dirs []string
}

func init() { RegisterTestSuite(&VFSTest{}) }

func (t *VFSTest) SetUp(ti *TestInfo) {
	t.v = vfs.New()
	AssertEq(nil, t.v.Init())
	AssertEq(nil, t.v.RegisterBackend(posixbackend.New()))
	t.dirs = nil
}

func (t *VFSTest) TearDown() {
	t.v.Shutdown()
	for _, d := range t.dirs {
		os.RemoveAll(d)
	}
}

func (t *VFSTest) tempDir() string {
	d, err := os.MkdirTemp("", "vfscore_test")
	AssertEq(nil, err)
	t.dirs = append(t.dirs, d)
	return d
}

// S1: registry + mount.
func (t *VFSTest) S1_RegistryAndMount() {
	err := t.v.Mount("/reg", t.tempDir(), "posix")
	ExpectEq(nil, err)

	err = t.v.Mount("/x", t.tempDir(), "nonexistent")
	ExpectEq(vfs.ErrNoSuchDevice, err)
}

// S2: create/read-back.
func (t *VFSTest) S2_CreateReadBack() {
	AssertEq(nil, t.v.Mount("/b", t.tempDir(), "posix"))

	fh, err := t.v.Open("/b/test.txt", vfs.OpenCreate|vfs.OpenReadWrite)
	AssertEq(nil, err)

	payload := "Hello VFS Integration!\n"
	n, err := t.v.Write(fh, []byte(payload), 0)
	AssertEq(nil, err)
	ExpectEq(23, n)

	buf := make([]byte, 256)
	n, err = t.v.Read(fh, buf, 0)
	AssertEq(nil, err)
	ExpectEq(23, n)
	ExpectEq(payload, string(buf[:n]))

	md, err := t.v.Stat("/b/test.txt")
	AssertEq(nil, err)
	ExpectEq(int64(23), md.Size)

	ExpectEq(nil, t.v.Close(fh))
}

// A file living in the synthetic (backend-less) tree keeps its dentry
// attached across Close, so a later Open with OpenTruncate must reset
// its recorded size even though the dentry was never recreated.
func (t *VFSTest) ReopenWithTruncateResetsASyntheticFilesSize() {
	fh1, err := t.v.Open("/trunc.txt", vfs.OpenCreate|vfs.OpenReadWrite)
	AssertEq(nil, err)
	_, err = t.v.Write(fh1, []byte("0123456789"), 0)
	AssertEq(nil, err)
	AssertEq(nil, t.v.Close(fh1))

	md, err := t.v.Stat("/trunc.txt")
	AssertEq(nil, err)
	ExpectEq(int64(10), md.Size)

	fh2, err := t.v.Open("/trunc.txt", vfs.OpenReadWrite|vfs.OpenTruncate)
	AssertEq(nil, err)

	md, err = t.v.Stat("/trunc.txt")
	AssertEq(nil, err)
	ExpectEq(int64(0), md.Size)

	ExpectEq(nil, t.v.Close(fh2))
}

// A second open of an existing backend-mounted file with OpenTruncate
// must truncate its contents, whether or not a prior handle for that
// path is still open (posixbackend.Open passes O_TRUNC through on every
// create-open; Backend.Truncate covers the non-create reopen case).
func (t *VFSTest) ReopenWithCreateAndTruncateResetsABackendFilesSize() {
	AssertEq(nil, t.v.Mount("/t", t.tempDir(), "posix"))

	fh1, err := t.v.Open("/t/f.txt", vfs.OpenCreate|vfs.OpenReadWrite)
	AssertEq(nil, err)
	_, err = t.v.Write(fh1, []byte("0123456789"), 0)
	AssertEq(nil, err)
	AssertEq(nil, t.v.Close(fh1))

	md, err := t.v.Stat("/t/f.txt")
	AssertEq(nil, err)
	ExpectEq(int64(10), md.Size)

	fh2, err := t.v.Open("/t/f.txt", vfs.OpenCreate|vfs.OpenReadWrite|vfs.OpenTruncate)
	AssertEq(nil, err)

	md, err = t.v.Stat("/t/f.txt")
	AssertEq(nil, err)
	ExpectEq(int64(0), md.Size)

	ExpectEq(nil, t.v.Close(fh2))
}

// S3: normalization.
func (t *VFSTest) S3_Normalization() {
	AssertEq(nil, t.v.Mkdir("/dir1", 0755))
	AssertEq(nil, t.v.Mkdir("/dir1/dir2", 0755))
	AssertEq(nil, t.v.Mkdir("/dir1/dir3", 0755))

	fh, err := t.v.Open("/dir1/dir3/file2", vfs.OpenCreate|vfs.OpenReadWrite)
	AssertEq(nil, err)
	AssertEq(nil, t.v.Close(fh))

	d, err := t.v.Lookup("/dir1//dir2/../dir3/./file2")
	AssertEq(nil, err)
	ExpectEq("file2", d.Name())
	ExpectEq("dir3", d.Parent().Name())
	ExpectEq("dir1", d.Parent().Parent().Name())
	ExpectEq("/", d.Parent().Parent().Parent().Name())
}

// Readdir on the synthetic in-memory root mount sees exactly the
// entries that were created there, "." and ".." aside.
func (t *VFSTest) ReaddirListingMatchesWhatWasCreated() {
	AssertEq(nil, t.v.Mkdir("/alpha", 0755))
	AssertEq(nil, t.v.Mkdir("/beta", 0755))

	var got []string
	err := t.v.Readdir("/", func(d vfs.Dirent) bool {
		if d.Name != "." && d.Name != ".." && d.Name != "tmp" {
			got = append(got, d.Name)
		}
		return false
	})
	AssertEq(nil, err)
	sort.Strings(got)

	want := []string{"alpha", "beta"}
	diff := pretty.Compare(got, want)
	ExpectEq("", diff)
}

// S4: directory protection.
func (t *VFSTest) S4_DirectoryProtection() {
	_, err := t.v.Open("/", 0)
	ExpectEq(vfs.ErrIsDirectory, err)

	err = t.v.Close(vfs.Handle(999))
	ExpectEq(vfs.ErrBadFileDescriptor, err)
}

// S5: permission denial.
func (t *VFSTest) S5_PermissionDenial() {
	AssertEq(nil, t.v.Mkdir("/secret", 0600))

	err := t.v.PermissionCheck("/secret", 2000, 2000, vfs.AccessRead)
	ExpectEq(vfs.ErrPermissionDenied, err)

	err = t.v.PermissionCheck("/secret", 0, 0, vfs.AccessRead)
	ExpectEq(nil, err)
}

// S6: ten goroutines, one hundred operations each, create-write-read-stat-
// close on unique paths under one backend-backed mount.
func (t *VFSTest) S6_ConcurrentStress() {
	AssertEq(nil, t.v.Mount("/stress", t.tempDir(), "posix"))

	const goroutines = 10
	const perGoroutine = 100

	var successes int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				path := fmt.Sprintf("/stress/g%d_i%d", g, i)

				fh, err := t.v.Open(path, vfs.OpenCreate|vfs.OpenReadWrite)
				if err != nil {
					continue
				}
				if _, err := t.v.Write(fh, []byte("x"), 0); err != nil {
					t.v.Close(fh)
					continue
				}
				buf := make([]byte, 1)
				if _, err := t.v.Read(fh, buf, 0); err != nil {
					t.v.Close(fh)
					continue
				}
				if _, err := t.v.Stat(path); err != nil {
					t.v.Close(fh)
					continue
				}
				if err := t.v.Close(fh); err != nil {
					continue
				}

				mu.Lock()
				successes++
				mu.Unlock()
			}
		}(g)
	}
	wg.Wait()

	ExpectEq(int64(goroutines*perGoroutine), successes)
	ExpectEq(nil, t.v.Shutdown())
}

