// Copyright 2015 Google Inc. All Rights Reserved.

package posixbackend_test

import (
	"os"
	"testing"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/vfscore"
	"github.com/jacobsa/vfscore/posixbackend"
)

func TestPosixBackend(t *testing.T) { RunTests(t) }

type PosixBackendTest struct {
	dir string
	b   vfs.Backend
}

func init() { RegisterTestSuite(&PosixBackendTest{}) }

func (t *PosixBackendTest) SetUp(ti *TestInfo) {
	dir, err := os.MkdirTemp("", "posixbackend_test")
	AssertEq(nil, err)
	t.dir = dir

	proto := posixbackend.New()
	inst, err := proto.Init(dir)
	AssertEq(nil, err)
	t.b = inst
}

func (t *PosixBackendTest) TearDown() {
	t.b.Shutdown()
	os.RemoveAll(t.dir)
}

func (t *PosixBackendTest) InitRejectsAMissingRoot() {
	proto := posixbackend.New()
	_, err := proto.Init(t.dir + "/does-not-exist")
	ExpectEq(vfs.ErrNoEntry, err)
}

func (t *PosixBackendTest) InitRejectsANonDirectory() {
	f, err := os.Create(t.dir + "/plain-file")
	AssertEq(nil, err)
	f.Close()

	proto := posixbackend.New()
	_, err = proto.Init(t.dir + "/plain-file")
	ExpectEq(vfs.ErrNotDirectory, err)
}

func (t *PosixBackendTest) OpenRejectsAbsolutePaths() {
	_, err := t.b.Open("/abs", vfs.OpenReadOnly, 0)
	ExpectEq(vfs.ErrInvalidArgument, err)
}

func (t *PosixBackendTest) CreateWriteReadBack() {
	h, err := t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)

	n, err := t.b.WriteAt(h, []byte("payload"), 0)
	AssertEq(nil, err)
	ExpectEq(7, n)

	buf := make([]byte, 32)
	n, err = t.b.ReadAt(h, buf, 0)
	AssertEq(nil, err)
	ExpectEq(7, n)
	ExpectEq("payload", string(buf[:n]))

	ExpectEq(nil, t.b.Close(h))
}

func (t *PosixBackendTest) ExclusiveCreateOnExistingFileFails() {
	h, err := t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	_, err = t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenExclusive|vfs.OpenReadWrite, 0644)
	ExpectEq(vfs.ErrExists, err)
}

func (t *PosixBackendTest) StatReportsSize() {
	h, err := t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	_, err = t.b.WriteAt(h, []byte("abcde"), 0)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	md, err := t.b.Stat("f.txt")
	AssertEq(nil, err)
	ExpectEq(int64(5), md.Size)
}

func (t *PosixBackendTest) MkdirThenReaddirSeesTheEntry() {
	AssertEq(nil, t.b.Mkdir("sub", 0755))

	h, err := t.b.Open("sub/leaf.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	var names []string
	err = t.b.Readdir("sub", func(d vfs.Dirent) bool {
		names = append(names, d.Name)
		return false
	})
	AssertEq(nil, err)
	ExpectThat(names, ElementsAre("leaf.txt"))
}

func (t *PosixBackendTest) UnlinkRemovesAFile() {
	h, err := t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Unlink("f.txt"))

	_, err = t.b.Stat("f.txt")
	ExpectEq(vfs.ErrNoEntry, err)
}

func (t *PosixBackendTest) TruncateShrinksAnAlreadyClosedFile() {
	h, err := t.b.Open("f.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	_, err = t.b.WriteAt(h, []byte("0123456789"), 0)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Truncate("f.txt", 4))

	md, err := t.b.Stat("f.txt")
	AssertEq(nil, err)
	ExpectEq(int64(4), md.Size)
}

func (t *PosixBackendTest) TruncateRejectsADirectory() {
	AssertEq(nil, t.b.Mkdir("sub", 0755))
	ExpectEq(vfs.ErrIsDirectory, t.b.Truncate("sub", 0))
}

func (t *PosixBackendTest) RenameMovesAFile() {
	h, err := t.b.Open("old.txt", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Rename("old.txt", "new.txt"))

	_, err = t.b.Stat("old.txt")
	ExpectEq(vfs.ErrNoEntry, err)

	_, err = t.b.Stat("new.txt")
	ExpectEq(nil, err)
}
