// Copyright 2015 Google Inc. All Rights Reserved.

package membackend_test

import (
	"testing"

	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/vfscore"
	"github.com/jacobsa/vfscore/membackend"
)

func TestMemBackend(t *testing.T) { RunTests(t) }

type MemBackendTest struct {
	b vfs.Backend
}

func init() { RegisterTestSuite(&MemBackendTest{}) }

func (t *MemBackendTest) SetUp(ti *TestInfo) {
	proto := membackend.New()
	inst, err := proto.Init("")
	AssertEq(nil, err)
	t.b = inst
}

func (t *MemBackendTest) TearDown() {
	t.b.Shutdown()
}

func (t *MemBackendTest) WriteThenReadRoundTrips() {
	h, err := t.b.Open("f", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)

	n, err := t.b.WriteAt(h, []byte("hello"), 0)
	AssertEq(nil, err)
	ExpectEq(5, n)

	buf := make([]byte, 16)
	n, err = t.b.ReadAt(h, buf, 0)
	AssertEq(nil, err)
	ExpectEq(5, n)
	ExpectEq("hello", string(buf[:n]))
}

func (t *MemBackendTest) WriteAtAnOffsetGrowsTheFile() {
	h, err := t.b.Open("f", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)

	_, err = t.b.WriteAt(h, []byte("xy"), 4)
	AssertEq(nil, err)

	md, err := t.b.Stat("f")
	AssertEq(nil, err)
	ExpectEq(int64(6), md.Size)
}

func (t *MemBackendTest) OpenOnADirectoryFails() {
	AssertEq(nil, t.b.Mkdir("d", 0755))
	_, err := t.b.Open("d", vfs.OpenReadOnly, 0)
	ExpectEq(vfs.ErrIsDirectory, err)
}

func (t *MemBackendTest) ExclusiveCreateOnExistingFileFails() {
	h, err := t.b.Open("f", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	_, err = t.b.Open("f", vfs.OpenCreate|vfs.OpenExclusive|vfs.OpenReadWrite, 0644)
	ExpectEq(vfs.ErrExists, err)
}

func (t *MemBackendTest) MkdirTwiceFails() {
	AssertEq(nil, t.b.Mkdir("d", 0755))
	err := t.b.Mkdir("d", 0755)
	ExpectEq(vfs.ErrExists, err)
}

func (t *MemBackendTest) UnlinkThenStatReportsMissing() {
	h, err := t.b.Open("f", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Unlink("f"))

	_, err = t.b.Stat("f")
	ExpectEq(vfs.ErrNoEntry, err)
}

func (t *MemBackendTest) TruncateShrinksAndGrowsContents() {
	h, err := t.b.Open("f", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	_, err = t.b.WriteAt(h, []byte("0123456789"), 0)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Truncate("f", 4))
	md, err := t.b.Stat("f")
	AssertEq(nil, err)
	ExpectEq(int64(4), md.Size)

	AssertEq(nil, t.b.Truncate("f", 8))
	md, err = t.b.Stat("f")
	AssertEq(nil, err)
	ExpectEq(int64(8), md.Size)
}

func (t *MemBackendTest) TruncateRejectsADirectory() {
	AssertEq(nil, t.b.Mkdir("d", 0755))
	ExpectEq(vfs.ErrIsDirectory, t.b.Truncate("d", 0))
}

func (t *MemBackendTest) RenameMovesAnEntry() {
	h, err := t.b.Open("old", vfs.OpenCreate|vfs.OpenReadWrite, 0644)
	AssertEq(nil, err)
	AssertEq(nil, t.b.Close(h))

	AssertEq(nil, t.b.Rename("old", "new"))

	_, err = t.b.Stat("old")
	ExpectEq(vfs.ErrNoEntry, err)

	_, err = t.b.Stat("new")
	ExpectEq(nil, err)
}
