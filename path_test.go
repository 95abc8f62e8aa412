// Copyright 2015 Google Inc. All Rights Reserved.

package vfs_test

import (
	"testing"

	. "github.com/jacobsa/oglematchers"
	. "github.com/jacobsa/ogletest"
	"github.com/jacobsa/vfscore"
)

func TestPath(t *testing.T) { RunTests(t) }

type PathTest struct {
}

func init() { RegisterTestSuite(&PathTest{}) }

func (t *PathTest) CollapsesSeparatorRuns() {
	ExpectEq("/a/b", vfs.Normalize("/a//b"))
	ExpectEq("/a/b", vfs.Normalize("/a///b"))
}

func (t *PathTest) DiscardsDotComponents() {
	ExpectEq("/a/b", vfs.Normalize("/a/./b"))
	ExpectEq("/a/b", vfs.Normalize("/./a/b"))
}

func (t *PathTest) PopsForDotDot() {
	ExpectEq("/a/c", vfs.Normalize("/a/./b/../c"))
	ExpectEq("/", vfs.Normalize("/.."))
	ExpectEq("/", vfs.Normalize("/../.."))
}

func (t *PathTest) DotDotPastRootIsNoOp() {
	ExpectEq("/", vfs.Normalize("/../../../x/../.."))
}

func (t *PathTest) EmptyResultIsRoot() {
	ExpectEq("/", vfs.Normalize("/"))
	ExpectEq("/", vfs.Normalize("///"))
}

func (t *PathTest) IsIdempotent() {
	samples := []string{
		"/",
		"/a",
		"/a/b/c",
		"/a/./b/../c",
		"/../a",
	}
	for _, s := range samples {
		once := vfs.Normalize(s)
		twice := vfs.Normalize(once)
		ExpectEq(once, twice)
	}
}

func (t *PathTest) PreservesCase() {
	ExpectThat(vfs.Normalize("/Foo/Bar"), Equals("/Foo/Bar"))
}
