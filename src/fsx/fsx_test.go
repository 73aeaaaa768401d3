package fsx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinPaths(t *testing.T) {
	assert.Equal(t, "a/b", JoinPaths("a", "b"))
	assert.Equal(t, "a/b", JoinPaths("a/", "b"))
	assert.Equal(t, "b", JoinPaths("", "b"))
}

func TestRemoveDoubleDots(t *testing.T) {
	assert.Equal(t, "_/foo.o", RemoveDoubleDots("../foo.o"))
	assert.Equal(t, "a/_/b/_/c", RemoveDoubleDots("a/../b/../c"))
	assert.Equal(t, "_", RemoveDoubleDots(".."))
}

func TestStripFileEnding(t *testing.T) {
	base, ending, ok := StripFileEnding("main.cpp", false)
	require.True(t, ok)
	assert.Equal(t, "main", base)
	assert.Equal(t, "cpp", ending)

	base, ending, ok = StripFileEnding("main.cc", false)
	require.True(t, ok)
	assert.Equal(t, "main", base)
	assert.Equal(t, "cpp", ending)

	_, _, ok = StripFileEnding("README.md", false)
	assert.False(t, ok)

	base, _, ok = StripFileEnding("README.md", true)
	require.True(t, ok)
	assert.Equal(t, "README.md", base)
}

func TestIsGlob(t *testing.T) {
	assert.True(t, IsGlob("src/*.cpp"))
	assert.True(t, IsGlob("src/**/*.cpp"))
	assert.False(t, IsGlob("src/main.cpp"))
}

func TestOSFindFilesLiteralPathReturnedUnchanged(t *testing.T) {
	o := NewOS()
	assert.Equal(t, []string{"does/not/exist.cpp"}, o.FindFiles("does/not/exist.cpp"))
}

func TestOSFindFilesGlobMatchesCreatedFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0775))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.cpp"), []byte(""), 0664))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "b.cpp"), []byte(""), 0664))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "c.h"), []byte(""), 0664))

	o := NewOS()
	matches := o.FindFiles(filepath.Join(dir, "src", "*.cpp"))
	assert.Len(t, matches, 2)
}

func TestOSCreateAndIsDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "c")
	o := NewOS()
	require.NoError(t, o.CreateDirectory(dir))
	assert.True(t, o.IsDirectory(dir))
	assert.False(t, o.IsDirectory(filepath.Join(dir, "nope")))
}

func TestOSReplaceAndReadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	o := NewOS()
	require.NoError(t, o.ReplaceFile(path, "one\ntwo\n"))
	lines, err := o.ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestOSAppendToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	o := NewOS()
	require.NoError(t, o.AppendToFile(path, "one\n"))
	require.NoError(t, o.AppendToFile(path, "two\n"))
	lines, err := o.ReadLines(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, lines)
}

func TestOSCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "nested", "dst.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0664))

	o := NewOS()
	require.NoError(t, o.CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestOSRemoveIsNotAnErrorWhenMissing(t *testing.T) {
	o := NewOS()
	assert.NoError(t, o.Remove(filepath.Join(t.TempDir(), "missing")))
}

func TestOSTimeChangedOfMissingFileIsZero(t *testing.T) {
	o := NewOS()
	assert.Equal(t, int64(0), o.TimeChanged(filepath.Join(t.TempDir(), "missing")))
}

func TestOSPopenWithResult(t *testing.T) {
	o := NewOS()
	code, out := o.PopenWithResult("echo hello")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "hello")

	code, _ = o.PopenWithResult("exit 3")
	assert.Equal(t, 1, code)
}
