package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFiles is a minimal in-memory fsx.Handler, mirroring src/graph's test
// double, extended with a Matmakefile "file" the parser can read.
type fakeFiles struct {
	matmakefile []string
	mtimes      map[string]int64
	lines       map[string][]string
	dirs        map[string]bool
	popenCalls  int
}

func newFakeFiles(matmakefile []string) *fakeFiles {
	return &fakeFiles{
		matmakefile: matmakefile,
		mtimes:      map[string]int64{},
		lines:       map[string][]string{},
		dirs:        map[string]bool{},
	}
}

func (f *fakeFiles) FindFiles(pattern string) []string { return []string{pattern} }
func (f *fakeFiles) PopenWithResult(command string) (int, string) {
	f.popenCalls++
	return 0, ""
}
func (f *fakeFiles) TimeChanged(path string) int64   { return f.mtimes[path] }
func (f *fakeFiles) IsDirectory(path string) bool     { return f.dirs[path] }
func (f *fakeFiles) CreateDirectory(dir string) error { f.dirs[dir] = true; return nil }
func (f *fakeFiles) ListRecursive(directory string) []string { return nil }
func (f *fakeFiles) Remove(filename string) error {
	delete(f.mtimes, filename)
	return nil
}
func (f *fakeFiles) ReplaceFile(name, value string) error {
	f.mtimes[name] = 1
	return nil
}
func (f *fakeFiles) AppendToFile(name, value string) error { return nil }
func (f *fakeFiles) CopyFile(source, destination string) error {
	f.mtimes[destination] = f.mtimes[source]
	return nil
}
func (f *fakeFiles) ReadLines(source string) ([]string, error) {
	if source == "Matmakefile" {
		return f.matmakefile, nil
	}
	return f.lines[source], nil
}

func matmakefile() []string {
	return []string{
		"mylib.src = mylib.cpp",
		"mylib.out = static mylib",
		"app.src = main.cpp",
		"app.link = mylib",
	}
}

func TestRunListReturnsTargetNames(t *testing.T) {
	files := newFakeFiles(matmakefile())
	result, err := Run(context.Background(), List, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     1,
		Quiet:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app", "mylib"}, result.TargetNames)
}

func TestRunBuildCompilesEverythingFromScratch(t *testing.T) {
	files := newFakeFiles(matmakefile())
	files.mtimes["mylib.cpp"] = 100
	files.mtimes["main.cpp"] = 100

	_, err := Run(context.Background(), Build, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     2,
		Quiet:           true,
	})
	require.NoError(t, err)
	assert.Greater(t, files.popenCalls, 0)
}

func TestRunBuildUnknownTargetIsConfigurationError(t *testing.T) {
	files := newFakeFiles(matmakefile())
	_, err := Run(context.Background(), Build, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Targets:         []string{"nope"},
		Concurrency:     1,
		Quiet:           true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestRunCleanRemovesOutputs(t *testing.T) {
	files := newFakeFiles(matmakefile())
	files.mtimes["mylib.cpp"] = 100
	files.mtimes["main.cpp"] = 100
	_, err := Run(context.Background(), Build, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     2,
		Quiet:           true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, files.mtimes["mylib.a.d"]) // LinkRule.Work writes its dep-file listing

	_, err = Run(context.Background(), Clean, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     2,
		Quiet:           true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), files.mtimes["mylib.a.d"])
}

func TestRunEmptyMatmakefileBuildsNothing(t *testing.T) {
	files := newFakeFiles(nil)
	result, err := Run(context.Background(), List, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     1,
		Quiet:           true,
	})
	require.NoError(t, err)
	assert.Empty(t, result.TargetNames)
}

type missingFileHandler struct{ *fakeFiles }

func (m missingFileHandler) ReadLines(source string) ([]string, error) {
	return nil, errNotFound
}

var errNotFound = assert.AnError

func TestRunMissingMatmakefileIsError(t *testing.T) {
	files := missingFileHandler{newFakeFiles(nil)}
	_, err := Run(context.Background(), Build, Options{
		MatmakefilePath: "Matmakefile",
		Files:           files,
		Concurrency:     1,
		Quiet:           true,
	})
	require.Error(t, err)
}
