// Package fsx implements matmake's file-handler abstraction (§6): the
// engine's only point of contact with the real filesystem and subprocesses,
// so the graph/scheduler packages can be tested against a fake
// implementation instead.
//
// Grounded on original_source/src/environment/ifiles.h's IFiles contract and
// files.h's helpers (joinPaths, removeDoubleDots), with the concrete
// implementation adapted from please's src/fs/walk.go (godirwalk-based
// directory walking) and src/process/process.go (popen-style combined
// output capture).
package fsx

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/karrick/godirwalk"

	"github.com/thought-machine/matmake/src/process"
)

// Handler is matmake's file-handler interface: every filesystem and
// subprocess operation the graph and scheduler packages need, so tests can
// substitute a fake.
type Handler interface {
	// FindFiles expands a glob pattern (as used in "src=", "copy=", "link=")
	// to the list of matching paths, in a stable order. A pattern with no
	// glob metacharacters that doesn't exist on disk is returned unchanged
	// (so a literal filename still resolves even before it's created).
	FindFiles(pattern string) []string
	// PopenWithResult runs command in a shell and returns a status (0 on
	// success, non-zero on failure; OS reports every failure as 1) and the
	// combined stdout+stderr.
	PopenWithResult(command string) (int, string)
	// TimeChanged returns path's modification time as a Unix timestamp, or 0
	// if the path does not exist.
	TimeChanged(path string) int64
	// IsDirectory reports whether path exists and is a directory.
	IsDirectory(path string) bool
	// CreateDirectory creates dir and any missing parents.
	CreateDirectory(dir string) error
	// ListRecursive lists every file (not directory) under directory, paths
	// relative to directory's parent, the way godirwalk.Walk visits them.
	ListRecursive(directory string) []string
	// Remove deletes the named file. Removing a file that doesn't exist is
	// not an error.
	Remove(filename string) error
	// ReplaceFile overwrites (or creates) name with value.
	ReplaceFile(name, value string) error
	// AppendToFile appends value to name, creating it if needed.
	AppendToFile(name, value string) error
	// CopyFile copies source to destination, creating destination's parent
	// directory if needed.
	CopyFile(source, destination string) error
	// ReadLines reads source and splits it into lines; returns (nil, err) if
	// source doesn't exist or can't be read.
	ReadLines(source string) ([]string, error)
}

// OS is the Handler implementation backed by the real filesystem and a
// bash subprocess executor.
type OS struct {
	exec *process.Executor
}

// NewOS builds an OS file handler.
func NewOS() *OS {
	return &OS{exec: process.New()}
}

// FindFiles implements Handler.
func (o *OS) FindFiles(pattern string) []string {
	if !IsGlob(pattern) {
		return []string{pattern}
	}
	root := globRoot(pattern)
	var matches []string
	err := Walk(root, func(path string, isDir bool) error {
		if isDir {
			return nil
		}
		rel := path
		ok, err := doublestar.Match(pattern, rel)
		if err == nil && ok {
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Strings(matches)
	return matches
}

// globRoot returns the longest path prefix of pattern that contains no glob
// metacharacters, which is where the walk should start from - mirrors
// please's src/core/glob.go "initialFixedPart" technique, generalised for
// doublestar's richer "**" syntax.
func globRoot(pattern string) string {
	parts := strings.Split(pattern, "/")
	var fixed []string
	for _, p := range parts {
		if strings.ContainsAny(p, "*?[") {
			break
		}
		fixed = append(fixed, p)
	}
	if len(fixed) == 0 {
		return "."
	}
	return strings.Join(fixed, "/")
}

// IsGlob reports whether pattern contains any glob metacharacter.
func IsGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

// Walk visits every entry under rootPath, calling callback with each path
// and whether it is a directory. Ported from please's src/fs/walk.go, which
// wraps karrick/godirwalk to get a much faster walk than filepath.Walk for
// large source trees.
func Walk(rootPath string, callback func(path string, isDir bool) error) error {
	info, err := os.Lstat(rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if !info.IsDir() {
		return callback(rootPath, false)
	}
	return godirwalk.Walk(rootPath, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			return callback(path, de.IsDir())
		},
		Unsorted: false,
	})
}

// PopenWithResult implements Handler.
func (o *OS) PopenWithResult(command string) (int, string) {
	out, err := o.exec.Run(".", command)
	if err == nil {
		return 0, string(out)
	}
	return 1, string(out) + err.Error()
}

// TimeChanged implements Handler.
func (o *OS) TimeChanged(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().Unix()
}

// IsDirectory implements Handler.
func (o *OS) IsDirectory(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CreateDirectory implements Handler.
func (o *OS) CreateDirectory(dir string) error {
	if dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0775)
}

// ListRecursive implements Handler.
func (o *OS) ListRecursive(directory string) []string {
	var files []string
	_ = Walk(directory, func(path string, isDir bool) error {
		if !isDir {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// Remove implements Handler.
func (o *OS) Remove(filename string) error {
	err := os.Remove(filename)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ReplaceFile implements Handler.
func (o *OS) ReplaceFile(name, value string) error {
	if err := o.CreateDirectory(filepath.Dir(name)); err != nil {
		return err
	}
	return os.WriteFile(name, []byte(value), 0664)
}

// AppendToFile implements Handler.
func (o *OS) AppendToFile(name, value string) error {
	if err := o.CreateDirectory(filepath.Dir(name)); err != nil {
		return err
	}
	f, err := os.OpenFile(name, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0664)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(value)
	return err
}

// CopyFile implements Handler.
func (o *OS) CopyFile(source, destination string) error {
	src, err := os.Open(source)
	if err != nil {
		return err
	}
	defer src.Close()
	if err := o.CreateDirectory(filepath.Dir(destination)); err != nil {
		return err
	}
	dst, err := os.Create(destination)
	if err != nil {
		return err
	}
	defer dst.Close()
	_, err = io.Copy(dst, src)
	return err
}

// ReadLines implements Handler.
func (o *OS) ReadLines(source string) ([]string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines, nil
}

// JoinPaths joins a and b with the platform path separator, avoiding a
// doubled separator if a already ends in one - matches original_source's
// joinPaths exactly (including not special-casing an empty b).
func JoinPaths(a, b string) string {
	if a == "" {
		return b
	}
	if strings.HasSuffix(a, "/") {
		return a + b
	}
	return a + string(filepath.Separator) + b
}

// RemoveDoubleDots replaces any "../" path component with "_/" (and a bare
// or trailing ".." with "_"), the path-sanitisation matmake applies to every
// output/dep-file path it synthesizes so that "../foo.o" can't escape the
// build directory. Matches original_source's removeDoubleDots exactly.
func RemoveDoubleDots(s string) string {
	const find = "../"
	const replace = "_/"
	for {
		i := strings.Index(s, find)
		if i < 0 {
			break
		}
		s = s[:i] + replace + s[i+len(find):]
	}
	switch {
	case len(s) == 1:
		return s
	case s == "..":
		return "_"
	case len(s) >= 2 && s[len(s)-2:] == "..":
		return s[:len(s)-2] + "_"
	}
	return s
}

// StripFileEnding splits filename into its base and recognised source-file
// ending (without the dot), e.g. "main.cpp" -> ("main", "cpp"). If
// allowNoMatch is false and no recognised ending is found, ok is false.
func StripFileEnding(filename string, allowNoMatch bool) (base, ending string, ok bool) {
	filename = strings.TrimSpace(filename)
	for _, e := range []string{".cpp", ".cc", ".cxx", ".c", ".so"} {
		if strings.HasSuffix(filename, e) && len(filename) > len(e) {
			base = filename[:len(filename)-len(e)]
			ending = e[1:]
			if ending == "cc" || ending == "cxx" {
				ending = "cpp"
			}
			return base, ending, true
		}
	}
	if allowNoMatch {
		return filename, "", true
	}
	return "", "", false
}
