// Package depfile reads and writes the GCC/Clang "-MMD -MF" style dependency
// files matmake uses to decide whether a compiled object is stale with
// respect to the headers it transitively includes.
//
// Grounded on original_source/src/buildfile.h's parseDepFile (the plain
// Makefile-rule-syntax reader actually wired into the build) and
// original_source/src/dependency/dependency.h's commented-out generalised
// parseDepFile/doesDepFileHasCommand, which additionally records the
// command line a dep file was generated with as a trailing tab-indented
// line so a later command-string change can be detected without rerunning
// the compiler.
package depfile

import "strings"

// Parse reads the lines of a ".d" dependency file (as produced by
// "-MMD -MF") and returns the list of prerequisite paths it names, plus the
// previous build command if one was recorded on a trailing tab-indented
// line (see Dependency.appendToFile in the original). The first
// whitespace-separated token of the file is the rule's own target path and
// is discarded; a literal "\" token (the line-continuation marker Make
// writes before each newline) is skipped everywhere it appears.
func Parse(lines []string) (dependencies []string, command string) {
	firstLine := true
	for _, line := range lines {
		if line == "" {
			continue
		}
		if line[0] == '\t' {
			command = strings.TrimSpace(line)
			break
		}
		for _, field := range strings.Fields(line) {
			if firstLine {
				firstLine = false
				continue
			}
			if field == "\\" {
				continue
			}
			dependencies = append(dependencies, field)
		}
	}
	return dependencies, command
}

// AppendedCommand formats command the way a dep file's trailing command
// line is written: a single tab followed by the command string, matching
// files.appendToFile(depFile, "\t" + command) in the original.
func AppendedCommand(command string) string {
	return "\t" + command
}
