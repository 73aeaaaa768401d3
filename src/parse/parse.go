// Package parse turns Matmakefile source text into a props.Collection: the
// external collaborator spec.md §6 describes only at the interface (an
// assignment grammar that produces Tokens and NameDescriptors) and leaves
// "informative". It is its own package so src/engine only ever consumes
// Tokens/Properties, never Matmakefile syntax.
//
// Grounded on original_source/src/main/parsematmakefile.h's line loop
// (operator scan, multi-line continuation by leading whitespace,
// "external"/"dependency" directives) and on src/token's Tokenize, in the
// scanning style _examples/lenticularis39-mk uses for its own line-oriented
// lexer.
package parse

import (
	"fmt"

	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/props"
	"github.com/thought-machine/matmake/src/token"
)

var log = logging.Log

// operators lists the assignment tokens the grammar recognizes. "-=" parses
// as a valid operator (so a line using it isn't reported as a syntax error)
// but, matching the original, has no assignment behavior defined for it.
var operators = map[string]bool{"=": true, "+=": true, "-=": true}

// File reads the Matmakefile at path through files and parses it into a new
// props.Collection seeded with commandLineVars, matching
// parseMatmakeFile's "+=" treatment of -e/--var command-line overrides.
func File(path string, files fsx.Handler, commandLineVars map[string][]string) (*props.Collection, error) {
	lines, err := files.ReadLines(path)
	if err != nil {
		return nil, fmt.Errorf("could not find %s: %w", path, err)
	}
	collection := props.NewCollection(commandLineVars)
	if err := Lines(lines, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// Lines parses Matmakefile source, already split into lines, directly into
// collection - split out from File so tests can feed in-memory source
// without a fsx.Handler.
func Lines(lines []string, collection *props.Collection) error {
	i := 0
	lineNumber := 1
	for i < len(lines) {
		line := lines[i]
		num := lineNumber
		i++
		lineNumber++

		words := token.Tokenize(line, num)
		if words.Empty() {
			continue
		}

		opIndex := findOperator(words)
		if opIndex >= 0 {
			nameTokens := words[:opIndex]
			valueTokens := append(token.Tokens(nil), words[opIndex+1:]...)
			if valueTokens.Empty() {
				var consumed int
				valueTokens, consumed = continuation(lines[i:], lineNumber)
				i += consumed
				lineNumber += consumed
			}

			nd := token.NewNameDescriptor(nameTokens)
			if nd.Empty() {
				return fmt.Errorf("%s: '%s': malformed property name", words[0].Location, line)
			}

			switch words[opIndex].Text {
			case "=":
				if err := collection.SetVariable(nd, valueTokens); err != nil {
					return err
				}
			case "+=":
				collection.AppendVariable(nd, valueTokens)
			}
			continue
		}

		if len(words) >= 2 && words[0].Equal("external") {
			log.Notice("external dependency to %s (not supported, skipping)", words[1].Text)
			continue
		}
		if len(words) >= 2 && words[0].Equal("dependency") {
			log.Notice("local dependency on %s (not supported, skipping)", words[1].Text)
			continue
		}

		return fmt.Errorf("%s: '%s': are you missing operator?", words[0].Location, line)
	}
	return nil
}

// findOperator returns the index of the first recognized assignment
// operator at or after words[1] (the grammar never treats the very first
// word as an operator, so "foo.bar" alone can't parse as one), or -1.
func findOperator(words token.Tokens) int {
	for i := 1; i < len(words); i++ {
		if operators[words[i].Text] {
			return i
		}
	}
	return -1
}

// continuation consumes every following line that starts with whitespace,
// tokenizing and appending each to build one multi-line value - matching
// getMultilineArgument's "while the next line starts with a space" rule. It
// returns the accumulated value and how many lines it consumed.
func continuation(rest []string, startLine int) (token.Tokens, int) {
	var value token.Tokens
	consumed := 0
	for _, line := range rest {
		if line == "" || !isLeadingSpace(line[0]) {
			break
		}
		words := token.Tokenize(line, startLine+consumed)
		value = value.Append(words)
		if !value.Empty() {
			value[len(value)-1].TrailingSpace += " "
		}
		consumed++
	}
	return value, consumed
}

func isLeadingSpace(c byte) bool {
	return c == ' ' || c == '\t'
}
