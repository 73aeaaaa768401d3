package graph

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/thought-machine/matmake/src/depfile"
	"github.com/thought-machine/matmake/src/fsx"
)

// CompileRule compiles a single source file to an object file, matching
// original_source/src/dependency/buildfile.h's BuildFile.
type CompileRule struct {
	node     *Node
	target   *Target
	filename string
	filetype string
}

// NewCompileRule builds the CompileRule for filename (already %-substituted)
// belonging to target.
func NewCompileRule(filename string, target *Target) (*CompileRule, error) {
	outBase, filetype, ok := fsx.StripFileEnding(target.getBuildDirectory()+filename, false)
	if !ok {
		return nil, fmt.Errorf("could not figure out source file type %q; is the file ending right?", target.getBuildDirectory()+filename)
	}
	if filename == "" {
		return nil, fmt.Errorf("empty source file added to target %s", target.name.Text)
	}

	r := &CompileRule{target: target, filename: filename, filetype: filetype}
	r.node = NewNode(r, true, Object)

	r.node.Output = fsx.RemoveDoubleDots(outBase + ".o")
	r.node.DepFile = fsx.RemoveDoubleDots(outBase + ".d")
	r.node.Inputs = []string{filename}

	if r.node.Output == "" {
		return nil, fmt.Errorf("could not find target name for %s", filename)
	}
	if r.node.DepFile == "" {
		return nil, fmt.Errorf("could not find dep filename for %s", r.node.Output)
	}
	return r, nil
}

// Node implements Rule.
func (r *CompileRule) Node() *Node { return r.node }

// Prepare implements Rule, matching BuildFile::prepare: a CompileRule is
// dirty if its object file is older than its source, if no prior dep file
// exists, if any dependency named in that dep file has changed since, or if
// the compile command itself differs from the one recorded in the dep file
// last time.
func (r *CompileRule) Prepare(files fsx.Handler) error {
	inputChanged := files.TimeChanged(r.filename)
	outputChanged := r.node.ChangedTime(files)

	lines, _ := files.ReadLines(r.node.DepFile)
	deps, oldCommand := depfile.Parse(lines)

	if outputChanged < inputChanged {
		r.node.SetDirty(true)
	}

	if len(deps) == 0 {
		r.node.SetDirty(true)
	} else {
		for _, d := range deps {
			t := files.TimeChanged(d)
			if t == 0 || t > outputChanged {
				r.node.SetDirty(true)
				break
			}
		}
	}

	flags, err := r.target.getBuildFlags(r.filetype)
	if err != nil {
		return err
	}
	depFlag := " -MMD -MF " + shellescape.Quote(r.node.DepFile) + " "
	command := r.target.getCompiler(r.filetype) + " -c -o " + shellescape.Quote(r.node.Output) + " " + shellescape.Quote(r.filename) + " " + flags + depFlag
	// Trimmed so it compares equal to the copy depfile.Parse reads back.
	command = strings.TrimSpace(r.target.preprocessCommand(command))
	r.node.Command = command

	if !r.node.Dirty() && command != oldCommand {
		r.node.SetDirty(true)
	}
	return nil
}

// Work implements Rule: runs the compile command, records the command on
// the dep file GCC/Clang just wrote (so the next Prepare can detect a
// command-string change even though "-MMD -MF" never writes one itself),
// and clears dirty.
func (r *CompileRule) Work(files fsx.Handler) (string, error) {
	if r.node.Command == "" {
		return "", nil
	}
	log.Debug("%s", r.node.Command)
	code, out := files.PopenWithResult(r.node.Command)
	if code != 0 {
		return "", fmt.Errorf("could not build object:\n%s\n%s", r.node.Command, out)
	}
	if err := files.AppendToFile(r.node.DepFile, depfile.AppendedCommand(r.node.Command)); err != nil {
		return "", err
	}
	r.node.SetDirty(false)
	return out, nil
}
