package graph

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/thought-machine/matmake/src/depfile"
	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/profile"
)

// LinkRule links a target's object files (and any targets it "link="s
// against) into the target's final artifact - an executable, a shared
// library or a static archive - matching
// original_source/src/dependency/linkfile.h's LinkFile.
type LinkRule struct {
	node   *Node
	target *Target

	dependencyListing string
}

// NewLinkRule builds the LinkRule for target. filename is the target's own
// output filename (Target.filename()).
func NewLinkRule(filename string, target *Target) *LinkRule {
	r := &LinkRule{target: target}
	r.node = NewNode(r, true, target.buildType())
	r.node.Output = fsx.RemoveDoubleDots(target.getOutputDir() + filename)
	r.node.DepFile = fsx.RemoveDoubleDots(target.getBuildDirectory() + filename + ".d")

	dir := target.getOutputDir()
	if r.node.Type == Shared {
		if dir == "" {
			dir = "."
		}
		r.node.LinkString = target.profile.PrepareLinkString(dir, filename)
	} else {
		r.node.LinkString = shellescape.Quote(r.node.Output)
	}
	return r
}

// Node implements Rule.
func (r *LinkRule) Node() *Node { return r.node }

// Prepare implements Rule, matching LinkFile::prepare: dirty if any
// dependency is dirty or missing, if a dependency is newer than this
// target's own output, or if the synthesized link command differs from the
// one recorded in the dep file last time.
func (r *LinkRule) Prepare(files fsx.Handler) error {
	if r.node.Output == "" || r.target.name.Text == "root" {
		return nil
	}
	r.node.SetDirty(false)

	var lastDependency int64
	for _, d := range r.node.Dependencies() {
		t := d.ChangedTime(files)
		if d.Dirty() {
			r.node.SetDirty(true)
		}
		if t > lastDependency {
			lastDependency = t
		}
		if t == 0 {
			r.node.SetDirty(true)
		}
	}

	if lastDependency > r.node.ChangedTime(files) {
		r.node.SetDirty(true)
	} else if !r.node.Dirty() {
		log.Notice("%s is fresh", r.node.Output)
	}

	if err := r.prepareCommand(); err != nil {
		return err
	}

	lines, _ := files.ReadLines(r.node.DepFile)
	_, oldCommand := depfile.Parse(lines)
	if r.node.Command != oldCommand {
		r.node.SetDirty(true)
	}
	return nil
}

func (r *LinkRule) prepareCommand() error {
	var fileList strings.Builder
	for _, d := range r.node.Dependencies() {
		if d.IncludeInBinary {
			fileList.WriteString(d.LinkString + " ")
		}
	}

	var ss strings.Builder
	fmt.Fprintf(&ss, "%s:", r.node.Output)
	for _, d := range r.node.Dependencies() {
		fmt.Fprintf(&ss, " %s", d.Output)
	}
	ss.WriteString("\n")
	r.dependencyListing = ss.String()

	flags, err := r.target.getFlags()
	if err != nil {
		return err
	}

	cpp := r.target.getCompiler("cpp")
	output := shellescape.Quote(r.node.Output)
	var cmd string
	switch r.node.Type {
	case Shared:
		cmd = cpp + " -shared -o " + output + " -Wl,--start-group " + fileList.String() + " " + r.target.getLibs() + "  -Wl,--end-group  " + flags
	case Static:
		cmd = "ar -rs " + output + " " + fileList.String()
	default:
		cmd = cpp + " -o " + output + " -Wl,--start-group " + fileList.String() + " " + r.target.getLibs() + "  -Wl,--end-group  " + flags
	}
	cmd = r.target.preprocessCommand(cmd)

	if r.node.Type == Executable || r.node.Type == Shared {
		if r.hasReferencesToSharedLibrary() {
			cmd += " " + r.target.profile.String(profile.RPathOriginFlag)
		}
	}
	r.node.Command = strings.TrimRight(cmd, " \t")
	return nil
}

func (r *LinkRule) hasReferencesToSharedLibrary() bool {
	for _, d := range r.node.Dependencies() {
		if d.Type == Shared {
			return true
		}
	}
	return false
}

// Work implements Rule: writes the dep-file listing (with the command that
// produced it appended as a trailing tab-indented line, so the next Prepare
// can detect a command-string change) and runs the link/ar command.
func (r *LinkRule) Work(files fsx.Handler) (string, error) {
	if r.node.Command == "" {
		return "", nil
	}
	listing := r.dependencyListing + depfile.AppendedCommand(r.node.Command)
	if err := files.ReplaceFile(r.node.DepFile, listing); err != nil {
		return "", err
	}
	log.Debug("%s", r.node.Command)
	code, out := files.PopenWithResult(r.node.Command)
	if code != 0 {
		return "", fmt.Errorf("could not build object:\n%s\n%s", r.node.Command, out)
	}
	r.node.SetDirty(false)
	return out, nil
}
