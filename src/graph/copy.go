package graph

import (
	"fmt"

	"github.com/thought-machine/matmake/src/fsx"
)

// CopyRule copies a file into a target's output directory unchanged,
// matching original_source/src/dependency/copyfile.h's CopyFile.
type CopyRule struct {
	node   *Node
	target *Target
	source string
}

// NewCopyRule builds the CopyRule for source (already %-substituted)
// belonging to target. If the computed destination is identical to the
// source, the copy is a no-op (matching CopyFile's "same source and output"
// skip) and Node().Output is left empty.
func NewCopyRule(source string, target *Target) *CopyRule {
	r := &CopyRule{target: target, source: source}
	r.node = NewNode(r, false, CopyArtifact)
	r.node.Inputs = []string{source}

	dest := fsx.JoinPaths(target.getOutputDir(), source)
	if dest != source {
		r.node.Output = dest
	} else {
		log.Debug("%s does not need copying, same source and output", dest)
	}
	return r
}

// Node implements Rule.
func (r *CopyRule) Node() *Node { return r.node }

// Prepare implements Rule, matching CopyFile::prepare: dirty if the source
// is newer than any existing copy.
func (r *CopyRule) Prepare(files fsx.Handler) error {
	if r.node.Output == "" {
		return nil
	}
	if r.node.InputChangedTime(files) > r.node.ChangedTime(files) {
		r.node.SetDirty(true)
	}
	return nil
}

// Work implements Rule: copies the source file to the destination.
func (r *CopyRule) Work(files fsx.Handler) (string, error) {
	if r.node.Output == "" {
		return "", nil
	}
	if err := files.CopyFile(r.source, r.node.Output); err != nil {
		return "", fmt.Errorf("could not copy %s to %s for target %s: %w", r.source, r.node.Output, r.target.name.Text, err)
	}
	r.node.SetDirty(false)
	return fmt.Sprintf("copy %s --> %s", r.source, r.node.Output), nil
}
