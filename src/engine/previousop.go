package engine

import (
	"github.com/cespare/xxhash/v2"

	"github.com/thought-machine/matmake/src/graph"
)

// PreviousOps is an in-memory map from a rule's output path to the xxhash of
// the command that last ran (or would next run) for it - additive
// bookkeeping on top of the per-rule dep-files, grounded in please's
// src/core/previous_op.go PreviousOperation/SetPreviousOperation table. It
// doesn't change staleness semantics; it exists so a cheap "would this
// rebuild?" answer is available without re-running prepare.
type PreviousOps map[string]uint64

// RecordOps hashes every rule's currently synthesized command (set by
// Prepare) into a PreviousOps table, keyed by output path.
func RecordOps(rules []graph.Rule) PreviousOps {
	ops := make(PreviousOps, len(rules))
	for _, r := range rules {
		n := r.Node()
		if n.Output == "" || n.Command == "" {
			continue
		}
		ops[n.Output] = xxhash.Sum64String(n.Command)
	}
	return ops
}

// Changed reports whether output's command hash differs from (or is absent
// from) the table - i.e. whether it would run on the next build.
func (ops PreviousOps) Changed(output string, command string) bool {
	hash, ok := ops[output]
	return !ok || hash != xxhash.Sum64String(command)
}
