package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/graph"
)

type stubRule struct {
	node *graph.Node
}

func newStubRule(output, command string) *stubRule {
	r := &stubRule{}
	r.node = graph.NewNode(r, true, graph.Object)
	r.node.Output = output
	r.node.Command = command
	return r
}

func (r *stubRule) Node() *graph.Node               { return r.node }
func (r *stubRule) Prepare(fsx.Handler) error       { return nil }
func (r *stubRule) Work(fsx.Handler) (string, error) { return "", nil }

var _ graph.Rule = (*stubRule)(nil)

func TestRecordOpsHashesEveryRuleByOutput(t *testing.T) {
	a := newStubRule("a.o", "gcc -c -o a.o a.cpp")
	b := newStubRule("b.o", "gcc -c -o b.o b.cpp")

	ops := RecordOps([]graph.Rule{a, b})
	assert.Len(t, ops, 2)
	assert.NotEqual(t, ops["a.o"], ops["b.o"])
}

func TestRecordOpsSkipsRulesWithNoCommandOrOutput(t *testing.T) {
	fresh := newStubRule("a.o", "") // no command synthesized, as for a CopyRule
	root := newStubRule("", "")

	ops := RecordOps([]graph.Rule{fresh, root})
	assert.Empty(t, ops)
}

func TestPreviousOpsChangedDetectsCommandEdits(t *testing.T) {
	ops := RecordOps([]graph.Rule{newStubRule("a.o", "gcc -c -o a.o a.cpp")})

	assert.False(t, ops.Changed("a.o", "gcc -c -o a.o a.cpp"))
	assert.True(t, ops.Changed("a.o", "gcc -c -o a.o a.cpp -O2"))
	assert.True(t, ops.Changed("never-seen.o", "anything"))
}
