package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/graph"
)

// noopFiles is an fsx.Handler that never touches the real filesystem; the
// fake rules below don't need it for anything beyond satisfying the
// interface.
type noopFiles struct{}

func (noopFiles) FindFiles(pattern string) []string            { return nil }
func (noopFiles) PopenWithResult(string) (int, string)          { return 0, "" }
func (noopFiles) TimeChanged(string) int64                      { return 0 }
func (noopFiles) IsDirectory(string) bool                       { return false }
func (noopFiles) CreateDirectory(string) error                  { return nil }
func (noopFiles) ListRecursive(string) []string                 { return nil }
func (noopFiles) Remove(string) error                           { return nil }
func (noopFiles) ReplaceFile(string, string) error              { return nil }
func (noopFiles) AppendToFile(string, string) error             { return nil }
func (noopFiles) CopyFile(string, string) error                 { return nil }
func (noopFiles) ReadLines(string) ([]string, error)            { return nil, nil }

var _ fsx.Handler = noopFiles{}

// fakeRule is a minimal graph.Rule for exercising scheduling order and
// concurrency without a real compiler. Prepare is a no-op: dirtiness is set
// up front by the test via node.SetDirty.
type fakeRule struct {
	name  string
	node  *graph.Node
	fail  bool
	mu    *sync.Mutex
	order *[]string
}

func newFakeRule(name string, dirty bool, mu *sync.Mutex, order *[]string) *fakeRule {
	r := &fakeRule{name: name, mu: mu, order: order}
	r.node = graph.NewNode(r, true, graph.Object)
	r.node.SetDirty(dirty)
	return r
}

func (r *fakeRule) Node() *graph.Node { return r.node }

func (r *fakeRule) Prepare(fsx.Handler) error { return nil }

func (r *fakeRule) Work(fsx.Handler) (string, error) {
	if r.fail {
		return "", fmt.Errorf("%s failed", r.name)
	}
	r.mu.Lock()
	*r.order = append(*r.order, r.name)
	r.mu.Unlock()
	return "", nil
}

var _ graph.Rule = (*fakeRule)(nil)

func TestSchedulerRunsDirtyRulesAndSkipsClean(t *testing.T) {
	var mu sync.Mutex
	var order []string

	a := newFakeRule("a", true, &mu, &order)
	b := newFakeRule("b", false, &mu, &order)
	c := newFakeRule("c", true, &mu, &order)
	c.node.AddDependency(a.node)

	s := New(noopFiles{}, 2, nil)
	ran, err := s.Run(context.Background(), []graph.Rule{a, b, c})
	require.NoError(t, err)
	assert.Equal(t, 2, ran) // a and c were dirty; b was clean and never ran

	assert.Contains(t, order, "a")
	assert.Contains(t, order, "c")
	assert.NotContains(t, order, "b")

	var aIdx, cIdx int
	for i, n := range order {
		if n == "a" {
			aIdx = i
		}
		if n == "c" {
			cIdx = i
		}
	}
	assert.Less(t, aIdx, cIdx)
}

func TestSchedulerDoesNotRunCleanSubscriberOfCleanDependency(t *testing.T) {
	var mu sync.Mutex
	var order []string

	// x is clean, y subscribes to x but is also clean (e.g. a fresh target
	// linking against another fresh target) - settling x must not dispatch
	// Work on y just because y's dependency count reached zero.
	x := newFakeRule("x", false, &mu, &order)
	y := newFakeRule("y", false, &mu, &order)
	y.node.AddDependency(x.node)
	z := newFakeRule("z", true, &mu, &order)

	s := New(noopFiles{}, 2, nil)
	ran, err := s.Run(context.Background(), []graph.Rule{x, y, z})
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, []string{"z"}, order)
}

func TestSchedulerStopsOnFirstError(t *testing.T) {
	var mu sync.Mutex
	var order []string

	a := newFakeRule("a", true, &mu, &order)
	a.fail = true
	b := newFakeRule("b", true, &mu, &order)
	b.node.AddDependency(a.node)

	s := New(noopFiles{}, 2, nil)
	ran, err := s.Run(context.Background(), []graph.Rule{a, b})
	require.Error(t, err)
	assert.Equal(t, 0, ran)
	assert.NotContains(t, order, "b")
}

func TestSchedulerNothingToDoWhenAllClean(t *testing.T) {
	var mu sync.Mutex
	var order []string
	a := newFakeRule("a", false, &mu, &order)

	s := New(noopFiles{}, 4, nil)
	ran, err := s.Run(context.Background(), []graph.Rule{a})
	require.NoError(t, err)
	assert.Equal(t, 0, ran)
	assert.Empty(t, order)
}

func TestSchedulerReportsProgress(t *testing.T) {
	var mu sync.Mutex
	var order []string
	a := newFakeRule("a", true, &mu, &order)
	b := newFakeRule("b", true, &mu, &order)

	var progressCalls []string
	var progressMu sync.Mutex
	s := New(noopFiles{}, 2, func(done, total int) {
		progressMu.Lock()
		progressCalls = append(progressCalls, fmt.Sprintf("%d/%d", done, total))
		progressMu.Unlock()
	})
	ran, err := s.Run(context.Background(), []graph.Rule{a, b})
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.Len(t, progressCalls, 2)
}
