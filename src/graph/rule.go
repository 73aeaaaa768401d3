package graph

import (
	"sync"

	"github.com/thought-machine/matmake/src/fsx"
)

// Rule is one node in the build graph: something that can be prepared
// (checked for staleness, with its build command synthesized) and worked
// (actually run). CompileRule, CopyRule and LinkRule are the three concrete
// implementations, matching original_source's IBuildRule.
type Rule interface {
	// Node returns the rule's shared dependency bookkeeping.
	Node() *Node
	// Prepare checks staleness against files - matching
	// IBuildRule::prepare. CompileRule and LinkRule fill in Node().Command
	// whether or not the rule turns out dirty; CopyRule never sets one.
	Prepare(files fsx.Handler) error
	// Work performs the rule's action (compiling, copying, linking) and
	// clears Node().Dirty - matching IBuildRule::work. Returns the captured
	// command output for logging.
	Work(files fsx.Handler) (string, error)
}

// Node is the dependency-tracking state shared by every Rule, matching
// original_source's Dependency base class: each node knows which other
// nodes it depends on, and which nodes are waiting to hear when it finishes
// so the scheduler can notice when a waiting node's dependency count drops
// to zero.
type Node struct {
	Rule Rule

	Output          string
	DepFile         string
	Inputs          []string
	Command         string
	LinkString      string
	IncludeInBinary bool
	Type            BuildType

	mu          sync.Mutex
	dirty       bool
	deps        []*Node
	subscribers []*Node
}

// NewNode creates a Node for owner, included in the final link command
// unless includeInBinary is false (CopyRule's case).
func NewNode(owner Rule, includeInBinary bool, buildType BuildType) *Node {
	return &Node{Rule: owner, IncludeInBinary: includeInBinary, Type: buildType}
}

// Dirty reports whether this node still needs to be (re)built.
func (n *Node) Dirty() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dirty
}

// SetDirty sets the dirty flag.
func (n *Node) SetDirty(value bool) {
	n.mu.Lock()
	n.dirty = value
	n.mu.Unlock()
}

// AddDependency records that n cannot be built before dep is, matching
// Dependency::addDependency, and registers n as one of dep's subscribers so
// dep's completion can later notify n (matching the matching
// addSubscriber() call every original caller of addDependency makes
// alongside it). Order of addition is preserved (unlike the original's
// pointer-ordered std::set) so the synthesized link command is stable
// across runs regardless of memory layout.
func (n *Node) AddDependency(dep *Node) {
	if dep == nil {
		return
	}
	for _, existing := range n.deps {
		if existing == dep {
			return
		}
	}
	n.deps = append(n.deps, dep)
	dep.AddSubscriber(n)
}

// Dependencies returns the nodes n is still waiting on, in the order they
// were added.
func (n *Node) Dependencies() []*Node {
	return n.deps
}

// AddSubscriber registers s to be notified (via Notice) once n finishes,
// matching Dependency::addSubscriber.
func (n *Node) AddSubscriber(s *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, existing := range n.subscribers {
		if existing == s {
			return
		}
	}
	n.subscribers = append(n.subscribers, s)
}

// SendSubscribersNotice notifies every subscriber that n has finished and
// reports which of them became ready to run (their dependency set is now
// empty), matching Dependency::sendSubscribersNotice + Dependency::notice.
func (n *Node) SendSubscribersNotice() []*Node {
	n.mu.Lock()
	subs := n.subscribers
	n.subscribers = nil
	n.mu.Unlock()

	var ready []*Node
	for _, s := range subs {
		s.mu.Lock()
		s.removeDependency(n)
		empty := len(s.deps) == 0
		s.mu.Unlock()
		if empty {
			ready = append(ready, s)
		}
	}
	return ready
}

func (n *Node) removeDependency(dep *Node) {
	for i, d := range n.deps {
		if d == dep {
			n.deps = append(n.deps[:i], n.deps[i+1:]...)
			return
		}
	}
}

// Prune drops every dependency that is no longer dirty, matching
// Dependency::prune, so that only still-dirty dependencies remain in the
// set n waits on.
func (n *Node) Prune() {
	kept := n.deps[:0]
	for _, d := range n.deps {
		if d.Dirty() {
			kept = append(kept, d)
		}
	}
	n.deps = kept
}

// ChangedTime returns the oldest modification time among this node's output
// files (primary output plus dep file, if any), matching
// Dependency::changedTime - a zero result means at least one output is
// missing.
func (n *Node) ChangedTime(files fsx.Handler) int64 {
	var oldest int64 = -1
	for _, out := range n.outputs() {
		t := files.TimeChanged(out)
		if t == 0 {
			return 0
		}
		if oldest == -1 || t < oldest {
			oldest = t
		}
	}
	if oldest == -1 {
		return 0
	}
	return oldest
}

// InputChangedTime returns the newest modification time among this node's
// input files, matching Dependency::inputChangedTime.
func (n *Node) InputChangedTime(files fsx.Handler) int64 {
	var newest int64
	for _, in := range n.Inputs {
		if t := files.TimeChanged(in); t > newest {
			newest = t
		}
	}
	return newest
}

func (n *Node) outputs() []string {
	if n.DepFile == "" {
		return []string{n.Output}
	}
	return []string{n.Output, n.DepFile}
}

// Clean removes this node's output files, skipping any that are also one of
// its own inputs (so a CopyRule whose source and destination coincide never
// deletes the source), matching Dependency::clean.
func (n *Node) Clean(files fsx.Handler) {
	for _, out := range n.outputs() {
		if out == "" || contains(n.Inputs, out) {
			continue
		}
		log.Info("removing file %s", out)
		_ = files.Remove(out)
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
