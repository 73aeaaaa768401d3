// Package engine wires the rest of matmake's components into the four
// operations the CLI exposes (§6's "exit discipline"): build, clean,
// rebuild and list. It is the direct replacement for please's src/plz.Run:
// parse the Matmakefile, materialize the graph, then drive the scheduler
// (or a one-shot clean pass) to completion.
//
// Grounded on please's src/plz/plz.go (a single Run entry point taking an
// options/state bundle and returning once the whole operation settles) and
// on original_source/src/matmake.cpp's Environment::compile/clean (target
// argument resolution, calculateDependencies-then-act ordering).
package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"

	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/graph"
	"github.com/thought-machine/matmake/src/output"
	"github.com/thought-machine/matmake/src/parse"
	"github.com/thought-machine/matmake/src/scheduler"
)

var log = logging.Log

// Operation selects one of the four top-level behaviors the CLI offers.
type Operation string

// The operations matmake's CLI can request, matching spec.md §6.
const (
	Build   Operation = "build"
	Clean   Operation = "clean"
	Rebuild Operation = "rebuild"
	List    Operation = "list"
)

// Options bundles everything a Run needs that would otherwise be global
// state in the original (numberOfThreads, verbose, debugOutput) - matching
// §9's "pass an immutable configuration struct through the engine".
type Options struct {
	MatmakefilePath string
	Files           fsx.Handler
	CommandLineVars map[string][]string
	Targets         []string // empty means "every target"
	Concurrency     int
	Progress        scheduler.Progress
	Quiet           bool // suppress the interactive progress bar (verbose/debug mode)
	PrintCommands   bool // echo each dirty rule's synthesized command before running it
}

// Result reports what a Run produced, beyond success/failure.
type Result struct {
	// TargetNames is populated for Operation List; every other operation
	// leaves it nil.
	TargetNames []string
	// PreviousOps is populated for Operation Build/Rebuild: the hash of
	// every rule's synthesized command, keyed by output path, as of this
	// run - see PreviousOps for what it's for.
	PreviousOps PreviousOps
}

// Run parses the Matmakefile, builds the dependency graph and carries out
// op against it.
func Run(ctx context.Context, op Operation, opts Options) (Result, error) {
	collection, err := parse.File(opts.MatmakefilePath, opts.Files, opts.CommandLineVars)
	if err != nil {
		return Result{}, err
	}

	g, err := graph.Build(collection, opts.Files)
	if err != nil {
		return Result{}, err
	}

	switch op {
	case List:
		return Result{TargetNames: sortedNames(g)}, nil
	case Clean:
		return Result{}, clean(g, opts)
	case Rebuild:
		if err := clean(g, opts); err != nil {
			return Result{}, err
		}
		return build(ctx, g, opts)
	default:
		return build(ctx, g, opts)
	}
}

// build resolves opts.Targets against g, creates every output/build
// directory the selected rules will write under, then runs the scheduler
// over the selected rules.
func build(ctx context.Context, g *graph.Graph, opts Options) (Result, error) {
	rules, err := selectRules(g, opts.Targets)
	if err != nil {
		return Result{}, err
	}
	if err := createOutputDirectories(rules, opts.Files); err != nil {
		return Result{}, err
	}

	if opts.PrintCommands {
		for _, r := range rules {
			if err := r.Prepare(opts.Files); err != nil {
				return Result{}, err
			}
			if r.Node().Dirty() && r.Node().Command != "" {
				output.PrintCommand(r.Node().Command)
			}
		}
	}

	bar := output.New(opts.Quiet)
	progress := opts.Progress
	if progress == nil {
		progress = bar.Update
	}

	s := scheduler.New(opts.Files, opts.Concurrency, progress)
	tasksRun, err := s.Run(ctx, rules)
	bar.Finish(tasksRun)
	return Result{PreviousOps: RecordOps(rules)}, err
}

// clean removes every output file the selected rules produced, matching
// Environment::clean: recalculate the graph, then clean() every rule for
// the requested targets (or every rule, if none were named).
func clean(g *graph.Graph, opts Options) error {
	rules, err := selectRules(g, opts.Targets)
	if err != nil {
		return err
	}
	for _, r := range rules {
		r.Node().Clean(opts.Files)
	}
	return nil
}

// selectRules resolves targetNames to their rule sets, matching
// matmake.cpp's compile()/clean() target-argument handling: an empty list
// means every target; an unresolvable name is a configuration error naming
// the available alternatives.
func selectRules(g *graph.Graph, targetNames []string) ([]graph.Rule, error) {
	if len(targetNames) == 0 {
		return g.Rules, nil
	}

	var rules []graph.Rule
	var errs *multierror.Error
	for _, name := range targetNames {
		found := g.RulesFor(name)
		if found == nil {
			errs = multierror.Append(errs, fmt.Errorf(
				"target %q does not exist (available: %v)", name, sortedNames(g)))
			continue
		}
		rules = append(rules, found...)
	}
	if errs != nil {
		return nil, errs
	}
	return rules, nil
}

// createOutputDirectories ensures every directory a selected rule writes
// into exists before the scheduler starts, matching matmake.cpp's compile()
// pre-pass that collects each file's directory and creates it if missing.
func createOutputDirectories(rules []graph.Rule, files fsx.Handler) error {
	seen := map[string]bool{}
	for _, r := range rules {
		for _, out := range []string{r.Node().Output, r.Node().DepFile} {
			dir := directory(out)
			if dir == "" || seen[dir] {
				continue
			}
			seen[dir] = true
			if files.IsDirectory(dir) {
				continue
			}
			if err := files.CreateDirectory(dir); err != nil {
				return fmt.Errorf("could not create directory %s: %w", dir, err)
			}
		}
	}
	return nil
}

func directory(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return ""
}

// sortedNames returns g's non-root target names, alphabetically - matching
// the determinism a CLI's `--list` output should have even though the
// original's listAlternatives iterates an unordered vector.
func sortedNames(g *graph.Graph) []string {
	names := g.Names()
	sort.Strings(names)
	return names
}
