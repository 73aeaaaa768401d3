package graph

import (
	"fmt"

	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/props"
	"github.com/thought-machine/matmake/src/token"
)

// Graph is the full set of build rules derived from a parsed Matmakefile,
// matching the combination of original_source's Targets collection and
// BuildTarget::calculateDependencies.
type Graph struct {
	Targets map[string]*Target
	Rules   []Rule

	targetRules map[string][]Rule
}

// Build constructs a Graph from collection, expanding every non-root target
// into its CompileRule/CopyRule/LinkRule set and wiring "link=" references
// between targets, matching BuildTarget::calculateDependencies run over
// every target in turn.
func Build(collection *props.Collection, files fsx.Handler) (*Graph, error) {
	g := &Graph{Targets: map[string]*Target{}, targetRules: map[string][]Rule{}}
	for _, p := range collection.All() {
		g.Targets[p.Name().Text] = NewTarget(p.Name(), p)
	}

	for _, p := range collection.All() {
		name := p.Name().Text
		if name == "root" {
			continue
		}
		target := g.Targets[name]
		if err := g.calculateDependencies(target, files); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func (g *Graph) calculateDependencies(target *Target, files fsx.Handler) error {
	outputName, err := target.filename()
	if err != nil {
		return err
	}
	link := NewLinkRule(outputName, target)
	target.output = link

	var rules []Rule
	for _, filename := range target.getGroups("src", files) {
		if filename == "" {
			continue
		}
		filename = target.preprocessCommand(filename)
		rule, err := NewCompileRule(filename, target)
		if err != nil {
			return err
		}
		rules = append(rules, rule)
	}
	for _, filename := range target.getGroups("copy", files) {
		if filename == "" {
			continue
		}
		filename = target.preprocessCommand(filename)
		rules = append(rules, NewCopyRule(filename, target))
	}
	for _, linkName := range target.getGroups("link", files) {
		if linkName == "" {
			continue
		}
		linkName = target.preprocessCommand(linkName)
		depTarget, ok := g.Targets[linkName]
		if !ok || depTarget.OutputFile() == nil {
			return fmt.Errorf("could not find target %s", linkName)
		}
		link.Node().AddDependency(depTarget.OutputFile().Node())
	}

	for _, rule := range rules {
		if rule.Node().IncludeInBinary {
			link.Node().AddDependency(rule.Node())
		}
	}

	rules = append(rules, link)
	g.Rules = append(g.Rules, rules...)
	g.targetRules[target.name.Text] = rules
	return nil
}

// RulesFor returns every rule (compile, copy and the final link rule)
// belonging to the named target, or nil if the name isn't a known target -
// used by `clean` to scope file removal to a subset of targets the way
// matmake.cpp's clean(targetArguments) does via findTarget.
func (g *Graph) RulesFor(name string) []Rule {
	return g.targetRules[name]
}

// Find returns the named target, or nil if it doesn't exist.
func (g *Graph) Find(name token.Token) *Target {
	return g.Targets[name.Text]
}

// Names returns every non-root target name in the graph.
func (g *Graph) Names() []string {
	var names []string
	for name := range g.Targets {
		if name != "root" {
			names = append(names, name)
		}
	}
	return names
}
