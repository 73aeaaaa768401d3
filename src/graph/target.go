// Package graph implements matmake's build-rule model (C4): targets with
// their resolved compiler profile, the CompileRule/CopyRule/LinkRule
// dependency nodes each target expands into, and the algorithm that wires
// them into a dependency graph ready for the scheduler.
//
// Grounded on original_source/src/target/buildtarget.h (Target, here),
// original_source/src/dependency/{buildfile,copyfile,linkfile}.h (the three
// Rule implementations) and original_source/src/dependency/dependency.h (the
// shared Node bookkeeping every rule embeds).
package graph

import (
	"fmt"
	"strings"

	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/fsx"
	"github.com/thought-machine/matmake/src/profile"
	"github.com/thought-machine/matmake/src/props"
	"github.com/thought-machine/matmake/src/token"
)

var log = logging.Log

// BuildType classifies what kind of artifact a rule produces, mirroring
// original_source's BuildType enum (trimmed to the cases matmake itself
// switches on; Test/FromTarget/NotSpecified have no equivalent once rules
// resolve their type eagerly at construction).
type BuildType int

// The kinds of artifact a Rule can produce.
const (
	Executable BuildType = iota
	Shared
	Static
	CopyArtifact
	Object
)

// Target holds one Matmakefile target's resolved properties plus the
// compiler profile it builds with.
type Target struct {
	name    token.Token
	props   *props.Properties
	profile profile.Profile
	output  *LinkRule
}

// NewTarget wraps p as a Target, resolving its compiler profile from the
// "compiler=" property (defaulting to GCC).
func NewTarget(name token.Token, p *props.Properties) *Target {
	return &Target{name: name, props: p, profile: profile.ByName(p.Get("compiler").Concat().Text)}
}

// Name returns the target's name.
func (t *Target) Name() token.Token {
	return t.name
}

// OutputFile returns the LinkRule this target built, once Build has run
// calculateDependencies for it; nil beforehand.
func (t *Target) OutputFile() *LinkRule {
	return t.output
}

// getOutputDir returns where the final product is placed, matching
// BuildTarget::getOutputDir - the trimmed "dir" property plus a trailing
// slash, or empty if unset.
func (t *Target) getOutputDir() string {
	dir := strings.TrimSpace(t.props.Get("dir").Concat().Text)
	if dir == "" {
		return ""
	}
	return dir + "/"
}

// getBuildDirectory returns where intermediate object files are placed,
// matching BuildTarget::getBuildDirectory - "objdir" if set, else falls back
// to getOutputDir().
func (t *Target) getBuildDirectory() string {
	dir := strings.TrimSpace(t.props.Get("objdir").Concat().Text)
	if dir == "" {
		return t.getOutputDir()
	}
	return dir + "/"
}

// getCompiler returns the compiler invocation for the given source file
// type ("cpp" or "c"), matching BuildTarget::getCompiler.
func (t *Target) getCompiler(filetype string) string {
	switch filetype {
	case "cpp":
		return t.props.Get("cpp").Concat().Text
	case "c":
		return t.props.Get("cc").Concat().Text
	default:
		return "echo"
	}
}

// getLibs returns the concatenated "libs" property.
func (t *Target) getLibs() string {
	return t.props.Get("libs").Concat().Text
}

// getFlags returns the target's own "flags" plus its resolved config flags,
// matching BuildTarget::getFlags.
func (t *Target) getFlags() (string, error) {
	configFlags, err := t.getConfigFlags()
	if err != nil {
		return "", err
	}
	return t.props.Get("flags").Concat().Text + " " + configFlags, nil
}

// getIncludeFlags formats the "includes" and "sysincludes" properties with
// the compiler profile's include-prefix strings.
func (t *Target) getIncludeFlags() string {
	var ret strings.Builder
	for _, g := range t.props.Get("includes").Groups() {
		s := g.Concat().Text
		if s == "" {
			continue
		}
		ret.WriteString(" " + t.profile.String(profile.IncludePrefix) + s)
	}
	for _, g := range t.props.Get("sysincludes").Groups() {
		s := g.Concat().Trim().Text
		if s == "" {
			continue
		}
		ret.WriteString(" " + t.profile.String(profile.SystemIncludePrefix) + g.Concat().Text)
	}
	return ret.String()
}

// getDefineFlags formats the "define" property with the compiler profile's
// define-prefix string.
func (t *Target) getDefineFlags() string {
	var ret strings.Builder
	for _, g := range t.props.Get("define").Groups() {
		ret.WriteString(" " + t.profile.String(profile.DefinePrefix) + g.Concat().Text)
	}
	return ret.String()
}

// getConfigFlags translates every "config" group through the compiler
// profile, matching BuildTarget::getConfigFlags. An unrecognised config name
// is a configuration error, matching the original's
// MatmakeError(name, "Config not found").
func (t *Target) getConfigFlags() (string, error) {
	var ret strings.Builder
	for _, g := range t.props.Get("config").Groups() {
		tok := g.Concat()
		flag, err := t.profile.TranslateConfig(tok.Text)
		if err != nil {
			return "", fmt.Errorf("%s: %s", tok.Location, err)
		}
		ret.WriteString(" " + flag)
	}
	return ret.String(), nil
}

// getBuildFlags returns the full flag set a CompileRule passes to the
// compiler for a source file of the given type, matching
// BuildTarget::getBuildFlags.
func (t *Target) getBuildFlags(filetype string) (string, error) {
	flags := t.props.Get("flags").Concat().Text
	if filetype == "cpp" {
		if cppflags := t.props.Get("cppflags"); !cppflags.Empty() {
			flags += " " + cppflags.Concat().Text
		}
	}
	if filetype == "c" {
		if cflags := t.props.Get("cflags"); !cflags.Empty() {
			flags += " " + cflags.Concat().Text
		}
	}
	flags += t.getDefineFlags()
	configFlags, err := t.getConfigFlags()
	if err != nil {
		return "", err
	}
	flags += configFlags
	flags += t.getIncludeFlags()
	if t.buildType() == Shared && t.profile.Flag(profile.RequiresPICForLibrary) {
		flags += " " + t.profile.String(profile.PICFlag)
	}
	return flags, nil
}

// preprocessCommand replaces every "%" in command with the target's name,
// matching BuildTarget::preprocessCommand.
func (t *Target) preprocessCommand(command string) string {
	return strings.ReplaceAll(command, "%", t.name.Text)
}

// buildType classifies the target's own output artifact from its "out"
// property, matching BuildTarget::buildType.
func (t *Target) buildType() BuildType {
	out := t.props.Get("out")
	if !out.Empty() {
		switch out[0].Text {
		case "shared":
			return Shared
		case "static":
			return Static
		}
	}
	return Executable
}

// filename returns the target's output path minus directory, matching
// BuildTarget::filename.
func (t *Target) filename() (string, error) {
	out := t.props.Get("out").Groups()
	switch {
	case len(out) == 0:
		return t.name.Text, nil
	case len(out) == 1:
		return t.preprocessCommand(out[0].Concat().Text), nil
	default:
		typ := out[0].Concat().Text
		base, _, _ := fsx.StripFileEnding(t.preprocessCommand(out[1].Concat().Text), true)
		switch typ {
		case "shared":
			return base + t.profile.String(profile.SharedFileEnding), nil
		case "static":
			return base + t.profile.String(profile.StaticFileEnding), nil
		case "exe":
			return base, nil
		default:
			return "", fmt.Errorf("unknown output type %q for target %s", typ, t.name.Text)
		}
	}
}

// getGroups expands every whitespace-delimited group of propertyName's value,
// after "%" substitution, as a glob pattern via files, concatenating every
// match - matching BuildTarget::getGroups.
func (t *Target) getGroups(propertyName string, files fsx.Handler) []string {
	var ret []string
	for _, g := range t.props.Get(propertyName).Groups() {
		pattern := t.preprocessCommand(g.Concat().Text)
		if pattern == "" {
			continue
		}
		matches := files.FindFiles(pattern)
		ret = append(ret, matches...)
	}
	return ret
}
