// Package props implements matmake's target property model (C2): the
// key/value bag parsed out of a Matmakefile target block, with "inherit="
// semantics that snapshot the parent's properties at the moment of
// assignment rather than tracking the parent live.
//
// Grounded exactly on original_source/src/target/targetproperties.h and
// original_source/src/target/buildtarget.h's property accessors
// (assign/append/get/property), adapted into Go idiom the way
// please's src/core/config.go builds up a similar key/value struct from
// parsed input.
package props

import (
	"fmt"

	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/token"
)

var log = logging.Log

// Properties holds the properties accumulated for a single target while
// parsing a Matmakefile, together with their originating name.
type Properties struct {
	name       token.Token
	properties map[string]token.Tokens
}

// New creates a property bag for the target named by name, inheriting the
// properties parent currently holds (a snapshot copy, not a live reference -
// a later change to parent's properties is not reflected here). Pass a nil
// parent for the implicit "root" target.
func New(name token.Token, parent *Properties) *Properties {
	p := &Properties{name: name, properties: map[string]token.Tokens{}}
	p.inherit(parent)
	return p
}

// Name returns the target name this property bag belongs to.
func (p *Properties) Name() token.Token {
	return p.name
}

// Properties returns the full set of properties currently held.
func (p *Properties) Properties() map[string]token.Tokens {
	return p.properties
}

// Get returns the value of propertyName, or an empty Tokens if unset - it
// never fails, matching the original's "does not fail if not found" contract.
func (p *Properties) Get(propertyName string) token.Tokens {
	return p.properties[propertyName]
}

// Assign sets propertyName to value outright ("="), with no special
// handling of "inherit" - used for properties that are known not to be the
// inherit directive, or when a Collection isn't available to resolve it.
// Setting "inherit" through this path can never resolve a parent target, so
// it logs a warning rather than silently doing nothing.
func (p *Properties) Assign(propertyName string, value token.Tokens) {
	if propertyName == "inherit" {
		log.Warning("target %s tries to inherit wrong", p.name.Text)
	}
	p.properties[propertyName] = value
}

// Append adds value to whatever propertyName currently holds ("+="),
// creating the property if it doesn't exist yet.
func (p *Properties) Append(propertyName string, value token.Tokens) {
	p.properties[propertyName] = p.properties[propertyName].Append(value)
}

// AssignWithInherit is Assign, but additionally handles the "inherit"
// property: assigning it re-snapshots every other property (except
// "inherit" itself) from the named parent target at this instant. An
// "inherit" chain that would loop back to p itself is a configuration
// error, matching the original's rejection of such chains.
func (p *Properties) AssignWithInherit(propertyName string, value token.Tokens, targets *Collection) error {
	p.properties[propertyName] = value
	if propertyName == "inherit" {
		parentName := value.Concat()
		if err := checkInheritCycle(p.name, parentName, targets); err != nil {
			return err
		}
		if parent := targets.Find(parentName); parent != nil {
			p.inherit(parent)
		}
	}
	return nil
}

// checkInheritCycle walks the chain of named "inherit" targets starting at
// parentName, failing if name (the target doing the inheriting) reappears
// anywhere in it - covering both direct self-inherit and a longer cycle
// through several targets.
func checkInheritCycle(name token.Token, parentName token.Token, targets *Collection) error {
	seen := map[string]bool{name.Text: true}
	for !parentName.Empty() {
		if seen[parentName.Text] {
			return fmt.Errorf("%s: target %s cannot inherit from %s: inherit cycle", name.Location, name.Text, parentName.Text)
		}
		seen[parentName.Text] = true
		parent := targets.Find(parentName)
		if parent == nil {
			return nil
		}
		parentName = parent.Get("inherit").Concat()
	}
	return nil
}

func (p *Properties) inherit(parent *Properties) {
	if parent == nil {
		return
	}
	for name, value := range parent.properties {
		if name == "inherit" {
			continue
		}
		p.Assign(name, value)
	}
}

// InitRoot sets the root target's built-in defaults - a default GCC-family
// compiler pair and an empty "includes" placeholder - the way
// TargetProperties::initRoot does for the original's implicit root target.
func (p *Properties) InitRoot() {
	if p.Get("cpp").Empty() {
		p.Assign("cpp", token.Of("c++"))
	}
	if p.Get("cc").Empty() {
		p.Assign("cc", token.Of("cc"))
	}
	if p.Get("includes").Empty() {
		p.Assign("includes", token.Of(""))
	}
}

// Collection holds every target's Properties, keyed by target name, plus
// the implicit "root" target that every other target inherits from unless
// it assigns its own "inherit=".
type Collection struct {
	targets []*Properties
	root    *Properties
}

// NewCollection creates a Collection whose root target carries the given
// command-line-supplied variables (each appended, matching "+=" semantics,
// to the root target's properties of the same name) before InitRoot runs.
func NewCollection(commandLineVars map[string][]string) *Collection {
	c := &Collection{}
	c.root = New(token.New("root"), nil)
	c.targets = append(c.targets, c.root)
	for name, values := range commandLineVars {
		for _, v := range values {
			c.root.Append(name, token.Of(v))
		}
	}
	c.root.InitRoot()
	return c
}

// Root returns the collection's implicit root target.
func (c *Collection) Root() *Properties {
	return c.root
}

// Find returns the named target's Properties, or nil if it doesn't exist
// yet (or name is empty).
func (c *Collection) Find(name token.Token) *Properties {
	if name.Empty() {
		return nil
	}
	for _, t := range c.targets {
		if t.name.Equal(name.Text) {
			return t
		}
	}
	return nil
}

// Get returns the named target's Properties, creating it (inheriting from
// root) if it doesn't exist yet.
func (c *Collection) Get(name token.Token) *Properties {
	if p := c.Find(name); p != nil {
		return p
	}
	p := New(name, c.root)
	c.targets = append(c.targets, p)
	return p
}

// All returns every target in the collection, in the order first referenced.
func (c *Collection) All() []*Properties {
	return c.targets
}

// SetVariable resolves name.RootName to its (possibly new) target and
// assigns name.PropertyName on it, handling "inherit=" if that's the
// property being set.
func (c *Collection) SetVariable(name token.NameDescriptor, value token.Tokens) error {
	return c.Get(name.RootName).AssignWithInherit(name.PropertyName.Text, value, c)
}

// AppendVariable resolves name.RootName to its (possibly new) target and
// appends to name.PropertyName on it.
func (c *Collection) AppendVariable(name token.NameDescriptor, value token.Tokens) {
	c.Get(name.RootName).Append(name.PropertyName.Text, value)
}
