// Package profile implements matmake's compiler profile abstraction (C3):
// the small set of compiler-specific strings and flags (include/define
// prefixes, shared/static file endings, PIC and rpath flags, config-name
// translation) that the dependency graph's command synthesis consults so
// the same rule logic works whether the underlying toolchain is GCC/Clang
// or MSVC.
//
// Grounded exactly on original_source/src/compilertype.h's ICompiler,
// GCCCompiler and MSVCCompiler classes.
package profile

import "fmt"

// String identifies one of the small set of compiler-specific string constants.
type String int

// The compiler-specific strings a Profile can be asked for.
const (
	IncludePrefix String = iota
	SystemIncludePrefix
	DefinePrefix
	PICFlag
	SharedFileEnding
	StaticFileEnding
	RPathOriginFlag
)

// Flag identifies one of the small set of compiler-specific boolean traits.
type Flag int

// The compiler-specific flags a Profile can be asked for.
const (
	RequiresPICForLibrary Flag = iota
)

// A ConfigError reports that a "config=" value has no translation for this
// compiler profile, matching original_source's MatmakeError(name, "Config not found").
type ConfigError struct {
	Name string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config not found: %s", e.Name)
}

// A Profile translates the parts of a build command that differ between
// compiler toolchains.
type Profile interface {
	// String returns the given compiler-specific string constant.
	String(String) string
	// Flag reports whether the given compiler-specific trait applies.
	Flag(Flag) bool
	// TranslateConfig turns a "config=" value (e.g. "Wall", "c++17") into the
	// actual compiler flag(s) for this profile. Returns a ConfigError if name
	// isn't a recognised config value for this profile.
	TranslateConfig(name string) (string, error)
	// PrepareLinkString builds the token a LinkRule uses to refer to a shared
	// library it depends on from within another target's link command.
	PrepareLinkString(dir, name string) string
}

// GCC is the GCC/Clang compiler profile - the two share an identical string
// table in the original implementation (ClangCompiler is a type alias for
// GCCCompiler), so one Profile value serves both.
type GCC struct{}

var gccConfigs = map[string]string{
	"Wall":       "-Wall",
	"debug":      "-g",
	"modules":    "-fmodules-ts",
	"threads":    "-pthread",
	"filesystem": "-lstdc++fs",
}

// String implements Profile.
func (GCC) String(s String) string {
	switch s {
	case IncludePrefix:
		return "-I"
	case SystemIncludePrefix:
		return "-isystem "
	case DefinePrefix:
		return "-D"
	case PICFlag:
		return "-fPIC "
	case SharedFileEnding:
		return ".so"
	case StaticFileEnding:
		return ".a"
	case RPathOriginFlag:
		return "-Wl,-rpath='${ORIGIN}'"
	}
	return ""
}

// Flag implements Profile.
func (GCC) Flag(f Flag) bool {
	return f == RequiresPICForLibrary
}

// TranslateConfig implements Profile.
func (GCC) TranslateConfig(name string) (string, error) {
	if len(name) >= 3 && name[:3] == "c++" {
		return "-std=" + name, nil
	}
	if flag, ok := gccConfigs[name]; ok {
		return flag, nil
	}
	return "", &ConfigError{Name: name}
}

// PrepareLinkString implements Profile.
func (GCC) PrepareLinkString(dir, name string) string {
	return "-l:" + name + " -L " + dir
}

// Clang is identical to GCC's string table, matching the original's
// "typedef GCCCompiler ClangCompiler".
type Clang = GCC

// MSVC is the Microsoft Visual C++ compiler profile.
type MSVC struct{}

// String implements Profile.
func (MSVC) String(s String) string {
	switch s {
	case IncludePrefix, SystemIncludePrefix:
		return "/I "
	case DefinePrefix:
		return "/D"
	case SharedFileEnding:
		return ".dll"
	case StaticFileEnding:
		return ".lib"
	case PICFlag, RPathOriginFlag:
		return ""
	}
	return ""
}

// Flag implements Profile.
// MSVC has no PIC flag to add (String(PICFlag) is already empty), so it
// never requires one.
func (MSVC) Flag(f Flag) bool {
	return false
}

// TranslateConfig implements Profile.
// MSVC has no config-name translations, so every name is reported as a
// ConfigError rather than silently producing no flag.
func (MSVC) TranslateConfig(name string) (string, error) {
	return "", &ConfigError{Name: name}
}

// PrepareLinkString implements Profile.
func (MSVC) PrepareLinkString(dir, name string) string {
	return "lib?" + name
}

// ByName resolves a profile from a "compiler=" configuration value such as
// "gcc", "clang" or "msvc". It defaults to GCC, matching the original's
// implicit default of constructing a GCCCompiler when nothing else is configured.
func ByName(name string) Profile {
	switch name {
	case "msvc":
		return MSVC{}
	case "clang":
		return Clang{}
	default:
		return GCC{}
	}
}
