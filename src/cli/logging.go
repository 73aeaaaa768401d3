// Contains various utility functions related to logging.

package cli

import (
	"fmt"
	"os"
	"path"
	"regexp"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
	"gopkg.in/op/go-logging.v1"

	"github.com/thought-machine/matmake/src/cli/logging"
)

var log = logging.Log

// StdErrIsATerminal is true if the process' stderr is an interactive TTY.
// term.IsTerminal alone misses Cygwin/MSYS ptys on Windows, so it's paired
// with go-isatty's Cygwin-aware check the way please's output detection does.
var StdErrIsATerminal = term.IsTerminal(int(os.Stderr.Fd())) || isatty.IsCygwinTerminal(os.Stderr.Fd())

// StdOutIsATerminal is true if the process' stdout is an interactive TTY.
var StdOutIsATerminal = term.IsTerminal(int(os.Stdout.Fd())) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// StripAnsi is a regex to find & replace ANSI console escape sequences.
var StripAnsi = regexp.MustCompile("\x1b[^m]+m")

var fileBackend logging.Backend

// A Verbosity selects how chatty matmake's logging is; it mirrors op/go-logging's
// levels without forcing every caller to import that package directly.
type Verbosity logging.Level

// Levels matmake's --verbosity flag accepts, from quietest to loudest.
const (
	VerbosityError   = Verbosity(logging.ERROR)
	VerbosityWarning = Verbosity(logging.WARNING)
	VerbosityNotice  = Verbosity(logging.NOTICE)
	VerbosityInfo    = Verbosity(logging.INFO)
	VerbosityDebug   = Verbosity(logging.DEBUG)
)

// UnmarshalFlag implements go-flags' Unmarshaler, so --verbosity accepts the
// names above directly on the command line instead of a raw integer.
func (v *Verbosity) UnmarshalFlag(value string) error {
	switch strings.ToLower(value) {
	case "error":
		*v = VerbosityError
	case "warning":
		*v = VerbosityWarning
	case "notice":
		*v = VerbosityNotice
	case "info":
		*v = VerbosityInfo
	case "debug":
		*v = VerbosityDebug
	default:
		return fmt.Errorf("unknown verbosity %q (want error, warning, notice, info or debug)", value)
	}
	return nil
}

// InitLogging initialises the stderr logging backend at the given verbosity.
// The progress bar (src/output) writes its own \r-terminated line directly to
// stderr, so it suppresses itself once verbosity reaches VerbosityNotice or
// louder to avoid interleaving with regular log lines.
func InitLogging(verbosity Verbosity) {
	setLogBackend(logging.Level(verbosity))
}

// InitFileLogging additionally mirrors log output to a file, e.g. for CI capture.
func InitFileLogging(logFile string, level Verbosity) error {
	if err := os.MkdirAll(path.Dir(logFile), 0775); err != nil {
		return err
	}
	file, err := os.Create(logFile)
	if err != nil {
		return err
	}
	fileBackend = logging.NewBackendFormatter(logging.NewLogBackend(file, "", 0), logFormatter(false))
	setLogBackend(logging.Level(level))
	return nil
}

func logFormatter(coloured bool) logging.Formatter {
	formatStr := "%{time:15:04:05.000} %{level:7s}: %{message}"
	if coloured {
		formatStr = "%{color}" + formatStr + "%{color:reset}"
	}
	return logging.MustStringFormatter(formatStr)
}

func setLogBackend(level logging.Level) {
	stderrBackend := logging.NewBackendFormatter(logging.NewLogBackend(os.Stderr, "", 0), logFormatter(StdErrIsATerminal))
	leveled := logging.AddModuleLevel(stderrBackend)
	leveled.SetLevel(level, "")
	if fileBackend == nil {
		logging.SetBackend(leveled)
	} else {
		logging.SetBackend(leveled, fileBackend)
	}
}
