// Command matmake is the CLI front-end for the matmake build engine: it
// parses flags and a free-form argument list (operation keyword, NAME=VALUE
// command-line variables, explicit target names - the same classification
// original_source/src/main/parsearguments.h applies), then hands off to
// src/engine.Run.
//
// Grounded on please's src/please.go: a grouped go-flags opts struct,
// automaxprocs for default concurrency, cli.InitLogging before anything else
// runs, and a single terminal Run call whose error decides the exit code.
package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/thought-machine/matmake/src/cli"
	"github.com/thought-machine/matmake/src/cli/logging"
	"github.com/thought-machine/matmake/src/engine"
	"github.com/thought-machine/matmake/src/fsx"
)

var log = logging.Log

var opts struct {
	Usage string `usage:"Matmake is a parallel build tool for C and C++ projects, driven by a declarative Matmakefile.\n\nUsage: matmake [operation] [NAME=VALUE ...] [target ...]\noperation is one of build (default), clean, rebuild or list."`

	BuildFlags struct {
		Matmakefile string `long:"matmakefile" default:"Matmakefile" description:"Path to the Matmakefile to read."`
		Config      string `long:"config" default:".matmakeconfig" description:"Path to an optional ini-style config file."`
		Jobs        int    `short:"j" long:"jobs" description:"Number of concurrent build jobs (default: config's matmake.numthreads, or GOMAXPROCS)."`
	} `group:"Options controlling what to build & how to build it"`

	OutputFlags struct {
		Verbosity         cli.Verbosity `short:"v" long:"verbosity" default:"warning" description:"Verbosity of output (error, warning, notice, info, debug)."`
		Debug             bool          `short:"d" long:"debug" description:"Shorthand for --verbosity=debug; also disables the interactive progress bar."`
		InteractiveOutput bool          `long:"interactive_output" description:"Force the interactive progress bar on even when stderr isn't detected as a terminal."`
		PlainOutput       bool          `short:"p" long:"plain_output" description:"Disable the interactive progress bar even when stderr is a terminal."`
		PrintCommands     bool          `long:"print_commands" description:"Echo each dirty rule's synthesized command, shell-quoted, before running it."`
		LogFile           string        `long:"log_file" description:"File to additionally echo full logging output to."`
	} `group:"Options controlling output & logging"`

	Positional struct {
		Args []string `positional-arg-name:"arg" description:"An operation keyword (build/clean/rebuild/list), a NAME=VALUE command-line variable, or a target name."`
	} `positional-args:"yes"`
}

func main() {
	os.Exit(run(os.Args))
}

func run(args []string) int {
	cli.ParseFlagsFromArgsOrDie("matmake", &opts, args)

	verbosity := opts.OutputFlags.Verbosity
	if opts.OutputFlags.Debug {
		verbosity = cli.VerbosityDebug
	}
	cli.InitLogging(verbosity)
	if opts.OutputFlags.LogFile != "" {
		if err := cli.InitFileLogging(opts.OutputFlags.LogFile, cli.VerbosityDebug); err != nil {
			log.Error("could not open log file: %s", err)
		}
	}

	config, err := cli.ReadConfig(opts.BuildFlags.Config)
	if err != nil {
		log.Error("%s", err)
		return 1
	}

	if _, err := maxprocs.Set(maxprocs.Logger(log.Info)); err != nil {
		log.Warning("could not determine GOMAXPROCS: %s", err)
	}
	jobs := opts.BuildFlags.Jobs
	if jobs == 0 {
		jobs = config.Matmake.NumThreads
	}
	if jobs == 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	op, vars, targets := classifyArgs(opts.Positional.Args)
	if config.Matmake.Compiler != "" {
		if _, ok := vars["compiler"]; !ok {
			vars["compiler"] = []string{config.Matmake.Compiler}
		}
	}

	quiet := opts.OutputFlags.Debug || !cli.PrettyOutput(opts.OutputFlags.InteractiveOutput, opts.OutputFlags.PlainOutput, verbosity)

	result, err := engine.Run(context.Background(), op, engine.Options{
		MatmakefilePath: opts.BuildFlags.Matmakefile,
		Files:           fsx.NewOS(),
		CommandLineVars: vars,
		Targets:         targets,
		Concurrency:     jobs,
		Quiet:           quiet,
		PrintCommands:   opts.OutputFlags.PrintCommands,
	})
	if err != nil {
		log.Error("%s", err)
		return 1
	}
	if op == engine.List {
		for _, name := range result.TargetNames {
			fmt.Println(name)
		}
	}
	return 0
}

// classifyArgs splits the free-form positional arguments into an operation,
// command-line variables and target names, matching parseArguments' loop:
// "clean"/"rebuild"/"list" select an operation, "all" is an explicit no-op,
// a NAME=VALUE token (with both a non-empty name and value) becomes a
// command-line variable, any other token containing "=" is dropped, and
// everything else is a target name.
func classifyArgs(args []string) (engine.Operation, map[string][]string, []string) {
	op := engine.Build
	vars := map[string][]string{}
	var targets []string

	for _, arg := range args {
		switch arg {
		case "clean":
			op = engine.Clean
			continue
		case "rebuild":
			op = engine.Rebuild
			continue
		case "list":
			op = engine.List
			continue
		case "all":
			continue
		}

		if i := strings.Index(arg, "="); i > 0 && i < len(arg)-1 {
			name, value := arg[:i], arg[i+1:]
			vars[name] = append(vars[name], value)
			continue
		}
		if strings.Contains(arg, "=") {
			// A bare "=foo" or "foo=" mirrors the original's silent drop.
			continue
		}

		targets = append(targets, arg)
	}
	return op, vars, targets
}
