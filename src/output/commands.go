package output

import (
	"fmt"

	"github.com/alessio/shellescape"
	"github.com/google/shlex"
)

// PrintCommand echoes command to stderr as a single shell-safe line, for the
// CLI's --print_commands flag. It round-trips command through shlex (split
// into argv) and shellescape (re-quote each argument) so the echoed line is
// always safe to paste back into a shell even if a synthesized path
// contained spaces or other shell metacharacters - matching please's
// src/build/build_step.go use of shlex when it needs to inspect or re-render
// a generated command.
//
// If command doesn't tokenize cleanly (mismatched quoting, which a
// correctly synthesized compile/link command never produces), it is echoed
// verbatim instead of dropped.
func PrintCommand(command string) {
	fmt.Fprintln(stderr, renderCommand(command))
}

// renderCommand does the actual shlex/shellescape round-trip, split out from
// PrintCommand so it can be tested without writing to stderr.
func renderCommand(command string) string {
	args, err := shlex.Split(command)
	if err != nil {
		return command
	}
	return shellescape.QuoteCommand(args)
}
