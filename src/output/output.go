// Package output renders matmake's build progress: a rate-limited,
// bracketed percent bar on a single \r-terminated line when running
// interactively, or quiet delegation to the regular logger otherwise.
//
// Grounded on original_source/src/environment/threadpool.h's printProgress
// (25-character bar, `amount/4` dashes, integer-percent rate limiting) and
// adapted from please's src/output/print.go printf helper (ANSI stripping
// when stderr isn't a terminal) and its use of cli.StdErrIsATerminal.
package output

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-colorable"

	"github.com/thought-machine/matmake/src/cli"
	"github.com/thought-machine/matmake/src/cli/logging"
)

var log = logging.Log

const barWidth = 25 // matches threadpool.h's 100/4 segments

// minTerminalWidth is the narrowest terminal the bracketed bar still fits in
// comfortably ("[" + barWidth + "] 100%  " plus a little slack); narrower
// than this, New falls back to quiet line-at-a-time logging instead of
// fighting a too-small window, the way please's NewProgressReader checks
// cli.WindowSize before committing to an interactive render.
const minTerminalWidth = 40

// stderr is stderr wrapped through go-colorable, so the \r-rewritten bar's
// ANSI sequences still render under a Windows conhost instead of printing as
// literal escape bytes; on other platforms this is a plain passthrough.
var stderr = colorable.NewColorableStderr()

// printf writes directly to stderr, stripping ANSI/carriage-return styling
// when stderr isn't a terminal - the same niceties please's printf applies.
func printf(format string, args ...interface{}) {
	if !cli.StdErrIsATerminal {
		format = cli.StripAnsi.ReplaceAllString(format, "")
	}
	fmt.Fprintf(stderr, format, args...)
}

// Bar renders a single-line progress bar for a build run. It is not safe
// for concurrent use from more than one goroutine; the scheduler calls
// Update from whichever worker happens to finish a task, but always
// serially with respect to the caller of Run (see src/scheduler).
type Bar struct {
	quiet       bool // verbose/debug mode: threadpool.h suppresses the bar entirely
	lastPercent int
	started     time.Time
}

// New creates a Bar. quiet mirrors threadpool.h's `!debugOutput && !verbose`
// gate: pass true whenever verbosity is Notice or louder, so regular log
// lines don't get interleaved with \r-rewritten bar output.
func New(quiet bool) *Bar {
	if !quiet && cli.TerminalWidth() < minTerminalWidth {
		quiet = true
	}
	return &Bar{quiet: quiet, lastPercent: -1, started: time.Now()}
}

// Update reports done/total task counts, matching getBuildProgress +
// printProgress: a no-op unless total is nonzero and the integer percentage
// actually changed since the last call.
func (b *Bar) Update(done, total int) {
	if total == 0 {
		return
	}
	percent := done * 100 / total
	if percent == b.lastPercent {
		return
	}
	b.lastPercent = percent
	if b.quiet {
		log.Info("[%d%%] %d/%d", percent, done, total)
		return
	}
	printf("%s\r", renderBar(percent))
}

// renderBar draws the "[----->    ] 42%" bracketed bar for percent.
func renderBar(percent int) string {
	filled := percent / 4
	var b []byte
	b = append(b, '[')
	for i := 0; i < filled; i++ {
		b = append(b, '-')
	}
	if percent < 100 {
		b = append(b, '>')
	} else {
		b = append(b, '-')
	}
	for i := filled; i < barWidth; i++ {
		b = append(b, ' ')
	}
	b = append(b, []byte(fmt.Sprintf("] %d%%  ", percent))...)
	return string(b)
}

// Finish clears the in-progress line (if one was drawn) and logs a summary,
// matching threadpool.h's closing "[100%] finished" line, enriched with a
// humanized elapsed duration.
func (b *Bar) Finish(tasksRun int) {
	if !b.quiet && b.lastPercent >= 0 {
		printf("\x1b[2K\r")
	}
	if tasksRun == 0 {
		log.Notice("nothing to do")
		return
	}
	log.Notice("finished %d task(s), started %s", tasksRun, humanize.RelTime(b.started, time.Now(), "ago", "from now"))
}
