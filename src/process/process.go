// Package process implements subprocess management for matmake's build rules:
// starting a compile/link command, capturing its combined output, and
// escalating SIGTERM -> SIGKILL when a command's context is cancelled or
// matmake itself receives a terminating signal.
package process

import (
	"bytes"
	"context"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/thought-machine/matmake/src/cli"
	"github.com/thought-machine/matmake/src/cli/logging"
)

var log = logging.Log

// An Executor starts, runs and monitors a set of subprocesses.
// It registers as a signal handler to attempt to terminate them all at process exit.
type Executor struct {
	processes map[*exec.Cmd]<-chan error
	mutex     sync.Mutex
}

// New returns a new Executor.
func New() *Executor {
	e := &Executor{processes: map[*exec.Cmd]<-chan error{}}
	cli.AtExit(e.killAll) // Kill any subprocess if we are ourselves killed.
	return e
}

// Run executes the rule command via "bash -c", returning its combined
// stdout+stderr. A non-zero exit is reported via err, not via the output.
// There is no timeout: matmake rules are allowed to run as long as the
// invoked compiler takes. The scheduler's bailout does not interrupt a
// command once started; only killAll, run on a terminating signal, does.
func (e *Executor) Run(dir, command string) ([]byte, error) {
	return e.RunWithResult(context.Background(), dir, command)
}

// RunWithResult is as Run but honours cancellation of the given context: if
// ctx is cancelled while the command runs, the command is killed (SIGTERM,
// then SIGKILL) and ctx's error is returned.
func (e *Executor) RunWithResult(ctx context.Context, dir, command string) ([]byte, error) {
	argv := BashCommand(command)
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.SysProcAttr = processGroupAttr()

	var out safeBuffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Start(); err != nil {
		return nil, err
	}
	ch := make(chan error, 1)
	e.register(cmd, ch)
	defer e.unregister(cmd)
	go func() { ch <- cmd.Wait() }()

	select {
	case err := <-ch:
		return out.Bytes(), err
	case <-ctx.Done():
		e.Kill(cmd)
		return out.Bytes(), ctx.Err()
	}
}

// Kill terminates a process, sending SIGTERM first and escalating to
// SIGKILL shortly after if it hasn't exited.
func (e *Executor) Kill(cmd *exec.Cmd) {
	e.kill(cmd, e.channelFor(cmd))
}

func (e *Executor) kill(cmd *exec.Cmd, ch <-chan error) {
	success := sendSignal(cmd, ch, syscall.SIGTERM, 30*time.Millisecond)
	if !sendSignal(cmd, ch, syscall.SIGKILL, time.Second) && !success {
		log.Error("Failed to kill inferior process")
	}
	e.unregister(cmd)
}

func (e *Executor) register(cmd *exec.Cmd, ch <-chan error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.processes[cmd] = ch
}

func (e *Executor) unregister(cmd *exec.Cmd) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.processes, cmd)
}

func (e *Executor) channelFor(cmd *exec.Cmd) <-chan error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.processes[cmd]
}

// killAll kills every subprocess this executor has started; used as an AtExit handler.
func (e *Executor) killAll() {
	e.mutex.Lock()
	var wg sync.WaitGroup
	wg.Add(len(e.processes))
	defer wg.Wait()
	defer e.mutex.Unlock()
	for proc, ch := range e.processes {
		go func(proc *exec.Cmd, ch <-chan error) {
			e.kill(proc, ch)
			wg.Done()
		}(proc, ch)
	}
}

// sendSignal sends a single signal to the process group in an attempt to stop it.
// It returns true if the process exited within the timeout.
func sendSignal(cmd *exec.Cmd, ch <-chan error, sig syscall.Signal, timeout time.Duration) bool {
	if cmd.Process == nil {
		log.Debug("Not terminating process, it seems to have not started yet")
		return false
	}
	log.Debug("Sending signal %s to -%d", sig, cmd.Process.Pid)
	syscall.Kill(-cmd.Process.Pid, sig) // Kill the whole group - we always set one.

	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}

// safeBuffer is an io.Writer that ensures only one goroutine writes to it at a time.
// This matters because stdout and stderr are distinct io.Writer values both backed by
// the same buffer, which os/exec only makes goroutine-safe when they're the same value.
type safeBuffer struct {
	sync.Mutex
	buf bytes.Buffer
}

func (sb *safeBuffer) Write(b []byte) (int, error) {
	sb.Lock()
	defer sb.Unlock()
	return sb.buf.Write(b)
}

func (sb *safeBuffer) Bytes() []byte {
	return sb.buf.Bytes()
}

var _ io.Writer = (*safeBuffer)(nil)

// RunSimple is a utility function that runs the given argv with no shell involved,
// combining stdout and stderr.
func RunSimple(dir string, argv []string) ([]byte, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// BashCommand returns the argv used to execute a rule's command string in a shell.
// -e stops at the first failing pipeline stage, -u treats unset variables as errors,
// pipefail surfaces failures anywhere in a pipeline rather than just the last stage.
func BashCommand(command string) []string {
	return []string{"bash", "--noprofile", "--norc", "-e", "-u", "-o", "pipefail", "-c", command}
}
