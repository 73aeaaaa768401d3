//go:build !windows
// +build !windows

package process

import "syscall"

// processGroupAttr puts the child in its own process group so Kill can signal
// the whole group (a shell spawning a compiler spawning its own helpers) at once.
func processGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
