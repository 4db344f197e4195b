//go:build unix

package procexec

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"pkt.systems/procstream/core"
)

// processAttr configures process group handling. A PTY child becomes a
// session leader, which already makes it the leader of its own group;
// asking for Setpgid on top would fail.
func processAttr(trackChildren, usePTY bool) *syscall.SysProcAttr {
	attr := &syscall.SysProcAttr{}
	if trackChildren {
		if !usePTY {
			attr.Setpgid = true
		}
		setParentDeathSignal(attr)
	}
	return attr
}

func unixSignal(sig core.ProcessSignal) (unix.Signal, error) {
	switch sig {
	case core.ProcessSignalHUP:
		return unix.SIGHUP, nil
	case core.ProcessSignalINT:
		return unix.SIGINT, nil
	case core.ProcessSignalTERM:
		return unix.SIGTERM, nil
	case core.ProcessSignalKILL:
		return unix.SIGKILL, nil
	default:
		return 0, fmt.Errorf("unsupported signal: %s", sig)
	}
}

// signalProcess signals the child, or its whole process group.
func signalProcess(proc *os.Process, sig core.ProcessSignal, group bool) error {
	s, err := unixSignal(sig)
	if err != nil {
		return err
	}
	if !group {
		if err := proc.Signal(s); err != nil && !errors.Is(err, os.ErrProcessDone) {
			return err
		}
		return nil
	}
	pgid, err := unix.Getpgid(proc.Pid)
	if err != nil || pgid != proc.Pid {
		// The leader is gone; its pid still names the group.
		pgid = proc.Pid
	}
	if err := unix.Kill(-pgid, s); err != nil && !errors.Is(err, unix.ESRCH) {
		return err
	}
	return nil
}

func exitSignal(state *os.ProcessState) string {
	status, ok := state.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return ""
	}
	return status.Signal().String()
}
