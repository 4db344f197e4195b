//go:build !unix

package procexec

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"pkt.systems/procstream/core"
)

// processAttr is a no-op without process groups.
func processAttr(bool, bool) *syscall.SysProcAttr {
	return nil
}

// signalProcess can only interrupt or kill the process itself here.
func signalProcess(proc *os.Process, sig core.ProcessSignal, _ bool) error {
	var err error
	switch sig {
	case core.ProcessSignalINT:
		err = proc.Signal(os.Interrupt)
	case core.ProcessSignalTERM, core.ProcessSignalKILL:
		err = proc.Kill()
	default:
		return fmt.Errorf("unsupported signal: %s", sig)
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func exitSignal(*os.ProcessState) string {
	return ""
}
