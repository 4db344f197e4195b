package procexec

import (
	"fmt"
	"io"
	"os/exec"
	"syscall"

	"github.com/creack/pty"
)

// ptySize is the terminal size children see in PTY mode.
var ptySize = &pty.Winsize{Rows: 40, Cols: 120}

// startPTY runs c on a new pseudo-terminal. The child gets its own session;
// stdout and stderr both arrive on the returned master.
func (p *process) startPTY(c *exec.Cmd, attr *syscall.SysProcAttr, stdin io.Reader) error {
	c.SysProcAttr = attr
	ptmx, err := pty.StartWithSize(c, ptySize)
	if err != nil {
		return fmt.Errorf("start pty: %w", err)
	}
	p.stdoutFile = ptmx
	if stdin != nil {
		go func() {
			if _, err := io.Copy(ptmx, stdin); err != nil {
				p.log.Debug("pty stdin copy ended", "err", err)
			}
		}()
	}
	return nil
}
