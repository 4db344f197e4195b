//go:build unix && !linux

package procexec

import "syscall"

// Only Linux can tie the child's lifetime to the parent.
func setParentDeathSignal(*syscall.SysProcAttr) {}
