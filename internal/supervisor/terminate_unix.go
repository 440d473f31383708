//go:build !windows

package supervisor

import (
	"os"
	"syscall"
)

// terminate asks the runtime process to shut down cooperatively.
func terminate(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}
