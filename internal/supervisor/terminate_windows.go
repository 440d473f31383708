//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"strconv"
)

// terminate force-kills the runtime process tree. Windows has no cooperative
// termination signal for console children, so taskkill is used instead.
func terminate(proc *os.Process) error {
	if err := exec.Command("taskkill", "/PID", strconv.Itoa(proc.Pid), "/T", "/F").Run(); err != nil {
		return proc.Kill()
	}
	return nil
}
