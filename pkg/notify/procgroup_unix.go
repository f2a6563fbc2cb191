//go:build !windows

package notify

import (
	"context"
	"os/exec"
	"syscall"
	"time"
)

// killGrace is the pause between SIGTERM and SIGKILL sent to a script's process group.
const killGrace = 100 * time.Millisecond

// runScript starts cmd in its own process group and waits for it to exit.
// When ctx ends the whole group is terminated, so children spawned by the script
// cannot keep its pipes open and block the wait.
func runScript(ctx context.Context, cmd *exec.Cmd) error {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return err
	}

	exited := make(chan struct{})
	killed := make(chan struct{})
	go func() {
		defer close(killed)
		select {
		case <-ctx.Done():
			killGroup(cmd.Process.Pid)
		case <-exited:
		}
	}()

	err := cmd.Wait()
	close(exited)
	<-killed
	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return ctxErr
	}
	return err
}

// killGroup sends SIGTERM to the group, then SIGKILL to whatever survived the grace period.
// ESRCH means the group is already gone.
func killGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGTERM); err != nil {
		return
	}
	time.Sleep(killGrace)
	_ = syscall.Kill(-pid, syscall.SIGKILL)
}
