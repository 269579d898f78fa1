package supervisor

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// WorkerFlag marks a process as a worker rather than a supervisor.
const WorkerFlag = "--worker"

// SlotEnv carries the slot number into the worker's environment.
const SlotEnv = "AIRBRAKE_PROXY_WORKER_SLOT"

// ExecSpawner re-executes a binary (by default the running one) in worker mode.
type ExecSpawner struct {
	Path   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecSpawner returns a spawner for the current executable, passing args
// through to each worker.
func NewExecSpawner(args []string) (*ExecSpawner, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolving executable: %w", err)
	}
	return &ExecSpawner{
		Path:   path,
		Args:   args,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}, nil
}

func (e *ExecSpawner) Spawn(_ context.Context, slot int) (Process, error) {
	args := append(append([]string(nil), e.Args...), WorkerFlag)

	// Not CommandContext: shutdown sends SIGTERM so workers can drain, not SIGKILL.
	cmd := exec.Command(e.Path, args...)
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	cmd.Env = append(os.Environ(), SlotEnv+"="+strconv.Itoa(slot))

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting worker %d: %w", slot, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() error {
	return p.cmd.Wait()
}

func (p *execProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}
