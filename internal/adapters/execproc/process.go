// Package execproc spawns host processes from domain.CommandLine values.
package execproc

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// Process wraps a started *exec.Cmd.
type Process struct {
	cmd *exec.Cmd
}

// Start launches line. Dir and Env follow os/exec semantics: an empty Dir
// inherits ours, a nil Env inherits ours.
func Start(line domain.CommandLine) (*Process, error) {
	if line.Path == "" {
		return nil, fmt.Errorf("empty command")
	}
	cmd := exec.Command(line.Path, line.Args...)
	cmd.Dir = line.Dir
	if line.Env != nil {
		cmd.Env = append(os.Environ(), line.Env...)
	}
	cmd.Stdin = line.Stdin
	cmd.Stdout = line.Stdout
	cmd.Stderr = line.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", line.Path, err)
	}
	return &Process{cmd: cmd}, nil
}

// Starter matches Start so environments can swap it in tests.
type Starter func(line domain.CommandLine) (ports.Process, error)

// StartProcess is Start as a Starter.
func StartProcess(line domain.CommandLine) (ports.Process, error) {
	p, err := Start(line)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Process) Pid() int { return p.cmd.Process.Pid }

// Wait returns the exit code. A non-zero exit is not an error.
func (p *Process) Wait() (int, error) {
	err := p.cmd.Wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return p.cmd.ProcessState.ExitCode(), nil
}

func (p *Process) Kill() error {
	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
