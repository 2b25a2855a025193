package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// CreateProcess runs cmd through docker exec. The working directory is used
// as given, in container path syntax.
func (e *Environment) CreateProcess(ctx context.Context, cmd domain.TargetedCommandLine, progress ports.ProgressIndicator) (ports.Process, error) {
	if len(cmd.Command) == 0 {
		return nil, &domain.ExecutionError{Op: "create process", Err: fmt.Errorf("empty command")}
	}
	created, err := e.cli.ContainerExecCreate(ctx, e.containerID, types.ExecConfig{
		Cmd:          cmd.Command,
		WorkingDir:   cmd.WorkingDirectory,
		Env:          envList(cmd.Env),
		AttachStdin:  cmd.Stdin != nil,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return nil, &domain.ExecutionError{Op: "exec create", Err: err}
	}
	hijacked, err := e.cli.ContainerExecAttach(ctx, created.ID, types.ExecStartCheck{})
	if err != nil {
		return nil, &domain.ExecutionError{Op: "exec attach", Err: err}
	}

	p := &process{
		cli:    e.cli,
		logger: e.logger,
		execID: created.ID,
		conn:   hijacked,
		done:   make(chan struct{}),
	}

	stdout, stderr := orDiscard(cmd.Stdout), orDiscard(cmd.Stderr)
	go func() {
		defer close(p.done)
		_, p.copyErr = stdcopy.StdCopy(stdout, stderr, hijacked.Reader)
	}()
	if cmd.Stdin != nil {
		go p.feedStdin(cmd.Stdin)
	}
	e.logger.Debug("exec started", "container", shortID(e.containerID), "exec", shortID(created.ID), "command", cmd.Command[0])
	return p, nil
}

type process struct {
	cli    apiClient
	logger *slog.Logger
	execID string
	conn   types.HijackedResponse

	mu  sync.Mutex
	pid int

	done    chan struct{}
	copyErr error
}

// Pid asks the daemon until the exec reports one; it is 0 until the exec
// has actually started.
func (p *process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid != 0 {
		return p.pid
	}
	info, err := p.cli.ContainerExecInspect(context.Background(), p.execID)
	if err != nil {
		p.logger.Debug("exec inspect failed", "exec", shortID(p.execID), "error", err)
		return 0
	}
	p.pid = info.Pid
	return p.pid
}

func (p *process) feedStdin(stdin io.Reader) {
	if _, err := io.Copy(p.conn.Conn, stdin); err != nil {
		p.logger.Debug("copying exec stdin failed", "exec", shortID(p.execID), "error", err)
	}
	if err := p.conn.CloseWrite(); err != nil {
		p.logger.Debug("closing exec stdin failed", "exec", shortID(p.execID), "error", err)
	}
}

// Wait drains the output stream and then asks the daemon for the exit code.
func (p *process) Wait() (int, error) {
	<-p.done
	p.conn.Close()
	if p.copyErr != nil {
		return -1, fmt.Errorf("reading exec output: %w", p.copyErr)
	}
	info, err := p.cli.ContainerExecInspect(context.Background(), p.execID)
	if err != nil {
		return -1, fmt.Errorf("failed to inspect exec: %w", err)
	}
	return info.ExitCode, nil
}

// Kill detaches from the exec. The daemon has no API to signal an exec, so
// the process keeps running until the container is removed. A pending Wait
// returns an error.
func (p *process) Kill() error {
	p.conn.Close()
	return nil
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
