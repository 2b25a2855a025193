// Package local runs processes directly on the host.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"sort"

	"github.com/melih/lighthouse-bridge/internal/adapters/execproc"
	"github.com/melih/lighthouse-bridge/internal/core/binding"
	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// Environment is the identity backend: target paths are host paths and
// ports are host ports.
type Environment struct {
	logger    *slog.Logger
	start     execproc.Starter
	uploads   map[domain.UploadRoot]ports.UploadableVolume
	downloads map[domain.DownloadRoot]ports.DownloadableVolume
	bindings  *binding.Table
}

func NewEnvironment(req domain.Request, logger *slog.Logger) (*Environment, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Environment{
		logger:    logger,
		start:     execproc.StartProcess,
		uploads:   make(map[domain.UploadRoot]ports.UploadableVolume),
		downloads: make(map[domain.DownloadRoot]ports.DownloadableVolume),
		bindings:  binding.NewTable(domain.LoopbackHost),
	}
	for _, root := range req.UploadVolumes {
		abs, err := filepath.Abs(root.LocalRootPath)
		if err != nil {
			logger.Debug("upload root has no absolute path, skipping", "local_root", root.LocalRootPath, "error", err)
			continue
		}
		e.uploads[root] = &volume{root: abs}
	}
	for _, root := range req.DownloadVolumes {
		abs, err := filepath.Abs(root.LocalRootPath)
		if err != nil {
			logger.Debug("download root has no absolute path, skipping", "local_root", root.LocalRootPath, "error", err)
			continue
		}
		e.downloads[root] = &volume{root: abs}
	}
	if err := e.bindings.BindAll(req); err != nil {
		return nil, fmt.Errorf("local environment: %w", err)
	}
	return e, nil
}

// Constructor registers the local backend with an environment service.
func Constructor(logger *slog.Logger) ports.EnvironmentConstructor {
	return func(_ context.Context, spec domain.EnvironmentSpec) (ports.TargetEnvironment, error) {
		env, err := NewEnvironment(spec.Request, logger)
		if err != nil {
			return nil, err
		}
		return env, nil
	}
}

func (e *Environment) UploadVolumes() map[domain.UploadRoot]ports.UploadableVolume {
	return maps.Clone(e.uploads)
}

func (e *Environment) DownloadVolumes() map[domain.DownloadRoot]ports.DownloadableVolume {
	return maps.Clone(e.downloads)
}

func (e *Environment) TargetPortBindings() map[domain.TargetPortBinding]int {
	return e.bindings.Target()
}

func (e *Environment) LocalPortBindings() map[domain.LocalPortBinding]domain.HostPort {
	return e.bindings.Local()
}

func (e *Environment) TargetPlatform() domain.TargetPlatform {
	return domain.CurrentPlatform()
}

func (e *Environment) CreateProcess(ctx context.Context, cmd domain.TargetedCommandLine, _ ports.ProgressIndicator) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ExecutionError{Op: "create process", Err: err}
	}
	if len(cmd.Command) == 0 {
		return nil, &domain.ExecutionError{Op: "create process", Err: fmt.Errorf("empty command")}
	}
	line := domain.CommandLine{
		Path:   cmd.Command[0],
		Args:   cmd.Command[1:],
		Dir:    cmd.WorkingDirectory,
		Env:    envList(cmd.Env),
		Stdin:  cmd.Stdin,
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}
	proc, err := e.start(line)
	if err != nil {
		return nil, &domain.ExecutionError{Op: "start process", Err: err}
	}
	e.logger.Debug("process started", "pid", proc.Pid(), "command", line.Path, "workdir", line.Dir)
	return proc, nil
}

func (e *Environment) Shutdown(context.Context) error { return nil }

func envList(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

type volume struct {
	root string
}

func (v *volume) LocalRoot() string  { return v.root }
func (v *volume) TargetRoot() string { return v.root }

func (v *volume) ResolveTargetPath(relativePath string) (string, error) {
	return filepath.Join(v.root, relativePath), nil
}

func (v *volume) Upload(context.Context, string, ports.ProgressIndicator, string) error { return nil }

func (v *volume) Download(context.Context, string, ports.ProgressIndicator) error { return nil }
