// Package wsl runs processes inside a WSL distribution on a Windows host.
package wsl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"

	"github.com/melih/lighthouse-bridge/internal/adapters/execproc"
	"github.com/melih/lighthouse-bridge/internal/core/binding"
	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/pathtrans"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// WorkdirPolicy controls how CreateProcess treats the working directory.
type WorkdirPolicy string

const (
	// WorkdirVerbatim passes the working directory through untouched.
	WorkdirVerbatim WorkdirPolicy = "verbatim"
	// WorkdirStrict translates host-syntax directories and refuses to launch
	// when that fails.
	WorkdirStrict WorkdirPolicy = "strict"
)

// ParseWorkdirPolicy validates a policy name. Empty selects WorkdirVerbatim.
func ParseWorkdirPolicy(s string) (WorkdirPolicy, error) {
	switch p := WorkdirPolicy(s); p {
	case "":
		return WorkdirVerbatim, nil
	case WorkdirVerbatim, WorkdirStrict:
		return p, nil
	}
	return "", fmt.Errorf("unknown working directory policy %q", s)
}

// Environment is a ports.TargetEnvironment backed by a WSL distribution.
// All state is fixed by NewEnvironment.
type Environment struct {
	distribution ports.Distribution
	translator   *pathtrans.Translator
	policy       WorkdirPolicy
	logger       *slog.Logger
	start        execproc.Starter

	uploads  map[domain.UploadRoot]ports.UploadableVolume
	bindings *binding.Table
}

// Option configures an Environment.
type Option func(*Environment)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Environment) { e.logger = logger }
}

func WithWorkdirPolicy(policy WorkdirPolicy) Option {
	return func(e *Environment) { e.policy = policy }
}

// NewEnvironment resolves every upload root and port binding of req.
// Upload roots that cannot be translated are left out. A port binding that
// asks for remapping fails the whole construction.
func NewEnvironment(req domain.Request, distribution ports.Distribution, opts ...Option) (*Environment, error) {
	e := &Environment{
		distribution: distribution,
		translator:   pathtrans.NewTranslator(distribution, distribution.ID()),
		policy:       WorkdirVerbatim,
		logger:       slog.Default(),
		start:        execproc.StartProcess,
		uploads:      make(map[domain.UploadRoot]ports.UploadableVolume),
		bindings:     binding.NewTable(domain.LoopbackHost),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	for _, root := range req.UploadVolumes {
		local := pathtrans.Canonicalize(absHostPath(root.LocalRootPath))
		target, ok := e.translator.Translate(local)
		if !ok {
			e.logger.Debug("upload root has no guest path, skipping", "local_root", local)
			continue
		}
		e.uploads[root] = &volume{localRoot: local, targetRoot: target, translate: e.translator.Translate}
	}
	if err := e.bindings.BindAll(req); err != nil {
		return nil, fmt.Errorf("wsl environment: %w", err)
	}
	e.logger.Info("wsl environment ready",
		"distribution", distribution.ID(),
		"upload_volumes", len(e.uploads),
		"target_ports", len(req.TargetPortBindings),
		"local_ports", len(req.LocalPortBindings))
	return e, nil
}

// Constructor registers the WSL backend with an environment service.
func Constructor(distribution ports.Distribution, opts ...Option) ports.EnvironmentConstructor {
	return func(_ context.Context, spec domain.EnvironmentSpec) (ports.TargetEnvironment, error) {
		env, err := NewEnvironment(spec.Request, distribution, opts...)
		if err != nil {
			return nil, err
		}
		return env, nil
	}
}

func (e *Environment) UploadVolumes() map[domain.UploadRoot]ports.UploadableVolume {
	return maps.Clone(e.uploads)
}

// DownloadVolumes is always empty: nothing is copied back from the guest.
func (e *Environment) DownloadVolumes() map[domain.DownloadRoot]ports.DownloadableVolume {
	return map[domain.DownloadRoot]ports.DownloadableVolume{}
}

func (e *Environment) TargetPortBindings() map[domain.TargetPortBinding]int {
	return e.bindings.Target()
}

func (e *Environment) LocalPortBindings() map[domain.LocalPortBinding]domain.HostPort {
	return e.bindings.Local()
}

// TargetPlatform is always unix on the host's architecture.
func (e *Environment) TargetPlatform() domain.TargetPlatform {
	return domain.TargetPlatform{OS: domain.OSUnix, Arch: domain.CurrentPlatform().Arch}
}

// CreateProcess launches cmd inside the distribution. progress is accepted
// for interface compatibility; nothing here blocks long enough to report.
func (e *Environment) CreateProcess(ctx context.Context, cmd domain.TargetedCommandLine, progress ports.ProgressIndicator) (ports.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, &domain.ExecutionError{Op: "create process", Err: err}
	}
	if len(cmd.Command) == 0 {
		return nil, &domain.ExecutionError{Op: "create process", Err: fmt.Errorf("empty command")}
	}
	workdir, err := e.workingDirectory(cmd.WorkingDirectory)
	if err != nil {
		return nil, &domain.ExecutionError{Op: "resolve working directory", Err: err}
	}

	line := domain.CommandLine{
		Path:   cmd.Command[0],
		Args:   cmd.Command[1:],
		Stdin:  cmd.Stdin,
		Stdout: cmd.Stdout,
		Stderr: cmd.Stderr,
	}
	opts := domain.LaunchOptions{RemoteWorkingDirectory: workdir, Env: cmd.Env}
	line, err = e.distribution.RewriteForGuest(line, nil, opts)
	if err != nil {
		return nil, &domain.ExecutionError{Op: "patch command line", Err: err}
	}
	proc, err := e.start(line)
	if err != nil {
		return nil, &domain.ExecutionError{Op: "start process", Err: err}
	}
	e.logger.Debug("process started", "pid", proc.Pid(), "command", cmd.Command[0], "workdir", workdir)
	return proc, nil
}

func (e *Environment) workingDirectory(dir string) (string, error) {
	if e.policy != WorkdirStrict || dir == "" {
		return dir, nil
	}
	if !pathtrans.HasVolume(dir) {
		if pathtrans.IsAbs(dir) {
			return pathtrans.ToSystemIndependent(dir), nil
		}
		return "", fmt.Errorf("%s: relative working directory", dir)
	}
	guest, ok := e.translator.Translate(pathtrans.Canonicalize(dir))
	if !ok {
		return "", fmt.Errorf("%s: %w", dir, domain.ErrPathNotTranslated)
	}
	return guest, nil
}

// Shutdown does nothing: the environment owns no sockets or temp files.
func (e *Environment) Shutdown(context.Context) error { return nil }

// absHostPath makes p absolute against our working directory unless it
// already is in host syntax.
func absHostPath(p string) string {
	if pathtrans.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
