package docker

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"

	"github.com/melih/lighthouse-bridge/internal/core/binding"
	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// HostGateway is how containers reach services bound on the host.
const HostGateway = "host.docker.internal"

// Environment is a running container plus the bindings it was created with.
type Environment struct {
	cli         apiClient
	logger      *slog.Logger
	containerID string

	uploads   map[domain.UploadRoot]ports.UploadableVolume
	downloads map[domain.DownloadRoot]ports.DownloadableVolume
	targets   map[domain.TargetPortBinding]int
	locals    *binding.Table

	mu       sync.Mutex
	shutDown bool
}

// NewEnvironment prepares the image and starts a container for spec. The
// container is removed again if anything after its creation fails.
func (a *Adapter) NewEnvironment(ctx context.Context, spec domain.EnvironmentSpec) (*Environment, error) {
	req := spec.Request
	e := &Environment{
		cli:       a.cli,
		logger:    a.opts.Logger,
		uploads:   make(map[domain.UploadRoot]ports.UploadableVolume),
		downloads: make(map[domain.DownloadRoot]ports.DownloadableVolume),
		targets:   make(map[domain.TargetPortBinding]int),
		locals:    binding.NewTable(HostGateway),
	}

	// Local bindings are validated before anything touches the daemon.
	for _, b := range req.LocalPortBindings {
		if _, err := e.locals.BindLocal(b); err != nil {
			return nil, fmt.Errorf("docker environment: %w", err)
		}
	}

	var binds []string
	used := make(map[string]bool)
	for _, root := range req.UploadVolumes {
		v, err := a.newVolume(root.LocalRootPath, root.TargetRootPath, used)
		if err != nil {
			e.logger.Debug("upload root skipped", "local_root", root.LocalRootPath, "error", err)
			continue
		}
		e.uploads[root] = v
		binds = append(binds, v.bind())
	}
	for _, root := range req.DownloadVolumes {
		v, err := a.newVolume(root.LocalRootPath, root.TargetRootPath, used)
		if err != nil {
			e.logger.Debug("download root skipped", "local_root", root.LocalRootPath, "error", err)
			continue
		}
		e.downloads[root] = v
		binds = append(binds, v.bind())
	}

	exposed, published, err := publishPorts(req.TargetPortBindings)
	if err != nil {
		return nil, fmt.Errorf("docker environment: %w", err)
	}

	image, err := a.ensureImage(ctx, spec)
	if err != nil {
		return nil, err
	}

	resp, err := a.cli.ContainerCreate(ctx, &container.Config{
		Image:        image,
		Cmd:          []string{"sleep", "infinity"},
		WorkingDir:   a.opts.TargetRoot,
		ExposedPorts: exposed,
	}, &container.HostConfig{
		Binds:        binds,
		PortBindings: published,
		ExtraHosts:   []string{HostGateway + ":host-gateway"},
	}, nil, nil, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	e.containerID = resp.ID

	if err := a.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		e.Shutdown(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to start container: %w", err)
	}
	if err := e.resolvePorts(ctx, req.TargetPortBindings); err != nil {
		e.Shutdown(context.WithoutCancel(ctx))
		return nil, err
	}

	e.logger.Info("docker environment ready",
		"container", shortID(resp.ID),
		"image", image,
		"volumes", len(binds),
		"target_ports", len(e.targets))
	return e, nil
}

func (a *Adapter) newVolume(localRoot, targetHint string, used map[string]bool) (*volume, error) {
	local, err := filepath.Abs(localRoot)
	if err != nil {
		return nil, err
	}
	target := targetHint
	if target == "" {
		target = path.Join(a.opts.TargetRoot, filepath.Base(local))
	}
	if !path.IsAbs(target) {
		return nil, fmt.Errorf("target root %q is not absolute", target)
	}
	target = path.Clean(target)
	if used[target] {
		if targetHint != "" {
			return nil, fmt.Errorf("target root %q is already mounted", target)
		}
		for i := 2; used[target]; i++ {
			target = path.Join(a.opts.TargetRoot, filepath.Base(local)+"-"+strconv.Itoa(i))
		}
	}
	used[target] = true
	return &volume{localRoot: local, targetRoot: target}, nil
}

// publishPorts turns target bindings into docker port sets. A zero Local
// asks the daemon for an ephemeral host port.
func publishPorts(bindings []domain.TargetPortBinding) (nat.PortSet, nat.PortMap, error) {
	exposed := nat.PortSet{}
	published := nat.PortMap{}
	seen := make(map[domain.TargetPortBinding]bool)
	for _, b := range bindings {
		if seen[b] {
			continue
		}
		seen[b] = true
		port, err := nat.NewPort("tcp", strconv.Itoa(b.Target))
		if err != nil {
			return nil, nil, fmt.Errorf("target port %d: %w", b.Target, err)
		}
		hostPort := ""
		if b.Local != 0 {
			hostPort = strconv.Itoa(b.Local)
		}
		exposed[port] = struct{}{}
		published[port] = append(published[port], nat.PortBinding{HostIP: "127.0.0.1", HostPort: hostPort})
	}
	return exposed, published, nil
}

// resolvePorts records the host port the daemon actually assigned to each
// target binding. Several bindings may share a target port; an ephemeral
// one never resolves to a host port claimed by a pinned one.
func (e *Environment) resolvePorts(ctx context.Context, bindings []domain.TargetPortBinding) error {
	if len(bindings) == 0 {
		return nil
	}
	info, err := e.cli.ContainerInspect(ctx, e.containerID)
	if err != nil {
		return fmt.Errorf("failed to inspect container: %w", err)
	}
	var assigned nat.PortMap
	if info.NetworkSettings != nil {
		assigned = info.NetworkSettings.Ports
	}

	claimed := make(map[int]bool)
	for _, b := range bindings {
		if b.Local != 0 {
			e.targets[b] = b.Local
			claimed[b.Local] = true
		}
	}
	for _, b := range bindings {
		if b.Local != 0 {
			continue
		}
		if _, done := e.targets[b]; done {
			continue
		}
		port, _ := nat.NewPort("tcp", strconv.Itoa(b.Target))
		hostPort, ok := unclaimedHostPort(assigned[port], claimed)
		if !ok {
			return fmt.Errorf("daemon assigned no host port for %s", port)
		}
		claimed[hostPort] = true
		e.targets[b] = hostPort
	}
	return nil
}

func unclaimedHostPort(bindings []nat.PortBinding, claimed map[int]bool) (int, bool) {
	for _, pb := range bindings {
		if p, err := strconv.Atoi(pb.HostPort); err == nil && p > 0 && !claimed[p] {
			return p, true
		}
	}
	return 0, false
}

func (e *Environment) ContainerID() string { return e.containerID }

func (e *Environment) UploadVolumes() map[domain.UploadRoot]ports.UploadableVolume {
	return maps.Clone(e.uploads)
}

func (e *Environment) DownloadVolumes() map[domain.DownloadRoot]ports.DownloadableVolume {
	return maps.Clone(e.downloads)
}

// TargetPortBindings maps each binding to the host port it is published on.
func (e *Environment) TargetPortBindings() map[domain.TargetPortBinding]int {
	return maps.Clone(e.targets)
}

func (e *Environment) LocalPortBindings() map[domain.LocalPortBinding]domain.HostPort {
	return e.locals.Local()
}

func (e *Environment) TargetPlatform() domain.TargetPlatform {
	return domain.TargetPlatform{OS: domain.OSUnix, Arch: domain.CurrentPlatform().Arch}
}

// Shutdown force-removes the container. Once removal succeeds later calls
// do nothing; after a failure the next call tries again.
func (e *Environment) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.shutDown || e.containerID == "" {
		return nil
	}
	err := e.cli.ContainerRemove(ctx, e.containerID, types.ContainerRemoveOptions{Force: true, RemoveVolumes: true})
	if err != nil {
		e.logger.Warn("container removal failed", "container", shortID(e.containerID), "error", err)
		return fmt.Errorf("failed to remove container: %w", err)
	}
	e.shutDown = true
	e.logger.Info("docker environment shut down", "container", shortID(e.containerID))
	return nil
}

func envList(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
