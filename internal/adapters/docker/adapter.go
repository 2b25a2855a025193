// Package docker runs processes inside a long-lived container. Upload and
// download roots become bind mounts and target ports are published by the
// docker daemon, so unlike the wsl backend it can remap ports.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// apiClient is the part of *client.Client the backend uses.
type apiClient interface {
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerInspect(ctx context.Context, containerID string) (types.ContainerJSON, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	ContainerExecCreate(ctx context.Context, containerID string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

// Options are the defaults applied to every docker environment.
type Options struct {
	// Image is used when an environment names none.
	Image string
	// TargetRoot is where upload roots without a target hint are mounted.
	TargetRoot string
	Logger     *slog.Logger
}

// Adapter creates docker environments against one daemon.
type Adapter struct {
	cli     apiClient
	builder ports.ImageBuilder
	opts    Options
}

// NewAdapter connects to the daemon described by the DOCKER_* environment.
// builder may be nil, in which case environments with a RepoURL are rejected.
func NewAdapter(builder ports.ImageBuilder, opts Options) (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newAdapter(cli, builder, opts), nil
}

func newAdapter(cli apiClient, builder ports.ImageBuilder, opts Options) *Adapter {
	if opts.TargetRoot == "" {
		opts.TargetRoot = "/workspace"
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{cli: cli, builder: builder, opts: opts}
}

// Constructor registers the docker backend with an environment service.
func (a *Adapter) Constructor() ports.EnvironmentConstructor {
	return func(ctx context.Context, spec domain.EnvironmentSpec) (ports.TargetEnvironment, error) {
		env, err := a.NewEnvironment(ctx, spec)
		if err != nil {
			return nil, err
		}
		return env, nil
	}
}

// ensureImage builds spec.RepoURL when set, otherwise pulls the image.
func (a *Adapter) ensureImage(ctx context.Context, spec domain.EnvironmentSpec) (string, error) {
	image := spec.Image
	if image == "" {
		image = a.opts.Image
	}
	if spec.RepoURL != "" {
		if a.builder == nil {
			return "", fmt.Errorf("building from %s: no image builder configured", spec.RepoURL)
		}
		if spec.Image == "" {
			image = "lighthouse-bridge-build:latest"
		}
		return a.builder.BuildImage(ctx, spec.RepoURL, image)
	}
	if image == "" {
		return "", fmt.Errorf("no image specified")
	}

	reader, err := a.cli.ImagePull(ctx, image, types.ImagePullOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()
	if err := jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil); err != nil {
		return "", fmt.Errorf("failed to pull image: %w", err)
	}
	return image, nil
}
