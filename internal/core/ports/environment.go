package ports

import (
	"context"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
)

// TargetEnvironment is the capability set every execution backend provides.
// Local, WSL and Docker implementations are interchangeable behind it.
//
// The maps returned by the view methods are snapshots: mutating them never
// affects the environment.
type TargetEnvironment interface {
	UploadVolumes() map[domain.UploadRoot]UploadableVolume
	DownloadVolumes() map[domain.DownloadRoot]DownloadableVolume
	TargetPortBindings() map[domain.TargetPortBinding]int
	LocalPortBindings() map[domain.LocalPortBinding]domain.HostPort
	TargetPlatform() domain.TargetPlatform

	// CreateProcess launches cmd inside the target. Failures are returned
	// as *domain.ExecutionError.
	CreateProcess(ctx context.Context, cmd domain.TargetedCommandLine, progress ProgressIndicator) (Process, error)

	// Shutdown releases backend resources. It is safe to call repeatedly.
	Shutdown(ctx context.Context) error
}

// UploadableVolume is a host subtree visible to the target.
type UploadableVolume interface {
	LocalRoot() string
	TargetRoot() string
	ResolveTargetPath(relativePath string) (string, error)
	Upload(ctx context.Context, relativePath string, progress ProgressIndicator, resolvedTargetPath string) error
}

// DownloadableVolume is a target subtree visible to the host.
type DownloadableVolume interface {
	LocalRoot() string
	TargetRoot() string
	ResolveTargetPath(relativePath string) (string, error)
	Download(ctx context.Context, relativePath string, progress ProgressIndicator) error
}

// ProgressIndicator receives human readable progress from long operations.
type ProgressIndicator interface {
	AddText(text string)
	Canceled() bool
}

// NopProgress discards all progress.
type NopProgress struct{}

func (NopProgress) AddText(string) {}
func (NopProgress) Canceled() bool { return false }

// Process is a running process started by an environment.
type Process interface {
	Pid() int
	// Wait blocks until the process exits and returns its exit code.
	Wait() (int, error)
	Kill() error
}

// EnvironmentConstructor builds an environment for one backend kind.
type EnvironmentConstructor func(ctx context.Context, spec domain.EnvironmentSpec) (TargetEnvironment, error)
