package domain

import "fmt"

// BackendKind selects an execution backend.
type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendWSL    BackendKind = "wsl"
	BackendDocker BackendKind = "docker"
)

// ParseBackendKind validates a backend tag.
func ParseBackendKind(s string) (BackendKind, error) {
	switch k := BackendKind(s); k {
	case BackendLocal, BackendWSL, BackendDocker:
		return k, nil
	}
	return "", fmt.Errorf("unknown backend kind %q", s)
}

// EnvironmentSpec is everything needed to construct an environment of some kind.
type EnvironmentSpec struct {
	Kind    BackendKind `json:"kind"`
	Request Request     `json:"request"`

	// Image and RepoURL are only read by the docker backend. RepoURL, when
	// set, is cloned and built into Image before the container starts.
	Image   string `json:"image,omitempty"`
	RepoURL string `json:"repo_url,omitempty"`
}
