package ports

import "github.com/melih/lighthouse-bridge/internal/core/domain"

// MountTable answers where a host path is visible inside a distribution.
type MountTable interface {
	GuestPath(hostPath string) (string, bool)
}

// Launcher rewrites a host command line into one that enters the guest.
type Launcher interface {
	RewriteForGuest(line domain.CommandLine, hint *domain.HostPort, opts domain.LaunchOptions) (domain.CommandLine, error)
}

// Distribution is a single guest instance, e.g. one WSL distribution.
type Distribution interface {
	MountTable
	Launcher

	// ID is the instance name the host uses for its network share.
	ID() string
}
