package domain

import (
	"io"
	"net"
	"runtime"
	"strconv"
)

// LoopbackHost is the host name every local port binding resolves to.
const LoopbackHost = "localhost"

// UploadRoot identifies a host directory subtree to be made visible to the target.
type UploadRoot struct {
	LocalRootPath string `json:"local_root"`
	// TargetRootPath is a placement hint. Backends that derive the target
	// path themselves (wsl, local) ignore it.
	TargetRootPath string `json:"target_root,omitempty"`
}

// DownloadRoot identifies a target directory subtree to be made visible to the host.
type DownloadRoot struct {
	LocalRootPath  string `json:"local_root"`
	TargetRootPath string `json:"target_root,omitempty"`
}

// TargetPortBinding exposes a target-side port to the host.
// Local is zero when no particular host port was requested.
type TargetPortBinding struct {
	Target int `json:"target"`
	Local  int `json:"local,omitempty"`
}

// LocalPortBinding exposes a host-side port to the target.
// Target is zero when no particular target port was requested.
type LocalPortBinding struct {
	Local  int `json:"local"`
	Target int `json:"target,omitempty"`
}

// HostPort is a resolved binding endpoint.
type HostPort struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port))
}

// OSFamily is the operating system family processes run under.
type OSFamily string

const (
	OSUnix    OSFamily = "unix"
	OSWindows OSFamily = "windows"
)

// TargetPlatform describes where launched processes execute.
type TargetPlatform struct {
	OS   OSFamily `json:"os"`
	Arch string   `json:"arch"`
}

// CurrentPlatform returns the platform of the running host.
func CurrentPlatform() TargetPlatform {
	family := OSUnix
	if runtime.GOOS == "windows" {
		family = OSWindows
	}
	return TargetPlatform{OS: family, Arch: runtime.GOARCH}
}

// Request enumerates everything a caller wants from a new environment.
type Request struct {
	UploadVolumes      []UploadRoot        `json:"upload_volumes"`
	DownloadVolumes    []DownloadRoot      `json:"download_volumes"`
	TargetPortBindings []TargetPortBinding `json:"target_port_bindings"`
	LocalPortBindings  []LocalPortBinding  `json:"local_port_bindings"`
}

// TargetedCommandLine is an already tokenized command together with the
// working directory it should run in, expressed in target path syntax.
type TargetedCommandLine struct {
	Command          []string
	WorkingDirectory string
	Env              map[string]string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// CommandLine is a launchable process description on the host.
type CommandLine struct {
	Path string
	Args []string
	Dir  string
	Env  []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// LaunchOptions carries what a launcher needs to enter the target.
type LaunchOptions struct {
	RemoteWorkingDirectory string
	Env                    map[string]string
}
