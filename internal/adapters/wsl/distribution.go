package wsl

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/pathtrans"
)

// DefaultMountRoot is where WSL mounts host drives unless wsl.conf says otherwise.
const DefaultMountRoot = "/mnt/"

// Distribution is a WSL distribution reached through wsl.exe. Host drives are
// assumed mounted under MountRoot as lower-case letters.
type Distribution struct {
	id        string
	exe       string
	mountRoot string
}

// NewDistribution returns a distribution named id. Empty exe and mountRoot
// select "wsl.exe" and DefaultMountRoot.
func NewDistribution(id, exe, mountRoot string) *Distribution {
	if exe == "" {
		exe = "wsl.exe"
	}
	if mountRoot == "" {
		mountRoot = DefaultMountRoot
	}
	if !strings.HasSuffix(mountRoot, "/") {
		mountRoot += "/"
	}
	return &Distribution{id: id, exe: exe, mountRoot: mountRoot}
}

func (d *Distribution) ID() string { return d.id }

// GuestPath maps drive-letter paths to the automount root.
func (d *Distribution) GuestPath(hostPath string) (string, bool) {
	if !pathtrans.IsAbs(hostPath) || len(hostPath) < 3 || hostPath[1] != ':' {
		return "", false
	}
	canonical := pathtrans.ToSystemIndependent(pathtrans.Canonicalize(hostPath))
	drive := strings.ToLower(canonical[:1])
	rest := strings.TrimPrefix(canonical[2:], "/")
	if rest == "" {
		return d.mountRoot + drive, true
	}
	return d.mountRoot + drive + "/" + rest, true
}

// RewriteForGuest wraps line in a wsl.exe invocation. Environment variables
// from opts cross the boundary through WSLENV. hint is unused: WSL shares the
// host network stack.
func (d *Distribution) RewriteForGuest(line domain.CommandLine, hint *domain.HostPort, opts domain.LaunchOptions) (domain.CommandLine, error) {
	if line.Path == "" {
		return domain.CommandLine{}, fmt.Errorf("empty command")
	}
	args := []string{"--distribution", d.id}
	if opts.RemoteWorkingDirectory != "" {
		args = append(args, "--cd", opts.RemoteWorkingDirectory)
	}
	args = append(args, "--exec", line.Path)
	args = append(args, line.Args...)

	out := line
	out.Path = d.exe
	out.Args = args
	out.Dir = ""
	out.Env = slices.Clone(line.Env)
	if len(opts.Env) > 0 {
		keys := make([]string, 0, len(opts.Env))
		for k, v := range opts.Env {
			keys = append(keys, k)
			out.Env = append(out.Env, k+"="+v)
		}
		sort.Strings(keys)
		out.Env = append(out.Env, "WSLENV="+mergeWSLENV(hostWSLENV(line.Env), keys))
	}
	return out, nil
}

// hostWSLENV is the WSLENV the launched wsl.exe would otherwise inherit.
func hostWSLENV(env []string) string {
	for i := len(env) - 1; i >= 0; i-- {
		if v, ok := strings.CutPrefix(env[i], "WSLENV="); ok {
			return v
		}
	}
	return os.Getenv("WSLENV")
}

// mergeWSLENV appends keys to an existing WSLENV list. Entries already
// present, with or without translation flags, are kept as they are.
func mergeWSLENV(existing string, keys []string) string {
	var entries []string
	present := make(map[string]bool)
	for _, e := range strings.Split(existing, ":") {
		if e == "" {
			continue
		}
		name, _, _ := strings.Cut(e, "/")
		present[name] = true
		entries = append(entries, e)
	}
	for _, k := range keys {
		if !present[k] {
			present[k] = true
			entries = append(entries, k)
		}
	}
	return strings.Join(entries, ":")
}
