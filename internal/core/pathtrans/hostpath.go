package pathtrans

import (
	"path"
	"strings"
)

// Host paths use Windows syntax: drive-letter roots, UNC shares and either
// separator on input. These helpers work on that syntax regardless of the
// OS this process runs on, which path/filepath cannot do.

const (
	// HostSeparator is the host's native separator.
	HostSeparator = '\\'
	// GuestSeparator is the guest's separator.
	GuestSeparator = '/'
)

// ToSystemDependent converts every separator to the host convention.
func ToSystemDependent(p string) string {
	return strings.ReplaceAll(p, "/", `\`)
}

// ToSystemIndependent converts every separator to forward slashes.
func ToSystemIndependent(p string) string {
	return strings.ReplaceAll(p, `\`, "/")
}

// IsAbs reports whether p is absolute in host syntax.
func IsAbs(p string) bool {
	if hasDrive(p) {
		return len(p) > 2 && isSep(p[2])
	}
	return len(p) > 0 && isSep(p[0])
}

// Join joins elements with the host separator and canonicalizes the result.
func Join(elem ...string) string {
	var parts []string
	for _, e := range elem {
		if e != "" {
			parts = append(parts, e)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return Canonicalize(strings.Join(parts, `\`))
}

// Canonicalize resolves "." and ".." segments, collapses repeated separators
// and normalizes separators to the host convention. ".." never climbs above
// the volume root (a drive letter or a \\server\share prefix).
func Canonicalize(p string) string {
	if p == "" {
		return ""
	}
	slashed := ToSystemIndependent(p)
	vol, rest := splitVolume(slashed)

	rooted := vol != "" || strings.HasPrefix(rest, "/")
	var cleaned string
	if rooted {
		cleaned = path.Clean("/" + rest)
	} else {
		cleaned = path.Clean(rest)
	}
	if strings.HasPrefix(vol, "//") && cleaned == "/" {
		// \\server\share is the canonical form of a share root.
		cleaned = ""
	}
	return ToSystemDependent(vol + cleaned)
}

// splitVolume splits a forward-slashed path into its volume prefix ("C:" or
// "//server/share") and the remainder.
func splitVolume(p string) (vol, rest string) {
	if hasDrive(p) {
		return strings.ToUpper(p[:1]) + ":", p[2:]
	}
	if strings.HasPrefix(p, "//") {
		trimmed := strings.TrimLeft(p, "/")
		server, after, _ := strings.Cut(trimmed, "/")
		share, tail, found := strings.Cut(after, "/")
		if found {
			tail = "/" + tail
		}
		vol = "//" + server
		if share != "" {
			vol += "/" + share
		}
		return vol, tail
	}
	return "", p
}

func hasDrive(p string) bool {
	if len(p) < 2 || p[1] != ':' {
		return false
	}
	c := p[0]
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isSep(c byte) bool { return c == '/' || c == '\\' }

// HasVolume reports whether p starts with a drive letter or a UNC share,
// i.e. whether it can only be a host path.
func HasVolume(p string) bool {
	return hasDrive(p) || strings.HasPrefix(p, `\\`) || strings.HasPrefix(p, "//")
}
