// Package pathtrans maps host paths into guest path syntax.
package pathtrans

import (
	"strings"

	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// UNCPrefix is the share prefix under which Windows exposes WSL filesystems.
const UNCPrefix = `\\wsl$\`

// Translator converts host-absolute paths into guest paths.
type Translator struct {
	mounts   ports.MountTable
	instance string
}

// NewTranslator returns a Translator that asks mounts first and falls back
// to the \\wsl$\<instance> share convention.
func NewTranslator(mounts ports.MountTable, instance string) *Translator {
	return &Translator{mounts: mounts, instance: instance}
}

// Translate returns the guest path for hostPath, or false when neither the
// mount table nor the share convention can place it.
func (t *Translator) Translate(hostPath string) (string, bool) {
	if t.mounts != nil {
		if guest, ok := t.mounts.GuestPath(hostPath); ok {
			return guest, true
		}
	}
	return t.fromShare(hostPath)
}

func (t *Translator) fromShare(hostPath string) (string, bool) {
	if t.instance == "" {
		return "", false
	}
	root := UNCPrefix + t.instance
	native := ToSystemDependent(hostPath)
	if !strings.HasPrefix(native, root) {
		return "", false
	}
	rest := native[len(root):]
	if rest == "" {
		return "/", true
	}
	if rest[0] == HostSeparator {
		return ToSystemIndependent(rest), true
	}
	return "", false
}
