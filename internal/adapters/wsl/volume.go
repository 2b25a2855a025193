package wsl

import (
	"context"
	"fmt"

	"github.com/melih/lighthouse-bridge/internal/core/domain"
	"github.com/melih/lighthouse-bridge/internal/core/pathtrans"
	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// volume is an upload root that is already visible to the guest through a mount.
type volume struct {
	localRoot  string
	targetRoot string
	translate  func(string) (string, bool)
}

func (v *volume) LocalRoot() string  { return v.localRoot }
func (v *volume) TargetRoot() string { return v.targetRoot }

func (v *volume) ResolveTargetPath(relativePath string) (string, error) {
	local := pathtrans.Join(v.localRoot, relativePath)
	guest, ok := v.translate(local)
	if !ok {
		return "", fmt.Errorf("%s: %w", local, domain.ErrPathNotTranslated)
	}
	return guest, nil
}

// Upload does nothing: the guest reads the host file through the mount.
func (v *volume) Upload(context.Context, string, ports.ProgressIndicator, string) error {
	return nil
}
