package docker

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/melih/lighthouse-bridge/internal/core/ports"
)

// volume is a bind mount; both directions see the same files.
type volume struct {
	localRoot  string
	targetRoot string
}

func (v *volume) bind() string { return v.localRoot + ":" + v.targetRoot }

func (v *volume) LocalRoot() string  { return v.localRoot }
func (v *volume) TargetRoot() string { return v.targetRoot }

// ResolveTargetPath joins relativePath under the mount point. Paths that
// climb out of the mount are rejected.
func (v *volume) ResolveTargetPath(relativePath string) (string, error) {
	rel := strings.ReplaceAll(relativePath, `\`, "/")
	target := path.Join(v.targetRoot, rel)
	if target != v.targetRoot && !strings.HasPrefix(target, strings.TrimSuffix(v.targetRoot, "/")+"/") {
		return "", fmt.Errorf("%s escapes %s", relativePath, v.targetRoot)
	}
	return target, nil
}

func (v *volume) Upload(context.Context, string, ports.ProgressIndicator, string) error { return nil }

func (v *volume) Download(context.Context, string, ports.ProgressIndicator) error { return nil }
