package ports

import "context"

// ImageBuilder produces container images for the docker backend from source.
type ImageBuilder interface {
	// BuildImage clones repoURL and builds it into an image tagged tag.
	// It returns the tag that was built.
	BuildImage(ctx context.Context, repoURL string, tag string) (string, error)
}
