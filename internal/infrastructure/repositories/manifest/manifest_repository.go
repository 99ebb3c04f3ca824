package manifest

import (
	"fmt"
	"path"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
	"github.com/rios0rios0/patchseries/internal/domain/repositories"
)

// checkout is one working copy of a project.
type checkout struct {
	project string
	branch  string // empty matches any branch
	remote  entities.Remote
	path    string
}

// ManifestRepository maps changes to the working copies listed in the settings.
type ManifestRepository struct {
	checkouts []checkout
}

var _ repositories.ManifestRepository = (*ManifestRepository)(nil)

// NewManifestRepository builds the manifest from the configured checkouts.
// Checkouts without a remote belong to the external one.
func NewManifestRepository(settings *entities.Settings) (*ManifestRepository, error) {
	manifest := &ManifestRepository{}
	for i, cfg := range settings.Checkouts {
		remote := entities.RemoteExternal
		if cfg.Remote != "" {
			parsed, err := entities.ParseRemote(cfg.Remote)
			if err != nil {
				return nil, fmt.Errorf("checkouts[%d]: %w", i, err)
			}
			remote = parsed
		}
		branch := cfg.Branch
		if branch != "" {
			branch = path.Base(branch)
		}
		manifest.checkouts = append(manifest.checkouts, checkout{
			project: cfg.Project,
			branch:  branch,
			remote:  remote,
			path:    settings.CheckoutPath(cfg),
		})
	}
	return manifest, nil
}

// PathForChange returns the working copy holding the change's project and
// branch. A checkout pinned to the change's branch wins over an unpinned one.
func (it *ManifestRepository) PathForChange(change *entities.Change) (string, error) {
	var pinned, unpinned []string
	for _, candidate := range it.checkouts {
		if candidate.project != change.Project || candidate.remote != change.Remote {
			continue
		}
		switch candidate.branch {
		case change.Branch:
			pinned = append(pinned, candidate.path)
		case "":
			unpinned = append(unpinned, candidate.path)
		}
	}

	matches := pinned
	if len(matches) == 0 {
		matches = unpinned
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s (%s:%s)", repositories.ErrNotInManifest, change.Link(), change.Project, change.Branch)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s (%s:%s)", repositories.ErrMultipleCheckouts, change.Link(), change.Project, change.Branch)
	}
}

// Paths returns every configured working copy.
func (it *ManifestRepository) Paths() []string {
	paths := make([]string, 0, len(it.checkouts))
	for _, candidate := range it.checkouts {
		paths = append(paths, candidate.path)
	}
	return paths
}
