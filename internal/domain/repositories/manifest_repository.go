package repositories

import (
	"errors"

	"github.com/rios0rios0/patchseries/internal/domain/entities"
)

var (
	// ErrNotInManifest is returned when no checkout holds a change's project and branch.
	ErrNotInManifest = errors.New("change is not in the manifest")
	// ErrMultipleCheckouts is returned when more than one checkout could hold a change.
	ErrMultipleCheckouts = errors.New("change matches more than one checkout")
)

// ManifestRepository locates the working copy a change belongs to.
// It is passed explicitly to every resolution and application call.
type ManifestRepository interface {
	PathForChange(change *entities.Change) (string, error)
}
